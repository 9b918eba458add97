package registry

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/hulining/consul-balancer/cores/balancer"
	"github.com/hulining/consul-balancer/cores/errors"
	"github.com/hulining/consul-balancer/cores/observer"
)

/////////////////////////////////////////
// 服务名 -> 当前生效的balancer快照
// 每个key只有一个写者(对应的watcher) 读者不加锁
/////////////////////////////////////////

type slot struct {
	current atomic.Pointer[balancer.Balancer]
}

type Option func(*Registry)

// Observer 选择失败时通知
func Observer(o observer.Observer) Option {
	return func(r *Registry) {
		if o != nil {
			r.observer = o
		}
	}
}

type Registry struct {
	slots    sync.Map
	observer observer.Observer
}

func New(opts ...Option) *Registry {
	r := &Registry{
		observer: observer.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Swap 整体替换name对应的balancer
func (r *Registry) Swap(name string, b balancer.Balancer) {
	v, _ := r.slots.LoadOrStore(name, &slot{})
	v.(*slot).current.Store(&b)
}

// Get 从未安装过返回ErrNotFound
func (r *Registry) Get(name string) (balancer.Balancer, error) {
	v, ok := r.slots.Load(name)
	if !ok {
		return nil, errors.ErrNotFound
	}
	p := v.(*slot).current.Load()
	if p == nil || *p == nil {
		return nil, errors.ErrNotFound
	}
	return *p, nil
}

// Pick 返回 address:port
func (r *Registry) Pick(name string) (string, error) {
	b, err := r.Get(name)
	if err != nil {
		r.observer.SelectFailed(name, err)
		return "", err
	}
	ins, err := b.Pick()
	if err != nil {
		if errors.KindOf(err) != errors.KindSelection {
			err = errors.Wrap(errors.ErrInternal, err)
		}
		r.observer.SelectFailed(name, err)
		return "", err
	}
	return ins.String(), nil
}

// Names 已安装过balancer的服务 按名称排序
func (r *Registry) Names() []string {
	var names []string
	r.slots.Range(func(k, _ interface{}) bool {
		names = append(names, k.(string))
		return true
	})
	sort.Strings(names)
	return names
}
