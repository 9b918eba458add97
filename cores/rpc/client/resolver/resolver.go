package resolver

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"time"

	gErrors "github.com/hulining/consul-balancer/cores/errors"

	"github.com/jonboulle/clockwork"
	"google.golang.org/grpc/attributes"
	"google.golang.org/grpc/resolver"
)

type weightKey struct{}

// WeightOf 地址上携带的consul权重 没有时为0
func WeightOf(addr resolver.Address) int {
	if addr.BalancerAttributes == nil {
		return 0
	}
	w, _ := addr.BalancerAttributes.Value(weightKey{}).(int)
	return w
}

// 注册表resolver 定时把快照中的实例同步给grpc
type registryResolver struct {
	service  string
	getter   Getter
	cc       resolver.ClientConn
	eps      []resolver.Address
	interval time.Duration
	clock    clockwork.Clock
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	now      chan struct{}
	last     []string
}

func (r *registryResolver) watch() {
	defer close(r.done)
	for {
		timer := r.clock.NewTimer(r.interval)
		select {
		case <-r.ctx.Done():
			timer.Stop()
			return
		case <-r.now:
			timer.Stop()
		case <-timer.Chan():
		}
		r.sync()
	}
}

// sync 地址列表没有变化时不通知grpc
func (r *registryResolver) sync() {
	b, err := r.getter.Get(r.service)
	var addrs []resolver.Address
	if err == nil {
		for _, ins := range b.Instances() {
			addrs = append(addrs, resolver.Address{
				Addr:               ins.String(),
				ServerName:         r.service,
				BalancerAttributes: attributes.New(weightKey{}, ins.Weight),
			})
		}
	}
	// 服务未发现且有兜底配置 则改为使用兜底配置
	if len(addrs) == 0 && len(r.eps) > 0 {
		addrs = r.eps
	}
	if len(addrs) == 0 && errors.Is(err, gErrors.ErrNotFound) {
		r.last = nil
		r.cc.ReportError(err)
		return
	}
	key := make([]string, 0, len(addrs))
	for _, a := range addrs {
		key = append(key, a.Addr+"/"+strconv.Itoa(WeightOf(a)))
	}
	if r.last != nil && slices.Equal(key, r.last) {
		return
	}
	r.last = key
	_ = r.cc.UpdateState(resolver.State{Addresses: addrs})
}

func (r *registryResolver) ResolveNow(resolver.ResolveNowOptions) {
	select {
	case r.now <- struct{}{}:
	default:
	}
}

func (r *registryResolver) Close() {
	r.cancel()
	<-r.done
}
