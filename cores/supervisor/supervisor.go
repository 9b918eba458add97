package supervisor

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/hulining/consul-balancer/cores/balancer"
	"github.com/hulining/consul-balancer/cores/discovery"
	"github.com/hulining/consul-balancer/cores/discovery/consul"
	"github.com/hulining/consul-balancer/cores/observer"
	"github.com/hulining/consul-balancer/cores/supervisor/gate"
	"github.com/hulining/consul-balancer/logger"

	"github.com/pkg/errors"
	"github.com/sourcegraph/conc"
)

var ErrAlreadyStarted = errors.New("supervisor already started")

type Option func(*Supervisor)

func Gate(g gate.Gate) Option {
	return func(s *Supervisor) {
		if g != nil {
			s.gate = g
		}
	}
}

func Builder(b balancer.Builder) Option {
	return func(s *Supervisor) {
		if b != nil {
			s.builder = b
		}
	}
}

func Observer(o observer.Observer) Option {
	return func(s *Supervisor) {
		if o != nil {
			s.observer = o
		}
	}
}

// WatcherOptions 透传给每个watcher 例如重试间隔
func WatcherOptions(opts ...consul.WatcherOption) Option {
	return func(s *Supervisor) {
		s.watcherOpts = append(s.watcherOpts, opts...)
	}
}

/////////////////////////////////////////
// 每个服务一个watcher goroutine
// 获得执行权后启动全部watcher, 失去执行权后全部停止并重新竞选
/////////////////////////////////////////

type Supervisor struct {
	fetcher     consul.Fetcher
	registry    consul.Swapper
	gate        gate.Gate
	builder     balancer.Builder
	observer    observer.Observer
	watcherOpts []consul.WatcherOption

	started atomic.Bool
	leading atomic.Bool
	descs   []discovery.Descriptor
	wg      conc.WaitGroup
}

func New(fetcher consul.Fetcher, registry consul.Swapper, opts ...Option) *Supervisor {
	s := &Supervisor{
		fetcher:  fetcher,
		registry: registry,
		gate:     gate.Always(),
		observer: observer.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Start 不等待首次轮询结果 立即返回
// 非法描述和重复的服务名被跳过
func (s *Supervisor) Start(ctx context.Context, services ...interface{}) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	seen := make(map[string]struct{}, len(services))
	for _, v := range services {
		desc, err := discovery.Normalize(v)
		if err != nil {
			s.observer.WatchStopped(fmt.Sprintf("%v", v), err)
			continue
		}
		if _, has := seen[desc.Name]; has {
			logger.Warn(ctx, "duplicate service %s ignored", desc.Name)
			continue
		}
		seen[desc.Name] = struct{}{}
		s.descs = append(s.descs, desc)
	}
	if len(s.descs) == 0 {
		logger.Warn(ctx, "no valid service to watch")
		return nil
	}
	s.wg.Go(func() {
		s.run(ctx)
	})
	return nil
}

// Descriptors 实际被监听的服务
func (s *Supervisor) Descriptors() []discovery.Descriptor {
	out := make([]discovery.Descriptor, len(s.descs))
	copy(out, s.descs)
	return out
}

// Leading 当前进程持有执行权, watcher正在运行
func (s *Supervisor) Leading() bool {
	return s.leading.Load()
}

// Wait 等待所有watcher退出
func (s *Supervisor) Wait() {
	s.wg.Wait()
}

func (s *Supervisor) run(ctx context.Context) {
	opts := append([]consul.WatcherOption{
		consul.WithObserver(s.observer),
		consul.Builder(s.builder),
	}, s.watcherOpts...)
	for {
		leadCtx, err := s.gate.Lead(ctx)
		if err != nil {
			return
		}
		s.leading.Store(true)
		logger.Info(ctx, "leadership acquired, start %d watchers", len(s.descs))
		var wg conc.WaitGroup
		for _, desc := range s.descs {
			w := consul.NewWatcher(desc, s.fetcher, s.registry, opts...)
			wg.Go(func() {
				_ = w.Run(leadCtx)
			})
		}
		wg.Wait()
		s.leading.Store(false)
		if ctx.Err() != nil {
			return
		}
		logger.Warn(ctx, "leadership lost, campaign again")
	}
}
