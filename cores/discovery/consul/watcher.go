package consul

import (
	"context"
	"time"

	"github.com/hulining/consul-balancer/cores/balancer"
	"github.com/hulining/consul-balancer/cores/balancer/wrr"
	gCtx "github.com/hulining/consul-balancer/cores/context"
	"github.com/hulining/consul-balancer/cores/discovery"
	gErrors "github.com/hulining/consul-balancer/cores/errors"
	"github.com/hulining/consul-balancer/cores/observer"
	"github.com/hulining/consul-balancer/logger"

	"github.com/jonboulle/clockwork"
	"github.com/sourcegraph/conc/panics"
)

const (
	DefaultRetryDelay  = time.Second
	DefaultPacingDelay = time.Second
)

// Swapper watcher只需要registry的写接口
type Swapper interface {
	Swap(name string, b balancer.Balancer)
}

type WatcherOption func(*Watcher)

func RetryDelay(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d >= 0 {
			w.retryDelay = d
		}
	}
}

// PacingDelay 成功安装后到下一次轮询的间隔
func PacingDelay(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d >= 0 {
			w.pacingDelay = d
		}
	}
}

func Clock(clock clockwork.Clock) WatcherOption {
	return func(w *Watcher) {
		if clock != nil {
			w.clock = clock
		}
	}
}

func Builder(builder balancer.Builder) WatcherOption {
	return func(w *Watcher) {
		if builder != nil {
			w.builder = builder
		}
	}
}

func WithObserver(o observer.Observer) WatcherOption {
	return func(w *Watcher) {
		if o != nil {
			w.observer = o
		}
	}
}

// pollState 只被watch goroutine访问
type pollState struct {
	lastIndex uint64
	polls     uint64
}

/////////////////////////////////////////
// 单个服务的长轮询循环
// 成功: 构建新balancer整体替换 失败: 保留旧balancer 固定间隔重试
/////////////////////////////////////////

type Watcher struct {
	desc        discovery.Descriptor
	fetcher     Fetcher
	registry    Swapper
	builder     balancer.Builder
	observer    observer.Observer
	clock       clockwork.Clock
	retryDelay  time.Duration
	pacingDelay time.Duration
	state       pollState
}

func NewWatcher(desc discovery.Descriptor, fetcher Fetcher, registry Swapper, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		desc:        desc,
		fetcher:     fetcher,
		registry:    registry,
		builder:     wrr.NewBuilder(),
		observer:    observer.Nop(),
		clock:       clockwork.NewRealClock(),
		retryDelay:  DefaultRetryDelay,
		pacingDelay: DefaultPacingDelay,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

func (w *Watcher) Name() string {
	return w.desc.Name
}

// Run 阻塞直到ctx取消 只有配置错误会返回非nil
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.desc.Validate(); err != nil {
		w.observer.WatchStopped(w.desc.Name, err)
		return err
	}
	ctx = gCtx.WithService(ctx, w.desc.Name)
	w.observer.WatchStarted(w.desc.Name, w.desc.Service)
	for {
		select {
		case <-ctx.Done():
			w.observer.WatchStopped(w.desc.Name, nil)
			return nil
		default:
		}
		delay := w.poll(ctx)
		if !w.sleep(ctx, delay) {
			w.observer.WatchStopped(w.desc.Name, nil)
			return nil
		}
	}
}

func (w *Watcher) poll(ctx context.Context) time.Duration {
	var (
		pc    panics.Catcher
		delay time.Duration
	)
	pc.Try(func() {
		delay = w.pollOnce(ctx)
	})
	if r := pc.Recovered(); r != nil {
		err := gErrors.Wrap(gErrors.ErrInternal, r.AsError())
		logger.Error(ctx, "poll panic, index:%d err:%v", w.state.lastIndex, err)
		w.observer.WatchFailed(w.desc.Name, w.state.lastIndex, err)
		return w.retryDelay
	}
	return delay
}

func (w *Watcher) pollOnce(ctx context.Context) time.Duration {
	w.state.polls++
	instances, index, err := w.fetcher.Fetch(gCtx.WithIndex(ctx, w.state.lastIndex), w.desc, w.state.lastIndex)
	if err != nil {
		if ctx.Err() != nil {
			return 0
		}
		w.observer.WatchFailed(w.desc.Name, w.state.lastIndex, err)
		return w.retryDelay
	}

	w.registry.Swap(w.desc.Name, w.builder.Build(instances))
	w.observer.WatchInstalled(w.desc.Name, index, len(instances))
	if index < w.state.lastIndex {
		// consul重建或快照恢复 index回退时从0开始全量同步
		logger.Warn(ctx, "index went backwards %d -> %d, resync from 0", w.state.lastIndex, index)
		w.state.lastIndex = 0
	} else {
		w.state.lastIndex = index
	}
	return w.pacingDelay
}

// sleep ctx取消时返回false
func (w *Watcher) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := w.clock.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.Chan():
		return true
	}
}
