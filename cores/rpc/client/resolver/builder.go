package resolver

import (
	"context"
	"time"

	"github.com/hulining/consul-balancer/cores/balancer"

	"github.com/jonboulle/clockwork"
	"google.golang.org/grpc/resolver"
)

const (
	Scheme          = "balancer"
	DefaultInterval = time.Second
)

// Getter 服务名 -> 当前生效的balancer快照
type Getter interface {
	Get(name string) (balancer.Balancer, error)
}

type Option func(o *builder)

// WithEps 兜底endpoints 服务未发现时使用
func WithEps(eps ...string) Option {
	return func(b *builder) {
		b.eps = eps
	}
}

// WithInterval 从注册表同步地址的间隔
func WithInterval(d time.Duration) Option {
	return func(b *builder) {
		if d > 0 {
			b.interval = d
		}
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(b *builder) {
		if clock != nil {
			b.clock = clock
		}
	}
}

type builder struct {
	getter   Getter
	eps      []string
	interval time.Duration
	clock    clockwork.Clock
}

func NewBuilder(getter Getter, opts ...Option) resolver.Builder {
	b := &builder{
		getter:   getter,
		interval: DefaultInterval,
		clock:    clockwork.NewRealClock(),
	}
	for _, o := range opts {
		if o != nil {
			o(b)
		}
	}
	return b
}

// Build target形如 balancer:///billing
func (b *builder) Build(target resolver.Target, cc resolver.ClientConn, _ resolver.BuildOptions) (resolver.Resolver, error) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &registryResolver{
		service:  target.Endpoint(),
		getter:   b.getter,
		cc:       cc,
		interval: b.interval,
		clock:    b.clock,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		now:      make(chan struct{}, 1),
	}
	for _, ep := range b.eps {
		r.eps = append(r.eps, resolver.Address{Addr: ep})
	}
	r.sync()
	go r.watch()
	return r, nil
}

func (*builder) Scheme() string {
	return Scheme
}
