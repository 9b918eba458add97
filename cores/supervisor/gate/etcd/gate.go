package etcd

import (
	"context"
	"time"

	gCtx "github.com/hulining/consul-balancer/cores/context"
	"github.com/hulining/consul-balancer/logger"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"
)

const (
	DefaultTTL        = 10
	DefaultRetryDelay = 2 * time.Second
	_resignTimeout    = 3 * time.Second
)

var ErrGateConfig = errors.New("invalid etcd gate config")

type Option func(*Gate)

// TTL session租约 单位秒
func TTL(ttl int) Option {
	return func(g *Gate) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

func RetryDelay(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.retryDelay = d
		}
	}
}

func Clock(clock clockwork.Clock) Option {
	return func(g *Gate) {
		if clock != nil {
			g.clock = clock
		}
	}
}

/////////////////////////////////////////
// etcd选主 session失效即失去执行权
/////////////////////////////////////////

type Gate struct {
	client     *clientv3.Client
	key        string
	value      string
	ttl        int
	retryDelay time.Duration
	clock      clockwork.Clock
}

// New value 写入选举key 标识当前进程
func New(client *clientv3.Client, key, value string, opts ...Option) (*Gate, error) {
	if client == nil || key == "" || value == "" {
		return nil, ErrGateConfig
	}
	g := &Gate{
		client:     client,
		key:        key,
		value:      value,
		ttl:        DefaultTTL,
		retryDelay: DefaultRetryDelay,
		clock:      clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g, nil
}

func (g *Gate) Lead(ctx context.Context) (context.Context, error) {
	ctx = gCtx.WithService(ctx, "gate:"+g.key)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		session, err := concurrency.NewSession(g.client, concurrency.WithTTL(g.ttl), concurrency.WithContext(ctx))
		if err != nil {
			logger.Warn(ctx, "create etcd session err:%v", err)
			if !g.sleep(ctx) {
				return nil, ctx.Err()
			}
			continue
		}
		election := concurrency.NewElection(session, g.key)
		if err = election.Campaign(ctx, g.value); err != nil {
			_ = session.Close()
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn(ctx, "campaign err:%v", err)
			if !g.sleep(ctx) {
				return nil, ctx.Err()
			}
			continue
		}
		logger.Info(ctx, "elected, value:%s", g.value)
		leadCtx, cancel := context.WithCancel(ctx)
		go g.hold(leadCtx, cancel, session, election)
		return leadCtx, nil
	}
}

func (g *Gate) hold(ctx context.Context, cancel context.CancelFunc, session *concurrency.Session, election *concurrency.Election) {
	defer cancel()
	select {
	case <-session.Done():
		logger.Warn(ctx, "etcd session expired, leadership lost")
	case <-ctx.Done():
		rctx, rcancel := context.WithTimeout(context.WithoutCancel(ctx), _resignTimeout)
		if err := election.Resign(rctx); err != nil {
			logger.Warn(ctx, "resign err:%v", err)
		}
		rcancel()
	}
	_ = session.Close()
}

func (g *Gate) sleep(ctx context.Context) bool {
	t := g.clock.NewTimer(g.retryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.Chan():
		return true
	}
}
