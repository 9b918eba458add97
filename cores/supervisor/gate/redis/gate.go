package redis

import (
	"context"
	"time"

	gCtx "github.com/hulining/consul-balancer/cores/context"
	"github.com/hulining/consul-balancer/logger"

	"github.com/jonboulle/clockwork"
)

const (
	DefaultRetryDelay = 2 * time.Second
	_unlockTimeout    = 3 * time.Second
)

// Locker redis.Mutex 的最小接口
type Locker interface {
	Name() string
	Expiry() time.Duration
	TryLock(ctx context.Context) (bool, error)
	Renew(ctx context.Context) (bool, error)
	UnLock(ctx context.Context) (bool, error)
}

type Option func(*Gate)

// RetryDelay 抢锁失败后的等待时间
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
// 基于redsync互斥锁的执行权
// 持有期间每 expiry/3 续期一次, 续期失败视为失去执行权
/////////////////////////////////////////

type Gate struct {
	locker     Locker
	retryDelay time.Duration
	clock      clockwork.Clock
}

func New(locker Locker, opts ...Option) *Gate {
	g := &Gate{
		locker:     locker,
		retryDelay: DefaultRetryDelay,
		clock:      clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

func (g *Gate) Lead(ctx context.Context) (context.Context, error) {
	ctx = gCtx.WithService(ctx, "gate:"+g.locker.Name())
	for {
		ok, err := g.locker.TryLock(ctx)
		if err != nil && ctx.Err() == nil {
			logger.Warn(ctx, "try lock err:%v", err)
		}
		if ok {
			break
		}
		if !g.sleep(ctx, g.retryDelay) {
			return nil, ctx.Err()
		}
	}
	logger.Info(ctx, "lock acquired, expiry:%s", g.locker.Expiry())
	leadCtx, cancel := context.WithCancel(ctx)
	go g.hold(leadCtx, cancel)
	return leadCtx, nil
}

func (g *Gate) hold(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()
	interval := g.locker.Expiry() / 3
	if interval <= 0 {
		interval = time.Second
	}
	ticker := g.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			uctx, ucancel := context.WithTimeout(context.WithoutCancel(ctx), _unlockTimeout)
			if _, err := g.locker.UnLock(uctx); err != nil {
				logger.Warn(ctx, "unlock err:%v", err)
			}
			ucancel()
			return
		case <-ticker.Chan():
			ok, err := g.locker.Renew(ctx)
			if err != nil || !ok {
				if ctx.Err() != nil {
					continue
				}
				logger.Warn(ctx, "lock lost, renew ok:%v err:%v", ok, err)
				return
			}
		}
	}
}

func (g *Gate) sleep(ctx context.Context, d time.Duration) bool {
	t := g.clock.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.Chan():
		return true
	}
}
