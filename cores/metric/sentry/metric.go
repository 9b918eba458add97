package sentry

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hulining/consul-balancer/cores/env"

	sentrygo "github.com/getsentry/sentry-go"
	"github.com/google/uuid"
)

type Option func(*Metric)

func SetServerName(serverName string) Option {
	return func(m *Metric) {
		m.serverName = serverName
	}
}

func SetDsn(dsn string) Option {
	return func(m *Metric) {
		m.dsn = dsn
	}
}

type Metric struct {
	dsn        string
	serverName string
}

var (
	_m     *Metric
	_once  sync.Once
	_alive atomic.Bool
)

func InitMetric(_ context.Context, opts ...Option) *Metric {
	_once.Do(func() {
		_m = &Metric{
			dsn: env.GetEnv(env.BalancerSentryDsn),
		}
		for _, opt := range opts {
			if opt != nil {
				opt(_m)
			}
		}
		if _m.serverName == "" {
			u, _ := uuid.NewUUID()
			_m.serverName = u.String()
		}
	})
	return _m
}

func (m *Metric) Start() {
	if m.dsn == "" {
		return
	}
	if err := sentrygo.Init(sentrygo.ClientOptions{
		Dsn:              m.dsn,
		AttachStacktrace: true,
		ServerName:       m.serverName,
		Environment:      env.GetRunEnv(),
	}); err != nil {
		log.Println(fmt.Sprintf("init sentry error:%v", err))
		return
	}
	_alive.Store(true)
}

func (m *Metric) Reports() chan string {
	return nil
}

// ErrorReport 未初始化sentry时直接忽略
func ErrorReport(ctx context.Context, err error) {
	if err == nil || !_alive.Load() {
		return
	}
	hub := sentrygo.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentrygo.CurrentHub().Clone()
	}
	hub.CaptureException(err)
	hub.Flush(2 * time.Second)
}
