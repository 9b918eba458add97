package logger

import (
	"context"
	"fmt"
	"sync"

	"github.com/hulining/consul-balancer/cores/env"
	"github.com/hulining/consul-balancer/cores/logger"
	"github.com/hulining/consul-balancer/cores/metric/sentry"

	"github.com/pkg/errors"
)

var (
	_once  sync.Once
	busi   *logger.Logger // 业务日志 watch/选择
	access *logger.Logger // 代理access日志
	gen    *logger.Logger // 框架日志
)

func init() {
	var opts []logger.Option
	if env.GetEnv(env.BalancerLogPath) != "" {
		opts = append(opts, logger.SetPath(env.GetEnv(env.BalancerLogPath)))
	}
	gen = logger.New("gen", opts...)
}

func InitLogger(level string, opts ...logger.Option) {
	_once.Do(func() {
		busi = logger.NewGroup(logger.ParseLevel(level), opts...)
		access = logger.New("access", opts...)
		gen = logger.New("gen", opts...)
	})
}

func Debug(ctx context.Context, format string, args ...interface{}) {
	if busi == nil {
		return
	}
	busi.Debug(ctx, format, args...)
}

func Info(ctx context.Context, format string, args ...interface{}) {
	if busi == nil {
		return
	}
	busi.Info(ctx, format, args...)
}

func Warn(ctx context.Context, format string, args ...interface{}) {
	if busi == nil {
		return
	}
	busi.Warn(ctx, format, args...)
}

func Error(ctx context.Context, format string, args ...interface{}) {
	if busi == nil {
		return
	}
	err := errors.New(fmt.Sprintf(format, args...))
	go sentry.ErrorReport(context.WithoutCancel(ctx), err)
	busi.Error(ctx, format, args...)
}

func Fatal(ctx context.Context, format string, args ...interface{}) {
	if busi == nil {
		return
	}
	busi.Fatal(ctx, format, args...)
}

func Gen(ctx context.Context, format string, args ...interface{}) {
	if gen == nil {
		return
	}
	gen.Write(ctx, format, args...)
}

func GetLogger() *logger.Logger {
	return busi
}

func GetAccess() *logger.Logger {
	return access
}

func GetGen() *logger.Logger {
	return gen
}
