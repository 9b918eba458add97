package observer

import (
	"context"

	gCtx "github.com/hulining/consul-balancer/cores/context"
	"github.com/hulining/consul-balancer/cores/errors"
	"github.com/hulining/consul-balancer/logger"
)

// Observer watch状态切换和选择失败的观察者 实现不能阻塞
type Observer interface {
	WatchStarted(name string, service string)
	WatchInstalled(name string, index uint64, instances int)
	WatchFailed(name string, index uint64, err error)
	WatchStopped(name string, err error)
	SelectFailed(name string, err error)
}

type nop struct{}

func (nop) WatchStarted(string, string)        {}
func (nop) WatchInstalled(string, uint64, int) {}
func (nop) WatchFailed(string, uint64, error)  {}
func (nop) WatchStopped(string, error)         {}
func (nop) SelectFailed(string, error)         {}

func Nop() Observer {
	return nop{}
}

// Log 输出到业务日志
type Log struct{}

func (Log) WatchStarted(name string, service string) {
	logger.Info(gCtx.WithService(context.Background(), name), "watch started, consul service:%s", service)
}

func (Log) WatchInstalled(name string, index uint64, instances int) {
	logger.Debug(gCtx.WithService(context.Background(), name), "selector installed, index:%d instances:%d", index, instances)
}

func (Log) WatchFailed(name string, index uint64, err error) {
	logger.Warn(gCtx.WithService(context.Background(), name), "poll failed, index:%d kind:%s err:%v", index, errors.KindOf(err), err)
}

func (Log) WatchStopped(name string, err error) {
	ctx := gCtx.WithService(context.Background(), name)
	if err != nil {
		logger.Error(ctx, "watch stopped permanently, err:%v", err)
		return
	}
	logger.Info(ctx, "watch stopped")
}

func (Log) SelectFailed(name string, err error) {
	logger.Debug(gCtx.WithService(context.Background(), name), "select failed, err:%v", err)
}

// Multi 依次通知所有观察者
type Multi []Observer

func (m Multi) WatchStarted(name string, service string) {
	for _, o := range m {
		o.WatchStarted(name, service)
	}
}

func (m Multi) WatchInstalled(name string, index uint64, instances int) {
	for _, o := range m {
		o.WatchInstalled(name, index, instances)
	}
}

func (m Multi) WatchFailed(name string, index uint64, err error) {
	for _, o := range m {
		o.WatchFailed(name, index, err)
	}
}

func (m Multi) WatchStopped(name string, err error) {
	for _, o := range m {
		o.WatchStopped(name, err)
	}
}

func (m Multi) SelectFailed(name string, err error) {
	for _, o := range m {
		o.SelectFailed(name, err)
	}
}
