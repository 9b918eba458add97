package nacos

import (
	"context"

	gCtx "github.com/hulining/consul-balancer/cores/context"
	"github.com/hulining/consul-balancer/cores/logger"

	nacosLogger "github.com/nacos-group/nacos-sdk-go/common/logger"
)

var _ nacosLogger.Logger = (*Logger)(nil)

var _sdkCtx = gCtx.WithService(context.Background(), "nacos-sdk")

// Logger sdk日志转到框架日志
type Logger struct {
	*logger.Logger
}

func (lgr *Logger) Info(args ...interface{})  { lgr.Logger.Info(_sdkCtx, "", args...) }
func (lgr *Logger) Warn(args ...interface{})  { lgr.Logger.Warn(_sdkCtx, "", args...) }
func (lgr *Logger) Error(args ...interface{}) { lgr.Logger.Error(_sdkCtx, "", args...) }
func (lgr *Logger) Debug(args ...interface{}) { lgr.Logger.Debug(_sdkCtx, "", args...) }

func (lgr *Logger) Infof(format string, args ...interface{}) {
	lgr.Logger.Info(_sdkCtx, format, args...)
}

func (lgr *Logger) Warnf(format string, args ...interface{}) {
	lgr.Logger.Warn(_sdkCtx, format, args...)
}

func (lgr *Logger) Errorf(format string, args ...interface{}) {
	lgr.Logger.Error(_sdkCtx, format, args...)
}

func (lgr *Logger) Debugf(format string, args ...interface{}) {
	lgr.Logger.Debug(_sdkCtx, format, args...)
}
