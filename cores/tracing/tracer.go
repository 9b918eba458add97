package tracing

import (
	"io"

	"github.com/opentracing/opentracing-go"
)

// Tracer 可关闭的opentracing实现
type Tracer interface {
	opentracing.Tracer
	io.Closer
}

type nopTracer struct {
	opentracing.NoopTracer
}

func (nopTracer) Close() error {
	return nil
}

// Nop 未配置采集地址时使用
func Nop() Tracer {
	return nopTracer{}
}

// SetGlobal 注册为全局tracer 每次consul查询的span和日志trace id都从这里取
func SetGlobal(t Tracer) {
	if t == nil {
		t = Nop()
	}
	opentracing.SetGlobalTracer(t)
}
