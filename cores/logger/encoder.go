package logger

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"

	gCtx "github.com/hulining/consul-balancer/cores/context"

	"github.com/opentracing/opentracing-go"
	"github.com/uber/jaeger-client-go"
)

type CustomJsonEncoder func(context.Context) (string, string)

type LevelEncoder func(Level) string
type TimeEncoder func(time.Time) string
type CallerEncoder func() string

func defaultLevelEncoder(l Level) string {
	if l == NoneLevel {
		return ""
	}
	return "[" + l.String() + "]"
}

func defaultTimeEncoder(t time.Time) string {
	return t.Format("2006-01-02 15:04:05.000")
}

func defaultCallEncoder() string {
	_, file, line, _ := runtime.Caller(4)

	ss := strings.Split(file, "/")
	if len(ss) > PathDeep {
		ss = ss[len(ss)-PathDeep:]
		file = "/" + strings.Join(ss, "/")
	}
	return fmt.Sprintf("%s:%d", file, line)
}

// ServiceEncoder 输出watch循环所属的服务名
func ServiceEncoder(ctx context.Context) (string, string) {
	return "service", gCtx.ServiceFromContext(ctx)
}

// IndexEncoder 输出当前blocking query的index
func IndexEncoder(ctx context.Context) (string, string) {
	index, ok := gCtx.IndexFromContext(ctx)
	if !ok {
		return "", ""
	}
	return "index", strconv.FormatUint(index, 10)
}

func traceEncoder(ctx context.Context) string {
	span := opentracing.SpanFromContext(ctx)
	if span == nil {
		return ""
	}
	if sc, ok := span.Context().(jaeger.SpanContext); ok {
		return sc.TraceID().String()
	}
	return ""
}
