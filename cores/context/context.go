package context

import (
	"context"
)

type (
	serviceKey struct{}
	indexKey   struct{}
)

// WithService 标记当前watch循环所属服务 日志会自动带上
func WithService(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, serviceKey{}, name)
}

func ServiceFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	name, ok := ctx.Value(serviceKey{}).(string)
	if !ok {
		return ""
	}
	return name
}

// WithIndex 当前blocking query使用的index
func WithIndex(ctx context.Context, index uint64) context.Context {
	return context.WithValue(ctx, indexKey{}, index)
}

func IndexFromContext(ctx context.Context) (uint64, bool) {
	if ctx == nil {
		return 0, false
	}
	index, ok := ctx.Value(indexKey{}).(uint64)
	return index, ok
}
