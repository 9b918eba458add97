package gate

import (
	"context"
)

// Gate 决定当前进程是否运行watcher
// Lead 阻塞直到获得执行权, 返回的ctx在失去执行权时取消
// 只有ctx结束时才返回错误
type Gate interface {
	Lead(ctx context.Context) (context.Context, error)
}

type static bool

func (s static) Lead(ctx context.Context) (context.Context, error) {
	if s {
		return ctx, nil
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

// Always 单实例部署 总是运行
func Always() Gate {
	return static(true)
}

// Never 只提供选择 不运行watcher
func Never() Gate {
	return static(false)
}

// Static 外部给定的布尔决定
func Static(run bool) Gate {
	return static(run)
}
