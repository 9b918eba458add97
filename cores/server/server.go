package server

import "context"

// Server 随进程启停的服务 Start阻塞直到Stop被调用
type Server interface {
	Start(context.Context) error
	Stop(context.Context) error
}
