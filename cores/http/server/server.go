package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

type Option func(*Engine)

func Addr(addr string) Option {
	return func(e *Engine) {
		e.addr = addr
	}
}

func UseH2C(h2c bool) Option {
	return func(e *Engine) {
		e.UseH2C = h2c
	}
}

// Use 中间件 按添加顺序由外向内
func Use(mws ...Middleware) Option {
	return func(e *Engine) {
		e.mws = append(e.mws, mws...)
	}
}

func OnStop(fs ...func()) Option {
	return func(e *Engine) {
		e.onStop = append(e.onStop, fs...)
	}
}

type Middleware func(http.Handler) http.Handler

/////////////////////////////////////////
// http服务 包装任意handler
// 实现 cores/server.Server
/////////////////////////////////////////

type Engine struct {
	*http.Server

	addr    string
	UseH2C  bool
	handler http.Handler
	mws     []Middleware
	onStop  []func()
}

func New(h http.Handler, opts ...Option) *Engine {
	e := &Engine{
		handler: h,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	e.Server = &http.Server{
		Handler:           e.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return e
}

// Handler 中间件包装后的handler
func (e *Engine) Handler() http.Handler {
	h := e.handler
	for i := len(e.mws) - 1; i >= 0; i-- {
		h = e.mws[i](h)
	}
	if !e.UseH2C {
		return h
	}
	h2s := &http2.Server{}
	return h2c.NewHandler(h, h2s)
}

func (e *Engine) Start(ctx context.Context) error {
	e.Server.Addr = e.addr
	e.BaseContext = func(net.Listener) context.Context {
		return ctx
	}
	err := e.Server.ListenAndServe()
	if err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (e *Engine) Stop(ctx context.Context) error {
	for _, f := range e.onStop {
		f()
	}
	return e.Shutdown(ctx)
}
