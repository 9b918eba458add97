package proxy

import (
	"context"
	"errors"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	gCtx "github.com/hulining/consul-balancer/cores/context"
	gErrors "github.com/hulining/consul-balancer/cores/errors"
	httpSrv "github.com/hulining/consul-balancer/cores/http/server"
	"github.com/hulining/consul-balancer/cores/metric/sentry"
	"github.com/hulining/consul-balancer/logger"
)

// Picker 服务名 -> address:port
type Picker interface {
	Pick(name string) (string, error)
}

type upstreamKey struct{}

type Option func(*Dispatcher)

// Leading 集群执行权模式下 只有leader的registry有数据
// leading返回false时直接回复503, 请求应由负载均衡转给leader
func Leading(leading func() bool) Option {
	return func(d *Dispatcher) {
		d.leading = leading
	}
}

/////////////////////////////////////////
// 路径首段为服务名 其余部分原样转发到选中的实例
// /billing/invoices/1 -> http://<instance>/invoices/1
/////////////////////////////////////////

type Dispatcher struct {
	picker  Picker
	leading func() bool
	proxy   *httputil.ReverseProxy
}

func New(picker Picker, transport http.RoundTripper, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		picker: picker,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	d.proxy = &httputil.ReverseProxy{
		Rewrite:      d.rewrite,
		Transport:    transport,
		ErrorHandler: d.errorHandler,
	}
	return d
}

// Split 返回服务名和转发路径, 传入转义后的路径时结果保持转义形式
func Split(path string) (string, string) {
	path = strings.TrimLeft(path, "/")
	service, rest, _ := strings.Cut(path, "/")
	return service, "/" + rest
}

func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if d.leading != nil && !d.leading() {
		http.Error(w, "standby, not leader", http.StatusServiceUnavailable)
		return
	}
	service, _ := Split(r.URL.EscapedPath())
	service, err := url.PathUnescape(service)
	if err != nil || service == "" {
		http.Error(w, "service undefined", http.StatusNotFound)
		return
	}
	addr, err := d.picker.Pick(service)
	if err != nil {
		code := StatusOf(err)
		logger.Warn(gCtx.WithService(r.Context(), service), "pick failed: %v", err)
		http.Error(w, err.Error(), code)
		return
	}
	w.Header().Set(httpSrv.UpstreamHeader, addr)
	ctx := gCtx.WithService(r.Context(), service)
	ctx = context.WithValue(ctx, upstreamKey{}, addr)
	d.proxy.ServeHTTP(w, r.WithContext(ctx))
}

func (d *Dispatcher) rewrite(pr *httputil.ProxyRequest) {
	addr, _ := pr.In.Context().Value(upstreamKey{}).(string)
	_, rest := Split(pr.In.URL.EscapedPath())
	pr.Out.URL.Scheme = "http"
	pr.Out.URL.Host = addr
	pr.Out.URL.RawPath = rest
	if path, err := url.PathUnescape(rest); err == nil {
		pr.Out.URL.Path = path
	} else {
		pr.Out.URL.Path = rest
		pr.Out.URL.RawPath = ""
	}
	pr.Out.Host = addr
	pr.SetXForwarded()
}

func (d *Dispatcher) errorHandler(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	if errors.Is(err, context.Canceled) {
		// 客户端已断开
		w.WriteHeader(499)
		return
	}
	addr, _ := ctx.Value(upstreamKey{}).(string)
	logger.Error(ctx, "proxy to %s err:%v", addr, err)
	sentry.ErrorReport(ctx, err)
	w.WriteHeader(http.StatusBadGateway)
}

// StatusOf 选择失败对应的http状态码
func StatusOf(err error) int {
	switch {
	case errors.Is(err, gErrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, gErrors.ErrEmpty):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
