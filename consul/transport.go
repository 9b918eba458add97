package consul

import (
	"context"
	"net/http"
	"sync"
)

type responseKey struct{}

// Response 一次请求的原始状态码和响应头
// consul/api 在缺少 X-Consul-LastContact 时不解析 KnownLeader, 需要自己读取
type Response struct {
	mu     sync.Mutex
	seen   bool
	status int
	header http.Header
}

// WithResponse 请求经过 NewConsulClient 创建的客户端时, 响应头写入resp
func WithResponse(ctx context.Context, resp *Response) context.Context {
	return context.WithValue(ctx, responseKey{}, resp)
}

// Header 未经过捕获时 ok 为false
func (r *Response) Header() (http.Header, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.header, r.seen
}

func (r *Response) Status() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Response) record(resp *http.Response) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = true
	r.status = resp.StatusCode
	r.header = resp.Header.Clone()
}

type captureTransport struct {
	next http.RoundTripper
}

func (t captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil || resp == nil {
		return resp, err
	}
	if r, ok := req.Context().Value(responseKey{}).(*Response); ok && r != nil {
		r.record(resp)
	}
	return resp, nil
}
