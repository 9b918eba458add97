package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	gCtx "github.com/hulining/consul-balancer/cores/context"

	"github.com/pkg/errors"
	"golang.org/x/net/http2"
)

type Option func(*clientOptions)

const (
	_dialTimeout         = 30 * time.Second
	_keepAlive           = 30 * time.Second
	_maxIdleConns        = 100
	_maxIdleConnsPerHost = 20 // 代理场景下单个实例的空闲连接
	_idleConnTimeout     = 90 * time.Second
	_tlsHandshakeTimeout = 10 * time.Second
)

type clientOptions struct {
	tlsCfg       *tls.Config
	timeout      time.Duration
	interceptors []Interceptor
	retry        int
}

func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) {
		o.timeout = d
	}
}

// WithTLS 设置后使用https访问实例
func WithTLS(tlsCfg *tls.Config) Option {
	return func(o *clientOptions) {
		o.tlsCfg = tlsCfg
	}
}

func WithInterceptors(interceptors ...Interceptor) Option {
	return func(o *clientOptions) {
		o.interceptors = append(o.interceptors, interceptors...)
	}
}

// WithRetry 失败后重新选择实例的次数 请求体不可重放时不重试
func WithRetry(retry int) Option {
	return func(o *clientOptions) {
		o.retry = retry
	}
}

func defaultOptions() clientOptions {
	return clientOptions{
		timeout: 30 * time.Second,
	}
}

// Picker 服务名 -> address:port
type Picker interface {
	Pick(name string) (string, error)
}

/////////////////////////////////////////
// 按服务名调用 每次请求从注册表选择一个实例
/////////////////////////////////////////

type Client struct {
	picker       Picker
	httpClient   *http.Client
	interceptors []Interceptor
	insecure     bool
	retry        int
}

func createTransport(tlsCfg *tls.Config) (*http.Transport, error) {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   _dialTimeout,
			KeepAlive: _keepAlive,
		}).DialContext,
		MaxIdleConns:        _maxIdleConns,
		MaxIdleConnsPerHost: _maxIdleConnsPerHost,
		IdleConnTimeout:     _idleConnTimeout,
		TLSHandshakeTimeout: _tlsHandshakeTimeout,
		TLSClientConfig:     tlsCfg,
		ForceAttemptHTTP2:   true,
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		return nil, errors.WithMessage(err, "| http2.ConfigureTransport")
	}
	return transport, nil
}

// NewTransport 供反向代理等直接使用
func NewTransport(opts ...Option) (http.RoundTripper, error) {
	options := defaultOptions()
	for _, o := range opts {
		if o != nil {
			o(&options)
		}
	}
	return createTransport(options.tlsCfg)
}

func NewClient(picker Picker, opts ...Option) (*Client, error) {
	if picker == nil {
		return nil, errors.New("http client picker is nil")
	}
	options := defaultOptions()
	for _, o := range opts {
		if o != nil {
			o(&options)
		}
	}
	transport, err := createTransport(options.tlsCfg)
	if err != nil {
		return nil, err
	}
	return &Client{
		picker:   picker,
		insecure: options.tlsCfg == nil,
		httpClient: &http.Client{
			Timeout:   options.timeout,
			Transport: transport,
		},
		interceptors: options.interceptors,
		retry:        options.retry,
	}, nil
}

// Do req.URL只需要path和query, host由service选出
func (c *Client) Do(ctx context.Context, service string, req *http.Request) (*http.Response, error) {
	ctx = gCtx.WithService(ctx, service)
	req = req.WithContext(ctx)
	var (
		resp *http.Response
		err  error
	)
	for attempt := 0; attempt <= c.retry; attempt++ {
		if attempt > 0 {
			if req.Body != nil && req.Body != http.NoBody {
				if req.GetBody == nil {
					break
				}
				body, gerr := req.GetBody()
				if gerr != nil {
					return nil, gerr
				}
				req.Body = body
			}
		}
		resp, err = doInterceptors(ctx, c, req)
		if err == nil || ctx.Err() != nil {
			break
		}
	}
	return resp, err
}

func (c *Client) Get(ctx context.Context, service, uri string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "/"+strings.TrimLeft(uri, "/"), nil)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, service, req)
}

// JsonPost 响应非2xx时返回错误
func (c *Client) JsonPost(ctx context.Context, service, uri string, reqBody interface{}, respData interface{}) error {
	bs, err := json.Marshal(reqBody)
	if err != nil {
		return errors.WithMessagef(err, "| json.Marshal:%+v", reqBody)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/"+strings.TrimLeft(uri, "/"), bytes.NewReader(bs))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.Do(ctx, service, req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Errorf("%s %s status %d: %s", service, uri, resp.StatusCode, string(body))
	}
	if respData != nil && len(body) > 0 {
		return json.Unmarshal(body, respData)
	}
	return nil
}
