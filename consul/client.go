package consul

import (
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/consul/api"
	"github.com/pkg/errors"
)

const (
	// DefaultWaitTime blocking query的最长等待时间
	DefaultWaitTime = 5 * time.Minute
	// consul会在wait上额外增加最多wait/16的随机抖动
	_waitJitterDivisor = 16
	_requestSlack      = 5 * time.Second
)

// RequestTimeout 单次blocking query的传输超时 必须大于wait
// 否则每次长轮询都会被误判为传输失败
func RequestTimeout(wait time.Duration) time.Duration {
	if wait <= 0 {
		wait = DefaultWaitTime
	}
	return wait + wait/_waitJitterDivisor + _requestSlack
}

type Option func(*option)

type option struct {
	waitTime   time.Duration
	token      string
	datacenter string
}

func WaitTime(waitTime time.Duration) Option {
	return func(o *option) {
		o.waitTime = waitTime
	}
}

// Token 默认acl token 服务级token优先
func Token(token string) Option {
	return func(o *option) {
		o.token = token
	}
}

func Datacenter(dc string) Option {
	return func(o *option) {
		o.datacenter = dc
	}
}

// NewConsulClient addrs为','分割的地址列表 使用第一个可以创建客户端的地址
func NewConsulClient(addrs string, opts ...Option) (*api.Client, error) {
	o := option{
		waitTime: DefaultWaitTime,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	var lastErr error
	for _, addr := range strings.Split(addrs, ",") {
		addr = strings.TrimRight(strings.TrimSpace(addr), "/")
		if addr == "" {
			continue
		}
		config := &api.Config{
			Address:    addr,
			WaitTime:   o.waitTime,
			Token:      o.token,
			Datacenter: o.datacenter,
		}
		hc, err := httpClient()
		if err != nil {
			lastErr = err
			continue
		}
		config.HttpClient = hc
		cli, err := api.NewClient(config)
		if err == nil {
			return cli, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("consul address is empty")
	}
	return nil, errors.WithMessagef(lastErr, "init consul addrs:%v failed", addrs)
}

// httpClient 响应头经过 captureTransport, 见 WithResponse
func httpClient() (*http.Client, error) {
	hc, err := api.NewHttpClient(api.DefaultConfig().Transport, api.TLSConfig{})
	if err != nil {
		return nil, err
	}
	hc.Transport = captureTransport{next: hc.Transport}
	return hc, nil
}
