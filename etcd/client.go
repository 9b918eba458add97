package etcd

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	clientv3 "go.etcd.io/etcd/client/v3"
	"google.golang.org/grpc"
)

const _defaultDialTimeout = 10 * time.Second

type Option func(*option)

type option struct {
	dialTimeout time.Duration
	username    string
	password    string
	eps         []string
}

// DialTimeout 格式同 time.ParseDuration 为空使用默认10s
func DialTimeout(dialTimeout string) Option {
	return func(o *option) {
		if td, err := time.ParseDuration(dialTimeout); err == nil && td > 0 {
			o.dialTimeout = td
		}
	}
}

func Username(username string) Option {
	return func(o *option) {
		o.username = username
	}
}

func Password(password string) Option {
	return func(o *option) {
		o.password = password
	}
}

// Endpoints 支持','分割的单个字符串
func Endpoints(eps ...string) Option {
	return func(o *option) {
		for _, ep := range eps {
			for _, s := range strings.Split(ep, ",") {
				if s = strings.TrimSpace(s); s != "" {
					o.eps = append(o.eps, s)
				}
			}
		}
	}
}

// NewEtcdClient 阻塞直到连接成功或超时
func NewEtcdClient(opts ...Option) (*clientv3.Client, error) {
	o := option{
		dialTimeout: _defaultDialTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if len(o.eps) == 0 {
		return nil, errors.New("etcd endpoints is empty")
	}
	c, err := clientv3.New(clientv3.Config{
		Endpoints:   o.eps,
		DialTimeout: o.dialTimeout,
		Username:    o.username,
		Password:    o.password,
		DialOptions: []grpc.DialOption{grpc.WithBlock()},
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "init etcd endpoints:%v", o.eps)
	}
	return c, nil
}
