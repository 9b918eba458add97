package client

import (
	"crypto/tls"
	"fmt"

	"github.com/hulining/consul-balancer/cores/rpc/client/resolver"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/balancer/roundrobin"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

type Option func(o *clientOptions)

// WithEps 兜底endpoints
func WithEps(eps ...string) Option {
	return func(o *clientOptions) {
		o.eps = eps
	}
}

// WithTLS 加密传输设置
func WithTLS(tlsCfg *tls.Config) Option {
	return func(o *clientOptions) {
		o.tlsCfg = tlsCfg
	}
}

// WithUnaryInterceptor 拦截器
func WithUnaryInterceptor(in ...grpc.UnaryClientInterceptor) Option {
	return func(o *clientOptions) {
		o.ints = append(o.ints, in...)
	}
}

type clientOptions struct {
	eps    []string
	tlsCfg *tls.Config
	ints   []grpc.UnaryClientInterceptor
}

// NewClient 地址来自注册表中service当前的实例
func NewClient(getter resolver.Getter, service string, opts ...Option) (*grpc.ClientConn, error) {
	if getter == nil || service == "" {
		return nil, errors.New("grpc client getter or service undefined")
	}
	var options clientOptions
	for _, o := range opts {
		if o != nil {
			o(&options)
		}
	}
	grpcOpts := []grpc.DialOption{
		grpc.WithDefaultServiceConfig(fmt.Sprintf(`{"loadBalancingConfig": [{"%s":{}}]}`, roundrobin.Name)),
		grpc.WithChainUnaryInterceptor(options.ints...),
	}
	if options.tlsCfg != nil {
		grpcOpts = append(grpcOpts, grpc.WithTransportCredentials(credentials.NewTLS(options.tlsCfg)))
	} else {
		grpcOpts = append(grpcOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	builder := resolver.NewBuilder(getter, resolver.WithEps(options.eps...))
	grpcOpts = append(grpcOpts, grpc.WithResolvers(builder))
	return grpc.NewClient(fmt.Sprintf("%s:///%s", builder.Scheme(), service), grpcOpts...)
}
