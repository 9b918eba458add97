package jaeger

import (
	"io"

	"github.com/hulining/consul-balancer/cores/tracing"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/uber/jaeger-client-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"
)

type Option func(o *options)

type options struct {
	addr  string
	ratio float64
}

// WithAddr collector地址 为空时不上报
func WithAddr(addr string) Option {
	return func(o *options) {
		o.addr = addr
	}
}

// WithRatio 采样比例 默认全部采样
func WithRatio(ratio float64) Option {
	return func(o *options) {
		if ratio > 0 && ratio <= 1 {
			o.ratio = ratio
		}
	}
}

type Tracer struct {
	opentracing.Tracer
	closer io.Closer
}

func NewTracer(serviceName string, opts ...Option) (tracing.Tracer, error) {
	option := options{ratio: 1}
	for _, o := range opts {
		if o != nil {
			o(&option)
		}
	}
	cfg := jaegercfg.Configuration{
		ServiceName: serviceName,
		Sampler: &jaegercfg.SamplerConfig{
			Type:  jaeger.SamplerTypeConst,
			Param: 0,
		},
		Gen128Bit: true,
	}
	if option.addr != "" {
		cfg.Sampler.Type = jaeger.SamplerTypeProbabilistic
		cfg.Sampler.Param = option.ratio
		cfg.Reporter = &jaegercfg.ReporterConfig{
			CollectorEndpoint: option.addr,
		}
	}
	tracer, closer, err := cfg.NewTracer()
	if err != nil {
		return nil, errors.WithMessage(err, "init jaeger tracer")
	}
	return &Tracer{
		Tracer: tracer,
		closer: closer,
	}, nil
}

func (t *Tracer) Close() error {
	return t.closer.Close()
}
