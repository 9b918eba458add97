package client

import (
	"context"
	"net/http"

	gCtx "github.com/hulining/consul-balancer/cores/context"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
)

type Invoker func(ctx context.Context, c *Client, req *http.Request) (*http.Response, error)

type Interceptor func(ctx context.Context, c *Client, req *http.Request, invoker Invoker) (*http.Response, error)

func getInvoker(interceptors []Interceptor, curr int, finalInvoker Invoker) Invoker {
	if curr == len(interceptors)-1 {
		return finalInvoker
	}
	return func(ctx context.Context, c *Client, req *http.Request) (*http.Response, error) {
		return interceptors[curr+1](ctx, c, req, getInvoker(interceptors, curr+1, finalInvoker))
	}
}

func doInterceptors(ctx context.Context, cc *Client, req *http.Request) (*http.Response, error) {
	if len(cc.interceptors) == 0 {
		return invoke(ctx, cc, req)
	}
	return cc.interceptors[0](ctx, cc, req, getInvoker(cc.interceptors, 0, invoke))
}

func invoke(ctx context.Context, c *Client, req *http.Request) (*http.Response, error) {
	addr, err := c.picker.Pick(gCtx.ServiceFromContext(ctx))
	if err != nil {
		return nil, err
	}
	if c.insecure {
		req.URL.Scheme = "http"
	} else {
		req.URL.Scheme = "https"
	}
	req.Host = addr
	req.URL.Host = addr
	return c.httpClient.Do(req)
}

///////////////////////////////////////////
// 客户端拦截器
///////////////////////////////////////////

func TracingInterceptor(tracer opentracing.Tracer) Interceptor {
	return func(ctx context.Context, c *Client, req *http.Request, invoker Invoker) (*http.Response, error) {
		var parentCtx opentracing.SpanContext
		if parentSpan := opentracing.SpanFromContext(ctx); parentSpan != nil {
			parentCtx = parentSpan.Context()
		}
		span := tracer.StartSpan(
			gCtx.ServiceFromContext(ctx)+" "+req.URL.Path,
			opentracing.ChildOf(parentCtx),
			opentracing.Tag{Key: string(ext.Component), Value: "http Client"},
		)
		defer span.Finish()

		carrier := opentracing.HTTPHeadersCarrier(req.Header)
		if err := tracer.Inject(span.Context(), opentracing.HTTPHeaders, carrier); err != nil {
			return nil, err
		}
		resp, err := invoker(ctx, c, req)
		if err != nil {
			ext.Error.Set(span, true)
			span.SetTag("error.message", err.Error())
			return nil, err
		}
		ext.HTTPStatusCode.Set(span, uint16(resp.StatusCode))
		return resp, nil
	}
}
