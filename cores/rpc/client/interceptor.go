package client

import (
	"context"
	"strings"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// mdCarrier grpc metadata 作为opentracing TextMap
type mdCarrier struct {
	metadata.MD
}

func (c mdCarrier) Set(key, val string) {
	key = strings.ToLower(key)
	c.MD[key] = append(c.MD[key], val)
}

func (c mdCarrier) ForeachKey(handler func(key, val string) error) error {
	for k, vs := range c.MD {
		for _, v := range vs {
			if err := handler(k, v); err != nil {
				return err
			}
		}
	}
	return nil
}

///////////////////////////////////////////
// 客户端拦截器
///////////////////////////////////////////

func TracingClientUnaryInterceptor(tracer opentracing.Tracer) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, request, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		var parentCtx opentracing.SpanContext
		if parentSpan := opentracing.SpanFromContext(ctx); parentSpan != nil {
			parentCtx = parentSpan.Context()
		}
		span := tracer.StartSpan(
			method,
			opentracing.ChildOf(parentCtx),
			opentracing.Tag{Key: string(ext.Component), Value: "gRPC Client"},
			ext.SpanKindRPCClient,
		)
		defer span.Finish()

		rpcMD, ok := metadata.FromOutgoingContext(ctx)
		if !ok {
			rpcMD = metadata.New(nil)
		} else {
			rpcMD = rpcMD.Copy()
		}
		if err := tracer.Inject(span.Context(), opentracing.TextMap, mdCarrier{MD: rpcMD}); err == nil {
			ctx = metadata.NewOutgoingContext(ctx, rpcMD)
		}
		err := invoker(ctx, method, request, reply, cc, opts...)
		if err != nil {
			ext.Error.Set(span, true)
			span.SetTag("grpc.code", status.Code(err).String())
		}
		return err
	}
}

// RetryClientUnaryInterceptor 仅对Unavailable重试 实例下线时由round_robin换下一个
func RetryClientUnaryInterceptor(maxAttempts int) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, request, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		var err error
		for att := 0; att <= maxAttempts; att++ {
			err = invoker(ctx, method, request, reply, cc, opts...)
			if status.Code(err) != codes.Unavailable || ctx.Err() != nil {
				break
			}
		}
		return err
	}
}
