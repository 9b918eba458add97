package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/hulining/consul-balancer/cores/logger"

	"github.com/getsentry/sentry-go"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/pkg/errors"
)

///////////////////////////////////////////
// 服务端中间件
///////////////////////////////////////////

func PanicHandler(lgr *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				var rerr interface{}
				if rerr = recover(); rerr != nil {
					if rerr == http.ErrAbortHandler {
						panic(rerr)
					}
					var buf [1 << 10]byte
					runtime.Stack(buf[:], false)
					lgr.Error(r.Context(), "http error, message:%v\n, stack:%s", rerr, string(buf[:]))

					hub := sentry.CurrentHub().Clone()
					hub.CaptureException(errors.New(string(buf[:])))
					hub.Flush(5 * time.Second)

					http.Error(w, "internal error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func TracingHandler(tracer opentracing.Tracer) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			spanContext, err := tracer.Extract(
				opentracing.HTTPHeaders,
				opentracing.HTTPHeadersCarrier(r.Header),
			)
			opts := []opentracing.StartSpanOption{
				opentracing.Tag{Key: string(ext.Component), Value: "http Server"},
			}
			if err == nil {
				opts = append(opts, opentracing.ChildOf(spanContext))
			}
			span := tracer.StartSpan(r.Method+" "+r.URL.Path, opts...)
			defer span.Finish()
			ext.HTTPMethod.Set(span, r.Method)
			ext.HTTPUrl.Set(span, r.URL.String())

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r.WithContext(opentracing.ContextWithSpan(r.Context(), span)))
			ext.HTTPStatusCode.Set(span, uint16(sw.status))
			if sw.status >= http.StatusInternalServerError {
				ext.Error.Set(span, true)
			}
		})
	}
}

// TimeoutHandler 请求整体超时 d<=0时不生效
func TimeoutHandler(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func LogHandler(lgr *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			defer func() {
				logData := map[string]interface{}{
					"Peer":   r.RemoteAddr,
					"Method": r.Method,
					"Path":   r.URL.Path,
					"Status": sw.status,
					"Bytes":  sw.bytes,
					"Cost":   fmt.Sprintf("%dms", time.Since(start).Milliseconds()),
				}
				if up := w.Header().Get(UpstreamHeader); up != "" {
					logData["Upstream"] = up
				}
				bs, e := json.Marshal(logData)
				if e != nil {
					return
				}
				lgr.Write(r.Context(), "%s", string(bs))
			}()
			next.ServeHTTP(sw, r)
		})
	}
}

// UpstreamHeader 代理选中的实例 写入响应头
const UpstreamHeader = "X-Balancer-Upstream"

type statusWriter struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.wroteHeader {
		sw.status = code
		sw.wroteHeader = true
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(p []byte) (int, error) {
	sw.wroteHeader = true
	n, err := sw.ResponseWriter.Write(p)
	sw.bytes += n
	return n, err
}

func (sw *statusWriter) Flush() {
	if f, ok := sw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sw *statusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}
