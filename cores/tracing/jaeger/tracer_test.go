package jaeger

import (
	"context"
	"testing"

	"github.com/opentracing/opentracing-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber/jaeger-client-go"
)

func TestNewTracerWithoutCollector(t *testing.T) {
	tr, err := NewTracer("consul-balancer")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, tr.Close())
	}()

	span, ctx := opentracing.StartSpanFromContextWithTracer(context.Background(), tr, "consul.health.service")
	defer span.Finish()
	sc, ok := span.Context().(jaeger.SpanContext)
	require.True(t, ok)
	assert.True(t, sc.TraceID().IsValid())
	assert.Equal(t, span, opentracing.SpanFromContext(ctx))
}

func TestWithRatioIgnoresOutOfRange(t *testing.T) {
	o := options{ratio: 1}
	WithRatio(0)(&o)
	WithRatio(2)(&o)
	assert.Equal(t, 1.0, o.ratio)
	WithRatio(0.25)(&o)
	assert.Equal(t, 0.25, o.ratio)
}
