package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	gCtx "github.com/hulining/consul-balancer/cores/context"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	lgr := NewGroup(InfoLevel, SetWriter(&buf))
	ctx := gCtx.WithService(context.Background(), "billing")

	lgr.Debug(ctx, "dropped %d", 1)
	lgr.Info(ctx, "installed %d instances", 3)

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "[INFO]")
	assert.Contains(t, out, "service=billing")
	assert.True(t, strings.HasSuffix(out, "installed 3 instances\n"), out)
}

func TestJsonFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	lgr := New("gen", SetWriter(&buf), SetFormat(JsonFormat))
	ctx := gCtx.WithIndex(gCtx.WithService(context.Background(), "web"), 42)
	lgr.Warn(ctx, "poll failed: %v", "timeout")

	data := map[string]string{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &data))
	assert.Equal(t, "WARN", data["level"])
	assert.Equal(t, "web", data["service"])
	assert.Equal(t, "42", data["index"])
	assert.Equal(t, "poll failed: timeout", data["message"])
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, InfoLevel, ParseLevel("INFO"))
	assert.Equal(t, WarnLevel, ParseLevel("warning"))
	assert.Equal(t, ErrorLevel, ParseLevel("error"))
	assert.Equal(t, DebugLevel, ParseLevel(""))
}
