package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	gErrors "github.com/hulining/consul-balancer/cores/errors"

	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seqPicker 依次返回给定地址
type seqPicker struct {
	mu    sync.Mutex
	addrs []string
	names []string
}

func (p *seqPicker) Pick(name string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.names = append(p.names, name)
	if len(p.addrs) == 0 {
		return "", gErrors.ErrEmpty
	}
	addr := p.addrs[0]
	p.addrs = p.addrs[1:]
	return addr, nil
}

func hostOf(srv *httptest.Server) string {
	return strings.TrimPrefix(srv.URL, "http://")
}

func TestGetPicksInstance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.URL.Path))
	}))
	defer srv.Close()

	picker := &seqPicker{addrs: []string{hostOf(srv)}}
	c, err := NewClient(picker)
	require.NoError(t, err)

	resp, err := c.Get(context.Background(), "billing", "invoices/1")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "/invoices/1", string(body))
	assert.Equal(t, []string{"billing"}, picker.names)
}

func TestRetryPicksAnotherInstance(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	deadAddr := hostOf(dead)
	dead.Close()

	var got string
	live := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bs, _ := io.ReadAll(r.Body)
		got = string(bs)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer live.Close()

	c, err := NewClient(&seqPicker{addrs: []string{deadAddr, hostOf(live)}}, WithRetry(1))
	require.NoError(t, err)

	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, c.JsonPost(context.Background(), "billing", "/charge", map[string]int{"amount": 3}, &out))
	assert.True(t, out.OK)
	assert.Equal(t, `{"amount":3}`, got)
}

func TestPickFailure(t *testing.T) {
	c, err := NewClient(&seqPicker{})
	require.NoError(t, err)
	_, err = c.Get(context.Background(), "billing", "/")
	assert.ErrorIs(t, err, gErrors.ErrEmpty)

	_, err = NewClient(nil)
	assert.Error(t, err)
}

func TestJsonPostStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c, err := NewClient(&seqPicker{addrs: []string{hostOf(srv)}})
	require.NoError(t, err)
	err = c.JsonPost(context.Background(), "billing", "/charge", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestTracingInterceptor(t *testing.T) {
	var traced string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traced = r.Header.Get("Mockpfx-Ids-Traceid")
	}))
	defer srv.Close()

	tracer := mocktracer.New()
	c, err := NewClient(&seqPicker{addrs: []string{hostOf(srv)}}, WithInterceptors(TracingInterceptor(tracer)))
	require.NoError(t, err)
	resp, err := c.Get(context.Background(), "billing", "/status")
	require.NoError(t, err)
	_ = resp.Body.Close()

	spans := tracer.FinishedSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "billing /status", spans[0].OperationName)
	assert.NotEmpty(t, traced)
}
