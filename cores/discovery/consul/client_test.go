package consul

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	gConsul "github.com/hulining/consul-balancer/consul"
	"github.com/hulining/consul-balancer/cores/balancer"
	"github.com/hulining/consul-balancer/cores/discovery"
	gErrors "github.com/hulining/consul-balancer/cores/errors"

	"github.com/hashicorp/consul/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConsul struct {
	mu       sync.Mutex
	status   int
	body     string
	entries  []*api.ServiceEntry
	index    string
	leader   string
	requests []*http.Request
}

func (f *fakeConsul) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Clone(context.Background()))
	if f.index != "" {
		w.Header().Set("X-Consul-Index", f.index)
	}
	if f.leader != "" {
		w.Header().Set("X-Consul-KnownLeader", f.leader)
	}
	w.Header().Set("Content-Type", "application/json")
	if f.status != 0 && f.status != http.StatusOK {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(f.body))
		return
	}
	if f.body != "" {
		_, _ = w.Write([]byte(f.body))
		return
	}
	_ = json.NewEncoder(w).Encode(f.entries)
}

func (f *fakeConsul) last() *http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}

func newTestClient(t *testing.T, f *fakeConsul) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	cli, err := gConsul.NewConsulClient(srv.URL)
	require.NoError(t, err)
	return NewClient(cli, WaitTime(2*time.Second)), srv
}

func entry(node, address string, port, weight int, statuses ...string) *api.ServiceEntry {
	e := &api.ServiceEntry{
		Node: &api.Node{Node: "n-" + node, Address: node},
		Service: &api.AgentService{
			ID:      address + ":" + strconv.Itoa(port),
			Service: "billing",
			Address: address,
			Port:    port,
			Weights: api.AgentWeights{Passing: weight, Warning: 1},
		},
	}
	for i, s := range statuses {
		e.Checks = append(e.Checks, &api.HealthCheck{CheckID: "c" + strconv.Itoa(i), Status: s})
	}
	return e
}

func TestFetchQuery(t *testing.T) {
	t.Parallel()
	f := &fakeConsul{index: "42", leader: "true"}
	c, _ := newTestClient(t, f)

	desc := discovery.Descriptor{
		Name:       "billing",
		Service:    "billing-v2",
		Tag:        "primary",
		Datacenter: "dc2",
		Near:       "_agent",
		NodeMeta:   map[string]string{"rack": "r1"},
		Token:      "secret",
	}
	_, index, err := c.Fetch(context.Background(), desc, 17)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), index)

	r := f.last()
	require.NotNil(t, r)
	assert.Equal(t, "/v1/health/service/billing-v2", r.URL.Path)
	q := r.URL.Query()
	assert.Equal(t, "17", q.Get("index"))
	assert.Equal(t, "2000ms", q.Get("wait"))
	assert.Equal(t, "dc2", q.Get("dc"))
	assert.Equal(t, "primary", q.Get("tag"))
	assert.Equal(t, "_agent", q.Get("near"))
	assert.Equal(t, "rack:r1", q.Get("node-meta"))
	assert.Empty(t, q.Get("passing"))
	assert.Equal(t, "secret", r.Header.Get("X-Consul-Token"))
}

// 只带 X-Consul-Index 和 X-Consul-KnownLeader, 没有 X-Consul-LastContact
func TestFetchWithOnlyRequiredHeaders(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Consul-Index", "5")
		w.Header().Set("X-Consul-KnownLeader", "true")
		_ = json.NewEncoder(w).Encode([]*api.ServiceEntry{
			entry("10.0.0.1", "", 8080, 2, api.HealthPassing),
		})
	}))
	t.Cleanup(srv.Close)
	cli, err := gConsul.NewConsulClient(srv.URL)
	require.NoError(t, err)

	instances, index, err := NewClient(cli).Fetch(context.Background(), discovery.Descriptor{Name: "billing", Service: "billing"}, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), index)
	assert.Equal(t, []balancer.Instance{{Address: "10.0.0.1", Port: 8080, Weight: 2}}, instances)
}

func TestQueryMetaWithoutRawHeaders(t *testing.T) {
	t.Parallel()
	raw := &gConsul.Response{}

	_, err := queryMeta(raw, &api.QueryMeta{LastIndex: 3})
	assert.ErrorIs(t, err, gErrors.ErrLeaderless)
	_, err = queryMeta(raw, &api.QueryMeta{KnownLeader: true})
	assert.ErrorIs(t, err, gErrors.ErrMissingIndex)
	meta, err := queryMeta(raw, &api.QueryMeta{KnownLeader: true, LastIndex: 3})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), meta.LastIndex)
}

func TestFetchFirstPollHasNoIndex(t *testing.T) {
	t.Parallel()
	f := &fakeConsul{index: "5", leader: "true"}
	c, _ := newTestClient(t, f)

	_, _, err := c.Fetch(context.Background(), discovery.Descriptor{Name: "billing", Service: "billing"}, 0)
	require.NoError(t, err)
	_, has := f.last().URL.Query()["index"]
	assert.False(t, has)
}

func TestFetchFiltersRecords(t *testing.T) {
	t.Parallel()
	f := &fakeConsul{
		index:  "9",
		leader: "true",
		entries: []*api.ServiceEntry{
			entry("10.0.0.1", "192.168.1.1", 8080, 3, api.HealthPassing, api.HealthPassing),
			entry("10.0.0.2", "192.168.1.2", 8080, 1, api.HealthPassing, api.HealthCritical),
			entry("10.0.0.3", "192.168.1.3", 8080, 1, api.HealthWarning),
			entry("10.0.0.4", "", 9090, 2),
			entry("10.0.0.5", "192.168.1.5", 0, 1, api.HealthPassing),
		},
	}
	c, _ := newTestClient(t, f)

	instances, index, err := c.Fetch(context.Background(), discovery.Descriptor{Name: "billing", Service: "billing"}, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), index)
	assert.Equal(t, []balancer.Instance{
		{Address: "192.168.1.1", Port: 8080, Weight: 3},
		{Address: "10.0.0.4", Port: 9090, Weight: 2},
	}, instances)
}

func TestInstancesDedup(t *testing.T) {
	t.Parallel()
	instances, dropped := Instances([]*api.ServiceEntry{
		entry("n1", "10.1.0.1", 80, 1),
		entry("n2", "10.1.0.2", 80, 1),
		entry("n3", "10.1.0.1", 80, 7),
		nil,
	})
	assert.Equal(t, 1, dropped)
	assert.Equal(t, []balancer.Instance{
		{Address: "10.1.0.1", Port: 80, Weight: 7},
		{Address: "10.1.0.2", Port: 80, Weight: 1},
	}, instances)
}

func TestInstancesEmptyIsNotAnError(t *testing.T) {
	t.Parallel()
	f := &fakeConsul{index: "3", leader: "true", body: "[]"}
	c, _ := newTestClient(t, f)

	instances, index, err := c.Fetch(context.Background(), discovery.Descriptor{Name: "billing", Service: "billing"}, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), index)
	assert.Empty(t, instances)
}

func TestFetchFailures(t *testing.T) {
	t.Parallel()
	desc := discovery.Descriptor{Name: "billing", Service: "billing"}
	tests := []struct {
		name string
		fake *fakeConsul
		err  error
		kind gErrors.Kind
	}{
		{
			name: "bad status",
			fake: &fakeConsul{index: "4", leader: "true", status: http.StatusInternalServerError, body: "boom"},
			err:  gErrors.ErrBadStatus,
			kind: gErrors.KindResponse,
		},
		{
			name: "forbidden",
			fake: &fakeConsul{index: "4", leader: "true", status: http.StatusForbidden, body: "ACL not found"},
			err:  gErrors.ErrBadStatus,
			kind: gErrors.KindResponse,
		},
		{
			name: "decode failure",
			fake: &fakeConsul{index: "4", leader: "true", body: "{not json"},
			err:  gErrors.ErrDecodeFailure,
			kind: gErrors.KindResponse,
		},
		{
			name: "leaderless",
			fake: &fakeConsul{index: "4", leader: "false", body: "[]"},
			err:  gErrors.ErrLeaderless,
			kind: gErrors.KindResponse,
		},
		{
			name: "missing index",
			fake: &fakeConsul{leader: "true", body: "[]"},
			err:  gErrors.ErrMissingIndex,
			kind: gErrors.KindResponse,
		},
		{
			name: "malformed index",
			fake: &fakeConsul{index: "abc", leader: "true", body: "[]"},
			err:  gErrors.ErrMissingIndex,
			kind: gErrors.KindResponse,
		},
		{
			name: "no leader header",
			fake: &fakeConsul{index: "4", body: "[]"},
			err:  gErrors.ErrLeaderless,
			kind: gErrors.KindResponse,
		},
		{
			name: "leaderless before bad index",
			fake: &fakeConsul{index: "abc", leader: "false", body: "[]"},
			err:  gErrors.ErrLeaderless,
			kind: gErrors.KindResponse,
		},
		{
			name: "decode before leaderless",
			fake: &fakeConsul{leader: "false", body: "{not json"},
			err:  gErrors.ErrDecodeFailure,
			kind: gErrors.KindResponse,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, _ := newTestClient(t, tt.fake)
			instances, index, err := c.Fetch(context.Background(), desc, 11)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.kind, gErrors.KindOf(err))
			assert.Nil(t, instances)
			assert.Zero(t, index)
		})
	}
}

func TestFetchTransportFailure(t *testing.T) {
	t.Parallel()
	c, srv := newTestClient(t, &fakeConsul{index: "1", leader: "true"})
	srv.Close()

	_, _, err := c.Fetch(context.Background(), discovery.Descriptor{Name: "billing", Service: "billing"}, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, gErrors.ErrTransport)
	assert.True(t, gErrors.Retryable(err))
	var ue *url.Error
	assert.ErrorAs(t, err, &ue)
}

func TestFetchCancelled(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(t, &fakeConsul{index: "1", leader: "true"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := c.Fetch(ctx, discovery.Descriptor{Name: "billing", Service: "billing"}, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, gErrors.ErrTransport)
	assert.ErrorIs(t, err, context.Canceled)
}
