package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hulining/consul-balancer/cores/discovery"
	"github.com/hulining/consul-balancer/cores/env"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYaml = `
name: balancer
consul:
  addr: 127.0.0.1:8500
  token: file-token
  wait: 30s
watch:
  retryDelay: 2s
balancer: random
gate:
  used: never
proxy:
  addr: :8080
services:
  - billing
  - name: ledger
    service: ledger-v1
    tag: blue
    nodeMeta:
      rack: r1
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "balancer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv(env.BalancerConfigSource, "")
	t.Setenv(env.BalancerConfigFormat, "")
	t.Setenv(env.BalancerConsulAddr, "")
	t.Setenv(env.BalancerConsulToken, "")

	sc, err := Load(context.Background(), WithPath(writeConfig(t, sampleYaml)))
	require.NoError(t, err)

	assert.Equal(t, "balancer", sc.Name)
	assert.Equal(t, "127.0.0.1:8500", sc.Consul.Addr)
	assert.Equal(t, "file-token", sc.Consul.Token)
	wait, err := sc.Consul.WaitTime(time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, wait)

	retry, pacing, err := sc.Watch.Delays(time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, retry)
	assert.Equal(t, time.Second, pacing)

	assert.Equal(t, GateNever, sc.GateUsed())
	require.Len(t, sc.Services, 2)
	assert.Equal(t, "billing", sc.Services[0].Name)
	assert.Equal(t, "ledger-v1", sc.Services[1].Service)
	assert.Equal(t, map[string]string{"rack": "r1"}, sc.Services[1].NodeMeta)
	assert.Len(t, sc.ServiceList(), 2)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(env.BalancerConfigSource, "file")
	t.Setenv(env.BalancerConfigPath, writeConfig(t, sampleYaml))
	t.Setenv(env.BalancerConsulAddr, "10.0.0.1:8500")
	t.Setenv(env.BalancerConsulToken, "env-token")

	sc, err := Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1:8500", sc.Consul.Addr)
	assert.Equal(t, "env-token", sc.Consul.Token)
}

func TestLoadUnknownSource(t *testing.T) {
	t.Setenv(env.BalancerConfigSource, "zookeeper")
	_, err := Load(context.Background())
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *ServiceConfig {
		return &ServiceConfig{
			Consul:   &ConsulConfig{Addr: "127.0.0.1:8500"},
			Services: nil,
		}
	}
	cases := []struct {
		name   string
		mutate func(*ServiceConfig)
		ok     bool
	}{
		{"no services", func(*ServiceConfig) {}, false},
		{"minimal", func(c *ServiceConfig) { c.Services = append(c.Services, sampleDesc()) }, true},
		{"no consul", func(c *ServiceConfig) { c.Consul = nil; c.Services = append(c.Services, sampleDesc()) }, false},
		{"bad wait", func(c *ServiceConfig) { c.Consul.Wait = "soon"; c.Services = append(c.Services, sampleDesc()) }, false},
		{"negative retry", func(c *ServiceConfig) {
			c.Watch = &WatchConfig{RetryDelay: "-1s"}
			c.Services = append(c.Services, sampleDesc())
		}, false},
		{"unknown balancer", func(c *ServiceConfig) { c.Balancer = "p2c"; c.Services = append(c.Services, sampleDesc()) }, false},
		{"unknown gate", func(c *ServiceConfig) {
			c.Gate = &GateConfig{Used: "zk"}
			c.Services = append(c.Services, sampleDesc())
		}, false},
		{"redis gate without redis", func(c *ServiceConfig) {
			c.Gate = &GateConfig{Used: GateRedis}
			c.Services = append(c.Services, sampleDesc())
		}, false},
		{"etcd gate", func(c *ServiceConfig) {
			c.Gate = &GateConfig{Used: GateEtcd}
			c.Etcd = &EtcdConfig{Endpoints: "127.0.0.1:2379"}
			c.Services = append(c.Services, sampleDesc())
		}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := base()
			tc.mutate(c)
			err := c.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func sampleDesc() discovery.Descriptor {
	return discovery.Descriptor{Name: "billing"}
}
