package nacos

import (
	"testing"

	"github.com/hulining/consul-balancer/cores/env"

	"github.com/nacos-group/nacos-sdk-go/clients/config_client"
	"github.com/nacos-group/nacos-sdk-go/vo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConfigClient struct {
	config_client.IConfigClient
	content string
	param   vo.ConfigParam
}

func (f *fakeConfigClient) GetConfig(param vo.ConfigParam) (string, error) {
	f.param = param
	return f.content, nil
}

func TestGetConfigUsesRunEnvGroup(t *testing.T) {
	t.Setenv(env.BalancerEnv, "Online")
	fake := &fakeConfigClient{content: "consul:\n  addr: http://consul:8500\n"}

	var v struct {
		Consul struct {
			Addr string `yaml:"addr"`
		} `yaml:"consul"`
	}
	require.NoError(t, NewConfigClient(fake, "yaml").GetConfig("consul-balancer.config", &v))
	assert.Equal(t, "http://consul:8500", v.Consul.Addr)
	assert.Equal(t, "consul-balancer.config", fake.param.DataId)
	assert.Equal(t, "online", fake.param.Group)
	assert.Equal(t, vo.YAML, fake.param.Type)
}

func TestGetConfigEmpty(t *testing.T) {
	var v map[string]interface{}
	assert.Error(t, NewConfigClient(&fakeConfigClient{}, "json").GetConfig("missing", &v))
}
