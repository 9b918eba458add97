package nacos

import (
	"strings"

	"github.com/hulining/consul-balancer/configuration"
	"github.com/hulining/consul-balancer/cores/env"

	"github.com/nacos-group/nacos-sdk-go/clients/config_client"
	"github.com/nacos-group/nacos-sdk-go/vo"
	"github.com/pkg/errors"
)

type ConfigClient struct {
	cli    config_client.IConfigClient
	format string
}

func NewConfigClient(cli config_client.IConfigClient, format string) *ConfigClient {
	return &ConfigClient{
		cli:    cli,
		format: format,
	}
}

func configType(format string) vo.ConfigType {
	switch strings.ToLower(format) {
	case configuration.FormatYaml, "yml":
		return vo.YAML
	case configuration.FormatXml:
		return vo.XML
	default:
		return vo.JSON
	}
}

// GetConfig group为当前运行环境
func (cc *ConfigClient) GetConfig(name string, v interface{}) error {
	content, err := cc.cli.GetConfig(vo.ConfigParam{
		DataId: name,
		Group:  env.GetRunEnv(),
		Type:   configType(cc.format),
	})
	if err != nil {
		return errors.WithMessagef(err, "get nacos config %s", name)
	}
	return configuration.Unmarshal(cc.format, []byte(content), v)
}
