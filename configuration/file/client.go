package file

import (
	"os"

	"github.com/hulining/consul-balancer/configuration"

	"github.com/pkg/errors"
)

type ConfigClient struct {
	format string
}

func NewConfigClient(format string) *ConfigClient {
	return &ConfigClient{
		format: format,
	}
}

func (cc *ConfigClient) GetConfig(name string, v interface{}) error {
	bs, err := os.ReadFile(name)
	if err != nil {
		return errors.WithMessagef(err, "read config file %s", name)
	}
	return configuration.Unmarshal(cc.format, bs, v)
}
