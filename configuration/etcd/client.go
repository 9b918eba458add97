package etcd

import (
	"context"
	"strings"

	"github.com/hulining/consul-balancer/configuration"
	"github.com/hulining/consul-balancer/cores/env"

	"github.com/pkg/errors"
	clientv3 "go.etcd.io/etcd/client/v3"
)

type ConfigClient struct {
	ctx    context.Context
	cli    *clientv3.Client
	format string
	prefix string
}

// NewConfigClient key为 <prefix>/<env>/<name>
func NewConfigClient(ctx context.Context, cli *clientv3.Client, prefix string, format string) *ConfigClient {
	return &ConfigClient{
		ctx:    ctx,
		cli:    cli,
		format: format,
		prefix: strings.TrimRight(prefix, "/"),
	}
}

func (cc *ConfigClient) Key(name string) string {
	return cc.prefix + "/" + env.GetRunEnv() + "/" + strings.TrimLeft(name, "/")
}

func (cc *ConfigClient) GetConfig(name string, v interface{}) error {
	key := cc.Key(name)
	resp, err := cc.cli.Get(cc.ctx, key)
	if err != nil {
		return errors.WithMessagef(err, "get etcd config %s", key)
	}
	if len(resp.Kvs) == 0 {
		return errors.Errorf("etcd config %s not found", key)
	}
	return configuration.Unmarshal(cc.format, resp.Kvs[0].Value, v)
}
