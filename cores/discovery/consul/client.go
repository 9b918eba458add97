package consul

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strconv"
	"time"

	gConsul "github.com/hulining/consul-balancer/consul"
	"github.com/hulining/consul-balancer/cores/balancer"
	"github.com/hulining/consul-balancer/cores/discovery"
	gErrors "github.com/hulining/consul-balancer/cores/errors"
	"github.com/hulining/consul-balancer/logger"

	"github.com/hashicorp/consul/api"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
)

// Fetcher 一次blocking query 返回过滤后的实例和新的index
type Fetcher interface {
	Fetch(ctx context.Context, desc discovery.Descriptor, lastIndex uint64) ([]balancer.Instance, uint64, error)
}

type Option func(*Client)

// WaitTime blocking query等待时间 默认5分钟
func WaitTime(wait time.Duration) Option {
	return func(c *Client) {
		if wait > 0 {
			c.wait = wait
		}
	}
}

type Client struct {
	cli  *api.Client
	wait time.Duration
}

func NewClient(cli *api.Client, opts ...Option) *Client {
	c := &Client{
		cli:  cli,
		wait: gConsul.DefaultWaitTime,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Fetch 查询 /v1/health/service/<service>
// 校验顺序: 状态码 -> body -> known leader -> index, 第一个失败即返回
func (c *Client) Fetch(ctx context.Context, desc discovery.Descriptor, lastIndex uint64) ([]balancer.Instance, uint64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "consul.health.service")
	defer span.Finish()
	span.SetTag("service", desc.Service)
	span.SetTag("index", lastIndex)
	if desc.Datacenter != "" {
		span.SetTag("datacenter", desc.Datacenter)
	}

	ctx, cancel := context.WithTimeout(ctx, gConsul.RequestTimeout(c.wait))
	defer cancel()
	raw := &gConsul.Response{}
	q := &api.QueryOptions{
		WaitIndex:  lastIndex,
		WaitTime:   c.wait,
		Datacenter: desc.Datacenter,
		Near:       desc.Near,
		NodeMeta:   desc.NodeMeta,
		Token:      desc.Token,
	}
	entries, meta, err := c.cli.Health().Service(desc.Service, desc.Tag, false, q.WithContext(gConsul.WithResponse(ctx, raw)))
	if err == nil {
		meta, err = queryMeta(raw, meta)
	}
	if err != nil {
		err = classify(err)
		ext.Error.Set(span, true)
		span.SetTag("error.kind", gErrors.KindOf(err).String())
		return nil, 0, err
	}
	instances, dropped := Instances(entries)
	if dropped > 0 {
		logger.Debug(ctx, "dropped %d of %d health records, index:%d", dropped, len(entries), meta.LastIndex)
	}
	span.SetTag("instances", len(instances))
	return instances, meta.LastIndex, nil
}

// queryMeta 状态码和body已由consul/api校验, 这里按顺序校验 known leader 和 index
// 客户端不是 NewConsulClient 创建时没有原始响应头, 退回consul/api的解析结果
func queryMeta(raw *gConsul.Response, meta *api.QueryMeta) (*api.QueryMeta, error) {
	header, ok := raw.Header()
	if !ok {
		if meta == nil || !meta.KnownLeader {
			return nil, gErrors.ErrLeaderless
		}
		if meta.LastIndex == 0 {
			return nil, gErrors.ErrMissingIndex
		}
		return meta, nil
	}
	known, err := strconv.ParseBool(header.Get("X-Consul-KnownLeader"))
	if err != nil || !known {
		return nil, gErrors.ErrLeaderless
	}
	value := header.Get("X-Consul-Index")
	if value == "" {
		return nil, gErrors.ErrMissingIndex
	}
	index, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return nil, gErrors.Wrap(gErrors.ErrMissingIndex, err)
	}
	out := &api.QueryMeta{}
	if meta != nil {
		*out = *meta
	}
	out.KnownLeader = true
	out.LastIndex = index
	return out, nil
}

func classify(err error) error {
	var se api.StatusError
	if errors.As(err, &se) {
		return gErrors.Wrapf(gErrors.ErrBadStatus, "status %d: %s", se.Code, se.Body)
	}
	var pse *api.StatusError
	if errors.As(err, &pse) {
		return gErrors.Wrapf(gErrors.ErrBadStatus, "status %d: %s", pse.Code, pse.Body)
	}
	var ge *gErrors.Error
	if errors.As(err, &ge) {
		return err
	}
	var ue *url.Error
	var ne net.Error
	if errors.As(err, &ue) || errors.As(err, &ne) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return gErrors.Wrap(gErrors.ErrTransport, err)
	}
	return gErrors.Wrap(gErrors.ErrDecodeFailure, err)
}

// Instances 只保留所有check都为passing的记录, 没有check的记录视为健康
// 地址优先使用服务地址, 为空时使用节点地址; 相同address:port后者覆盖前者
func Instances(entries []*api.ServiceEntry) ([]balancer.Instance, int) {
	var out []balancer.Instance
	pos := make(map[string]int, len(entries))
	dropped := 0
	for _, entry := range entries {
		if entry == nil || entry.Service == nil || !passing(entry.Checks) {
			dropped++
			continue
		}
		address := entry.Service.Address
		if address == "" && entry.Node != nil {
			address = entry.Node.Address
		}
		if address == "" || entry.Service.Port < 1 || entry.Service.Port > 65535 {
			dropped++
			continue
		}
		ins := balancer.Instance{
			Address: address,
			Port:    entry.Service.Port,
			Weight:  entry.Service.Weights.Passing,
		}
		if ins.Weight < 0 {
			ins.Weight = 0
		}
		key := ins.String()
		if i, has := pos[key]; has {
			out[i] = ins
			continue
		}
		pos[key] = len(out)
		out = append(out, ins)
	}
	return out, dropped
}

func passing(checks api.HealthChecks) bool {
	for _, check := range checks {
		if check == nil {
			continue
		}
		if check.Status != api.HealthPassing {
			return false
		}
	}
	return true
}
