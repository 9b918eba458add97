package config

import (
	"context"
	"strings"
	"time"

	"github.com/hulining/consul-balancer/configuration"
	cfgEtcd "github.com/hulining/consul-balancer/configuration/etcd"
	"github.com/hulining/consul-balancer/configuration/file"
	cfgNacos "github.com/hulining/consul-balancer/configuration/nacos"
	"github.com/hulining/consul-balancer/cores/balancer/random"
	"github.com/hulining/consul-balancer/cores/balancer/wrr"
	"github.com/hulining/consul-balancer/cores/discovery"
	"github.com/hulining/consul-balancer/cores/env"
	"github.com/hulining/consul-balancer/etcd"
	"github.com/hulining/consul-balancer/logger"
	"github.com/hulining/consul-balancer/nacos"

	"github.com/pkg/errors"
)

// LogConfig 服务日志配置
type LogConfig struct {
	// 日志分割方式 day/hour
	Rotation string `yaml:"rotation" json:"rotation" xml:"rotation"`
	// 日志保存天数
	SaveDays int `yaml:"saveDays" json:"saveDays" xml:"saveDays"`
	// 日志级别
	Level string `yaml:"level" json:"level" xml:"level"`
	// 日志格式 json/console
	Format string `yaml:"format" json:"format" xml:"format"`
	// 输出到标准输出 不生成文件
	Stdout bool `yaml:"stdout" json:"stdout" xml:"stdout"`
}

// ConsulConfig 服务发现后端
type ConsulConfig struct {
	// http地址 多个','分割
	Addr string `yaml:"addr" json:"addr" xml:"addr"`
	// 默认acl token 服务级token优先
	Token string `yaml:"token" json:"token" xml:"token"`
	// 默认数据中心
	Datacenter string `yaml:"datacenter" json:"datacenter" xml:"datacenter"`
	// blocking query等待时间 默认5m
	Wait string `yaml:"wait" json:"wait" xml:"wait"`
}

// WatchConfig watch循环节奏
type WatchConfig struct {
	// 失败后重试间隔 默认1s
	RetryDelay string `yaml:"retryDelay" json:"retryDelay" xml:"retryDelay"`
	// 成功后到下一次轮询的间隔 默认1s
	PacingDelay string `yaml:"pacingDelay" json:"pacingDelay" xml:"pacingDelay"`
}

// GateConfig 多实例部署时只有一个实例运行watcher
type GateConfig struct {
	// always/never/redis/etcd 默认always
	Used string `yaml:"used" json:"used" xml:"used"`
	// 锁或选举key
	Key string `yaml:"key" json:"key" xml:"key"`
	// 锁过期/租约时间 单位秒
	TTL int `yaml:"ttl" json:"ttl" xml:"ttl"`
}

// RedisConfig gate为redis时使用
type RedisConfig struct {
	// 模式 singleton/sentinel/cluster 默认singleton
	Model string `yaml:"model" json:"model" xml:"model"`
	// 地址 多地址则用','分割
	Addr string `yaml:"addr" json:"addr" xml:"addr"`
	// 哨兵模式master名称
	MasterName string `yaml:"masterName" json:"masterName" xml:"masterName"`
	// redis db
	DataBase int `yaml:"database" json:"database" xml:"database"`
	// 最大重试次数
	MaxRetry int `yaml:"maxRetry" json:"maxRetry" xml:"maxRetry"`
	// 命令读超时，默认3(秒单位)
	ReadTimeout int `yaml:"readTimeout" json:"readTimeout" xml:"readTimeout"`
	// 命令写超时，默认3(秒单位)
	WriteTimeout int `yaml:"writeTimeout" json:"writeTimeout" xml:"writeTimeout"`
	// 连接池大小
	PoolSize int    `yaml:"poolSize" json:"poolSize" xml:"poolSize"`
	Username string `yaml:"username" json:"username" xml:"username"`
	Password string `yaml:"password" json:"password" xml:"password"`
}

// EtcdConfig gate为etcd时使用
type EtcdConfig struct {
	// 多个','分割
	Endpoints   string `yaml:"endpoints" json:"endpoints" xml:"endpoints"`
	Username    string `yaml:"username" json:"username" xml:"username"`
	Password    string `yaml:"password" json:"password" xml:"password"`
	DialTimeout string `yaml:"dialTimeout" json:"dialTimeout" xml:"dialTimeout"`
}

// AdminConfig /metrics 和 pprof
type AdminConfig struct {
	Addr string `yaml:"addr" json:"addr" xml:"addr"`
}

// ProxyConfig 按路径首段分发的反向代理
type ProxyConfig struct {
	Addr string `yaml:"addr" json:"addr" xml:"addr"`
	// 是否支持h2c
	H2C bool `yaml:"h2c" json:"h2c" xml:"h2c"`
	// 转发超时
	Timeout string `yaml:"timeout" json:"timeout" xml:"timeout"`
}

type ServiceConfig struct {
	// 进程名 用于tracer/sentry
	Name string `yaml:"name" json:"name" xml:"name"`
	// 日志配置
	Log *LogConfig `yaml:"log" json:"log" xml:"log"`
	// consul配置
	Consul *ConsulConfig `yaml:"consul" json:"consul" xml:"consul"`
	// watch配置
	Watch *WatchConfig `yaml:"watch" json:"watch" xml:"watch"`
	// 选择算法 wrr/random 默认wrr
	Balancer string `yaml:"balancer" json:"balancer" xml:"balancer"`
	// 执行权配置
	Gate  *GateConfig  `yaml:"gate" json:"gate" xml:"gate"`
	Redis *RedisConfig `yaml:"redis" json:"redis" xml:"redis"`
	Etcd  *EtcdConfig  `yaml:"etcd" json:"etcd" xml:"etcd"`
	Admin *AdminConfig `yaml:"admin" json:"admin" xml:"admin"`
	Proxy *ProxyConfig `yaml:"proxy" json:"proxy" xml:"proxy"`
	// 监听的服务 服务名或完整描述
	Services []discovery.Descriptor `yaml:"services" json:"services" xml:"services>service"`
}

const (
	GateAlways = "always"
	GateNever  = "never"
	GateRedis  = "redis"
	GateEtcd   = "etcd"
)

var (
	balancers = map[string]struct{}{
		"":          {},
		wrr.Name:    {},
		random.Name: {},
	}
	gates = map[string]struct{}{
		"":         {},
		GateAlways: {},
		GateNever:  {},
		GateRedis:  {},
		GateEtcd:   {},
	}
)

func duration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.WithMessagef(err, "duration %q", s)
	}
	if d < 0 {
		return 0, errors.Errorf("duration %q is negative", s)
	}
	return d, nil
}

func (c *ConsulConfig) WaitTime(def time.Duration) (time.Duration, error) {
	return duration(c.Wait, def)
}

func (c *WatchConfig) Delays(def time.Duration) (retry time.Duration, pacing time.Duration, err error) {
	if c == nil {
		return def, def, nil
	}
	if retry, err = duration(c.RetryDelay, def); err != nil {
		return 0, 0, err
	}
	if pacing, err = duration(c.PacingDelay, def); err != nil {
		return 0, 0, err
	}
	return retry, pacing, nil
}

// GateUsed 未配置时为always
func (c *ServiceConfig) GateUsed() string {
	if c.Gate == nil || c.Gate.Used == "" {
		return GateAlways
	}
	return strings.ToLower(c.Gate.Used)
}

// Validate 只做结构校验 单个服务描述的校验在supervisor中完成
func (c *ServiceConfig) Validate() error {
	if c.Consul == nil || strings.TrimSpace(c.Consul.Addr) == "" {
		return errors.New("consul addr undefined")
	}
	if _, err := c.Consul.WaitTime(0); err != nil {
		return errors.WithMessage(err, "consul wait")
	}
	if _, _, err := c.Watch.Delays(0); err != nil {
		return errors.WithMessage(err, "watch")
	}
	if _, has := balancers[strings.ToLower(c.Balancer)]; !has {
		return errors.Errorf("balancer %q not support", c.Balancer)
	}
	used := c.GateUsed()
	if _, has := gates[used]; !has {
		return errors.Errorf("gate %q not support", used)
	}
	switch used {
	case GateRedis:
		if c.Redis == nil || c.Redis.Addr == "" {
			return errors.New("gate redis but redis addr undefined")
		}
	case GateEtcd:
		if c.Etcd == nil || c.Etcd.Endpoints == "" {
			return errors.New("gate etcd but etcd endpoints undefined")
		}
	}
	if c.Proxy != nil {
		if _, err := duration(c.Proxy.Timeout, 0); err != nil {
			return errors.WithMessage(err, "proxy timeout")
		}
	}
	if len(c.Services) == 0 {
		return errors.New("services undefined")
	}
	return nil
}

// ServiceList supervisor.Start 的入参
func (c *ServiceConfig) ServiceList() []interface{} {
	out := make([]interface{}, 0, len(c.Services))
	for _, d := range c.Services {
		out = append(out, d)
	}
	return out
}

/////////////////////////////////////////////////

const (
	defaultConfigSource = "file"
	defaultConfigFormat = configuration.FormatYaml
	defaultConfigPath   = "./conf/balancer.yaml"
	defaultEtcdPrefix   = "/consul-balancer"
	defaultNacosDataId  = "consul-balancer.config"
	defaultEtcdName     = "config"
)

type Option func(*option)

type option struct {
	path string
}

// WithPath file为文件路径 etcd为key nacos为dataId
func WithPath(path string) Option {
	return func(o *option) {
		o.path = path
	}
}

// Load 读取配置 env覆盖 校验
func Load(ctx context.Context, opts ...Option) (*ServiceConfig, error) {
	o := option{
		path: env.GetEnv(env.BalancerConfigPath),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	source := strings.ToLower(env.GetEnv(env.BalancerConfigSource))
	if source == "" {
		source = defaultConfigSource
	}
	format := strings.ToLower(env.GetEnv(env.BalancerConfigFormat))
	if format == "" {
		format = defaultConfigFormat
	}

	var (
		cfg  configuration.IConfig
		name = o.path
	)
	switch source {
	case "file":
		cfg = file.NewConfigClient(format)
		if name == "" {
			name = defaultConfigPath
		}
	case "etcd":
		eps, userName, password, dialTimeout := env.GetEtcdEnv()
		if eps == "" {
			return nil, errors.New("etcd-server config center endpoints undefined")
		}
		cli, err := etcd.NewEtcdClient(
			etcd.Endpoints(eps),
			etcd.Username(userName),
			etcd.Password(password),
			etcd.DialTimeout(dialTimeout),
		)
		if err != nil {
			return nil, err
		}
		defer func() {
			_ = cli.Close()
		}()
		cfg = cfgEtcd.NewConfigClient(ctx, cli, defaultEtcdPrefix, format)
		if name == "" {
			name = defaultEtcdName
		}
	case "nacos":
		path, namespace, accessKey, secretKey, userName, password := env.GetNacosEnv()
		if path == "" {
			return nil, errors.New("nacos-server config center path undefined")
		}
		ncopts := []nacos.Option{
			nacos.WithLogger(logger.GetGen()),
			nacos.WithServerPath(path),
			nacos.WithAccessKey(accessKey),
			nacos.WithSecretKey(secretKey),
		}
		if userName != "" {
			ncopts = append(ncopts, nacos.WithUserName(userName))
		}
		if password != "" {
			ncopts = append(ncopts, nacos.WithPassword(password))
		}
		cli, err := nacos.NewClient(namespace, "consul-balancer", ncopts...)
		if err != nil {
			return nil, err
		}
		cfg = cfgNacos.NewConfigClient(cli, format)
		if name == "" {
			name = defaultNacosDataId
		}
	default:
		return nil, errors.Errorf("config source %q not support", source)
	}

	var sc ServiceConfig
	if err := cfg.GetConfig(name, &sc); err != nil {
		return nil, err
	}
	sc.applyEnv()
	if err := sc.Validate(); err != nil {
		return nil, errors.WithMessagef(err, "config %s:%s", source, name)
	}
	return &sc, nil
}

// applyEnv 环境变量优先于配置
func (c *ServiceConfig) applyEnv() {
	if addr := env.GetEnv(env.BalancerConsulAddr); addr != "" {
		if c.Consul == nil {
			c.Consul = &ConsulConfig{}
		}
		c.Consul.Addr = addr
	}
	if token := env.GetEnv(env.BalancerConsulToken); token != "" && c.Consul != nil {
		c.Consul.Token = token
	}
	if eps, userName, password, dialTimeout := env.GetEtcdEnv(); eps != "" && c.GateUsed() == GateEtcd {
		c.Etcd = &EtcdConfig{
			Endpoints:   eps,
			Username:    userName,
			Password:    password,
			DialTimeout: dialTimeout,
		}
	}
}
