package nacos

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/hulining/consul-balancer/cores/logger"

	"github.com/nacos-group/nacos-sdk-go/clients"
	"github.com/nacos-group/nacos-sdk-go/clients/config_client"
	"github.com/nacos-group/nacos-sdk-go/common/constant"
	"github.com/nacos-group/nacos-sdk-go/vo"
	"github.com/pkg/errors"
)

const (
	_defaultContextPath = "/nacos"
	_timeoutMs          = 5000
)

type Option func(*options)

type options struct {
	logger     *logger.Logger
	accessKey  string
	secretKey  string
	serverPath string
	userName   string
	password   string
}

// WithLogger sdk日志输出到框架日志
func WithLogger(logger *logger.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithAccessKey access-key 鉴权
func WithAccessKey(accessKey string) Option {
	return func(o *options) {
		o.accessKey = accessKey
	}
}

// WithSecretKey secret-key 鉴权
func WithSecretKey(secretKey string) Option {
	return func(o *options) {
		o.secretKey = secretKey
	}
}

// WithServerPath nacos server地址 例如 http://127.0.0.1:8848/nacos
func WithServerPath(path string) Option {
	return func(o *options) {
		o.serverPath = path
	}
}

func WithUserName(userName string) Option {
	return func(o *options) {
		o.userName = userName
	}
}

func WithPassword(password string) Option {
	return func(o *options) {
		o.password = password
	}
}

// ServerConfig 解析 scheme://host:port/path
func ServerConfig(path string) (constant.ServerConfig, error) {
	us, err := url.Parse(path)
	if err != nil {
		return constant.ServerConfig{}, errors.WithMessage(err, "nacos-server path")
	}
	if us.Scheme == "" || us.Host == "" {
		return constant.ServerConfig{}, errors.Errorf("nacos-server path %q error", path)
	}
	port, err := strconv.ParseUint(us.Port(), 10, 64)
	if err != nil {
		return constant.ServerConfig{}, errors.Errorf("nacos-server host %q error", us.Host)
	}
	contextPath := strings.TrimRight(us.Path, "/")
	if contextPath == "" {
		contextPath = _defaultContextPath
	}
	return constant.ServerConfig{
		Scheme:      us.Scheme,
		IpAddr:      us.Hostname(),
		Port:        port,
		ContextPath: contextPath,
	}, nil
}

func NewClient(namespace string, appName string, opts ...Option) (config_client.IConfigClient, error) {
	o := &options{
		userName: "nacos",
		password: "nacos",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	sc, err := ServerConfig(o.serverPath)
	if err != nil {
		return nil, err
	}
	clientConfig := constant.ClientConfig{
		TimeoutMs:           _timeoutMs,
		NamespaceId:         namespace,
		AppName:             appName,
		NotLoadCacheAtStart: true,
		AccessKey:           o.accessKey,
		SecretKey:           o.secretKey,
		Username:            o.userName,
		Password:            o.password,
	}
	if o.logger != nil {
		clientConfig.CustomLogger = &Logger{
			Logger: o.logger,
		}
	}
	cli, err := clients.NewConfigClient(vo.NacosClientParam{
		ClientConfig:  &clientConfig,
		ServerConfigs: []constant.ServerConfig{sc},
	})
	if err != nil {
		return nil, errors.WithMessage(err, "init nacos config client")
	}
	return cli, nil
}
