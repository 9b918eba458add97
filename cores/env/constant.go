package env

// 基础环境变量
// BALANCER_ENV 当前环境(testing/staging/online) 默认testing
// BALANCER_CONFIG_SOURCE 配置来源(file/etcd/nacos) 默认file
// BALANCER_CONFIG_FORMAT 配置格式(yaml/json/xml) 默认yaml
// BALANCER_CONFIG_PATH 配置路径 file场合为文件路径 etcd为key nacos为dataId
// BALANCER_LOG_PATH 日志路径 默认为"./log"
// BALANCER_METRIC_DISABLE 是否禁用监控 true为关闭 默认false
// --

const (
	BalancerEnv           = "BALANCER_ENV"
	BalancerConfigSource  = "BALANCER_CONFIG_SOURCE"
	BalancerConfigFormat  = "BALANCER_CONFIG_FORMAT"
	BalancerConfigPath    = "BALANCER_CONFIG_PATH"
	BalancerLogPath       = "BALANCER_LOG_PATH"
	BalancerMetricDisable = "BALANCER_METRIC_DISABLE"
)

// Consul相关环境变量 优先于配置文件
// BALANCER_CONSUL_HTTP_ADDR consul http地址 多个','分割 取第一个可用
// BALANCER_CONSUL_TOKEN acl token
// --

const (
	BalancerConsulAddr  = "BALANCER_CONSUL_HTTP_ADDR"
	BalancerConsulToken = "BALANCER_CONSUL_TOKEN"
)

// Nacos相关环境变量 配置来源为nacos时必要
// --

const (
	BalancerNacosServerPath = "BALANCER_NACOS_SERVER_PATH"
	BalancerNacosNamespace  = "BALANCER_NACOS_NAMESPACE"
	BalancerNacosAccess     = "BALANCER_NACOS_ACCESS"
	BalancerNacosSecret     = "BALANCER_NACOS_SECRET"
	BalancerNacosUsername   = "BALANCER_NACOS_USERNAME"
	BalancerNacosPassword   = "BALANCER_NACOS_PASSWORD"
)

// Etcd相关环境变量 配置来源为etcd时必要
// BALANCER_ETCD_DIAL_TIMEOUT 超时时间，默认10s
// --

const (
	BalancerEtcdEndpoints   = "BALANCER_ETCD_ENDPOINTS"
	BalancerEtcdUsername    = "BALANCER_ETCD_USERNAME"
	BalancerEtcdPassword    = "BALANCER_ETCD_PASSWORD"
	BalancerEtcdDialTimeout = "BALANCER_ETCD_DIAL_TIMEOUT"
)

// 链路追踪与错误报警 可选
// --

const (
	BalancerJaegerAddr = "BALANCER_JAEGER_ADDR"
	BalancerSentryDsn  = "BALANCER_SENTRY_DSN"
)
