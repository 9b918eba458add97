package redis

import "time"

const (
	defaultDialTimeout  = 5  // default: 5s
	defaultReadTimeout  = 3  // default: 3s
	defaultWriteTimeout = 3  // default: 3s
	defaultRetry        = 3  // 默认重试次数
	defaultPoolSize     = 10 // 只用于选主 连接数很小
)

const (
	defaultMasterSuffix = "_master"
	defaultLockExpiry   = 8 * time.Second
)

const (
	typeSingleton = "singleton" // 标准模式
	typeSentinel  = "sentinel"  // 哨兵模式
	typeCluster   = "cluster"   // 集群模式
)
