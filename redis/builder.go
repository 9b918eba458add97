package redis

import (
	"time"

	redisgo "github.com/go-redis/redis/v8"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v8"
)

type Builder func(c *Client)

var (
	builders = map[string]Builder{
		typeSingleton: func(c *Client) {
			c.use(redisgo.NewClient(c.universal().Simple()))
		},
		typeSentinel: func(c *Client) {
			c.use(redisgo.NewFailoverClient(c.universal().Failover()))
		},
		typeCluster: func(c *Client) {
			c.use(redisgo.NewClusterClient(c.universal().Cluster()))
		},
	}
)

// universal 三种模式共用的连接参数 哨兵模式master名称缺省为 redis_master
func (c *Client) universal() *redisgo.UniversalOptions {
	uo := &redisgo.UniversalOptions{
		Addrs:        c.addrs,
		DB:           c.db,
		MaxRetries:   c.retry,
		DialTimeout:  defaultDialTimeout * time.Second,
		ReadTimeout:  time.Duration(c.readTimeout) * time.Second,
		WriteTimeout: time.Duration(c.writeTimeout) * time.Second,
		PoolSize:     c.poolSize,
		Username:     c.username,
		Password:     c.password,
	}
	if c.model == typeSentinel {
		uo.MasterName = c.masterName
		if uo.MasterName == "" {
			uo.MasterName = "redis" + defaultMasterSuffix
		}
	}
	return uo
}

// use 锁和命令共用同一个连接池
func (c *Client) use(cmd redisgo.UniversalClient) {
	c.IRedisCmd = cmd
	c.rs = redsync.New(goredis.NewPool(cmd))
}
