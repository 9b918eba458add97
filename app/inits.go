package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hulining/consul-balancer/app/config"
	"github.com/hulining/consul-balancer/cores/balancer"
	"github.com/hulining/consul-balancer/cores/balancer/random"
	"github.com/hulining/consul-balancer/cores/balancer/wrr"
	"github.com/hulining/consul-balancer/cores/env"
	"github.com/hulining/consul-balancer/cores/logger"
	"github.com/hulining/consul-balancer/cores/supervisor/gate"
	etcdGate "github.com/hulining/consul-balancer/cores/supervisor/gate/etcd"
	redisGate "github.com/hulining/consul-balancer/cores/supervisor/gate/redis"
	"github.com/hulining/consul-balancer/cores/tracing"
	"github.com/hulining/consul-balancer/cores/tracing/jaeger"
	"github.com/hulining/consul-balancer/etcd"
	gLog "github.com/hulining/consul-balancer/logger"
	"github.com/hulining/consul-balancer/redis"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const _defaultGateKey = "consul-balancer/leader"

func initLogger(cfg *config.LogConfig) {
	if cfg == nil {
		gLog.InitLogger("")
		return
	}
	var opts []logger.Option
	// 设置日志路径
	if env.GetEnv(env.BalancerLogPath) != "" {
		opts = append(opts, logger.SetPath(env.GetEnv(env.BalancerLogPath)))
	}
	// 设置日志有效期
	if cfg.SaveDays > 0 {
		opts = append(opts, logger.SetSaveDays(cfg.SaveDays))
	}
	// 设置日志分割
	if strings.ToLower(cfg.Rotation) == "hour" {
		opts = append(opts, logger.SetRotation(logger.RotationHour))
	}
	// 设置格式
	if cfg.Format == logger.JsonFormat || cfg.Format == logger.ConsoleFormat {
		opts = append(opts, logger.SetFormat(cfg.Format))
	}
	if cfg.Stdout {
		opts = append(opts, logger.SetWriter(os.Stdout))
	}
	gLog.InitLogger(cfg.Level, opts...)
}

// initTracer 初始化失败时退化为nop 不影响watch
func initTracer(ctx context.Context, name string) tracing.Tracer {
	var opts []jaeger.Option
	if addr := env.GetEnv(env.BalancerJaegerAddr); addr != "" {
		opts = append(opts, jaeger.WithAddr(addr))
	}
	tracer, err := jaeger.NewTracer(name, opts...)
	if err != nil {
		gLog.Gen(ctx, "init tracer err:%v, use nop tracer", err)
		return tracing.Nop()
	}
	return tracer
}

func initBuilder(name string) balancer.Builder {
	if strings.ToLower(name) == random.Name {
		return random.NewBuilder()
	}
	return wrr.NewBuilder()
}

// identity 执行权持有者标识 便于排查哪个实例在运行watcher
func identity() string {
	host, _ := os.Hostname()
	u, _ := uuid.NewUUID()
	return fmt.Sprintf("%s-%s", host, u.String())
}

// initGate 返回的closer在退出时调用
func initGate(ctx context.Context, cfg *config.ServiceConfig) (gate.Gate, func(), error) {
	nop := func() {}
	key := _defaultGateKey
	ttl := 0
	if cfg.Gate != nil {
		if cfg.Gate.Key != "" {
			key = cfg.Gate.Key
		}
		ttl = cfg.Gate.TTL
	}
	switch cfg.GateUsed() {
	case config.GateNever:
		return gate.Never(), nop, nil
	case config.GateRedis:
		rc := cfg.Redis
		opts := []redis.Option{
			redis.Addrs(strings.Split(rc.Addr, ",")),
			redis.DB(rc.DataBase),
			redis.MasterName(rc.MasterName),
			redis.Username(rc.Username),
			redis.Password(rc.Password),
		}
		if rc.Model != "" {
			opts = append(opts, redis.Model(rc.Model))
		}
		if rc.MaxRetry > 0 {
			opts = append(opts, redis.Retry(rc.MaxRetry))
		}
		if rc.ReadTimeout > 0 {
			opts = append(opts, redis.ReadTimeout(rc.ReadTimeout))
		}
		if rc.WriteTimeout > 0 {
			opts = append(opts, redis.WriteTimeout(rc.WriteTimeout))
		}
		if rc.PoolSize > 0 {
			opts = append(opts, redis.PoolSize(rc.PoolSize))
		}
		cli, err := redis.NewClient(opts...)
		if err != nil {
			return nil, nop, errors.WithMessage(err, "init redis gate")
		}
		mutex := cli.NewMutex(key, time.Duration(ttl)*time.Second, identity())
		gLog.Gen(ctx, "gate redis, key:%s", key)
		return redisGate.New(mutex), func() {
			_ = cli.Close()
		}, nil
	case config.GateEtcd:
		ec := cfg.Etcd
		cli, err := etcd.NewEtcdClient(
			etcd.Endpoints(ec.Endpoints),
			etcd.Username(ec.Username),
			etcd.Password(ec.Password),
			etcd.DialTimeout(ec.DialTimeout),
		)
		if err != nil {
			return nil, nop, errors.WithMessage(err, "init etcd gate")
		}
		var opts []etcdGate.Option
		if ttl > 0 {
			opts = append(opts, etcdGate.TTL(ttl))
		}
		g, err := etcdGate.New(cli, "/"+strings.TrimLeft(key, "/"), identity(), opts...)
		if err != nil {
			_ = cli.Close()
			return nil, nop, err
		}
		gLog.Gen(ctx, "gate etcd, key:%s", key)
		return g, func() {
			_ = cli.Close()
		}, nil
	}
	return gate.Always(), nop, nil
}
