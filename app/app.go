package app

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hulining/consul-balancer/app/config"
	"github.com/hulining/consul-balancer/app/proxy"
	gConsul "github.com/hulining/consul-balancer/consul"
	"github.com/hulining/consul-balancer/cores/discovery/consul"
	"github.com/hulining/consul-balancer/cores/env"
	httpClient "github.com/hulining/consul-balancer/cores/http/client"
	httpSrv "github.com/hulining/consul-balancer/cores/http/server"
	"github.com/hulining/consul-balancer/cores/metric"
	"github.com/hulining/consul-balancer/cores/metric/prometheus"
	"github.com/hulining/consul-balancer/cores/metric/sentry"
	"github.com/hulining/consul-balancer/cores/observer"
	"github.com/hulining/consul-balancer/cores/registry"
	rpcClient "github.com/hulining/consul-balancer/cores/rpc/client"
	"github.com/hulining/consul-balancer/cores/server"
	"github.com/hulining/consul-balancer/cores/supervisor"
	"github.com/hulining/consul-balancer/cores/tracing"
	"github.com/hulining/consul-balancer/logger"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

const (
	_defaultName     = "consul-balancer"
	_shutdownTimeout = 10 * time.Second
	// 实例下线时换下一个实例的次数
	_grpcRetry = 2
)

// StartWatching 用默认配置监听services 立即返回
// 返回的注册表在首次轮询完成前对这些服务返回NotFound
func StartWatching(ctx context.Context, baseURI string, services ...interface{}) (*registry.Registry, *supervisor.Supervisor, error) {
	cli, err := gConsul.NewConsulClient(baseURI)
	if err != nil {
		return nil, nil, err
	}
	obs := observer.Log{}
	reg := registry.New(registry.Observer(obs))
	sup := supervisor.New(consul.NewClient(cli), reg, supervisor.Observer(obs))
	if err = sup.Start(ctx, services...); err != nil {
		return nil, nil, err
	}
	return reg, sup, nil
}

/////////////////////////////////////////
// 进程装配: 配置 -> 日志/tracer/监控 -> consul -> 执行权 -> watcher -> 代理
/////////////////////////////////////////

type App struct {
	baseCtx context.Context
	cancel  func()

	cfg        *config.ServiceConfig
	tracer     tracing.Tracer
	prom       *prometheus.Metric
	metrics    []metric.IMetric
	registry   *registry.Registry
	supervisor *supervisor.Supervisor
	srvs       []server.Server
	closers    []func()
}

func New(ctx context.Context, cfg *config.ServiceConfig) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	name := cfg.Name
	if name == "" {
		name = _defaultName
	}
	ctx, cancel := context.WithCancel(ctx)
	a := &App{
		baseCtx: ctx,
		cancel:  cancel,
		cfg:     cfg,
	}
	// 初始化日志
	initLogger(cfg.Log)
	// 初始化链路追踪
	a.tracer = initTracer(ctx, name)
	tracing.SetGlobal(a.tracer)
	// 初始化监控
	a.metrics = append(a.metrics, sentry.InitMetric(ctx, sentry.SetServerName(name)))
	obs := observer.Multi{observer.Log{}}
	if strings.ToLower(env.GetEnv(env.BalancerMetricDisable)) != "true" {
		var addr string
		if cfg.Admin != nil {
			addr = cfg.Admin.Addr
		}
		a.prom = prometheus.New(prometheus.SetAddr(addr))
		a.metrics = append(a.metrics, a.prom)
		obs = append(obs, a.prom)
	}
	// consul
	wait, _ := cfg.Consul.WaitTime(gConsul.DefaultWaitTime)
	cli, err := gConsul.NewConsulClient(cfg.Consul.Addr,
		gConsul.WaitTime(wait),
		gConsul.Token(cfg.Consul.Token),
		gConsul.Datacenter(cfg.Consul.Datacenter),
	)
	if err != nil {
		cancel()
		return nil, err
	}
	// 执行权
	g, closer, err := initGate(ctx, cfg)
	if err != nil {
		cancel()
		return nil, err
	}
	a.closers = append(a.closers, closer)
	// watcher
	retry, pacing, _ := cfg.Watch.Delays(consul.DefaultRetryDelay)
	a.registry = registry.New(registry.Observer(obs))
	a.supervisor = supervisor.New(
		consul.NewClient(cli, consul.WaitTime(wait)),
		a.registry,
		supervisor.Gate(g),
		supervisor.Builder(initBuilder(cfg.Balancer)),
		supervisor.Observer(obs),
		supervisor.WatcherOptions(consul.RetryDelay(retry), consul.PacingDelay(pacing)),
	)
	// 代理
	if cfg.Proxy != nil && cfg.Proxy.Addr != "" {
		srv, err := a.initProxy(cfg.Proxy)
		if err != nil {
			cancel()
			return nil, err
		}
		a.BindServer(srv)
	}
	logger.Gen(ctx, "app %s init over, consul:%s gate:%s", name, cfg.Consul.Addr, cfg.GateUsed())
	return a, nil
}

func (a *App) initProxy(pc *config.ProxyConfig) (server.Server, error) {
	transport, err := httpClient.NewTransport()
	if err != nil {
		return nil, err
	}
	timeout, err := time.ParseDuration(pc.Timeout)
	if err != nil && pc.Timeout != "" {
		return nil, errors.WithMessagef(err, "proxy timeout %q", pc.Timeout)
	}
	var opts []proxy.Option
	switch a.cfg.GateUsed() {
	case config.GateRedis, config.GateEtcd:
		// follower不watch, registry为空
		opts = append(opts, proxy.Leading(a.supervisor.Leading))
	}
	return httpSrv.New(proxy.New(a.registry, transport, opts...),
		httpSrv.Addr(pc.Addr),
		httpSrv.UseH2C(pc.H2C),
		httpSrv.Use(
			httpSrv.PanicHandler(logger.GetLogger()),
			httpSrv.TracingHandler(a.tracer),
			httpSrv.LogHandler(logger.GetAccess()),
			httpSrv.TimeoutHandler(timeout),
		),
	), nil
}

func (a *App) Ctx() context.Context {
	return a.baseCtx
}

func (a *App) Config() *config.ServiceConfig {
	return a.cfg
}

// Registry 供进程内调用方直接选择实例
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// HTTPClient 按服务名调用http服务
func (a *App) HTTPClient(opts ...httpClient.Option) (*httpClient.Client, error) {
	opts = append([]httpClient.Option{
		httpClient.WithInterceptors(httpClient.TracingInterceptor(a.tracer)),
	}, opts...)
	return httpClient.NewClient(a.registry, opts...)
}

// GRPCClient 连接地址随service的健康实例变化
func (a *App) GRPCClient(service string, opts ...rpcClient.Option) (*grpc.ClientConn, error) {
	opts = append([]rpcClient.Option{
		rpcClient.WithUnaryInterceptor(
			rpcClient.TracingClientUnaryInterceptor(a.tracer),
			rpcClient.RetryClientUnaryInterceptor(_grpcRetry),
		),
	}, opts...)
	return rpcClient.NewClient(a.registry, service, opts...)
}

func (a *App) BindServer(srv ...server.Server) {
	a.srvs = append(a.srvs, srv...)
}

// Run 阻塞直到收到退出信号或ctx结束
func (a *App) Run() error {
	eg, ctx := errgroup.WithContext(a.baseCtx)
	// 开始基础监控
	for i := 0; i < len(a.metrics); i++ {
		m := a.metrics[i]
		m.Start()
		if m.Reports() == nil {
			continue
		}
		eg.Go(func() error {
			for {
				select {
				case report, ok := <-m.Reports():
					if !ok {
						return nil
					}
					logger.Gen(ctx, "%s", report)
				case <-ctx.Done():
					return nil
				}
			}
		})
	}
	// 开始watch
	if err := a.supervisor.Start(a.baseCtx, a.cfg.ServiceList()...); err != nil {
		a.cancel()
		_ = eg.Wait()
		return err
	}
	// 开启服务
	for idx := 0; idx < len(a.srvs); idx++ {
		srv := a.srvs[idx]
		eg.Go(func() error {
			return srv.Start(a.baseCtx)
		})
	}
	// 优雅关闭处理
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT)
	defer signal.Stop(c)
	eg.Go(func() error {
		select {
		case <-ctx.Done():
		case <-c:
			logger.Gen(a.baseCtx, "recv sig, app shutdown beginning...")
		}
		return a.ShutDown()
	})
	return eg.Wait()
}

// ShutDown 停止watcher和所有服务
func (a *App) ShutDown() error {
	a.cancel()
	a.supervisor.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), _shutdownTimeout)
	defer cancel()
	var errs []error
	for _, srv := range a.srvs {
		if err := srv.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.prom != nil {
		if err := a.prom.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	for _, f := range a.closers {
		f()
	}
	_ = a.tracer.Close()
	logger.Gen(ctx, "app shutdown over")
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
