package prometheus

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"time"

	gErrors "github.com/hulining/consul-balancer/cores/errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	_namespace       = "balancer"
	_shutdownTimeout = 5 * time.Second
)

type Option func(*Metric)

// SetAddr 管理端口监听地址 为空时不启动http服务
func SetAddr(addr string) Option {
	return func(m *Metric) {
		m.addr = addr
	}
}

/////////////////////////////////////////
// watch/选择的prometheus指标 同时实现 observer.Observer
// 管理端口暴露 /metrics 和 /debug/pprof
/////////////////////////////////////////

type Metric struct {
	registry *prometheus.Registry

	polls          *prometheus.CounterVec
	failures       *prometheus.CounterVec
	lastIndex      *prometheus.GaugeVec
	instances      *prometheus.GaugeVec
	selectFailures *prometheus.CounterVec

	addr    string
	srv     *http.Server
	reports chan string
}

func New(opts ...Option) *Metric {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metric{
		registry: reg,
		reports:  make(chan string, 1),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	m.polls = m.counterVec("watch_polls_total", "Blocking queries by result", "service", "result")
	m.failures = m.counterVec("watch_failures_total", "Failed watch iterations by error kind", "service", "kind")
	m.lastIndex = m.gaugeVec("watch_last_index", "Index of the last installed poll result", "service")
	m.instances = m.gaugeVec("watch_instances", "Healthy instances in the live balancer", "service")
	m.selectFailures = m.counterVec("select_failures_total", "Failed picks by reason", "service", "reason")
	return m
}

func (m *Metric) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	cv := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: _namespace,
		Name:      name,
		Help:      help,
	}, labels)
	m.registry.MustRegister(cv)
	return cv
}

func (m *Metric) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	gv := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: _namespace,
		Name:      name,
		Help:      help,
	}, labels)
	m.registry.MustRegister(gv)
	return gv
}

func (m *Metric) WatchStarted(name string, _ string) {
	m.instances.WithLabelValues(name).Set(0)
}

func (m *Metric) WatchInstalled(name string, index uint64, instances int) {
	m.polls.WithLabelValues(name, "ok").Inc()
	m.lastIndex.WithLabelValues(name).Set(float64(index))
	m.instances.WithLabelValues(name).Set(float64(instances))
}

func (m *Metric) WatchFailed(name string, _ uint64, err error) {
	m.polls.WithLabelValues(name, "failed").Inc()
	m.failures.WithLabelValues(name, gErrors.KindOf(err).String()).Inc()
}

func (m *Metric) WatchStopped(name string, err error) {
	if err != nil {
		m.failures.WithLabelValues(name, gErrors.KindOf(err).String()).Inc()
	}
}

func (m *Metric) SelectFailed(name string, err error) {
	m.selectFailures.WithLabelValues(name, reason(err)).Inc()
}

func reason(err error) string {
	switch {
	case errors.Is(err, gErrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, gErrors.ErrEmpty):
		return "empty"
	default:
		return "internal"
	}
}

// Handler 管理端口路由
func (m *Metric) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}

// Start 非阻塞 监听失败写入Reports
func (m *Metric) Start() {
	if m.addr == "" {
		return
	}
	m.srv = &http.Server{
		Addr:              m.addr,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := m.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case m.reports <- fmt.Sprintf("admin server %s err:%v", m.addr, err):
			default:
			}
		}
	}()
}

func (m *Metric) Reports() chan string {
	return m.reports
}

func (m *Metric) Stop(ctx context.Context) error {
	if m.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, _shutdownTimeout)
	defer cancel()
	return m.srv.Shutdown(ctx)
}
