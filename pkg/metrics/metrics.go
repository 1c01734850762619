// Package metrics 提供 Prometheus 指标，覆盖监听器、命令总线与通知投递
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 指标集合
type Metrics struct {
	// 当前活跃的监听器数量
	ListenersActive prometheus.Gauge
	// 收到的控制命令计数，按类型区分
	CommandsTotal *prometheus.CounterVec
	// 处理的订单事件计数，按订单状态区分
	OrderEventsTotal *prometheus.CounterVec
	// 通知投递计数，按动作区分（send/edit/delete）
	NotificationsTotal *prometheus.CounterVec
	// 协议缺陷计数（未识别状态、聚合记录缺失）
	ProtocolDefectsTotal prometheus.Counter
	// 流过期触发的自重启计数
	StreamRestartsTotal prometheus.Counter

	registry *prometheus.Registry
}

// New 创建并注册指标实例
func New(serviceName string) *Metrics {
	m := &Metrics{
		ListenersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ordernotify",
			Subsystem: serviceName,
			Name:      "listeners_active",
			Help:      "Number of active user stream listeners",
		}),
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ordernotify",
			Subsystem: serviceName,
			Name:      "commands_total",
			Help:      "Total listener control commands received",
		}, []string{"type"}),
		OrderEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ordernotify",
			Subsystem: serviceName,
			Name:      "order_events_total",
			Help:      "Total order events processed",
		}, []string{"status"}),
		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ordernotify",
			Subsystem: serviceName,
			Name:      "notifications_total",
			Help:      "Total notification transport calls",
		}, []string{"action"}),
		ProtocolDefectsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ordernotify",
			Subsystem: serviceName,
			Name:      "protocol_defects_total",
			Help:      "Total protocol defects observed (unknown status, missing aggregation record)",
		}),
		StreamRestartsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ordernotify",
			Subsystem: serviceName,
			Name:      "stream_restarts_total",
			Help:      "Total self-restarts triggered by stream expiry",
		}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.ListenersActive,
		m.CommandsTotal,
		m.OrderEventsTotal,
		m.NotificationsTotal,
		m.ProtocolDefectsTotal,
		m.StreamRestartsTotal,
	)

	return m
}

// Handler 返回指标暴露用的 HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
