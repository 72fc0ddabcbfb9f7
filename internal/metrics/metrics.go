package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// AppMetrics 自定义业务指标
type AppMetrics struct {
	TCPAccepted      prometheus.Counter
	TCPBytesReceived prometheus.Counter
	FrameTotal       *prometheus.CounterVec // labels: version=v1|v2
	FrameDropTotal   *prometheus.CounterVec // labels: reason=checksum|unknown_message|version|unsigned|decode
	SignatureTotal   *prometheus.CounterVec // labels: result=ok|bad|stale|unknown_link
	ResyncBytesTotal prometheus.Counter     // 帧同步阶段丢弃的噪声字节
	SequenceLoss     prometheus.Counter     // 按序号跳变推算的丢帧数
	OnlineGauge      prometheus.Gauge       // 当前在线链路数
}

// NewAppMetrics 注册并返回业务指标
func NewAppMetrics(reg *prometheus.Registry) *AppMetrics {
	m := &AppMetrics{
		TCPAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tcp_accept_total",
			Help: "Total accepted TCP connections.",
		}),
		TCPBytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tcp_bytes_received_total",
			Help: "Total bytes received over TCP.",
		}),
		FrameTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mavlink_frame_total",
			Help: "Decoded MAVLink frames by protocol version.",
		}, []string{"version"}),
		FrameDropTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mavlink_frame_drop_total",
			Help: "Frames dropped after framing, by reason.",
		}, []string{"reason"}),
		SignatureTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mavlink_signature_total",
			Help: "Signature verification attempts by result.",
		}, []string{"result"}),
		ResyncBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mavlink_resync_bytes_total",
			Help: "Noise bytes discarded while searching for a start marker.",
		}),
		SequenceLoss: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mavlink_sequence_loss_total",
			Help: "Frames presumed lost based on sequence number gaps.",
		}),
		OnlineGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "session_online_count",
			Help: "Current number of online MAVLink links.",
		}),
	}
	reg.MustRegister(m.TCPAccepted, m.TCPBytesReceived, m.FrameTotal, m.FrameDropTotal,
		m.SignatureTotal, m.ResyncBytesTotal, m.SequenceLoss, m.OnlineGauge)
	return m
}
