package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ChannelEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "raya_channel_events_total", Help: "推送通道上行事件数"},
		[]string{"event"},
	)
	MessagesSentTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "raya_messages_sent_total", Help: "HTTP 发送成功的消息数"},
	)
	MessageSendLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "raya_send_latency_ms", Help: "消息发送端到端延迟(近似)", Buckets: prometheus.LinearBuckets(5, 5, 20)},
	)
)

func Init() {
	prometheus.MustRegister(ChannelEventsTotal)
	prometheus.MustRegister(MessagesSentTotal)
	prometheus.MustRegister(MessageSendLatency)
}
