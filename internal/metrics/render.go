package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	renderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "resumebuilder",
			Subsystem: "render",
			Name:      "duration_seconds",
			Help:      "PDF 渲染耗时分布（秒）。",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		},
		[]string{"layout", "result"},
	)

	renderFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resumebuilder",
			Subsystem: "render",
			Name:      "failures_total",
			Help:      "PDF 渲染失败次数，按失败阶段区分。",
		},
		[]string{"op"},
	)

	rendersInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "resumebuilder",
			Subsystem: "render",
			Name:      "in_flight",
			Help:      "当前正在进行的渲染数量。",
		},
	)
)

// RenderStarted 增加进行中的渲染计数，返回的函数在渲染结束时调用。
func RenderStarted() func() {
	rendersInFlight.Inc()
	return rendersInFlight.Dec
}

// ObserveRender 记录一次渲染的耗时与结果；op 为空表示成功。
func ObserveRender(layout string, elapsed time.Duration, op string) {
	result := "ok"
	if op != "" {
		result = "error"
		renderFailedTotal.WithLabelValues(op).Inc()
	}
	renderDuration.WithLabelValues(layout, result).Observe(elapsed.Seconds())
}
