package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	spinTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spin_trigger_total",
			Help: "Total spin triggers by result and source",
		},
		[]string{"result", "source"},
	)

	spinDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "spin_trigger_duration_ms",
			Help:    "Spin trigger processing duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"result", "source"},
	)
)

// RecordSpin 记录 trigger 的业务指标
// result: "success" | "noop" | "fail"
// source: 触发来源 timer|sweeper|api
func RecordSpin(result, source string, started time.Time) {
	res := result
	if res != "success" && res != "noop" {
		res = "fail"
	}
	src := strings.ToLower(strings.TrimSpace(source))
	if src == "" {
		src = "unknown"
	}
	spinTotal.WithLabelValues(res, src).Inc()
	durMs := float64(time.Since(started).Milliseconds())
	spinDuration.WithLabelValues(res, src).Observe(durMs)
}
