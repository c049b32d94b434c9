package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	joinTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "join_requests_total",
			Help: "Total join requests by result and tier",
		},
		[]string{"result", "tier"},
	)

	joinDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "join_request_duration_ms",
			Help:    "Join request duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"result", "tier"},
	)

	leaveTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leave_requests_total",
			Help: "Total leave requests by result",
		},
		[]string{"result"},
	)

	// 补偿失败告警计数：账本与房间状态出现不一致，需人工对账
	inconsistencyTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_room_inconsistency_total",
			Help: "Compensation failures leaving ledger and room state inconsistent",
		},
		[]string{"op"},
	)
)

// RecordJoin 记录 join 的业务指标
// result: "success" | "fail"；tier 为档位字符串
func RecordJoin(result, tier string, started time.Time) {
	res := result
	if res != "success" {
		res = "fail"
	}
	joinTotal.WithLabelValues(res, tier).Inc()
	durMs := float64(time.Since(started).Milliseconds())
	joinDuration.WithLabelValues(res, tier).Observe(durMs)
}

// RecordLeave 记录 leave 的业务指标
func RecordLeave(result string) {
	res := result
	if res != "success" {
		res = "fail"
	}
	leaveTotal.WithLabelValues(res).Inc()
}

// RecordInconsistency 记录一次账本-房间不一致告警
// op: "join_compensation" | "leave_refund" | "spin_payout"
func RecordInconsistency(op string) {
	inconsistencyTotal.WithLabelValues(op).Inc()
}
