package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MQ 消费延迟（毫秒）
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue"},
	)

	// 账本（合约）调用延迟（毫秒）
	LedgerCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_call_latency_ms",
			Help:    "Escrow ledger call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10), // 100ms to ~100s
		},
		[]string{"operation", "status"},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// 投票计数
	VoteCastCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vote_cast_count",
			Help: "Total number of validation votes cast",
		},
		[]string{"result"}, // result: cast, changed, conflict, closed
	)

	// 出资计数
	ContributionCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contribution_count",
			Help: "Total number of contribution transitions",
		},
		[]string{"status"}, // status: pending, completed, failed, refunded
	)

	// 里程碑释放计数
	MilestoneReleaseCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "milestone_release_count",
			Help: "Total number of milestone fund releases",
		},
		[]string{"status"}, // status: released, rejected, blocked
	)

	// 通知事件计数
	NotificationCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_event_count",
			Help: "Total number of notification events enqueued",
		},
		[]string{"kind"},
	)

	// 慢查询计数
	SlowQueryCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "db_slow_query_count",
			Help: "Total number of queries exceeding the slow query threshold",
		},
	)
)

// RecordMQConsumeLatency 记录 MQ 消费延迟
func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

// RecordLedgerCallLatency 记录账本调用延迟
func RecordLedgerCallLatency(operation, status string, duration time.Duration) {
	LedgerCallLatency.WithLabelValues(operation, status).Observe(float64(duration.Milliseconds()))
}

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// IncrementVoteCast 增加投票计数
func IncrementVoteCast(result string) {
	VoteCastCount.WithLabelValues(result).Inc()
}

// IncrementContribution 增加出资状态计数
func IncrementContribution(status string) {
	ContributionCount.WithLabelValues(status).Inc()
}

// IncrementMilestoneRelease 增加里程碑释放计数
func IncrementMilestoneRelease(status string) {
	MilestoneReleaseCount.WithLabelValues(status).Inc()
}

// IncrementNotification 增加通知事件计数
func IncrementNotification(kind string) {
	NotificationCount.WithLabelValues(kind).Inc()
}

// IncrementSlowQuery 增加慢查询计数
func IncrementSlowQuery() {
	SlowQueryCount.Inc()
}
