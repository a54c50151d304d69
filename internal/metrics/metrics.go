package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus指标，promauto 注册到默认 registry，/metrics 由路由暴露

var (
	// AuthzDecisions 授权判定计数，decision: allow/deny，reason: owner/rule/no_connection/no_rule/flag_false
	AuthzDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_decisions_total",
			Help: "Authorization resolver decisions by outcome and reason",
		},
		[]string{"capability", "decision", "reason"},
	)

	// AccessibleSectionsCache 可访问分区缓存命中情况
	AccessibleSectionsCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_accessible_sections_cache_total",
			Help: "Accessible-section cache lookups by result",
		},
		[]string{"result"}, // hit, miss, error
	)

	// PipelineIngests 向量化入库计数，status: stored/duplicate/error
	PipelineIngests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_ingests_total",
			Help: "Vectorize-and-store outcomes",
		},
		[]string{"status"},
	)

	// PipelineChunks 每次入库产生的块数
	PipelineChunks = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipeline_chunks_per_ingest",
			Help:    "Number of chunks produced per stored text",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64},
		},
	)

	// AICalls 外部AI调用计数，operation: embedding/classify/summarize/transcribe
	AICalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_calls_total",
			Help: "Outbound AI provider calls by operation and status",
		},
		[]string{"operation", "status"},
	)

	// AICallDuration 外部AI调用耗时
	AICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_call_duration_seconds",
			Help:    "Duration of outbound AI provider calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// SearchQueries 检索请求计数，scoped: true/false
	SearchQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_queries_total",
			Help: "Similarity search queries by scope and status",
		},
		[]string{"scoped", "status"},
	)
)
