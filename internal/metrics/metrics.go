package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Simulation metrics
	IterationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "layout_iterations_total",
			Help: "Total number of Iterate calls processed",
		},
		[]string{"converged"}, // converged: true, false
	)

	IterationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "layout_iteration_duration_seconds",
			Help:    "Duration of a single Iterate call",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	Energy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "layout_energy",
			Help: "Total system energy after the most recent iteration",
		},
	)

	StepSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "layout_step_size",
			Help: "Adaptive integrator step size after the most recent iteration",
		},
	)

	MaxLinkForceMag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "layout_max_link_force_mag",
			Help: "Largest per-node attractive link force magnitude observed this iteration",
		},
	)

	PositionStdDevX = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "layout_position_stddev_x",
			Help: "Mass-weighted standard deviation of node X positions",
		},
	)

	PositionStdDevY = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "layout_position_stddev_y",
			Help: "Mass-weighted standard deviation of node Y positions",
		},
	)

	QuadTreeBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "layout_quadtree_build_duration_seconds",
			Help:    "Duration of building the Barnes-Hut quadtree for one iteration",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
	)

	// Graph conditioning metrics
	DateRangeSelections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "layout_date_range_selections_total",
			Help: "Total number of SelectDateRange calls",
		},
		[]string{"status"}, // status: ok, invalid_range, degenerate
	)

	ConditionedPapers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "layout_conditioned_papers",
			Help: "Number of papers in the conditioned working set after the most recent SelectDateRange",
		},
	)

	DroppedPapers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "layout_dropped_papers",
			Help: "Number of included papers dropped as unreconnectable by the most recent SelectDateRange",
		},
	)

	HierarchyLevels = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "layout_hierarchy_levels",
			Help: "Number of layout levels (level 0 plus coarsened levels) in the hierarchy built by the most recent SelectDateRange",
		},
	)

	// Paper store metrics
	StoreFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "layout_store_fetch_duration_seconds",
			Help:    "Duration of paper/keyword fetches from the store",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"query"},
	)

	StoreFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "layout_store_fetch_errors_total",
			Help: "Total number of store fetch errors",
		},
		[]string{"query"},
	)

	// Cache metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "layout_cache_hits_total",
			Help: "Total number of snapshot cache hits",
		},
		[]string{"key"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "layout_cache_misses_total",
			Help: "Total number of snapshot cache misses",
		},
		[]string{"key"},
	)

	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "layout_cache_evictions_total",
			Help: "Total number of snapshot cache evictions",
		},
	)

	CacheItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "layout_cache_items",
			Help: "Current number of entries in the snapshot cache",
		},
	)

	CacheSizeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "layout_cache_size_bytes",
			Help: "Estimated current size of the snapshot cache",
		},
	)

	// HTTP/WebSocket metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "layout_api_request_duration_seconds",
			Help:    "Duration of HTTP API requests",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"endpoint", "method", "status"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "layout_api_requests_total",
			Help: "Total number of HTTP API requests",
		},
		[]string{"endpoint", "method", "status"},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "layout_websocket_connections_active",
			Help: "Number of active WebSocket viewer connections",
		},
	)

	WebSocketFramesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "layout_websocket_frames_sent_total",
			Help: "Total number of layout frames broadcast to WebSocket viewers",
		},
	)

	RateLimitWaits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "layout_rate_limit_waits_total",
			Help: "Total number of requests delayed by the iterate-endpoint rate limiter",
		},
	)

	CollectionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "layout_metrics_collection_errors_total",
			Help: "Total number of errors encountered by the periodic metrics collector",
		},
		[]string{"source"},
	)
)
