package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FeedFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "choynews_feed_fetches_total",
		Help: "The total number of feed fetch attempts by source and status",
	}, []string{"source", "status"})

	FeedItemsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "choynews_feed_items_ingested_total",
		Help: "The total number of items parsed from feeds",
	}, []string{"category"})

	FeedFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "choynews_feed_fetch_duration_seconds",
		Help:    "Duration of individual feed fetches",
		Buckets: prometheus.DefBuckets,
	}, []string{"category"})

	FeedSourcesDisabled = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "choynews_feed_sources_disabled",
		Help: "Number of sources currently disabled after repeated hard failures",
	})

	CategoryOutages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "choynews_category_outages_total",
		Help: "Total number of detected whole-category feed outages",
	}, []string{"category"})

	DigestsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "choynews_digests_delivered_total",
		Help: "The total number of digests delivered by trigger and status",
	}, []string{"trigger", "status"})

	DigestDeliveryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "choynews_digest_delivery_duration_seconds",
		Help:    "Time from slot trigger to transport acknowledgement",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 45, 60, 120},
	})

	DigestPlaceholders = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "choynews_digest_placeholders_total",
		Help: "Total number of placeholder lines included in digests",
	}, []string{"category"})

	SchedulerDueSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "choynews_scheduler_due_subscribers",
		Help: "Number of subscribers due at the last scheduler tick",
	})

	TransportRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "choynews_transport_retries_total",
		Help: "Total number of transport send retries by attempt",
	}, []string{"attempt"})

	TransportRateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "choynews_transport_rate_limited_total",
		Help: "Total number of rate-limited transport sends",
	})

	MarketSnapshotAge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "choynews_market_snapshot_age_seconds",
		Help: "Age of the cached market snapshot at last read",
	})

	MarketRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "choynews_market_requests_total",
		Help: "Total number of market data provider requests by endpoint and status",
	}, []string{"endpoint", "status"})

	MarketBreakerOpens = promauto.NewCounter(prometheus.CounterOpts{
		Name: "choynews_market_circuit_breaker_opens_total",
		Help: "Total number of times the market provider circuit breaker opened",
	})

	CommentaryRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "choynews_commentary_requests_total",
		Help: "Total number of AI commentary requests by status",
	}, []string{"status"})

	CommentaryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "choynews_commentary_duration_seconds",
		Help:    "Duration of AI commentary requests",
		Buckets: []float64{0.25, 0.5, 1, 2, 3, 5, 10},
	})

	DedupPurgedRows = promauto.NewCounter(prometheus.CounterOpts{
		Name: "choynews_dedup_purged_rows_total",
		Help: "Total number of delivery log rows removed by retention purge",
	})

	CommandsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "choynews_commands_handled_total",
		Help: "Total number of bot commands handled by command",
	}, []string{"command"})
)
