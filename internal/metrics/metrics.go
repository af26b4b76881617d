package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tracks normalized listings per source and outcome.
	RecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketeye_records_total",
			Help: "Listings processed by the normalization pipeline (by source and result).",
		},
		[]string{"source", "result"}, // result = "ok" | "failed"
	)

	// Tracks raw files read per source and outcome.
	FilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketeye_files_total",
			Help: "Raw source files read (by source and result).",
		},
		[]string{"source", "result"},
	)

	// Counts malformed NDJSON lines that were skipped.
	SkippedLinesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketeye_skipped_lines_total",
			Help: "Malformed raw lines skipped while loading source files.",
		},
		[]string{"source"},
	)

	// Counts prices that could not be parsed and fell back to 0.
	PriceUnparsedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketeye_price_unparsed_total",
			Help: "Listings whose price was absent or unparsable.",
		},
		[]string{"source"},
	)

	// Measures pipeline stage durations.
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marketeye_pipeline_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 16), // 1ms → ~32s
		},
		[]string{"stage"},
	)

	CatalogProducts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "marketeye_catalog_products",
		Help: "Products in the latest catalog.",
	})

	CatalogOffers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "marketeye_catalog_offers",
		Help: "Offers in the latest catalog.",
	})

	// Tracks published catalog events by broker and result.
	PublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketeye_events_published_total",
			Help: "Catalog events published (by broker and result).",
		},
		[]string{"broker", "result"},
	)

	PublishLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marketeye_event_publish_latency_seconds",
			Help:    "Time taken to publish catalog events",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"broker"},
	)

	// Tracks total errors (aggregated).
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketeye_errors_total",
			Help: "Count of errors by component.",
		},
		[]string{"component", "reason"},
	)

	// Gauges the last successful refresh time (seconds since epoch).
	LastRefreshTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "marketeye_last_refresh_timestamp",
		Help: "Timestamp (unix seconds) of the last successful catalog refresh.",
	})
)

// ObserveDuration records the time since start on the given histogram.
func ObserveDuration(h *prometheus.HistogramVec, start time.Time, labels ...string) {
	h.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
}

func IncRecord(source, result string) {
	RecordsTotal.WithLabelValues(source, result).Inc()
}

func IncFile(source, result string) {
	FilesTotal.WithLabelValues(source, result).Inc()
}

func AddSkippedLines(source string, n int) {
	if n > 0 {
		SkippedLinesTotal.WithLabelValues(source).Add(float64(n))
	}
}

func IncPriceUnparsed(source string) {
	PriceUnparsedTotal.WithLabelValues(source).Inc()
}

func IncPublish(broker, result string) {
	PublishTotal.WithLabelValues(broker, result).Inc()
}

func IncError(component, reason string) {
	ErrorsTotal.WithLabelValues(component, reason).Inc()
}

func SetCatalogSize(products, offers int) {
	CatalogProducts.Set(float64(products))
	CatalogOffers.Set(float64(offers))
}

func SetLastRefresh(t time.Time) {
	LastRefreshTimestamp.Set(float64(t.Unix()))
}
