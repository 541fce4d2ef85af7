package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the prediction service

var (
	// API call metrics
	APICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cplodds_api_calls_total",
			Help: "Total number of CanPL API calls",
		},
		[]string{"endpoint", "status"},
	)

	APICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cplodds_api_call_duration_seconds",
			Help:    "Duration of CanPL API calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Sync metrics
	SyncOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cplodds_sync_operations_total",
			Help: "Total number of sync operations",
		},
		[]string{"type", "status"},
	)

	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cplodds_sync_duration_seconds",
			Help:    "Duration of sync operations in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"type"},
	)

	LastSuccessfulSync = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cplodds_last_successful_sync_timestamp",
			Help: "Timestamp of last successful sync operation",
		},
	)

	// Model metrics
	ModelFitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cplodds_model_fits_total",
			Help: "Total number of model refits",
		},
	)

	ModelFitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cplodds_model_fit_duration_seconds",
			Help:    "Duration of model refits in seconds",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 10},
		},
	)

	TeamsRated = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cplodds_teams_rated",
			Help: "Number of teams with fitted ratings",
		},
	)

	MatchesStored = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cplodds_matches_stored_total",
			Help: "Total number of matches in database",
		},
	)

	OddsRecordsStored = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cplodds_odds_records_total",
			Help: "Total number of closing odds records in database",
		},
	)

	// Prediction metrics
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cplodds_predictions_total",
			Help: "Total number of predictions served",
		},
		[]string{"source"},
	)

	// Cache metrics
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cplodds_cache_hits_total",
			Help: "Total number of cache hits",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cplodds_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	// Alert metrics
	ValueAlertsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cplodds_value_alerts_total",
			Help: "Total number of value bet alerts sent",
		},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cplodds_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)

// RecordAPICall records an API call metric
func RecordAPICall(endpoint, status string, duration float64) {
	APICallsTotal.WithLabelValues(endpoint, status).Inc()
	APICallDuration.WithLabelValues(endpoint).Observe(duration)
}

// RecordSync records a sync operation
func RecordSync(syncType, status string, duration float64) {
	SyncOperationsTotal.WithLabelValues(syncType, status).Inc()
	SyncDuration.WithLabelValues(syncType).Observe(duration)

	if status == "success" {
		LastSuccessfulSync.SetToCurrentTime()
	}
}

// RecordModelFit records a model refit
func RecordModelFit(teams int, duration float64) {
	ModelFitsTotal.Inc()
	ModelFitDuration.Observe(duration)
	TeamsRated.Set(float64(teams))
}

// RecordPrediction records a served prediction by source (model or cache)
func RecordPrediction(source string) {
	PredictionsTotal.WithLabelValues(source).Inc()
}

// RecordCacheHit records a cache hit
func RecordCacheHit() {
	CacheHitsTotal.Inc()
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss() {
	CacheMissesTotal.Inc()
}

// RecordValueAlert records a sent value bet alert
func RecordValueAlert() {
	ValueAlertsTotal.Inc()
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// UpdateStoreStats updates stored row statistics
func UpdateStoreStats(matches, odds int64) {
	MatchesStored.Set(float64(matches))
	OddsRecordsStored.Set(float64(odds))
}
