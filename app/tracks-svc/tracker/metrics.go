package tracker

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the tracker's prometheus metrics on its own registry
type Collector struct {
	reg *prometheus.Registry

	SnapshotsBuilt     prometheus.Counter
	TimetableLoads     prometheus.Counter
	TimetableRejected  prometheus.Counter
	TimetableUnchanged prometheus.Counter
	FetchErrors        *prometheus.CounterVec // source label: timetable|holidays|live|alerts

	Trains          *prometheus.GaugeVec // kind label: live|scheduled|located
	Holidays        prometheus.Gauge
	SkippedHolidays prometheus.Counter

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	RecordedDelays  prometheus.Counter

	BuildDuration prometheus.Histogram
}

// NewCollector creates Collector and registers all metrics
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		SnapshotsBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracks_snapshots_built_total",
			Help: "Total train snapshots built and published.",
		}),
		TimetableLoads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracks_timetable_loads_total",
			Help: "Total timetable documents extracted and accepted.",
		}),
		TimetableRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracks_timetable_rejected_total",
			Help: "Total timetable documents rejected for malformed times.",
		}),
		TimetableUnchanged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracks_timetable_unchanged_total",
			Help: "Total timetable refreshes skipped because the remote document was unchanged.",
		}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracks_fetch_errors_total",
			Help: "Total failed document retrievals.",
		}, []string{"source"}),
		Trains: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tracks_trains",
			Help: "Trains in the current snapshot.",
		}, []string{"kind"}),
		Holidays: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracks_holidays",
			Help: "Holidays known to the service calendar.",
		}),
		SkippedHolidays: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracks_holiday_rows_skipped_total",
			Help: "Total holiday rows skipped for unreadable dates.",
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracks_nats_published_total",
			Help: "Total snapshots published over NATS.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracks_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		RecordedDelays: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracks_stop_delays_recorded_total",
			Help: "Total stop delays recorded to the database.",
		}),
		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tracks_snapshot_build_duration_seconds",
			Help:    "Duration of building a train snapshot.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15),
		}),
	}

	reg.MustRegister(
		c.SnapshotsBuilt, c.TimetableLoads, c.TimetableRejected, c.TimetableUnchanged, c.FetchErrors,
		c.Trains, c.Holidays, c.SkippedHolidays,
		c.NATSPublished, c.NATSPublishErrs, c.RecordedDelays,
		c.BuildDuration,
	)
	return c
}

// Handler serves the collector's registry in prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

// observeSnapshot updates the train gauges from snapshot
func (c *Collector) observeSnapshot(snapshot *Snapshot) {
	live, scheduled, located := 0, 0, 0
	for _, train := range snapshot.Trains {
		if train.Live {
			live++
		} else {
			scheduled++
		}
		if train.Location != nil {
			located++
		}
	}
	c.Trains.WithLabelValues("live").Set(float64(live))
	c.Trains.WithLabelValues("scheduled").Set(float64(scheduled))
	c.Trains.WithLabelValues("located").Set(float64(located))
	c.SnapshotsBuilt.Inc()
}
