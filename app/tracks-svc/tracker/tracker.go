// Package tracker keeps the current train snapshot up to date from the published timetable, holiday, live and
// alert documents, and serves it
package tracker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/octalwise/tracks/app/tracks-svc/timetable"
	"github.com/octalwise/tracks/business/data/rail"
	"github.com/octalwise/tracks/foundation/httpclient"
)

// FeedConfig contains the document urls the tracker reads
type FeedConfig struct {
	TimetableUrl string
	HolidayUrl   string
	LiveUrl      string
	AlertsUrl    string
}

// RefreshConfig contains how often each document is refreshed
type RefreshConfig struct {
	TrainsEverySeconds    int
	AlertsEverySeconds    int
	TimetableEverySeconds int
	MaxRetries            int
	RequestTimeoutSeconds int
}

// DocumentRetriever retrieves remote documents and their version information
type DocumentRetriever interface {
	Retrieve(ctx context.Context, url string) (*httpclient.RetrievedDocument, error)
	GetRemoteFileInfo(ctx context.Context, url string) (httpclient.RemoteFileInfo, error)
}

// tracker fetches documents, builds snapshots and hands them to the publisher
type tracker struct {
	log        *log.Logger
	engine     *Engine
	retriever  DocumentRetriever
	feed       FeedConfig
	refresh    RefreshConfig
	collection *snapshotCollection
	publisher  *snapshotPublisher
	metrics    *Collector
	now        func() time.Time
}

// retrieve fetches url, retrying with exponential backoff on temporary failures
func (t *tracker) retrieve(ctx context.Context, source string, url string) (*httpclient.RetrievedDocument, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 2 * time.Second
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 2 * time.Minute

	document, err := backoff.RetryNotifyWithData(
		func() (*httpclient.RetrievedDocument, error) {
			requestCtx, cancel := context.WithTimeout(ctx, t.requestTimeout())
			defer cancel()
			document, err := t.retriever.Retrieve(requestCtx, url)
			var statusErr *httpclient.StatusError
			if errors.As(err, &statusErr) && !statusErr.Temporary() {
				return nil, backoff.Permanent(err)
			}
			return document, err
		},
		backoff.WithContext(backoff.WithMaxRetries(b, uint64(t.refresh.MaxRetries)), ctx),
		func(err error, d time.Duration) {
			t.log.Printf("retrieving %s failed, retrying in %s: %v", source, d, err)
		},
	)
	if err != nil {
		t.metrics.FetchErrors.WithLabelValues(source).Inc()
		return nil, fmt.Errorf("retrieving %s from %s: %w", source, url, err)
	}
	return document, nil
}

func (t *tracker) requestTimeout() time.Duration {
	if t.refresh.RequestTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(t.refresh.RequestTimeoutSeconds) * time.Second
}

// refreshSchedule loads the timetable and holiday documents into a new Schedule.
// An unchanged remote timetable is not extracted again, and a rejected timetable keeps the previous Schedule.
// Returns true if a new Schedule was stored.
func (t *tracker) refreshSchedule(ctx context.Context) (bool, error) {
	current, currentInfo := t.collection.currentSchedule()
	if current != nil {
		info, err := t.retriever.GetRemoteFileInfo(ctx, t.feed.TimetableUrl)
		if err == nil && !currentInfo.IsDifferent(info) {
			t.metrics.TimetableUnchanged.Inc()
			t.log.Printf("timetable unchanged since %s, keeping schedule", current.LoadedAt.Format(time.RFC3339))
			return false, nil
		}
	}

	document, err := t.retrieve(ctx, "timetable", t.feed.TimetableUrl)
	if err != nil {
		return false, err
	}
	table, err := timetable.ReadTimetable(bytes.NewReader(document.Body))
	if err != nil {
		var malformed *timetable.MalformedTimeError
		if errors.As(err, &malformed) {
			t.metrics.TimetableRejected.Inc()
		}
		return false, fmt.Errorf("timetable rejected, keeping previous schedule: %w", err)
	}
	if unordered := t.engine.UnorderedTrips(table); len(unordered) > 0 {
		t.log.Printf("trips %v don't visit stations in line order, locations for them will be wrong", unordered)
	}

	holidays := t.loadHolidays(ctx)
	schedule := t.engine.NewSchedule(table, holidays.Holidays, t.now())
	t.collection.replaceSchedule(schedule, document.RemoteFileInfo)
	t.metrics.TimetableLoads.Inc()
	t.metrics.Holidays.Set(float64(len(holidays.Holidays)))
	t.log.Printf("loaded %d trips with %d stop times and %d holidays", len(table.Trips), len(table.StopTimes),
		len(holidays.Holidays))
	return true, nil
}

// loadHolidays retrieves and extracts the holiday document, degrading to no holidays on failure
func (t *tracker) loadHolidays(ctx context.Context) timetable.HolidayTable {
	if t.feed.HolidayUrl == "" {
		return timetable.HolidayTable{}
	}
	document, err := t.retrieve(ctx, "holidays", t.feed.HolidayUrl)
	if err != nil {
		t.log.Printf("continuing without holidays: %v", err)
		return timetable.HolidayTable{}
	}
	holidays, err := timetable.ReadHolidays(bytes.NewReader(document.Body))
	if err != nil {
		t.log.Printf("continuing without holidays: %v", err)
		return timetable.HolidayTable{}
	}
	for _, skipped := range holidays.Skipped {
		t.log.Printf("skipped holiday row: %v", skipped)
	}
	t.metrics.SkippedHolidays.Add(float64(len(holidays.Skipped)))
	return holidays
}

// refreshTrains builds, stores and publishes a new Snapshot from the current Schedule and live report.
// When the live report can't be retrieved the snapshot contains scheduled trains only.
func (t *tracker) refreshTrains(ctx context.Context) *Snapshot {
	schedule, _ := t.collection.currentSchedule()
	live := t.loadLiveTrains(ctx)

	start := time.Now()
	snapshot := withVersion(t.engine.BuildSnapshot(schedule, live, t.now()))
	t.metrics.BuildDuration.Observe(time.Since(start).Seconds())

	t.collection.replaceSnapshot(snapshot)
	t.metrics.observeSnapshot(snapshot)
	t.publisher.publish(snapshot)
	t.log.Printf("published snapshot %s with %d trains (%d live) for %s service", snapshot.Version,
		len(snapshot.Trains), len(live), snapshot.Service)
	return snapshot
}

func (t *tracker) loadLiveTrains(ctx context.Context) []rail.Train {
	if t.feed.LiveUrl == "" {
		return nil
	}
	document, err := t.retrieve(ctx, "live", t.feed.LiveUrl)
	if err != nil {
		t.log.Printf("publishing scheduled trains only: %v", err)
		return nil
	}
	live, err := DecodeLiveReport(document.Body)
	if err != nil {
		t.metrics.FetchErrors.WithLabelValues("live").Inc()
		t.log.Printf("publishing scheduled trains only: %v", err)
		return nil
	}
	return live
}

// refreshAlerts replaces the current alerts, keeping the previous ones on failure
func (t *tracker) refreshAlerts(ctx context.Context) error {
	if t.feed.AlertsUrl == "" {
		return nil
	}
	document, err := t.retrieve(ctx, "alerts", t.feed.AlertsUrl)
	if err != nil {
		return err
	}
	alerts, err := DecodeAlerts(document.Body)
	if err != nil {
		t.metrics.FetchErrors.WithLabelValues("alerts").Inc()
		return err
	}
	t.collection.replaceAlerts(alerts)
	return nil
}
