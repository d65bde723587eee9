package tracker

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/octalwise/tracks/business/data/rail"
	"github.com/octalwise/tracks/foundation/httpclient"
)

type testLogWriter struct {
	mu       sync.Mutex
	logLines []string
	log      *log.Logger
}

func makeTestLogWriter() *testLogWriter {
	logWriter := testLogWriter{
		logLines: make([]string, 0),
	}
	logger := log.New(&logWriter, "TRACKS : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logWriter.log = logger
	return &logWriter
}

func (t *testLogWriter) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.logLines = append(t.logLines, string(p))
	return len(p), nil
}

// contains returns true if any logged line contains s
func (t *testLogWriter) contains(s string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, line := range t.logLines {
		if strings.Contains(line, s) {
			return true
		}
	}
	return false
}

func intPtr(i int) *int {
	return &i
}

// testStationInfos is the four station line used by the testdata documents
var testStationInfos = []rail.StationInfo{
	{Name: "Alpha", North: 1, South: 2},
	{Name: "Bravo", North: 3, South: 4},
	{Name: "Charlie", North: 5, South: 6},
	{Name: "Delta", North: 7, South: 8},
}

func getTestLocation(t *testing.T) *time.Location {
	location, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Fatalf("Unable to load \"America/Los_Angeles\" timezone: %v", err)
	}
	return location
}

func getTestEngine(t *testing.T) *Engine {
	registry, err := rail.NewStationRegistry(testStationInfos)
	if err != nil {
		t.Fatalf("unable to build test registry: %v", err)
	}
	return NewEngine(registry, getTestLocation(t), rail.DefaultBoundaryHour)
}

func readTestData(t *testing.T, name string) []byte {
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("unable to read testdata file %s: %v", name, err)
	}
	return data
}

// weekdayMorning is a Tuesday with trips 101 and 102 running
func weekdayMorning(t *testing.T) time.Time {
	return time.Date(2024, 6, 18, 8, 15, 0, 0, getTestLocation(t))
}

// holidayMorning falls on the June 19 holiday listed in testdata/holidays.html, with trip 201 running
func holidayMorning(t *testing.T) time.Time {
	return time.Date(2024, 6, 19, 9, 20, 0, 0, getTestLocation(t))
}

func findTestTrain(trains []rail.Train, id int, t *testing.T) *rail.Train {
	train := rail.FindTrain(trains, id)
	if train == nil {
		t.Fatalf("unable to find test train %d", id)
	}
	return train
}

// testDocument is a document served by fakeRetriever
type testDocument struct {
	body []byte
	etag string
	err  error
}

// fakeRetriever serves documents from memory and counts retrievals per url
type fakeRetriever struct {
	mu        sync.Mutex
	documents map[string]testDocument
	retrieved map[string]int
}

func makeFakeRetriever() *fakeRetriever {
	return &fakeRetriever{
		documents: make(map[string]testDocument),
		retrieved: make(map[string]int),
	}
}

func (f *fakeRetriever) set(url string, document testDocument) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.documents[url] = document
}

func (f *fakeRetriever) retrievals(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.retrieved[url]
}

func (f *fakeRetriever) Retrieve(_ context.Context, url string) (*httpclient.RetrievedDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retrieved[url]++
	document, present := f.documents[url]
	if !present {
		return nil, &httpclient.StatusError{Url: url, StatusCode: 404, Status: "404 Not Found"}
	}
	if document.err != nil {
		return nil, document.err
	}
	return &httpclient.RetrievedDocument{
		RemoteFileInfo: httpclient.RemoteFileInfo{ETag: document.etag, Path: url},
		Body:           document.body,
		RetrievedAt:    time.Now(),
	}, nil
}

func (f *fakeRetriever) GetRemoteFileInfo(_ context.Context, url string) (httpclient.RemoteFileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	document, present := f.documents[url]
	if !present {
		return httpclient.RemoteFileInfo{}, fmt.Errorf("no document at %s", url)
	}
	return httpclient.RemoteFileInfo{ETag: document.etag, Path: url}, nil
}

const (
	testTimetableUrl = "https://example.com/timetable"
	testHolidayUrl   = "https://example.com/holidays"
	testLiveUrl      = "https://example.com/live"
	testAlertsUrl    = "https://example.com/alerts"
)

// makeTestTracker creates a tracker reading the testdata documents, with nothing to publish to
func makeTestTracker(t *testing.T, now time.Time) (*tracker, *fakeRetriever, *testLogWriter) {
	logWriter := makeTestLogWriter()
	retriever := makeFakeRetriever()
	retriever.set(testTimetableUrl, testDocument{body: readTestData(t, "timetable.html"), etag: "\"v1\""})
	retriever.set(testHolidayUrl, testDocument{body: readTestData(t, "holidays.html")})
	retriever.set(testLiveUrl, testDocument{body: readTestData(t, "live.json")})
	retriever.set(testAlertsUrl, testDocument{body: readTestData(t, "alerts.json")})

	metrics := NewCollector()
	return &tracker{
		log:       logWriter.log,
		engine:    getTestEngine(t),
		retriever: retriever,
		feed: FeedConfig{
			TimetableUrl: testTimetableUrl,
			HolidayUrl:   testHolidayUrl,
			LiveUrl:      testLiveUrl,
			AlertsUrl:    testAlertsUrl,
		},
		refresh:    RefreshConfig{MaxRetries: 0, RequestTimeoutSeconds: 5},
		collection: makeSnapshotCollection(),
		publisher:  makeSnapshotPublisher(logWriter.log, nil, nil, "tracks.trains", metrics),
		metrics:    metrics,
		now: func() time.Time {
			return now
		},
	}, retriever, logWriter
}
