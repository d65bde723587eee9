package tracker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/matryer/is"
	"google.golang.org/protobuf/proto"
)

// makeTestRouter returns the read api over a tracker loaded with the testdata documents
func makeTestRouter(t *testing.T) (http.Handler, *tracker) {
	tr, _, logWriter := makeTestTracker(t, weekdayMorning(t))
	ctx := context.Background()
	if _, err := tr.refreshSchedule(ctx); err != nil {
		t.Fatalf("unable to load test schedule: %v", err)
	}
	if err := tr.refreshAlerts(ctx); err != nil {
		t.Fatalf("unable to load test alerts: %v", err)
	}
	tr.refreshTrains(ctx)
	return createRouter(logWriter.log, tr.engine, tr.collection, tr.metrics, nil, tr.now), tr
}

func serveTestRequest(router http.Handler, target string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, target, nil))
	return recorder
}

func Test_createRouter_statusCodes(t *testing.T) {
	router, _ := makeTestRouter(t)
	tests := []struct {
		target   string
		wantCode int
	}{
		{target: "/", wantCode: http.StatusOK},
		{target: "/trains", wantCode: http.StatusOK},
		{target: "/trains/101", wantCode: http.StatusOK},
		{target: "/trains/999", wantCode: http.StatusNotFound},
		{target: "/trains/abc", wantCode: http.StatusBadRequest},
		{target: "/stations", wantCode: http.StatusOK},
		{target: "/stations/charlie/board", wantCode: http.StatusOK},
		{target: "/stations/Charlie/board?direction=sideways", wantCode: http.StatusBadRequest},
		{target: "/stations/Nowhere/board", wantCode: http.StatusNotFound},
		{target: "/trips?from=Delta&to=Alpha", wantCode: http.StatusOK},
		{target: "/trips?from=Delta", wantCode: http.StatusBadRequest},
		{target: "/trips?from=Delta&to=Nowhere", wantCode: http.StatusNotFound},
		{target: "/alerts", wantCode: http.StatusOK},
		{target: "/tripUpdates", wantCode: http.StatusOK},
		{target: "/metrics", wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			is := is.New(t)
			is.Equal(tt.wantCode, serveTestRequest(router, tt.target).Code)
		})
	}
}

func Test_createRouter_unavailableBeforeFirstSnapshot(t *testing.T) {
	is := is.New(t)
	tr, _, logWriter := makeTestTracker(t, weekdayMorning(t))
	router := createRouter(logWriter.log, tr.engine, tr.collection, tr.metrics, nil, tr.now)

	for _, target := range []string{"/trains", "/trains/101", "/stations", "/stations/Alpha/board",
		"/trips?from=Alpha&to=Delta"} {
		is.Equal(http.StatusServiceUnavailable, serveTestRequest(router, target).Code)
	}
	is.Equal(http.StatusOK, serveTestRequest(router, "/alerts").Code)
	is.Equal(http.StatusOK, serveTestRequest(router, "/tripUpdates").Code)
}

func Test_trainsHandler_serveTrains(t *testing.T) {
	is := is.New(t)
	router, tr := makeTestRouter(t)

	recorder := serveTestRequest(router, "/trains")
	is.Equal("application/json", recorder.Header().Get("Content-Type"))
	var response TrainsResponse
	is.NoErr(json.Unmarshal(recorder.Body.Bytes(), &response))
	snapshot := tr.collection.currentSnapshot()
	is.Equal(snapshot.Version.String(), response.Version)
	is.Equal(weekdayMorning(t).Unix(), response.Timestamp)
	is.Equal("weekday", string(response.Service))
	is.Equal(2, len(response.Trains))
	is.Equal(intPtr(6), findTestTrain(response.Trains, 102, t).Location)

	defaultResponse := serveTestRequest(router, "/")
	is.Equal("OK", defaultResponse.Header().Get("Application-Status"))
	is.Equal(snapshot.Version.String(), defaultResponse.Header().Get("Snapshot-Version"))
}

func Test_trainsHandler_serveTrain(t *testing.T) {
	is := is.New(t)
	router, _ := makeTestRouter(t)

	var response TrainResponse
	is.NoErr(json.Unmarshal(serveTestRequest(router, "/trains/101").Body.Bytes(), &response))
	is.Equal(101, response.Train.Id)
	//the stop the train is located at is left out
	is.Equal(3, len(response.Itinerary))
	is.Equal("Delta", response.Itinerary[0].Station)
	is.True(!response.Itinerary[0].Upcoming)
	is.Equal("Charlie", response.Itinerary[1].Station)
	is.True(!response.Itinerary[1].Upcoming)
	is.Equal("Alpha", response.Itinerary[2].Station)
	is.True(response.Itinerary[2].Upcoming)
}

func Test_trainsHandler_serveStations(t *testing.T) {
	is := is.New(t)
	router, _ := makeTestRouter(t)

	var response StationsResponse
	is.NoErr(json.Unmarshal(serveTestRequest(router, "/stations").Body.Bytes(), &response))
	is.Equal(4, len(response.Stations))
	//101 is half way from Charlie to Bravo, 102 reports itself at Charlie
	bravo := response.Stations[1]
	is.Equal("Bravo", bravo.Name)
	is.Equal(intPtr(101), bravo.North.TrainId)
	charlie := response.Stations[2]
	is.Equal("Charlie", charlie.Name)
	is.True(charlie.North.TrainId == nil)
	is.Equal(intPtr(102), charlie.South.TrainId)
	is.True(response.Stations[0].North.TrainId == nil)
}

func Test_trainsHandler_serveBoard(t *testing.T) {
	router, _ := makeTestRouter(t)
	tests := []struct {
		name      string
		target    string
		wantTrain []int
		wantPast  []bool
	}{
		{
			name:      "defaults to northbound",
			target:    "/stations/Charlie/board",
			wantTrain: []int{101},
			wantPast:  []bool{true},
		},
		{
			name:      "southbound",
			target:    "/stations/Charlie/board?direction=S",
			wantTrain: []int{102},
			wantPast:  []bool{false},
		},
		{
			name:      "no calls",
			target:    "/stations/Alpha/board?direction=south",
			wantTrain: []int{},
			wantPast:  []bool{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			var response BoardResponse
			is.NoErr(json.Unmarshal(serveTestRequest(router, tt.target).Body.Bytes(), &response))
			is.Equal(len(tt.wantTrain), len(response.Entries))
			for i, entry := range response.Entries {
				is.Equal(tt.wantTrain[i], entry.Train.Id)
				is.Equal(tt.wantPast[i], entry.Past)
			}
		})
	}
}

func Test_trainsHandler_serveTrips(t *testing.T) {
	router, _ := makeTestRouter(t)
	tests := []struct {
		name         string
		target       string
		wantTrains   []int
		wantUpcoming []bool
	}{
		{
			name:         "northbound trip already departed",
			target:       "/trips?from=Delta&to=Alpha",
			wantTrains:   []int{101},
			wantUpcoming: []bool{false},
		},
		{
			name:         "live train",
			target:       "/trips?from=charlie&to=delta",
			wantTrains:   []int{102},
			wantUpcoming: []bool{true},
		},
		{
			name:         "wrong direction",
			target:       "/trips?from=Alpha&to=Delta",
			wantTrains:   []int{},
			wantUpcoming: []bool{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			var response TripsResponse
			is.NoErr(json.Unmarshal(serveTestRequest(router, tt.target).Body.Bytes(), &response))
			is.Equal(len(tt.wantTrains), len(response.Trips))
			for i, trip := range response.Trips {
				is.Equal(tt.wantTrains[i], trip.Train.Id)
				is.Equal(tt.wantUpcoming[i], trip.Upcoming)
			}
		})
	}
}

func Test_trainsHandler_serveAlerts(t *testing.T) {
	is := is.New(t)
	router, _ := makeTestRouter(t)

	var response AlertsResponse
	is.NoErr(json.Unmarshal(serveTestRequest(router, "/alerts").Body.Bytes(), &response))
	is.Equal(2, len(response.Alerts))
}

func Test_trainsHandler_serveTripUpdates(t *testing.T) {
	is := is.New(t)
	router, _ := makeTestRouter(t)

	recorder := serveTestRequest(router, "/tripUpdates")
	is.Equal("application/x-protobuf", recorder.Header().Get("Content-Type"))
	var feedMessage gtfsrt.FeedMessage
	is.NoErr(proto.Unmarshal(recorder.Body.Bytes(), &feedMessage))
	is.Equal(2, len(feedMessage.Entity))

	text := serveTestRequest(router, "/tripUpdates?text=true")
	is.Equal("text/plain", text.Header().Get("Content-Type"))
	is.True(strings.Contains(text.Body.String(), "gtfs_realtime_version"))
}

func Test_createRouter_cors(t *testing.T) {
	is := is.New(t)
	router, _ := makeTestRouter(t)

	request := httptest.NewRequest(http.MethodGet, "/trains", nil)
	request.Header.Set("Origin", "https://trains.example.com")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	is.Equal("*", recorder.Header().Get("Access-Control-Allow-Origin"))
}
