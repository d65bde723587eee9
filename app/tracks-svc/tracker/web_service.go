package tracker

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/octalwise/tracks/business/data/rail"
	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
)

// WebConfig contains settings for the read api
type WebConfig struct {
	Port                int
	ReadTimeoutSeconds  int
	WriteTimeoutSeconds int
	AllowedOrigins      []string
}

//defaultHttpHandler simple default http handler for default route
type defaultHttpHandler struct {
	collection *snapshotCollection
}

//ServeHTTP implements defaultHttpHandler http.Handler interface
func (h *defaultHttpHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Add("Application-Status", "OK")
	if snapshot := h.collection.currentSnapshot(); snapshot != nil {
		w.Header().Add("Snapshot-Version", snapshot.Version.String())
	}
}

// trainsHandler holds data needed to respond and log train, station and trip requests
type trainsHandler struct {
	log        *log.Logger
	engine     *Engine
	collection *snapshotCollection
	now        func() time.Time
}

// makeTrainsHandler trainsHandler factory
func makeTrainsHandler(log *log.Logger,
	engine *Engine,
	collection *snapshotCollection,
	now func() time.Time) *trainsHandler {
	return &trainsHandler{
		log:        log,
		engine:     engine,
		collection: collection,
		now:        now,
	}
}

// TrainsResponse is the json response of the trains route
type TrainsResponse struct {
	Timestamp int64            `json:"timestamp"`
	Version   string           `json:"version"`
	Service   rail.ServiceType `json:"service"`
	Trains    []rail.Train     `json:"trains"`
}

// TrainResponse is the json response of a single train's itinerary
type TrainResponse struct {
	Timestamp int64                `json:"timestamp"`
	Train     *rail.Train          `json:"train"`
	Itinerary []rail.ItineraryStop `json:"itinerary"`
}

// StationsResponse is the json response of the stations route
type StationsResponse struct {
	Timestamp int64                `json:"timestamp"`
	Stations  []rail.StationStatus `json:"stations"`
}

// BoardResponse is the json response of a station's board
type BoardResponse struct {
	Timestamp int64             `json:"timestamp"`
	Station   string            `json:"station"`
	Direction string            `json:"direction"`
	Entries   []rail.BoardEntry `json:"entries"`
}

// TripsResponse is the json response of the trip planner
type TripsResponse struct {
	Timestamp int64              `json:"timestamp"`
	From      string             `json:"from"`
	To        string             `json:"to"`
	Trips     []rail.PlannedTrip `json:"trips"`
}

// AlertsResponse is the json response of the alerts route
type AlertsResponse struct {
	Timestamp int64        `json:"timestamp"`
	Alerts    []rail.Alert `json:"alerts"`
}

// snapshotOrUnavailable returns the current snapshot, or responds with 503 and returns nil if none is built yet
func (h *trainsHandler) snapshotOrUnavailable(w http.ResponseWriter) *Snapshot {
	snapshot := h.collection.currentSnapshot()
	if snapshot == nil {
		http.Error(w, "trains not loaded yet", http.StatusServiceUnavailable)
	}
	return snapshot
}

func (h *trainsHandler) serveTrains(w http.ResponseWriter, _ *http.Request) {
	snapshot := h.snapshotOrUnavailable(w)
	if snapshot == nil {
		return
	}
	h.writeJSON(w, &TrainsResponse{
		Timestamp: snapshot.Timestamp,
		Version:   snapshot.Version.String(),
		Service:   snapshot.Service,
		Trains:    snapshot.Trains,
	})
}

func (h *trainsHandler) serveTrain(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid train id", http.StatusBadRequest)
		return
	}
	snapshot := h.snapshotOrUnavailable(w)
	if snapshot == nil {
		return
	}
	train := rail.FindTrain(snapshot.Trains, id)
	if train == nil {
		http.Error(w, "train not found", http.StatusNotFound)
		return
	}
	now := h.now()
	h.writeJSON(w, &TrainResponse{
		Timestamp: now.Unix(),
		Train:     train,
		Itinerary: rail.Itinerary(train, h.engine.Registry(), now),
	})
}

func (h *trainsHandler) serveStations(w http.ResponseWriter, _ *http.Request) {
	snapshot := h.snapshotOrUnavailable(w)
	if snapshot == nil {
		return
	}
	h.writeJSON(w, &StationsResponse{
		Timestamp: snapshot.Timestamp,
		Stations:  rail.StationStatuses(h.engine.Registry(), snapshot.Trains),
	})
}

func (h *trainsHandler) serveBoard(w http.ResponseWriter, r *http.Request) {
	station, present := h.engine.Registry().ByName(mux.Vars(r)["name"])
	if !present {
		http.Error(w, "station not found", http.StatusNotFound)
		return
	}
	direction := rail.North
	if value := r.FormValue("direction"); value != "" {
		var err error
		direction, err = rail.ParseDirection(value)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	snapshot := h.snapshotOrUnavailable(w)
	if snapshot == nil {
		return
	}
	now := h.now()
	h.writeJSON(w, &BoardResponse{
		Timestamp: now.Unix(),
		Station:   station.Name,
		Direction: string(direction),
		Entries:   rail.StationBoard(station, direction, snapshot.Trains, now),
	})
}

func (h *trainsHandler) serveTrips(w http.ResponseWriter, r *http.Request) {
	fromName := r.FormValue("from")
	toName := r.FormValue("to")
	if fromName == "" || toName == "" {
		http.Error(w, "from and to stations are required", http.StatusBadRequest)
		return
	}
	registry := h.engine.Registry()
	from, present := registry.ByName(fromName)
	if !present {
		http.Error(w, "from station not found", http.StatusNotFound)
		return
	}
	to, present := registry.ByName(toName)
	if !present {
		http.Error(w, "to station not found", http.StatusNotFound)
		return
	}
	snapshot := h.snapshotOrUnavailable(w)
	if snapshot == nil {
		return
	}
	now := h.now()
	h.writeJSON(w, &TripsResponse{
		Timestamp: now.Unix(),
		From:      from.Name,
		To:        to.Name,
		Trips:     rail.PlanTrips(from, to, snapshot.Trains, now),
	})
}

func (h *trainsHandler) serveAlerts(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, &AlertsResponse{
		Timestamp: h.now().Unix(),
		Alerts:    h.collection.currentAlerts(),
	})
}

// serveTripUpdates sends running trains in GTFS-realtime protocol buffer format, or as text if text=true
func (h *trainsHandler) serveTripUpdates(w http.ResponseWriter, r *http.Request) {
	feedMessage := buildFeedMessage(h.collection.currentSnapshot(), h.now())
	if strings.ToLower(r.FormValue("text")) == "true" {
		stringResponse := prototext.MarshalOptions{Multiline: true}.Format(feedMessage)
		w.Header().Set("Content-Type", "text/plain")
		if _, err := w.Write([]byte(stringResponse)); err != nil {
			h.log.Printf("Error writing bytes to http.ResponseWriter, error:%s", err)
		}
		return
	}
	bytes, err := proto.Marshal(feedMessage)
	if err != nil {
		h.log.Printf("Failed to marshal FeedMessage to bytes, error:%s", err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/x-protobuf")
	if _, err = w.Write(bytes); err != nil {
		h.log.Printf("Error writing bytes to http.ResponseWriter, error:%s", err)
	}
}

// writeJSON marshals response and writes it to w
func (h *trainsHandler) writeJSON(w http.ResponseWriter, response interface{}) {
	jsonData, err := json.Marshal(response)
	if err != nil {
		h.log.Printf("Error marshaling response to json: error:%v\n", err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err = w.Write(jsonData); err != nil {
		h.log.Printf("Error writing json response: %s", err)
	}
}

// createRouter builds the read api's routes, now supplies the instant boards and itineraries are evaluated at
func createRouter(log *log.Logger,
	engine *Engine,
	collection *snapshotCollection,
	metrics *Collector,
	allowedOrigins []string,
	now func() time.Time) http.Handler {

	handler := makeTrainsHandler(log, engine, collection, now)

	r := mux.NewRouter()
	r.Handle("/", &defaultHttpHandler{collection: collection})
	r.HandleFunc("/trains", handler.serveTrains).Methods(http.MethodGet)
	r.HandleFunc("/trains/{id}", handler.serveTrain).Methods(http.MethodGet)
	r.HandleFunc("/stations", handler.serveStations).Methods(http.MethodGet)
	r.HandleFunc("/stations/{name}/board", handler.serveBoard).Methods(http.MethodGet)
	r.HandleFunc("/trips", handler.serveTrips).Methods(http.MethodGet)
	r.HandleFunc("/alerts", handler.serveAlerts).Methods(http.MethodGet)
	r.HandleFunc("/tripUpdates", handler.serveTripUpdates).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler())

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})(r)
}

// createServer creates configured http.Server for the read api
func createServer(log *log.Logger,
	engine *Engine,
	collection *snapshotCollection,
	metrics *Collector,
	cfg WebConfig) *http.Server {

	srv := &http.Server{
		Addr:         strings.Join([]string{"0.0.0.0", strconv.Itoa(cfg.Port)}, ":"),
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		IdleTimeout:  time.Second * 60,
		Handler:      createRouter(log, engine, collection, metrics, cfg.AllowedOrigins, time.Now),
	}
	return srv
}

// runWebService starts up the read api, and terminates on shutdown signal
func runWebService(log *log.Logger,
	wg *sync.WaitGroup,
	engine *Engine,
	collection *snapshotCollection,
	metrics *Collector,
	cfg WebConfig,
	shutdownSignal chan bool,
) {
	defer wg.Done()
	srv := createServer(log, engine, collection, metrics, cfg)
	log.Printf("Starting server on port %d", cfg.Port)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			log.Printf("server ListenAndServe ended. %s", err)
		}
	}()

	<-shutdownSignal
	log.Printf("ending webservice on shutdown signal")
	shutdownCtx, serverCancelFunc := context.WithTimeout(context.Background(), time.Duration(5)*time.Second)
	defer serverCancelFunc()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("error shutting down webservice, error:%s", err)
	}
}
