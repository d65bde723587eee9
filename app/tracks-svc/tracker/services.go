package tracker

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/nats-io/nats.go"
)

// ServiceConfig groups the settings of the tracker's background loops and web service
type ServiceConfig struct {
	Web         WebConfig
	Feed        FeedConfig
	Refresh     RefreshConfig
	NatsSubject string
}

// StartServices loads the first schedule and snapshot then brings up the timetable, trains and alerts loops and
// the web service. db and natsConn are optional. Returns after all services end on shutdown signal.
func StartServices(log *log.Logger,
	cfg ServiceConfig,
	engine *Engine,
	retriever DocumentRetriever,
	db *sqlx.DB,
	natsConn *nats.Conn,
	shutdownSignal chan os.Signal) {

	metrics := NewCollector()
	collection := makeSnapshotCollection()
	t := &tracker{
		log:        log,
		engine:     engine,
		retriever:  retriever,
		feed:       cfg.Feed,
		refresh:    cfg.Refresh,
		collection: collection,
		publisher:  makeSnapshotPublisher(log, db, natsConn, cfg.NatsSubject, metrics),
		metrics:    metrics,
		now:        time.Now,
	}

	//cancelled on shutdown to abandon retries in progress
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := t.refreshSchedule(ctx); err != nil {
		log.Printf("unable to load initial schedule: %v", err)
	}
	if err := t.refreshAlerts(ctx); err != nil {
		log.Printf("unable to load initial alerts: %v", err)
	}
	t.refreshTrains(ctx)

	wg := sync.WaitGroup{}

	//create shutdown channels
	timetableLoopShutdown := make(chan bool, 1)
	trainsLoopShutdown := make(chan bool, 1)
	alertsLoopShutdown := make(chan bool, 1)
	webServiceShutdown := make(chan bool, 1)

	//start all child services
	wg.Add(4)
	go runRefreshLoop(log, &wg, "timetable", cfg.Refresh.TimetableEverySeconds, func() {
		updated, err := t.refreshSchedule(ctx)
		if err != nil {
			log.Printf("timetable refresh failed: %v", err)
		}
		if updated {
			t.refreshTrains(ctx)
		}
	}, timetableLoopShutdown)
	go runRefreshLoop(log, &wg, "trains", cfg.Refresh.TrainsEverySeconds, func() {
		t.refreshTrains(ctx)
	}, trainsLoopShutdown)
	go runRefreshLoop(log, &wg, "alerts", cfg.Refresh.AlertsEverySeconds, func() {
		if err := t.refreshAlerts(ctx); err != nil {
			log.Printf("alerts refresh failed, keeping previous alerts: %v", err)
		}
	}, alertsLoopShutdown)
	go runWebService(log, &wg, engine, collection, metrics, cfg.Web, webServiceShutdown)

	<-shutdownSignal
	log.Printf("Exiting on shutdown signal, shutting down subroutines")
	cancel()
	timetableLoopShutdown <- true
	trainsLoopShutdown <- true
	alertsLoopShutdown <- true
	webServiceShutdown <- true
	wg.Wait()
	log.Printf("Subroutines shut down, exiting tracks service")
}

// runRefreshLoop calls refresh every everySeconds until shutdown signal
func runRefreshLoop(log *log.Logger,
	wg *sync.WaitGroup,
	name string,
	everySeconds int,
	refresh func(),
	shutdownSignal chan bool) {
	defer wg.Done()

	sleepChan := make(chan bool, 1)
	sleep := time.Duration(everySeconds) * time.Second
	if sleep <= 0 {
		sleep = time.Minute
	}

	for {

		go func() {
			time.Sleep(sleep)
			sleepChan <- true
		}()

		select {
		case <-shutdownSignal:
			log.Printf("Exiting %s loop on shutdown signal", name)
			return
		case <-sleepChan:
		}

		refresh()
	}
}
