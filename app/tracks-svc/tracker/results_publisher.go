package tracker

import (
	"encoding/json"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/nats-io/nats.go"
	"github.com/octalwise/tracks/business/data/rail"
)

// natsPublisher is the part of nats.Conn used to send snapshots
type natsPublisher interface {
	Publish(subj string, data []byte) error
}

// snapshotPublisher takes snapshots built by the tracker and sends them to their
// destinations (such as database and nats)
type snapshotPublisher struct {
	log              *log.Logger
	db               *sqlx.DB
	natsConnection   natsPublisher
	subject          string
	recordToDatabase bool
	publishOverNats  bool
	metrics          *Collector
}

// makeSnapshotPublisher creates snapshotPublisher, nil db or natsConnection disable their destination
func makeSnapshotPublisher(log *log.Logger,
	db *sqlx.DB,
	natsConnection *nats.Conn,
	subject string,
	metrics *Collector) *snapshotPublisher {
	publisher := snapshotPublisher{
		log:              log,
		db:               db,
		subject:          subject,
		recordToDatabase: db != nil,
		publishOverNats:  natsConnection != nil,
		metrics:          metrics,
	}
	if natsConnection != nil {
		publisher.natsConnection = natsConnection
	}
	return &publisher
}

// publish sends the snapshot over NATS and records its live stop delays to the database according to
// publishOverNats and recordToDatabase
func (p *snapshotPublisher) publish(snapshot *Snapshot) {
	if p.publishOverNats {
		p.sendOverNats(snapshot)
	}
	if p.recordToDatabase {
		p.record(snapshot)
	}
}

func (p *snapshotPublisher) sendOverNats(snapshot *Snapshot) {
	jsonData, err := json.Marshal(snapshot)
	if err != nil {
		p.log.Printf("failed to marshal Snapshot in snapshotPublisher.sendOverNats, error:%v", err)
		p.metrics.NATSPublishErrs.Inc()
		return
	}
	err = p.natsConnection.Publish(p.subject, jsonData)
	if err != nil {
		p.log.Printf("failed to send Snapshot %s in snapshotPublisher.sendOverNats, error:%v",
			snapshot.Version, err)
		p.metrics.NATSPublishErrs.Inc()
		return
	}
	p.metrics.NATSPublished.Inc()
}

func (p *snapshotPublisher) record(snapshot *Snapshot) {
	stopDelays := rail.CollectStopDelays(snapshot.Trains, snapshot.CreatedAt)
	err := rail.RecordStopDelays(stopDelays, p.db)
	if err != nil {
		p.log.Printf("Error saving %d stop delays for snapshot %s. error: %v", len(stopDelays),
			snapshot.Version, err)
		return
	}
	p.metrics.RecordedDelays.Add(float64(len(stopDelays)))
}
