package rail

import (
	"time"

	"github.com/jmoiron/sqlx"
)

// StopDelay records the delay a live report gave for one stop of a train
// primary key consists of ObservedAt, TripId, StopId
type StopDelay struct {
	//ObservedAt is the time of the snapshot the delay was seen in
	ObservedAt time.Time `db:"observed_at" json:"observed_at"`
	TripId     int       `db:"trip_id" json:"trip_id"`
	StopId     int       `db:"stop_id" json:"stop_id"`
	RouteId    string    `db:"route_id" json:"route_id"`
	Scheduled  time.Time `db:"scheduled" json:"scheduled"`
	Expected   time.Time `db:"expected" json:"expected"`
	//DelaySeconds is Expected minus Scheduled, negative when running early
	DelaySeconds int       `db:"delay_seconds" json:"delay_seconds"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// CollectStopDelays returns a StopDelay for every stop of every live train in trains
func CollectStopDelays(trains []Train, observedAt time.Time) []*StopDelay {
	results := make([]*StopDelay, 0)
	for _, train := range trains {
		if !train.Live {
			continue
		}
		for _, stop := range train.Stops {
			results = append(results, &StopDelay{
				ObservedAt:   observedAt,
				TripId:       train.Id,
				StopId:       stop.StopId,
				RouteId:      train.Route,
				Scheduled:    stop.Scheduled,
				Expected:     stop.Expected,
				DelaySeconds: int(stop.Delay() / time.Second),
			})
		}
	}
	return results
}

// RecordStopDelays saves slice of StopDelay into database in batch
func RecordStopDelays(stopDelays []*StopDelay, db *sqlx.DB) error {
	if len(stopDelays) == 0 {
		return nil
	}
	now := time.Now()
	for _, stopDelay := range stopDelays {
		stopDelay.CreatedAt = now
	}

	statementString := "insert into stop_delay " +
		"(observed_at, " +
		"trip_id, " +
		"stop_id, " +
		"route_id, " +
		"scheduled, " +
		"expected, " +
		"delay_seconds, " +
		"created_at) " +
		"values " +
		"(:observed_at, " +
		":trip_id, " +
		":stop_id, " +
		":route_id, " +
		":scheduled, " +
		":expected, " +
		":delay_seconds, " +
		":created_at)"
	statementString = db.Rebind(statementString)
	_, err := db.NamedExec(statementString, stopDelays)
	return err
}
