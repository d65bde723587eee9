package tracker

import (
	"bytes"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/octalwise/tracks/app/tracks-svc/timetable"
	"github.com/octalwise/tracks/business/data/rail"
)

// Schedule is an accepted timetable together with the service calendar built from the holiday document
type Schedule struct {
	Timetable *rail.Timetable
	Calendar  *rail.ServiceCalendar
	//LoadedAt is when the timetable was extracted
	LoadedAt time.Time
}

// Snapshot is an immutable, complete set of trains produced by one fetch cycle
type Snapshot struct {
	Version   uuid.UUID        `json:"version"`
	CreatedAt time.Time        `json:"-"`
	Timestamp int64            `json:"timestamp"`
	Service   rail.ServiceType `json:"service"`
	Trains    []rail.Train     `json:"trains"`
}

// Engine turns schedules and live reports into train snapshots for one line
type Engine struct {
	registry     *rail.StationRegistry
	location     *time.Location
	boundaryHour int
}

// NewEngine creates Engine. Instants are evaluated in location.
func NewEngine(registry *rail.StationRegistry, location *time.Location, boundaryHour int) *Engine {
	return &Engine{
		registry:     registry,
		location:     location,
		boundaryHour: boundaryHour,
	}
}

// Registry returns the engine's station registry
func (e *Engine) Registry() *rail.StationRegistry {
	return e.registry
}

// Location returns the line's reference location
func (e *Engine) Location() *time.Location {
	return e.location
}

// NewSchedule builds a Schedule from an extracted timetable and holidays
func (e *Engine) NewSchedule(table *rail.Timetable, holidays []rail.Holiday, loadedAt time.Time) *Schedule {
	return &Schedule{
		Timetable: table,
		Calendar:  rail.NewServiceCalendar(holidays, e.location, e.boundaryHour),
		LoadedAt:  loadedAt,
	}
}

// BuildSnapshot selects the trips of schedule running at now, locates them and merges live reports.
// The returned Snapshot has no Version, a nil schedule produces a snapshot of the live trains only.
func (e *Engine) BuildSnapshot(schedule *Schedule, live []rail.Train, now time.Time) *Snapshot {
	now = now.In(e.location)
	var service rail.ServiceType
	scheduled := make([]rail.Train, 0)
	if schedule != nil {
		service = schedule.Calendar.Service(now)
		if schedule.Timetable != nil {
			scheduled = rail.ScheduledTrains(e.registry, schedule.Timetable, service, now, e.boundaryHour)
		}
	}
	return &Snapshot{
		CreatedAt: now,
		Timestamp: now.Unix(),
		Service:   service,
		Trains:    rail.MergeLiveTrains(scheduled, live),
	}
}

// Cycle runs a complete fetch cycle over already retrieved documents and returns the merged trains.
// An unreadable live report or holiday document degrades to no live trains or no holidays,
// a timetable with malformed times is returned as *timetable.MalformedTimeError.
func (e *Engine) Cycle(timetableDocument, holidayDocument, liveReport []byte, now time.Time) ([]rail.Train, error) {
	table, err := timetable.ReadTimetable(bytes.NewReader(timetableDocument))
	if err != nil {
		return nil, fmt.Errorf("extracting timetable: %w", err)
	}
	holidays, err := timetable.ReadHolidays(bytes.NewReader(holidayDocument))
	if err != nil {
		holidays.Holidays = nil
	}
	live, err := DecodeLiveReport(liveReport)
	if err != nil {
		live = nil
	}
	schedule := e.NewSchedule(table, holidays.Holidays, now)
	return e.BuildSnapshot(schedule, live, now).Trains, nil
}

// UnorderedTrips returns ids of trips in table that don't follow the station registry order
func (e *Engine) UnorderedTrips(table *rail.Timetable) []int {
	return e.registry.UnorderedTrips(table.StopTimesByTrip())
}

// withVersion returns a copy of snapshot stamped with a new version identifier
func withVersion(snapshot *Snapshot) *Snapshot {
	versioned := *snapshot
	versioned.Version = uuid.New()
	return &versioned
}
