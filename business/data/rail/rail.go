// Package rail provides the schedule and position engine for a commuter rail line
package rail

import (
	"encoding/json"
	"fmt"
	"time"
)

// Direction of travel along the line
type Direction string

const (
	North Direction = "N"
	South Direction = "S"
)

// String implements Stringer interface for Direction
func (d Direction) String() string {
	switch d {
	case North:
		return "Northbound"
	case South:
		return "Southbound"
	}
	return "Unknown"
}

// ParseDirection accepts "N", "S", "north", "southbound" and similar
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "N", "n", "north", "North", "northbound", "Northbound":
		return North, nil
	case "S", "s", "south", "South", "southbound", "Southbound":
		return South, nil
	}
	return "", fmt.Errorf("unknown direction %q", s)
}

// ServiceType identifies which day pattern a trip runs on
type ServiceType string

const (
	Weekday ServiceType = "weekday"
	Weekend ServiceType = "weekend"
	// Normal trips run on whichever day type is selected
	Normal ServiceType = "normal"
)

// RunsOn returns true if a trip tagged with s runs on a service day of type day
func (s ServiceType) RunsOn(day ServiceType) bool {
	return s == day || s == Normal
}

// Trip is a single scheduled run extracted from the timetable
type Trip struct {
	TripId      int         `json:"trip_id"`
	Direction   Direction   `json:"direction"`
	RouteId     string      `json:"route_id"`
	ServiceType ServiceType `json:"service_type"`
}

// StopTime is a trip's scheduled visit to a stop, without a date.
// Time is the number of seconds since midnight.
type StopTime struct {
	TripId int `json:"trip_id"`
	StopId int `json:"stop_id"`
	Time   int `json:"time"`
}

func (s StopTime) Hour() int {
	return s.Time / 3600
}

func (s StopTime) Minute() int {
	return (s.Time % 3600) / 60
}

func (s StopTime) Second() int {
	return s.Time % 60
}

// AnchoredStopTime is a StopTime resolved to a timestamp on the current operating day
type AnchoredStopTime struct {
	StopTime
	At time.Time `json:"at"`
}

// Timetable holds everything extracted from one timetable document.
// StopTimes keep document row order, which is the order the train visits the stops.
type Timetable struct {
	Trips     []Trip     `json:"trips"`
	StopTimes []StopTime `json:"stop_times"`
}

// StopTimesByTrip groups StopTimes by TripId, preserving visiting order
func (t *Timetable) StopTimesByTrip() map[int][]StopTime {
	results := make(map[int][]StopTime)
	for _, stopTime := range t.StopTimes {
		results[stopTime.TripId] = append(results[stopTime.TripId], stopTime)
	}
	return results
}

// TripsRunningOn returns the trips that run on service day type day, in timetable order
func (t *Timetable) TripsRunningOn(day ServiceType) []Trip {
	results := make([]Trip, 0)
	for _, trip := range t.Trips {
		if trip.ServiceType.RunsOn(day) {
			results = append(results, trip)
		}
	}
	return results
}

// Stop is a train's call at a stop, as presented to users
type Stop struct {
	StopId    int
	Scheduled time.Time
	Expected  time.Time
}

// Delay is the observed difference between expected and scheduled time
func (s Stop) Delay() time.Duration {
	return s.Expected.Sub(s.Scheduled)
}

// stopJSON is the wire format of Stop, times are unix seconds
type stopJSON struct {
	Station   int   `json:"station"`
	Scheduled int64 `json:"scheduled"`
	Expected  int64 `json:"expected"`
}

// MarshalJSON writes Stop with unix second timestamps
func (s Stop) MarshalJSON() ([]byte, error) {
	return json.Marshal(stopJSON{
		Station:   s.StopId,
		Scheduled: s.Scheduled.Unix(),
		Expected:  s.Expected.Unix(),
	})
}

// UnmarshalJSON reads Stop with unix second timestamps
func (s *Stop) UnmarshalJSON(data []byte) error {
	var wire stopJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	s.StopId = wire.Station
	s.Scheduled = time.Unix(wire.Scheduled, 0)
	s.Expected = time.Unix(wire.Expected, 0)
	return nil
}

// Train is the merged record of a scheduled or live train
type Train struct {
	Id          int         `json:"id"`
	Live        bool        `json:"live"`
	Direction   Direction   `json:"direction"`
	Route       string      `json:"route"`
	ServiceType ServiceType `json:"service_type"`
	//Location is the stop id the train is at or approaching, nil when not running
	Location *int   `json:"location"`
	Stops    []Stop `json:"stops"`
}

// StopAtStation returns the train's first call at either side of station, nil if it does not call there
func (t *Train) StopAtStation(station *Station) *Stop {
	for i := range t.Stops {
		if station.HasStop(t.Stops[i].StopId) {
			return &t.Stops[i]
		}
	}
	return nil
}

// stopIndex returns the position in Stops of the first stop at either of the ids, -1 if none
func (t *Train) stopIndex(stopIds ...int) int {
	for i, stop := range t.Stops {
		for _, id := range stopIds {
			if stop.StopId == id {
				return i
			}
		}
	}
	return -1
}

// Alert is a service alert passed through to readers
type Alert struct {
	Header      string  `json:"header"`
	Description *string `json:"description"`
}
