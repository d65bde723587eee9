package timetable

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/octalwise/tracks/business/data/rail"
)

// MalformedTimeError is returned when a time cell can't be parsed. The whole timetable document is rejected.
type MalformedTimeError struct {
	TripId int
	StopId int
	Value  string
	Err    error
}

func (m *MalformedTimeError) Error() string {
	return fmt.Sprintf("malformed time %q for trip %d at stop %d: %v", m.Value, m.TripId, m.StopId, m.Err)
}

func (m *MalformedTimeError) Unwrap() error {
	return m.Err
}

// baseline all stops routes are published with a weekday and weekend variant of the label
var localRouteLabels = map[string]bool{
	"Local Weekday": true,
	"Local Weekend": true,
}

// NormalizeRoute collapses the weekday and weekend labels of the local service into "Local"
func NormalizeRoute(label string) string {
	if localRouteLabels[label] {
		return "Local"
	}
	return label
}

// parseServiceType maps a header's data-service-type, an empty tag runs on every service day
func parseServiceType(tag string) (rail.ServiceType, bool) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "weekday":
		return rail.Weekday, true
	case "weekend":
		return rail.Weekend, true
	case "normal", "":
		return rail.Normal, true
	}
	return "", false
}

// ReadTimetable extracts every trip and stop time of every service type from the timetable document in r
func ReadTimetable(r io.Reader) (*rail.Timetable, error) {
	document, err := parseDocument(r)
	if err != nil {
		return nil, err
	}
	return ExtractTimetable(document)
}

// ExtractTimetable extracts trips and stop times from a parsed timetable document.
// A document without schedule tables produces an empty Timetable.
// Returns *MalformedTimeError if any time cell is present but can't be parsed.
func ExtractTimetable(document *goquery.Selection) (*rail.Timetable, error) {
	timetable := rail.Timetable{
		Trips:     make([]rail.Trip, 0),
		StopTimes: make([]rail.StopTime, 0),
	}
	knownTrips := make(map[int]bool)

	var err error
	document.Find("table.caltrain_schedule").EachWithBreak(func(i int, table *goquery.Selection) bool {
		direction := rail.South
		if strings.EqualFold(strings.TrimSpace(table.AttrOr("data-direction", "")), "northbound") {
			direction = rail.North
		}
		table.Find("tbody").EachWithBreak(func(_ int, body *goquery.Selection) bool {
			err = extractTableBody(body, direction, &timetable, knownTrips)
			return err == nil
		})
		if err != nil {
			err = fmt.Errorf("schedule table %d (%s): %w", i, direction, err)
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return &timetable, nil
}

// extractTableBody reads the trip headers and stop rows of one direction's table body into timetable
func extractTableBody(body *goquery.Selection,
	direction rail.Direction,
	timetable *rail.Timetable,
	knownTrips map[int]bool) error {

	//column position of each header, used when a time cell has no data-trip-id
	columnTrips := make([]int, 0)
	tableTrips := make(map[int]bool)
	body.Find("tr").First().Find("td.schedule-trip-header").Each(func(_ int, header *goquery.Selection) {
		tripId, ok := intAttr(header, "data-trip-id")
		if !ok {
			columnTrips = append(columnTrips, 0)
			return
		}
		columnTrips = append(columnTrips, tripId)
		serviceType, ok := parseServiceType(header.AttrOr("data-service-type", ""))
		if !ok || knownTrips[tripId] {
			return
		}
		knownTrips[tripId] = true
		tableTrips[tripId] = true
		timetable.Trips = append(timetable.Trips, rail.Trip{
			TripId:      tripId,
			Direction:   direction,
			RouteId:     NormalizeRoute(strings.TrimSpace(header.AttrOr("data-route-id", ""))),
			ServiceType: serviceType,
		})
	})

	var err error
	body.Find("tr[data-stop-id]").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		stopId, ok := intAttr(row, "data-stop-id")
		if !ok {
			return true
		}
		row.Find("td.timepoint").EachWithBreak(func(column int, cell *goquery.Selection) bool {
			value := cellText(cell)
			if value == noCallSentinel {
				return true
			}
			tripId, ok := intAttr(cell, "data-trip-id")
			if !ok {
				if column >= len(columnTrips) {
					return true
				}
				tripId = columnTrips[column]
			}
			seconds, parseErr := parseClockTime(value)
			if parseErr != nil {
				err = &MalformedTimeError{TripId: tripId, StopId: stopId, Value: value, Err: parseErr}
				return false
			}
			if tableTrips[tripId] {
				timetable.StopTimes = append(timetable.StopTimes, rail.StopTime{
					TripId: tripId,
					StopId: stopId,
					Time:   seconds,
				})
			}
			return true
		})
		return err == nil
	})
	return err
}
