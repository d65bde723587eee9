package rail

import (
	"time"
)

const (
	// DefaultBoundaryHour is the hour before which the night still belongs to the previous service day
	DefaultBoundaryHour = 3
	secondsPerDay       = 24 * 60 * 60
)

// Get12AmTime returns midnight of date's day in date's location
func Get12AmTime(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
}

// ServiceDate returns midnight of the service day "at" belongs to.
// Instants before boundaryHour belong to the previous day.
func ServiceDate(at time.Time, boundaryHour int) time.Time {
	serviceDate := Get12AmTime(at)
	if at.Hour() < boundaryHour {
		serviceDate = serviceDate.AddDate(0, 0, -1)
	}
	return serviceDate
}

// anchorOffset returns the number of days to move a stop at stopHour relative to now's date
func anchorOffset(nowHour, stopHour, boundaryHour int) int {
	if nowHour < boundaryHour && stopHour >= boundaryHour {
		//still running yesterday's service
		return -1
	}
	if nowHour >= boundaryHour && stopHour < boundaryHour {
		//after midnight part of today's service
		return 1
	}
	return 0
}

// AnchorStopTime resolves stopTime's time of day to a timestamp on the operating day containing now.
// now must already be in the line's reference location.
func AnchorStopTime(stopTime StopTime, now time.Time, boundaryHour int) AnchoredStopTime {
	offset := anchorOffset(now.Hour(), stopTime.Hour(), boundaryHour)
	at := time.Date(now.Year(), now.Month(), now.Day()+offset,
		stopTime.Hour(), stopTime.Minute(), stopTime.Second(), 0, now.Location())
	return AnchoredStopTime{
		StopTime: stopTime,
		At:       at,
	}
}

// AnchorStopTimes anchors every stop time independently, keeping their order
func AnchorStopTimes(stopTimes []StopTime, now time.Time, boundaryHour int) []AnchoredStopTime {
	results := make([]AnchoredStopTime, 0, len(stopTimes))
	for _, stopTime := range stopTimes {
		results = append(results, AnchorStopTime(stopTime, now, boundaryHour))
	}
	return results
}

// SecondsSinceMidnight returns the wall clock time of day of date in seconds
func SecondsSinceMidnight(date time.Time) int {
	return date.Hour()*3600 + date.Minute()*60 + date.Second()
}

// MakeStopTime creates a StopTime from wall clock hour, minute and second
func MakeStopTime(tripId, stopId, hour, minute, second int) StopTime {
	return StopTime{
		TripId: tripId,
		StopId: stopId,
		Time:   (hour*3600 + minute*60 + second) % secondsPerDay,
	}
}
