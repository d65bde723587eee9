package rail

import (
	"time"
)

// ScheduledTrains builds the scheduled Train list for the trips in timetable running on service.
// Stop times are anchored to the operating day containing now and each train is located along the line.
// now must already be in the line's reference location.
func ScheduledTrains(registry *StationRegistry,
	timetable *Timetable,
	service ServiceType,
	now time.Time,
	boundaryHour int) []Train {

	stopTimesByTrip := timetable.StopTimesByTrip()
	trips := timetable.TripsRunningOn(service)
	results := make([]Train, 0, len(trips))
	for _, trip := range trips {
		anchored := AnchorStopTimes(stopTimesByTrip[trip.TripId], now, boundaryHour)
		stops := make([]Stop, 0, len(anchored))
		for _, stopTime := range anchored {
			stops = append(stops, Stop{
				StopId:    stopTime.StopId,
				Scheduled: stopTime.At,
				Expected:  stopTime.At,
			})
		}
		results = append(results, Train{
			Id:          trip.TripId,
			Live:        false,
			Direction:   trip.Direction,
			Route:       trip.RouteId,
			ServiceType: trip.ServiceType,
			Location:    LocateTrain(registry, trip.Direction, anchored, now),
			Stops:       stops,
		})
	}
	return results
}
