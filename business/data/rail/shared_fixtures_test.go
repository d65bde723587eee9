package rail

import (
	"testing"
	"time"
)

// testStationInfos is a five station line, north stop ids odd and south stop ids even
var testStationInfos = []StationInfo{
	{Name: "San Francisco", North: 1, South: 2},
	{Name: "22nd Street", North: 3, South: 4},
	{Name: "Millbrae", North: 5, South: 6},
	{Name: "Palo Alto", North: 7, South: 8},
	{Name: "San Jose Diridon", North: 9, South: 10},
}

func getTestLocation(t *testing.T) *time.Location {
	location, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Fatalf("Unable to load \"America/Los_Angeles\" timezone: %v", err)
	}
	return location
}

func getTestRegistry(t *testing.T) *StationRegistry {
	registry, err := NewStationRegistry(testStationInfos)
	if err != nil {
		t.Fatalf("unable to build test registry: %v", err)
	}
	return registry
}

func intPtr(i int) *int {
	return &i
}

func clock(hour, minute, second int) int {
	return hour*3600 + minute*60 + second
}

// anchoredAt builds an AnchoredStopTime for stopId at hour:minute on the test date 2024-06-18
func anchoredAt(location *time.Location, stopId, hour, minute int) AnchoredStopTime {
	return AnchoredStopTime{
		StopTime: StopTime{TripId: 101, StopId: stopId, Time: clock(hour, minute, 0)},
		At:       time.Date(2024, 6, 18, hour, minute, 0, 0, location),
	}
}

func makeTestTrain(id int, live bool, direction Direction, stopIds []int, start time.Time) Train {
	train := Train{
		Id:          id,
		Live:        live,
		Direction:   direction,
		Route:       "Local",
		ServiceType: Weekday,
	}
	for i, stopId := range stopIds {
		at := start.Add(time.Duration(i*10) * time.Minute)
		train.Stops = append(train.Stops, Stop{StopId: stopId, Scheduled: at, Expected: at})
	}
	return train
}
