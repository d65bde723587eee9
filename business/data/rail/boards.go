package rail

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// PastTolerance is how long after its expected time a stop is still shown as upcoming
const PastTolerance = time.Minute

// StationSide is one directional platform of a station and the train currently located there
type StationSide struct {
	StopId  int    `json:"id"`
	Name    string `json:"name"`
	TrainId *int   `json:"train"`
}

// StationStatus pairs a station with the trains currently at or approaching either of its sides
type StationStatus struct {
	Name  string      `json:"name"`
	North StationSide `json:"north"`
	South StationSide `json:"south"`
}

// StationStatuses returns the status of every station in line order
func StationStatuses(registry *StationRegistry, trains []Train) []StationStatus {
	byLocation := make(map[int]int)
	for _, train := range trains {
		if train.Location == nil {
			continue
		}
		if _, present := byLocation[*train.Location]; !present {
			byLocation[*train.Location] = train.Id
		}
	}
	side := func(station Station, direction Direction) StationSide {
		stopId := station.StopId(direction)
		result := StationSide{
			StopId: stopId,
			Name:   fmt.Sprintf("%s %s", station.Name, direction),
		}
		if trainId, present := byLocation[stopId]; present {
			id := trainId
			result.TrainId = &id
		}
		return result
	}

	stations := registry.Stations()
	results := make([]StationStatus, 0, len(stations))
	for _, station := range stations {
		results = append(results, StationStatus{
			Name:  station.Name,
			North: side(station, North),
			South: side(station, South),
		})
	}
	return results
}

// BoardEntry is a train's call at a station
type BoardEntry struct {
	Train *Train `json:"train"`
	Stop  Stop   `json:"stop"`
	Past  bool   `json:"past"`
}

// StationBoard lists trains travelling in direction that call at station, ordered by expected time
func StationBoard(station Station, direction Direction, trains []Train, now time.Time) []BoardEntry {
	cutoff := now.Add(-PastTolerance)
	results := make([]BoardEntry, 0)
	for i := range trains {
		train := &trains[i]
		if train.Direction != direction {
			continue
		}
		stop := train.StopAtStation(&station)
		if stop == nil {
			continue
		}
		results = append(results, BoardEntry{
			Train: train,
			Stop:  *stop,
			Past:  stop.Expected.Before(cutoff),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Stop.Expected.Before(results[j].Stop.Expected)
	})
	return results
}

// PlannedTrip is a train that can be taken from one station to another
type PlannedTrip struct {
	Train    *Train `json:"train"`
	Depart   Stop   `json:"depart"`
	Arrive   Stop   `json:"arrive"`
	Upcoming bool   `json:"upcoming"`
}

// PlanTrips finds trains calling at from and then later at to, ordered by expected departure
func PlanTrips(from, to Station, trains []Train, now time.Time) []PlannedTrip {
	cutoff := now.Add(-PastTolerance)
	results := make([]PlannedTrip, 0)
	for i := range trains {
		train := &trains[i]
		departIndex := train.stopIndex(from.North, from.South)
		arriveIndex := train.stopIndex(to.North, to.South)
		if departIndex < 0 || arriveIndex < 0 || departIndex >= arriveIndex {
			continue
		}
		depart := train.Stops[departIndex]
		results = append(results, PlannedTrip{
			Train:    train,
			Depart:   depart,
			Arrive:   train.Stops[arriveIndex],
			Upcoming: depart.Expected.After(cutoff),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Depart.Expected.Before(results[j].Depart.Expected)
	})
	return results
}

// ItineraryStop is one remaining or past call of a train
type ItineraryStop struct {
	Stop         Stop   `json:"stop"`
	Station      string `json:"station"`
	DelayMinutes int    `json:"delay_minutes"`
	Upcoming     bool   `json:"upcoming"`
}

// Itinerary lists train's stops other than its current location, ordered by expected time.
// Stops at stations missing from registry are left out.
func Itinerary(train *Train, registry *StationRegistry, now time.Time) []ItineraryStop {
	cutoff := now.Add(-PastTolerance)
	results := make([]ItineraryStop, 0, len(train.Stops))
	for _, stop := range train.Stops {
		if train.Location != nil && stop.StopId == *train.Location {
			continue
		}
		station, present := registry.ByStopId(stop.StopId)
		if !present {
			continue
		}
		results = append(results, ItineraryStop{
			Stop:         stop,
			Station:      station.Name,
			DelayMinutes: int(math.Round(stop.Delay().Minutes())),
			Upcoming:     stop.Expected.After(cutoff),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Stop.Expected.Before(results[j].Stop.Expected)
	})
	return results
}

// FindTrain returns the train with id, or nil
func FindTrain(trains []Train, id int) *Train {
	for i := range trains {
		if trains[i].Id == id {
			return &trains[i]
		}
	}
	return nil
}
