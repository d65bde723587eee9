package rail

import (
	"math"
	"sort"
	"time"
)

// ArrivalGraceWindow is how close to the next stop a train snaps to it rather than showing an intermediate station
const ArrivalGraceWindow = 20 * time.Second

// LocateTrain estimates which stop a scheduled train travelling in direction is at or approaching at now.
// Returns nil when the train isn't running at now or its stops can't be placed on the registry.
func LocateTrain(registry *StationRegistry, direction Direction, stops []AnchoredStopTime, now time.Time) *int {
	if len(stops) == 0 {
		return nil
	}
	sorted := make([]AnchoredStopTime, len(stops))
	copy(sorted, stops)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].At.Before(sorted[j].At)
	})

	first := sorted[0]
	last := sorted[len(sorted)-1]
	if now.Before(first.At) || now.After(last.At) {
		return nil
	}

	nextPos := sort.Search(len(sorted), func(i int) bool {
		return sorted[i].At.After(now)
	})
	if nextPos == len(sorted) {
		//now is exactly the last stop's time
		nextPos = len(sorted) - 1
	}
	prevPos := nextPos - 1
	if prevPos < 0 {
		prevPos = 0
	}
	prev := sorted[prevPos]
	next := sorted[nextPos]
	if prev.At.After(now) {
		return nil
	}

	idx1, present := registry.IndexOf(prev.StopId)
	if !present {
		return nil
	}
	idx2, present := registry.IndexOf(next.StopId)
	if !present {
		return nil
	}

	var index int
	switch {
	case idx1 == idx2:
		index = idx1
	case idx2 == registry.Len()-1 && now.After(next.At.Add(ArrivalGraceWindow)):
		return nil
	case !now.Before(next.At.Add(-ArrivalGraceWindow)):
		index = idx2
	default:
		index = idx1 + interpolateOffset(prev.At, next.At, now, idx2-idx1)
	}

	station, present := registry.At(index)
	if !present {
		return nil
	}
	stopId := station.StopId(direction)
	return &stopId
}

// interpolateOffset returns the floor of the share of span covered between leaving at from and arriving at to.
// A negative span floors toward the arrival station.
func interpolateOffset(from, to, now time.Time, span int) int {
	fraction := 0.0
	if total := to.Sub(from); total > 0 {
		fraction = float64(now.Sub(from)) / float64(total)
	}
	fraction = math.Max(0, math.Min(1, fraction))
	return int(math.Floor(fraction * float64(span)))
}
