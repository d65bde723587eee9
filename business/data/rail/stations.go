package rail

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalidStations is returned when the station reference data breaks the registry's invariants
var ErrInvalidStations = errors.New("invalid station reference")

// StationInfo is one entry of the station reference file
type StationInfo struct {
	Name  string `json:"name" yaml:"name" validate:"required"`
	North int    `json:"north" yaml:"north" validate:"nefield=South"`
	South int    `json:"south" yaml:"south"`
}

// Station is a StationInfo with its position along the line
type Station struct {
	StationInfo
	Index int
}

// StopId returns the station's stop identifier for travel in direction
func (s *Station) StopId(direction Direction) int {
	if direction == North {
		return s.North
	}
	return s.South
}

// HasStop returns true if stopId is one of the station's two stop identifiers
func (s *Station) HasStop(stopId int) bool {
	return s.North == stopId || s.South == stopId
}

// StationRegistry holds the line's stations in geographic order. Immutable after construction.
type StationRegistry struct {
	stations []Station
	//byStopId maps both directional stop ids to the station's index
	byStopId map[int]int
}

// NewStationRegistry builds a StationRegistry from infos, which must be in the order the stations sit on the line
func NewStationRegistry(infos []StationInfo) (*StationRegistry, error) {
	if len(infos) == 0 {
		return nil, fmt.Errorf("%w: no stations", ErrInvalidStations)
	}
	validate := validator.New()
	registry := StationRegistry{
		stations: make([]Station, 0, len(infos)),
		byStopId: make(map[int]int),
	}
	for i, info := range infos {
		if err := validate.Struct(info); err != nil {
			return nil, fmt.Errorf("%w: station %d (%s): %v", ErrInvalidStations, i, info.Name, err)
		}
		for _, stopId := range []int{info.North, info.South} {
			if existing, present := registry.byStopId[stopId]; present {
				return nil, fmt.Errorf("%w: stop id %d of %s already belongs to %s",
					ErrInvalidStations, stopId, info.Name, registry.stations[existing].Name)
			}
			registry.byStopId[stopId] = i
		}
		registry.stations = append(registry.stations, Station{StationInfo: info, Index: i})
	}
	return &registry, nil
}

// LoadStationRegistry reads a station reference file, yaml when the extension is .yml or .yaml and json otherwise
func LoadStationRegistry(path string) (*StationRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading station reference %s: %w", path, err)
	}
	var infos []StationInfo
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		err = yaml.Unmarshal(data, &infos)
	default:
		err = json.Unmarshal(data, &infos)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing station reference %s: %w", path, err)
	}
	return NewStationRegistry(infos)
}

// Len returns the number of stations
func (r *StationRegistry) Len() int {
	return len(r.stations)
}

// Stations returns a copy of all stations in line order
func (r *StationRegistry) Stations() []Station {
	results := make([]Station, len(r.stations))
	copy(results, r.stations)
	return results
}

// At returns the station at index along the line
func (r *StationRegistry) At(index int) (Station, bool) {
	if index < 0 || index >= len(r.stations) {
		return Station{}, false
	}
	return r.stations[index], true
}

// IndexOf returns the line position of the station owning stopId
func (r *StationRegistry) IndexOf(stopId int) (int, bool) {
	index, present := r.byStopId[stopId]
	return index, present
}

// ByStopId returns the station owning stopId
func (r *StationRegistry) ByStopId(stopId int) (Station, bool) {
	index, present := r.byStopId[stopId]
	if !present {
		return Station{}, false
	}
	return r.stations[index], true
}

// ByName finds a station by name ignoring case and surrounding space
func (r *StationRegistry) ByName(name string) (Station, bool) {
	name = strings.TrimSpace(name)
	for _, station := range r.stations {
		if strings.EqualFold(station.Name, name) {
			return station, true
		}
	}
	return Station{}, false
}

// UnorderedTrips returns the sorted ids of trips whose stops don't follow the registry order in one direction.
// Stops at unknown stations are ignored.
func (r *StationRegistry) UnorderedTrips(stopTimesByTrip map[int][]StopTime) []int {
	var results []int
	for tripId, stopTimes := range stopTimesByTrip {
		if !r.monotonic(stopTimes) {
			results = append(results, tripId)
		}
	}
	sort.Ints(results)
	return results
}

func (r *StationRegistry) monotonic(stopTimes []StopTime) bool {
	last := -1
	step := 0
	for _, stopTime := range stopTimes {
		index, present := r.IndexOf(stopTime.StopId)
		if !present {
			continue
		}
		if last >= 0 && index != last {
			current := 1
			if index < last {
				current = -1
			}
			if step != 0 && current != step {
				return false
			}
			step = current
		}
		last = index
	}
	return true
}
