package tracker

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/octalwise/tracks/business/data/rail"
)

// liveTrain is the wire format of a live train report. Older feeds name the route "line".
type liveTrain struct {
	Id          int              `json:"id"`
	Direction   string           `json:"direction"`
	Route       string           `json:"route"`
	Line        string           `json:"line"`
	ServiceType rail.ServiceType `json:"service_type"`
	Location    *int             `json:"location"`
	Stops       []rail.Stop      `json:"stops"`
}

// DecodeLiveReport decodes a live train report. Every decoded train is marked live.
// An empty report decodes to no trains.
func DecodeLiveReport(data []byte) ([]rail.Train, error) {
	results := make([]rail.Train, 0)
	if len(bytes.TrimSpace(data)) == 0 {
		return results, nil
	}
	var reports []liveTrain
	if err := json.Unmarshal(data, &reports); err != nil {
		return nil, fmt.Errorf("decoding live report: %w", err)
	}
	for _, report := range reports {
		direction, err := rail.ParseDirection(report.Direction)
		if err != nil {
			return nil, fmt.Errorf("decoding live train %d: %w", report.Id, err)
		}
		route := report.Route
		if route == "" {
			route = report.Line
		}
		serviceType := report.ServiceType
		if serviceType == "" {
			serviceType = rail.Normal
		}
		stops := report.Stops
		if stops == nil {
			stops = make([]rail.Stop, 0)
		}
		results = append(results, rail.Train{
			Id:          report.Id,
			Live:        true,
			Direction:   direction,
			Route:       route,
			ServiceType: serviceType,
			Location:    report.Location,
			Stops:       stops,
		})
	}
	return results, nil
}
