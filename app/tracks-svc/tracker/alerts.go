package tracker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/octalwise/tracks/business/data/rail"
)

// DecodeAlerts decodes the service alerts document, dropping alerts without a header
func DecodeAlerts(data []byte) ([]rail.Alert, error) {
	results := make([]rail.Alert, 0)
	if len(bytes.TrimSpace(data)) == 0 {
		return results, nil
	}
	var alerts []rail.Alert
	if err := json.Unmarshal(data, &alerts); err != nil {
		return nil, fmt.Errorf("decoding alerts: %w", err)
	}
	for _, alert := range alerts {
		alert.Header = strings.TrimSpace(alert.Header)
		if alert.Header == "" {
			continue
		}
		if alert.Description != nil && strings.TrimSpace(*alert.Description) == "" {
			alert.Description = nil
		}
		results = append(results, alert)
	}
	return results, nil
}
