// Package timetable extracts trips, stop times and holidays from the rail operator's published html documents
package timetable

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// noCallSentinel marks a time cell for a trip that doesn't call at the row's stop
const noCallSentinel = "--"

// clockLayouts are the accepted 12 hour time cell formats, after upper casing and removing spaces
var clockLayouts = []string{"3:04PM", "3:04:05PM"}

// parseDocument loads an html document from r
func parseDocument(r io.Reader) (*goquery.Selection, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return doc.Selection, nil
}

// intAttr reads attribute name from selection as an int
func intAttr(selection *goquery.Selection, name string) (int, bool) {
	value, present := selection.Attr(name)
	if !present {
		return 0, false
	}
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, false
	}
	return result, true
}

// cellText returns the trimmed text of selection with internal whitespace collapsed
func cellText(selection *goquery.Selection) string {
	return strings.Join(strings.Fields(selection.Text()), " ")
}

// parseClockTime parses a 12 hour wall clock value such as "7:05am", "07:05 AM" or "12:30pm"
// into seconds since midnight
func parseClockTime(value string) (int, error) {
	normalized := strings.ToUpper(strings.ReplaceAll(value, " ", ""))
	var lastErr error
	for _, layout := range clockLayouts {
		parsed, err := time.Parse(layout, normalized)
		if err == nil {
			return parsed.Hour()*3600 + parsed.Minute()*60 + parsed.Second(), nil
		}
		lastErr = err
	}
	return 0, lastErr
}
