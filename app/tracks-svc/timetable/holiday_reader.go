package timetable

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/octalwise/tracks/business/data/rail"
)

// weekendServicePrefix starts the schedule type column of holidays running the weekend pattern
const weekendServicePrefix = "Weekend Schedule"

// holidayDateLayouts are the accepted date column formats, any year is discarded
var holidayDateLayouts = []string{
	"January 2",
	"Jan 2",
	"January 2, 2006",
	"Monday, January 2",
	"Monday, January 2, 2006",
	"Mon, Jan 2",
	"Mon, Jan 2, 2006",
}

// HolidayTable contains holidays extracted from the holiday document
type HolidayTable struct {
	Holidays []rail.Holiday
	//Skipped holds an error for each weekend service row whose date couldn't be read
	Skipped []error
}

// ReadHolidays extracts the weekend service holidays from the holiday document in r
func ReadHolidays(r io.Reader) (HolidayTable, error) {
	document, err := parseDocument(r)
	if err != nil {
		return HolidayTable{Holidays: make([]rail.Holiday, 0)}, err
	}
	return ExtractHolidays(document), nil
}

// ExtractHolidays extracts the weekend service holidays from a parsed holiday document.
// Rows with unreadable dates are skipped and reported in HolidayTable.Skipped.
func ExtractHolidays(document *goquery.Selection) HolidayTable {
	result := HolidayTable{
		Holidays: make([]rail.Holiday, 0),
	}
	seen := make(map[rail.Holiday]bool)
	document.Find("table.holiday-service-schedule tbody tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() == 0 {
			return
		}
		if cells.Length() < 3 {
			result.Skipped = append(result.Skipped, fmt.Errorf("row %d: expected 3 columns, got %d", i, cells.Length()))
			return
		}
		if !strings.HasPrefix(cellText(cells.Eq(2)), weekendServicePrefix) {
			return
		}
		dateText := cellText(cells.Eq(1))
		holiday, err := parseHolidayDate(dateText)
		if err != nil {
			result.Skipped = append(result.Skipped, fmt.Errorf("row %d: %w", i, err))
			return
		}
		if seen[holiday] {
			return
		}
		seen[holiday] = true
		result.Holidays = append(result.Holidays, holiday)
	})
	return result
}

// parseHolidayDate reads the day and month from value, ignoring trailing footnote markers
func parseHolidayDate(value string) (rail.Holiday, error) {
	cleaned := strings.TrimSpace(strings.TrimRight(value, "*†"))
	for _, layout := range holidayDateLayouts {
		parsed, err := time.Parse(layout, cleaned)
		if err == nil {
			return rail.Holiday{Day: parsed.Day(), Month: parsed.Month()}, nil
		}
	}
	return rail.Holiday{}, fmt.Errorf("unable to parse holiday date %q", value)
}
