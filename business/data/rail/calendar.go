package rail

import (
	"fmt"
	"time"

	"github.com/rickar/cal/v2"
)

// Holiday is a day of the year on which the weekend service pattern runs, regardless of year
type Holiday struct {
	Day   int        `json:"day"`
	Month time.Month `json:"month"`
}

func (h Holiday) String() string {
	return fmt.Sprintf("%s %d", h.Month, h.Day)
}

// ServiceCalendar classifies instants into service day types using the line's holidays
type ServiceCalendar struct {
	holidays     []Holiday
	calendar     *cal.BusinessCalendar
	location     *time.Location
	boundaryHour int
}

// NewServiceCalendar creates ServiceCalendar. Holidays recur every year on the same day.
// Instants are evaluated in location, and instants before boundaryHour belong to the previous day.
func NewServiceCalendar(holidays []Holiday, location *time.Location, boundaryHour int) *ServiceCalendar {
	calendar := cal.NewBusinessCalendar()
	for _, holiday := range holidays {
		calendar.AddHoliday(&cal.Holiday{
			Name:  holiday.String(),
			Month: holiday.Month,
			Day:   holiday.Day,
			Func:  calcRecurringDay,
		})
	}
	stored := make([]Holiday, len(holidays))
	copy(stored, holidays)
	return &ServiceCalendar{
		holidays:     stored,
		calendar:     calendar,
		location:     location,
		boundaryHour: boundaryHour,
	}
}

// calcRecurringDay is cal.CalcDayOfMonth without rolling into the next month,
// so February 29 is skipped in years without it.
func calcRecurringDay(h *cal.Holiday, year int) time.Time {
	date := time.Date(year, h.Month, h.Day, 0, 0, 0, 0, cal.DefaultLoc)
	if date.Month() != h.Month {
		return time.Time{}
	}
	return date
}

// Holidays returns a copy of the holidays known to the calendar
func (c *ServiceCalendar) Holidays() []Holiday {
	results := make([]Holiday, len(c.holidays))
	copy(results, c.holidays)
	return results
}

// IsHoliday returns true if the day and month of date in the calendar's location is a holiday
func (c *ServiceCalendar) IsHoliday(date time.Time) bool {
	actual, _, _ := c.calendar.IsHoliday(date.In(c.location))
	return actual
}

// Service returns the service day type running at "at".
// Early morning instants before the boundary hour are classified with the previous day.
func (c *ServiceCalendar) Service(at time.Time) ServiceType {
	serviceDate := ServiceDate(at.In(c.location), c.boundaryHour)
	if cal.IsWeekend(serviceDate) || c.IsHoliday(serviceDate) {
		return Weekend
	}
	return Weekday
}
