package calendar

import "time"

// Month identifies a displayed month. Index is zero-based (0 = January).
type Month struct {
	Year  int `json:"year"`
	Index int `json:"month"`
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Index: int(t.Month()) - 1}
}

// first returns midnight on day 1, letting time.Date normalize out-of-range
// indexes into the neighbouring year.
func (m Month) first() time.Time {
	return time.Date(m.Year, time.Month(m.Index+1), 1, 0, 0, 0, 0, time.Local)
}

// Add moves n months forward (or back when n is negative).
func (m Month) Add(n int) Month {
	return MonthOf(time.Date(m.Year, time.Month(m.Index+1+n), 1, 0, 0, 0, 0, time.Local))
}

func (m Month) Next() Month { return m.Add(1) }

func (m Month) Prev() Month { return m.Add(-1) }

// DaysIn is the day-of-month of day 0 of the following month.
func (m Month) DaysIn() int {
	return time.Date(m.Year, time.Month(m.Index+2), 0, 0, 0, 0, 0, time.Local).Day()
}

// FirstWeekday is the weekday of day 1, 0 = Sunday through 6 = Saturday.
func (m Month) FirstWeekday() int {
	return int(m.first().Weekday())
}

func (m Month) String() string {
	return m.first().Format("January 2006")
}
