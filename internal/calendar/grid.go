package calendar

import "time"

// Cell is one square of a month view. Leading padding cells have Blank set
// and carry no day.
type Cell struct {
	Blank   bool   `json:"blank,omitempty"`
	Day     int    `json:"day,omitempty"`
	Key     string `json:"key,omitempty"`
	Count   int    `json:"count,omitempty"`
	IsToday bool   `json:"is_today,omitempty"`
}

// Counter reports the number of appointments stored under a date key.
type Counter interface {
	Count(key string) int
}

// Grid is the layout for a single month.
type Grid struct {
	Month Month  `json:"month"`
	Title string `json:"title"`
	Cells []Cell `json:"cells"`
}

// GenerateGrid lays out m as FirstWeekday blank cells followed by one cell per
// day. counts may be nil.
func GenerateGrid(m Month, counts Counter, today time.Time) Grid {
	blanks := m.FirstWeekday()
	total := m.DaysIn()
	ty, tm, td := today.Date()

	cells := make([]Cell, 0, blanks+total)
	for i := 0; i < blanks; i++ {
		cells = append(cells, Cell{Blank: true})
	}
	for d := 1; d <= total; d++ {
		key := DateKey(m.Year, m.Index, d)
		c := Cell{
			Day:     d,
			Key:     key,
			IsToday: ty == m.Year && int(tm)-1 == m.Index && td == d,
		}
		if counts != nil {
			c.Count = counts.Count(key)
		}
		cells = append(cells, c)
	}

	return Grid{Month: m, Title: m.String(), Cells: cells}
}

// Days returns only the non-blank cells.
func (g Grid) Days() []Cell {
	for i, c := range g.Cells {
		if !c.Blank {
			return g.Cells[i:]
		}
	}
	return nil
}
