package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/dukerupert/syncare/internal/calendar"
	"github.com/dukerupert/syncare/internal/model"
)

// State is the edit surface state.
type State int

const (
	Closed State = iota
	Creating
	Editing
)

func (s State) String() string {
	switch s {
	case Creating:
		return "creating"
	case Editing:
		return "editing"
	default:
		return "closed"
	}
}

// Controller is one editor's view of the book: the displayed month, the
// selected day, and the record being created or edited.
type Controller struct {
	svc *Service
	now func() time.Time

	month     calendar.Month
	state     State
	activeKey string
	form      Form
	targetID  int64
	hasTarget bool
}

// NewController opens on the month containing now(). A nil now uses time.Now.
func NewController(svc *Service, now func() time.Time) *Controller {
	if now == nil {
		now = time.Now
	}
	return &Controller{
		svc:   svc,
		now:   now,
		month: calendar.MonthOf(now()),
		form:  DefaultForm(),
	}
}

func (c *Controller) Month() calendar.Month { return c.month }
func (c *Controller) State() State { return c.state }
func (c *Controller) ActiveKey() string { return c.activeKey }
func (c *Controller) Form() Form { return c.form }

// EditTarget returns the id being edited, if any.
func (c *Controller) EditTarget() (int64, bool) {
	return c.targetID, c.hasTarget
}

func (c *Controller) NextMonth() { c.month = c.month.Next() }
func (c *Controller) PrevMonth() { c.month = c.month.Prev() }

// GoTo jumps to m, normalizing an out-of-range month index.
func (c *Controller) GoTo(m calendar.Month) { c.month = calendar.Month{Year: m.Year}.Add(m.Index) }

// Grid renders the displayed month.
func (c *Controller) Grid() calendar.Grid {
	return c.svc.Grid(c.month, c.now())
}

// Appointments lists the selected day, or nil when nothing is selected.
func (c *Controller) Appointments() []model.Appointment {
	if c.activeKey == "" {
		return nil
	}
	return c.svc.List(c.activeKey)
}

// SelectDate activates day in the displayed month, resets the form to the
// default record and opens the surface for creation.
func (c *Controller) SelectDate(day int) error {
	if day < 1 || day > c.month.DaysIn() {
		return fmt.Errorf("%w: day %d not in %s", calendar.ErrInvalidKey, day, c.month)
	}
	c.activeKey = calendar.DateKey(c.month.Year, c.month.Index, day)
	c.resetForm()
	c.state = Creating
	return nil
}

// BeginEdit loads rec into the form and makes it the edit target.
func (c *Controller) BeginEdit(rec model.Appointment) {
	c.form = FormFrom(rec)
	c.targetID = rec.ID
	c.hasTarget = true
	c.state = Editing
}

// CancelEdit drops the edit target and resets the form without touching the
// book.
func (c *Controller) CancelEdit() {
	c.resetForm()
	if c.activeKey != "" {
		c.state = Creating
	} else {
		c.state = Closed
	}
}

// Close shuts the edit surface. The selected day stays active.
func (c *Controller) Close() {
	c.resetForm()
	c.state = Closed
}

// Save creates or updates a record on the active day. On any failure the
// controller state is left as it was.
func (c *Controller) Save(ctx context.Context, form Form) (model.Appointment, error) {
	if c.activeKey == "" {
		return model.Appointment{}, ErrNoDateSelected
	}

	var (
		appt model.Appointment
		err  error
	)
	if c.hasTarget {
		appt, err = c.svc.Update(ctx, c.activeKey, c.targetID, form)
	} else {
		appt, err = c.svc.Create(ctx, c.activeKey, form)
	}
	if err != nil {
		c.form = form
		return model.Appointment{}, err
	}

	c.Close()
	return appt, nil
}

// Delete removes id from key. Deleting the current edit target also cancels
// the edit.
func (c *Controller) Delete(ctx context.Context, key string, id int64) error {
	if _, err := c.svc.Delete(ctx, key, id); err != nil {
		return err
	}
	if c.hasTarget && c.targetID == id && key == c.activeKey {
		c.CancelEdit()
	}
	return nil
}

func (c *Controller) resetForm() {
	c.form = DefaultForm()
	c.targetID = 0
	c.hasTarget = false
}
