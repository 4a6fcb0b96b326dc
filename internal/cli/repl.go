// Package cli is a line-oriented front end for the appointment editor.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/syncare/internal/calendar"
	"github.com/dukerupert/syncare/internal/model"
	"github.com/dukerupert/syncare/internal/scheduler"
	"github.com/dukerupert/syncare/internal/store"
)

const prompt = "syncare> "

var errQuit = errors.New("quit")

// REPL reads commands from in and drives a scheduler.Controller.
type REPL struct {
	ctrl   *scheduler.Controller
	sos    *store.SOSStore
	in     io.Reader
	out    io.Writer
	prompt bool
	draft  scheduler.Form
	now    func() time.Time
	logger *slog.Logger
}

// New builds a REPL. When interactive is false no prompt is printed, which
// keeps piped transcripts clean.
func New(ctrl *scheduler.Controller, sos *store.SOSStore, in io.Reader, out io.Writer, interactive bool, logger *slog.Logger) *REPL {
	if logger == nil {
		logger = slog.Default()
	}
	return &REPL{
		ctrl:   ctrl,
		sos:    sos,
		in:     in,
		out:    out,
		prompt: interactive,
		draft:  ctrl.Form(),
		now:    time.Now,
		logger: logger,
	}
}

// Run processes commands until quit, EOF or ctx is cancelled. Command errors
// are printed and the loop continues.
func (r *REPL) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(r.in)
	r.printGrid()
	for {
		if r.prompt {
			fmt.Fprint(r.out, prompt)
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		err := r.Exec(ctx, scanner.Text())
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
		}
	}
}

// Exec runs a single command line.
func (r *REPL) Exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "next":
		r.ctrl.NextMonth()
		r.printGrid()
	case "prev":
		r.ctrl.PrevMonth()
		r.printGrid()
	case "grid":
		r.printGrid()
	case "select":
		day, err := intArg(args, "day")
		if err != nil {
			return err
		}
		if err := r.ctrl.SelectDate(day); err != nil {
			return err
		}
		r.sync()
		r.printDay()
	case "list":
		r.printDay()
	case "edit":
		return r.edit(args)
	case "set":
		return r.set(line)
	case "show":
		r.printForm()
	case "save":
		return r.save(ctx)
	case "cancel":
		r.ctrl.CancelEdit()
		r.sync()
		fmt.Fprintf(r.out, "edit cancelled (%s)\n", r.ctrl.State())
	case "delete":
		return r.delete(ctx, args)
	case "close":
		r.ctrl.Close()
		r.sync()
		fmt.Fprintln(r.out, "closed")
	case "sos":
		return r.sosCommand(ctx, args)
	case "help":
		r.printHelp()
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}
	return nil
}

func (r *REPL) sync() {
	r.draft = r.ctrl.Form()
}

func (r *REPL) edit(args []string) error {
	id, err := idArg(args)
	if err != nil {
		return err
	}
	if r.ctrl.ActiveKey() == "" {
		return scheduler.ErrNoDateSelected
	}
	for _, a := range r.ctrl.Appointments() {
		if a.ID == id {
			r.ctrl.BeginEdit(a)
			r.sync()
			r.printForm()
			return nil
		}
	}
	return fmt.Errorf("%w: %d", scheduler.ErrNotFound, id)
}

// set takes the rest of the raw line as the value so titles keep their spacing.
func (r *REPL) set(line string) error {
	rest := strings.TrimSpace(line)
	rest = strings.TrimSpace(rest[len("set"):])
	field, value, _ := strings.Cut(rest, " ")
	value = strings.TrimSpace(value)

	switch strings.ToLower(field) {
	case "time":
		r.draft.Time = value
	case "patient":
		r.draft.Patient = value
	case "title":
		r.draft.Title = value
	default:
		return errors.New("usage: set time|patient|title <value>")
	}
	return nil
}

func (r *REPL) save(ctx context.Context) error {
	appt, err := r.ctrl.Save(ctx, r.draft)
	if err != nil {
		return err
	}
	r.sync()
	fmt.Fprintf(r.out, "saved %d %s %s\n", appt.ID, appt.Time, appt.Patient)
	r.printDay()
	return nil
}

func (r *REPL) delete(ctx context.Context, args []string) error {
	id, err := idArg(args)
	if err != nil {
		return err
	}
	key := r.ctrl.ActiveKey()
	if key == "" {
		return scheduler.ErrNoDateSelected
	}
	if err := r.ctrl.Delete(ctx, key, id); err != nil {
		return err
	}
	r.sync()
	fmt.Fprintf(r.out, "deleted %d\n", id)
	r.printDay()
	return nil
}

func (r *REPL) sosCommand(ctx context.Context, args []string) error {
	if r.sos == nil {
		return errors.New("sos is not available")
	}
	if len(args) == 0 {
		sig, err := r.sos.Get(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(r.out, formatSOS(sig))
		return nil
	}

	switch args[0] {
	case "raise":
		patient := strings.TrimSpace(strings.Join(args[1:], " "))
		if patient == "" {
			return errors.New("usage: sos raise <patient>")
		}
		sig, err := r.sos.Raise(ctx, patient, r.now())
		if err != nil {
			return err
		}
		r.logger.Warn("sos raised", "patient", sig.Patient)
		fmt.Fprintln(r.out, formatSOS(sig))
	case "clear":
		if err := r.sos.Clear(ctx); err != nil {
			return err
		}
		fmt.Fprintln(r.out, "sos cleared")
	default:
		return errors.New("usage: sos [raise <patient>|clear]")
	}
	return nil
}

func formatSOS(sig model.SOSSignal) string {
	if !sig.Active {
		return "sos: inactive"
	}
	return fmt.Sprintf("sos: ACTIVE patient=%s since=%s", sig.Patient, sig.Time().Format("2006-01-02 15:04:05"))
}

func (r *REPL) printGrid() {
	fmt.Fprint(r.out, RenderGrid(r.ctrl.Grid()))
}

func (r *REPL) printDay() {
	key := r.ctrl.ActiveKey()
	if key == "" {
		fmt.Fprintln(r.out, "no day selected")
		return
	}
	list := r.ctrl.Appointments()
	fmt.Fprintf(r.out, "%s: %d appointment(s) [%s]\n", key, len(list), r.ctrl.State())
	for _, a := range list {
		fmt.Fprintf(r.out, "  %d  %s  %s", a.ID, a.Time, a.Patient)
		if a.Title != "" {
			fmt.Fprintf(r.out, "  (%s)", a.Title)
		}
		fmt.Fprintln(r.out)
	}
}

func (r *REPL) printForm() {
	state := r.ctrl.State().String()
	if id, ok := r.ctrl.EditTarget(); ok {
		state = fmt.Sprintf("%s %d", state, id)
	}
	fmt.Fprintf(r.out, "[%s] time=%s patient=%q title=%q\n", state, r.draft.Time, r.draft.Patient, r.draft.Title)
}

func (r *REPL) printHelp() {
	fmt.Fprint(r.out, `commands:
  next | prev | grid          change or redraw the month
  select <day>                open a day for new appointments
  list                        show the selected day
  edit <id>                   load an appointment into the form
  set time|patient|title <v>  change a form field
  show                        print the form
  save | cancel | close       commit, drop the edit, or close the form
  delete <id>                 remove an appointment from the selected day
  sos [raise <patient>|clear] read or change the emergency flag
  quit
`)
}

// RenderGrid draws a month as a seven-column table. Days with appointments
// are marked with '*' and today is prefixed with '>'.
func RenderGrid(g calendar.Grid) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", g.Title)
	b.WriteString(" Su   Mo   Tu   We   Th   Fr   Sa\n")
	for i, c := range g.Cells {
		if c.Blank {
			b.WriteString("     ")
		} else {
			lead, mark := ' ', ' '
			if c.IsToday {
				lead = '>'
			}
			if c.Count > 0 {
				mark = '*'
			}
			fmt.Fprintf(&b, "%c%2d%c ", lead, c.Day, mark)
		}
		if i%7 == 6 {
			b.WriteString("\n")
		}
	}
	if len(g.Cells)%7 != 0 {
		b.WriteString("\n")
	}
	return b.String()
}

func intArg(args []string, name string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected one %s argument", name)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, args[0])
	}
	return n, nil
}

func idArg(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, errors.New("expected one id argument")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", args[0])
	}
	return id, nil
}
