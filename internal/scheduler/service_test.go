package scheduler

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/syncare/internal/calendar"
	"github.com/dukerupert/syncare/internal/database"
	"github.com/dukerupert/syncare/internal/model"
	"github.com/dukerupert/syncare/internal/store"
)

// memRepo is an in-memory Repository that can be told to fail.
type memRepo struct {
	mu       sync.Mutex
	book     model.Book
	persists int
	loadErr  error
	saveErr  error
}

func (r *memRepo) Load(context.Context) (model.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	return r.book, nil
}

func (r *memRepo) Persist(_ context.Context, b model.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.persists++
	r.book = b
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

var testNow = time.Date(2024, time.February, 5, 8, 0, 0, 0, time.Local)

func newTestService(t *testing.T, repo *memRepo, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{WithClock(fixedClock(testNow))}, opts...)
	svc, err := Open(context.Background(), repo, opts...)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return svc
}

func times(list []model.Appointment) []string {
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = a.Time
	}
	return out
}

func TestCreateKeepsDaySortedByTime(t *testing.T) {
	ctx := context.Background()
	repo := &memRepo{}
	svc := newTestService(t, repo)
	key := calendar.DateKey(2024, 1, 5)

	for _, tm := range []string{"08:00", "14:30", "09:00"} {
		if _, err := svc.Create(ctx, key, Form{Time: tm, Patient: "P " + tm}); err != nil {
			t.Fatalf("create %s: %v", tm, err)
		}
	}

	want := []string{"08:00", "09:00", "14:30"}
	if got := times(svc.List(key)); !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
	if got := times(repo.book[key]); !reflect.DeepEqual(got, want) {
		t.Errorf("persisted order = %v, want %v", got, want)
	}
}

func TestCreateAssignsUniqueIncreasingIDs(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, &memRepo{})
	key := calendar.DateKey(2024, 1, 5)

	seen := map[int64]bool{}
	var last int64
	for i := 0; i < 5; i++ {
		a, err := svc.Create(ctx, key, Form{Time: "10:00", Patient: "Same"})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if seen[a.ID] {
			t.Fatalf("duplicate id %d", a.ID)
		}
		if a.ID <= last {
			t.Fatalf("id %d not greater than %d", a.ID, last)
		}
		seen[a.ID] = true
		last = a.ID
	}
	if first := testNow.UnixMilli(); !seen[first] {
		t.Errorf("first id should be the clock value %d", first)
	}
}

func TestOpenContinuesIDsAfterLoadedBook(t *testing.T) {
	future := testNow.Add(time.Hour).UnixMilli()
	repo := &memRepo{book: model.Book{"2024-1-5": {{ID: future, Time: "09:00", Patient: "A"}}}}
	svc := newTestService(t, repo)

	a, err := svc.Create(context.Background(), "2024-1-5", Form{Time: "10:00", Patient: "B"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.ID != future+1 {
		t.Errorf("id = %d, want %d", a.ID, future+1)
	}
}

func TestUpdatePreservesIdentity(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, &memRepo{})
	key := "2024-1-5"

	a, _ := svc.Create(ctx, key, Form{Time: "09:00", Patient: "Old", Title: "Checkup"})
	svc.Create(ctx, key, Form{Time: "11:00", Patient: "Other"})

	got, err := svc.Update(ctx, key, a.ID, Form{Time: "12:00", Patient: "New", Title: "Checkup"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.ID != a.ID || got.Patient != "New" {
		t.Errorf("updated = %+v", got)
	}

	list := svc.List(key)
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[1].ID != a.ID || list[1].Patient != "New" || list[1].Time != "12:00" {
		t.Errorf("list after resort = %+v", list)
	}
}

func TestUpdateUnknownID(t *testing.T) {
	svc := newTestService(t, &memRepo{})

	_, err := svc.Update(context.Background(), "2024-1-5", 42, Form{Time: "09:00", Patient: "X"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := &memRepo{}
	svc := newTestService(t, repo)
	key := "2024-1-5"

	a, _ := svc.Create(ctx, key, Form{Time: "09:00", Patient: "A"})
	b, _ := svc.Create(ctx, key, Form{Time: "10:00", Patient: "B"})

	removed, err := svc.Delete(ctx, key, a.ID)
	if err != nil || !removed {
		t.Fatalf("first delete = (%v, %v)", removed, err)
	}
	once := svc.List(key)
	persists := repo.persists

	removed, err = svc.Delete(ctx, key, a.ID)
	if err != nil || removed {
		t.Fatalf("second delete = (%v, %v), want (false, nil)", removed, err)
	}
	if !reflect.DeepEqual(svc.List(key), once) {
		t.Errorf("second delete changed list: %+v", svc.List(key))
	}
	if repo.persists != persists {
		t.Error("no-op delete should not write")
	}
	if len(once) != 1 || once[0].ID != b.ID {
		t.Errorf("remaining = %+v", once)
	}

	if _, err := svc.Delete(ctx, key, b.ID); err != nil {
		t.Fatalf("delete last: %v", err)
	}
	if _, ok := svc.Book()[key]; ok {
		t.Error("empty day should be dropped from the book")
	}
}

func TestPersistFailureLeavesMemoryUnchanged(t *testing.T) {
	ctx := context.Background()
	repo := &memRepo{}
	svc := newTestService(t, repo)
	key := "2024-1-5"

	a, err := svc.Create(ctx, key, Form{Time: "09:00", Patient: "A"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	before := svc.List(key)

	repo.saveErr = store.ErrPersistenceWrite

	if _, err := svc.Create(ctx, key, Form{Time: "10:00", Patient: "B"}); !errors.Is(err, store.ErrPersistenceWrite) {
		t.Errorf("create err = %v", err)
	}
	if _, err := svc.Update(ctx, key, a.ID, Form{Time: "11:00", Patient: "Z"}); !errors.Is(err, store.ErrPersistenceWrite) {
		t.Errorf("update err = %v", err)
	}
	if _, err := svc.Delete(ctx, key, a.ID); !errors.Is(err, store.ErrPersistenceWrite) {
		t.Errorf("delete err = %v", err)
	}

	if got := svc.List(key); !reflect.DeepEqual(got, before) {
		t.Errorf("memory changed after failed writes: %+v", got)
	}
	if !reflect.DeepEqual(repo.book, svc.Book()) {
		t.Error("memory and persisted state diverged")
	}
}

func TestOpenPropagatesLoadError(t *testing.T) {
	_, err := Open(context.Background(), &memRepo{loadErr: errors.New("unreachable")})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestCreateRejectsInvalidRecords(t *testing.T) {
	svc := newTestService(t, &memRepo{})
	ctx := context.Background()

	cases := []struct {
		name  string
		form  Form
		field string
	}{
		{"missing time", Form{Patient: "A"}, "time"},
		{"single digit hour", Form{Time: "9:00", Patient: "A"}, "time"},
		{"hour out of range", Form{Time: "24:00", Patient: "A"}, "time"},
		{"minutes out of range", Form{Time: "10:60", Patient: "A"}, "time"},
		{"blank patient", Form{Time: "10:00", Patient: "   "}, "patient"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := svc.Create(ctx, "2024-1-5", c.form)
			if !errors.Is(err, ErrInvalidRecord) {
				t.Fatalf("err = %v, want ErrInvalidRecord", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err %T is not a ValidationError", err)
			}
			if _, ok := verr.Fields[c.field]; !ok {
				t.Errorf("fields = %v, want %q", verr.Fields, c.field)
			}
		})
	}

	if len(svc.Book()) != 0 {
		t.Errorf("invalid records reached the book: %v", svc.Book())
	}
}

func TestCreateTrimsFields(t *testing.T) {
	svc := newTestService(t, &memRepo{})

	a, err := svc.Create(context.Background(), "2024-1-5", Form{Time: " 07:15 ", Patient: "  Ann ", Title: " follow-up "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.Time != "07:15" || a.Patient != "Ann" || a.Title != "follow-up" {
		t.Errorf("record = %+v", a)
	}
}

func TestCreateRejectsBadKey(t *testing.T) {
	svc := newTestService(t, &memRepo{})

	_, err := svc.Create(context.Background(), "2024-02-05", Form{Time: "09:00", Patient: "A"})
	if !errors.Is(err, ErrInvalidRecord) || !errors.Is(err, calendar.ErrInvalidKey) {
		t.Errorf("err = %v", err)
	}
}

func TestNotifierSeesPersistedChanges(t *testing.T) {
	ctx := context.Background()
	repo := &memRepo{}
	var changes []Change
	svc := newTestService(t, repo, WithNotifier(func(c Change) { changes = append(changes, c) }))

	a, _ := svc.Create(ctx, "2024-1-5", Form{Time: "09:00", Patient: "A"})
	svc.Update(ctx, "2024-1-5", a.ID, Form{Time: "09:30", Patient: "A"})
	svc.Delete(ctx, "2024-1-5", a.ID)
	svc.Delete(ctx, "2024-1-5", a.ID)

	repo.saveErr = errors.New("full")
	svc.Create(ctx, "2024-1-5", Form{Time: "09:00", Patient: "B"})

	want := []string{ActionCreated, ActionUpdated, ActionDeleted}
	if len(changes) != len(want) {
		t.Fatalf("changes = %+v", changes)
	}
	for i, c := range changes {
		if c.Action != want[i] || c.Key != "2024-1-5" || c.Appointment.ID != a.ID {
			t.Errorf("change %d = %+v", i, c)
		}
	}
}

func TestGridCountsAppointments(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, &memRepo{})

	svc.Create(ctx, "2024-1-5", Form{Time: "09:00", Patient: "A"})
	svc.Create(ctx, "2024-1-5", Form{Time: "10:00", Patient: "B"})

	g := svc.Grid(calendar.Month{Year: 2024, Index: 1}, testNow)
	for _, c := range g.Days() {
		switch c.Day {
		case 5:
			if c.Count != 2 || !c.IsToday {
				t.Errorf("day 5 = %+v", c)
			}
		default:
			if c.Count != 0 {
				t.Errorf("day %d count = %d", c.Day, c.Count)
			}
		}
	}
}

func TestServiceRoundTripsThroughSQLite(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	repo := store.NewAppointmentStore(store.NewSQLiteKV(db), nil)

	svc, err := Open(ctx, repo, WithClock(fixedClock(testNow)))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	svc.Create(ctx, "2024-1-5", Form{Time: "14:30", Patient: "B"})
	svc.Create(ctx, "2024-1-5", Form{Time: "08:00", Patient: "A"})

	reopened, err := Open(ctx, repo)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if !reflect.DeepEqual(reopened.Book(), svc.Book()) {
		t.Errorf("reloaded = %+v\nwant %+v", reopened.Book(), svc.Book())
	}
}
