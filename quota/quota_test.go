package quota

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

type memStore struct {
	st      State
	loadErr error
	saveErr error
	saves   int
}

func (m *memStore) Load(ctx context.Context) (State, error) { return m.st, m.loadErr }
func (m *memStore) Save(ctx context.Context, st State) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.st = st
	return nil
}

func fixedClock(t *Tracker, at time.Time) { t.now = func() time.Time { return at } }

func TestEconomyFlipAtReserveLine(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	var flipped []bool
	tr := New(store, 10000, 1000, false, func(on bool) error {
		flipped = append(flipped, on)
		return nil
	})
	fixedClock(tr, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	if err := tr.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	tr.Record(ctx, 8900)
	if tr.Economy() {
		t.Fatalf("economy flipped at usage=8900, reserve line is 9000")
	}
	// 8900 + 200 = 9100 > 9000: first crossing flips the mode.
	tr.Record(ctx, 200)
	if !tr.Economy() {
		t.Fatalf("economy not flipped at usage=%d", tr.Usage())
	}
	if tr.Usage() != 9100 {
		t.Errorf("usage = %d, want 9100", tr.Usage())
	}
	if len(flipped) != 1 || !flipped[0] {
		t.Errorf("economy sink calls = %v, want exactly one true", flipped)
	}
	// Further charges never flip again or clear the flag.
	tr.Record(ctx, 500)
	if !tr.Economy() || len(flipped) != 1 {
		t.Errorf("economy flag unstable after flip: economy=%v sinks=%d", tr.Economy(), len(flipped))
	}
}

func TestUsagePersistedPerCharge(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	tr := New(store, 10000, 1000, false, nil)
	fixedClock(tr, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	_ = tr.Load(ctx)
	tr.Record(ctx, 5)
	tr.Record(ctx, 50)
	if store.saves != 2 {
		t.Errorf("saves = %d, want one per charge", store.saves)
	}
	if store.st.Usage != 55 || store.st.Date != "2025-03-01" {
		t.Errorf("persisted state = %+v, want usage 55 on 2025-03-01", store.st)
	}
}

func TestSaveFailureIsNonFatal(t *testing.T) {
	ctx := context.Background()
	store := &memStore{saveErr: errors.New("disk full")}
	tr := New(store, 10000, 1000, false, nil)
	fixedClock(tr, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	_ = tr.Load(ctx)
	tr.Record(ctx, 5)
	tr.Record(ctx, 5)
	if tr.Usage() != 10 {
		t.Errorf("in-memory counter = %d, want 10 despite save failures", tr.Usage())
	}
}

func TestLoadResumesSameDay(t *testing.T) {
	ctx := context.Background()
	store := &memStore{st: State{Date: "2025-03-01", Usage: 4200}}
	tr := New(store, 10000, 1000, false, nil)
	fixedClock(tr, time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC))
	_ = tr.Load(ctx)
	if tr.Usage() != 4200 {
		t.Errorf("usage = %d, want 4200 resumed from store", tr.Usage())
	}
}

func TestDayRolloverKeepsEconomyMode(t *testing.T) {
	// A new day resets the usage counter but leaves the persisted economy
	// flag on. That asymmetry is deliberate.
	ctx := context.Background()
	store := &memStore{st: State{Date: "2025-03-01", Usage: 9500}}
	tr := New(store, 10000, 1000, true, nil)
	fixedClock(tr, time.Date(2025, 3, 2, 0, 5, 0, 0, time.UTC))
	_ = tr.Load(ctx)
	if tr.Usage() != 0 {
		t.Errorf("usage = %d, want 0 after rollover", tr.Usage())
	}
	if !tr.Economy() {
		t.Errorf("economy mode cleared on rollover; it must persist")
	}
}

func TestRolloverDuringRun(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	tr := New(store, 10000, 1000, false, nil)
	day1 := time.Date(2025, 3, 1, 23, 59, 0, 0, time.UTC)
	fixedClock(tr, day1)
	_ = tr.Load(ctx)
	tr.Record(ctx, 100)
	fixedClock(tr, day1.Add(2*time.Minute))
	tr.Record(ctx, 5)
	if tr.Usage() != 5 {
		t.Errorf("usage = %d, want 5 after midnight rollover mid-run", tr.Usage())
	}
	if store.st.Date != "2025-03-02" {
		t.Errorf("persisted date = %s, want 2025-03-02", store.st.Date)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	fs := DefaultStore(filepath.Join(t.TempDir(), "quota_usage.json"))
	st, err := fs.Load(ctx)
	if err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
	if st != (State{}) {
		t.Errorf("missing file should load zero state, got %+v", st)
	}
	want := State{Date: "2025-03-01", Usage: 123}
	if err := fs.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := fs.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != want {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}
