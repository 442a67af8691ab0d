// Package quota tracks metered YouTube API usage against a daily budget and
// flips the bot into economy mode when the remaining budget falls below a
// safety reserve. Usage is persisted after every charge so restarts within
// the same day resume the counter.
package quota

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// State is the persisted usage document, keyed by day.
type State struct {
	Date  string `json:"date"`
	Usage int    `json:"usage"`
}

// Store persists the daily usage document.
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, st State) error
}

// FileStore keeps the usage document as a small JSON file, rewritten in full
// after every charge.
type FileStore struct {
	Path string
}

func (fs *FileStore) Load(ctx context.Context) (State, error) {
	b, err := os.ReadFile(fs.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, nil
		}
		return State{}, fmt.Errorf("read quota file: %w", err)
	}
	var st State
	if err := json.Unmarshal(b, &st); err != nil {
		return State{}, fmt.Errorf("parse quota file: %w", err)
	}
	return st, nil
}

func (fs *FileStore) Save(ctx context.Context, st State) error {
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	tmp := fs.Path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write quota file: %w", err)
	}
	if err := os.Rename(tmp, fs.Path); err != nil {
		return fmt.Errorf("replace quota file: %w", err)
	}
	return nil
}

// EconomySink receives the economy-mode flip so it can be persisted alongside
// the rest of the configuration.
type EconomySink func(on bool) error

// Tracker is the in-memory authority for today's usage. Persistence failures
// are logged and ignored; the running counter keeps advancing.
type Tracker struct {
	mu      sync.Mutex
	store   Store
	budget  int
	reserve int
	economy bool
	sink    EconomySink

	date  string
	usage int

	now func() time.Time
}

// New builds a tracker. economy seeds the mode from config; the flag only
// ever transitions off->on within a run, and a stored date from a previous
// day resets usage without clearing the flag (see
// TestDayRolloverKeepsEconomyMode).
func New(store Store, budget, reserve int, economy bool, sink EconomySink) *Tracker {
	return &Tracker{
		store:   store,
		budget:  budget,
		reserve: reserve,
		economy: economy,
		sink:    sink,
		now:     time.Now,
	}
}

func (t *Tracker) today() string { return t.now().Format("2006-01-02") }

// Load reads the persisted state. A stored date other than today means a new
// day: usage starts at zero.
func (t *Tracker) Load(ctx context.Context) error {
	st, err := t.store.Load(ctx)
	if err != nil {
		slog.Error("quota state load failed", slog.Any("err", err))
		t.mu.Lock()
		t.date, t.usage = t.today(), 0
		t.mu.Unlock()
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.date = t.today()
	if st.Date == t.date {
		t.usage = st.Usage
		slog.Info("quota usage resumed", slog.Int("usage", t.usage), slog.Int("budget", t.budget))
	} else {
		t.usage = 0
		slog.Info("new day, quota counter reset")
	}
	return nil
}

// Record charges units against today's budget, persists the new state, and
// flips economy mode the first time usage crosses budget-reserve.
func (t *Tracker) Record(ctx context.Context, units int) {
	t.mu.Lock()
	today := t.today()
	if t.date != today {
		// Midnight rollover: fresh counter, economy mode deliberately kept.
		t.date = today
		t.usage = 0
	}
	t.usage += units
	st := State{Date: t.date, Usage: t.usage}
	flip := t.usage > t.budget-t.reserve && !t.economy
	if flip {
		t.economy = true
	}
	usage := t.usage
	t.mu.Unlock()

	if err := t.store.Save(ctx, st); err != nil {
		slog.Error("quota state save failed", slog.Any("err", err))
	}
	if flip {
		slog.Warn("quota alert: usage crossed reserve line, enabling economy mode",
			slog.Int("usage", usage), slog.Int("budget", t.budget), slog.Int("reserve", t.reserve))
		if t.sink != nil {
			if err := t.sink(true); err != nil {
				slog.Error("economy mode persist failed", slog.Any("err", err))
			}
		}
	}
}

// Economy reports whether the bot should run at the degraded cadence.
func (t *Tracker) Economy() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.economy
}

// Usage returns today's cumulative units.
func (t *Tracker) Usage() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.usage
}

// Budget returns the configured daily budget.
func (t *Tracker) Budget() int { return t.budget }

// DefaultStore returns a file store at path, creating parent directories.
func DefaultStore(path string) *FileStore {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}
	return &FileStore{Path: path}
}
