package bot

import (
	"log/slog"
	"sync"
	"time"
)

// Stats accumulates session counters. The loop owns the writes; the HTTP
// status handler reads snapshots concurrently, hence the mutex.
type Stats struct {
	mu        sync.Mutex
	received  int
	responded int
	apiCalls  int
	errors    int
	start     time.Time
	end       time.Time
}

// Snapshot is a point-in-time copy of the session counters.
type Snapshot struct {
	MessagesReceived  int       `json:"messages_received"`
	MessagesResponded int       `json:"messages_responded"`
	APICalls          int       `json:"api_calls"`
	Errors            int       `json:"errors"`
	StartTime         time.Time `json:"start_time"`
}

func (s *Stats) markStart() {
	s.mu.Lock()
	s.start = time.Now()
	s.mu.Unlock()
}

func (s *Stats) markEnd() {
	s.mu.Lock()
	s.end = time.Now()
	s.mu.Unlock()
}

func (s *Stats) addReceived()  { s.mu.Lock(); s.received++; s.mu.Unlock() }
func (s *Stats) addResponded() { s.mu.Lock(); s.responded++; s.mu.Unlock() }
func (s *Stats) addAPICall()   { s.mu.Lock(); s.apiCalls++; s.mu.Unlock() }
func (s *Stats) addError()     { s.mu.Lock(); s.errors++; s.mu.Unlock() }

// Snapshot returns a copy of the counters.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		MessagesReceived:  s.received,
		MessagesResponded: s.responded,
		APICalls:          s.apiCalls,
		Errors:            s.errors,
		StartTime:         s.start,
	}
}

// logSummary emits the end-of-session report.
func (s *Stats) logSummary(quotaUsed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	end := s.end
	if end.IsZero() {
		end = time.Now()
	}
	duration := end.Sub(s.start)
	slog.Info("session summary",
		slog.Duration("duration", duration.Round(time.Second)),
		slog.Int("messages_received", s.received),
		slog.Int("responses_sent", s.responded),
		slog.Int("api_calls", s.apiCalls),
		slog.Int("errors", s.errors),
		slog.Int("quota_units_used", quotaUsed))
}
