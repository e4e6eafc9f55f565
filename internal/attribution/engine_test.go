package attribution

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/roamsim/attribution-service/internal/models"
	"github.com/roamsim/attribution-service/internal/referral"
	"github.com/roamsim/attribution-service/internal/storage"
)

// recordingTracker captures every tracked event for assertions.
type recordingTracker struct {
	mu     sync.Mutex
	events []models.ClickEvent
}

func (t *recordingTracker) Track(ev models.ClickEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, ev)
}

func (t *recordingTracker) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.events)
}

// fakeLookup serves canned terms per code; unknown codes return ErrNotFound.
type fakeLookup struct {
	terms map[string]*referral.Terms
	err   error
	calls []string
}

func (f *fakeLookup) Lookup(_ context.Context, code string) (*referral.Terms, error) {
	f.calls = append(f.calls, code)
	if f.err != nil {
		return nil, f.err
	}
	if t, ok := f.terms[code]; ok {
		return t, nil
	}
	return nil, referral.ErrNotFound
}

// failingStore rejects all writes but serves reads from the wrapped store.
type failingStore struct {
	storage.Store
}

var errStorageDown = errors.New("storage unavailable")

func (failingStore) Set(context.Context, string, string) error { return errStorageDown }

// testEngine builds an engine on a fixed clock that tests can advance.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestEngine(cfg EngineConfig, clock *testClock) *Engine {
	if clock != nil {
		cfg.Now = clock.Now
	}
	return NewEngine(cfg)
}
