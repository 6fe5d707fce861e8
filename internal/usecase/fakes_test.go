package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/slotwatch/internal/entity"
)

// scriptedProbe replays outcomes in order and repeats the last one.
type scriptedProbe struct {
	mu       sync.Mutex
	outcomes []entity.ProbeOutcome
	calls    int
	closed   bool
	delay    time.Duration
	panicMsg string

	active    atomic.Int32
	maxActive atomic.Int32
}

func newScriptedProbe(outcomes ...entity.ProbeOutcome) *scriptedProbe {
	return &scriptedProbe{outcomes: outcomes}
}

func (p *scriptedProbe) Check(ctx context.Context) entity.ProbeOutcome {
	n := p.active.Add(1)
	defer p.active.Add(-1)
	for {
		max := p.maxActive.Load()
		if n <= max || p.maxActive.CompareAndSwap(max, n) {
			break
		}
	}

	p.mu.Lock()
	idx := p.calls
	p.calls++
	delay := p.delay
	panicMsg := p.panicMsg
	p.mu.Unlock()

	if panicMsg != "" {
		panic(panicMsg)
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
		}
	}
	if len(p.outcomes) == 0 {
		return entity.Unavailable()
	}
	if idx >= len(p.outcomes) {
		idx = len(p.outcomes) - 1
	}
	return p.outcomes[idx]
}

func (p *scriptedProbe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *scriptedProbe) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *scriptedProbe) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

type sentNotification struct {
	Title string
	Body  string
}

type recordingSink struct {
	mu     sync.Mutex
	notes  []sentNotification
	direct []string
}

func (s *recordingSink) Notify(_ context.Context, title, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = append(s.notes, sentNotification{Title: title, Body: body})
	return nil
}

func (s *recordingSink) SendDirectAlert(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.direct = append(s.direct, text)
	return nil
}

func (s *recordingSink) Notes() []sentNotification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentNotification(nil), s.notes...)
}

func (s *recordingSink) Direct() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.direct...)
}

type memoryTransitions struct {
	mu    sync.Mutex
	saved []entity.Transition
	err   error
}

func (r *memoryTransitions) Save(_ context.Context, t *entity.Transition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.saved = append(r.saved, *t)
	return nil
}

func (r *memoryTransitions) FindByTarget(_ context.Context, target string) (*entity.Transition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.saved) - 1; i >= 0; i-- {
		if r.saved[i].Target == target {
			t := r.saved[i]
			return &t, nil
		}
	}
	return nil, nil
}

// syncClock is a fakeClock that may be read from cron goroutines.
type syncClock struct {
	mu sync.Mutex
	t  time.Time
}

func newSyncClock() *syncClock {
	return &syncClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *syncClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *syncClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
