package game

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Clock ---

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	c       *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{c: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	live := !t.stopped && !t.fired
	t.stopped = true
	return live
}

// Advance moves time forward, firing due timers in deadline order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()
	for {
		c.mu.Lock()
		var due []*fakeTimer
		for _, t := range c.timers {
			if !t.stopped && !t.fired && !t.at.After(target) {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			c.now = target
			c.mu.Unlock()
			return
		}
		sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
		next := due[0]
		next.fired = true
		c.now = next.at
		c.mu.Unlock()
		next.f()
	}
}

// live counts timers that are armed and not yet fired.
func (c *fakeClock) live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// latest returns the most recently armed timer.
func (c *fakeClock) latest() *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timers[len(c.timers)-1]
}

// --- Emitter ---

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) Emit(room string, ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) kinds() []EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EventKind, len(l.events))
	for i, e := range l.events {
		out[i] = e.Kind
	}
	return out
}

func (l *eventLog) count(k EventKind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e.Kind == k {
			n++
		}
	}
	return n
}

func (l *eventLog) last(t *testing.T, k EventKind) Event {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.events) - 1; i >= 0; i-- {
		if l.events[i].Kind == k {
			return l.events[i]
		}
	}
	require.FailNow(t, "no event of kind", string(k))
	return Event{}
}

func (l *eventLog) all(k EventKind) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Event
	for _, e := range l.events {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

func (l *eventLog) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}

// --- Validator ---

type MockValidator struct {
	mock.Mock
}

func (m *MockValidator) Lookup(ctx context.Context, word string) (Lookup, error) {
	args := m.Called(word)
	return args.Get(0).(Lookup), args.Error(1)
}

// dictionary accepts exactly the words it holds.
type dictionary map[string]string

func (d dictionary) Lookup(_ context.Context, word string) (Lookup, error) {
	def, ok := d[word]
	return Lookup{Exists: ok, Definition: def}, nil
}

// gatedValidator blocks every lookup until release is closed.
type gatedValidator struct {
	called  chan string
	release chan struct{}
	result  Lookup
}

func newGatedValidator(result Lookup) *gatedValidator {
	return &gatedValidator{called: make(chan string, 1), release: make(chan struct{}), result: result}
}

func (g *gatedValidator) Lookup(ctx context.Context, word string) (Lookup, error) {
	g.called <- word
	<-g.release
	return g.result, nil
}

// --- fixtures ---

type fixture struct {
	s     *Session
	clock *fakeClock
	log   *eventLog
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxRounds = 3
	return cfg
}

var testWords = dictionary{
	"가족": "부부를 중심으로 한 집단",
	"가정": "한 가족이 생활하는 집",
	"거짓": "사실과 어긋난 것",
	"기자": "기사를 쓰는 사람",
	"고장": "기능에 이상이 생김",
	"과자": "간식으로 먹는 음식",
	"까지": "",
}

func newFixture(t *testing.T, cfg Config, v Validator, players ...string) *fixture {
	t.Helper()
	f := &fixture{clock: newFakeClock(), log: &eventLog{}}
	f.s = NewSession("ABCD", cfg, Options{
		Emitter:   f.log,
		Validator: v,
		Clock:     f.clock,
		Prompt:    func() string { return "ㄱㅈ" },
	})
	for _, id := range players {
		_, err := f.s.Join(id, "nick-"+id)
		require.NoError(t, err)
	}
	f.log.reset()
	return f
}

func (f *fixture) score(id string) int {
	for _, p := range f.s.Players() {
		if p.ID == id {
			return p.Score
		}
	}
	return -1
}
