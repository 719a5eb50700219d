// Package metrics measures the duration of the phases of a run.
package metrics

import (
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

type Timers struct {
	mu     sync.Mutex
	Timers map[string]*Timer `json:"timers,omitempty"`
	last   string
	now    func() time.Time
}

func NewTimers() *Timers {
	return &Timers{Timers: make(map[string]*Timer), now: time.Now}
}

// set starts a timer, or stops it when it already exists.
func (ts *Timers) set(k string) {
	if t, ok := ts.Timers[k]; !ok {
		ts.Timers[k] = &Timer{start: ts.now()}
	} else {
		t.Total = ts.now().Sub(t.start).Seconds()
	}
}

// Set stops the last timer and starts k (lap).
func (ts *Timers) Set(k string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.last != "" && ts.last != k {
		ts.set(ts.last)
	}
	ts.set(k)
	ts.last = k
}

// Add starts, or stops, an independent timer.
func (ts *Timers) Add(k string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.set(k)
}

// Stop stops the running lap.
func (ts *Timers) Stop() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.last != "" {
		ts.set(ts.last)
		ts.last = ""
	}
}

// Log writes every timer, sorted by name, at debug level.
func (ts *Timers) Log() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	keys := make([]string, 0, len(ts.Timers))
	for k := range ts.Timers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		log.WithField("seconds", ts.Timers[k].Total).Debugf("Timer %s", k)
	}
}

type Timer struct {
	start time.Time

	// Total time in seconds
	Total float64 `json:"seconds"`
}
