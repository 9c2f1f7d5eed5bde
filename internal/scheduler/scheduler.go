// Package scheduler implements the Announce Scheduler (spec.md §4.10):
// a wake loop that re-announces the local destination at a configured
// interval, with an immediate announce on start. Grounded on air's
// server.go graceful-loop shape (a ticker-driven goroutine stopped via
// a done channel), generalized from "accept connections" to
// "re-announce periodically."
package scheduler

import (
	"sync"
	"time"

	"github.com/fr33n0w/rweb"
)

// MinInterval is the lowest interval spec.md §4.10 permits configuring.
const MinInterval = 60 * time.Second

// wakeInterval is how often the loop checks whether it's time to
// re-announce; it is not itself the announce interval.
const wakeInterval = 10 * time.Second

// DefaultInterval is the announce interval used absent configuration.
const DefaultInterval = 1800 * time.Second

// AnnounceFunc performs one announce, returning an error to be logged
// (never fatal to the loop).
type AnnounceFunc func() error

// Scheduler drives periodic re-announcement on its own goroutine.
type Scheduler struct {
	interval time.Duration
	wake     time.Duration
	announce AnnounceFunc
	log      *rweb.Logger
	now      func() time.Time

	enabled bool
	stop    chan struct{}
	done    chan struct{}

	mu           sync.Mutex
	lastAnnounce time.Time
}

// New returns a Scheduler with interval clamped to MinInterval and
// defaulted to DefaultInterval when zero. enabled gates only the
// periodic re-announce in Run's loop; Run's initial announce and
// manual calls to AnnounceNow happen regardless.
func New(interval time.Duration, enabled bool, announce AnnounceFunc, log *rweb.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if interval < MinInterval {
		interval = MinInterval
	}
	return &Scheduler{
		interval: interval,
		wake:     wakeInterval,
		enabled:  enabled,
		announce: announce,
		log:      log,
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// AnnounceNow runs the announce function immediately, recording the
// timestamp on success or logging and swallowing the error on failure
// (spec.md §4.10: "on any error during announce, log and continue").
func (s *Scheduler) AnnounceNow() {
	if err := s.announce(); err != nil {
		if s.log != nil {
			s.log.Errorf("scheduler: announce failed: %v", err)
		}
		return
	}
	s.mu.Lock()
	s.lastAnnounce = s.now()
	s.mu.Unlock()
}

// Run issues an initial announce, then blocks, waking every 10s to
// check whether interval has elapsed since the last announce. It
// returns when Stop is called.
func (s *Scheduler) Run() {
	defer close(s.done)

	s.AnnounceNow()

	ticker := time.NewTicker(s.wake)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if !s.enabled {
				continue
			}
			if s.now().Sub(s.LastAnnounce()) >= s.interval {
				s.AnnounceNow()
			}
		}
	}
}

// Stop signals Run to exit and waits for it to do so.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
}

// LastAnnounce returns the timestamp of the most recent successful
// announce, the zero value if none has succeeded yet.
func (s *Scheduler) LastAnnounce() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAnnounce
}
