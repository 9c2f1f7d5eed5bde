package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewClampsIntervalToMinimum(t *testing.T) {
	s := New(5*time.Second, true, func() error { return nil }, nil)
	assert.Equal(t, MinInterval, s.interval)
}

func TestNewDefaultsZeroInterval(t *testing.T) {
	s := New(0, true, func() error { return nil }, nil)
	assert.Equal(t, DefaultInterval, s.interval)
}

func TestRunAnnouncesImmediatelyOnStart(t *testing.T) {
	var calls int32
	s := New(time.Hour, true, func() error {
		atomic.AddInt32(&calls, 1)
		return nil
	}, nil)
	s.wake = time.Hour

	go s.Run()
	defer s.Stop()

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, time.Millisecond)
}

func TestRunReannouncesAfterIntervalElapses(t *testing.T) {
	var calls int32
	s := New(MinInterval, true, func() error {
		atomic.AddInt32(&calls, 1)
		return nil
	}, nil)
	s.wake = 5 * time.Millisecond
	s.interval = 10 * time.Millisecond

	go s.Run()
	defer s.Stop()

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 2 }, time.Second, time.Millisecond)
}

func TestRunSkipsReannounceWhenDisabled(t *testing.T) {
	var calls int32
	s := New(MinInterval, false, func() error {
		atomic.AddInt32(&calls, 1)
		return nil
	}, nil)
	s.wake = 5 * time.Millisecond
	s.interval = 10 * time.Millisecond

	go s.Run()
	defer s.Stop()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestAnnounceNowSwallowsErrorAndLeavesLastAnnounceUnset(t *testing.T) {
	s := New(MinInterval, true, func() error { return errors.New("boom") }, nil)
	s.AnnounceNow()
	assert.True(t, s.LastAnnounce().IsZero())
}
