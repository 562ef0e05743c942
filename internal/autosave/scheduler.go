package autosave

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultCheckInterval = time.Second
	DefaultIdleWindow    = 2 * time.Second
)

// Scheduler asks the autosaver for a backup only while the user is idle:
// no pointer button held and no input within the idle window.
type Scheduler struct {
	autosaver  *Autosaver
	log        *zap.Logger
	idleWindow time.Duration
	now        func() time.Time

	lastInput  time.Time
	buttonHeld bool
	lastPoll   time.Time
	stopped    bool
}

func NewScheduler(a *Autosaver, idleWindow time.Duration) *Scheduler {
	if idleWindow <= 0 {
		idleWindow = DefaultIdleWindow
	}
	return &Scheduler{
		autosaver:  a,
		log:        a.log,
		idleWindow: idleWindow,
		now:        a.now,
		lastInput:  a.now(),
	}
}

// NoteInput records keyboard or pointer activity.
func (s *Scheduler) NoteInput() {
	s.lastInput = s.now()
}

// SetButtonHeld records whether a pointer button is down. Releasing the
// button counts as input.
func (s *Scheduler) SetButtonHeld(held bool) {
	if s.buttonHeld && !held {
		s.lastInput = s.now()
	}
	s.buttonHeld = held
}

// Idle reports whether the user has been quiet for the idle window.
func (s *Scheduler) Idle() bool {
	return !s.buttonHeld && s.now().Sub(s.lastInput) >= s.idleWindow
}

// Poll is called by the owning loop once per check interval. It reports
// whether a backup was written.
func (s *Scheduler) Poll(ctx context.Context) bool {
	if s.stopped {
		return false
	}
	s.lastPoll = s.now()
	if !s.Idle() {
		return false
	}
	return s.autosaver.TriggerAutosave(ctx)
}

// PollEvery calls Poll when at least interval has passed since the last
// poll. Loops that cannot own a ticker call it between units of work.
func (s *Scheduler) PollEvery(ctx context.Context, interval time.Duration) bool {
	if !s.lastPoll.IsZero() && s.now().Sub(s.lastPoll) < interval {
		return false
	}
	return s.Poll(ctx)
}

// Shutdown writes the final backup on normal teardown and stops further
// polling. It ignores the idle window and the save interval.
func (s *Scheduler) Shutdown(ctx context.Context) bool {
	if s.stopped {
		return false
	}
	s.stopped = true
	saved := s.autosaver.Flush(ctx)
	s.log.Debug("autosave scheduler stopped", zap.Bool("final_backup", saved))
	return saved
}
