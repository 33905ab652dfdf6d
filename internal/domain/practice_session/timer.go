package practicesession

import "time"

// State is the derived lifecycle phase of a session's timer.
type State string

const (
	StateRunning State = "running"
	StatePaused  State = "paused"
	StateEnded   State = "ended"
)

// State derives the lifecycle phase from the stored fields:
// Ended iff EndedAt is set, Paused iff PausedAt is set and not Ended,
// Running otherwise.
func (s *PracticeSession) State() State {
	switch {
	case s.EndedAt != nil:
		return StateEnded
	case s.PausedAt != nil:
		return StatePaused
	default:
		return StateRunning
	}
}

// Deadline returns the instant the session times out. The second return
// is false when the session has no effective deadline (timer disabled or
// no limit configured). Completed pauses push the deadline forward.
func (s *PracticeSession) Deadline() (time.Time, bool) {
	if !s.TimerEnabled || s.TimeLimitMinutes == nil {
		return time.Time{}, false
	}
	d := s.StartedAt.
		Add(time.Duration(*s.TimeLimitMinutes) * time.Minute).
		Add(time.Duration(s.TotalPausedSeconds) * time.Second)
	return d, true
}

// Pause stops the timer. Valid only while Running; anything else is an
// idempotent no-op so a double-click cannot corrupt state. Reports
// whether the session changed and needs persisting.
func (s *PracticeSession) Pause(now time.Time) bool {
	if s.State() != StateRunning {
		return false
	}
	s.PausedAt = &now
	return true
}

// Resume restarts the timer, folding the completed pause interval into
// TotalPausedSeconds. Valid only while Paused; no-op otherwise.
func (s *PracticeSession) Resume(now time.Time) bool {
	if s.State() != StatePaused {
		return false
	}
	paused := int64(now.Sub(*s.PausedAt) / time.Second)
	if paused > 0 {
		s.TotalPausedSeconds += paused
	}
	s.PausedAt = nil
	return true
}

// End makes the session terminal at the given instant. Callers pass the
// deadline timestamp (not now) when auto-ending on timeout so duration
// accounting stays exact. Ending an already-ended session is a no-op.
func (s *PracticeSession) End(at time.Time) bool {
	if s.State() == StateEnded {
		return false
	}
	s.PausedAt = nil
	s.EndedAt = &at
	return true
}

// ExpireIfOverdue ends a Running timed session whose deadline has passed,
// using the deadline itself as EndedAt. Paused sessions never expire:
// the ongoing pause shifts the deadline forward on resume.
func (s *PracticeSession) ExpireIfOverdue(now time.Time) bool {
	if s.State() != StateRunning {
		return false
	}
	deadline, ok := s.Deadline()
	if !ok || now.Before(deadline) {
		return false
	}
	return s.End(deadline)
}

// Duration returns the active (non-paused) elapsed time, floored at zero.
func (s *PracticeSession) Duration(now time.Time) time.Duration {
	end := now
	if s.EndedAt != nil {
		end = *s.EndedAt
	}
	d := end.Sub(s.StartedAt) - time.Duration(s.TotalPausedSeconds)*time.Second
	if d < 0 {
		return 0
	}
	return d
}
