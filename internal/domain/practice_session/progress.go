package practicesession

import (
	"fmt"
	"time"
)

// Action is a timer transition requested by the user.
type Action string

const (
	ActionPause  Action = "pause"
	ActionResume Action = "resume"
	ActionEnd    Action = "end"
)

// Valid reports whether the action name is one we know.
func (a Action) Valid() bool {
	return a == ActionPause || a == ActionResume || a == ActionEnd
}

// Apply dispatches a user action to the matching transition. Unknown
// actions and disallowed transitions are no-ops; the return value says
// whether the session changed.
func (s *PracticeSession) Apply(action Action, now time.Time) bool {
	switch action {
	case ActionPause:
		return s.Pause(now)
	case ActionResume:
		return s.Resume(now)
	case ActionEnd:
		return s.End(now)
	default:
		return false
	}
}

// NextIndex returns the 0-based index of the first question (in the
// set's fixed order) without a recorded response, or nil when every
// question has one.
func NextIndex(questionIDs []string, responses []Response) *int {
	answered := make(map[string]bool, len(responses))
	for _, r := range responses {
		answered[r.QuestionID] = true
	}
	for i, qid := range questionIDs {
		if !answered[qid] {
			idx := i
			return &idx
		}
	}
	return nil
}

// Snapshot is the per-request view of a session: tagged state plus the
// derived progression facts, computed once and passed through.
type Snapshot struct {
	State             State
	NextQuestionIndex *int // nil when every question is answered
	DurationSeconds   int64
	TimeRanOut        bool
}

// IsComplete reports whether the session should be presented as done:
// either every question is answered or the timer independently ended it.
func (sn Snapshot) IsComplete() bool {
	return sn.NextQuestionIndex == nil || sn.State == StateEnded
}

// TimeRanOut is the one place the "time ran out before completion"
// outcome is defined: the session is Ended while at least one question
// is still unanswered. Every call site (snapshots, history, dashboard)
// goes through here rather than re-deriving the flag.
func (s *PracticeSession) TimeRanOut(unanswered bool) bool {
	return s.State() == StateEnded && unanswered
}

// Snapshot derives the current view. Callers that want timeouts
// reflected must run ExpireIfOverdue first and persist the change.
func (s *PracticeSession) Snapshot(questionIDs []string, responses []Response, now time.Time) Snapshot {
	next := NextIndex(questionIDs, responses)
	return Snapshot{
		State:             s.State(),
		NextQuestionIndex: next,
		DurationSeconds:   int64(s.Duration(now) / time.Second),
		TimeRanOut:        s.TimeRanOut(next != nil),
	}
}

// FormatDuration renders a duration as "M:SS" for presentation.
func FormatDuration(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
