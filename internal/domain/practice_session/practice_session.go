package practicesession

import (
	"time"

	"github.com/quizdrill/backend/internal/id"
)

// PracticeSession is one user's attempt at answering a question set,
// optionally against a running timer. Timer bookkeeping lives in three
// nullable fields plus an accumulator; the lifecycle state is derived
// once per request via State and passed through.
type PracticeSession struct {
	ID            string
	UserID        string
	QuestionSetID string

	StartedAt          time.Time // set once at creation, immutable
	TimeLimitMinutes   *int      // nil = unlimited
	TimerEnabled       bool      // fixed at creation; gates the deadline only
	EndedAt            *time.Time
	PausedAt           *time.Time
	TotalPausedSeconds int64 // sum of all completed pause intervals
}

// Config holds the optional timer constraints chosen when a session starts.
type Config struct {
	TimeLimitMinutes *int // nil = no time limit
	TimerEnabled     bool
}

// New creates a Running session for the given user and question set.
// A non-positive time limit is treated as no limit.
func New(userID, questionSetID string, cfg Config, now time.Time) *PracticeSession {
	limit := cfg.TimeLimitMinutes
	if limit != nil && *limit <= 0 {
		limit = nil
	}
	return &PracticeSession{
		ID:               id.GenerateID(),
		UserID:           userID,
		QuestionSetID:    questionSetID,
		StartedAt:        now,
		TimeLimitMinutes: limit,
		TimerEnabled:     cfg.TimerEnabled,
	}
}

// Response is a user's answer to one question within one session.
// At most one exists per (session, question); resubmission overwrites.
type Response struct {
	SessionID  string
	QuestionID string
	Text       string
	SelfRating *int // 1–5, nil when not rated
	SavedAt    time.Time
}

// NormalizeRating discards ratings outside 1–5 rather than rejecting
// the whole submission.
func NormalizeRating(rating *int) *int {
	if rating == nil || *rating < 1 || *rating > 5 {
		return nil
	}
	return rating
}
