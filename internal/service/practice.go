package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	practicesession "github.com/quizdrill/backend/internal/domain/practice_session"
	"github.com/quizdrill/backend/internal/domain/questionset"
	"github.com/quizdrill/backend/internal/store"
)

// ErrEmptySet rejects starting a session on a set with no questions.
var ErrEmptySet = errors.New("question set has no questions")

// PracticeService owns every read-modify-write against a session. Each
// mutation loads the record, runs the explicit domain transition, and
// persists only when the transition reports a change, so concurrent
// duplicate requests (double-clicks) degrade to no-ops.
type PracticeService struct {
	store  store.Store
	logger *slog.Logger

	// Now is swappable in tests; defaults to time.Now.
	Now func() time.Time
}

func NewPracticeService(s store.Store, logger *slog.Logger) *PracticeService {
	return &PracticeService{
		store:  s,
		logger: logger,
		Now:    time.Now,
	}
}

// StartSession creates a Running session for the user against the set.
func (ps *PracticeService) StartSession(ctx context.Context, userID, setID string, cfg practicesession.Config) (*practicesession.PracticeSession, error) {
	qs, err := ps.store.GetQuestionSet(ctx, setID)
	if err != nil {
		return nil, err
	}
	if len(qs.Questions) == 0 {
		return nil, ErrEmptySet
	}

	session := practicesession.New(userID, setID, cfg, ps.Now().UTC())
	if err := ps.store.SaveSession(ctx, session); err != nil {
		return nil, err
	}

	ps.logger.Info("session started",
		"session_id", session.ID, "set_id", setID, "timer_enabled", session.TimerEnabled)
	return session, nil
}

// loadOwned fetches a session and hides other users' sessions behind
// ErrNotFound.
func (ps *PracticeService) loadOwned(ctx context.Context, userID, sessionID string) (*practicesession.PracticeSession, error) {
	session, err := ps.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, store.ErrNotFound
	}
	return session, nil
}

// expire runs the timeout check and persists the transition when it
// fires. Every session read goes through here first so a lapsed
// deadline is reflected (and stored) before anything else looks at the
// session.
func (ps *PracticeService) expire(ctx context.Context, session *practicesession.PracticeSession, now time.Time) error {
	if !session.ExpireIfOverdue(now) {
		return nil
	}
	if err := ps.store.UpdateSessionTimer(ctx, session); err != nil {
		return err
	}
	ps.logger.Info("session timed out", "session_id", session.ID, "ended_at", *session.EndedAt)
	return nil
}

// ApplyAction runs a pause/resume/end transition. Disallowed
// transitions are idempotent no-ops and still return the current state.
func (ps *PracticeService) ApplyAction(ctx context.Context, userID, sessionID string, action practicesession.Action) (practicesession.Snapshot, error) {
	now := ps.Now().UTC()

	session, err := ps.loadOwned(ctx, userID, sessionID)
	if err != nil {
		return practicesession.Snapshot{}, err
	}
	if err := ps.expire(ctx, session, now); err != nil {
		return practicesession.Snapshot{}, err
	}

	if session.Apply(action, now) {
		if err := ps.store.UpdateSessionTimer(ctx, session); err != nil {
			return practicesession.Snapshot{}, err
		}
	}

	return ps.snapshot(ctx, session, now)
}

// RecordResponse upserts the user's answer for one question and ends
// the session when the last question gets answered. Ratings outside
// 1–5 are discarded, not rejected.
func (ps *PracticeService) RecordResponse(ctx context.Context, userID, sessionID, questionID, text string, rating *int) (practicesession.Snapshot, error) {
	now := ps.Now().UTC()

	session, err := ps.loadOwned(ctx, userID, sessionID)
	if err != nil {
		return practicesession.Snapshot{}, err
	}
	if err := ps.expire(ctx, session, now); err != nil {
		return practicesession.Snapshot{}, err
	}

	qs, err := ps.store.GetQuestionSet(ctx, session.QuestionSetID)
	if err != nil {
		return practicesession.Snapshot{}, err
	}
	if !containsQuestion(qs.Questions, questionID) {
		return practicesession.Snapshot{}, store.ErrNotFound
	}

	// A late answer to an already-ended session is still saved (the
	// domain tolerates it); it just cannot resurrect the session.
	response := &practicesession.Response{
		SessionID:  sessionID,
		QuestionID: questionID,
		Text:       text,
		SelfRating: practicesession.NormalizeRating(rating),
		SavedAt:    now,
	}
	if err := ps.store.UpsertResponse(ctx, response); err != nil {
		return practicesession.Snapshot{}, err
	}

	responses, err := ps.store.ListResponses(ctx, sessionID)
	if err != nil {
		return practicesession.Snapshot{}, err
	}

	// Answering the last question ends the session even if the timer
	// was never touched.
	if practicesession.NextIndex(qs.QuestionIDs(), responses) == nil && session.End(now) {
		if err := ps.store.UpdateSessionTimer(ctx, session); err != nil {
			return practicesession.Snapshot{}, err
		}
		ps.logger.Info("session completed", "session_id", session.ID)
	}

	return session.Snapshot(qs.QuestionIDs(), responses, now), nil
}

// SessionState bundles the snapshot with the records it was derived
// from, so rendering a state response costs one service call.
type SessionState struct {
	Session  *practicesession.PracticeSession
	Set      *questionset.QuestionSet
	Snapshot practicesession.Snapshot
}

// CurrentState reports the per-request view of a session.
func (ps *PracticeService) CurrentState(ctx context.Context, userID, sessionID string) (*SessionState, error) {
	now := ps.Now().UTC()

	session, err := ps.loadOwned(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := ps.expire(ctx, session, now); err != nil {
		return nil, err
	}

	qs, err := ps.store.GetQuestionSet(ctx, session.QuestionSetID)
	if err != nil {
		return nil, err
	}
	responses, err := ps.store.ListResponses(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	return &SessionState{
		Session:  session,
		Set:      qs,
		Snapshot: session.Snapshot(qs.QuestionIDs(), responses, now),
	}, nil
}

func (ps *PracticeService) snapshot(ctx context.Context, session *practicesession.PracticeSession, now time.Time) (practicesession.Snapshot, error) {
	qs, err := ps.store.GetQuestionSet(ctx, session.QuestionSetID)
	if err != nil {
		return practicesession.Snapshot{}, err
	}
	responses, err := ps.store.ListResponses(ctx, session.ID)
	if err != nil {
		return practicesession.Snapshot{}, err
	}
	return session.Snapshot(qs.QuestionIDs(), responses, now), nil
}

// ReviewItem pairs a question with the recorded answer (empty when the
// question went unanswered).
type ReviewItem struct {
	Question   questionset.Question
	AnswerText string
	SelfRating *int
}

// Review is the read-only summary of a session in question order.
type Review struct {
	Session  *practicesession.PracticeSession
	SetName  string
	Snapshot practicesession.Snapshot
	Items    []ReviewItem
}

// SessionReview builds the read-only (question, answer) summary shown
// on completion and from history.
func (ps *PracticeService) SessionReview(ctx context.Context, userID, sessionID string) (*Review, error) {
	now := ps.Now().UTC()

	session, err := ps.loadOwned(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := ps.expire(ctx, session, now); err != nil {
		return nil, err
	}

	qs, err := ps.store.GetQuestionSet(ctx, session.QuestionSetID)
	if err != nil {
		return nil, err
	}
	responses, err := ps.store.ListResponses(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	byQuestion := make(map[string]practicesession.Response, len(responses))
	for _, r := range responses {
		byQuestion[r.QuestionID] = r
	}

	items := make([]ReviewItem, len(qs.Questions))
	for i, q := range qs.Questions {
		item := ReviewItem{Question: q}
		if r, ok := byQuestion[q.ID]; ok {
			item.AnswerText = r.Text
			item.SelfRating = r.SelfRating
		}
		items[i] = item
	}

	return &Review{
		Session:  session,
		SetName:  qs.Name,
		Snapshot: session.Snapshot(qs.QuestionIDs(), responses, now),
		Items:    items,
	}, nil
}

// HistoryEntry is one row of a user's practice history.
type HistoryEntry struct {
	Session       *practicesession.PracticeSession
	SetName       string
	QuestionCount int
	AnsweredCount int
	DurationSecs  int64
	TimeRanOut    bool
	Complete      bool
}

// History lists the user's sessions, most recent first.
func (ps *PracticeService) History(ctx context.Context, userID string) ([]HistoryEntry, error) {
	now := ps.Now().UTC()

	overviews, err := ps.store.ListUserSessions(ctx, userID)
	if err != nil {
		return nil, err
	}

	entries := make([]HistoryEntry, len(overviews))
	for i, o := range overviews {
		sess := o.Session
		// An abandoned session may be past its deadline without any
		// direct read having expired it yet. Apply the timeout here so
		// the listing reports it ended; persistence happens on the next
		// direct read.
		sess.ExpireIfOverdue(now)
		unanswered := o.AnsweredCount < o.QuestionCount
		entries[i] = HistoryEntry{
			Session:       sess,
			SetName:       o.SetName,
			QuestionCount: o.QuestionCount,
			AnsweredCount: o.AnsweredCount,
			DurationSecs:  int64(sess.Duration(now) / time.Second),
			TimeRanOut:    sess.TimeRanOut(unanswered),
			Complete:      sess.State() == practicesession.StateEnded || !unanswered,
		}
	}
	return entries, nil
}

func containsQuestion(questions []questionset.Question, questionID string) bool {
	for _, q := range questions {
		if q.ID == questionID {
			return true
		}
	}
	return false
}
