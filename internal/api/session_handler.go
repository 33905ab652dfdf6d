package api

import (
	"errors"
	"net/http"
	"time"

	practicesession "github.com/quizdrill/backend/internal/domain/practice_session"
	"github.com/quizdrill/backend/internal/service"
)

// ── Request / Response types ────────────────────────────────────────────────

type StartSessionRequest struct {
	SetID        string `json:"set_id"`
	TimeLimitMin *int   `json:"time_limit_min,omitempty"` // nil = unlimited
	TimerEnabled *bool  `json:"timer_enabled,omitempty"`  // defaults to true
}

func (r *StartSessionRequest) Validate() error {
	if r.SetID == "" {
		return errors.New("set_id is required")
	}
	if r.TimeLimitMin != nil && *r.TimeLimitMin <= 0 {
		return errors.New("time_limit_min must be positive")
	}
	return nil
}

type SessionActionRequest struct {
	Action string `json:"action"` // pause, resume, end
}

func (r *SessionActionRequest) Validate() error {
	if !practicesession.Action(r.Action).Valid() {
		return errors.New("action must be pause, resume, or end")
	}
	return nil
}

type SubmitResponseRequest struct {
	QuestionID string `json:"question_id"`
	Text       string `json:"text"`
	SelfRating *int   `json:"self_rating,omitempty"` // 1–5; out-of-range values are dropped
}

func (r *SubmitResponseRequest) Validate() error {
	if r.QuestionID == "" {
		return errors.New("question_id is required")
	}
	return nil
}

// SessionStateResponse is the per-request session view. Question holds
// the next unanswered question while the session is in progress.
type SessionStateResponse struct {
	ID                string            `json:"id"`
	State             string            `json:"state"`
	NextQuestionIndex *int              `json:"next_question_index"` // null when all answered
	TotalQuestions    int               `json:"total_questions"`
	DurationSeconds   int64             `json:"duration_seconds"`
	DurationDisplay   string            `json:"duration_display"`
	TimeRanOut        bool              `json:"time_ran_out"`
	Complete          bool              `json:"complete"`
	TimeLimitMin      *int              `json:"time_limit_min,omitempty"`
	TimerEnabled      bool              `json:"timer_enabled"`
	Question          *QuestionResponse `json:"question,omitempty"`
}

type ReviewItemResponse struct {
	Question   QuestionResponse `json:"question"`
	AnswerText string           `json:"answer_text"`
	SelfRating *int             `json:"self_rating,omitempty"`
}

type SessionReviewResponse struct {
	ID         string               `json:"id"`
	SetName    string               `json:"set_name"`
	State      string               `json:"state"`
	TimeRanOut bool                 `json:"time_ran_out"`
	Responses  []ReviewItemResponse `json:"responses"`
}

// ── Handlers ────────────────────────────────────────────────────────────────

// POST /sessions
func (h *Handler) startSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req StartSessionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	cfg := practicesession.Config{
		TimeLimitMinutes: req.TimeLimitMin,
		TimerEnabled:     true,
	}
	if req.TimerEnabled != nil {
		cfg.TimerEnabled = *req.TimerEnabled
	}

	session, err := h.practice.StartSession(ctx, userID(r), req.SetID, cfg)
	if errors.Is(err, service.ErrEmptySet) {
		respondError(w, http.StatusBadRequest, "question set has no questions")
		return
	}
	if h.handleStoreError(w, err, "question set") {
		return
	}

	h.respondSessionState(w, r, http.StatusCreated, session.ID)
}

// GET /sessions/{sessionID}
func (h *Handler) getSessionState(w http.ResponseWriter, r *http.Request) {
	h.respondSessionState(w, r, http.StatusOK, r.PathValue("sessionID"))
}

// POST /sessions/{sessionID}/actions
func (h *Handler) applySessionAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := r.PathValue("sessionID")

	var req SessionActionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	// Disallowed transitions are no-ops, so a duplicate pause/end from
	// a double-click just echoes the current state back.
	_, err := h.practice.ApplyAction(ctx, userID(r), sessionID, practicesession.Action(req.Action))
	if h.handleStoreError(w, err, "session") {
		return
	}

	h.respondSessionState(w, r, http.StatusOK, sessionID)
}

// POST /sessions/{sessionID}/responses
func (h *Handler) submitResponse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := r.PathValue("sessionID")

	var req SubmitResponseRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	_, err := h.practice.RecordResponse(ctx, userID(r), sessionID, req.QuestionID, req.Text, req.SelfRating)
	if h.handleStoreError(w, err, "session or question") {
		return
	}

	h.respondSessionState(w, r, http.StatusOK, sessionID)
}

// GET /sessions/{sessionID}/review
func (h *Handler) reviewSession(w http.ResponseWriter, r *http.Request) {
	review, err := h.practice.SessionReview(r.Context(), userID(r), r.PathValue("sessionID"))
	if h.handleStoreError(w, err, "session") {
		return
	}

	items := make([]ReviewItemResponse, len(review.Items))
	for i, item := range review.Items {
		items[i] = ReviewItemResponse{
			Question: QuestionResponse{
				ID:         item.Question.ID,
				Text:       item.Question.Text,
				Difficulty: string(item.Question.Difficulty),
				Tags:       item.Question.Tags,
				Position:   item.Question.Position,
			},
			AnswerText: item.AnswerText,
			SelfRating: item.SelfRating,
		}
	}

	respondJSON(w, http.StatusOK, SessionReviewResponse{
		ID:         review.Session.ID,
		SetName:    review.SetName,
		State:      string(review.Snapshot.State),
		TimeRanOut: review.Snapshot.TimeRanOut,
		Responses:  items,
	})
}

// respondSessionState renders the shared session-state payload, with
// the next unanswered question inlined while the session is live.
func (h *Handler) respondSessionState(w http.ResponseWriter, r *http.Request, status int, sessionID string) {
	state, err := h.practice.CurrentState(r.Context(), userID(r), sessionID)
	if h.handleStoreError(w, err, "session") {
		return
	}
	session, qs, snap := state.Session, state.Set, state.Snapshot

	resp := SessionStateResponse{
		ID:                session.ID,
		State:             string(snap.State),
		NextQuestionIndex: snap.NextQuestionIndex,
		TotalQuestions:    len(qs.Questions),
		DurationSeconds:   snap.DurationSeconds,
		DurationDisplay:   practicesession.FormatDuration(time.Duration(snap.DurationSeconds) * time.Second),
		TimeRanOut:        snap.TimeRanOut,
		Complete:          snap.IsComplete(),
		TimeLimitMin:      session.TimeLimitMinutes,
		TimerEnabled:      session.TimerEnabled,
	}

	if snap.State != practicesession.StateEnded && snap.NextQuestionIndex != nil {
		q := qs.Questions[*snap.NextQuestionIndex]
		resp.Question = &QuestionResponse{
			ID:         q.ID,
			Text:       q.Text,
			Difficulty: string(q.Difficulty),
			Tags:       q.Tags,
			Position:   q.Position,
		}
	}

	respondJSON(w, status, resp)
}
