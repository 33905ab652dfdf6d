package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/quizdrill/backend/internal/domain/questionset"
)

// ── Request / Response types ────────────────────────────────────────────────

type QuestionRequest struct {
	Text       string `json:"text"`
	Difficulty string `json:"difficulty,omitempty"` // easy, medium, hard; defaults to medium
	Tags       string `json:"tags,omitempty"`
	Position   int    `json:"position"`
}

func (r *QuestionRequest) Validate() error {
	if r.Text == "" {
		return errors.New("text is required")
	}
	return nil
}

// ── Handlers ────────────────────────────────────────────────────────────────

// POST /sets/{setID}/questions
func (h *Handler) addQuestion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	setID := r.PathValue("setID")

	qs := h.loadEditableSet(w, r, setID)
	if qs == nil {
		return
	}

	var req QuestionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	q, err := qs.AddQuestion(req.Text, questionset.Difficulty(req.Difficulty), req.Tags, req.Position)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.AddQuestion(ctx, setID, q, time.Now().UTC().Unix()); err != nil {
		h.logger.Error("failed to save question", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to save question")
		return
	}

	respondJSON(w, http.StatusCreated, QuestionResponse{
		ID:         q.ID,
		Text:       q.Text,
		Difficulty: string(q.Difficulty),
		Tags:       q.Tags,
		Position:   q.Position,
	})
}

// PUT /sets/{setID}/questions/{questionID}
func (h *Handler) updateQuestion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	setID := r.PathValue("setID")
	questionID := r.PathValue("questionID")

	if qs := h.loadEditableSet(w, r, setID); qs == nil {
		return
	}

	var req QuestionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	difficulty := questionset.Difficulty(req.Difficulty)
	if difficulty == "" {
		difficulty = questionset.DifficultyMedium
	}
	if !difficulty.Valid() {
		respondError(w, http.StatusBadRequest, "difficulty must be easy, medium, or hard")
		return
	}

	q := questionset.Question{
		ID:         questionID,
		Text:       req.Text,
		Difficulty: difficulty,
		Tags:       req.Tags,
		Position:   req.Position,
	}

	if err := h.store.UpdateQuestion(ctx, setID, q, time.Now().UTC().Unix()); h.handleStoreError(w, err, "question") {
		return
	}

	respondJSON(w, http.StatusOK, QuestionResponse{
		ID:         q.ID,
		Text:       q.Text,
		Difficulty: string(q.Difficulty),
		Tags:       q.Tags,
		Position:   q.Position,
	})
}

// DELETE /sets/{setID}/questions/{questionID}
func (h *Handler) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	setID := r.PathValue("setID")
	questionID := r.PathValue("questionID")

	if qs := h.loadEditableSet(w, r, setID); qs == nil {
		return
	}

	if err := h.store.DeleteQuestion(ctx, setID, questionID, time.Now().UTC().Unix()); h.handleStoreError(w, err, "question") {
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
