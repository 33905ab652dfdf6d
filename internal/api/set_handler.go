package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/quizdrill/backend/internal/domain/questionset"
	"github.com/quizdrill/backend/internal/store"
)

// ── Request / Response types ────────────────────────────────────────────────

type CreateSetRequest struct {
	Name string `json:"name"`
}

func (r *CreateSetRequest) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

type SetResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	OwnerID   string `json:"owner_id,omitempty"`
	Editable  bool   `json:"editable"`
	Existing  bool   `json:"existing,omitempty"` // true when creation reused a same-named set
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type QuestionResponse struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Difficulty string `json:"difficulty"`
	Tags       string `json:"tags,omitempty"`
	Position   int    `json:"position"`
}

type GetSetResponse struct {
	SetResponse
	Questions []QuestionResponse `json:"questions"`
}

func setResponse(qs *questionset.QuestionSet, userID string) SetResponse {
	return SetResponse{
		ID:        qs.ID,
		Name:      qs.Name,
		OwnerID:   qs.OwnerID,
		Editable:  qs.CanEdit(userID),
		CreatedAt: qs.CreatedAt.Format(time.RFC3339),
		UpdatedAt: qs.UpdatedAt.Format(time.RFC3339),
	}
}

func questionResponses(questions []questionset.Question) []QuestionResponse {
	out := make([]QuestionResponse, len(questions))
	for i, q := range questions {
		out[i] = QuestionResponse{
			ID:         q.ID,
			Text:       q.Text,
			Difficulty: string(q.Difficulty),
			Tags:       q.Tags,
			Position:   q.Position,
		}
	}
	return out
}

// loadEditableSet fetches a set and enforces the owner rule. Returns
// nil after writing the response when the caller should bail out.
func (h *Handler) loadEditableSet(w http.ResponseWriter, r *http.Request, setID string) *questionset.QuestionSet {
	qs, err := h.store.GetQuestionSet(r.Context(), setID)
	if h.handleStoreError(w, err, "question set") {
		return nil
	}
	if !qs.CanEdit(userID(r)) {
		respondError(w, http.StatusForbidden, "you cannot edit this question set")
		return nil
	}
	return qs
}

// ── Handlers ────────────────────────────────────────────────────────────────

// POST /sets
//
// Creating a set whose name already exists reuses the existing set so
// new questions are appended to it, matching how authors expect
// same-named sets to behave.
func (h *Handler) createSet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateSetRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	existing, err := h.store.FindQuestionSetByName(ctx, req.Name)
	if err == nil {
		if !existing.CanEdit(userID(r)) {
			respondError(w, http.StatusForbidden, "a question set with this name already exists and you cannot edit it")
			return
		}
		resp := setResponse(existing, userID(r))
		resp.Existing = true
		respondJSON(w, http.StatusOK, resp)
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		h.logger.Error("failed to look up set by name", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to create question set")
		return
	}

	qs, err := questionset.New(userID(r), req.Name, time.Now().UTC())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.SaveQuestionSet(ctx, qs); err != nil {
		h.logger.Error("failed to save set", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to create question set")
		return
	}

	respondJSON(w, http.StatusCreated, setResponse(qs, userID(r)))
}

// GET /sets
//
// One entry per unique name (case-insensitive), keeping the most
// recently updated set per name.
func (h *Handler) listSets(w http.ResponseWriter, r *http.Request) {
	sets, err := h.store.ListQuestionSets(r.Context())
	if err != nil {
		h.logger.Error("failed to list sets", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load question sets")
		return
	}

	deduped := questionset.DedupeByName(sets)
	response := make([]SetResponse, len(deduped))
	for i, qs := range deduped {
		response[i] = setResponse(qs, userID(r))
	}
	respondJSON(w, http.StatusOK, response)
}

// GET /sets/{setID}
func (h *Handler) getSet(w http.ResponseWriter, r *http.Request) {
	qs, err := h.store.GetQuestionSet(r.Context(), r.PathValue("setID"))
	if h.handleStoreError(w, err, "question set") {
		return
	}

	respondJSON(w, http.StatusOK, GetSetResponse{
		SetResponse: setResponse(qs, userID(r)),
		Questions:   questionResponses(qs.Questions),
	})
}

// PUT /sets/{setID}
func (h *Handler) renameSet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	setID := r.PathValue("setID")

	var req CreateSetRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	qs := h.loadEditableSet(w, r, setID)
	if qs == nil {
		return
	}

	now := time.Now().UTC()
	if err := h.store.RenameQuestionSet(ctx, setID, req.Name, now.Unix()); h.handleStoreError(w, err, "question set") {
		return
	}

	qs.Name = req.Name
	qs.UpdatedAt = now
	respondJSON(w, http.StatusOK, setResponse(qs, userID(r)))
}

// DELETE /sets/{setID}
//
// Deleting a set is the only path that removes sessions: they cascade
// here, never on their own.
func (h *Handler) deleteSet(w http.ResponseWriter, r *http.Request) {
	setID := r.PathValue("setID")

	if qs := h.loadEditableSet(w, r, setID); qs == nil {
		return
	}

	if err := h.store.DeleteQuestionSet(r.Context(), setID); h.handleStoreError(w, err, "question set") {
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
