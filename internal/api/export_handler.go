package api

import (
	"net/http"
	"time"

	"github.com/quizdrill/backend/internal/domain/questionset"
)

// ── Request / Response types ────────────────────────────────────────────────

type ExportQuestion struct {
	Text       string `json:"text"`
	Difficulty string `json:"difficulty"`
	Tags       string `json:"tags,omitempty"`
	Position   int    `json:"position"`
}

type ExportSet struct {
	Name      string           `json:"name"`
	Questions []ExportQuestion `json:"questions"`
}

type ExportData struct {
	Version    string      `json:"version"`
	ExportedAt string      `json:"exported_at"`
	Sets       []ExportSet `json:"sets"`
}

type ImportResult struct {
	SetsCreated      int `json:"sets_created"`
	QuestionsCreated int `json:"questions_created"`
}

// ── Handlers ────────────────────────────────────────────────────────────────

// GET /export
//
// Exports the calling user's question sets (with questions, without
// sessions) as a portable JSON document.
func (h *Handler) exportSets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sets, err := h.store.ListQuestionSetsByOwner(ctx, userID(r))
	if err != nil {
		h.logger.Error("failed to list sets for export", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to export")
		return
	}

	exportData := ExportData{
		Version:    "1.0",
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Sets:       make([]ExportSet, 0, len(sets)),
	}

	for _, qs := range sets {
		exportSet := ExportSet{
			Name:      qs.Name,
			Questions: make([]ExportQuestion, len(qs.Questions)),
		}
		for i, q := range qs.Questions {
			exportSet.Questions[i] = ExportQuestion{
				Text:       q.Text,
				Difficulty: string(q.Difficulty),
				Tags:       q.Tags,
				Position:   q.Position,
			}
		}
		exportData.Sets = append(exportData.Sets, exportSet)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename=quizdrill-export.json")
	respondJSON(w, http.StatusOK, exportData)
}

// POST /import
func (h *Handler) importSets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var importData ExportData
	if !decodeJSON(w, r, &importData) {
		return
	}

	now := time.Now().UTC()
	result := ImportResult{}

	for _, set := range importData.Sets {
		qs, err := questionset.New(userID(r), set.Name, now)
		if err != nil {
			h.logger.Error("failed to create set", "name", set.Name, "error", err)
			continue
		}

		for _, q := range set.Questions {
			if _, err := qs.AddQuestion(q.Text, questionset.Difficulty(q.Difficulty), q.Tags, q.Position); err != nil {
				h.logger.Error("failed to add question", "error", err)
				continue
			}
		}

		if err := h.store.SaveQuestionSet(ctx, qs); err != nil {
			h.logger.Error("failed to save imported set", "name", set.Name, "error", err)
			continue
		}
		result.SetsCreated++
		result.QuestionsCreated += len(qs.Questions)
	}

	respondJSON(w, http.StatusCreated, result)
}
