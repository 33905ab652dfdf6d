package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/quizdrill/backend/internal/domain/user"
	"github.com/quizdrill/backend/internal/store"
)

// ── Request / Response types ────────────────────────────────────────────────

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *RegisterRequest) Validate() error {
	if r.Username == "" {
		return errors.New("username is required")
	}
	if r.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token    string `json:"token"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// ── Handlers ────────────────────────────────────────────────────────────────

// POST /auth/register
func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	u, err := user.New(req.Username, req.Email, req.Password, time.Now().UTC())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.SaveUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			respondError(w, http.StatusConflict, "username already taken")
			return
		}
		h.logger.Error("failed to save user", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	// Registration logs the user straight in.
	signed, err := h.tokens.Issue(u.ID, u.Username, time.Now().UTC())
	if err != nil {
		h.logger.Error("failed to issue token", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	respondJSON(w, http.StatusCreated, AuthResponse{
		Token:    signed,
		UserID:   u.ID,
		Username: u.Username,
	})
}

// POST /auth/login
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.store.GetUserByUsername(ctx, req.Username)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		h.logger.Error("failed to load user", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to log in")
		return
	}

	if !u.CheckPassword(req.Password) {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	signed, err := h.tokens.Issue(u.ID, u.Username, time.Now().UTC())
	if err != nil {
		h.logger.Error("failed to issue token", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to log in")
		return
	}

	respondJSON(w, http.StatusOK, AuthResponse{
		Token:    signed,
		UserID:   u.ID,
		Username: u.Username,
	})
}
