// internal/api/router.go
package api

import "net/http"

// RegisterRoutes wires every handler onto the mux. Everything past
// /auth requires a bearer token.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	// Auth
	mux.HandleFunc("POST /auth/register", h.register)
	mux.HandleFunc("POST /auth/login", h.login)

	// Question sets
	mux.HandleFunc("POST /sets", h.RequireAuth(h.createSet))
	mux.HandleFunc("GET /sets", h.RequireAuth(h.listSets))
	mux.HandleFunc("GET /sets/{setID}", h.RequireAuth(h.getSet))
	mux.HandleFunc("PUT /sets/{setID}", h.RequireAuth(h.renameSet))
	mux.HandleFunc("DELETE /sets/{setID}", h.RequireAuth(h.deleteSet))

	// Questions
	mux.HandleFunc("POST /sets/{setID}/questions", h.RequireAuth(h.addQuestion))
	mux.HandleFunc("PUT /sets/{setID}/questions/{questionID}", h.RequireAuth(h.updateQuestion))
	mux.HandleFunc("DELETE /sets/{setID}/questions/{questionID}", h.RequireAuth(h.deleteQuestion))

	// Practice sessions
	mux.HandleFunc("POST /sessions", h.RequireAuth(h.startSession))
	mux.HandleFunc("GET /sessions/{sessionID}", h.RequireAuth(h.getSessionState))
	mux.HandleFunc("POST /sessions/{sessionID}/actions", h.RequireAuth(h.applySessionAction))
	mux.HandleFunc("POST /sessions/{sessionID}/responses", h.RequireAuth(h.submitResponse))
	mux.HandleFunc("GET /sessions/{sessionID}/review", h.RequireAuth(h.reviewSession))

	// History & dashboard
	mux.HandleFunc("GET /history", h.RequireAuth(h.history))
	mux.HandleFunc("GET /dashboard", h.RequireAuth(h.dashboard))

	// Export / import
	mux.HandleFunc("GET /export", h.RequireAuth(h.exportSets))
	mux.HandleFunc("POST /import", h.RequireAuth(h.importSets))
}
