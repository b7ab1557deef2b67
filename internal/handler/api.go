package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/snippetbin/internal/apperror"
	"github.com/sakif/snippetbin/internal/auth"
	"github.com/sakif/snippetbin/internal/model"
	"github.com/sakif/snippetbin/internal/service"
)

// APIHandler serves the read-only JSON API under /api.
//
// It goes through the same services as the HTML pages, so the visibility
// rules are identical: the API never shows a private snippet to anyone but
// its owner.
type APIHandler struct {
	snippets *service.SnippetService
	auth     *service.AuthService
	logger   *slog.Logger
}

// NewAPIHandler creates an APIHandler.
func NewAPIHandler(snippets *service.SnippetService, authSvc *service.AuthService, logger *slog.Logger) *APIHandler {
	return &APIHandler{snippets: snippets, auth: authSvc, logger: logger}
}

// HandleListSnippets returns one page of public snippets.
//
// HTTP: GET /api/snippets?page=N
//
// RESPONSE FORMAT:
//
//	{"snippets": [...], "count": 42, "page": 1, "perPage": 20}
func (h *APIHandler) HandleListSnippets(w http.ResponseWriter, r *http.Request) {
	page, err := h.snippets.ListPublic(r.Context(), pageParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	// An empty page must encode as [] rather than null.
	if page.Snippets == nil {
		page.Snippets = []model.Snippet{}
	}
	writeJSON(w, http.StatusOK, page)
}

// HandleGetSnippet returns one snippet the caller may view.
//
// HTTP: GET /api/snippets/{id}
func (h *APIHandler) HandleGetSnippet(w http.ResponseWriter, r *http.Request) {
	snippet, err := h.snippets.Get(r.Context(), auth.UserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snippet)
}

// HandleMe returns the logged-in user's profile, or 401 when anonymous.
//
// HTTP: GET /api/me
func (h *APIHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	user, err := h.auth.GetUserByID(r.Context(), userID)
	if err != nil {
		h.logger.Warn("HandleMe: session user not found", slog.String("userID", userID))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
