package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/snippetbin/internal/apperror"
	"github.com/sakif/snippetbin/internal/auth"
	"github.com/sakif/snippetbin/internal/form"
	"github.com/sakif/snippetbin/internal/highlight"
	"github.com/sakif/snippetbin/internal/model"
	"github.com/sakif/snippetbin/internal/service"
)

// SnippetHandler serves the snippet pages: add, list, detail, edit, delete.
//
// Every handler reads the caller from the request context (put there by
// auth.LoadSession) and passes the user ID to the service, which decides
// what the caller may see or change.
type SnippetHandler struct {
	snippets    *service.SnippetService
	highlighter *highlight.Highlighter
	render      *Renderer
	logger      *slog.Logger
}

// NewSnippetHandler creates a SnippetHandler.
func NewSnippetHandler(
	snippets *service.SnippetService,
	highlighter *highlight.Highlighter,
	render *Renderer,
	logger *slog.Logger,
) *SnippetHandler {
	return &SnippetHandler{
		snippets:    snippets,
		highlighter: highlighter,
		render:      render,
		logger:      logger,
	}
}

// HandleAddForm renders a blank snippet form.
//
// HTTP: GET /snippets/add
func (h *SnippetHandler) HandleAddForm(w http.ResponseWriter, r *http.Request) {
	h.render.render(w, r, http.StatusOK, "snippet_form", &viewData{
		Title: "Add snippet",
		Form:  form.SnippetInput{Public: true},
	})
}

// HandleAdd validates and saves a new snippet, then redirects to the list.
//
// HTTP: POST /snippets/add
//
// POST/REDIRECT/GET:
// A successful POST answers 303 See Other, so refreshing the list page
// doesn't resubmit the form. A failed POST re-renders the form (422) with
// the user's input so nothing they typed is lost.
func (h *SnippetHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	if !h.render.parsePostForm(w, r) {
		return
	}

	in := form.ParseSnippet(r.PostForm)
	valid, err := form.ValidateSnippet(in)
	if err != nil {
		h.formFailed(w, r, "snippet_form", &viewData{Title: "Add snippet", Form: in}, err)
		return
	}

	if _, err := h.snippets.Create(r.Context(), auth.UserIDFromContext(r.Context()), valid); err != nil {
		h.render.serverError(w, r, err)
		return
	}

	http.Redirect(w, r, "/snippets/list", http.StatusSeeOther)
}

// HandleList renders the public snippets, newest first.
//
// HTTP: GET /snippets/list?page=N
func (h *SnippetHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, err := h.snippets.ListPublic(r.Context(), pageParam(r))
	if err != nil {
		h.render.serverError(w, r, err)
		return
	}

	h.render.render(w, r, http.StatusOK, "snippet_list", &viewData{
		Title:    "Public snippets",
		Heading:  "Public snippets",
		Page:     page,
		ListPath: "/snippets/list",
	})
}

// HandleMine renders the caller's own snippets, public and private.
//
// HTTP: GET /snippets/mine?page=N (login required)
func (h *SnippetHandler) HandleMine(w http.ResponseWriter, r *http.Request) {
	page, err := h.snippets.ListOwned(r.Context(), auth.UserIDFromContext(r.Context()), pageParam(r))
	if err != nil {
		if errors.Is(err, apperror.ErrUnauthorized) {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		h.render.serverError(w, r, err)
		return
	}

	h.render.render(w, r, http.StatusOK, "snippet_list", &viewData{
		Title:    "My snippets",
		Heading:  "My snippets",
		Page:     page,
		ListPath: "/snippets/mine",
	})
}

// HandleDetail renders one snippet with highlighted code.
//
// HTTP: GET /snippets/{id}
//
// A missing snippet and one the caller may not view both render the same
// 404 page.
func (h *SnippetHandler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	userID := auth.UserIDFromContext(r.Context())

	snippet, err := h.snippets.Get(r.Context(), userID, id)
	if err != nil {
		h.snippetFailed(w, r, id, err)
		return
	}

	code, err := h.highlighter.Code(snippet.Name, snippet.Code)
	if err != nil {
		h.render.serverError(w, r, err)
		return
	}

	h.render.render(w, r, http.StatusOK, "snippet_detail", &viewData{
		Title:    snippet.Name,
		Snippet:  snippet,
		Code:     code,
		Language: highlight.Language(snippet.Name, snippet.Code),
		Mode:     "view",
		CanEdit:  service.CanAccess(userID, snippet, service.ActionEdit),
	})
}

// HandleRaw returns the snippet's code as plain text.
//
// HTTP: GET /snippets/{id}/raw
func (h *SnippetHandler) HandleRaw(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	snippet, err := h.snippets.Get(r.Context(), auth.UserIDFromContext(r.Context()), id)
	if err != nil {
		h.snippetFailed(w, r, id, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	// Stop browsers from sniffing the code as HTML and running it.
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(snippet.Code))
}

// HandleEditForm renders the edit view for a snippet the caller owns.
//
// HTTP: GET /snippets/{id}/edit (login required)
func (h *SnippetHandler) HandleEditForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	snippet, err := h.snippets.GetForEdit(r.Context(), auth.UserIDFromContext(r.Context()), id)
	if err != nil {
		h.snippetFailed(w, r, id, err)
		return
	}

	h.render.render(w, r, http.StatusOK, "snippet_detail", editView(snippet, form.SnippetInput{
		Name:   snippet.Name,
		Code:   snippet.Code,
		Public: snippet.Public,
	}))
}

// HandleEdit validates the submitted form and overwrites the snippet.
//
// HTTP: POST /snippets/{id}/edit (login required)
//
// Ownership is checked BEFORE validation. Otherwise a bad submission for
// someone else's snippet would render its edit view, revealing that it
// exists.
func (h *SnippetHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	userID := auth.UserIDFromContext(r.Context())

	snippet, err := h.snippets.GetForEdit(r.Context(), userID, id)
	if err != nil {
		h.snippetFailed(w, r, id, err)
		return
	}

	if !h.render.parsePostForm(w, r) {
		return
	}

	in := form.ParseSnippet(r.PostForm)
	valid, err := form.ValidateSnippet(in)
	if err != nil {
		h.formFailed(w, r, "snippet_detail", editView(snippet, in), err)
		return
	}

	if _, err := h.snippets.Update(r.Context(), userID, id, valid); err != nil {
		h.snippetFailed(w, r, id, err)
		return
	}

	http.Redirect(w, r, "/snippets/list", http.StatusSeeOther)
}

// HandleDelete removes a snippet the caller owns.
//
// HTTP: POST /snippets/{id}/delete (login required)
//
// Only POST is routed: deleting is a state change, and a GET link could be
// triggered by prefetching or an <img> tag on another site.
func (h *SnippetHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.snippets.Delete(r.Context(), auth.UserIDFromContext(r.Context()), id); err != nil {
		h.snippetFailed(w, r, id, err)
		return
	}

	http.Redirect(w, r, "/snippets/list", http.StatusSeeOther)
}

func editView(snippet *model.Snippet, in form.SnippetInput) *viewData {
	return &viewData{
		Title:   "Edit " + snippet.Name,
		Snippet: snippet,
		Form:    in,
		Mode:    "edit",
		CanEdit: true,
	}
}

// snippetFailed renders the 404 page for a missing or hidden snippet and a
// 500 page for anything else.
func (h *SnippetHandler) snippetFailed(w http.ResponseWriter, r *http.Request, id string, err error) {
	if errors.Is(err, apperror.ErrNotFound) {
		h.render.renderError(w, r, http.StatusNotFound, fmt.Sprintf("Snippet with id=%s not found", id))
		return
	}
	h.render.serverError(w, r, err)
}

// formFailed re-renders page with field errors, or falls back to a 500 page
// when err isn't a validation error.
func (h *SnippetHandler) formFailed(w http.ResponseWriter, r *http.Request, page string, data *viewData, err error) {
	var fe apperror.FieldErrors
	if !errors.As(err, &fe) {
		h.render.serverError(w, r, err)
		return
	}
	data.Errors = fe
	h.render.render(w, r, http.StatusUnprocessableEntity, page, data)
}

// pageParam reads ?page=N. Junk becomes 1; the service clamps the rest.
func pageParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}
