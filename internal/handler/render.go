// Package handler contains the HTTP handlers for SnippetBin.
//
// HANDLER RESPONSIBILITIES:
//  1. Parse the incoming request (path params, query, form body)
//  2. Call the service layer
//  3. Turn the result into a response: a rendered page, a redirect or JSON
//
// Handlers hold no business rules. Visibility and ownership live in
// service.CanAccess, validation lives in package form.
package handler

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/snippetbin/internal/apperror"
	"github.com/sakif/snippetbin/internal/auth"
	"github.com/sakif/snippetbin/internal/form"
	"github.com/sakif/snippetbin/internal/model"
)

// pages are the templates that can be rendered. Each one is parsed together
// with base.html and fills its {{define "content"}} block.
var pages = []string{
	"home",
	"register",
	"snippet_form",
	"snippet_list",
	"snippet_detail",
	"error",
}

// SiteOptions are settings every page needs for the navigation bar.
type SiteOptions struct {
	GitHubEnabled  bool
	AllowAnonymous bool // show "Add snippet" to logged-out visitors
}

// viewData is the data passed to every template.
//
// One struct for all pages keeps templates simple: a page only reads the
// fields it cares about and the rest stay zero.
type viewData struct {
	Title string

	// Filled in by render for every page.
	Identity       auth.Identity
	LoggedIn       bool
	GitHubEnabled  bool
	AllowAnonymous bool

	// home
	LoginError string
	Username   string
	Next       string

	// forms (snippet add/edit, register)
	Form   any
	Errors apperror.FieldErrors

	// snippet list
	Heading  string
	Page     *model.SnippetPage
	ListPath string

	// snippet detail
	Snippet  *model.Snippet
	Code     template.HTML
	Language string
	Mode     string // "view" or "edit"
	CanEdit  bool

	// error page
	Message string
}

// Renderer executes the page templates.
//
// TEMPLATE SETS:
// html/template allows a name to be defined once per set, and every page
// defines "content". So each page gets its own set: base.html + page.html,
// parsed once at startup and reused for every request.
type Renderer struct {
	templates map[string]*template.Template
	site      SiteOptions
	logger    *slog.Logger
}

// NewRenderer parses templates/base.html and every page from fsys
// (normally web.Files).
func NewRenderer(fsys fs.FS, site SiteOptions, logger *slog.Logger) (*Renderer, error) {
	funcs := template.FuncMap{
		"date": func(t time.Time) string { return t.Local().Format("2 Jan 2006 15:04") },
		"add":  func(a, b int) int { return a + b },
		"sub":  func(a, b int) int { return a - b },
	}

	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		tmpl, err := template.New(page).Funcs(funcs).ParseFS(fsys,
			"templates/base.html",
			"templates/"+page+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}
		templates[page] = tmpl
	}

	return &Renderer{templates: templates, site: site, logger: logger}, nil
}

// render writes page with the given status.
//
// The page is executed into a buffer first. If the template fails halfway,
// nothing has been sent yet and the client gets a clean 500 instead of a
// truncated page with a 200 status.
func (rd *Renderer) render(w http.ResponseWriter, r *http.Request, status int, page string, data *viewData) {
	tmpl, ok := rd.templates[page]
	if !ok {
		rd.logger.Error("unknown template", slog.String("page", page))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if data == nil {
		data = &viewData{}
	}
	data.Identity, data.LoggedIn = auth.IdentityFromContext(r.Context())
	data.GitHubEnabled = rd.site.GitHubEnabled
	data.AllowAnonymous = rd.site.AllowAnonymous

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		rd.logger.Error("failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// renderError shows the error page with a user-facing message.
func (rd *Renderer) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	rd.render(w, r, status, "error", &viewData{
		Title:   http.StatusText(status),
		Heading: http.StatusText(status),
		Message: message,
	})
}

// serverError logs err and shows a generic 500 page.
// NEVER put err itself on the page: it may contain SQL or file paths.
func (rd *Renderer) serverError(w http.ResponseWriter, r *http.Request, err error) {
	rd.logger.Error("request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	rd.renderError(w, r, http.StatusInternalServerError, "Something went wrong on our side. Please try again.")
}

// maxFormBytes caps every form POST: the largest allowed snippet plus room
// for the other fields and url-encoding overhead.
const maxFormBytes = form.MaxCodeLength + 64<<10

// parsePostForm reads a form body of at most maxFormBytes.
//
// REQUEST SIZE:
// Without a limit, ParseForm accepts up to 10 MB of url-encoded data.
// MaxBytesReader cuts the read off early and tells net/http to close the
// connection. An oversized body renders 413, anything else unreadable 400.
func (rd *Renderer) parsePostForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			rd.renderError(w, r, http.StatusRequestEntityTooLarge, "The submitted form is too large.")
			return false
		}
		rd.renderError(w, r, http.StatusBadRequest, "Could not read the submitted form.")
		return false
	}
	return true
}
