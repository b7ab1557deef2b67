package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/sakif/snippetbin/internal/apperror"
	"github.com/sakif/snippetbin/internal/auth"
	"github.com/sakif/snippetbin/internal/form"
	"github.com/sakif/snippetbin/internal/service"
)

// PageHandler serves the home page and the password account flow:
// login, logout and registration.
type PageHandler struct {
	auth          *service.AuthService
	render        *Renderer
	secureCookies bool
	logger        *slog.Logger
}

// NewPageHandler creates a PageHandler.
func NewPageHandler(authSvc *service.AuthService, render *Renderer, secureCookies bool, logger *slog.Logger) *PageHandler {
	return &PageHandler{
		auth:          authSvc,
		render:        render,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// HandleHome renders the home page: a login form for anonymous visitors,
// a greeting for logged-in users.
//
// HTTP: GET /
func (h *PageHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	h.render.render(w, r, http.StatusOK, "home", &viewData{
		Title: "Home",
		Next:  safeNext(r.URL.Query().Get("next")),
	})
}

// HandleLogin checks the submitted credentials.
//
// HTTP: POST /login
//
// On success the session cookie is set and the browser is sent home (or to
// a local "next" path). On failure the home page is rendered again with a
// generic message and NO cookie, with 200 like a normal page view. The
// message is the same for an unknown user and a wrong password.
func (h *PageHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.render.parsePostForm(w, r) {
		return
	}

	username := r.PostForm.Get("username")
	next := safeNext(r.PostForm.Get("next"))

	res, err := h.auth.Login(r.Context(), username, r.PostForm.Get("password"))
	if err != nil {
		if errors.Is(err, apperror.ErrUnauthorized) {
			h.render.render(w, r, http.StatusOK, "home", &viewData{
				Title:      "Home",
				LoginError: service.InvalidCredentialsMessage,
				Username:   username,
				Next:       next,
			})
			return
		}
		h.render.serverError(w, r, err)
		return
	}

	auth.SetSessionCookie(w, res.Token, h.auth.SessionTTL(), h.secureCookies)
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// HandleLogout clears the session cookie and redirects home.
//
// HTTP: GET or POST /logout
//
// Sessions are stateless tokens, so logging out only removes the cookie.
func (h *PageHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if id, ok := auth.IdentityFromContext(r.Context()); ok {
		h.logger.Info("user logged out", slog.String("userID", id.UserID))
	}
	auth.ClearSessionCookie(w, h.secureCookies)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleRegisterForm renders a blank registration form.
//
// HTTP: GET /register
func (h *PageHandler) HandleRegisterForm(w http.ResponseWriter, r *http.Request) {
	h.render.render(w, r, http.StatusOK, "register", &viewData{
		Title: "Register",
		Form:  form.RegisterInput{},
	})
}

// HandleRegister creates a password account and signs the new user in.
//
// HTTP: POST /register
//
// Validation failures and a taken username both re-render the form with
// 422 Unprocessable Entity. Passwords are never echoed back.
func (h *PageHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if !h.render.parsePostForm(w, r) {
		return
	}

	in := form.ParseRegister(r.PostForm)

	valid, err := form.ValidateRegister(in)
	if err != nil {
		h.registerFailed(w, r, in, err)
		return
	}

	res, err := h.auth.Register(r.Context(), valid)
	if err != nil {
		h.registerFailed(w, r, in, err)
		return
	}

	auth.SetSessionCookie(w, res.Token, h.auth.SessionTTL(), h.secureCookies)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *PageHandler) registerFailed(w http.ResponseWriter, r *http.Request, in form.RegisterInput, err error) {
	var fe apperror.FieldErrors
	if !errors.As(err, &fe) {
		h.render.serverError(w, r, err)
		return
	}

	in.Password, in.PasswordConfirm = "", ""
	h.render.render(w, r, http.StatusUnprocessableEntity, "register", &viewData{
		Title:  "Register",
		Form:   in,
		Errors: fe,
	})
}

// safeNext returns p if it is a local path, "/" otherwise.
//
// OPEN REDIRECTS:
// "next" comes from the client. Browsers treat "//evil.example" and
// "/\evil.example" as absolute URLs to another host, and they silently drop
// tabs and newlines first, so "/\t/evil.example" lands there too. Only a
// single leading slash is accepted, with no backslash or control byte
// anywhere, and the result must parse without a scheme or host.
func safeNext(p string) string {
	if p == "" || p[0] != '/' || strings.HasPrefix(p, "//") || strings.ContainsRune(p, '\\') {
		return "/"
	}
	for i := 0; i < len(p); i++ {
		if p[i] < 0x20 || p[i] == 0x7f {
			return "/"
		}
	}

	u, err := url.Parse(p)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	return p
}
