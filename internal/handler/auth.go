package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/snippetbin/internal/apperror"
	"github.com/sakif/snippetbin/internal/auth"
	"github.com/sakif/snippetbin/internal/service"
)

// stateCookieName holds the OAuth state between the redirect to GitHub and
// the callback.
const stateCookieName = "oauth_state"

// GitHubExchanger is the part of auth.GitHubProvider the handler uses.
// Tests substitute a fake so no request leaves the process.
type GitHubExchanger interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

// AuthHandler manages the GitHub OAuth sign-in flow.
//
//   - HandleGitHubLogin    → redirect the browser to GitHub's authorization page
//   - HandleGitHubCallback → receive the code, upsert the user, set the session cookie
//
// Password login and logout live in PageHandler; both flows end in the same
// session cookie.
type AuthHandler struct {
	github        GitHubExchanger
	auth          *service.AuthService
	render        *Renderer
	secureCookies bool
	logger        *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(
	github GitHubExchanger,
	authSvc *service.AuthService,
	render *Renderer,
	secureCookies bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		github:        github,
		auth:          authSvc,
		render:        render,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// HandleGitHubLogin redirects the user to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// CSRF PROTECTION VIA STATE:
// A random state value goes both into a short-lived cookie and into the
// authorization URL. The callback only proceeds when GitHub hands back the
// same value the cookie holds, proving this browser started the flow.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/auth/github",
		MaxAge:   600, // 10 minutes to approve on GitHub
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Check the state parameter against the cookie (CSRF)
//  2. Exchange the code for the GitHub profile
//  3. Upsert the local user by GitHub ID and issue a session token
//  4. Set the session cookie and redirect home
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	// --- Step 1: Validate CSRF state ---
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || q.Get("state") != stateCookie.Value {
		h.logger.Warn("github callback: state mismatch")
		h.render.renderError(w, r, http.StatusBadRequest, "GitHub sign-in failed: invalid state. Please try again.")
		return
	}

	// The state is single-use.
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookieName,
		Value:  "",
		Path:   "/auth/github",
		MaxAge: -1,
	})

	// The user pressed "Cancel" on GitHub.
	if errParam := q.Get("error"); errParam != "" {
		h.logger.Info("github callback: authorization denied", slog.String("error", errParam))
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	code := q.Get("code")
	if code == "" {
		h.render.renderError(w, r, http.StatusBadRequest, "GitHub sign-in failed: missing code.")
		return
	}

	// --- Step 2: Exchange code for GitHub profile ---
	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("github callback: exchange failed", slog.String("error", err.Error()))
		h.render.renderError(w, r, http.StatusBadGateway, "GitHub sign-in failed. Please try again.")
		return
	}

	// --- Step 3: Upsert user, issue token ---
	res, err := h.auth.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			h.render.renderError(w, r, http.StatusConflict,
				"The username "+ghUser.Login+" is already taken by another account.")
			return
		}
		h.render.serverError(w, r, err)
		return
	}

	// --- Step 4: Session cookie, then home ---
	auth.SetSessionCookie(w, res.Token, h.auth.SessionTTL(), h.secureCookies)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
