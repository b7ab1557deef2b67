package auth

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// SessionCookieName is the cookie that carries the signed session token.
const SessionCookieName = "session"

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. Using a package-private type
// prevents collisions: only THIS package can create a key of type contextKey,
// so only this package can read or write the identity in the context.
type contextKey string

const identityKey contextKey = "identity"

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext retrieves the authenticated caller from the request context.
//
// Returns (Identity{}, false) if the request is anonymous (no valid session).
//
// Usage in handlers:
//
//	id, ok := auth.IdentityFromContext(r.Context())
//	if !ok {
//	    // anonymous user
//	}
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID != ""
}

// UserIDFromContext is IdentityFromContext for callers that only need the ID.
// Anonymous requests yield "".
func UserIDFromContext(ctx context.Context) string {
	id, _ := IdentityFromContext(ctx)
	return id.UserID
}

// LoadSession is a middleware that extracts the caller's identity if a valid
// session cookie is present, but does NOT block the request if it's missing
// or invalid.
//
// It runs on every route, so the request context always answers "who is
// calling?" and templates can show the logged-in username. A stale or
// tampered cookie just makes the request anonymous.
//
// MIDDLEWARE PATTERN IN GO:
// A middleware is a function that takes an http.Handler and returns a new
// http.Handler. Chi applies middlewares in a chain:
// req → M1 → M2 → Handler → M2 → M1 → resp
func LoadSession(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
				if id, err := tokens.Validate(cookie.Value); err == nil {
					r = r.WithContext(WithIdentity(r.Context(), id))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth enforces authentication on page routes. It must run after
// LoadSession. Anonymous callers are sent to the home page, where the login
// form lives, with 303 See Other.
//
// For GET requests the page they wanted rides along as ?next=, so logging in
// takes them back there. A POST can't be replayed by a redirect, so it just
// goes home.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); !ok {
			target := "/"
			if r.Method == http.MethodGet {
				target = "/?next=" + url.QueryEscape(r.URL.RequestURI())
			}
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SetSessionCookie stores token in the session cookie.
//
// COOKIE FLAGS:
//   - HttpOnly: JavaScript cannot read it, so XSS can't steal the session
//   - SameSite=Lax: not sent on cross-site POSTs, which is what keeps the
//     form endpoints safe from CSRF
//   - Secure: only over HTTPS; enabled with SECURE_COOKIES=true in production
func SetSessionCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie deletes the session cookie.
//
// Since sessions are stateless, "logout" just means deleting the client-side
// cookie. The token remains technically valid until it expires, but without
// the cookie the browser can't send it.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // tells the browser to delete the cookie immediately
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
