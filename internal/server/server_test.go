package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/snippetbin/internal/auth"
	"github.com/sakif/snippetbin/internal/config"
	"github.com/sakif/snippetbin/internal/form"
	"github.com/sakif/snippetbin/internal/repository"
	sqliteRepo "github.com/sakif/snippetbin/internal/repository/sqlite"
)

// ============================================================
// === Test helpers ===
// ============================================================

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Port: 8080, LogLevel: slog.LevelInfo},
		Database: config.DatabaseConfig{Path: ":memory:"},
		Auth: config.AuthConfig{
			SessionSecret:          "test-secret-that-is-long-enough",
			SessionTTL:             time.Hour,
			BcryptCost:             4, // minimum cost keeps tests fast
			AllowAnonymousSnippets: true,
		},
		RateLimit: config.RateLimitConfig{RPS: 1000, Burst: 1000},
	}
}

// testApp is the fully wired application over an in-memory database.
type testApp struct {
	t  *testing.T
	s  *Server
	db *sqliteRepo.DB
}

func newTestApp(t *testing.T, opts ...func(*config.Config)) *testApp {
	return newTestAppWithGitHub(t, nil, opts...)
}

func newTestAppWithGitHub(t *testing.T, github *fakeGitHub, opts ...func(*config.Config)) *testApp {
	t.Helper()

	cfg := testConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var s *Server
	if github != nil {
		s, err = build(cfg, logger, db, github)
	} else {
		s, err = build(cfg, logger, db, nil)
	}
	require.NoError(t, err)

	return &testApp{t: t, s: s, db: db}
}

// do sends a request through the router. A non-nil form makes it a form POST
// body; cookies are attached as given.
func (a *testApp) do(method, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	a.t.Helper()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, c := range cookies {
		if c != nil {
			req.AddCookie(c)
		}
	}

	rec := httptest.NewRecorder()
	a.s.Handler().ServeHTTP(rec, req)
	return rec
}

// register creates an account through the real form and returns its session cookie.
func (a *testApp) register(username, password string) *http.Cookie {
	a.t.Helper()

	rec := a.do(http.MethodPost, "/register", url.Values{
		"username":  {username},
		"password1": {password},
		"password2": {password},
	})
	require.Equal(a.t, http.StatusSeeOther, rec.Code, rec.Body.String())

	c := sessionCookie(rec)
	require.NotNil(a.t, c, "registration should sign the user in")
	return c
}

// addSnippet creates a snippet through the form and returns its ID.
func (a *testApp) addSnippet(session *http.Cookie, name, code string, public bool) string {
	a.t.Helper()

	form := url.Values{"name": {name}, "code": {code}, "public": {"false"}}
	if public {
		form["public"] = append(form["public"], "true")
	}
	rec := a.do(http.MethodPost, "/snippets/add", form, session)
	require.Equal(a.t, http.StatusSeeOther, rec.Code, rec.Body.String())
	require.Equal(a.t, "/snippets/list", rec.Header().Get("Location"))

	// The newest snippet overall is the one just created.
	latest, err := a.db.List(context.Background(), repository.ListOptions{Limit: 1})
	require.NoError(a.t, err)
	require.Len(a.t, latest, 1)
	require.Equal(a.t, name, latest[0].Name)
	return latest[0].ID
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookieName && c.Value != "" {
			return c
		}
	}
	return nil
}

// ============================================================
// === Snippet creation & listing ===
// ============================================================

func TestAnonymousAdd_ThenListContainsIt(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodPost, "/snippets/add", url.Values{
		"name": {"hello"},
		"code": {"print(1)"},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/snippets/list", rec.Header().Get("Location"))

	rec = app.do(http.MethodGet, "/snippets/list", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hello")
	assert.Contains(t, rec.Body.String(), "1 snippet")
}

func TestAddForm_Renders(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, "/snippets/add", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="/snippets/add"`)
}

func TestAdd_EmptyNameRerendersWithInput(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodPost, "/snippets/add", url.Values{
		"name": {"   "},
		"code": {"keep me around"},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "This field is required.")
	assert.Contains(t, body, "keep me around", "submitted code must be preserved")

	list := app.do(http.MethodGet, "/snippets/list", nil)
	assert.Contains(t, list.Body.String(), "0 snippets")
}

func TestAdd_BodySizeLimits(t *testing.T) {
	app := newTestApp(t)

	// Just over the code limit: the body is read and validation explains it.
	rec := app.do(http.MethodPost, "/snippets/add", url.Values{
		"name": {"big"},
		"code": {strings.Repeat("x", form.MaxCodeLength+1)},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Code must be")

	// Far over it: the body isn't read to the end.
	rec = app.do(http.MethodPost, "/snippets/add", url.Values{
		"name": {"huge"},
		"code": {strings.Repeat("x", 2*form.MaxCodeLength)},
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "The submitted form is too large.")

	list := app.do(http.MethodGet, "/snippets/list", nil)
	assert.Contains(t, list.Body.String(), "0 snippets")
}

func TestAdd_AnonymousDisabled(t *testing.T) {
	app := newTestApp(t, func(c *config.Config) { c.Auth.AllowAnonymousSnippets = false })

	rec := app.do(http.MethodGet, "/snippets/add", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?next=%2Fsnippets%2Fadd", rec.Header().Get("Location"))

	rec = app.do(http.MethodPost, "/snippets/add", url.Values{"name": {"x"}, "code": {"y"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	alice := app.register("alice", "correct-horse")
	app.addSnippet(alice, "allowed", "ok", true)
}

func TestPrivateSnippet_HiddenFromOthers(t *testing.T) {
	app := newTestApp(t)
	alice := app.register("alice", "correct-horse")
	bob := app.register("bob", "battery-staple")

	id := app.addSnippet(alice, "secret-stuff", "password = 42", false)

	// Not in the public list, for anyone.
	for _, c := range []*http.Cookie{nil, alice, bob} {
		rec := app.do(http.MethodGet, "/snippets/list", nil, c)
		assert.NotContains(t, rec.Body.String(), "secret-stuff")
	}

	// Detail: owner sees it, everyone else gets the same 404 as a missing id.
	rec := app.do(http.MethodGet, "/snippets/"+id, nil, alice)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "secret-stuff")

	for _, c := range []*http.Cookie{nil, bob} {
		rec := app.do(http.MethodGet, "/snippets/"+id, nil, c)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "Snippet with id="+id+" not found")

		raw := app.do(http.MethodGet, "/snippets/"+id+"/raw", nil, c)
		assert.Equal(t, http.StatusNotFound, raw.Code)
	}
}

func TestDetail_Missing(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, "/snippets/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Snippet with id=nope not found")
}

func TestDetail_HighlightsAndShowsOwnerActions(t *testing.T) {
	app := newTestApp(t)
	alice := app.register("alice", "correct-horse")
	id := app.addSnippet(alice, "main.go", "package main\n", true)

	rec := app.do(http.MethodGet, "/snippets/"+id, nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<pre")
	assert.Contains(t, body, "Go")
	assert.Contains(t, body, "/snippets/"+id+"/edit")
	assert.Contains(t, body, "by alice")

	// A visitor sees the snippet but no edit controls.
	rec = app.do(http.MethodGet, "/snippets/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "/snippets/"+id+"/edit")
}

func TestRaw_PlainText(t *testing.T) {
	app := newTestApp(t)
	id := app.addSnippet(nil, "page.html", "<b>bold</b>", true)

	rec := app.do(http.MethodGet, "/snippets/"+id+"/raw", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "<b>bold</b>", rec.Body.String())
}

func TestMine_OnlyOwnSnippets(t *testing.T) {
	app := newTestApp(t)
	alice := app.register("alice", "correct-horse")
	bob := app.register("bob", "battery-staple")

	app.addSnippet(alice, "alice-public", "a", true)
	app.addSnippet(alice, "alice-private", "b", false)
	app.addSnippet(bob, "bob-public", "c", true)
	app.addSnippet(nil, "anon-public", "d", true)

	rec := app.do(http.MethodGet, "/snippets/mine", nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "alice-public")
	assert.Contains(t, body, "alice-private")
	assert.NotContains(t, body, "bob-public")
	assert.NotContains(t, body, "anon-public")
	assert.Contains(t, body, "2 snippets")
}

func TestMine_RequiresLogin(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, "/snippets/mine", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?next=%2Fsnippets%2Fmine", rec.Header().Get("Location"))
}

func TestMine_LoginReturnsToRequestedPage(t *testing.T) {
	app := newTestApp(t)
	app.register("alice", "correct-horse")

	rec := app.do(http.MethodGet, "/snippets/mine", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	home := app.do(http.MethodGet, rec.Header().Get("Location"), nil)
	require.Equal(t, http.StatusOK, home.Code)
	assert.Contains(t, home.Body.String(), `name="next" value="/snippets/mine"`)

	rec = app.do(http.MethodPost, "/login", url.Values{
		"username": {"alice"},
		"password": {"correct-horse"},
		"next":     {"/snippets/mine"},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/snippets/mine", rec.Header().Get("Location"))
}

// ============================================================
// === Editing ===
// ============================================================

func TestEdit_Owner(t *testing.T) {
	app := newTestApp(t)
	alice := app.register("alice", "correct-horse")
	id := app.addSnippet(alice, "draft", "v1", true)

	rec := app.do(http.MethodGet, "/snippets/"+id+"/edit", nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="/snippets/`+id+`/edit"`)

	rec = app.do(http.MethodPost, "/snippets/"+id+"/edit", url.Values{
		"name":   {"final"},
		"code":   {"v2"},
		"public": {"false"},
	}, alice)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/snippets/list", rec.Header().Get("Location"))

	got, err := app.db.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "final", got.Name)
	assert.Equal(t, "v2", got.Code)
	assert.False(t, got.Public)
}

func TestEdit_InvalidRerenders(t *testing.T) {
	app := newTestApp(t)
	alice := app.register("alice", "correct-horse")
	id := app.addSnippet(alice, "draft", "v1", true)

	rec := app.do(http.MethodPost, "/snippets/"+id+"/edit", url.Values{
		"name": {""},
		"code": {"unsaved change"},
	}, alice)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "This field is required.")
	assert.Contains(t, rec.Body.String(), "unsaved change")

	got, err := app.db.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "v1", got.Code, "invalid edit must not be written")
}

func TestEdit_NotOwnerIsNotFound(t *testing.T) {
	app := newTestApp(t)
	alice := app.register("alice", "correct-horse")
	bob := app.register("bob", "battery-staple")
	id := app.addSnippet(alice, "mine", "v1", true)
	anonID := app.addSnippet(nil, "nobody's", "v1", true)

	for _, target := range []string{id, anonID} {
		rec := app.do(http.MethodGet, "/snippets/"+target+"/edit", nil, bob)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		// Even an invalid submission gets 404, not a form with errors.
		rec = app.do(http.MethodPost, "/snippets/"+target+"/edit", url.Values{
			"name": {""},
			"code": {"hijacked"},
		}, bob)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = app.do(http.MethodPost, "/snippets/"+target+"/edit", url.Values{
			"name": {"hijacked"},
			"code": {"hijacked"},
		}, bob)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		got, err := app.db.GetByID(context.Background(), target)
		require.NoError(t, err)
		assert.Equal(t, "v1", got.Code)
	}
}

func TestEdit_AnonymousRedirected(t *testing.T) {
	app := newTestApp(t)
	id := app.addSnippet(nil, "anon", "v1", true)

	rec := app.do(http.MethodGet, "/snippets/"+id+"/edit", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?next=%2Fsnippets%2F"+id+"%2Fedit", rec.Header().Get("Location"))
}

// ============================================================
// === Deletion ===
// ============================================================

func TestDelete_ThenDetailIsNotFound(t *testing.T) {
	app := newTestApp(t)
	alice := app.register("alice", "correct-horse")
	id := app.addSnippet(alice, "doomed", "bye", true)

	rec := app.do(http.MethodPost, "/snippets/"+id+"/delete", url.Values{}, alice)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/snippets/list", rec.Header().Get("Location"))

	rec = app.do(http.MethodGet, "/snippets/"+id, nil, alice)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Snippet with id="+id+" not found")
}

func TestDelete_GetNotAllowed(t *testing.T) {
	app := newTestApp(t)
	alice := app.register("alice", "correct-horse")
	id := app.addSnippet(alice, "keep", "x", true)

	rec := app.do(http.MethodGet, "/snippets/"+id+"/delete", nil, alice)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	_, err := app.db.GetByID(context.Background(), id)
	assert.NoError(t, err, "GET must not delete")
}

func TestDelete_NotOwnerIsNotFound(t *testing.T) {
	app := newTestApp(t)
	alice := app.register("alice", "correct-horse")
	bob := app.register("bob", "battery-staple")
	id := app.addSnippet(alice, "keep", "x", true)
	anonID := app.addSnippet(nil, "anon", "x", true)

	for _, target := range []string{id, anonID} {
		rec := app.do(http.MethodPost, "/snippets/"+target+"/delete", url.Values{}, bob)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		_, err := app.db.GetByID(context.Background(), target)
		assert.NoError(t, err)
	}

	rec := app.do(http.MethodPost, "/snippets/"+id+"/delete", url.Values{})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"), "anonymous callers are sent to log in")
}

// ============================================================
// === Accounts ===
// ============================================================

func TestLogin_WrongPasswordRendersHomeWithoutCookie(t *testing.T) {
	app := newTestApp(t)
	app.register("alice", "correct-horse")

	for _, creds := range []url.Values{
		{"username": {"alice"}, "password": {"wrong-password"}},
		{"username": {"nobody"}, "password": {"whatever1"}},
	} {
		rec := app.do(http.MethodPost, "/login", creds)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid username or password.")
		assert.Contains(t, rec.Body.String(), `action="/login"`)
		assert.Nil(t, sessionCookie(rec), "failed login must not issue a session")
	}
}

func TestLogin_Success(t *testing.T) {
	app := newTestApp(t)
	app.register("alice", "correct-horse")

	rec := app.do(http.MethodPost, "/login", url.Values{
		"username": {"alice"},
		"password": {"correct-horse"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	session := sessionCookie(rec)
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	home := app.do(http.MethodGet, "/", nil, session)
	assert.Contains(t, home.Body.String(), "Welcome back")
	assert.Contains(t, home.Body.String(), "alice")
}

func TestLogin_Next(t *testing.T) {
	app := newTestApp(t)
	app.register("alice", "correct-horse")

	tests := []struct {
		next, want string
	}{
		{"/snippets/mine", "/snippets/mine"},
		{"/snippets/list?page=2", "/snippets/list?page=2"},
		{"//evil.example", "/"},
		{"https://evil.example", "/"},
		{"/\t/evil.example", "/"},
		{"/\n/evil.example", "/"},
		{`/\evil.example`, "/"},
	}
	for _, tt := range tests {
		rec := app.do(http.MethodPost, "/login", url.Values{
			"username": {"alice"},
			"password": {"correct-horse"},
			"next":     {tt.next},
		})
		assert.Equal(t, tt.want, rec.Header().Get("Location"), "next=%q", tt.next)
	}
}

func TestLogout_ClearsCookie(t *testing.T) {
	app := newTestApp(t)
	alice := app.register("alice", "correct-horse")

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		rec := app.do(method, "/logout", nil, alice)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/", rec.Header().Get("Location"))

		var cleared bool
		for _, c := range rec.Result().Cookies() {
			if c.Name == auth.SessionCookieName && c.MaxAge < 0 {
				cleared = true
			}
		}
		assert.True(t, cleared, "%s /logout should expire the session cookie", method)
	}
}

func TestRegister_Validation(t *testing.T) {
	app := newTestApp(t)
	app.register("alice", "correct-horse")

	tests := []struct {
		name    string
		form    url.Values
		message string
	}{
		{
			name:    "taken username",
			form:    url.Values{"username": {"alice"}, "password1": {"another-pass"}, "password2": {"another-pass"}},
			message: "A user with that username already exists.",
		},
		{
			name:    "short password",
			form:    url.Values{"username": {"carol"}, "password1": {"tiny"}, "password2": {"tiny"}},
			message: "This password is too short.",
		},
		{
			name:    "missing username",
			form:    url.Values{"password1": {"long-enough"}, "password2": {"long-enough"}},
			message: "This field is required.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(http.MethodPost, "/register", tt.form)

			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.message)
			assert.Nil(t, sessionCookie(rec))
			assert.NotContains(t, rec.Body.String(), tt.form.Get("password1"),
				"passwords are never echoed back")
		})
	}
}

func TestLoginRateLimited(t *testing.T) {
	app := newTestApp(t, func(c *config.Config) {
		c.RateLimit = config.RateLimitConfig{RPS: 0.001, Burst: 2}
	})

	creds := url.Values{"username": {"alice"}, "password": {"guess-1234"}}
	for i := 0; i < 2; i++ {
		rec := app.do(http.MethodPost, "/login", creds)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := app.do(http.MethodPost, "/login", creds)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Browsing is never limited.
	rec = app.do(http.MethodGet, "/snippets/list", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// ============================================================
// === GitHub sign-in ===
// ============================================================

type fakeGitHub struct {
	user *auth.GitHubUser
}

func (f *fakeGitHub) AuthURL(state string) string {
	return "https://github.example/login/oauth/authorize?state=" + url.QueryEscape(state)
}

func (f *fakeGitHub) Exchange(ctx context.Context, code string) (*auth.GitHubUser, error) {
	if code != "good-code" {
		return nil, errors.New("bad verification code")
	}
	return f.user, nil
}

func TestGitHubRoutes_DisabledWithoutCredentials(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, "/auth/github/login", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGitHubFlow(t *testing.T) {
	app := newTestAppWithGitHub(t, &fakeGitHub{user: &auth.GitHubUser{ID: 4242, Login: "octocat"}})

	rec := app.do(http.MethodGet, "/auth/github/login", nil)
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)

	var state *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "oauth_state" {
			state = c
		}
	}
	require.NotNil(t, state)
	assert.Contains(t, rec.Header().Get("Location"), "state="+state.Value)

	// Wrong state is rejected before any exchange.
	rec = app.do(http.MethodGet, "/auth/github/callback?code=good-code&state=forged", nil, state)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, sessionCookie(rec))

	// Bad code.
	rec = app.do(http.MethodGet, "/auth/github/callback?code=bad&state="+state.Value, nil, state)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	// Happy path.
	rec = app.do(http.MethodGet, "/auth/github/callback?code=good-code&state="+state.Value, nil, state)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	session := sessionCookie(rec)
	require.NotNil(t, session)

	me := app.do(http.MethodGet, "/api/me", nil, session)
	require.Equal(t, http.StatusOK, me.Code)
	assert.Contains(t, me.Body.String(), `"username":"octocat"`)
	assert.Contains(t, me.Body.String(), `"githubId":4242`)
}

func TestGitHubFlow_UsernameTaken(t *testing.T) {
	app := newTestAppWithGitHub(t, &fakeGitHub{user: &auth.GitHubUser{ID: 7, Login: "alice"}})
	app.register("alice", "correct-horse")

	state := &http.Cookie{Name: "oauth_state", Value: "s1"}
	rec := app.do(http.MethodGet, "/auth/github/callback?code=good-code&state=s1", nil, state)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Nil(t, sessionCookie(rec))
}

// ============================================================
// === JSON API ===
// ============================================================

func TestAPI_ListSnippets(t *testing.T) {
	app := newTestApp(t)
	alice := app.register("alice", "correct-horse")
	app.addSnippet(alice, "shared", "1", true)
	app.addSnippet(alice, "hidden", "2", false)

	rec := app.do(http.MethodGet, "/api/snippets", nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Count    int `json:"count"`
		Snippets []struct {
			Name  string `json:"name"`
			Owner string `json:"owner"`
		} `json:"snippets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	require.Len(t, body.Snippets, 1)
	assert.Equal(t, "shared", body.Snippets[0].Name)
	assert.Equal(t, "alice", body.Snippets[0].Owner)
}

func TestAPI_EmptyListIsArray(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, "/api/snippets", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"snippets":[]`)
	assert.Contains(t, rec.Body.String(), `"count":0`)
}

func TestAPI_GetSnippet(t *testing.T) {
	app := newTestApp(t)
	alice := app.register("alice", "correct-horse")
	id := app.addSnippet(alice, "hidden", "2", false)

	rec := app.do(http.MethodGet, "/api/snippets/"+id, nil, alice)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"hidden"`)

	rec = app.do(http.MethodGet, "/api/snippets/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var errBody struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errBody))
	assert.Equal(t, "not_found", errBody.Error)
}

func TestAPI_Me(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, "/api/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"unauthorized"`)

	alice := app.register("alice", "correct-horse")
	rec = app.do(http.MethodGet, "/api/me", nil, alice)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"alice"`)
	assert.NotContains(t, rec.Body.String(), "PasswordHash")
	assert.NotContains(t, rec.Body.String(), "$2a$")
}

// ============================================================
// === Infrastructure routes ===
// ============================================================

func TestHealthz(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestStaticStylesheet(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, "/static/style.css", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/css")
}

func TestHome_Renders(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "SnippetBin")
	assert.Contains(t, rec.Body.String(), `action="/login"`)
	assert.NotContains(t, rec.Body.String(), "/auth/github/login", "GitHub button only when configured")
}
