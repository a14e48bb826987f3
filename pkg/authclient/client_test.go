package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeAuthServer mimics the credential service closely enough to exercise
// the client: one live session at a time, rotated refresh cookies, a CSRF
// double-submit check, and bearer-guarded data routes.
type fakeAuthServer struct {
	ts *httptest.Server

	mu      sync.Mutex
	rt      string // current refresh cookie value, "" when revoked
	csrf    string
	access  string // current valid bearer token, "" when expired
	counter int

	refreshCalls atomic.Int32
	totalHits    atomic.Int32
	refreshDelay time.Duration
}

func newFakeAuthServer(t *testing.T) *fakeAuthServer {
	t.Helper()
	s := &fakeAuthServer{}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/refresh", s.handleRefresh)
	mux.HandleFunc("GET /auth/me", s.handleMe)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)
	mux.HandleFunc("GET /api/data", s.handleData)

	s.ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.totalHits.Add(1)
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(s.ts.Close)
	return s
}

func (s *fakeAuthServer) issueSession(w http.ResponseWriter) string {
	s.counter++
	s.rt = fmt.Sprintf("rt-%d", s.counter)
	s.csrf = fmt.Sprintf("csrf-%d", s.counter)
	s.access = fmt.Sprintf("access-%d", s.counter)

	http.SetCookie(w, &http.Cookie{Name: "rezom_rt", Value: s.rt, Path: "/auth", MaxAge: 3600, HttpOnly: true})
	http.SetCookie(w, &http.Cookie{Name: "X-CSRF-Token", Value: s.csrf, Path: "/", MaxAge: 3600})
	return s.access
}

func writeAuthError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"message": msg, "statusCode": code},
	})
}

func (s *fakeAuthServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct{ Email, Password string }
	json.NewDecoder(r.Body).Decode(&req)
	if req.Email != "user@example.com" || req.Password != "Passw0rd!" {
		writeAuthError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	s.mu.Lock()
	access := s.issueSession(w)
	s.mu.Unlock()

	json.NewEncoder(w).Encode(map[string]any{
		"user":        map[string]any{"id": "u1", "email": req.Email, "role": "USER"},
		"accessToken": access,
	})
}

func (s *fakeAuthServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.refreshCalls.Add(1)
	if s.refreshDelay > 0 {
		time.Sleep(s.refreshDelay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ck, err := r.Cookie("rezom_rt")
	if err != nil || s.rt == "" || ck.Value != s.rt {
		writeAuthError(w, http.StatusUnauthorized, "session is invalid or expired")
		return
	}
	if r.Header.Get("X-CSRF-Token") != s.csrf {
		writeAuthError(w, http.StatusUnauthorized, "csrf token mismatch")
		return
	}

	access := s.issueSession(w)
	json.NewEncoder(w).Encode(map[string]any{"accessToken": access})
}

func (s *fakeAuthServer) authorized(r *http.Request) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access != "" && r.Header.Get("Authorization") == "Bearer "+s.access
}

func (s *fakeAuthServer) handleMe(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeAuthError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	json.NewEncoder(w).Encode(map[string]any{"id": "u1", "email": "user@example.com", "role": "USER"})
}

func (s *fakeAuthServer) handleData(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeAuthError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	json.NewEncoder(w).Encode(map[string]any{"data": "ok"})
}

func (s *fakeAuthServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.rt, s.csrf, s.access = "", "", ""
	s.mu.Unlock()
	json.NewEncoder(w).Encode(map[string]any{"ok": true})
}

// expireAccess invalidates the bearer token while the refresh session stays
// alive, the everyday "token aged out" situation.
func (s *fakeAuthServer) expireAccess() {
	s.mu.Lock()
	s.access = ""
	s.mu.Unlock()
}

// revokeSession kills the whole session server-side.
func (s *fakeAuthServer) revokeSession() {
	s.mu.Lock()
	s.rt, s.csrf, s.access = "", "", ""
	s.mu.Unlock()
}

func newTestClient(t *testing.T, srv *fakeAuthServer, store TokenStore) *Client {
	t.Helper()
	if store == nil {
		store = NewMemoryStore()
	}
	c, err := New(Config{
		BaseURL:       srv.ts.URL,
		Store:         store,
		LogoutTimeout: 200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func login(t *testing.T, c *Client) {
	t.Helper()
	user, err := c.Login(context.Background(), "user@example.com", "Passw0rd!")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user == nil || user.Email != "user@example.com" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestLogin_StoresTokenAndCookies(t *testing.T) {
	srv := newFakeAuthServer(t)
	c := newTestClient(t, srv, nil)

	login(t, c)

	if c.Store().Token() == "" {
		t.Fatalf("login must store the access token")
	}
	if !c.Store().Authed() {
		t.Fatalf("login must set the authed flag")
	}
	names := map[string]bool{}
	for _, ck := range c.Store().LoadCookies() {
		names[ck.Name] = true
	}
	if !names["rezom_rt"] || !names["X-CSRF-Token"] {
		t.Fatalf("login must persist both auth cookies, got %v", names)
	}
}

func TestLogin_WrongPasswordIsAPIError(t *testing.T) {
	srv := newFakeAuthServer(t)
	c := newTestClient(t, srv, nil)

	_, err := c.Login(context.Background(), "user@example.com", "nope")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Message != "invalid email or password" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
	if c.Store().Token() != "" || c.Store().Authed() {
		t.Fatalf("failed login must not touch the store")
	}
}

func TestTransparentRetry_RefreshesAndReplays(t *testing.T) {
	srv := newFakeAuthServer(t)
	c := newTestClient(t, srv, nil)
	login(t, c)

	srv.expireAccess()

	resp, err := c.HTTPClient().Get(srv.ts.URL + "/api/data")
	if err != nil {
		t.Fatalf("data request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected transparent retry to succeed, got %d: %s", resp.StatusCode, body)
	}
	if got := srv.refreshCalls.Load(); got != 1 {
		t.Fatalf("expected exactly 1 refresh call, got %d", got)
	}
}

func TestConcurrentRefresh_SingleFlight(t *testing.T) {
	srv := newFakeAuthServer(t)
	srv.refreshDelay = 150 * time.Millisecond
	c := newTestClient(t, srv, nil)
	login(t, c)

	const workers = 8
	start := make(chan struct{})
	tokens := make([]string, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			tokens[i], errs[i] = c.Refresh(context.Background())
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if tokens[i] != tokens[0] {
			t.Fatalf("workers must share one refresh result: %q vs %q", tokens[i], tokens[0])
		}
	}
	if got := srv.refreshCalls.Load(); got != 1 {
		t.Fatalf("expected exactly 1 refresh call, got %d", got)
	}
}

func TestRefresh_TerminalFailureClearsState(t *testing.T) {
	srv := newFakeAuthServer(t)
	c := newTestClient(t, srv, nil)
	login(t, c)

	srv.revokeSession()

	_, err := c.Refresh(context.Background())
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if c.Store().Token() != "" || c.Store().Authed() || len(c.Store().LoadCookies()) != 0 {
		t.Fatalf("terminal refresh failure must clear local state")
	}
}

func TestLogout_OptimisticDespiteDeadServer(t *testing.T) {
	srv := newFakeAuthServer(t)
	c := newTestClient(t, srv, nil)
	login(t, c)

	// Server goes away before logout; the user still ends up logged out,
	// quickly.
	srv.ts.Close()

	started := time.Now()
	c.Logout(context.Background())
	if elapsed := time.Since(started); elapsed > 2*time.Second {
		t.Fatalf("logout must not wait on the server, took %v", elapsed)
	}
	if c.Store().Token() != "" || c.Store().Authed() {
		t.Fatalf("logout must clear local state regardless of the server")
	}
}

func TestOpen_SkipsNetworkWhenNeverAuthed(t *testing.T) {
	srv := newFakeAuthServer(t)
	c := newTestClient(t, srv, nil)

	user, err := c.Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if user != nil {
		t.Fatalf("expected logged-out state, got %+v", user)
	}
	if got := srv.totalHits.Load(); got != 0 {
		t.Fatalf("open must not hit the network without prior auth, got %d requests", got)
	}
}

func TestOpen_RestoresSessionAfterRestart(t *testing.T) {
	srv := newFakeAuthServer(t)
	path := filepath.Join(t.TempDir(), "auth.db")

	store, err := OpenBoltStore(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	c := newTestClient(t, srv, store)
	login(t, c)
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// The old access token is gone by the time the process restarts; only
	// the refresh session in the persisted cookies can bring it back.
	srv.expireAccess()

	store2, err := OpenBoltStore(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	c2 := newTestClient(t, srv, store2)
	defer c2.Close()

	user, err := c2.Open(context.Background())
	if err != nil {
		t.Fatalf("open after restart: %v", err)
	}
	if user == nil || user.Email != "user@example.com" {
		t.Fatalf("expected restored session, got %+v", user)
	}
	if got := srv.refreshCalls.Load(); got != 1 {
		t.Fatalf("expected exactly 1 refresh on restart, got %d", got)
	}
	if c2.Store().Token() == "" {
		t.Fatalf("restored session must store the fresh access token")
	}
}

func TestOpen_RevokedSessionLandsLoggedOut(t *testing.T) {
	srv := newFakeAuthServer(t)
	c := newTestClient(t, srv, nil)
	login(t, c)

	srv.revokeSession()
	c.Store().SetToken("") // simulate an aged-out in-memory token

	user, err := c.Open(context.Background())
	if err != nil {
		t.Fatalf("open must not error on a revoked session, got %v", err)
	}
	if user != nil {
		t.Fatalf("expected logged-out state, got %+v", user)
	}
	if c.Store().Authed() {
		t.Fatalf("authed flag must be cleared after terminal refresh failure")
	}
}
