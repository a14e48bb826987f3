package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	defaultRefreshCookie = "rezom_rt"
	defaultCSRFCookie    = "X-CSRF-Token"
	defaultTimeout       = 30 * time.Second
	defaultLogoutTimeout = 3 * time.Second
)

// User is the authenticated principal as the server reports it.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Config holds the knobs for a Client. Only BaseURL and Store are required.
type Config struct {
	// BaseURL is the server origin, e.g. "https://api.rezom.app".
	BaseURL string
	// Store keeps the access token and auth cookies across restarts.
	Store TokenStore

	// Cookie names, matching the server's cookie config.
	RefreshCookieName string
	CSRFCookieName    string

	// Timeout bounds every API call; LogoutTimeout bounds only the
	// best-effort server call inside Logout.
	Timeout       time.Duration
	LogoutTimeout time.Duration

	// Transport is the base RoundTripper. Defaults to http.DefaultTransport.
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// Client talks to the credential service. Requests sent through HTTPClient()
// carry the bearer token and transparently retry once after a refresh when
// the server answers 401. Safe for concurrent use.
type Client struct {
	cfg   Config
	base  *url.URL
	store TokenStore
	jar   *cookiejar.Jar
	log   *slog.Logger

	// httpc goes through authTransport; refreshc bypasses it so the refresh
	// call can never trigger itself.
	httpc    *http.Client
	refreshc *http.Client

	refreshGroup singleflight.Group
}

// New builds a Client and rehydrates the cookie jar from the store, so a
// restarted process can refresh without a fresh login.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("authclient: BaseURL is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("authclient: Store is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("authclient: parsing base url: %w", err)
	}

	if cfg.RefreshCookieName == "" {
		cfg.RefreshCookieName = defaultRefreshCookie
	}
	if cfg.CSRFCookieName == "" {
		cfg.CSRFCookieName = defaultCSRFCookie
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.LogoutTimeout == 0 {
		cfg.LogoutTimeout = defaultLogoutTimeout
	}
	if cfg.Transport == nil {
		cfg.Transport = http.DefaultTransport
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("authclient: cookie jar: %w", err)
	}
	if persisted := cfg.Store.LoadCookies(); len(persisted) > 0 {
		jar.SetCookies(base, persisted)
	}

	c := &Client{
		cfg:   cfg,
		base:  base,
		store: cfg.Store,
		jar:   jar,
		log:   cfg.Logger,
	}
	c.httpc = &http.Client{
		Jar:       jar,
		Timeout:   cfg.Timeout,
		Transport: &authTransport{base: cfg.Transport, client: c},
	}
	c.refreshc = &http.Client{
		Jar:       jar,
		Timeout:   cfg.Timeout,
		Transport: cfg.Transport,
	}
	return c, nil
}

// HTTPClient returns the client to use for the application's own API calls.
// It attaches the bearer token and retries once after a refresh on 401.
func (c *Client) HTTPClient() *http.Client { return c.httpc }

// Store exposes the token store, e.g. to register OnChange listeners.
func (c *Client) Store() TokenStore { return c.store }

// Open restores the session at process start. When the previous run was
// logged in it refreshes and probes /auth/me; a terminal refresh failure
// lands in the logged-out state with a nil user, not an error. When the
// previous run never logged in, no network call is made.
func (c *Client) Open(ctx context.Context) (*User, error) {
	if c.store.Token() == "" && !c.store.Authed() {
		return nil, nil
	}

	if c.store.Token() == "" {
		if _, err := c.doRefresh(ctx); err != nil {
			if errors.Is(err, ErrSessionExpired) {
				return nil, nil
			}
			return nil, err
		}
	}

	user, err := c.Me(ctx)
	if err != nil {
		var apiErr *APIError
		if errors.Is(err, ErrSessionExpired) || (errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized) {
			c.clearLocal()
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

type credentialsResponse struct {
	User        *User  `json:"user"`
	AccessToken string `json:"accessToken"`
}

// Register creates an account and signs in.
func (c *Client) Register(ctx context.Context, email, password, displayName string) (*User, error) {
	body := map[string]string{"email": email, "password": password, "displayName": displayName}
	var out credentialsResponse
	if err := c.postAuth(ctx, "/auth/register", body, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// Login signs in with email and password.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	body := map[string]string{"email": email, "password": password}
	var out credentialsResponse
	if err := c.postAuth(ctx, "/auth/login", body, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// postAuth posts a credential request and, on success, installs the returned
// token and cookies as the new session.
func (c *Client) postAuth(ctx context.Context, path string, body, out any) error {
	resp, err := c.send(ctx, c.refreshc, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("authclient: decoding response: %w", err)
	}

	cr, ok := out.(*credentialsResponse)
	if !ok || cr.AccessToken == "" {
		return errors.New("authclient: response carried no access token")
	}
	if err := c.store.SetToken(cr.AccessToken); err != nil {
		return err
	}
	if err := c.store.SetAuthed(true); err != nil {
		return err
	}
	c.persistAuthCookies(resp)
	return nil
}

// Me fetches the authenticated user. A stale access token refreshes
// transparently via the transport.
func (c *Client) Me(ctx context.Context) (*User, error) {
	resp, err := c.send(ctx, c.httpc, http.MethodGet, "/auth/me", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}
	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("authclient: decoding user: %w", err)
	}
	return &user, nil
}

// Refresh forces a token refresh. Concurrent callers share a single network
// call. Returns ErrSessionExpired when the server rejects the session.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	return c.doRefresh(ctx)
}

// Logout is optimistic: local state is cleared first and unconditionally,
// then the server revocation runs best-effort under a short timeout. A dead
// server cannot keep the user logged in.
func (c *Client) Logout(ctx context.Context) {
	c.clearLocal()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.LogoutTimeout)
	defer cancel()

	resp, err := c.send(ctx, c.refreshc, http.MethodPost, "/auth/logout", nil)
	if err != nil {
		c.log.Warn("server logout skipped", "err", err)
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
}

// ForgotPassword asks the server to mail a reset link. The server answers
// identically whether or not the email exists.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	resp, err := c.send(ctx, c.refreshc, http.MethodPost, "/auth/forgot-password", map[string]string{"email": email})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	return nil
}

// ResetPassword redeems a reset token. All sessions are revoked server-side,
// so local state is cleared too.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	body := map[string]string{"token": token, "newPassword": newPassword}
	resp, err := c.send(ctx, c.refreshc, http.MethodPost, "/auth/reset-password", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	c.clearLocal()
	return nil
}

// Close persists nothing extra (state is written as it changes) and releases
// the store.
func (c *Client) Close() error {
	return c.store.Close()
}

func (c *Client) send(ctx context.Context, hc *http.Client, method, path string, body any) (*http.Response, error) {
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("authclient: encoding request: %w", err)
		}
		buf = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.JoinPath(path).String(), buf)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return hc.Do(req)
}

// persistAuthCookies writes the Set-Cookie outcome of an auth response into
// the store, translating MaxAge to an absolute expiry so a later process can
// drop dead cookies.
func (c *Client) persistAuthCookies(resp *http.Response) {
	cookies := resp.Cookies()
	if len(cookies) == 0 {
		return
	}
	now := time.Now()
	for _, ck := range cookies {
		if ck.MaxAge > 0 && ck.Expires.IsZero() {
			ck.Expires = now.Add(time.Duration(ck.MaxAge) * time.Second)
		}
	}
	if err := c.store.SaveCookies(cookies); err != nil {
		c.log.Warn("persisting auth cookies failed", "err", err)
	}
}

// clearLocal drops the token, the authed flag, the persisted cookies, and
// evicts the live cookies from the jar.
func (c *Client) clearLocal() {
	if err := c.store.Clear(); err != nil {
		c.log.Warn("clearing auth state failed", "err", err)
	}
	expired := []*http.Cookie{
		{Name: c.cfg.RefreshCookieName, Value: "", Path: "/auth", MaxAge: -1},
		{Name: c.cfg.CSRFCookieName, Value: "", Path: "/", MaxAge: -1},
	}
	c.jar.SetCookies(c.base, expired)
}

// csrfToken reads the readable CSRF cookie from the jar.
func (c *Client) csrfToken() string {
	for _, ck := range c.jar.Cookies(c.base) {
		if ck.Name == c.cfg.CSRFCookieName {
			return ck.Value
		}
	}
	return ""
}
