// Package credential implements the credential/session service: it
// authenticates email+password, issues access tokens and refresh sessions,
// validates and rotates refresh sessions, and revokes them on logout.
//
// The service never sees HTTP. Cookies, headers, and the double-submit CSRF
// comparison against the cookie live in internal/httpapi; this package owns
// the comparison against the server-stored CSRF value and everything that
// touches storage.
package credential

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"rezom-platform/internal/audit"
	"rezom-platform/internal/auth"
	"rezom-platform/internal/identity"
	"rezom-platform/internal/rbac"
	"rezom-platform/internal/session"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12
const minPasswordLen = 8

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ResetTokenStore issues and consumes single-use password-reset tokens.
// Implemented by internal/pwreset over redis.
type ResetTokenStore interface {
	Issue(ctx context.Context, userID string) (token string, err error)
	Consume(ctx context.Context, token string) (userID string, err error)
}

// Mailer delivers password-reset mail. Implemented by internal/mail.
type Mailer interface {
	SendPasswordReset(ctx context.Context, toEmail, token string) error
}

// Credentials is the result of a successful login, register, or refresh.
// RefreshToken and CSRFToken are destined for cookies; AccessToken for the
// response body.
type Credentials struct {
	AccessToken      string
	RefreshToken     string
	CSRFToken        string
	SessionExpiresAt time.Time
	User             *identity.User
}

type Service struct {
	users    identity.Repository
	sessions session.Store
	tokens   *auth.Manager
	resets   ResetTokenStore
	mailer   Mailer
	audits   *audit.Service
	log      *slog.Logger

	refreshTTL time.Duration
}

func NewService(
	users identity.Repository,
	sessions session.Store,
	tokens *auth.Manager,
	resets ResetTokenStore,
	mailer Mailer,
	audits *audit.Service,
	log *slog.Logger,
	refreshTTL time.Duration,
) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		users:      users,
		sessions:   sessions,
		tokens:     tokens,
		resets:     resets,
		mailer:     mailer,
		audits:     audits,
		log:        log,
		refreshTTL: refreshTTL,
	}
}

// record writes an audit entry best-effort; a dead audit store must never
// fail the account operation it describes.
func (s *Service) record(ctx context.Context, fn func(ctx context.Context) error) {
	if s.audits == nil {
		return
	}
	if err := fn(ctx); err != nil {
		s.log.Warn("audit append failed", "err", err)
	}
}

// Register creates a user and logs them in. New accounts always get the USER
// role; ADMIN is assigned out of band.
func (s *Service) Register(ctx context.Context, email, password, displayName string) (*Credentials, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if !emailRe.MatchString(email) {
		return nil, fmt.Errorf("%w: invalid email format", ErrBadRequest)
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrBadRequest, minPasswordLen)
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, fmt.Errorf("%w: display name is required", ErrBadRequest)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &identity.User{
		Email:        email,
		DisplayName:  displayName,
		Role:         rbac.RoleUser,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, identity.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	s.record(ctx, func(ctx context.Context) error {
		return s.audits.RecordRegistered(ctx, user.ID)
	})
	return s.issueCredentials(ctx, user)
}

// Login authenticates email+password. The failure path is uniform: unknown
// email and wrong password take the same error, and bcrypt runs against a
// dummy hash on unknown emails so timing does not distinguish the two.
func (s *Service) Login(ctx context.Context, email, password string) (*Credentials, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			s.record(ctx, func(ctx context.Context) error {
				return s.audits.RecordLogin(ctx, "", email, false)
			})
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.record(ctx, func(ctx context.Context) error {
			return s.audits.RecordLogin(ctx, user.ID, email, false)
		})
		return nil, ErrInvalidCredentials
	}

	s.record(ctx, func(ctx context.Context) error {
		return s.audits.RecordLogin(ctx, user.ID, email, true)
	})
	return s.issueCredentials(ctx, user)
}

// dummyHash keeps the unknown-email path doing comparable work to the
// wrong-password path.
var dummyHash = func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("rezom-dummy-password"), bcryptCost)
	return h
}()

// Refresh exchanges a valid refresh token + CSRF proof for fresh credentials,
// rotating the session. The presented CSRF value must byte-equal the one
// bound to the session; a replayed (already rotated-out) refresh token fails
// with ErrSessionInvalid.
func (s *Service) Refresh(ctx context.Context, refreshToken, csrfToken string) (*Credentials, error) {
	if refreshToken == "" {
		return nil, ErrSessionInvalid
	}
	if csrfToken == "" {
		return nil, ErrCsrfMismatch
	}

	sess, err := s.sessions.GetByTokenHash(ctx, session.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, err
	}

	if subtle.ConstantTimeCompare([]byte(sess.CSRFToken), []byte(csrfToken)) == 0 {
		return nil, ErrCsrfMismatch
	}

	user, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			// User deleted since login; drop the orphaned session.
			_ = s.sessions.DeleteByID(ctx, sess.ID)
			return nil, ErrSessionInvalid
		}
		return nil, err
	}

	replacement, newToken, newCSRF, err := s.newSession(user.ID)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Rotate(ctx, sess.ID, replacement); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			// Lost a rotation race; reject-stale.
			return nil, ErrSessionInvalid
		}
		return nil, err
	}

	access, err := s.tokens.IssueAccess(time.Now(), user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	s.record(ctx, func(ctx context.Context) error {
		return s.audits.RecordRefreshed(ctx, user.ID)
	})

	user.PasswordHash = ""
	return &Credentials{
		AccessToken:      access,
		RefreshToken:     newToken,
		CSRFToken:        newCSRF,
		SessionExpiresAt: replacement.ExpiresAt,
		User:             user,
	}, nil
}

// Me resolves the authenticated principal by id (from verified claims).
func (s *Service) Me(ctx context.Context, userID string) (*identity.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

// Logout revokes the refresh session. Idempotent: an absent or already
// revoked session is not an error.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	sess, err := s.sessions.GetByTokenHash(ctx, session.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil
		}
		return err
	}
	if err := s.sessions.DeleteByID(ctx, sess.ID); err != nil {
		return err
	}
	s.record(ctx, func(ctx context.Context) error {
		return s.audits.RecordLogout(ctx, sess.UserID)
	})
	return nil
}

// ForgotPassword issues a reset token and mails it. It reports success even
// for unknown emails to avoid account enumeration; the miss is only logged.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if !emailRe.MatchString(email) {
		return fmt.Errorf("%w: invalid email format", ErrBadRequest)
	}
	if s.resets == nil || s.mailer == nil {
		return errors.New("password reset not configured")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			s.log.Info("password reset requested for unknown email")
			return nil
		}
		return err
	}

	token, err := s.resets.Issue(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}
	if err := s.mailer.SendPasswordReset(ctx, user.Email, token); err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}
	s.record(ctx, func(ctx context.Context) error {
		return s.audits.RecordResetRequested(ctx, user.ID)
	})
	return nil
}

// ResetPassword consumes a reset token, replaces the password, and revokes
// every refresh session of the user so stolen cookies die with the old
// password.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", ErrBadRequest, minPasswordLen)
	}
	if s.resets == nil {
		return errors.New("password reset not configured")
	}

	userID, err := s.resets.Consume(ctx, token)
	if err != nil {
		return ErrResetTokenInvalid
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return err
	}
	if err := s.sessions.DeleteByUserID(ctx, userID); err != nil {
		return err
	}
	s.record(ctx, func(ctx context.Context) error {
		return s.audits.RecordResetCompleted(ctx, userID)
	})
	return nil
}

/* ===================== internal ===================== */

func (s *Service) issueCredentials(ctx context.Context, user *identity.User) (*Credentials, error) {
	sess, token, csrf, err := s.newSession(user.ID)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create refresh session: %w", err)
	}

	access, err := s.tokens.IssueAccess(time.Now(), user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	user.PasswordHash = ""
	return &Credentials{
		AccessToken:      access,
		RefreshToken:     token,
		CSRFToken:        csrf,
		SessionExpiresAt: sess.ExpiresAt,
		User:             user,
	}, nil
}

func (s *Service) newSession(userID string) (*session.RefreshSession, string, string, error) {
	token, err := session.NewToken()
	if err != nil {
		return nil, "", "", fmt.Errorf("generate refresh token: %w", err)
	}
	csrf, err := session.NewToken()
	if err != nil {
		return nil, "", "", fmt.Errorf("generate csrf token: %w", err)
	}
	return &session.RefreshSession{
		UserID:    userID,
		TokenHash: session.HashToken(token),
		CSRFToken: csrf,
		ExpiresAt: time.Now().Add(s.refreshTTL),
	}, token, csrf, nil
}
