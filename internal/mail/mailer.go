// Package mail sends transactional mail. The credential service depends on
// the narrow interface it declares itself; this package supplies the resend
// implementation wired in cmd/api.
package mail

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v3"
)

type ResendMailer struct {
	client    *resend.Client
	fromEmail string
	appURL    string
}

// NewResendMailer builds a mailer using the Resend API.
// fromEmail must belong to a domain verified in resend; appURL is the public
// frontend URL reset links point at.
func NewResendMailer(apiKey, fromEmail, appURL string) *ResendMailer {
	return &ResendMailer{
		client:    resend.NewClient(apiKey),
		fromEmail: fromEmail,
		appURL:    appURL,
	}
}

// SendPasswordReset mails a reset link carrying the plaintext token.
// The server only ever stores the token's hash; this mail is the sole place
// the plaintext exists outside the user's hands.
func (m *ResendMailer) SendPasswordReset(ctx context.Context, toEmail, token string) error {
	resetLink := fmt.Sprintf("%s/reset-password?token=%s", m.appURL, token)

	html := fmt.Sprintf(`<p>We received a request to reset your rezom password.</p>
<p><a href="%s">Reset your password</a></p>
<p>This link expires in 20 minutes. If you didn't request a reset, you can ignore this email.</p>`, resetLink)

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("rezom <%s>", m.fromEmail),
		To:      []string{toEmail},
		Subject: "Reset your password",
		Html:    html,
	}

	if _, err := m.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	return nil
}
