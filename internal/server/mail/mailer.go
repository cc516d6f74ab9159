package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/staywo/authgate/internal/common"
	"github.com/staywo/authgate/internal/logging"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// Mailer composes verification and password-reset messages and hands them
// to a Transport. Delivery failures surface as common.ErrorDelivery; they
// are never logged and dropped.
type Mailer struct {
	transport Transport
	from      string
	baseURL   string
	logger    logging.Logger
}

// NewMailer constructs a Mailer. baseURL is the externally reachable URL of
// this gateway, used to build the links embedded in mail.
func NewMailer(transport Transport, from, baseURL string, logger logging.Logger) *Mailer {
	return &Mailer{
		transport: transport,
		from:      from,
		baseURL:   baseURL,
		logger:    logger.With("module", "mailer"),
	}
}

func (m *Mailer) verifyURL(token string) string {
	return fmt.Sprintf("%s/auth/email/verify/%s", m.baseURL, token)
}

// SendVerification sends the account-activation message for email,
// embedding a link parameterized by token. Returns the delivery identifier.
func (m *Mailer) SendVerification(ctx context.Context, email, username, token string) (string, error) {
	var html bytes.Buffer
	err := templates.ExecuteTemplate(&html, "verification.html.tmpl", map[string]string{
		"Username":  username,
		"VerifyURL": m.verifyURL(token),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	return m.send(ctx, &Message{
		From:    m.from,
		To:      email,
		Subject: "Verify Email",
		Text:    "Verify Email: " + m.verifyURL(token),
		HTML:    html.String(),
	})
}

// SendPasswordReset sends the password-reset message for email. The reset
// link carries the same single-use token the verification store issued.
func (m *Mailer) SendPasswordReset(ctx context.Context, email, token string) (string, error) {
	var html bytes.Buffer
	err := templates.ExecuteTemplate(&html, "reset.html.tmpl", map[string]string{
		"ResetURL": m.verifyURL(token),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	return m.send(ctx, &Message{
		From:    m.from,
		To:      email,
		Subject: "Password Reset Link",
		Text:    "Reset your password: " + m.verifyURL(token),
		HTML:    html.String(),
	})
}

func (m *Mailer) send(ctx context.Context, msg *Message) (string, error) {
	id, err := m.transport.Send(ctx, msg)
	if err != nil {
		m.logger.Error(ctx, "error while sending message", "to", msg.To, "error", err)
		return "", fmt.Errorf("%w: %v", common.ErrorDelivery, err)
	}
	m.logger.Info(ctx, "message sent", "to", msg.To, "message_id", id)
	return id, nil
}
