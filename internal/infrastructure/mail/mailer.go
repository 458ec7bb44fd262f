// Package mail implements SMTP delivery of CloudQuest notifications.
// Delivery is best-effort with retries; a failed send is logged and
// dropped, it never unwinds the ledger write that triggered it.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/cloudquest-hub/cloudquest/internal/domain/notification"
	"github.com/cloudquest-hub/cloudquest/internal/domain/shared"
	"github.com/cloudquest-hub/cloudquest/pkg/logger"
	"github.com/cloudquest-hub/cloudquest/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config holds SMTP configuration.
type Config struct {
	// Host is the SMTP server hostname.
	Host string

	// Port is the SMTP server port.
	Port int

	// Username for SMTP authentication (empty disables auth).
	Username string

	// Password for SMTP authentication.
	Password string

	// From is the sender address on outgoing mail.
	From string

	// FromName is the display name on outgoing mail.
	FromName string
}

// DefaultConfig returns a local relay configuration.
func DefaultConfig() Config {
	return Config{
		Host:     "localhost",
		Port:     587,
		From:     "no-reply@cloudquest.local",
		FromName: "CloudQuest",
	}
}

// Addr returns the SMTP address in "host:port" format.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// SMTP MAILER
// ══════════════════════════════════════════════════════════════════════════════

// sendFunc mirrors smtp.SendMail, injectable for tests.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer implements notification.Dispatcher over SMTP.
type Mailer struct {
	config  Config
	retrier *retry.Retrier
	send    sendFunc
	log     *logger.Logger
}

// NewMailer creates a new SMTP mailer.
func NewMailer(cfg Config, log *logger.Logger) *Mailer {
	if log == nil {
		log = logger.Default()
	}
	return &Mailer{
		config:  cfg,
		retrier: retry.MailRetrier(),
		send:    smtp.SendMail,
		log:     log.With(logger.Component("mailer")),
	}
}

// Dispatch renders and delivers the notification.
func (m *Mailer) Dispatch(ctx context.Context, n *notification.Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}

	subject, body := render(n)
	msg := m.compose(n.Email, subject, body)

	var auth smtp.Auth
	if m.config.Username != "" {
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	}

	err := m.retrier.Do(ctx, func(_ context.Context) error {
		if err := m.send(m.config.Addr(), auth, m.config.From, []string{n.Email}, msg); err != nil {
			return retry.Retryable(err)
		}
		return nil
	})
	if err != nil {
		m.log.Error("mail delivery failed",
			logger.String("kind", string(n.Kind)),
			logger.String("recipient", n.Email),
			logger.Err(err),
		)
		return fmt.Errorf("%w: %v", shared.ErrNotificationFailed, err)
	}

	m.log.Info("mail delivered",
		logger.String("kind", string(n.Kind)),
		logger.String("recipient", n.Email),
	)
	return nil
}

// compose builds an RFC 5322 message with headers.
func (m *Mailer) compose(to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", m.config.FromName, m.config.From)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

// ─────────────────────────────────────────────────────────────────────────────
// Templates
// ─────────────────────────────────────────────────────────────────────────────

func render(n *notification.Notification) (subject, body string) {
	switch n.Kind {
	case notification.KindAchievementUnlocked:
		return renderAchievement(n)
	case notification.KindPasswordReset:
		return renderPasswordReset(n)
	default:
		return "CloudQuest notification", ""
	}
}

func renderAchievement(n *notification.Notification) (string, string) {
	subject := fmt.Sprintf("Congratulations! You've unlocked the %s badge!", titleCase(n.Achievement))

	body := fmt.Sprintf(`Congratulations, %s!

You've just earned the %s badge.

By completing challenges and reaching %d points, you've proven your
skills and dedication to the command line.

Keep learning, keep growing!

Best regards,
The CloudQuest Team
`, n.Username, titleCase(n.Achievement), n.TotalScore)

	return subject, body
}

func renderPasswordReset(n *notification.Notification) (string, string) {
	subject := "Password Reset Instructions - CloudQuest"

	body := fmt.Sprintf(`Hello %s,

You have requested a password reset for your CloudQuest account.

Please open the link below to reset your password:
%s

If you did not request this password reset, please ignore this email.

This link will expire in 1 hour.

Best regards,
The CloudQuest Team
`, n.Username, n.ResetLink)

	return subject, body
}

// titleCase turns "cloud-warrior" into "Cloud Warrior".
func titleCase(name string) string {
	words := strings.Split(name, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
