// Package mail delivers transactional email over SMTP. The relay settings
// come from the database at call time, so admins can change them without a
// restart.
package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/dashly-io/dashly-engine/pkg/models"
)

// Mailer sends the engine's transactional email.
type Mailer interface {
	// SendPasswordReset mails a reset link for the given token.
	SendPasswordReset(ctx context.Context, cfg models.MailSettings, to, token, baseURL string) error

	// SendTest sends a probe message so admins can verify relay settings.
	SendTest(ctx context.Context, cfg models.MailSettings, to string) error
}

// SMTPMailer implements Mailer over an SMTP relay.
type SMTPMailer struct {
	logger *zap.Logger
}

// NewSMTPMailer creates an SMTP mailer.
func NewSMTPMailer(logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{logger: logger}
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, cfg models.MailSettings, to, token, baseURL string) error {
	body := fmt.Sprintf(
		"A password reset was requested for your account.\n\n"+
			"Open the link below to choose a new password. The link expires in one hour.\n\n"+
			"%s/reset-password?token=%s\n\n"+
			"If you did not request this, you can ignore this message.\n",
		baseURL, token,
	)
	return m.send(ctx, cfg, to, "Password reset", body)
}

func (m *SMTPMailer) SendTest(ctx context.Context, cfg models.MailSettings, to string) error {
	return m.send(ctx, cfg, to, "Test message",
		"This is a test message confirming your mail settings work.\n")
}

func (m *SMTPMailer) send(ctx context.Context, cfg models.MailSettings, to, subject, body string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if !cfg.Enabled {
		return fmt.Errorf("mail delivery is disabled")
	}

	msg := gomail.NewMsg()
	if err := msg.From(cfg.FromAddress); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if cfg.UseTLS {
		opts = append(opts, gomail.WithSSL())
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("create mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	m.logger.Info("Sent mail", zap.String("to", to), zap.String("subject", subject))
	return nil
}

// Ensure SMTPMailer implements Mailer at compile time.
var _ Mailer = (*SMTPMailer)(nil)
