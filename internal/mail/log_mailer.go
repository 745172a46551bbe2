package mail

import (
	"context"
	"log/slog"
)

// LogMailer writes mails to the log instead of delivering them. Dev default.
type LogMailer struct {
	log *slog.Logger
}

func NewLogMailer(log *slog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) SendEmailVerification(ctx context.Context, in VerificationMail) error {
	m.log.InfoContext(ctx, "mail.email_verification",
		"email", in.Email,
		"username", in.Username,
		"verify_url", in.VerifyURL,
	)
	return nil
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, in ResetMail) error {
	m.log.InfoContext(ctx, "mail.password_reset",
		"email", in.Email,
		"username", in.Username,
		"reset_url", in.ResetURL,
	)
	return nil
}
