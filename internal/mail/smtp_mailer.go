package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPMailer delivers plain-text mails over SMTP with PLAIN auth. The worker
// uses it; the API never talks to the provider directly.
type SMTPMailer struct {
	addr string
	auth smtp.Auth
	from string
}

func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	var auth smtp.Auth

	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	return &SMTPMailer{
		addr: fmt.Sprintf("%s:%d", host, port),
		auth: auth,
		from: from,
	}
}

func (m *SMTPMailer) SendEmailVerification(ctx context.Context, in VerificationMail) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nPlease verify your email address by opening the link below:\n\n%s\n\nThe link expires in 20 minutes. If you did not sign up, ignore this mail.\n",
		in.Username, in.VerifyURL,
	)

	return m.send(ctx, in.Email, "Verify your email", body)
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, in ResetMail) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nWe received a request to reset your password. Open the link below to choose a new one:\n\n%s\n\nThe link expires in 20 minutes. If you did not request this, ignore this mail.\n",
		in.Username, in.ResetURL,
	)

	return m.send(ctx, in.Email, "Reset your password", body)
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	return smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(msg))
}
