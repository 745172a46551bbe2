package mail

import "context"

// VerificationMail is sent after registration (and on resend). VerifyURL
// embeds the single-use plain token.
type VerificationMail struct {
	Email     string
	Username  string
	VerifyURL string
}

// ResetMail carries a password-reset link.
type ResetMail struct {
	Email    string
	Username string
	ResetURL string
}

// Mailer is the outbound-mail collaborator of the auth flows. Delivery is
// best effort: callers log failures and still report success to the client.
type Mailer interface {
	SendEmailVerification(ctx context.Context, m VerificationMail) error
	SendPasswordReset(ctx context.Context, m ResetMail) error
}
