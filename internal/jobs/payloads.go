package jobs

// EmailVerificationPayload carries everything the worker needs to deliver a
// verification mail. The URL embeds the plain token; it exists nowhere else.
type EmailVerificationPayload struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	VerifyURL string `json:"verifyUrl"`
}

// PasswordResetPayload is the reset-link counterpart.
type PasswordResetPayload struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	ResetURL string `json:"resetUrl"`
}
