package user

import "time"

// Global account roles (distinct from project-scoped roles).
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

func IsValidRole(role string) bool {
	return role == RoleAdmin || role == RoleMember
}

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName,omitempty"`
	Role     string `json:"role"`

	// never expose credential material in JSON
	PasswordHash     string `json:"-"`
	RefreshTokenHash string `json:"-"`

	IsEmailVerified bool `json:"isEmailVerified"`

	// ephemeral token pairs: hash + expiry are always set or cleared together
	EmailVerificationToken  *string    `json:"-"`
	EmailVerificationExpiry *time.Time `json:"-"`
	ForgotPasswordToken     *string    `json:"-"`
	ForgotPasswordExpiry    *time.Time `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
