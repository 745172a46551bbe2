package jobs

type JobType string

const (
	JobSendEmailVerification JobType = "send_email_verification"
	JobSendPasswordReset     JobType = "send_password_reset"
)

// check to see if the job type is a known constant
func (t JobType) IsValid() bool {
	switch t {
	case JobSendEmailVerification, JobSendPasswordReset:
		return true
	default:
		return false
	}
}
