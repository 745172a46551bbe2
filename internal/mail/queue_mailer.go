package mail

import (
	"context"

	"github.com/GianAlbi/API-Back-end-project-managemet/internal/jobs"
	"github.com/GianAlbi/API-Back-end-project-managemet/internal/observability"
)

// JobEnqueuer is the slice of the redis queue the mailer needs.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, j jobs.Job) error
}

// QueueMailer hands mails to the worker through the redis job queue. This is
// what the API wires in: the HTTP flow only waits for the enqueue.
type QueueMailer struct {
	queue   JobEnqueuer
	metrics *observability.Prom
}

func NewQueueMailer(queue JobEnqueuer, metrics *observability.Prom) *QueueMailer {
	return &QueueMailer{queue: queue, metrics: metrics}
}

func (m *QueueMailer) SendEmailVerification(ctx context.Context, in VerificationMail) error {
	payload, err := jobs.EncodePayload(jobs.JobSendEmailVerification, jobs.EmailVerificationPayload{
		Email:     in.Email,
		Username:  in.Username,
		VerifyURL: in.VerifyURL,
	})

	if err != nil {
		return err
	}

	return m.enqueue(ctx, jobs.JobSendEmailVerification, payload)
}

func (m *QueueMailer) SendPasswordReset(ctx context.Context, in ResetMail) error {
	payload, err := jobs.EncodePayload(jobs.JobSendPasswordReset, jobs.PasswordResetPayload{
		Email:    in.Email,
		Username: in.Username,
		ResetURL: in.ResetURL,
	})

	if err != nil {
		return err
	}

	return m.enqueue(ctx, jobs.JobSendPasswordReset, payload)
}

func (m *QueueMailer) enqueue(ctx context.Context, t jobs.JobType, payload []byte) error {
	j, err := jobs.NewJob(t, payload)

	if err != nil {
		return err
	}

	err = m.queue.Enqueue(ctx, j)

	if m.metrics != nil {
		result := "ok"
		if err != nil {
			result = "error"
		}
		m.metrics.MailEnqueuedTotal.WithLabelValues(string(t), result).Inc()
	}

	return err
}
