package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/GianAlbi/API-Back-end-project-managemet/internal/jobs"
	"github.com/GianAlbi/API-Back-end-project-managemet/internal/mail"
	"github.com/GianAlbi/API-Back-end-project-managemet/internal/observability"
	"github.com/GianAlbi/API-Back-end-project-managemet/internal/queue/redisclient"
)

// JobQueue is the slice of the redis client the worker needs.
type JobQueue interface {
	Enqueue(ctx context.Context, j jobs.Job) error
	Dequeue(ctx context.Context, timeout time.Duration) (jobs.Job, error)
}

type Config struct {
	PollTimeout time.Duration
}

// Worker drains the mail queue and delivers through the configured mailer.
// Failed jobs go back on the queue after a backoff until MaxTries is spent.
type Worker struct {
	cfg     Config
	queue   JobQueue
	mailer  mail.Mailer
	metrics *observability.Prom
	log     *slog.Logger

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, queue JobQueue, mailer mail.Mailer, metrics *observability.Prom, log *slog.Logger) *Worker {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 5 * time.Second
	}

	return &Worker{
		cfg:     cfg,
		queue:   queue,
		mailer:  mailer,
		metrics: metrics,
		log:     log,
	}
}

func (w *Worker) Run(ctx context.Context) error {
	w.setReady(true)
	defer w.setReady(false)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker received shutdown signal")
			return nil
		default:
		}

		_, err := w.ProcessOne(ctx)

		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}

			w.log.Error("dequeue error", "err", err)

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
		}
	}
}

// ProcessOne pops and delivers a single job. The bool reports whether a job
// was handled at all.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	j, err := w.queue.Dequeue(ctx, w.cfg.PollTimeout)

	if err != nil {
		if errors.Is(err, redisclient.ErrQueueEmpty) {
			return false, nil
		}

		return false, err
	}

	start := time.Now()

	err = w.deliver(ctx, j)

	result := "done"

	if err != nil {
		result = w.handleFailure(ctx, j, err)
	}

	if w.metrics != nil {
		w.metrics.MailResults.WithLabelValues(string(j.Type), result).Inc()
		w.metrics.MailDuration.WithLabelValues(string(j.Type), result).Observe(time.Since(start).Seconds())
	}

	return true, nil
}

func (w *Worker) deliver(ctx context.Context, j jobs.Job) error {
	payload, err := jobs.DecodePayload(j)

	if err != nil {
		return err
	}

	switch p := payload.(type) {
	case jobs.EmailVerificationPayload:
		return w.mailer.SendEmailVerification(ctx, mail.VerificationMail{
			Email:     p.Email,
			Username:  p.Username,
			VerifyURL: p.VerifyURL,
		})

	case jobs.PasswordResetPayload:
		return w.mailer.SendPasswordReset(ctx, mail.ResetMail{
			Email:    p.Email,
			Username: p.Username,
			ResetURL: p.ResetURL,
		})

	default:
		return jobs.ErrInvalidJobType
	}
}

// handleFailure re-queues with backoff or drops the job once tries are spent.
// Returns the metric result label.
func (w *Worker) handleFailure(ctx context.Context, j jobs.Job, cause error) string {
	// undeliverable payloads never succeed on retry
	permanent := errors.Is(cause, jobs.ErrInvalidJobType) || errors.Is(cause, jobs.ErrInvalidJobPayload)

	j.Attempts++
	msg := cause.Error()
	j.LastError = &msg

	if permanent || j.Attempts >= j.MaxTries {
		w.log.Error("mail job dead-lettered",
			"job_id", j.ID, "job_type", string(j.Type), "attempts", j.Attempts, "err", cause)
		return "failed"
	}

	delay := ExponentialBackoff(j.Attempts - 1)

	w.log.Warn("mail job failed, retrying",
		"job_id", j.ID, "job_type", string(j.Type), "attempts", j.Attempts, "delay", delay, "err", cause)

	select {
	case <-ctx.Done():
		return "failed"
	case <-time.After(delay):
	}

	if err := w.queue.Enqueue(ctx, j); err != nil {
		w.log.Error("requeue failed", "job_id", j.ID, "err", err)
		return "failed"
	}

	return "retry"
}

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}
