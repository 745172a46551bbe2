package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/GianAlbi/API-Back-end-project-managemet/internal/jobs"
	"github.com/GianAlbi/API-Back-end-project-managemet/internal/mail"
	"github.com/GianAlbi/API-Back-end-project-managemet/internal/queue/redisclient"
)

// memQueue is an in-memory stand-in for the redis list.
type memQueue struct {
	jobs []jobs.Job
}

func (q *memQueue) Enqueue(_ context.Context, j jobs.Job) error {
	q.jobs = append(q.jobs, j)
	return nil
}

func (q *memQueue) Dequeue(_ context.Context, _ time.Duration) (jobs.Job, error) {
	if len(q.jobs) == 0 {
		return jobs.Job{}, redisclient.ErrQueueEmpty
	}

	j := q.jobs[0]
	q.jobs = q.jobs[1:]
	return j, nil
}

type recordingMailer struct {
	verifications []mail.VerificationMail
	resets        []mail.ResetMail
	err           error
}

func (m *recordingMailer) SendEmailVerification(_ context.Context, v mail.VerificationMail) error {
	if m.err != nil {
		return m.err
	}
	m.verifications = append(m.verifications, v)
	return nil
}

func (m *recordingMailer) SendPasswordReset(_ context.Context, r mail.ResetMail) error {
	if m.err != nil {
		return m.err
	}
	m.resets = append(m.resets, r)
	return nil
}

func newTestWorker(queue JobQueue, mailer mail.Mailer) *Worker {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(Config{PollTimeout: time.Millisecond}, queue, mailer, nil, log)
}

func mustVerificationJob(t *testing.T) jobs.Job {
	t.Helper()

	b, err := jobs.EncodePayload(jobs.JobSendEmailVerification, jobs.EmailVerificationPayload{
		Email:     "sam@example.com",
		Username:  "sam",
		VerifyURL: "http://localhost:8080/api/v1/auth/verify-email/abc",
	})
	if err != nil {
		t.Fatalf("EncodePayload returned error: %v", err)
	}

	j, err := jobs.NewJob(jobs.JobSendEmailVerification, b)
	if err != nil {
		t.Fatalf("NewJob returned error: %v", err)
	}

	return j
}

func TestProcessOneDelivers(t *testing.T) {
	queue := &memQueue{}
	mailer := &recordingMailer{}
	w := newTestWorker(queue, mailer)

	_ = queue.Enqueue(context.Background(), mustVerificationJob(t))

	handled, err := w.ProcessOne(context.Background())

	if err != nil {
		t.Fatalf("ProcessOne returned error: %v", err)
	}

	if !handled {
		t.Fatalf("ProcessOne did not pick up the job")
	}

	if len(mailer.verifications) != 1 {
		t.Fatalf("verification mails = %d, want 1", len(mailer.verifications))
	}

	if mailer.verifications[0].Email != "sam@example.com" {
		t.Errorf("mail addressed to %q", mailer.verifications[0].Email)
	}

	if len(queue.jobs) != 0 {
		t.Errorf("job requeued after successful delivery")
	}
}

func TestProcessOneEmptyQueue(t *testing.T) {
	w := newTestWorker(&memQueue{}, &recordingMailer{})

	handled, err := w.ProcessOne(context.Background())

	if err != nil {
		t.Fatalf("ProcessOne returned error: %v", err)
	}

	if handled {
		t.Fatalf("ProcessOne reported work on an empty queue")
	}
}

func TestProcessOneDeadLettersBadPayload(t *testing.T) {
	queue := &memQueue{}
	mailer := &recordingMailer{}
	w := newTestWorker(queue, mailer)

	// undecodable payload: retrying can never help
	_ = queue.Enqueue(context.Background(), jobs.Job{
		ID:       "broken",
		Type:     jobs.JobSendPasswordReset,
		Payload:  []byte(`{"email":`),
		MaxTries: 5,
	})

	handled, err := w.ProcessOne(context.Background())

	if err != nil {
		t.Fatalf("ProcessOne returned error: %v", err)
	}

	if !handled {
		t.Fatalf("ProcessOne did not pick up the job")
	}

	if len(queue.jobs) != 0 {
		t.Errorf("permanently broken job was requeued")
	}

	if len(mailer.resets) != 0 {
		t.Errorf("broken job was delivered")
	}
}

func TestProcessOneDeadLettersAfterMaxTries(t *testing.T) {
	queue := &memQueue{}
	mailer := &recordingMailer{err: errors.New("smtp down")}
	w := newTestWorker(queue, mailer)

	j := mustVerificationJob(t)
	j.Attempts = 4 // one try left
	_ = queue.Enqueue(context.Background(), j)

	handled, err := w.ProcessOne(context.Background())

	if err != nil {
		t.Fatalf("ProcessOne returned error: %v", err)
	}

	if !handled {
		t.Fatalf("ProcessOne did not pick up the job")
	}

	if len(queue.jobs) != 0 {
		t.Errorf("spent job was requeued")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	w := newTestWorker(&memQueue{}, &recordingMailer{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)

	go func() {
		done <- w.Run(ctx)
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop after cancel")
	}
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	prev := time.Duration(0)

	for attempt := 0; attempt < 12; attempt++ {
		d := ExponentialBackoff(attempt)

		if d < prev && d < 5*time.Minute {
			t.Fatalf("backoff shrank before the cap: attempt %d gave %v after %v", attempt, d, prev)
		}

		if d > 5*time.Minute+time.Minute {
			t.Fatalf("backoff exceeded cap: attempt %d gave %v", attempt, d)
		}

		prev = d
	}
}
