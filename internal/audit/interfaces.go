package audit

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by RecordStore lookups for unknown audit IDs.
var ErrNotFound = errors.New("audit record not found")

// ErrTerminal is returned by RecordStore mutations that target a record
// already in a terminal status. Completed and failed records never change.
var ErrTerminal = errors.New("audit record is in a terminal status")

// RecordStore persists audit records. SaveScores runs before the PDF and
// email stages, so a record that later ends up failed keeps the scores it
// earned; callers must not treat score presence as completion.
type RecordStore interface {
	CreateRecord(ctx context.Context, rec Record) error
	GetRecord(ctx context.Context, auditID string) (Record, error)
	SetStatus(ctx context.Context, auditID string, status Status, errText string) error
	SaveScores(ctx context.Context, auditID string, analysis Analysis) error
	SetReportURL(ctx context.Context, auditID string, url string) error
	MarkEmailSent(ctx context.Context, auditID string, at time.Time) error
	GetSubscriptionTier(ctx context.Context, userID string) (Tier, error)
}

// Queue provides at-least-once delivery of audit jobs. Dequeue blocks until
// a job is available or the context ends; a claimed job is invisible to
// other workers until acked or nacked.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Dequeue(ctx context.Context) (Job, error)
	Ack(ctx context.Context, job Job) error
	// Nack returns the attempt that will run next, or 0 when the job's
	// attempts are exhausted and it will not be redelivered.
	Nack(ctx context.Context, job Job) (int, error)
}

// BlobStore writes rendered reports and returns a public URL.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Fetcher retrieves a page for analysis.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Mailer sends the transactional report email.
type Mailer interface {
	SendReport(ctx context.Context, to string, websiteURL string, reportURL string, pdf []byte) error
}

// Renderer builds the report PDF for a finished analysis.
type Renderer interface {
	Render(websiteURL string, analysis Analysis, tier Tier) ([]byte, error)
}

// Hasher computes digests for content-addressed blob paths.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces request and audit IDs.
type IDGenerator interface {
	NewID() (string, error)
}
