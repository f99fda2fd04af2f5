package mailer

import (
	"context"
	"sync"
)

// SentMail captures one delivery for assertions.
type SentMail struct {
	To         string
	WebsiteURL string
	ReportURL  string
	PDF        []byte
}

// Memory is an in-memory audit.Mailer for tests and local runs.
type Memory struct {
	mu   sync.Mutex
	sent []SentMail
	err  error
}

// NewMemory creates an in-memory mailer.
func NewMemory() *Memory {
	return &Memory{}
}

// Fail makes subsequent SendReport calls return err.
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SendReport implements audit.Mailer.
func (m *Memory) SendReport(_ context.Context, to string, websiteURL string, reportURL string, pdf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, SentMail{
		To:         to,
		WebsiteURL: websiteURL,
		ReportURL:  reportURL,
		PDF:        append([]byte(nil), pdf...),
	})
	return nil
}

// Sent returns a copy of all deliveries.
func (m *Memory) Sent() []SentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMail(nil), m.sent...)
}
