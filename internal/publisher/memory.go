package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Event captures one published message for assertions.
type Event struct {
	Topic   string
	Payload []byte
}

// Memory is an in-memory audit.Publisher for tests and local runs.
type Memory struct {
	mu     sync.Mutex
	events []Event
	nextID int
}

// NewMemory creates an in-memory publisher.
func NewMemory() *Memory {
	return &Memory{}
}

// Publish implements audit.Publisher.
func (p *Memory) Publish(_ context.Context, topic string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal event payload: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	p.events = append(p.events, Event{Topic: topic, Payload: data})
	return fmt.Sprintf("mem-%d", p.nextID), nil
}

// Events returns a copy of all published events.
func (p *Memory) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}
