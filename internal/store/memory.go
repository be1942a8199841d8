package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Memory is the default in-process store.
type Memory struct {
	mu       sync.RWMutex
	events   []Event
	contacts map[string]Contact
}

func NewMemory(seed ...Contact) *Memory {
	m := &Memory{contacts: make(map[string]Contact, len(seed))}
	for _, c := range seed {
		m.contacts[strings.ToLower(c.Name)] = c
	}
	return m
}

// DemoContacts seeds the memory store when no database is configured.
func DemoContacts() []Contact {
	return []Contact{{Name: "Alex", Phone: "12345"}}
}

func (m *Memory) InsertEvent(ctx context.Context, ev Event) (Event, error) {
	if err := ctx.Err(); err != nil {
		return Event{}, err
	}
	if ev.Title == "" {
		return Event{}, fmt.Errorf("event title is required")
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	m.mu.Lock()
	m.events = append(m.events, ev)
	m.mu.Unlock()
	return ev, nil
}

// Events returns a copy of the stored events in insertion order.
func (m *Memory) Events() []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

func (m *Memory) FindContact(ctx context.Context, name string) (Contact, error) {
	if err := ctx.Err(); err != nil {
		return Contact{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.contacts[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Contact{}, fmt.Errorf("contact %q: %w", name, ErrNotFound)
	}
	return c, nil
}

func (m *Memory) Close() error { return nil }
