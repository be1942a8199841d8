// Package store holds the data the builtin tools act on: calendar events
// written by create_calendar_event and contacts read by lookup_contact.
package store

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// Event is a calendar entry.
type Event struct {
	ID       string
	Title    string
	Start    time.Time
	End      time.Time
	Timezone string
}

// Contact is an address-book entry.
type Contact struct {
	Name  string
	Phone string
}

type EventStore interface {
	InsertEvent(ctx context.Context, ev Event) (Event, error)
}

type ContactStore interface {
	FindContact(ctx context.Context, name string) (Contact, error)
}

// Store is everything the builtin tools need.
type Store interface {
	EventStore
	ContactStore
	Close() error
}
