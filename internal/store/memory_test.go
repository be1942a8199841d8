package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawminium/agentkernel/internal/store"
)

func TestMemoryInsertEvent(t *testing.T) {
	m := store.NewMemory()
	start := time.Now()

	ev, err := m.InsertEvent(context.Background(), store.Event{Title: "Trip", Start: start, End: start.Add(time.Hour)})
	require.NoError(t, err)
	assert.NotEmpty(t, ev.ID, "id is generated")

	events := m.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "Trip", events[0].Title)
}

func TestMemoryInsertEventRequiresTitle(t *testing.T) {
	_, err := store.NewMemory().InsertEvent(context.Background(), store.Event{})
	assert.Error(t, err)
}

func TestMemoryFindContact(t *testing.T) {
	m := store.NewMemory(store.DemoContacts()...)

	c, err := m.FindContact(context.Background(), "alex")
	require.NoError(t, err)
	assert.Equal(t, "Alex", c.Name)
	assert.Equal(t, "12345", c.Phone)

	_, err = m.FindContact(context.Background(), "nobody")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMemoryHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := store.NewMemory(store.DemoContacts()...).FindContact(ctx, "Alex")
	assert.ErrorIs(t, err, context.Canceled)
}
