package tools_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawminium/agentkernel/internal/store"
	"github.com/clawminium/agentkernel/internal/tools"
)

type fakeConsole struct {
	saved, destroyed int
	err              error
}

func (c *fakeConsole) SaveWorld(context.Context) error    { c.saved++; return c.err }
func (c *fakeConsole) DestroyWorld(context.Context) error { c.destroyed++; return c.err }

func TestRegisterBuiltins_Order(t *testing.T) {
	r := tools.NewRegistry()
	require.NoError(t, tools.RegisterBuiltins(r, store.NewMemory(), &fakeConsole{}))

	var names []string
	for _, d := range r.List() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"create_calendar_event", "save_the_world", "destroy_the_world", "lookup_contact"}, names)

	// Registering twice must fail on the first duplicate.
	assert.Error(t, tools.RegisterBuiltins(r, store.NewMemory(), &fakeConsole{}))
}

func TestSaveTheWorld(t *testing.T) {
	console := &fakeConsole{}
	_, h := tools.SaveTheWorldTool(console)
	res, err := h.Invoke(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "The world has been saved.", res.Text())
	assert.Equal(t, 1, console.saved)
}

func TestSaveTheWorld_ConsoleError(t *testing.T) {
	_, h := tools.SaveTheWorldTool(&fakeConsole{err: errors.New("offline")})
	_, err := h.Invoke(context.Background(), nil)
	assert.Error(t, err)
}

func TestCreateCalendarEvent_DefaultsToTomorrow(t *testing.T) {
	mem := store.NewMemory()
	now := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	_, h := tools.CreateCalendarEventTool(mem, func() time.Time { return now })

	res, err := h.Invoke(context.Background(), map[string]any{"title": "Trip to Paris"})
	require.NoError(t, err)
	assert.Contains(t, res.Text(), "Trip to Paris")

	events := mem.Events()
	require.Len(t, events, 1)
	assert.Equal(t, now.Add(24*time.Hour), events[0].Start)
	assert.Equal(t, time.Hour, events[0].End.Sub(events[0].Start))
}

func TestCreateCalendarEvent_ExplicitTime(t *testing.T) {
	mem := store.NewMemory()
	_, h := tools.CreateCalendarEventTool(mem, nil)

	ms := float64(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC).UnixMilli())
	_, err := h.Invoke(context.Background(), map[string]any{"title": "Dentist", "time": ms})
	require.NoError(t, err)
	assert.Equal(t, int64(ms), mem.Events()[0].Start.UnixMilli())
}

func TestCreateCalendarEvent_BadTimeType(t *testing.T) {
	_, h := tools.CreateCalendarEventTool(store.NewMemory(), nil)
	_, err := h.Invoke(context.Background(), map[string]any{"title": "x", "time": "tomorrow"})
	assert.Error(t, err)
}

func TestCreateCalendarEvent_TimeOutOfRange(t *testing.T) {
	mem := store.NewMemory()
	_, h := tools.CreateCalendarEventTool(mem, nil)

	for _, ms := range []float64{1e300, -1, math.Inf(1), math.Inf(-1), math.NaN()} {
		_, err := h.Invoke(context.Background(), map[string]any{"title": "x", "time": ms})
		assert.Error(t, err, "time %v", ms)
	}
	assert.Empty(t, mem.Events())
}

func TestLookupContact(t *testing.T) {
	_, h := tools.LookupContactTool(store.NewMemory(store.DemoContacts()...))

	res, err := h.Invoke(context.Background(), map[string]any{"name": "Alex"})
	require.NoError(t, err)
	assert.Equal(t, "Name: Alex, Phone: 12345", res.Text())

	res, err = h.Invoke(context.Background(), map[string]any{"name": "Sam"})
	require.NoError(t, err)
	assert.Contains(t, res.Text(), "No contact")

	_, err = h.Invoke(context.Background(), map[string]any{})
	assert.Error(t, err)
}

func TestDefinitionWireShape(t *testing.T) {
	d, _ := tools.CreateCalendarEventTool(store.NewMemory(), nil)
	b, err := json.Marshal(d)
	require.NoError(t, err)

	var wire struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		InputSchema struct {
			Type       string                       `json:"type"`
			Properties map[string]map[string]string `json:"properties"`
			Required   []string                     `json:"required"`
		} `json:"inputSchema"`
	}
	require.NoError(t, json.Unmarshal(b, &wire))
	assert.Equal(t, "create_calendar_event", wire.Name)
	assert.Equal(t, "object", wire.InputSchema.Type)
	assert.Equal(t, "string", wire.InputSchema.Properties["title"]["type"])
	assert.Equal(t, "number", wire.InputSchema.Properties["time"]["type"])
	assert.Equal(t, []string{"title"}, wire.InputSchema.Required)
}

func TestResultWire(t *testing.T) {
	b, err := json.Marshal(tools.Success("The world has been saved.").Wire())
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":[{"type":"text","text":"The world has been saved."}]}`, string(b))
}
