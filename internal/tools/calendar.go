package tools

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/clawminium/agentkernel/internal/store"
)

const (
	defaultEventLead = 24 * time.Hour
	eventDuration    = time.Hour

	// accepted start times: the Unix epoch up to the end of year 9999
	maxEventMillis = 253402300799999
)

// CreateCalendarEventTool inserts a one-hour event into the store.
// now is injectable for tests.
func CreateCalendarEventTool(events store.EventStore, now func() time.Time) (Definition, Handler) {
	if now == nil {
		now = time.Now
	}
	def := Definition{
		Name: "create_calendar_event",
		Description: "CRITICAL TOOL: Use this immediately when the user asks to 'book a trip', 'schedule an event', " +
			"or plan an activity. This tool directly inserts the event into the device's calendar database.",
		InputSchema: ObjectSchema(map[string]*jsonschema.Schema{
			"title": Param("string", "The title of the event"),
			"time": Param("number", "Optional. The start time of the event as a Unix timestamp in milliseconds. "+
				"If omitted, the device will automatically schedule it for tomorrow."),
		}, "title"),
	}
	return def, HandlerFunc(func(ctx context.Context, args map[string]any) (Result, error) {
		title, ok, err := stringArg(args, "title")
		if err != nil {
			return Result{}, err
		}
		if !ok || title == "" {
			title = "New Event"
		}

		start := now().Add(defaultEventLead)
		ms, ok, err := numberArg(args, "time")
		if err != nil {
			return Result{}, err
		}
		if ok {
			if math.IsNaN(ms) || ms < 0 || ms > maxEventMillis {
				return Result{}, fmt.Errorf("argument %q must be a Unix time in milliseconds between 0 and %d, got %v", "time", int64(maxEventMillis), ms)
			}
			start = time.UnixMilli(int64(ms))
		}

		ev, err := events.InsertEvent(ctx, store.Event{
			Title:    title,
			Start:    start,
			End:      start.Add(eventDuration),
			Timezone: start.Location().String(),
		})
		if err != nil {
			return Result{}, fmt.Errorf("insert event: %w", err)
		}
		return Success(fmt.Sprintf("Event created: %s %q at %s", ev.ID, ev.Title, ev.Start.Format(time.RFC3339))), nil
	})
}
