package tools

import (
	"time"

	"github.com/clawminium/agentkernel/internal/store"
)

// RegisterBuiltins registers the kernel's tools in their listing order.
func RegisterBuiltins(r *Registry, st store.Store, console WorldConsole) error {
	builtins := []func() (Definition, Handler){
		func() (Definition, Handler) { return CreateCalendarEventTool(st, time.Now) },
		func() (Definition, Handler) { return SaveTheWorldTool(console) },
		func() (Definition, Handler) { return DestroyTheWorldTool(console) },
		func() (Definition, Handler) { return LookupContactTool(st) },
	}
	for _, b := range builtins {
		def, h := b()
		if err := r.Register(def, h); err != nil {
			return err
		}
	}
	return nil
}
