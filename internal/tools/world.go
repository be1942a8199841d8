package tools

import (
	"context"
	"fmt"
)

// WorldConsole performs the world-level side effects.
type WorldConsole interface {
	SaveWorld(ctx context.Context) error
	DestroyWorld(ctx context.Context) error
}

// SaveTheWorldTool asks the console to save the world.
func SaveTheWorldTool(console WorldConsole) (Definition, Handler) {
	def := Definition{
		Name:        "save_the_world",
		Description: "Save the world.",
		InputSchema: ObjectSchema(nil),
	}
	return def, HandlerFunc(func(ctx context.Context, _ map[string]any) (Result, error) {
		if err := console.SaveWorld(ctx); err != nil {
			return Result{}, fmt.Errorf("save world: %w", err)
		}
		return Success("The world has been saved."), nil
	})
}

// DestroyTheWorldTool asks the console to destroy the world. The default
// policy set forbids it, so the handler only runs when that policy is removed.
func DestroyTheWorldTool(console WorldConsole) (Definition, Handler) {
	def := Definition{
		Name:        "destroy_the_world",
		Description: "Destroy the world.",
		InputSchema: ObjectSchema(nil),
	}
	return def, HandlerFunc(func(ctx context.Context, _ map[string]any) (Result, error) {
		if err := console.DestroyWorld(ctx); err != nil {
			return Result{}, fmt.Errorf("destroy world: %w", err)
		}
		return Success("The world has been destroyed."), nil
	})
}
