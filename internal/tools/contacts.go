package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/clawminium/agentkernel/internal/store"
)

// LookupContactTool reads a contact from the store. Its output is what the
// content policies inspect: a name alone is harmless, name plus phone is not.
func LookupContactTool(contacts store.ContactStore) (Definition, Handler) {
	def := Definition{
		Name:        "lookup_contact",
		Description: "Look up a contact in the device address book by name.",
		InputSchema: ObjectSchema(map[string]*jsonschema.Schema{
			"name": Param("string", "The contact's name"),
		}, "name"),
	}
	return def, HandlerFunc(func(ctx context.Context, args map[string]any) (Result, error) {
		name, ok, err := stringArg(args, "name")
		if err != nil {
			return Result{}, err
		}
		if !ok || name == "" {
			return Result{}, fmt.Errorf("argument %q is required", "name")
		}
		c, err := contacts.FindContact(ctx, name)
		if errors.Is(err, store.ErrNotFound) {
			return Success(fmt.Sprintf("No contact named %s.", name)), nil
		}
		if err != nil {
			return Result{}, err
		}
		return Success(fmt.Sprintf("Name: %s, Phone: %s", c.Name, c.Phone)), nil
	})
}
