// Package tools defines the tool registry and the types shared by the
// dispatcher and individual tool implementations.
package tools

import (
	"context"
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

// Definition describes a tool to clients. Immutable once registered.
type Definition struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"inputSchema"`
}

// Handler executes a tool. A returned error is a handler fault; the
// dispatcher turns it into a Failure.
type Handler interface {
	Invoke(ctx context.Context, args map[string]any) (Result, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, args map[string]any) (Result, error)

func (f HandlerFunc) Invoke(ctx context.Context, args map[string]any) (Result, error) {
	return f(ctx, args)
}

// CallRequest is one tools/call invocation.
type CallRequest struct {
	Name      string
	Arguments map[string]any
}

// Content is one block of a successful result. TextContent is the only
// variant today.
type Content interface {
	contentType() string
}

type TextContent struct {
	Text string
}

func (TextContent) contentType() string { return "text" }

func (t TextContent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}{Type: t.contentType(), Text: t.Text})
}

// Failure is the error arm of Result.
type Failure struct {
	Code    int
	Message string
}

// Result is either a Success (Content) or a Failure, never both.
type Result struct {
	Content []Content
	Failure *Failure
}

func (r Result) IsFailure() bool { return r.Failure != nil }

// Text concatenates all text blocks, newline separated.
func (r Result) Text() string {
	var out []byte
	for i, c := range r.Content {
		if t, ok := c.(TextContent); ok {
			if i > 0 {
				out = append(out, '\n')
			}
			out = append(out, t.Text...)
		}
	}
	return string(out)
}

// Success builds a result with a single text block.
func Success(text string) Result {
	return Result{Content: []Content{TextContent{Text: text}}}
}

// Fail builds a failure result.
func Fail(code int, message string) Result {
	return Result{Failure: &Failure{Code: code, Message: message}}
}

// successWire is the wire shape of a successful tools/call result.
type successWire struct {
	Content []Content `json:"content"`
}

// Wire returns the value encoded as the JSON-RPC result of a successful call.
func (r Result) Wire() any {
	content := r.Content
	if content == nil {
		content = []Content{}
	}
	return successWire{Content: content}
}
