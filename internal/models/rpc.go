package models

import (
	"encoding/json"
	"fmt"
)

const JSONRPCVersion = "2.0"

// Standard JSON-RPC 2.0 codes.
const (
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Application codes, reserved in the -32000..-32099 server range.
const (
	CodePolicyBlocked = -32000
	CodeToolExecution = -32001
	CodeToolNotFound  = -32002
	CodeToolTimeout   = -32003
)

// Request is a single JSON-RPC 2.0 request or notification.
// ID stays raw so it can be echoed verbatim whatever its JSON type.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request carried no id.
func (r *Request) IsNotification() bool {
	return len(r.ID) == 0
}

// Response carries exactly one of Result or Error. ID is omitted iff the
// request had none.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func NewResult(id json.RawMessage, result any) Response {
	if result == nil {
		result = struct{}{}
	}
	return Response{JSONRPC: JSONRPCVersion, ID: id, Result: result}
}

func NewError(id json.RawMessage, code int, message string) Response {
	return Response{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error:   &RPCError{Code: code, Message: message},
	}
}

// ─── Method payloads ─────────────────────────────────────────────────────────

type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type InitializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ServerInfo      ServerInfo     `json:"serverInfo"`
}

// CallToolParams is the params object of tools/call.
type CallToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}
