// Package protocol implements the JSON-RPC method table of the kernel,
// independent of the transport that carries the envelopes.
package protocol

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/clawminium/agentkernel/internal/models"
	"github.com/clawminium/agentkernel/internal/tools"
)

// Method names.
const (
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"
	MethodToolsList   = "tools/list"
	MethodToolsCall   = "tools/call"
)

// ToolLister lists tool definitions in registration order.
type ToolLister interface {
	List() []tools.Definition
}

// ToolCaller runs one tool call through the policy engine.
type ToolCaller interface {
	Call(ctx context.Context, req tools.CallRequest) tools.Result
}

// Info identifies the server in the initialize handshake.
type Info struct {
	Name            string
	Version         string
	ProtocolVersion string
	CallTimeout     time.Duration // zero means no per-call deadline
}

type method func(ctx context.Context, req *models.Request) models.Response

// Server dispatches envelopes by method name. It holds no per-request state
// and is safe for concurrent use.
type Server struct {
	info       Info
	tools      ToolLister
	dispatcher ToolCaller
	methods    map[string]method
}

func New(info Info, lister ToolLister, dispatcher ToolCaller) *Server {
	s := &Server{info: info, tools: lister, dispatcher: dispatcher}
	s.methods = map[string]method{
		MethodInitialize:  s.initialize,
		MethodInitialized: s.initialized,
		MethodToolsList:   s.listTools,
		MethodToolsCall:   s.callTool,
	}
	return s
}

// Handle decodes one request and returns its response envelope. Every input,
// including invalid JSON, yields a well-formed envelope.
func (s *Server) Handle(ctx context.Context, body []byte) models.Response {
	var req models.Request
	if err := json.Unmarshal(body, &req); err != nil {
		log.Debug().Err(err).Msg("malformed JSON-RPC request")
		return models.NewError(nil, models.CodeInternalError, "internal error: malformed request")
	}
	if req.Method == "" {
		return models.NewError(req.ID, models.CodeInternalError, "internal error: missing method")
	}

	m, ok := s.methods[req.Method]
	if !ok {
		log.Debug().Str("method", req.Method).Msg("method not found")
		return models.NewError(req.ID, models.CodeMethodNotFound, "method not found: "+req.Method)
	}
	return m(ctx, &req)
}

func (s *Server) initialize(_ context.Context, req *models.Request) models.Response {
	return models.NewResult(req.ID, models.InitializeResult{
		ProtocolVersion: s.info.ProtocolVersion,
		Capabilities:    map[string]any{},
		ServerInfo:      models.ServerInfo{Name: s.info.Name, Version: s.info.Version},
	})
}

// initialized acknowledges the client's one-way notification. The id is
// never echoed, even if a client sent one.
func (s *Server) initialized(_ context.Context, _ *models.Request) models.Response {
	return models.NewResult(nil, struct{}{})
}

type listToolsResult struct {
	Tools []tools.Definition `json:"tools"`
}

func (s *Server) listTools(_ context.Context, req *models.Request) models.Response {
	return models.NewResult(req.ID, listToolsResult{Tools: s.tools.List()})
}

func (s *Server) callTool(ctx context.Context, req *models.Request) models.Response {
	var params models.CallToolParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return models.NewError(req.ID, models.CodeInvalidParams, "invalid params: "+err.Error())
		}
	}
	if params.Name == "" {
		return models.NewError(req.ID, models.CodeInvalidParams, "invalid params: name is required")
	}
	if params.Arguments == nil {
		params.Arguments = map[string]any{}
	}

	if s.info.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.info.CallTimeout)
		defer cancel()
	}

	res := s.dispatcher.Call(ctx, tools.CallRequest{Name: params.Name, Arguments: params.Arguments})
	if res.Failure != nil {
		return models.NewError(req.ID, res.Failure.Code, res.Failure.Message)
	}
	return models.NewResult(req.ID, res.Wire())
}
