package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/clawminium/agentkernel/internal/models"
)

// Protocol handles one JSON-RPC envelope.
type Protocol interface {
	Handle(ctx context.Context, body []byte) models.Response
}

// RPCHandler reads one JSON-RPC request per POST and always answers with an
// envelope.
type RPCHandler struct {
	protocol Protocol
	maxBody  int64
}

func NewRPCHandler(p Protocol, maxBody int64) *RPCHandler {
	return &RPCHandler{protocol: p, maxBody: maxBody}
}

// Handle handles POST on the RPC path and on the discovery paths.
func (h *RPCHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		msg := "internal error: cannot read request"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			msg = "internal error: request body too large"
		}
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("rpc body rejected")
		models.WriteRPC(w, models.NewError(nil, models.CodeInternalError, msg))
		return
	}
	models.WriteRPC(w, h.protocol.Handle(r.Context(), body))
}
