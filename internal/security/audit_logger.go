package security

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Tool call outcomes recorded in the audit log.
const (
	OutcomeOK       = "ok"
	OutcomeBlocked  = "blocked"
	OutcomeFailed   = "failed"
	OutcomeTimeout  = "timeout"
	OutcomeNotFound = "not_found"
)

// ToolCallRecord is one audited tool invocation.
type ToolCallRecord struct {
	RequestID string
	Tool      string
	Arguments map[string]any
	Outcome   string
	Stage     string // "call" or "result" when blocked
	Policy    string
	Code      int
	Duration  time.Duration
}

// AuditLogger logs tool calls with hashed arguments and a masked preview.
type AuditLogger struct {
	enabled bool
	masker  *DataMasker
}

func NewAuditLogger(enabled bool, masker *DataMasker) *AuditLogger {
	if masker == nil {
		masker = NewDataMasker(nil)
	}
	return &AuditLogger{enabled: enabled, masker: masker}
}

// Enabled reports whether records are written.
func (a *AuditLogger) Enabled() bool { return a != nil && a.enabled }

// LogToolCall records a tool invocation and how it ended.
func (a *AuditLogger) LogToolCall(rec ToolCallRecord) {
	if !a.Enabled() {
		return
	}
	raw, _ := json.Marshal(rec.Arguments)

	evt := log.Info()
	if rec.Outcome == OutcomeBlocked {
		evt = log.Warn()
	}
	evt = evt.
		Str("event", "tool_audit").
		Str("tool", rec.Tool).
		Str("outcome", rec.Outcome).
		Str("args_hash", hashStr(string(raw))[:16]).
		Interface("args", a.masker.MaskArguments(rec.Arguments)).
		Int64("duration_ms", rec.Duration.Milliseconds())

	if rec.RequestID != "" {
		evt = evt.Str("request_id", rec.RequestID)
	}
	if rec.Policy != "" {
		evt = evt.Str("policy", rec.Policy).Str("stage", rec.Stage)
	}
	if rec.Code != 0 {
		evt = evt.Int("code", rec.Code)
	}
	evt.Msg("audit")
}

func hashStr(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h)
}
