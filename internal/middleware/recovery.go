package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog/log"

	"github.com/clawminium/agentkernel/internal/models"
)

// Recovery turns a handler panic into a JSON-RPC internal-error envelope so
// clients never see a dropped connection or a stack trace.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}
			log.Error().
				Interface("panic", rec).
				Str("stack", string(debug.Stack())).
				Str("path", r.URL.Path).
				Msg("panic recovered")
			models.WriteJSON(w, http.StatusInternalServerError,
				models.NewError(nil, models.CodeInternalError, "internal error"))
		}()
		next.ServeHTTP(w, r)
	})
}
