package handler

import (
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
)

// DiscoveryHandler serves the event stream that tells a client where to POST
// its RPC requests. Each connection is one session: one endpoint event, then
// keepalive comments until the client goes away.
type DiscoveryHandler struct {
	rpcPath      string
	fallbackHost string
	keepAlive    time.Duration
	active       atomic.Int64
}

func NewDiscoveryHandler(rpcPath, fallbackHost string, keepAlive time.Duration) *DiscoveryHandler {
	return &DiscoveryHandler{rpcPath: rpcPath, fallbackHost: fallbackHost, keepAlive: keepAlive}
}

// Sessions is the number of open discovery streams.
func (h *DiscoveryHandler) Sessions() int64 {
	return h.active.Load()
}

// Stream handles GET on the discovery path.
func (h *DiscoveryHandler) Stream(w http.ResponseWriter, r *http.Request) {
	session := ulid.Make().String()
	endpoint := EndpointURL(r, h.rpcPath, h.fallbackHost)
	logger := log.With().Str("session", session).Str("remote_addr", r.RemoteAddr).Logger()

	rc := http.NewResponseController(w)
	// The stream outlives the server's write timeout.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		logger.Debug().Err(err).Msg("cannot clear write deadline")
	}

	hdr := w.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	hdr.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if _, err := fmt.Fprintf(w, "event: endpoint\ndata: %s\n\n", endpoint); err != nil {
		logger.Debug().Err(err).Msg("discovery write failed")
		return
	}
	if err := rc.Flush(); err != nil {
		logger.Warn().Err(err).Msg("discovery stream cannot flush")
		return
	}

	h.active.Add(1)
	defer h.active.Add(-1)
	opened := time.Now()
	logger.Info().Str("endpoint", endpoint).Msg("discovery session opened")
	defer func() {
		logger.Info().Dur("duration", time.Since(opened)).Msg("discovery session closed")
	}()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				logger.Debug().Err(err).Msg("keepalive write failed")
				return
			}
			if err := rc.Flush(); err != nil {
				logger.Debug().Err(err).Msg("keepalive flush failed")
				return
			}
		}
	}
}

// EndpointURL builds the absolute RPC URL as the client reached us:
// X-Forwarded-Host, then Host, then fallbackHost; the scheme follows
// X-Forwarded-Proto or the connection's TLS state.
func EndpointURL(r *http.Request, rpcPath, fallbackHost string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := firstValue(r.Header.Get("X-Forwarded-Proto")); p == "http" || p == "https" {
		scheme = p
	}

	host := firstValue(r.Header.Get("X-Forwarded-Host"))
	if host == "" {
		host = r.Host
	}
	if host == "" {
		host = fallbackHost
	}
	return scheme + "://" + host + rpcPath
}

// firstValue returns the first entry of a comma separated header value.
func firstValue(v string) string {
	first, _, _ := strings.Cut(v, ",")
	return strings.ToLower(strings.TrimSpace(first))
}
