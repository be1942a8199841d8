package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/clawminium/agentkernel/internal/alert"
	"github.com/clawminium/agentkernel/internal/dispatch"
	"github.com/clawminium/agentkernel/internal/handler"
	"github.com/clawminium/agentkernel/internal/middleware"
	"github.com/clawminium/agentkernel/internal/policy"
	"github.com/clawminium/agentkernel/internal/protocol"
	"github.com/clawminium/agentkernel/internal/security"
	"github.com/clawminium/agentkernel/internal/service"
	"github.com/clawminium/agentkernel/internal/store"
	"github.com/clawminium/agentkernel/internal/tools"
)

func (s *Server) setupRoutes() (http.Handler, error) {
	cfg := s.cfg
	checks := map[string]handler.HealthChecker{}

	// ─── Store ──────────────────────────────────────────────────────────────────
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("postgres unavailable - using in-memory store")
		} else {
			s.store = pg
			checks["store"] = pg
		}
	}
	if s.store == nil {
		s.store = store.NewMemory(store.DemoContacts()...)
	}

	// ─── Tools ──────────────────────────────────────────────────────────────────
	console := service.NewWorldConsole(cfg.ConsoleURL, nil)
	if cfg.ConsoleURL != "" {
		checks["console"] = console
	}
	registry := tools.NewRegistry()
	if err := tools.RegisterBuiltins(registry, s.store, console); err != nil {
		return nil, err
	}

	// ─── Alerts ─────────────────────────────────────────────────────────────────
	sinks := alert.MultiSink{alert.LogSink{}}
	if cfg.AlertWebhookURL != "" {
		sinks = append(sinks, alert.NewWebhookSink(cfg.AlertWebhookURL, nil))
	}
	if cfg.ElasticsearchEnabled {
		es, err := alert.NewElasticsearchSink(alert.ElasticsearchConfig{
			Scheme:      cfg.ElasticsearchScheme,
			Host:        cfg.ElasticsearchHost,
			Port:        cfg.ElasticsearchPort,
			User:        cfg.ElasticsearchUser,
			Password:    cfg.ElasticsearchPassword,
			VerifyCerts: cfg.ElasticsearchVerifyCerts,
			MaxRetries:  cfg.ElasticsearchMaxRetries,
			Index:       cfg.ElasticsearchAlertIndex,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Elasticsearch alert sink unavailable")
		} else {
			sinks = append(sinks, es)
			checks["elasticsearch"] = es
		}
	}
	s.notifier = alert.NewNotifier(sinks, alert.NotifierConfig{
		QueueSize:  cfg.AlertQueueSize,
		Workers:    cfg.AlertWorkers,
		MaxRetries: uint64(max(cfg.AlertMaxRetries, 0)),
		Timeout:    time.Duration(cfg.AlertTimeout) * time.Second,
	})

	// ─── Policies ───────────────────────────────────────────────────────────────
	engine := policy.NewEngine(s.notifier)
	if cfg.PolicyFile != "" {
		w, err := policy.NewWatcher(cfg.PolicyFile, engine, registry)
		if err != nil {
			return nil, err
		}
		if cfg.WatchPolicies {
			if err := w.Start(); err != nil {
				return nil, err
			}
			s.watcher = w
		}
	} else {
		defaults, err := policy.Build(policy.DefaultSpecs(), registry)
		if err != nil {
			return nil, err
		}
		engine.Replace(defaults)
	}

	audit := security.NewAuditLogger(cfg.EnableAuditLogging, security.NewDataMasker(nil))
	dispatcher := dispatch.New(registry, engine, audit)
	proto := protocol.New(protocol.Info{
		Name:            cfg.ServerName,
		Version:         cfg.ServerVersion,
		ProtocolVersion: cfg.ProtocolVersion,
		CallTimeout:     cfg.ToolCallDeadline(),
	}, registry, dispatcher)

	log.Info().
		Int("tools", registry.Len()).
		Int("policies", engine.Len()).
		Int("alert_sinks", len(sinks)).
		Bool("auth_enabled", cfg.EnableAuth && len(cfg.APIKeys) > 0).
		Bool("audit_logging", cfg.EnableAuditLogging).
		Str("policy_file", cfg.PolicyFile).
		Msg("kernel configuration")

	if cfg.EnableAuth && len(cfg.APIKeys) == 0 {
		log.Warn().Msg("WARNING: auth enabled but no API keys configured - all RPC requests will be rejected")
	}

	// ─── Handlers ───────────────────────────────────────────────────────────────
	discoveryH := handler.NewDiscoveryHandler(cfg.RPCPath, cfg.AdvertiseHost, cfg.KeepAlive())
	rpcH := handler.NewRPCHandler(proto, cfg.MaxBodyBytes)
	healthH := handler.NewHealthHandler(cfg.ServerVersion, registry, engine, discoveryH.Sessions, checks)

	// ─── Router ─────────────────────────────────────────────────────────────────
	r := chi.NewRouter()

	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins)))
	r.Use(chiMiddleware.RealIP)

	r.Get("/health", healthH.Health)
	r.Get("/", healthH.Health)

	s.limiter = middleware.NewRateLimiter(cfg.RateLimitPerMinute)
	apiMiddleware := []func(http.Handler) http.Handler{
		middleware.RateLimit(s.limiter, cfg.APIKeyHeader),
	}
	if cfg.EnableAuth {
		apiMiddleware = append(apiMiddleware, middleware.Auth(cfg.APIKeys, cfg.APIKeyHeader, "/", "/health"))
	}

	r.Group(func(r chi.Router) {
		for _, m := range apiMiddleware {
			r.Use(m)
		}

		discoveryPaths := uniquePaths(cfg.DiscoveryPath, cfg.LegacyPath)
		for _, p := range discoveryPaths {
			r.Get(p, discoveryH.Stream)
		}
		// Older clients POST to where they discovered.
		for _, p := range uniquePaths(append([]string{cfg.RPCPath}, discoveryPaths...)...) {
			r.Post(p, rpcH.Handle)
		}
	})

	return r, nil
}

// uniquePaths drops empty and repeated paths, keeping order.
func uniquePaths(paths ...string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
