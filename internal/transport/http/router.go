package httptransport

import (
	"expvar"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"holdem-tables/internal/app/lobby"
	"holdem-tables/internal/config"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// Deps are the services the router exposes. MCP and WS may be nil.
type Deps struct {
	Lobby   *lobby.Service
	Store   AdminStore
	Limiter *ClientLimiter
	MCP     http.Handler
	WS      http.Handler
}

func NewRouter(cfg config.ServerConfig, deps Deps) *chi.Mux {
	tables := NewTableHandlers(deps.Lobby)
	adminHandlers := NewAdminHandlers(deps.Store)
	limiter := deps.Limiter
	if limiter == nil {
		limiter = NewClientLimiter(cfg.RateLimitPerSec, cfg.RateLimitBurst)
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", adminHandlers.Health())
	if deps.MCP != nil {
		r.With(APILogMiddleware()).MethodFunc(http.MethodOptions, "/mcp", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Allow", "POST, GET, DELETE, OPTIONS")
			w.WriteHeader(http.StatusNoContent)
		})
		r.With(APILogMiddleware(), RateLimitMiddleware(limiter)).Method(http.MethodPost, "/mcp", deps.MCP)
		r.With(APILogMiddleware()).Method(http.MethodGet, "/mcp", deps.MCP)
		r.With(APILogMiddleware()).Method(http.MethodDelete, "/mcp", deps.MCP)
	}
	if deps.WS != nil {
		r.With(RateLimitMiddleware(limiter)).Method(http.MethodGet, "/ws", deps.WS)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())
		r.Use(IdentityMiddleware)

		r.Get("/tables", tables.List())
		r.Get("/tables/{table_id}/state", tables.State())
		r.Get("/tables/{table_id}/events", EventsSSEHandler(deps.Lobby))

		r.Group(func(r chi.Router) {
			r.Use(RequireIdentity)
			r.Use(RateLimitMiddleware(limiter))
			r.Get("/me", tables.Wallet())
			r.Post("/tables/{table_id}/players", tables.StartPlaying())
			r.Delete("/tables/{table_id}/players/me", tables.StartSpectating())
			r.Post("/tables/{table_id}/actions", tables.Act())
		})

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(cfg.AdminAPIKey))
			r.Get("/admin/ledger", adminHandlers.Ledger())

			r.Route("/debug", func(r chi.Router) {
				r.Use(BodyCaptureMiddleware(4096))
				r.Get("/vars", expvar.Handler().ServeHTTP)
			})
		})
	})
	return r
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 64)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}
