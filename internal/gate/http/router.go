package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/bitshala/guildgate/internal/gate/service"
	"github.com/bitshala/guildgate/internal/gate/store"
	"github.com/bitshala/guildgate/pkg/httpx"
	"github.com/bitshala/guildgate/pkg/slogx"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	IssuerService       *service.IssuerService
	RedemptionService   *service.RedemptionService
	HousekeepingService *service.HousekeepingService
	Provider            service.Provider

	// CompletionURL is where the user lands after a successful redemption,
	// typically a permanent guild invite link.
	CompletionURL string
	// CallbackPath is the provider redirect target, e.g. /bot/callback.
	CallbackPath string
	// AdminPageSize bounds GET /admin/tokens.
	AdminPageSize int
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:           http.NewServeMux(),
		buildVersion:  buildVersion,
		startTime:     time.Now(),
		logger:        logger,
		store:         st,
		CallbackPath:  "/bot/callback",
		AdminPageSize: 50,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	inviteHandler := &InviteHandler{
		IssuerService: r.IssuerService,
		Provider:      r.Provider,
	}
	r.Mux.Handle("GET /invite/{role}",
		httpx.Chain(inviteHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	registerHandler := &RegisterHandler{IssuerService: r.IssuerService}
	r.Mux.Handle("POST /bot/invite",
		httpx.Chain(registerHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	callbackHandler := &CallbackHandler{
		RedemptionService: r.RedemptionService,
		CompletionURL:     r.CompletionURL,
	}
	r.Mux.Handle("GET "+r.CallbackPath,
		httpx.Chain(callbackHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("GET /cleanup",
		httpx.Chain(&CleanupHandler{Housekeeping: r.HousekeepingService},
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	r.Mux.Handle("GET /health",
		httpx.Chain(HealthHandler(r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	r.Mux.Handle("GET /admin/tokens",
		httpx.Chain(&AdminTokensHandler{Store: r.store, PageSize: r.AdminPageSize},
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	r.Mux.Handle("GET /metrics", promhttp.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}
