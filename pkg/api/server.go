package api

import (
	"context"
	"io"
	"net/http"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/vaultgate/vaultgate/pkg/auth"
	"github.com/vaultgate/vaultgate/pkg/billing"
	"github.com/vaultgate/vaultgate/pkg/entitlement"
	"github.com/vaultgate/vaultgate/pkg/httputil"
	"github.com/vaultgate/vaultgate/pkg/middleware"
	"github.com/vaultgate/vaultgate/pkg/observability"
	"github.com/vaultgate/vaultgate/pkg/teams"
	"github.com/vaultgate/vaultgate/pkg/tiers"
)

// Orchestrator is the operation surface the API exposes. It is implemented
// by *billing.Orchestrator.
type Orchestrator interface {
	Signup(ctx context.Context, req billing.SignupRequest) (*billing.SignupResult, error)
	VerifyEmail(ctx context.Context, uid string) error

	Plan(ctx context.Context, principal *auth.Principal) (*billing.PlanInfo, error)
	Invoices(ctx context.Context, principal *auth.Principal) ([]entitlement.Invoice, error)
	Limits(ctx context.Context, principal *auth.Principal) (*billing.LimitsInfo, error)
	AddOnPrices(ctx context.Context, principal *auth.Principal) (int64, error)
	SwitchTier(ctx context.Context, principal *auth.Principal, targetTierID int64) (*billing.PlanInfo, error)
	PurchaseAddOn(ctx context.Context, principal *auth.Principal, extraUsers int) (*entitlement.Entitlement, error)
	Cancel(ctx context.Context, principal *auth.Principal) (*billing.PlanInfo, error)
	HandleCheckoutEvent(ctx context.Context, payload []byte, signature string) error

	Team(ctx context.Context, principal *auth.Principal) (*billing.TeamInfo, error)
	Profile(ctx context.Context, principal *auth.Principal) (*teams.Profile, error)
	InviteUser(ctx context.Context, principal *auth.Principal, email string) (*teams.Invite, error)
	InviteCollaborator(ctx context.Context, principal *auth.Principal, email string) (*teams.Invite, error)

	Projects(ctx context.Context, principal *auth.Principal) ([]*teams.Project, error)
	CreateProject(ctx context.Context, principal *auth.Principal, name string, payload io.Reader) (*teams.Project, error)
	UploadProject(ctx context.Context, principal *auth.Principal, projectUID string, payload io.Reader) (*teams.Project, error)
}

// ServerConfig wires the API server's dependencies
type ServerConfig struct {
	Orchestrator   Orchestrator
	Catalog        *tiers.Catalog
	Authenticator  middleware.TokenAuthenticator
	Redis          *redis.Client
	Logger         *observability.Logger
	Metrics        *observability.Metrics
	MaxUploadBytes int64
}

// Server is the HTTP API. It owns the router and route-group middleware;
// process-level concerns (listeners, shutdown) live in cmd.
type Server struct {
	router         *mux.Router
	orchestrator   Orchestrator
	catalog        *tiers.Catalog
	logger         *observability.Logger
	maxUploadBytes int64
}

// NewServer creates the API server and registers all routes
func NewServer(cfg ServerConfig) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 100 << 20
	}
	s := &Server{
		router:         mux.NewRouter().StrictSlash(true),
		orchestrator:   cfg.Orchestrator,
		catalog:        cfg.Catalog,
		logger:         cfg.Logger,
		maxUploadBytes: cfg.MaxUploadBytes,
	}
	s.setupRoutes(cfg)
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes(cfg ServerConfig) {
	base := []func(http.Handler) http.Handler{
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(cfg.Logger, cfg.Metrics),
		httputil.RecoveryMiddleware(cfg.Logger),
	}
	if cfg.Redis != nil {
		base = append(base, middleware.RateLimit(cfg.Redis, cfg.Logger))
	}
	public := httputil.Chain(base...)
	authed := httputil.Chain(append(base, middleware.Authentication(cfg.Authenticator))...)
	memberOnly := httputil.Chain(append(base,
		middleware.Authentication(cfg.Authenticator),
		middleware.BlockCollaborators,
	)...)
	upload := httputil.Chain(append(base,
		middleware.Authentication(cfg.Authenticator),
		httputil.MaxBytesMiddleware(s.maxUploadBytes),
	)...)

	route := func(path string, mw func(http.Handler) http.Handler, handler http.HandlerFunc) *mux.Route {
		return s.router.Handle(path, mw(handler))
	}

	// Account
	route("/user", public, s.signup).Methods("POST")
	route("/user", authed, s.getProfile).Methods("GET")
	route("/user/verify_email/{uid}", public, s.verifyEmail).Methods("GET")
	route("/user/invite", memberOnly, s.inviteUser).Methods("POST")
	route("/user/invite/collaborator", memberOnly, s.inviteCollaborator).Methods("POST")

	// Tier catalog
	route("/tier", public, s.listTiers).Methods("GET")
	route("/tier/{id}", public, s.getTier).Methods("GET")

	// Billing
	route("/billing/plan", memberOnly, s.getPlan).Methods("GET")
	route("/billing/plan", memberOnly, s.switchTier).Methods("POST")
	route("/billing/invoices", memberOnly, s.listInvoices).Methods("GET")
	route("/billing/limits", memberOnly, s.getLimits).Methods("GET")
	route("/billing/addon-prices", memberOnly, s.getAddOnPrices).Methods("GET")
	route("/billing/addon", memberOnly, s.purchaseAddOn).Methods("POST")
	route("/billing/cancel", memberOnly, s.cancelSubscription).Methods("POST")
	route("/billing/webhook", public, s.handleWebhook).Methods("POST")

	// Team
	route("/team", memberOnly, s.getTeam).Methods("GET")

	// Projects. Listing stays open to collaborators; creation is guarded by
	// the orchestrator's role check.
	route("/project", authed, s.listProjects).Methods("GET")
	route("/project", authed, s.createProject).Methods("POST")
	route("/project/{uid}", upload, s.uploadProject).Methods("PUT")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the server wrapped with OpenTelemetry instrumentation
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s, "vaultgate.api")
}
