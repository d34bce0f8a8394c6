package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"compras/internal/auth"
	"compras/internal/log"
	"compras/internal/middleware/ratelimit"
	"compras/internal/middleware/security"
	"compras/internal/middleware/trace"
	"compras/internal/services"
	"compras/internal/websocket"
)

// Pinger reports whether a dependency answers. Used by /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the server routes requests to.
type Deps struct {
	Purchases *services.PurchaseService
	Catalog   *services.CatalogService
	Shopping  *services.ShoppingService
	Reports   *services.ReportService

	Hub     *websocket.Hub
	Auth    *auth.Authenticator
	Limiter *ratelimit.Limiter
	DB      Pinger
	Logger  *log.Logger

	// OriginPatterns are the extra origins allowed to open /ws.
	OriginPatterns []string
}

type Server struct {
	http.Server
	deps Deps

	logger           *log.Logger
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	startedAt        time.Time

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Default(log.ComponentHTTP)
	}
	if deps.Limiter == nil {
		deps.Limiter = ratelimit.NewLimiter(ratelimit.DefaultConfig())
	}

	detector := security.NewDetector()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		deps:             deps,
		logger:           logger,
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(logger, detector.ExtractClientIP),
		startedAt:        time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	if deps.Hub != nil {
		mux.Handle("GET /ws", s.authenticated(true, websocket.HandleWebSocket(deps.Hub, deps.OriginPatterns)))
	}
	mux.Handle("/api/", s.authenticated(false, s.apiRoutes()))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Handler = s.traceMiddleware.Middleware(headers.Middleware(detector.Middleware(mux)))
	return s
}

// authenticated requires a bearer token, then rate limits per owner.
func (s *Server) authenticated(allowQuery bool, next http.Handler) http.Handler {
	if s.deps.Auth == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, r, auth.ErrUnauthorized)
		})
	}
	limited := s.deps.Limiter.Middleware(s.securityDetector.ExtractClientIP, writeRateLimited)(next)
	return s.deps.Auth.Middleware(allowQuery, writeUnauthorized)(withOwnerLogger(limited))
}

// withOwnerLogger adds the owner to the request-scoped logger.
func withOwnerLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := log.FromContext(ctx).With(log.FieldOwnerID, auth.OwnerID(ctx))
		next.ServeHTTP(w, r.WithContext(log.WithLogger(ctx, logger)))
	})
}

func (s *Server) apiRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/purchases", s.handleListPurchases)
	mux.HandleFunc("POST /api/purchases", s.handleCreatePurchase)
	mux.HandleFunc("GET /api/purchases/export.csv", s.handleExportPurchases)
	mux.HandleFunc("GET /api/purchases/{id}", s.handleGetPurchase)
	mux.HandleFunc("PUT /api/purchases/{id}", s.handleUpdatePurchase)
	mux.HandleFunc("DELETE /api/purchases/{id}", s.handleDeletePurchase)

	mux.HandleFunc("GET /api/stores", s.handleListStores)
	mux.HandleFunc("POST /api/stores", s.handleCreateStore)
	mux.HandleFunc("GET /api/stores/map", s.handleStoreMap)
	mux.HandleFunc("GET /api/stores/{id}", s.handleGetStore)
	mux.HandleFunc("PUT /api/stores/{id}", s.handleUpdateStore)
	mux.HandleFunc("DELETE /api/stores/{id}", s.handleDeleteStore)

	mux.HandleFunc("GET /api/products", s.handleListProducts)
	mux.HandleFunc("POST /api/products", s.handleCreateProduct)
	mux.HandleFunc("PUT /api/products/{id}", s.handleUpdateProduct)
	mux.HandleFunc("DELETE /api/products/{id}", s.handleDeleteProduct)

	mux.HandleFunc("GET /api/prices", s.handleListPrices)
	mux.HandleFunc("POST /api/prices", s.handleSavePrice)
	mux.HandleFunc("DELETE /api/prices/{id}", s.handleDeletePrice)

	mux.HandleFunc("GET /api/shopping-list", s.handleListItems)
	mux.HandleFunc("POST /api/shopping-list", s.handleAddItem)
	mux.HandleFunc("DELETE /api/shopping-list", s.handleClearPurchased)
	mux.HandleFunc("PUT /api/shopping-list/{name}", s.handleUpdateItem)
	mux.HandleFunc("DELETE /api/shopping-list/{name}", s.handleDeleteItem)
	mux.HandleFunc("POST /api/shopping-list/{name}/toggle", s.handleToggleItem)

	mux.HandleFunc("GET /api/categories", s.handleCategories)

	mux.HandleFunc("GET /api/reports/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/reports/price-comparison", s.handlePriceComparison)
	mux.HandleFunc("GET /api/reports/category-comparison", s.handleCategoryComparison)
	mux.HandleFunc("GET /api/reports/monthly", s.handleMonthly)
	mux.HandleFunc("GET /api/reports/monthly/{year}/{month}", s.handleMonthDetail)

	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusNotFound, "not found").Write(w)
	})
	return mux
}

// Shutdown gracefully shuts down the server and its rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.deps.Limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
