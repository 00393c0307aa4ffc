package httpserver

import (
	"net/http"

	"log/slog"

	"tiendacore/internal/auth"
	"tiendacore/internal/httpx"
	"tiendacore/internal/products"
	"tiendacore/internal/users"
)

type RouterConfig struct {
	Logger       *slog.Logger
	AuthService  *auth.Service
	UserStore    auth.UserStore
	ProductStore products.ProductStore
	StaticDir    string
	RateLimit    int
}

// NewRouter wires every route through its guard chain. Authentication runs
// before authorization on every protected route, so a missing token is
// always 401 and a wrong role is always 403.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	secured := auth.JWTMiddleware(cfg.AuthService)
	adminOnly := func(h http.HandlerFunc) http.Handler {
		return secured(auth.RequireRole(h, auth.RoleAdmin))
	}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Auth
	authHandler := &auth.Handler{
		Svc:    cfg.AuthService,
		Store:  cfg.UserStore,
		Logger: cfg.Logger,
	}
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.Handle("GET /api/auth/me", secured(http.HandlerFunc(authHandler.Me)))

	// Users: admin-only on every verb.
	userHandler := &users.Handler{
		Store:  cfg.UserStore,
		Logger: cfg.Logger,
	}
	mux.Handle("GET /api/users", adminOnly(userHandler.List))
	mux.Handle("POST /api/users", adminOnly(userHandler.Create))
	mux.Handle("GET /api/users/{id}", adminOnly(userHandler.Get))
	mux.Handle("PUT /api/users/{id}", adminOnly(userHandler.Update))
	mux.Handle("DELETE /api/users/{id}", adminOnly(userHandler.Delete))

	// Products: public reads, admin writes.
	productHandler := &products.Handler{
		Store:  cfg.ProductStore,
		Logger: cfg.Logger,
	}
	mux.HandleFunc("GET /api/products", productHandler.List)
	mux.HandleFunc("GET /api/products/{id}", productHandler.Get)
	mux.Handle("POST /api/products", adminOnly(productHandler.Create))
	mux.Handle("PUT /api/products/{id}", adminOnly(productHandler.Update))
	mux.Handle("DELETE /api/products/{id}", adminOnly(productHandler.Delete))

	// Unknown API routes answer JSON, not the SPA fallback.
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		httpx.Error(w, http.StatusNotFound, "route not found")
	})

	if cfg.StaticDir != "" {
		mux.Handle("/", spaHandler(cfg.StaticDir))
	}

	var handler http.Handler = mux
	handler = withRequestLog(cfg.Logger, handler)
	if cfg.RateLimit > 0 {
		handler = withRateLimit(cfg.RateLimit, handler)
	}
	handler = withCORS(handler)
	handler = withSecurityHeaders(handler)
	handler = withRecover(cfg.Logger, handler)
	return handler
}
