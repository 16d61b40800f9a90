// Package api assembles the HTTP surface: routes, middleware chain, and
// the metrics and health endpoints.
package api

import (
	"net/http"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riverqueue/river"
	"github.com/rs/zerolog"

	"github.com/openbookings/server/internal/api/handlers"
	"github.com/openbookings/server/internal/api/middleware"
	"github.com/openbookings/server/internal/auth"
	"github.com/openbookings/server/internal/config"
	"github.com/openbookings/server/internal/domain/bookings"
	"github.com/openbookings/server/internal/domain/catalog"
	"github.com/openbookings/server/internal/domain/payments"
	"github.com/openbookings/server/internal/domain/users"
	"github.com/openbookings/server/internal/metrics"
)

// RouterDeps carries everything the router needs. Services are built by
// the serve command so they can share the pool and job client.
type RouterDeps struct {
	Config      config.Config
	Logger      zerolog.Logger
	Pool        *pgxpool.Pool
	RiverClient *river.Client[pgx.Tx]
	Tokens      *auth.JWTManager
	Users       *users.Service
	Catalog     *catalog.Service
	Bookings    *bookings.Service
	Payments    *payments.Service
	Version     string
	GitCommit   string
}

func NewRouter(deps RouterDeps) http.Handler {
	env := deps.Config.Environment

	authHandler := handlers.NewAuthHandler(deps.Users, env)
	eventsHandler := handlers.NewEventsHandler(deps.Catalog, env)
	bookingsHandler := handlers.NewBookingsHandler(deps.Bookings, deps.Payments, env)
	paymentsHandler := handlers.NewPaymentsHandler(deps.Payments, env)
	healthChecker := handlers.NewHealthChecker(deps.Pool, deps.RiverClient, deps.Version, deps.GitCommit)

	requireAuth := middleware.RequireAuth(deps.Tokens, env)
	requireAdmin := middleware.RequireAdmin(env)
	rateLimit := middleware.RateLimit(deps.Config.RateLimit)
	loginTier := middleware.WithRateLimitTierHandler(middleware.TierLogin)
	userTier := middleware.WithRateLimitTierHandler(middleware.TierUser)

	// Tier wrappers run before the limiter so the limiter sees the tier.
	public := func(h http.HandlerFunc) http.Handler {
		return rateLimit(h)
	}
	login := func(h http.HandlerFunc) http.Handler {
		return loginTier(rateLimit(h))
	}
	authed := func(h http.HandlerFunc) http.Handler {
		return requireAuth(userTier(rateLimit(h)))
	}
	adminOnly := func(h http.HandlerFunc) http.Handler {
		return requireAuth(requireAdmin(userTier(rateLimit(h))))
	}

	mux := http.NewServeMux()

	mux.Handle("/healthz", handlers.Healthz())
	mux.Handle("/readyz", handlers.Readyz())
	mux.Handle("/health", healthChecker.Health())
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	mux.Handle("/api/v1/auth/register", methodMux(map[string]http.Handler{
		http.MethodPost: login(authHandler.Register),
	}))
	mux.Handle("/api/v1/auth/login", methodMux(map[string]http.Handler{
		http.MethodPost: login(authHandler.Login),
	}))
	mux.Handle("/api/v1/auth/refresh", methodMux(map[string]http.Handler{
		http.MethodPost: public(authHandler.Refresh),
	}))
	mux.Handle("/api/v1/auth/verify", methodMux(map[string]http.Handler{
		http.MethodPost: public(authHandler.Verify),
	}))

	mux.Handle("/api/v1/events", methodMux(map[string]http.Handler{
		http.MethodGet:  public(eventsHandler.List),
		http.MethodPost: adminOnly(eventsHandler.Create),
	}))
	mux.Handle("/api/v1/events/{id}", methodMux(map[string]http.Handler{
		http.MethodGet:    public(eventsHandler.Get),
		http.MethodPut:    adminOnly(eventsHandler.Update),
		http.MethodDelete: adminOnly(eventsHandler.Delete),
	}))

	mux.Handle("/api/v1/bookings", methodMux(map[string]http.Handler{
		http.MethodGet:  authed(bookingsHandler.List),
		http.MethodPost: authed(bookingsHandler.Create),
	}))
	mux.Handle("/api/v1/bookings/{id}", methodMux(map[string]http.Handler{
		http.MethodGet:    authed(bookingsHandler.Get),
		http.MethodDelete: authed(bookingsHandler.Cancel),
	}))
	mux.Handle("/api/v1/bookings/{id}/payment", methodMux(map[string]http.Handler{
		http.MethodGet: authed(bookingsHandler.PaymentStatus),
	}))

	mux.Handle("/api/v1/payments", methodMux(map[string]http.Handler{
		http.MethodGet:  authed(paymentsHandler.List),
		http.MethodPost: authed(paymentsHandler.Process),
	}))
	mux.Handle("/api/v1/payments/booking/{booking_id}", methodMux(map[string]http.Handler{
		http.MethodGet: authed(paymentsHandler.GetByBooking),
	}))
	// Receipts live on their own prefix: a "/api/v1/payments/{id}/receipt"
	// pattern would conflict with the booking lookup above on ServeMux.
	mux.Handle("/api/v1/receipts/{id}", methodMux(map[string]http.Handler{
		http.MethodGet: authed(paymentsHandler.Receipt),
	}))

	var handler http.Handler = mux
	handler = middleware.PublicRequestSize()(handler)
	handler = middleware.CORS(deps.Config.CORS, deps.Logger)(handler)
	handler = middleware.SecurityHeaders(env == "production")(handler)
	handler = metrics.HTTPMiddleware(handler)
	handler = middleware.RequestLogging(deps.Logger)(handler)
	handler = middleware.CorrelationID(deps.Logger)(handler)

	return handler
}

func methodMux(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := handlers[r.Method]; ok {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", allowedMethods(handlers))
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}

func allowedMethods(handlers map[string]http.Handler) string {
	methods := make([]string, 0, len(handlers))
	for method := range handlers {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
