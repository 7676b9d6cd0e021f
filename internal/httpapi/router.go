package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"Ziyarawebserver/internal/metrics"
	"Ziyarawebserver/internal/service"
)

type RouterOpts struct {
	Logger *slog.Logger
	IsProd bool

	DBPing func(context.Context) error

	Auth      *service.AuthService
	Users     *service.UserService
	Tours     *service.TourService
	Operators *service.OperatorService

	Verifier AccessVerifier
	Metrics  *metrics.Metrics

	// DevLoginEmail is the default address for the dev login endpoint.
	DevLoginEmail string
	DevLogin      bool
}

func NewRouter(opts RouterOpts) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &api{
		logger:        logger,
		isProd:        opts.IsProd,
		dbPing:        opts.DBPing,
		authSvc:       opts.Auth,
		userSvc:       opts.Users,
		tourSvc:       opts.Tours,
		operatorSvc:   opts.Operators,
		verifier:      opts.Verifier,
		metrics:       opts.Metrics,
		devLoginEmail: opts.DevLoginEmail,
		startLimiter:  newIPLimiter(),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", a.handleHealthz)
	if a.metrics != nil {
		mux.Handle("GET /metrics", a.metrics.Handler())
	}

	mux.HandleFunc("POST /v1/auth/oauth", a.handleOAuthExchange)
	mux.HandleFunc("POST /v1/auth/magic/start", a.handleMagicStart)
	mux.HandleFunc("POST /v1/auth/magic/verify", a.handleMagicVerify)
	mux.HandleFunc("POST /v1/auth/refresh", a.handleRefresh)
	mux.HandleFunc("POST /v1/auth/logout", a.handleLogout)
	mux.HandleFunc("POST /v1/auth/logout/all", a.requireAuth(a.handleLogoutAll))
	if opts.DevLogin {
		mux.HandleFunc("POST /v1/auth/dev", a.handleDevLogin)
	}

	mux.HandleFunc("GET /v1/users/me", a.requireAuth(a.handleMe))
	mux.HandleFunc("PATCH /v1/users/me", a.requireAuth(a.handleMeUpdate))
	mux.HandleFunc("DELETE /v1/users/me", a.requireAuth(a.handleMeDelete))

	mux.HandleFunc("GET /v1/users/me/favorites", a.requireAuth(a.handleFavoritesList))
	mux.HandleFunc("POST /v1/users/me/favorites", a.requireAuth(a.handleFavoriteAdd))
	mux.HandleFunc("DELETE /v1/users/me/favorites/{id}", a.requireAuth(a.handleFavoriteRemove))
	mux.HandleFunc("POST /v1/users/me/favorites/merge", a.requireAuth(a.handleFavoritesMerge))

	mux.HandleFunc("GET /v1/users/me/comparisons", a.requireAuth(a.handleComparisonsList))
	mux.HandleFunc("POST /v1/users/me/comparisons", a.requireAuth(a.handleComparisonAdd))
	mux.HandleFunc("DELETE /v1/users/me/comparisons/{id}", a.requireAuth(a.handleComparisonRemove))
	mux.HandleFunc("POST /v1/users/me/comparisons/merge", a.requireAuth(a.handleComparisonsMerge))

	mux.HandleFunc("POST /v1/users/me/email", a.requireAuth(a.handleEmailChangeStart))
	mux.HandleFunc("POST /v1/users/email/confirm", a.handleEmailChangeConfirm)

	mux.HandleFunc("GET /v1/tours", a.handleToursSearch)
	mux.HandleFunc("POST /v1/tours/lookup", a.handleToursLookup)
	mux.HandleFunc("GET /v1/tours/aggregates", a.handleTourAggregates)
	mux.HandleFunc("GET /v1/tours/types", a.handleTourTypes)
	mux.HandleFunc("GET /v1/tours/tariffs", a.handleTariffs)
	mux.HandleFunc("GET /v1/tours/departure-cities", a.handleDepartureCities)

	mux.HandleFunc("GET /v1/operators", a.handleOperatorsList)
	mux.HandleFunc("GET /v1/operators/{id}", a.handleOperatorGet)

	var h http.Handler = mux
	h = Instrument(opts.Metrics)(h)
	h = RequestLogger(logger)(h)
	h = RequestID()(h)
	h = Recoverer(logger, opts.IsProd)(h)
	return h
}

type api struct {
	logger *slog.Logger
	isProd bool

	dbPing func(context.Context) error

	authSvc     *service.AuthService
	userSvc     *service.UserService
	tourSvc     *service.TourService
	operatorSvc *service.OperatorService

	verifier      AccessVerifier
	metrics       *metrics.Metrics
	devLoginEmail string

	startLimiter *ipLimiter
}

func (a *api) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if a.dbPing != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()
		if err := a.dbPing(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db down"))
			return
		}
	}

	_, _ = w.Write([]byte("ok"))
}
