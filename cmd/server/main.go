package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"Ziyarawebserver/internal/auth"
	"Ziyarawebserver/internal/config"
	"Ziyarawebserver/internal/email"
	"Ziyarawebserver/internal/httpapi"
	"Ziyarawebserver/internal/metrics"
	"Ziyarawebserver/internal/service"
	"Ziyarawebserver/internal/store/postgres"
)

func main() {
	migrateOnly := flag.Bool("migrate", false, "apply pending migrations and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	logger := newLogger(cfg)

	if *migrateOnly {
		if cfg.DBDSN == "" {
			logger.Error("migrate requires APP_DB_DSN")
			os.Exit(1)
		}
		if err := postgres.Migrate(cfg.DBDSN); err != nil {
			logger.Error("migrate failed", "err", err)
			os.Exit(1)
		}
		logger.Info("migrations applied")
		return
	}

	if cfg.DBDSN == "" {
		logger.Error("APP_DB_DSN is required")
		os.Exit(1)
	}

	pool, err := postgres.Open(context.Background(), cfg.DBDSN)
	if err != nil {
		logger.Error("db open failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	db := postgres.NewDB(pool)

	peppers, err := auth.DerivePeppers(cfg.TokenPepper)
	if err != nil {
		logger.Error("derive peppers failed", "err", err)
		os.Exit(1)
	}

	tokens := &auth.TokenService{
		Secret:     []byte(cfg.JWTSecret),
		Issuer:     cfg.JWTIssuer,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
	}
	validator := &auth.OAuthValidator{GoogleClientID: cfg.GoogleClientID}

	mailer := &service.EmailService{
		Client: &email.Client{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			TLSMode:  cfg.SMTPTLSMode,
		},
		FromName:     cfg.SMTPFromName,
		FromEmail:    cfg.SMTPFrom,
		FrontendBase: cfg.FrontendBase(),
	}

	stores := serviceStores(db.Stores)
	tx := &txRunner{db: db}

	authSvc := &service.AuthService{
		Validator:            validator,
		Tokens:               tokens,
		Peppers:              peppers,
		Mailer:               mailer,
		Store:                stores,
		Tx:                   tx,
		MagicLinkTTL:         cfg.MagicLinkTTL,
		MagicLinkRatePerHour: cfg.MagicLinkRatePerHour,
		RefreshTTL:           cfg.RefreshTTL,
		DevLoginEnabled:      cfg.DevLoginEnabled(),
	}
	userSvc := &service.UserService{
		Store:                  stores,
		Tx:                     tx,
		Tours:                  db.Tours,
		Peppers:                peppers,
		Mailer:                 mailer,
		EmailChangeTTL:         cfg.EmailChangeTTL,
		EmailChangeRatePerHour: cfg.EmailChangeRatePerHour,
	}
	tourSvc := &service.TourService{Tours: db.Tours}
	operatorSvc := &service.OperatorService{Operators: db.Operators}

	m := metrics.New()

	go tokenSweeper(context.Background(), logger, authSvc)

	router := httpapi.NewRouter(httpapi.RouterOpts{
		Logger:        logger,
		IsProd:        cfg.IsProd(),
		DBPing:        pool.Ping,
		Auth:          authSvc,
		Users:         userSvc,
		Tours:         tourSvc,
		Operators:     operatorSvc,
		Verifier:      tokens,
		Metrics:       m,
		DevLoginEmail: cfg.DevLoginEmail,
		DevLogin:      cfg.DevLoginEnabled(),
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "env", cfg.Env, "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}
}

// tokenSweeper periodically drops expired single-use tokens.
func tokenSweeper(ctx context.Context, logger *slog.Logger, authSvc *service.AuthService) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := authSvc.CleanupExpired(ctx)
			if err != nil {
				logger.Error("token sweep failed", "err", err)
				continue
			}
			if n > 0 {
				logger.Info("token sweep", "deleted", n)
			}
		}
	}
}

// serviceStores adapts the postgres bundle to the service layer's interfaces.
func serviceStores(s *postgres.Stores) service.Stores {
	return service.Stores{
		Users:         s.Users,
		Identities:    s.Identities,
		MagicLinks:    s.MagicLinks,
		RefreshTokens: s.RefreshTokens,
		EmailChanges:  s.EmailChanges,
	}
}

type txRunner struct {
	db *postgres.DB
}

func (r *txRunner) InTx(ctx context.Context, fn func(service.Stores) error) error {
	return r.db.InTx(ctx, func(s *postgres.Stores) error {
		return fn(serviceStores(s))
	})
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsProd() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
