package main

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/simedi/gateway/internal/config"
	"github.com/simedi/gateway/internal/domain/prescription"
	"github.com/simedi/gateway/internal/domain/vaccination"
	"github.com/simedi/gateway/internal/platform/audit"
	"github.com/simedi/gateway/internal/platform/auth"
	"github.com/simedi/gateway/internal/platform/db"
	"github.com/simedi/gateway/internal/platform/gateway"
	"github.com/simedi/gateway/internal/platform/ledger"
	"github.com/simedi/gateway/internal/platform/middleware"
)

func newLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	if cfg.IsDev() {
		out = zerolog.ConsoleWriter{Out: out}
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(level).With().Timestamp().Str("service", "simedi-gateway").Logger()
}

func poolConfig(cfg *config.Config) db.PoolConfig {
	return db.PoolConfig{
		URL:             cfg.DatabaseURL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Hour,
	}
}

func ledgerConfig(cfg *config.Config) ledger.Config {
	return ledger.Config{
		MSPID:               cfg.FabricMSPID,
		Channel:             cfg.FabricChannel,
		Chaincode:           cfg.FabricChaincode,
		PeerEndpoint:        cfg.FabricPeerEndpoint,
		PeerHostAlias:       cfg.FabricPeerHostAlias,
		TLSCertPath:         cfg.FabricTLSCertPath,
		CertPath:            cfg.FabricCertPath,
		KeyDir:              cfg.FabricKeyDir,
		EvaluateTimeout:     cfg.LedgerEvaluateTimeout,
		EndorseTimeout:      cfg.LedgerEndorseTimeout,
		SubmitTimeout:       cfg.LedgerSubmitTimeout,
		CommitStatusTimeout: cfg.LedgerCommitStatusTimeout,
	}
}

// coreTimeouts bounds a whole submit by the sum of its pipeline stages.
func coreTimeouts(cfg *config.Config) gateway.Timeouts {
	return gateway.Timeouts{
		Submit:   cfg.SubmitBudget(),
		Evaluate: cfg.LedgerEvaluateTimeout,
	}
}

// newServer wires the HTTP surface over l. pool may be nil, in which case
// the audit trail is logged and the audit endpoint is not mounted.
func newServer(cfg *config.Config, l ledger.Ledger, pool *pgxpool.Pool, logger zerolog.Logger) *echo.Echo {
	var recorder audit.Recorder = audit.NewLogRecorder(logger.With().Str("component", "ledger_audit").Logger())
	var pgRecorder *audit.PGRecorder
	if pool != nil {
		pgRecorder = audit.NewPGRecorder(pool)
		recorder = pgRecorder
	}
	audited := audit.NewLedger(l, recorder, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	apiV1 := e.Group("/api/v1", middleware.RequestTimeout(cfg.RequestTimeout))
	apiV1.Use(authMiddleware(cfg))
	apiV1.Use(middleware.RateLimit(rateLimitConfig(cfg)))

	timeouts := coreTimeouts(cfg)

	rxSvc := prescription.NewService(audited, logger)
	rxSvc.Core().SetTimeouts(timeouts)
	prescription.NewHandler(rxSvc).RegisterRoutes(apiV1)

	vaxSvc := vaccination.NewService(audited, logger)
	vaxSvc.Core().SetTimeouts(timeouts)
	vaccination.NewHandler(vaxSvc).RegisterRoutes(apiV1)

	if pgRecorder != nil {
		audit.NewHandler(pgRecorder).RegisterRoutes(apiV1)
	}

	logger.Debug().Int("routes", len(e.Routes())).Msg("routes registered")
	return e
}

func authMiddleware(cfg *config.Config) echo.MiddlewareFunc {
	if cfg.ResolvedAuthMode() == config.AuthModeDevelopment {
		return auth.DevAuthMiddleware()
	}
	jc := auth.JWTConfig{
		Issuer:   cfg.AuthIssuer,
		Audience: cfg.AuthAudience,
		JWKSURL:  cfg.AuthJWKSURL,
	}
	if cfg.AuthSigningKey != "" {
		jc.SigningKey = []byte(cfg.AuthSigningKey)
	}
	return auth.JWTMiddleware(jc)
}

func rateLimitConfig(cfg *config.Config) middleware.RateLimitConfig {
	rl := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rl.RequestsPerSecond <= 0 || rl.BurstSize <= 0 {
		return middleware.DefaultRateLimitConfig()
	}
	return rl
}

func printStatus(w io.Writer, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(w, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}
