package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/devsanjithm/accountd/internal/auth"
	"github.com/devsanjithm/accountd/internal/common/clock"
	"github.com/devsanjithm/accountd/internal/common/config"
	"github.com/devsanjithm/accountd/internal/common/constants"
	commoncrypto "github.com/devsanjithm/accountd/internal/common/crypto"
	"github.com/devsanjithm/accountd/internal/common/db"
	commonhttp "github.com/devsanjithm/accountd/internal/common/http"
	"github.com/devsanjithm/accountd/internal/common/logger"
	"github.com/devsanjithm/accountd/internal/common/resilience"
	srv "github.com/devsanjithm/accountd/internal/common/server"
	"github.com/devsanjithm/accountd/internal/session"
	"github.com/devsanjithm/accountd/internal/softdelete"
	"github.com/devsanjithm/accountd/internal/token"
	"github.com/devsanjithm/accountd/internal/user"
)

func main() {
	log, err := logger.New(os.Getenv("LOG_DIR"), "accountd", os.Getenv("LOG_LEVEL"))
	if err != nil {
		os.Stderr.WriteString(fmt.Sprintf("failed to initialize logger: %v\n", err))
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := db.RunMigrations(ctx, log, cfg.DatabaseURL); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	pool := db.NewPool(log, cfg.DatabaseURL)
	defer pool.Close()

	clk := clock.NewSystemClock()
	idGenerator := commoncrypto.NewUUIDGenerator()
	hasher := commoncrypto.NewBcryptHasher()

	registry, err := softdelete.NewRegistry(user.Entity())
	if err != nil {
		log.Fatalf("failed to build entity registry: %v", err)
	}
	store := softdelete.NewStore(pool, registry, clk, log)
	ledger := softdelete.NewPgLedger(pool, clk)
	purger := softdelete.NewPurger(store, cfg.PurgeRetention, clk, log)

	// Re-enroll inactive rows that lost their audit entry before scheduling
	// sweeps, so the retention clock starts for them now.
	for _, tag := range registry.Tags() {
		recovered, err := store.Reconcile(ctx, tag)
		if err != nil {
			log.Errorf("audit reconciliation for %s failed: %v", tag, err)
			continue
		}
		if recovered > 0 {
			log.Infof("audit reconciliation re-enrolled %d %s rows", recovered, tag)
		}
	}

	go softdelete.StartScheduler(ctx, purger, cfg.PurgeInterval, log)

	tokenRepo := token.NewPgRepository(pool)
	authority := token.NewAuthority(
		cfg.JWTSecret,
		token.TTLConfig{
			Access:        cfg.AccessTokenTTL,
			Refresh:       cfg.RefreshTokenTTL,
			ResetPassword: cfg.ResetPasswordTokenTTL,
			VerifyEmail:   cfg.VerifyEmailTokenTTL,
		},
		tokenRepo,
		idGenerator,
		clk,
		log,
	)
	go auth.StartReaper(ctx, tokenRepo, clk, cfg.ReaperInterval, log)

	memCache := session.NewMemoryCache(ctx, cfg.SessionTTL, clk, log)
	cacheBreaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Threshold:  constants.DefaultCacheBreakerThreshold,
		Timeout:    cfg.SessionLookupTimeout,
		ResetAfter: constants.DefaultCacheBreakerResetAfter,
		Name:       "session_cache",
		Logger:     log,
	})
	sessions := session.NewGuardedCache(memCache, cacheBreaker, log)

	userRepo := user.NewPgRepository(pool, store)
	userService := user.NewService(userRepo, hasher, idGenerator, clk, log)
	authService := auth.NewService(userService, authority, sessions, hasher, auth.NewLogMailer(log), log)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", commonhttp.HealthHandler())
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/api/auth/", auth.NewHandler(authService, cfg.RequestTimeout, log))
	mux.HandleFunc("/internal/purge", purgeHandler(purger, log))
	mux.HandleFunc("/internal/audit", auditHandler(ledger, registry, clk))

	server := srv.New(cfg.HTTPPort, commonhttp.TraceIDMiddleware(mux))

	shutdownHooks := []srv.ShutdownHook{
		func(context.Context) error {
			log.Info("stopping background goroutines")
			cancel()
			memCache.Close()
			return nil
		},
	}

	srv.StartWithGracefulShutdown(server, log, shutdownHooks)
}

// purgeHandler triggers a sweep on demand. A sweep already in flight
// is reported as a conflict, never queued.
func purgeHandler(purger *softdelete.Purger, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			commonhttp.WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
			return
		}

		result, err := purger.Run(r.Context())
		if err != nil {
			if errors.Is(err, softdelete.ErrSweepInProgress) {
				commonhttp.WriteError(w, http.StatusConflict, "SWEEP_IN_PROGRESS", "purge sweep already in progress")
				return
			}
			log.Errorf("manual purge failed: %v", err)
			commonhttp.WriteDomainError(w, err)
			return
		}

		commonhttp.WriteJSON(w, http.StatusAccepted, map[string]any{
			"rows_deleted":     result.RowsDeleted,
			"entries_consumed": result.EntriesConsumed,
			"groups":           result.Groups,
		})
	}
}

// auditLedger is the slice of the ledger the audit route needs.
type auditLedger interface {
	Append(ctx context.Context, itemID, entityType string) error
	ListWindow(ctx context.Context, from, to time.Time) ([]softdelete.Record, error)
}

// auditHandler lists pending purge entries in a created_at window and,
// on POST, enrolls a row for purge by hand. Manual enrollment covers rows
// that were deactivated outside the lifecycle store.
func auditHandler(ledger auditLedger, registry *softdelete.Registry, clk clock.Clock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
		case http.MethodPost:
			var req struct {
				ItemID     string `json:"item_id"`
				EntityType string `json:"entity_type"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ItemID == "" {
				commonhttp.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "item_id and entity_type are required")
				return
			}
			if _, err := registry.Lookup(req.EntityType); err != nil {
				commonhttp.WriteError(w, http.StatusBadRequest, "UNKNOWN_ENTITY", "entity type is not registered")
				return
			}
			if err := ledger.Append(r.Context(), req.ItemID, req.EntityType); err != nil {
				commonhttp.WriteDomainError(w, err)
				return
			}
			w.WriteHeader(http.StatusCreated)
			return
		default:
			commonhttp.WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
			return
		}

		from := time.Time{}
		to := clk.Now()
		if v := r.URL.Query().Get("from"); v != "" {
			parsed, err := time.Parse(time.RFC3339, v)
			if err != nil {
				commonhttp.WriteError(w, http.StatusBadRequest, "INVALID_WINDOW", "from must be RFC3339")
				return
			}
			from = parsed
		}
		if v := r.URL.Query().Get("to"); v != "" {
			parsed, err := time.Parse(time.RFC3339, v)
			if err != nil {
				commonhttp.WriteError(w, http.StatusBadRequest, "INVALID_WINDOW", "to must be RFC3339")
				return
			}
			to = parsed
		}

		records, err := ledger.ListWindow(r.Context(), from, to)
		if err != nil {
			commonhttp.WriteDomainError(w, err)
			return
		}

		commonhttp.WriteJSON(w, http.StatusOK, records)
	}
}
