package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/the-holiday/member-portal-api/internal/adapters/gotrue"
	"github.com/the-holiday/member-portal-api/internal/adapters/httpapi"
	memidempotency "github.com/the-holiday/member-portal-api/internal/adapters/memory/idempotency"
	memidentity "github.com/the-holiday/member-portal-api/internal/adapters/memory/identity"
	memplanrepo "github.com/the-holiday/member-portal-api/internal/adapters/memory/planrepo"
	memprofilerepo "github.com/the-holiday/member-portal-api/internal/adapters/memory/profilerepo"
	postgres "github.com/the-holiday/member-portal-api/internal/adapters/postgres"
	pgidempotency "github.com/the-holiday/member-portal-api/internal/adapters/postgres/idempotency"
	pgplanrepo "github.com/the-holiday/member-portal-api/internal/adapters/postgres/planrepo"
	pgprofilerepo "github.com/the-holiday/member-portal-api/internal/adapters/postgres/profilerepo"
	"github.com/the-holiday/member-portal-api/internal/adapters/rest"
	"github.com/the-holiday/member-portal-api/internal/app/account"
	"github.com/the-holiday/member-portal-api/internal/app/dashboard"
	"github.com/the-holiday/member-portal-api/internal/domain"
	"github.com/the-holiday/member-portal-api/internal/platform/auth/jwtverifier"
	"github.com/the-holiday/member-portal-api/internal/platform/authevents"
	platformclock "github.com/the-holiday/member-portal-api/internal/platform/clock"
	"github.com/the-holiday/member-portal-api/internal/platform/config"
	"github.com/the-holiday/member-portal-api/internal/platform/telemetry"
	idempotencyport "github.com/the-holiday/member-portal-api/internal/ports/out/idempotency"
	"github.com/the-holiday/member-portal-api/internal/ports/out/identity"
	planrepoport "github.com/the-holiday/member-portal-api/internal/ports/out/planrepo"
	profilerepoport "github.com/the-holiday/member-portal-api/internal/ports/out/profilerepo"
)

const serviceName = "member-portal-api"

func main() {
	cfg, err := config.LoadAppConfigFromEnv()
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	shutdownTelemetry := telemetry.Setup(serviceName)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	clk := platformclock.NewSystemClock()
	bus := authevents.NewBus()

	var (
		profileRepo profilerepoport.Repository
		planRepo    planrepoport.Repository
		idemStore   idempotencyport.Store
		memProfiles *memprofilerepo.Repo
		cleanup     func()
	)

	switch cfg.StorageBackend {
	case config.BackendPostgres:
		pool, err := postgres.NewPool(context.Background(), cfg.DatabaseURL, postgres.PoolOptions{})
		if err != nil {
			log.Fatalf("invalid postgres config: %v", err)
		}
		cleanup = pool.Close
		if cfg.DatabaseMigrate {
			if err := postgres.Migrate(context.Background(), pool); err != nil {
				log.Fatalf("migrate: %v", err)
			}
		}
		profileRepo = pgprofilerepo.NewRepo(pool)
		planRepo = pgplanrepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool, clk, cfg.IdempotencyRetention)
	case config.BackendREST:
		client := rest.NewClient(cfg.RESTURL(), cfg.BackendAPIKey, cfg.BackendTimeout, nil)
		profileRepo = rest.NewProfileRepo(client)
		planRepo = rest.NewPlanRepo(client)
		idemStore = memidempotency.NewStore(clk, cfg.IdempotencyRetention)
	default:
		memProfiles = memprofilerepo.NewRepo()
		plans := memplanrepo.NewRepo()
		if cfg.SeedPlans {
			if err := memplanrepo.Seed(context.Background(), plans); err != nil {
				log.Fatalf("seed plans: %v", err)
			}
		}
		profileRepo, planRepo = memProfiles, plans
		idemStore = memidempotency.NewStore(clk, cfg.IdempotencyRetention)
	}
	if cleanup != nil {
		defer cleanup()
	}

	var ids identity.Service
	switch cfg.AuthBackend {
	case config.BackendGoTrue:
		jwtCfg, err := config.LoadJWTConfigFromEnv()
		if err != nil {
			log.Fatalf("invalid auth config: %v", err)
		}
		ids = gotrue.NewClient(cfg.AuthURL(), cfg.BackendAPIKey, jwtverifier.New(jwtCfg), clk, gotrue.Options{
			Timeout: cfg.BackendTimeout,
			Bus:     bus,
		})
	default:
		opts := memidentity.Options{
			TTL:                 cfg.SessionTTL,
			RequireConfirmation: cfg.RequireConfirmation,
			Bus:                 bus,
		}
		if memProfiles != nil {
			opts.OnSignUp = provisionProfile(memProfiles)
		}
		ids = memidentity.NewService(clk, opts)
	}

	api := httpapi.NewServer(
		ids,
		account.NewService(ids, cfg.PublicOrigin, nil),
		dashboard.NewLoader(profileRepo, planRepo, nil),
		idemStore,
		httpapi.ServerOptions{
			CookieSecure: cfg.CookieSecure,
			LoadTimeout:  cfg.DashboardLoadTimeout,
		},
	)
	handler := otelhttp.NewHandler(httpapi.NewRouter(api), serviceName)

	// No WriteTimeout: live dashboard streams stay open.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("api listening on :%s (storage=%s auth=%s)", cfg.Port, cfg.StorageBackend, cfg.AuthBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// provisionProfile creates the empty profile the hosted backend's signup trigger would.
func provisionProfile(profiles *memprofilerepo.Repo) memidentity.SignUpHook {
	return func(ctx context.Context, userID domain.SubjectID, _ string, meta identity.SignUpMetadata) error {
		return profiles.Put(ctx, profilerepoport.Profile{
			ID:       domain.ProfileID(uuid.NewString()),
			UserID:   userID,
			FullName: meta.FullName,
		})
	}
}
