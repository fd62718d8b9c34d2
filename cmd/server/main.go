package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/licensegate/backend/internal/cache"
	"github.com/licensegate/backend/internal/config"
	"github.com/licensegate/backend/internal/handlers"
	"github.com/licensegate/backend/internal/metrics"
	appMiddleware "github.com/licensegate/backend/internal/middleware"
	"github.com/licensegate/backend/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := config.SetupLogging(cfg.Log); err != nil {
		log.Fatalf("logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	identity, store, closeStore, err := buildBackends(ctx, cfg)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer closeStore()

	// Maintenance toggle, optionally behind Redis.
	var maintenance cache.MaintenanceStore = store
	if cfg.Redis.Addr != "" {
		rdb, err := cache.Connect(ctx, cfg.Redis)
		if err != nil {
			log.Printf("Warning: redis unavailable, reading maintenance from the store: %v", err)
		} else {
			defer rdb.Close()
			maintenance = cache.NewMaintenanceCache(rdb, store, cfg.MaintenanceCacheTTL)
		}
	}

	verifier := services.NewIdentityVerifier(identity)
	roles := services.NewRoleManager(identity)
	licenses := services.NewLicenseService(store, maintenance)
	admin := services.NewAdminService(store, maintenance)

	rec := metrics.New()
	limiter := appMiddleware.NewIPRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	go sweepLimiter(ctx, limiter)

	router := handlers.NewRouter(handlers.RouterConfig{
		License:        handlers.NewLicenseHandler(licenses, rec, cfg.RequestTimeout),
		Admin:          handlers.NewAdminHandler(admin, roles, verifier, cfg.RequestTimeout),
		Verifier:       verifier,
		Limiter:        limiter,
		Metrics:        rec,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("License gate API starting on %s (store=%s identity=%s)", cfg.ServerAddress, cfg.StoreDriver, cfg.IdentityProvider)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed to start: %v", err)
	}
}

// buildBackends creates the identity provider and the license store picked by cfg.
func buildBackends(ctx context.Context, cfg *config.Config) (services.IdentityProvider, services.LicenseStore, func(), error) {
	initCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	var identity services.IdentityProvider
	var store services.LicenseStore
	closeFn := func() {}

	if cfg.NeedsFirebase() {
		app, err := appMiddleware.NewFirebaseApp(initCtx, appMiddleware.FirebaseAuthConfig{
			ProjectID:       cfg.Firebase.ProjectID,
			CredentialsJSON: cfg.Firebase.CredentialsJSON,
		})
		if err != nil {
			return nil, nil, nil, err
		}

		if cfg.IdentityProvider == config.IdentityFirebase {
			authClient, err := appMiddleware.NewFirebaseAuthClient(initCtx, app)
			if err != nil {
				return nil, nil, nil, err
			}
			identity = services.NewFirebaseIdentity(authClient)
		}

		if cfg.StoreDriver == config.StoreFirestore {
			fs, err := app.Firestore(ctx)
			if err != nil {
				return nil, nil, nil, err
			}
			fsStore := services.NewFirestoreLicenseStore(fs)
			store = fsStore
			closeFn = func() { _ = fsStore.Close() }
		}
	}

	if cfg.IdentityProvider == config.IdentityJWT {
		log.Warn("Using the local HS256 identity provider; accounts live in memory")
		jwtIdentity := services.NewJWTIdentity(cfg.JWTSecret)
		if cfg.DevAdmin.UID != "" {
			if err := seedDevAdmin(initCtx, jwtIdentity, cfg.DevAdmin); err != nil {
				return nil, nil, nil, err
			}
		}
		identity = jwtIdentity
	}

	switch cfg.StoreDriver {
	case config.StoreMongo:
		mongoStore, err := services.NewMongoLicenseStore(initCtx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, nil, nil, err
		}
		store = mongoStore
		closeFn = func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mongoStore.Close(closeCtx)
		}
	case config.StoreFile:
		fileStore, err := services.NewFileLicenseStore(cfg.DataDir)
		if err != nil {
			return nil, nil, nil, err
		}
		store = fileStore
	}

	return identity, store, closeFn, nil
}

// seedDevAdmin registers the configured account as an admin and logs a
// day-long token for it.
func seedDevAdmin(ctx context.Context, idp *services.JWTIdentity, dev config.DevAdminConfig) error {
	idp.RegisterUser(dev.UID, dev.Email)
	if err := services.NewRoleManager(idp).SetAdminRole(ctx, dev.UID); err != nil {
		return err
	}
	token, err := idp.Issue(dev.UID, 24*time.Hour)
	if err != nil {
		return err
	}
	log.Printf("[DevAdmin] uid=%s token=%s", dev.UID, token)
	return nil
}

func sweepLimiter(ctx context.Context, l *appMiddleware.IPRateLimiter) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.Sweep()
		}
	}
}
