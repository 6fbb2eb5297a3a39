package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yoga-studio/booking-api/internal/adapters/httpapi"
	memidempotency "github.com/yoga-studio/booking-api/internal/adapters/memory/idempotency"
	memloginlimiter "github.com/yoga-studio/booking-api/internal/adapters/memory/loginlimiter"
	memsessionrepo "github.com/yoga-studio/booking-api/internal/adapters/memory/sessionrepo"
	memteacherrepo "github.com/yoga-studio/booking-api/internal/adapters/memory/teacherrepo"
	memuserrepo "github.com/yoga-studio/booking-api/internal/adapters/memory/userrepo"
	postgres "github.com/yoga-studio/booking-api/internal/adapters/postgres"
	pgidempotency "github.com/yoga-studio/booking-api/internal/adapters/postgres/idempotency"
	pgsessionrepo "github.com/yoga-studio/booking-api/internal/adapters/postgres/sessionrepo"
	pgteacherrepo "github.com/yoga-studio/booking-api/internal/adapters/postgres/teacherrepo"
	pguserrepo "github.com/yoga-studio/booking-api/internal/adapters/postgres/userrepo"
	redisloginlimiter "github.com/yoga-studio/booking-api/internal/adapters/redis/loginlimiter"
	"github.com/yoga-studio/booking-api/internal/app/auth"
	"github.com/yoga-studio/booking-api/internal/app/sessions"
	"github.com/yoga-studio/booking-api/internal/app/teachers"
	"github.com/yoga-studio/booking-api/internal/app/users"
	"github.com/yoga-studio/booking-api/internal/platform/auth/tokencodec"
	platformclock "github.com/yoga-studio/booking-api/internal/platform/clock"
	"github.com/yoga-studio/booking-api/internal/platform/config"
	"github.com/yoga-studio/booking-api/internal/platform/metrics"
	"github.com/yoga-studio/booking-api/internal/platform/password"
	idempotencyport "github.com/yoga-studio/booking-api/internal/ports/out/idempotency"
	loginlimiterport "github.com/yoga-studio/booking-api/internal/ports/out/loginlimiter"
	sessionrepoport "github.com/yoga-studio/booking-api/internal/ports/out/sessionrepo"
	teacherrepoport "github.com/yoga-studio/booking-api/internal/ports/out/teacherrepo"
	userrepoport "github.com/yoga-studio/booking-api/internal/ports/out/userrepo"
)

func main() {
	port := getenv("PORT", "8080")
	authMode := getenv("AUTH_MODE", "jwt")

	// Tokens are issued at login in every mode, so the codec always needs a secret.
	authCfg, err := config.LoadAuthConfigFromEnv()
	if err != nil {
		if authMode != "dev" {
			log.Fatalf("invalid auth config: %v", err)
		}
		log.Printf("auth config: %v; using the dev-only signing secret", err)
		authCfg = config.AuthConfig{Secret: []byte("dev-only-secret-do-not-deploy"), TTL: 24 * time.Hour}
	}
	loginCfg, err := config.LoadLoginConfigFromEnv()
	if err != nil {
		log.Fatalf("invalid login config: %v", err)
	}

	clk := platformclock.NewSystemClock()
	m := metrics.New()

	codec, err := tokencodec.New(authCfg, clk)
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}

	ctx := context.Background()
	storageBackend := getenv("STORAGE_BACKEND", "memory")
	var (
		userRepo    userrepoport.Repository
		sessionRepo sessionrepoport.Repository
		teacherRepo teacherrepoport.Repository
		idemStore   idempotencyport.Store
		cleanups    []func()
	)

	switch storageBackend {
	case "postgres":
		dsn := os.Getenv("DATABASE_URL")
		pool, err := postgres.NewPool(ctx, dsn, postgres.PoolOptions{})
		if err != nil {
			log.Fatalf("invalid postgres config: %v", err)
		}
		cleanups = append(cleanups, pool.Close)
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatalf("migrate: %v", err)
		}

		userRepo = pguserrepo.NewRepo(pool)
		sessionRepo = pgsessionrepo.NewRepo(pool)
		teacherRepo = pgteacherrepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool)
	default:
		userRepo = memuserrepo.NewRepo()
		sessionRepo = memsessionrepo.NewRepo()
		teacherRepo = memteacherrepo.NewRepo()
		idemStore = memidempotency.NewStore()
		if err := seedTeachers(ctx, teacherRepo); err != nil {
			log.Fatalf("seed teachers: %v", err)
		}
	}

	var limiter loginlimiterport.Limiter
	if loginCfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: loginCfg.RedisAddr})
		cleanups = append(cleanups, func() { _ = rdb.Close() })
		limiter = redisloginlimiter.New(rdb, loginCfg.MaxAttempts, loginCfg.Cooldown)
	} else {
		limiter = memloginlimiter.New(clk, loginCfg.MaxAttempts, loginCfg.Cooldown)
	}

	defer func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}()

	hasher := password.NewBcryptHasher(loginCfg.BcryptCost)
	if err := seedAdmin(ctx, userRepo, hasher, os.Getenv("SEED_ADMIN_EMAIL"), os.Getenv("SEED_ADMIN_PASSWORD")); err != nil {
		log.Fatalf("seed admin: %v", err)
	}

	authSvc := auth.NewService(userRepo, hasher, codec, limiter, clk)
	authSvc.Metrics = m
	sessionSvc := sessions.NewService(sessionRepo, userRepo, teacherRepo, clk)
	sessionSvc.Metrics = m
	resolver := auth.NewResolver(userRepo)

	// Auth configuration:
	// - Production: verify HS512 bearer tokens
	// - Local dev: set AUTH_MODE=dev to bypass token verification and use X-Debug-Subject
	var authMW func(http.Handler) http.Handler
	switch authMode {
	case "dev":
		authMW = httpapi.NewDevAuthMiddleware(resolver, os.Getenv("DEV_SUBJECT"))
	default:
		authMW = httpapi.NewAuthMiddleware(codec, resolver, m)
	}

	api := httpapi.NewServer(authSvc, sessionSvc, users.NewService(userRepo, sessionRepo), teachers.NewService(teacherRepo), idemStore)
	handler := httpapi.NewRouterWithOptions(api, httpapi.RouterOptions{
		AuthMiddleware: authMW,
		BasePath:       getenv("API_BASE_PATH", "/api"),
		Metrics:        m,
		AccessLog:      true,

		TrustProxyHeaders: loginCfg.TrustProxyHeaders,
	})

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown
	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("api listening on :%s (auth=%s storage=%s)", port, authMode, storageBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-sigCtx.Done()
	log.Printf("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
