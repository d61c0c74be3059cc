package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"leavedesk/internal/domain/auth"
	"leavedesk/internal/domain/calendar"
	"leavedesk/internal/domain/core"
	"leavedesk/internal/domain/leave"
	"leavedesk/internal/domain/notifications"
	"leavedesk/internal/domain/probation"
	"leavedesk/internal/platform/config"
	"leavedesk/internal/platform/db"
	"leavedesk/internal/platform/email"
	"leavedesk/internal/platform/jobs"
	"leavedesk/internal/platform/metrics"
	"leavedesk/internal/transport/http/api"
	authhandler "leavedesk/internal/transport/http/handlers/auth"
	balanceshandler "leavedesk/internal/transport/http/handlers/balances"
	calendarhandler "leavedesk/internal/transport/http/handlers/calendar"
	corehandler "leavedesk/internal/transport/http/handlers/core"
	notificationshandler "leavedesk/internal/transport/http/handlers/notifications"
	probationhandler "leavedesk/internal/transport/http/handlers/probation"
	requestshandler "leavedesk/internal/transport/http/handlers/requests"
	"leavedesk/internal/transport/http/middleware"
)

func Run() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, "migrations"); err != nil {
			log.Fatalf("migrations failed: %v", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			log.Fatalf("seed failed: %v", err)
		}
	}

	authStore := auth.NewStore(pool)
	coreStore := core.NewStore(pool)
	calendarStore := calendar.NewStore(pool)
	leaveStore := leave.NewStore(pool)
	probationStore := probation.NewStore(pool)

	notifySvc := notifications.NewService(notifications.NewStore(pool), email.New(cfg), cfg.NotifyTimeout)
	leaveSvc := leave.NewService(leaveStore, notifySvc)
	leaveSvc.EnforceBalanceAtSubmit = cfg.EnforceBalanceAtSubmit
	probationSvc := probation.NewService(probationStore, notifySvc)

	collector := metrics.New()
	jobsSvc := jobs.New(pool, cfg, probationSvc, collector)
	jobsSvc.Start(ctx)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Metrics(collector))
	router.Use(middleware.Auth(cfg.JWTSecret))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.Route("/api/v1", func(r chi.Router) {
		if cfg.MetricsEnabled {
			r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
				api.Success(w, collector.Snapshot(), middleware.GetRequestID(req.Context()))
			})
		}

		authhandler.NewHandler(authStore, cfg).RegisterRoutes(r)
		corehandler.NewHandler(coreStore, probationStore, authStore).RegisterRoutes(r)
		requestshandler.NewHandler(leaveSvc, coreStore, authStore, collector).RegisterRoutes(r)
		balanceshandler.NewHandler(leaveSvc.Ledger, calendarStore, coreStore, authStore).RegisterRoutes(r)
		calendarhandler.NewHandler(calendarStore, leaveStore, authStore).RegisterRoutes(r)
		probationhandler.NewHandler(probationStore, jobsSvc, authStore).RegisterRoutes(r)
		notificationshandler.NewHandler(notifySvc).RegisterRoutes(r)
	})

	log.Printf("leavedesk server listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, router); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
