package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twmb/franz-go/pkg/kgo"

	"onboard/internal/access"
	"onboard/internal/audit"
	auditmem "onboard/internal/audit/store/memory"
	auditpg "onboard/internal/audit/store/postgres"
	"onboard/internal/crypto"
	"onboard/internal/field"
	"onboard/internal/field/handler"
	jwttoken "onboard/internal/jwt_token"
	"onboard/internal/onboarding"
	onboardingstore "onboard/internal/onboarding/store"
	"onboard/internal/platform/config"
	"onboard/internal/platform/httpserver"
	"onboard/internal/platform/logger"
	"onboard/internal/platform/metrics"
	"onboard/internal/platform/postgres"
	platformredis "onboard/internal/platform/redis"
	"onboard/internal/response"
	responsestore "onboard/internal/response/store"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	// A missing key-derivation secret is a deployment mistake. Refuse to
	// start rather than serve requests that can never encrypt.
	if cfg.EncryptionSecret == "" {
		log.Error("FIELD_ENCRYPTION_SECRET is not set")
		os.Exit(1)
	}

	cipher, err := crypto.NewCipher(cfg.EncryptionSecret)
	if err != nil {
		log.Error("field cipher init failed", "error", err)
		os.Exit(1)
	}

	db, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}

	var (
		instances onboarding.Store
		responses response.Store
		auditLog  audit.Store
		directory access.Directory
	)
	if db != nil {
		instances = onboardingstore.NewPostgres(db)
		responses = responsestore.NewPostgres(db)
		auditLog = auditpg.New(db)
		directory = access.NewPostgresDirectory(db)
		defer db.Close()
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores (dev mode)")
		instances = onboardingstore.NewMemory()
		responses = responsestore.NewMemory()
		auditLog = auditmem.NewInMemoryStore()
		directory = access.NewMemoryDirectory()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		directory = access.NewCachedDirectory(directory, redisClient.Client, config.RoleCacheTTL, log)
		defer redisClient.Close()
	}

	m := metrics.New()

	recorderOpts := []audit.RecorderOption{audit.WithDropHook(m.IncrementAuditDropped)}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaClient, err := kgo.NewClient(kgo.SeedBrokers(cfg.Kafka.Brokers...))
		if err != nil {
			log.Error("kafka connection failed", "error", err)
			os.Exit(1)
		}
		defer kafkaClient.Close()
		recorderOpts = append(recorderOpts,
			audit.WithMirror(audit.NewKafkaSink(kafkaClient, cfg.Kafka.AuditTopic, log)))
	}
	recorder := audit.NewRecorder(auditLog, log, recorderOpts...)

	gate := access.NewGate(directory, instances)
	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "onboard", "onboard-portal")
	fields := field.NewService(cipher, responses, gate, recorder, log, field.WithMetrics(m))

	router := chi.NewRouter()
	router.Get("/healthz", healthz(db, redisClient))
	router.Handle("/metrics", promhttp.Handler())
	handler.New(fields, log, jwtService).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting onboard field vault", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// healthz reports liveness plus the state of whichever backing stores are
// configured.
func healthz(db *sql.DB, redisClient *platformredis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				status = http.StatusServiceUnavailable
			}
		}
		if redisClient != nil && status == http.StatusOK {
			if err := redisClient.Health(ctx); err != nil {
				status = http.StatusServiceUnavailable
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		} else {
			_, _ = w.Write([]byte(`{"status":"degraded"}`))
		}
	}
}
