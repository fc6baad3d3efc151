package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	authhandler "donorhub/internal/auth/handler"
	authservice "donorhub/internal/auth/service"
	"donorhub/internal/auth/store/revocation"
	"donorhub/internal/auth/store/user"
	donorhandler "donorhub/internal/donor/handler"
	donormetrics "donorhub/internal/donor/metrics"
	donorservice "donorhub/internal/donor/service"
	donorstore "donorhub/internal/donor/store/donor"
	jwttoken "donorhub/internal/jwt_token"
	"donorhub/internal/platform/config"
	"donorhub/internal/platform/httpserver"
	"donorhub/internal/platform/logger"
	"donorhub/internal/platform/metrics"
	"donorhub/internal/platform/postgres"
	"donorhub/internal/platform/redis"
	httptransport "donorhub/internal/transport/http"
	id "donorhub/pkg/domain"
	"donorhub/pkg/platform/audit"
	"donorhub/pkg/platform/audit/publishers/kafka"
	"donorhub/pkg/platform/audit/publishers/logsink"
	auditworker "donorhub/pkg/platform/audit/worker"
	"donorhub/pkg/platform/circuit"
	"donorhub/pkg/secrets"
)

const revocationPurgeInterval = time.Hour

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(cfg.Environment, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

type stores struct {
	users  authservice.UserStore
	donors interface {
		donorservice.DonorStore
		authservice.DonorOwnership
	}
	trl         authservice.TokenRevocationList
	purgeTRL    func(ctx context.Context) (int64, error)
	healthCheck map[string]httptransport.HealthCheck
	close       func()
}

// openStores picks PostgreSQL when DATABASE_URL is set and Redis for the
// revocation list when REDIS_URL is set, falling back to memory for either.
func openStores(ctx context.Context, cfg config.Server, log *slog.Logger) (*stores, error) {
	s := &stores{healthCheck: map[string]httptransport.HealthCheck{}}
	var closers []func()
	s.close = func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var db *sql.DB
	if cfg.Database.URL != "" {
		var err error
		if db, err = postgres.Open(ctx, cfg.Database); err != nil {
			return nil, err
		}
		closers = append(closers, func() { _ = db.Close() })
		if err := postgres.Migrate(ctx, db); err != nil {
			s.close()
			return nil, err
		}
		s.users = user.NewPostgres(db)
		s.donors = donorstore.NewPostgres(db)
		s.healthCheck["postgres"] = func(ctx context.Context) error { return postgres.Health(ctx, db) }
		log.InfoContext(ctx, "using postgres stores")
	} else {
		s.users, s.donors = memoryStores()
		log.WarnContext(ctx, "DATABASE_URL not set; records are kept in memory")
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		s.close()
		return nil, err
	}
	switch {
	case redisClient != nil:
		closers = append(closers, func() { _ = redisClient.Close() })
		s.trl = revocation.NewRedisTRL(redisClient.Client)
		s.healthCheck["redis"] = redisClient.Health
		log.InfoContext(ctx, "using redis token revocation list")
	case db != nil:
		pg := revocation.NewPostgresTRL(db)
		s.trl = pg
		s.purgeTRL = pg.PurgeExpired
		log.InfoContext(ctx, "using postgres token revocation list")
	default:
		s.trl = revocation.NewInMemoryTRL()
	}
	return s, nil
}

// openAudit always logs audit events and also produces them to Kafka when
// brokers are configured.
func openAudit(ctx context.Context, cfg config.AuditConfig, log *slog.Logger) (audit.Fanout, func(), error) {
	sinks := audit.Fanout{logsink.New(log)}
	if len(cfg.KafkaBrokers) == 0 {
		return sinks, func() {}, nil
	}
	producer, err := kafka.New(ctx, cfg.KafkaBrokers, cfg.Topic,
		kafka.WithPartitions(cfg.Partitions),
		kafka.WithLogger(log),
	)
	if err != nil {
		return nil, nil, err
	}
	log.InfoContext(ctx, "producing audit events to kafka", "topic", cfg.Topic)
	guarded := circuit.New("kafka-audit", producer, log)
	return append(sinks, guarded), func() { producer.Close(context.Background()) }, nil
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	m := metrics.New(prometheus.DefaultRegisterer)
	dm := donormetrics.New(prometheus.DefaultRegisterer)

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	sinks, closeAudit, err := openAudit(ctx, cfg.Audit, log)
	if err != nil {
		return err
	}
	defer closeAudit()
	auditQueue := auditworker.NewWorker(sinks,
		auditworker.WithLogger(log),
		auditworker.WithMetrics(m),
	)

	tokens := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, jwttoken.WithTTL(cfg.Auth.TokenTTL))
	authSvc, err := authservice.New(st.users, st.donors, st.trl, tokens, secrets.NewHasher(cfg.Auth.BcryptCost),
		authservice.WithLogger(log),
		authservice.WithAuditPublisher(auditQueue),
		authservice.WithMetrics(m),
	)
	if err != nil {
		return err
	}
	donorSvc, err := donorservice.New(st.donors,
		donorservice.WithLogger(log),
		donorservice.WithAuditPublisher(auditQueue),
		donorservice.WithMetrics(dm),
	)
	if err != nil {
		return err
	}

	created, err := authSvc.EnsureDefaultAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password)
	if err != nil {
		return fmt.Errorf("bootstrap administrator: %w", err)
	}
	if created {
		log.InfoContext(ctx, "default administrator created", "email", cfg.Admin.Email)
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:        log,
		Metrics:       m,
		Gatherer:      prometheus.DefaultGatherer,
		OperatorToken: cfg.OperatorToken,
		Tokens:        jwttoken.NewJWTServiceAdapter(tokens),
		Revocations:   authSvc,
		Auth:          authhandler.New(authSvc, log),
		Donors:        donorhandler.New(donorSvc, authSvc, log),
		Health:        httptransport.NewHealthHandler(log, st.healthCheck),
	})
	srv := httpserver.New(cfg.Addr, router)

	// The audit queue outlives the server so events from in-flight requests
	// are still delivered during shutdown.
	auditCtx, stopAudit := context.WithCancel(context.Background())
	defer stopAudit()
	auditDone := make(chan error, 1)
	go func() { auditDone <- auditQueue.Run(auditCtx) }()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.InfoContext(gctx, "starting donorhub", "addr", cfg.Addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.InfoContext(shutdownCtx, "shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	if st.purgeTRL != nil {
		g.Go(func() error {
			ticker := time.NewTicker(revocationPurgeInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					n, err := st.purgeTRL(gctx)
					if err != nil {
						log.WarnContext(gctx, "failed to purge expired revocations", "error", err)
						continue
					}
					log.DebugContext(gctx, "purged expired revocations", "count", n)
				}
			}
		})
	}

	err = g.Wait()
	stopAudit()
	if auditErr := <-auditDone; auditErr != nil {
		log.Warn("audit queue stopped with error", "error", auditErr)
	}
	return err
}

// memoryStores links the in-memory stores the way the donors.created_by
// foreign key links the tables: donors need an existing owner, and an owner
// with donors cannot be deleted.
func memoryStores() (*user.InMemoryUserStore, *donorstore.InMemoryDonorStore) {
	var donors *donorstore.InMemoryDonorStore
	users := user.New(user.WithDeleteGuard(func(ctx context.Context, owner id.UserID, remove func() error) error {
		return donors.RemoveOwner(ctx, owner, remove)
	}))
	donors = donorstore.New(donorstore.WithOwnerCheck(users.Exists))
	return users, donors
}
