// @title        SalesBI Auth API
// @version      1.0
// @description  Login, session and role-based access control for the SalesBI dashboard.
// @BasePath     /
// @securityDefinitions.apikey  SessionCookie
// @in                          cookie
// @name                        salesbi_session
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

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/prostech/salesbi-auth/internal/api"
	"github.com/prostech/salesbi-auth/internal/api/cookie"
	"github.com/prostech/salesbi-auth/internal/api/handler"
	"github.com/prostech/salesbi-auth/internal/core/ports"
	"github.com/prostech/salesbi-auth/internal/core/service"
	"github.com/prostech/salesbi-auth/internal/infrastructure/db/mongo"
	"github.com/prostech/salesbi-auth/internal/infrastructure/db/mysql"
	redisstore "github.com/prostech/salesbi-auth/internal/infrastructure/db/redis"
	"github.com/prostech/salesbi-auth/internal/infrastructure/memory"
	"github.com/prostech/salesbi-auth/internal/infrastructure/queue"
	"github.com/prostech/salesbi-auth/internal/pkg/config"
	"github.com/prostech/salesbi-auth/pkg/logger"
)

const devSessionSecret = "development-only-session-secret"

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "salesbi-auth",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	var health []handler.Dependency

	// --- Credential store ---
	var users ports.UserRepository
	switch cfg.StoreDriver {
	case "mongo":
		client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return err
		}
		defer disconnectMongo(client, log)

		repo := mongo.NewUserRepository(db, logger.Component("mongo_users"))
		if err := repo.EnsureIndexes(ctx); err != nil {
			log.Warn().Err(err).Msg("could not ensure users indexes")
		}
		users = repo
		health = append(health, handler.Dependency{Name: "mongodb", Ping: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		}})
	default:
		db, err := mysql.Connect(ctx, mysql.Config{
			Host:        cfg.MySQL.Host,
			Port:        cfg.MySQL.Port,
			User:        cfg.MySQL.User,
			Password:    cfg.MySQL.Password,
			Database:    cfg.MySQL.Database,
			PoolSize:    cfg.MySQL.PoolSize,
			PoolRecycle: time.Duration(cfg.MySQL.PoolRecycle) * time.Second,
		})
		if err != nil {
			return err
		}
		defer closeDB(db, log)

		users = mysql.NewUserRepository(db, logger.Component("mysql_users"))
		health = append(health, handler.Dependency{Name: "mysql", Ping: db.PingContext})
	}

	// --- Shared state: lockout counters and sessions ---
	var (
		rdb          *redis.Client
		lockoutStore ports.LockoutStore
		sessionStore ports.SessionStore
	)
	if cfg.LockoutBackend == "redis" || cfg.SessionBackend == "redis" {
		client, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := client.Close(); err != nil {
				log.Error().Err(err).Msg("redis close failed")
			}
		}()
		rdb = client
		health = append(health, handler.Dependency{Name: "redis", Ping: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	if cfg.LockoutBackend == "redis" {
		lockoutStore = redisstore.NewLockoutStore(rdb)
	} else {
		log.Warn().Msg("lockout state is process-local; counters are not shared between instances")
		lockoutStore = memory.NewLockoutStore()
	}
	if cfg.SessionBackend == "redis" {
		sessionStore = redisstore.NewSessionStore(rdb)
	} else {
		sessionStore = memory.NewSessionStore()
	}

	// --- Services ---
	hasher := service.NewPasswordHasher(cfg.Auth.PasswordScheme)
	lockout := service.NewLockoutTracker(lockoutStore, service.LockoutPolicy{
		MaxAttempts: cfg.Auth.MaxAttempts,
		Duration:    cfg.Auth.LockoutDuration(),
	}, logger.Get())
	sessions := service.NewSessionManager(sessionStore, cfg.Auth.SessionTimeout(), logger.Get())
	attempts := queue.NewDispatcher(0, service.NewAttemptLog(logger.Get()), logger.Get())
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	attempts.Start(workerCtx)
	defer func() {
		stopWorkers()
		attempts.Wait()
	}()
	auth := service.NewAuthService(users, hasher, lockout, sessions, attempts, logger.Get())
	access := service.NewAccessControl(sessions, logger.Get())

	secret := cfg.SessionSecret
	if secret == "" {
		log.Warn().Msg("SESSION_SECRET not set; using the development secret")
		secret = devSessionSecret
	}

	e := api.NewRouter(api.Dependencies{
		Auth:           auth,
		Sessions:       sessions,
		Access:         access,
		Codec:          cookie.New(cfg.Auth.CookieName, secret, !cfg.IsDevelopment()),
		SessionTimeout: cfg.Auth.SessionTimeout(),
		Health:         health,
		Log:            logger.Component("http"),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("store", cfg.StoreDriver).
			Str("lockout_backend", cfg.LockoutBackend).
			Str("session_backend", cfg.SessionBackend).
			Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func closeDB(db *sql.DB, log zerolog.Logger) {
	if err := db.Close(); err != nil {
		log.Error().Err(err).Msg("mysql close failed")
	}
}

func disconnectMongo(client *mongodriver.Client, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		log.Error().Err(err).Msg("mongo disconnect failed")
	}
}
