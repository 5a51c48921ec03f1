// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"mailadmin-service/internal/config"
	"mailadmin-service/internal/db"
	"mailadmin-service/internal/db/migrate"
	"mailadmin-service/internal/pkg/session"
	"mailadmin-service/internal/repository"
	"mailadmin-service/internal/repository/memory"
	"mailadmin-service/internal/repository/postgres"
	authUsecase "mailadmin-service/internal/service/auth"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	cfg    *config.AppConfig
	logger *zap.Logger

	httpServer *http.Server
	pool       *pgxpool.Pool
	redis      *redis.Client
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

func NewServer(cfg *config.AppConfig, logger *zap.Logger) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	return &Server{cfg: cfg, logger: logger}
}

// Start connects storage, starts the background loops and serves HTTP until Shutdown.
func (s *Server) Start(ctx context.Context) error {
	// ----- Storage -----
	store, err := s.openStore(ctx)
	if err != nil {
		return err
	}

	// ----- Redis -----
	var limiter authUsecase.LoginLimiter
	if s.cfg.RedisAddr != "" {
		client, err := db.NewRedisClient(db.RedisConfig{
			Addr:     s.cfg.RedisAddr,
			Password: s.cfg.RedisPass,
			DB:       s.cfg.RedisDB,
			PoolSize: 10,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		s.redis = client
		limiter = session.NewRateLimiter(client, s.cfg.LoginMaxAttempts, s.cfg.LoginWindow)
		s.logger.Info("login rate limiting enabled", zap.String("redis", s.cfg.RedisAddr))
	} else {
		s.logger.Warn("REDIS_ADDR not set, login rate limiting disabled")
	}

	comps, err := Wire(s.cfg, s.logger, store, limiter)
	if err != nil {
		return err
	}

	// ----- Background work -----
	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		comps.Hub.Run(runCtx)
	}()
	go func() {
		defer s.wg.Done()
		comps.Reaper.Run(runCtx, s.cfg.SessionReapInterval)
	}()

	// ----- HTTP -----
	s.httpServer = &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           comps.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("server listening", zap.String("addr", s.cfg.HTTPAddr), zap.String("env", s.cfg.Env))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then stops the background loops and closes connections.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	if s.cancel != nil {
		s.cancel()
		s.wg.Wait()
	}
	if s.redis != nil {
		if cerr := s.redis.Close(); cerr != nil {
			s.logger.Warn("failed to close redis", zap.Error(cerr))
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}

func (s *Server) openStore(ctx context.Context) (repository.Store, error) {
	if s.cfg.DatabaseURL == "" {
		if s.cfg.IsProduction() {
			return nil, errors.New("DATABASE_URL is required in production")
		}
		s.logger.Warn("DATABASE_URL not set, using in-memory store")
		return memory.NewStore(), nil
	}

	if s.cfg.AutoMigrate {
		if err := migrate.Run(s.cfg.DatabaseURL, "up"); err != nil {
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
		s.logger.Info("database migrations applied")
	}

	pool, err := db.ConnectDB(ctx, s.cfg.DatabaseURL, s.cfg.DBMaxConns)
	if err != nil {
		return nil, err
	}
	s.pool = pool
	s.logger.Info("connected to postgres")
	return postgres.NewDB(pool), nil
}
