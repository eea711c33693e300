package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mattyz777/matt-conduit/internal/config"
	"github.com/mattyz777/matt-conduit/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type App struct {
	cfg    config.Config
	log    *zap.Logger
	db     *pgxpool.Pool
	redis  *redis.Client
	router *gin.Engine
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log}

	db, err := newPostgres(cfg.PG)
	if err != nil {
		return nil, err
	}
	a.db = db
	log.Info("postgres connected", zap.Int32("max_conns", cfg.PG.MaxConns))

	rdb, err := newRedis(cfg.Redis)
	if err != nil {
		db.Close()
		return nil, err
	}
	a.redis = rdb
	log.Info("redis connected", zap.String("addr", cfg.Redis.Addr))

	if err := runMigrations(cfg.PG.DSN, cfg.PG.MigrationsDir); err != nil {
		a.redis.Close()
		a.db.Close()
		return nil, err
	}
	log.Info("migrations applied", zap.String("dir", cfg.PG.MigrationsDir))

	a.router = newRouter(cfg, log, a.db, a.redis)
	return a, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

// Close releases Redis and the Postgres pool, giving up when ctx expires.
func (a *App) Close(ctx context.Context) error {
	var cs []closer
	if a.redis != nil {
		cs = append(cs, closer{name: "redis", fn: a.redis.Close})
	}
	if a.db != nil {
		cs = append(cs, closer{name: "postgres", fn: func() error { a.db.Close(); return nil }})
	}
	if err := closeAll(ctx, cs); err != nil {
		a.log.Warn("shutdown incomplete", zap.Error(err))
		return err
	}
	return nil
}

type closer struct {
	name string
	fn   func() error
}

// closeAll runs cs in order. A closer still running when ctx ends is abandoned.
func closeAll(ctx context.Context, cs []closer) error {
	var errs []error
	for _, c := range cs {
		done := make(chan error, 1)
		go func() { done <- c.fn() }()
		select {
		case err := <-done:
			if err != nil {
				errs = append(errs, fmt.Errorf("%s close: %w", c.name, err))
			}
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("%s close: %w", c.name, ctx.Err()))
			return errors.Join(errs...)
		}
	}
	return errors.Join(errs...)
}

func newPostgres(cfg config.PGConfig) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg parse config: %w", err)
	}
	pcfg.MaxConns = cfg.MaxConns
	pcfg.MinConns = cfg.MinConns
	pcfg.MaxConnIdleTime = 5 * time.Minute
	pcfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), pcfg)
	if err != nil {
		return nil, fmt.Errorf("pg connect: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg ping: %w", err)
	}

	return pool, nil
}

func newRedis(cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return rdb, nil
}

func runMigrations(dsn string, migrationsDir string) error {
	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return fmt.Errorf("goose open db: %w", err)
	}
	defer db.Close()

	if err := goose.Up(db, migrationsDir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

func newRouter(cfg config.Config, log *zap.Logger, db *pgxpool.Pool, rdb *redis.Client) *gin.Engine {
	if cfg.App.Env == "prod" || cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID(log), middleware.AccessLog())

	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", middleware.HeaderRequestID},
		ExposeHeaders: []string{"Content-Length", "Content-Type", middleware.HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}))

	Setup(r, cfg, log, db, rdb)
	return r
}
