package app

import (
	"context"
	"net/http"
	"time"

	"github.com/mattyz777/matt-conduit/internal/auth"
	"github.com/mattyz777/matt-conduit/internal/cache"
	"github.com/mattyz777/matt-conduit/internal/config"
	"github.com/mattyz777/matt-conduit/internal/handlers"
	"github.com/mattyz777/matt-conduit/internal/repo"
	"github.com/mattyz777/matt-conduit/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/swaggo/swag"
	"go.uber.org/zap"
)

// Pinger is anything /health can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

type redisPinger struct{ rdb *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.rdb.Ping(ctx).Err() }

// Setup registers all routes on the given engine.
func Setup(r *gin.Engine, cfg config.Config, log *zap.Logger, db *pgxpool.Pool, rdb *redis.Client) {
	var accountCache service.AccountCache
	if ttl := cfg.Redis.DefaultTTL.Duration(); ttl > 0 {
		accountCache = cache.NewAccountCache(rdb, ttl)
	}
	accountSvc := service.NewAccountService(
		repo.NewPGAccountRepo(db),
		auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		accountCache,
		log,
	)

	registerServiceRoutes(r, cfg, map[string]Pinger{"postgres": db, "redis": redisPinger{rdb}})
	handlers.RegisterAccountRoutes(r.Group("/api/v1"), handlers.NewAccountHandler(accountSvc))
}

func registerServiceRoutes(r *gin.Engine, cfg config.Config, deps map[string]Pinger) {
	r.GET("/", rootHandler(cfg))
	r.GET("/health", healthHandler(cfg, deps))
	r.GET("/version", versionHandler(cfg))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger-doc.json", swaggerDocHandler())
	r.GET("/swagger", func(c *gin.Context) { c.Redirect(http.StatusFound, "/swagger/index.html") })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(
		swaggerFiles.Handler,
		ginSwagger.URL("/swagger-doc.json"),
		ginSwagger.DefaultModelsExpandDepth(-1),
	))
}

func rootHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "Account API",
			"version": cfg.App.Version,
			"env":     cfg.App.Env,
			"docs":    "/swagger/index.html",
			"spec":    "/swagger-doc.json",
			"health":  "/health",
			"metrics": "/metrics",
			"api":     "/api/v1",
		})
	}
}

func healthHandler(cfg config.Config, deps map[string]Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := make(gin.H, len(deps))
		for name, p := range deps {
			if err := p.Ping(ctx); err != nil {
				checks[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}
		c.JSON(status, gin.H{"ok": status == http.StatusOK, "env": cfg.App.Env, "checks": checks})
	}
}

func versionHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"version": cfg.App.Version})
	}
}

func swaggerDocHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := swag.ReadDoc("swagger")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(doc))
	}
}
