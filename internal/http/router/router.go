// Package router builds the gin engine from an App.
package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	apphttp "github.com/Ruben-boon/CPM-crm-system-sub001/internal/http"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/apperr"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/httpkit"
)

const (
	requestsPerSecond = 20
	requestBurst      = 40
	healthTimeout     = 2 * time.Second
	roleAdmin         = "admin"
)

// New creates the engine with the shared middleware chain and lets every
// module register its routes.
func New(app *apphttp.App) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestID())
	engine.Use(httpkit.RequestLogger(app.Logger))
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(cors.New(corsConfig(app.Config)))
	engine.Use(httpkit.NewIPRateLimiter(rate.Limit(requestsPerSecond), requestBurst, app.Logger).RateLimit())

	engine.NoRoute(func(c *gin.Context) {
		httpkit.Error(c, http.StatusNotFound, apperr.CodeNotFound, "route not found", nil)
	})

	engine.GET("/api/health", func(c *gin.Context) {
		if app.Health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
			defer cancel()
			if err := app.Health.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := engine.Group("/api/v1")

	auth := httpkit.AuthRequired(app.Config)
	protected := v1.Group("")
	protected.Use(auth)
	admin := v1.Group("/admin")
	admin.Use(auth, httpkit.RequireRole(roleAdmin))

	rc := &apphttp.RouterContext{Protected: protected, Admin: admin}
	for _, m := range app.Modules {
		m.RegisterRoutes(rc)
		app.Logger.Debug("module routes registered", "module", m.Name())
	}

	return engine
}

func corsConfig(cfg apphttp.RouterConfig) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", httpkit.RequestIDHeader},
		ExposeHeaders:    []string{httpkit.RequestIDHeader},
		AllowCredentials: cfg.GetCORSAllowCreds(),
		MaxAge:           12 * time.Hour,
	}
	if cfg.GetCORSAllowAll() {
		c.AllowAllOrigins = true
		c.AllowCredentials = false
	} else {
		c.AllowOrigins = cfg.GetCORSOrigins()
		if len(c.AllowOrigins) == 0 {
			c.AllowOrigins = []string{"http://localhost:3000"}
		}
	}
	return c
}
