// Package httpapi exposes the catalog repositories over HTTP with gin.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goliatone/go-catalog-cache/catalog"
)

// Deps are the collaborators of the HTTP surface.
type Deps struct {
	Films   Catalog[catalog.Film]
	Genres  Catalog[catalog.Genre]
	Persons Catalog[catalog.Person]

	// Ready reports whether the cache and the search backend answer.
	Ready func(ctx context.Context) error

	// Verifier guards the catalog routes when set.
	Verifier TokenVerifier

	Logger *slog.Logger
}

// NewRouter builds the gin engine serving the catalog API.
func NewRouter(deps Deps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.RedirectTrailingSlash = true
	r.Use(gin.Recovery(), RequestID(logger.With(slog.String("component", "http"))), AccessLog(), Metrics())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	v1.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	v1.GET("/readyz", func(c *gin.Context) {
		if deps.Ready != nil {
			if err := deps.Ready(c.Request.Context()); err != nil {
				loggerFrom(c).Warn("not ready", slog.Any("error", err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	api := v1.Group("")
	if deps.Verifier != nil {
		api.Use(Auth(deps.Verifier))
	}
	if deps.Films != nil {
		registerEntity(api, "/films", deps.Films)
	}
	if deps.Genres != nil {
		registerEntity(api, "/genres", deps.Genres)
	}
	if deps.Persons != nil {
		registerEntity(api, "/persons", deps.Persons)
	}

	return r
}
