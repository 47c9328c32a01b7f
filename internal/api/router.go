// Package api exposes the simulation session over HTTP. Routes map one to
// one onto session.Controller commands.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nvandessel/seird/internal/logging"
	"github.com/nvandessel/seird/internal/ratelimit"
	"github.com/nvandessel/seird/internal/session"
)

// Options configures the router.
type Options struct {
	// AllowedOrigins lists the CORS origins. "*" allows any origin; an
	// empty list disables CORS headers.
	AllowedOrigins []string

	// Limits guards expensive commands per client address. Nil uses
	// ratelimit.DefaultLimits.
	Limits ratelimit.Limits

	Logger *slog.Logger
}

// NewRouter builds the gin engine serving ctrl.
func NewRouter(ctrl *session.Controller, opts Options) *gin.Engine {
	if opts.Limits == nil {
		opts.Limits = ratelimit.DefaultLimits()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}

	h := &Handler{ctrl: ctrl, limits: opts.Limits, logger: opts.Logger}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(opts.Logger))
	if mw := CORS(opts.AllowedOrigins); mw != nil {
		r.Use(mw)
	}

	r.GET("/healthcheck", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	api := r.Group("/api")

	graphs := api.Group("/graph")
	{
		graphs.GET("", h.GetGraph)
		graphs.GET("/default", h.DefaultGraph)
		graphs.GET("/random", h.RandomGraph)
		graphs.POST("/upload", h.UploadGraph)
	}

	sim := api.Group("/simulation")
	{
		sim.POST("/init", h.Init)
		sim.POST("/start", h.Start)
		sim.POST("/step", h.Step)
		sim.POST("/pause", h.Pause)
		sim.POST("/rewind", h.Rewind)
		sim.POST("/reset", h.Reset)
		sim.GET("/state", h.State)
		sim.GET("/history", h.History)
	}

	return r
}
