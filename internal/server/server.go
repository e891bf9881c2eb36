// Package server exposes the dashboard over HTTP: an HTML page, a JSON API,
// chart images, table export and interaction history.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"StockDash/internal/dashboard"
	"StockDash/internal/model"
	"StockDash/internal/recorder"
)

//go:embed templates/*.html
var templateFS embed.FS

// Options configures the HTTP layer.
type Options struct {
	Addr         string
	GinMode      string
	AllowOrigins []string
	Defaults     dashboard.Defaults
	HistoryLimit int
}

// Server serves the dashboard.
type Server struct {
	engine   *gin.Engine
	http     *http.Server
	svc      *dashboard.Service
	rec      recorder.Recorder
	defaults dashboard.Defaults
	history  int
	now      func() time.Time
}

// New builds the gin engine and registers all routes.
func New(svc *dashboard.Service, rec recorder.Recorder, opts Options) (*Server, error) {
	if opts.GinMode != "" {
		gin.SetMode(opts.GinMode)
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 50
	}

	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.SetTrustedProxies(nil)
	if len(opts.AllowOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  opts.AllowOrigins,
			AllowMethods:  []string{"GET", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type"},
			ExposeHeaders: []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
			MaxAge:        12 * time.Hour,
		}))
	}
	r.SetHTMLTemplate(tmpl)

	s := &Server{
		engine:   r,
		svc:      svc,
		rec:      rec,
		defaults: opts.Defaults,
		history:  opts.HistoryLimit,
		now:      time.Now,
	}
	s.routes()
	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() {
	s.engine.GET("/", s.index)
	s.engine.GET("/healthz", s.health)

	api := s.engine.Group("/api")
	api.GET("/series", s.series)
	api.GET("/history", s.historyList)
	api.GET("/export", s.export)

	chart := s.engine.Group("/chart")
	chart.GET("/price.png", s.priceChart)
	chart.GET("/volume.png", s.volumeChart)
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	log.Printf("[INFO] http server listening on %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("[INFO] shutting down http server")
	return s.http.Shutdown(ctx)
}

// run parses the request query and executes one interaction. A nil view with
// a non-nil error means the provider failed.
func (s *Server) run(c *gin.Context) (*dashboard.View, error) {
	q, err := dashboard.ParseQuery(c.Request.URL.Query(), s.defaults, s.now())
	if err != nil {
		return &dashboard.View{Query: q, Error: err.Error()}, nil
	}
	view, err := s.svc.Run(c.Request.Context(), q)
	if view != nil && view.RequestID != "" {
		c.Header("X-Request-ID", view.RequestID)
	}
	return view, err
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"provider": s.svc.Collector.Fetcher.Name(),
		"model":    s.svc.Projector.HasModel(),
	})
}

func (s *Server) historyList(c *gin.Context) {
	limit := s.history
	if v := c.Query("limit"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &limit); err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
	}
	events, err := s.rec.RecentQueries(limit)
	if err != nil {
		log.Printf("[ERROR] history: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read history"})
		return
	}
	if events == nil {
		events = []recorder.QueryEvent{}
	}
	c.JSON(http.StatusOK, gin.H{"queries": events})
}

func providerError(c *gin.Context, err error) {
	log.Printf("[ERROR] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusBadGateway, gin.H{"error": "market data provider error: " + err.Error()})
}

func dateString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(model.DateLayout)
}
