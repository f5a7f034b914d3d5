package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/pprof"
	"path/filepath"
	"time"

	"github.com/atikulmunna/lograte/internal/analyzer"
	"github.com/atikulmunna/lograte/internal/hub"
	"github.com/atikulmunna/lograte/internal/output"
	"github.com/atikulmunna/lograte/internal/source"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultMaxUpload caps request bodies accepted by /api/analyze.
const DefaultMaxUpload int64 = 512 << 20

// Config holds the HTTP surface settings.
type Config struct {
	Addr      string
	MaxUpload int64
}

// Server exposes the analyzer over HTTP and streams run events to
// websocket subscribers.
type Server struct {
	engine    *gin.Engine
	http      *http.Server
	analyzer  *analyzer.Analyzer
	hub       *hub.Hub
	gatherer  prometheus.Gatherer
	maxUpload int64
	started   time.Time
}

// New creates the server. The analyzer should already be wired to record
// into the registry behind gatherer.
func New(cfg Config, a *analyzer.Analyzer, h *hub.Hub, gatherer prometheus.Gatherer) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false

	if cfg.MaxUpload <= 0 {
		cfg.MaxUpload = DefaultMaxUpload
	}

	s := &Server{
		engine:    engine,
		analyzer:  a,
		hub:       h,
		gatherer:  gatherer,
		maxUpload: cfg.MaxUpload,
		started:   time.Now(),
	}
	s.http = &http.Server{Addr: cfg.Addr, Handler: engine}

	s.setupRoutes()
	return s
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":         "ok",
			"uptime":         time.Since(s.started).Truncate(time.Second).String(),
			"subscribers":    s.hub.Subscribers(),
			"dropped_events": s.hub.Dropped(),
		})
	})

	s.engine.POST("/api/analyze", s.handleAnalyze)
	s.engine.GET("/ws", s.handleWebSocket)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	// pprof profiling endpoints.
	s.engine.GET("/debug/pprof/", gin.WrapF(pprof.Index))
	s.engine.GET("/debug/pprof/cmdline", gin.WrapF(pprof.Cmdline))
	s.engine.GET("/debug/pprof/profile", gin.WrapF(pprof.Profile))
	s.engine.GET("/debug/pprof/symbol", gin.WrapF(pprof.Symbol))
	s.engine.GET("/debug/pprof/trace", gin.WrapF(pprof.Trace))
	s.engine.GET("/debug/pprof/allocs", gin.WrapH(pprof.Handler("allocs")))
	s.engine.GET("/debug/pprof/heap", gin.WrapH(pprof.Handler("heap")))
	s.engine.GET("/debug/pprof/goroutine", gin.WrapH(pprof.Handler("goroutine")))
}

// handleAnalyze streams the request body through one analysis run. The
// "name" query parameter plays the role of the file name: a .gz suffix
// selects decompression.
func (s *Server) handleAnalyze(c *gin.Context) {
	name := filepath.Base(c.Query("name"))
	if name == "." || name == "/" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing name query parameter"})
		return
	}

	runID := uuid.NewString()
	collector := &output.Collector{}
	renderer := output.Tagged{
		Next:   output.Multi{collector, s.hub},
		RunID:  runID,
		Source: name,
	}

	body := http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)
	rep, err := s.analyzer.AnalyzeStream(name, body, renderer)
	rep.RunID = runID
	rep.Buckets = collector.Buckets()

	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "report": rep})
		return
	}
	c.JSON(http.StatusOK, rep)
}

func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, source.ErrDecompress):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Start runs the server. Blocks until the server is stopped.
func (s *Server) Start() error {
	if err := s.http.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight runs, and closes
// websocket subscribers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.http.Shutdown(ctx)
}
