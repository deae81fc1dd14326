// Package httpapi exposes health, run status and metrics over HTTP while a
// generation run is in progress.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rtm0/solargrid/internal/pipeline"
)

// StatusProvider reports the state of a run.
type StatusProvider interface {
	Status() pipeline.Status
}

// Server serves /healthz, /status and /metrics.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	status     StatusProvider
	logger     *slog.Logger
}

// NewServer creates the server listening on addr.
func NewServer(addr string, status StatusProvider, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		router: router,
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		status: status,
		logger: logger,
	}
	router.GET("/healthz", s.handleHealth)
	router.GET("/status", s.handleStatus)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the router, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

type rangeJSON struct {
	Worker int    `json:"worker"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Days   int    `json:"days"`
}

type statusJSON struct {
	Phase     string      `json:"phase"`
	Start     string      `json:"start,omitempty"`
	End       string      `json:"end,omitempty"`
	Workers   int         `json:"workers"`
	Ranges    []rangeJSON `json:"ranges"`
	TotalDays int         `json:"total_days"`
	Written   int         `json:"written"`
	Failed    int         `json:"failed"`
}

func (s *Server) handleStatus(c *gin.Context) {
	st := s.status.Status()
	out := statusJSON{
		Phase:     string(st.Phase),
		Workers:   st.Workers,
		Ranges:    make([]rangeJSON, len(st.Ranges)),
		TotalDays: st.TotalDays,
		Written:   st.Written,
		Failed:    st.Failed,
	}
	if !st.Start.IsZero() {
		out.Start = st.Start.Format(time.DateOnly)
		out.End = st.End.Format(time.DateOnly)
	}
	for i, r := range st.Ranges {
		out.Ranges[i] = rangeJSON{
			Worker: i,
			Start:  r.Start.Format(time.DateOnly),
			End:    r.End.Format(time.DateOnly),
			Days:   r.Days(),
		}
	}
	c.JSON(http.StatusOK, out)
}
