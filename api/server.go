package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/defistate/defistate-arb-go/engine"
	"github.com/defistate/defistate-arb-go/journal"
	"github.com/defistate/defistate-arb-go/scanner"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	DefaultAddr  = ":8080"
	maxListLimit = 500

	shutdownTimeout = 5 * time.Second
)

// ScanStatus is the read side of the scanner.
type ScanStatus interface {
	Status() scanner.Status
	Paths() []engine.Path
	FormatPath(p engine.Path) string
	Trigger(source string) bool
}

// OpportunityLog lists journaled opportunities.
type OpportunityLog interface {
	List(ctx context.Context, limit int) ([]journal.Entry, error)
}

// SettlementControl toggles the emergency stop.
type SettlementControl interface {
	SetEmergencyStop(stop bool)
	EmergencyStopped() bool
	DryRun() bool
}

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds the configuration for the Server.
type Config struct {
	Addr    string
	Scanner ScanStatus
	// Journal and Settlement are optional; their routes answer 404 without them.
	Journal    OpportunityLog
	Settlement SettlementControl
	Gatherer   prometheus.Gatherer
	Logger     Logger
}

func (c *Config) validate() error {
	if c.Scanner == nil {
		return errors.New("config: Scanner is required")
	}
	if c.Gatherer == nil {
		return errors.New("config: Gatherer is required")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	return nil
}

// Server is the HTTP status surface.
type Server struct {
	addr       string
	engine     *gin.Engine
	scanner    ScanStatus
	journal    OpportunityLog
	settlement SettlementControl
	logger     Logger
}

type pathView struct {
	Rank      int          `json:"rank"`
	Route     string       `json:"route"`
	Hops      []engine.Hop `json:"hops"`
	Liquidity string       `json:"liquidity"`
}

type settlementView struct {
	EmergencyStop bool `json:"emergencyStop"`
	DryRun        bool `json:"dryRun"`
}

type statusView struct {
	scanner.Status
	Settlement *settlementView `json:"settlement,omitempty"`
}

// New creates a Server with its routes registered.
func New(cfg Config) (*Server, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		addr:       cfg.Addr,
		engine:     gin.New(),
		scanner:    cfg.Scanner,
		journal:    cfg.Journal,
		settlement: cfg.Settlement,
		logger:     cfg.Logger,
	}
	s.engine.Use(gin.Recovery(), s.requestLogger())

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	s.engine.GET("/status", s.status)
	s.engine.GET("/paths", s.paths)
	s.engine.POST("/scan", s.scan)
	s.engine.GET("/opportunities", s.opportunities)
	s.engine.POST("/settlement/halt", s.setEmergencyStop(true))
	s.engine.POST("/settlement/resume", s.setEmergencyStop(false))
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	return s, nil
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.engine, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("api request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (s *Server) status(c *gin.Context) {
	view := statusView{Status: s.scanner.Status()}
	if s.settlement != nil {
		view.Settlement = &settlementView{
			EmergencyStop: s.settlement.EmergencyStopped(),
			DryRun:        s.settlement.DryRun(),
		}
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) paths(c *gin.Context) {
	paths := s.scanner.Paths()
	out := make([]pathView, len(paths))
	for i, p := range paths {
		liq := "0"
		if p.Liquidity != nil {
			liq = p.Liquidity.String()
		}
		out[i] = pathView{Rank: i + 1, Route: s.scanner.FormatPath(p), Hops: p.Hops, Liquidity: liq}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) scan(c *gin.Context) {
	queued := s.scanner.Trigger(scanner.TriggerManual)
	c.JSON(http.StatusAccepted, gin.H{"queued": queued})
}

func (s *Server) opportunities(c *gin.Context) {
	if s.journal == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "journal disabled"})
		return
	}
	limit := journal.DefaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxListLimit)
	}
	entries, err := s.journal.List(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list opportunities", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "journal unavailable"})
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) setEmergencyStop(stop bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.settlement == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "settlement disabled"})
			return
		}
		s.settlement.SetEmergencyStop(stop)
		c.JSON(http.StatusOK, settlementView{
			EmergencyStop: s.settlement.EmergencyStopped(),
			DryRun:        s.settlement.DryRun(),
		})
	}
}
