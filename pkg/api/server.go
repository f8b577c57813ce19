package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/telekom/k8s-peering/pkg/config"
	"github.com/telekom/k8s-peering/pkg/freeze"
	"github.com/telekom/k8s-peering/pkg/peering"
	"github.com/telekom/k8s-peering/pkg/system"
	"github.com/telekom/k8s-peering/pkg/version"
)

const (
	shutdownTimeout = 5 * time.Second
	// CorrelationIDHeader is read from requests and echoed as X-Request-ID.
	CorrelationIDHeader = "X-Correlation-ID"
)

type Server struct {
	gin        *gin.Engine
	config     config.Config
	log        *zap.SugaredLogger
	arbitrator *peering.Arbitrator
	gate       *freeze.Gate
}

// NewServer builds the status server. The arbitrator is nil in standalone mode.
func NewServer(log *zap.Logger, cfg config.Config, debug bool, arbitrator *peering.Arbitrator, gate *freeze.Gate) *Server {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		ginzap.Ginzap(log, time.RFC3339, true),
		ginzap.RecoveryWithZap(log, true),
	)
	if len(cfg.Server.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
			log.Sugar().Warnw("Ignoring invalid trusted proxies", "error", err)
		}
	}

	s := &Server{
		gin:        engine,
		config:     cfg,
		log:        log.Sugar(),
		arbitrator: arbitrator,
		gate:       gate,
	}

	api := engine.Group("api", s.requestLogger())
	api.GET("peering", s.getPeering)
	api.GET("debug/buildinfo", s.getBuildInfo)

	return s
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.gin
}

// Start serves until ctx is cancelled, then shuts the listener down.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Server.ListenAddress,
		Handler:           s.gin,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("Starting peering status API", "address", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("peering status API failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down peering status API: %w", err)
	}
	s.log.Info("Peering status API stopped")
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := c.GetHeader(CorrelationIDHeader)
		if cid == "" {
			cid = uuid.New().String()
		}
		c.Set("cid", cid)
		c.Writer.Header().Set("X-Request-ID", cid)
		c.Set(system.ReqLoggerKey, s.log.With("cid", cid, "method", c.Request.Method, "path", c.FullPath()))
		c.Next()
	}
}

func (s *Server) getPeering(c *gin.Context) {
	log := system.GetReqLogger(c, s.log)
	view := NewPeeringView(s.arbitrator, s.gate)
	log.Debugw("Serving peering view", "frozen", view.Frozen, "peers", len(view.Peers))
	c.JSON(http.StatusOK, view)
}

func (s *Server) getBuildInfo(c *gin.Context) {
	c.JSON(http.StatusOK, version.GetBuildInfo())
}
