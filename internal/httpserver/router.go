package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kevsands/prop-ie/internal/model"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Status exposes the read-only state served over HTTP.
type Status interface {
	Identity() model.Identity
	ConnectionState() string
	Snapshot() ([]model.Notification, int)
}

// NewRouter builds the local HTTP surface: health, metrics and a read-only
// view of the notification center.
func NewRouter(status Status, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": Version})
	})
	r.HEAD("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/notifications", func(c *gin.Context) {
		id := status.Identity()
		if !id.Authenticated {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
			return
		}

		records, unread := status.Snapshot()
		c.JSON(http.StatusOK, gin.H{
			"userId":        id.UserID,
			"connection":    status.ConnectionState(),
			"unreadCount":   unread,
			"notifications": records,
		})
	})

	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// Server runs the router until its context is cancelled.
type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

// NewServer returns a Server listening on addr.
func NewServer(addr string, handler http.Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", s.srv.Addr))
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
