package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/kilianp07/arbitrage/config"
	"github.com/kilianp07/arbitrage/core/logger"
	infralogger "github.com/kilianp07/arbitrage/infra/logger"
)

// Server is the HTTP front of the service.
type Server struct {
	cfg     config.ServerConfig
	handler http.Handler
	log     logger.Logger

	mu   sync.RWMutex
	addr string
}

// NewServer builds the router for svc.
func NewServer(svc Service, cfg config.ServerConfig) *Server {
	cfg.SetDefaults(0)
	log := infralogger.New("http")
	access := zerolog.Nop()
	if zl, ok := log.(*infralogger.ZerologLogger); ok {
		access = zl.Zerolog()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(Recovery())
	router.Use(AccessLog(access))

	h := handlers{svc: svc}
	router.GET("/health", h.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		v1.GET("/markets", h.listMarkets)
		v1.GET("/configurations", h.listConfigurations)
		v1.POST("/calculate-revenue/:market_id", h.calculateRevenue)
		v1.POST("/optimize", h.optimize)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{HeaderRunID},
		AllowCredentials: true,
	})
	return &Server{cfg: cfg, handler: c.Handler(router), log: log, addr: cfg.Addr}
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Addr returns the listening address once Start has been called.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// Start serves until the context is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.mu.Unlock()
	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSeconds) * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(s.cfg.ShutdownTimeoutSeconds)*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("shutdown server: %v", err)
		}
	}()
	s.log.Infof("API listening on %s", s.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
