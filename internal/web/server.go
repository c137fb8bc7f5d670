package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/arbmon/crypto_arb_monitor/internal/usecase"
	"go.uber.org/zap"
)

type Server struct {
	router         *http.ServeMux
	server         *http.Server
	marketService  *usecase.MarketService
	monitorService *usecase.MonitorService
	hub            *Hub
	exchanges      []string
	logger         *zap.Logger
}

func NewServer(
	port int,
	marketService *usecase.MarketService,
	monitorService *usecase.MonitorService,
	hub *Hub,
	defaultExchanges []string,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router:         http.NewServeMux(),
		marketService:  marketService,
		monitorService: monitorService,
		hub:            hub,
		exchanges:      defaultExchanges,
		logger:         logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}
	return s
}

func (s *Server) routes() {
	// Consolidated views
	s.router.HandleFunc("GET /api/cbbo", s.handleCbbo)
	s.router.HandleFunc("GET /api/market", s.handleViewMarket)
	s.router.HandleFunc("GET /api/check", s.handleCheck)

	// Monitoring sessions
	s.router.HandleFunc("POST /api/monitor", s.handleMonitorStart)
	s.router.HandleFunc("DELETE /api/monitor", s.handleMonitorStop)
	s.router.HandleFunc("POST /api/reset", s.handleReset)
	s.router.HandleFunc("GET /api/sessions", s.handleSessions)

	// History
	s.router.HandleFunc("GET /api/alerts", s.handleAlerts)
	s.router.HandleFunc("GET /api/history", s.handleHistory)

	// Status
	s.router.HandleFunc("GET /status", s.handleStatus)

	// Signal stream
	s.router.HandleFunc("GET /ws", s.hub.HandleWS)
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
