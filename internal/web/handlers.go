package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/arbmon/crypto_arb_monitor/internal/domain"
	"github.com/arbmon/crypto_arb_monitor/internal/usecase"
	"go.uber.org/zap"
)

func (s *Server) handleCbbo(w http.ResponseWriter, r *http.Request) {
	symbol, exchanges, ok := s.symbolAndExchanges(w, r)
	if !ok {
		return
	}

	_, cbbo, err := s.marketService.ViewMarket(r.Context(), symbol, exchanges)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, cbbo)
}

func (s *Server) handleViewMarket(w http.ResponseWriter, r *http.Request) {
	symbol, exchanges, ok := s.symbolAndExchanges(w, r)
	if !ok {
		return
	}

	set, cbbo, err := s.marketService.ViewMarket(r.Context(), symbol, exchanges)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, map[string]interface{}{
		"quotes": set,
		"cbbo":   cbbo,
	})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	symbol, exchanges, ok := s.symbolAndExchanges(w, r)
	if !ok {
		return
	}

	threshold := usecase.DefaultThresholdPct
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			http.Error(w, "invalid threshold", http.StatusBadRequest)
			return
		}
		threshold = v
	}

	result, err := s.marketService.Check(r.Context(), symbol, exchanges, threshold)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, result)
}

type monitorRequest struct {
	ContextID    string   `json:"context_id"`
	Symbol       string   `json:"symbol"`
	Exchanges    []string `json:"exchanges"`
	ThresholdPct float64  `json:"threshold_pct"`
	IntervalMs   int64    `json:"interval_ms"`
}

func (s *Server) handleMonitorStart(w http.ResponseWriter, r *http.Request) {
	var req monitorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ContextID == "" {
		http.Error(w, "context_id is required", http.StatusBadRequest)
		return
	}

	symbol, err := domain.ParseSymbol(req.Symbol)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	exchanges := req.Exchanges
	if len(exchanges) == 0 {
		exchanges = s.exchanges
	}

	listed, err := s.marketService.SymbolListed(r.Context(), symbol, exchanges)
	if err != nil {
		// Upstream listings being unreachable must not block monitoring.
		s.logger.Warn("Symbol validation unavailable, starting anyway", zap.Error(err))
	} else if !listed {
		http.Error(w, fmt.Sprintf("symbol %s is not listed on any requested exchange", symbol), http.StatusBadRequest)
		return
	}

	session, err := s.monitorService.Start(r.Context(), req.ContextID, symbol, exchanges,
		req.ThresholdPct, time.Duration(req.IntervalMs)*time.Millisecond)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, session)
}

func (s *Server) handleMonitorStop(w http.ResponseWriter, r *http.Request) {
	contextID := r.URL.Query().Get("context_id")
	if contextID == "" {
		http.Error(w, "context_id is required", http.StatusBadRequest)
		return
	}

	symbol, err := domain.ParseSymbol(r.URL.Query().Get("symbol"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.monitorService.Stop(r.Context(), contextID, symbol); err != nil {
		s.logger.Error("Failed to stop session", zap.Error(err))
		http.Error(w, "failed to stop session", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, map[string]string{"status": "stopped"})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ContextID string `json:"context_id"`
	}
	// An empty body means reset everything.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	var err error
	if req.ContextID == "" {
		err = s.monitorService.ResetAll(r.Context())
	} else {
		err = s.monitorService.Reset(r.Context(), req.ContextID)
	}
	if err != nil {
		s.logger.Error("Failed to reset sessions", zap.Error(err))
		http.Error(w, "failed to reset sessions", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, map[string]string{"status": "reset"})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.monitorService.Sessions())
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = v
	}

	alerts, err := s.marketService.RecentAlerts(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list alerts", zap.Error(err))
		http.Error(w, "failed to list alerts", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, alerts)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	symbol, err := domain.ParseSymbol(r.URL.Query().Get("symbol"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = v
	}

	quotes, err := s.marketService.QuoteHistory(r.Context(), symbol, limit)
	if err != nil {
		s.logger.Error("Failed to list quote history", zap.Error(err))
		http.Error(w, "failed to list quote history", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, quotes)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"status":          "ok",
		"active_sessions": len(s.monitorService.Sessions()),
		"exchanges":       s.exchanges,
	})
}

func (s *Server) symbolAndExchanges(w http.ResponseWriter, r *http.Request) (domain.CanonicalSymbol, []string, bool) {
	symbol, err := domain.ParseSymbol(r.URL.Query().Get("symbol"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return domain.CanonicalSymbol{}, nil, false
	}

	exchanges := s.exchanges
	if raw := r.URL.Query().Get("exchanges"); raw != "" {
		exchanges = strings.Split(raw, ",")
	}
	return symbol, exchanges, true
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidSymbolFormat),
		errors.Is(err, domain.ErrUnknownExchange),
		errors.Is(err, domain.ErrInsufficientVenues):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		s.logger.Error("Request failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}
