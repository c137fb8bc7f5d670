package web

import (
	"context"
	"net/http"
	"sync"

	"github.com/arbmon/crypto_arb_monitor/internal/domain"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Hub broadcasts structured signals and notices to connected websocket
// clients. It implements domain.AlertDispatcher; message rendering is
// entirely up to the clients.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*websocket.Conn]bool),
	}
}

func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("websocket client connected", zap.Int("total", total))

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
		h.logger.Info("websocket client disconnected")
	}()

	// Drain the connection until the client goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) DispatchSignal(ctx context.Context, signal *domain.ArbitrageSignal) error {
	h.broadcast(map[string]interface{}{
		"type":   "arbitrage",
		"signal": signal,
	})
	return nil
}

func (h *Hub) DispatchNotice(ctx context.Context, notice domain.Notice) error {
	h.broadcast(map[string]interface{}{
		"type":   "notice",
		"notice": notice,
	})
	return nil
}

func (h *Hub) broadcast(message interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if err := client.WriteJSON(message); err != nil {
			h.logger.Warn("websocket write failed, dropping client", zap.Error(err))
			client.Close()
			delete(h.clients, client)
		}
	}
}
