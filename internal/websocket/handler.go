package websocket

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for development (use proper CORS in production)
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler serves WebSocket subscriptions to live auction events.
type Handler struct {
	manager *Manager
	logger  *zap.Logger
}

// NewHandler creates a WebSocket handler.
func NewHandler(manager *Manager, logger *zap.Logger) *Handler {
	return &Handler{manager: manager, logger: logger}
}

// SetupRoutes configures the WebSocket routes.
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/ws/auctions/{id}", h.HandleWebSocket)
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/stats/auctions/{id}", h.GetStats).Methods("GET")

	return router
}

// HandleWebSocket upgrades the connection and registers the client on
// the requested auction.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	auctionID := vars["id"]

	if auctionID == "" {
		http.Error(w, "Auction ID is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade connection", zap.Error(err))
		return
	}

	client := &Client{
		ID:        uuid.New().String(),
		AuctionID: auctionID,
		Conn:      conn,
		Send:      make(chan []byte, 256),
	}

	h.manager.RegisterClient(client)
	client.StartReadPump(h.manager.unregister)

	welcome := fmt.Sprintf(`{"type":"connected","auctionId":"%s","clientId":"%s"}`, auctionID, client.ID)
	client.Send <- []byte(welcome)
}

// HealthCheck returns service health.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","service":"broadcast-service"}`)
}

// GetStats returns the subscriber count for an auction.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	auctionID := vars["id"]

	count := h.manager.SubscriberCount(auctionID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"auctionId":"%s","subscribers":%d}`, auctionID, count)
}
