package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"fieldreport/internal/infrastructure"
	"fieldreport/pkg/contracts/events"
)

const broadcastBuffer = 256

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Outbound messages for every client
	broadcast chan []byte

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	mu sync.RWMutex

	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics

	totalConnections int64
	messagesSent     int64
	droppedClients   int64

	quit     chan struct{}
	running  bool
	stopOnce sync.Once
}

// NewHub creates a new Hub instance with dependency injection
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	return &Hub{
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		quit:       make(chan struct{}),
	}
}

// SetMetrics attaches the application metrics used for client gauges
func (h *Hub) SetMetrics(metrics *infrastructure.BusinessMetrics) {
	h.mu.Lock()
	h.metrics = metrics
	h.mu.Unlock()
}

// Start starts the hub loop in its own goroutine
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.Run()
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			h.logger.Info("Hub shutting down")
			h.closeAll()
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client, "normal")

		case message := <-h.broadcast:
			h.fanOut(message)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.totalConnections++
	metrics := h.metrics
	h.mu.Unlock()

	ctx := client.context()
	h.logger.InfoContext(ctx, "Client registered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.String("remote_addr", client.remoteAddr))

	if metrics != nil {
		metrics.WebSocketClients.Add(ctx, 1)
	}

	data, err := encodeMessage(events.MessageTypeConnect, events.ConnectEvent{
		Status:   "connected",
		ClientID: client.id,
		Message:  "Connected to report notifications",
	}, client.traceID)
	if err != nil {
		return
	}

	select {
	case client.send <- data:
	default:
		h.logger.WarnContext(ctx, "Failed to send connection message - client buffer full",
			slog.String("client_id", client.id))
	}
}

func (h *Hub) removeClient(client *Client, reason string) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	count := len(h.clients)
	metrics := h.metrics
	h.mu.Unlock()

	ctx := client.context()
	h.logger.InfoContext(ctx, "Client unregistered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.String("reason", reason),
		slog.Duration("connection_duration", time.Since(client.connectedAt)))

	if metrics != nil {
		metrics.WebSocketClients.Add(ctx, -1)
	}
}

func (h *Hub) fanOut(message []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	failCount := 0
	for _, client := range clients {
		select {
		case client.send <- message:
			h.mu.Lock()
			h.messagesSent++
			h.mu.Unlock()
		default:
			// Slow consumers are dropped rather than stalling the hub.
			failCount++
			h.mu.Lock()
			h.droppedClients++
			h.mu.Unlock()
			h.removeClient(client, "buffer_full")
		}
	}

	h.logger.Debug("Broadcast message to clients",
		slog.Int("client_count", len(clients)),
		slog.Int("fail_count", failCount),
		slog.Int("message_size", len(message)))
}

// Broadcast queues a typed message for every connected client.
// It returns without sending once the hub is stopped.
func (h *Hub) Broadcast(ctx context.Context, msgType events.MessageType, data interface{}) {
	traceID := infrastructure.GetTraceID(ctx)
	payload, err := encodeMessage(msgType, data, traceID)
	if err != nil {
		h.logger.ErrorContext(ctx, "Error marshaling message",
			slog.String("error", err.Error()),
			slog.String("message_type", string(msgType)))
		return
	}

	select {
	case h.broadcast <- payload:
	case <-h.quit:
	case <-ctx.Done():
		h.logger.WarnContext(ctx, "Broadcast abandoned",
			slog.String("message_type", string(msgType)),
			slog.String("error", ctx.Err().Error()))
	}
}

// BroadcastExport announces the outcome of an export attempt
func (h *Hub) BroadcastExport(ctx context.Context, event events.ExportEvent, failed bool) {
	msgType := events.MessageTypeReportExported
	if failed {
		msgType = events.MessageTypeReportExportFailed
	}
	h.Broadcast(ctx, msgType, event)
}

func encodeMessage(msgType events.MessageType, data interface{}, traceID string) ([]byte, error) {
	return json.Marshal(events.WebSocketMessage{
		BaseMessage: events.BaseMessage{
			Type:      msgType,
			Timestamp: time.Now().UTC(),
			TraceID:   traceID,
		},
		Data: data,
	})
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// Stop gracefully stops the hub. Client send channels are closed by the
// hub loop, or right here when the loop never started.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		h.mu.Lock()
		wasRunning := h.running
		h.running = false
		close(h.quit)
		h.mu.Unlock()

		if !wasRunning {
			h.closeAll()
		}
	})
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// GetHubMetrics returns current hub counters
func (h *Hub) GetHubMetrics() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return map[string]interface{}{
		"active_clients":    len(h.clients),
		"total_connections": h.totalConnections,
		"messages_sent":     h.messagesSent,
		"dropped_clients":   h.droppedClients,
	}
}
