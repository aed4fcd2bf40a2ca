package websocket

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"fieldreport/internal/infrastructure"
)

// Handler upgrades notification requests and attaches the client to the hub.
// An empty origin list accepts every origin.
func Handler(hub *Hub, allowedOrigins []string, logger *slog.Logger) http.HandlerFunc {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger = logger.With(slog.String("component", "websocket.handler"))

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(allowedOrigins) == 0 {
				return true
			}
			for _, allowed := range allowedOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			logger.WarnContext(r.Context(), "WebSocket origin check - origin not allowed",
				slog.String("origin", origin),
				slog.Any("allowed_origins", allowedOrigins))
			return false
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := infrastructure.EnsureTraceID(r.Context())
		traceID := infrastructure.GetTraceID(ctx)

		// Upgrade writes its own error response.
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.ErrorContext(ctx, "WebSocket upgrade failed",
				slog.String("error", err.Error()),
				slog.String("origin", r.Header.Get("Origin")))
			return
		}

		client := NewClient(hub, conn, traceID, logger)
		ServeClient(hub, client)

		logger.InfoContext(ctx, "WebSocket client connected",
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("client_id", client.ID()))
	}
}
