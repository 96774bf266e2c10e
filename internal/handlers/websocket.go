package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/nikhil/staffhub/internal/apperrors"
	"github.com/nikhil/staffhub/internal/chat"
	"github.com/nikhil/staffhub/internal/logger"
	"github.com/nikhil/staffhub/internal/middleware"
	"github.com/nikhil/staffhub/internal/realtime"
)

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	hub      *realtime.Hub
	engine   *chat.Engine
	opts     realtime.ClientOptions
	upgrader websocket.Upgrader
	log      *logger.Logger
}

// NewWebSocketHandler creates a new WebSocket handler. An empty origin list
// accepts any origin.
func NewWebSocketHandler(hub *realtime.Hub, engine *chat.Engine, opts realtime.ClientOptions, allowedOrigins []string, log *logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hub,
		engine: engine,
		opts:   opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		log: log,
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.ToLower(strings.TrimRight(o, "/"))] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		_, ok := set[strings.ToLower(u.Scheme+"://"+u.Host)]
		return ok
	}
}

// HandleWebSocket upgrades an authenticated request and serves it until the
// peer disconnects.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Get user information from context (set by auth middleware)
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, apperrors.ErrMissingToken)
		return
	}

	log := h.log.WithFields(map[string]interface{}{
		"user_id":     user.UserID,
		"remote_addr": r.RemoteAddr,
	})

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("Error upgrading connection", "error", err)
		return
	}

	client := realtime.NewClient(h.hub, conn, user, h.opts)
	if err := h.engine.Connect(r.Context(), client); err != nil {
		log.Error("Failed to bind connection", "error", err, "client_id", client.ID)
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "internal error"))
		conn.Close()
		return
	}

	go client.WritePump()
	client.ReadPump(r.Context(), h.engine)
}
