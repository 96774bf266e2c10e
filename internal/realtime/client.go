package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/nikhil/staffhub/internal/apperrors"
	"github.com/nikhil/staffhub/internal/metrics"
	"github.com/nikhil/staffhub/internal/models"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period
	pingPeriod = (pongWait * 9) / 10

	defaultMaxFrameSize = 64 * 1024
	defaultSendBuffer   = 256
)

// Handler processes inbound actions for a connection.
type Handler interface {
	// HandleEvent returns the ack payload for event or an error that becomes
	// a failure ack.
	HandleEvent(ctx context.Context, c *Client, event string, data json.RawMessage) (interface{}, error)
	HandleDisconnect(c *Client)
}

// Inbound is a frame received from the peer.
type Inbound struct {
	Event string          `json:"event"`
	Ack   json.RawMessage `json:"ack,omitempty"`
	Data  json.RawMessage `json:"data"`
}

// AckResult is the data of an ack frame.
type AckResult struct {
	Success bool           `json:"success"`
	Data    interface{}    `json:"data,omitempty"`
	Message string         `json:"message,omitempty"`
	Code    apperrors.Code `json:"code,omitempty"`
}

type ClientOptions struct {
	SendBuffer   int
	RateLimit    float64
	RateBurst    int
	MaxFrameSize int64
}

// Client represents a WebSocket connection
type Client struct {
	ID string

	hub *Hub

	// The websocket connection. Nil for connections that only exist in tests.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan []byte

	limiter      *rate.Limiter
	maxFrameSize int64

	mu   sync.RWMutex
	user models.User
}

func NewClient(hub *Hub, conn *websocket.Conn, user models.User, opts ClientOptions) *Client {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	if opts.MaxFrameSize <= 0 {
		opts.MaxFrameSize = defaultMaxFrameSize
	}
	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	burst := opts.RateBurst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		ID:           uuid.NewString(),
		hub:          hub,
		conn:         conn,
		send:         make(chan []byte, opts.SendBuffer),
		limiter:      rate.NewLimiter(limit, burst),
		maxFrameSize: opts.MaxFrameSize,
		user:         user,
	}
}

// User is the identity snapshot taken at handshake, or the latest refresh.
func (c *Client) User() models.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

func (c *Client) SetUser(u models.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = u
}

func (c *Client) UserID() string {
	return c.User().UserID
}

// Outbox exposes queued outbound frames. WritePump is its only consumer on a
// real connection.
func (c *Client) Outbox() <-chan []byte {
	return c.send
}

// Emit queues an event for this connection only.
func (c *Client) Emit(event string, data interface{}) bool {
	return c.write(Frame{Event: event, Data: data})
}

// Ack answers the inbound frame carrying id. A nil or empty id sends nothing.
func (c *Client) Ack(id json.RawMessage, result interface{}, err error) bool {
	if len(id) == 0 || bytes.Equal(id, []byte("null")) {
		return false
	}
	ack := AckResult{Success: err == nil, Data: result}
	if err != nil {
		ack.Data = nil
		ack.Message = apperrors.PublicMessage(err)
		ack.Code = apperrors.CodeOf(err)
		if ack.Code == apperrors.CodeUnknown {
			ack.Code = apperrors.CodeInternal
		}
	}
	return c.write(Frame{Event: "ack", Ack: id, Data: ack})
}

func (c *Client) write(frame Frame) bool {
	payload, err := json.Marshal(frame)
	if err != nil {
		c.hub.log.Error("Failed to encode frame", "error", err, "event", frame.Event)
		return false
	}
	return c.hub.deliver(c, payload)
}

// Dispatch runs one inbound frame through handler, enforcing the rate limit,
// and acks the result.
func (c *Client) Dispatch(ctx context.Context, handler Handler, raw []byte) {
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil || in.Event == "" {
		c.hub.log.Warn("Dropping malformed frame", "user_id", c.UserID(), "client_id", c.ID)
		c.Emit("error", AckResult{Message: "malformed frame", Code: apperrors.CodeInvalidArgument})
		return
	}

	if !c.limiter.Allow() {
		c.hub.metrics.RecordEvent(in.Event, metrics.OutcomeThrottle)
		c.Ack(in.Ack, nil, apperrors.New(apperrors.CodeFailedPrecondition, "rate limit exceeded"))
		return
	}

	result, err := handler.HandleEvent(ctx, c, in.Event, in.Data)
	c.Ack(in.Ack, result, err)
}

// ReadPump pumps messages from the WebSocket connection to handler until the
// peer goes away. It blocks; run WritePump alongside it.
func (c *Client) ReadPump(ctx context.Context, handler Handler) {
	defer func() {
		handler.HandleDisconnect(c)
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("Unexpected websocket close", "error", err, "user_id", c.UserID())
			}
			return
		}
		c.Dispatch(ctx, handler, message)
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
