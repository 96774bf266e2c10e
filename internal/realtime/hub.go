// Package realtime is the websocket room router: it tracks live connections,
// the rooms each one is subscribed to, and fans events out to rooms.
package realtime

import (
	"encoding/json"
	"sync"

	"github.com/nikhil/staffhub/internal/logger"
	"github.com/nikhil/staffhub/internal/metrics"
)

// BroadcastRoom holds every live connection.
const BroadcastRoom = "broadcast"

func ChannelRoom(channelID string) string { return "channel:" + channelID }

func UserRoom(userID string) string { return "user:" + userID }

// Frame is the outbound wire envelope.
type Frame struct {
	Event string          `json:"event"`
	Ack   json.RawMessage `json:"ack,omitempty"`
	Data  interface{}     `json:"data"`
}

// Hub maintains the set of active clients and the rooms they listen on.
type Hub struct {
	mu sync.RWMutex

	// Registered clients and the rooms each one has joined.
	clients map[*Client]map[string]struct{}

	// Room name to subscribers.
	rooms map[string]map[*Client]struct{}

	log     *logger.Logger
	metrics metrics.Recorder
}

// NewHub creates a new Hub instance
func NewHub(log *logger.Logger, rec metrics.Recorder) *Hub {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Hub{
		clients: make(map[*Client]map[string]struct{}),
		rooms:   make(map[string]map[*Client]struct{}),
		log:     log,
		metrics: rec,
	}
}

// Register adds c and subscribes it to the broadcast room and its user room.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		h.mu.Unlock()
		return
	}
	h.clients[c] = make(map[string]struct{})
	h.joinLocked(c, BroadcastRoom)
	h.joinLocked(c, UserRoom(c.UserID()))
	total := len(h.clients)
	h.mu.Unlock()

	h.metrics.ConnectionOpened()
	h.log.Debug("Client registered", "user_id", c.UserID(), "client_id", c.ID, "total_clients", total)
}

// Unregister releases every subscription of c and closes its send queue.
// Calling it twice is harmless.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	rooms, ok := h.clients[c]
	if !ok {
		h.mu.Unlock()
		return
	}
	for room := range rooms {
		h.removeFromRoomLocked(c, room)
	}
	delete(h.clients, c)
	close(c.send)
	total := len(h.clients)
	h.mu.Unlock()

	h.metrics.ConnectionClosed()
	h.log.Debug("Client unregistered", "user_id", c.UserID(), "client_id", c.ID, "total_clients", total)
}

func (h *Hub) joinLocked(c *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	h.clients[c][room] = struct{}{}
}

func (h *Hub) removeFromRoomLocked(c *Client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	if rooms, ok := h.clients[c]; ok {
		delete(rooms, room)
	}
}

// Join subscribes a registered client to room.
func (h *Hub) Join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		h.joinLocked(c, room)
	}
}

func (h *Hub) Leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromRoomLocked(c, room)
}

// JoinUser subscribes every live connection of userID to room and returns
// how many there were.
func (h *Hub) JoinUser(userID, room string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns := h.rooms[UserRoom(userID)]
	for c := range conns {
		h.joinLocked(c, room)
	}
	return len(conns)
}

func (h *Hub) LeaveUser(userID, room string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns := make([]*Client, 0, len(h.rooms[UserRoom(userID)]))
	for c := range h.rooms[UserRoom(userID)] {
		conns = append(conns, c)
	}
	for _, c := range conns {
		h.removeFromRoomLocked(c, room)
	}
	return len(conns)
}

// EmitToRoom sends event to every subscriber of room and returns the number
// of connections it was queued for.
func (h *Hub) EmitToRoom(room, event string, data interface{}) int {
	return h.emit(room, nil, event, data)
}

// EmitToRoomExcept is EmitToRoom skipping one connection, usually the sender.
func (h *Hub) EmitToRoomExcept(room string, except *Client, event string, data interface{}) int {
	return h.emit(room, except, event, data)
}

func (h *Hub) EmitToUser(userID, event string, data interface{}) int {
	return h.emit(UserRoom(userID), nil, event, data)
}

// Broadcast emits to the broadcast room, which every connection joins on register.
func (h *Hub) Broadcast(event string, data interface{}) int {
	return h.emit(BroadcastRoom, nil, event, data)
}

func (h *Hub) emit(room string, except *Client, event string, data interface{}) int {
	payload, err := json.Marshal(Frame{Event: event, Data: data})
	if err != nil {
		h.log.Error("Failed to encode event", "error", err, "event", event, "room", room)
		return 0
	}

	var stale []*Client
	sent := 0
	h.mu.RLock()
	for c := range h.rooms[room] {
		if c == except {
			continue
		}
		select {
		case c.send <- payload:
			sent++
		default:
			stale = append(stale, c)
		}
	}
	h.mu.RUnlock()

	h.dropStale(stale)
	h.metrics.RecordBroadcast(event)
	return sent
}

// deliver queues payload for one client. False means c is gone or was dropped.
func (h *Hub) deliver(c *Client, payload []byte) bool {
	h.mu.RLock()
	if _, ok := h.clients[c]; !ok {
		h.mu.RUnlock()
		return false
	}
	select {
	case c.send <- payload:
		h.mu.RUnlock()
		return true
	default:
	}
	h.mu.RUnlock()

	h.dropStale([]*Client{c})
	return false
}

// dropStale evicts clients whose send buffer is full.
func (h *Hub) dropStale(stale []*Client) {
	for _, c := range stale {
		h.log.Warn("Client buffer full, dropping connection", "user_id", c.UserID(), "client_id", c.ID)
		h.metrics.RecordDroppedClient()
		h.Unregister(c)
	}
}

func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// InRoom reports whether c is subscribed to room.
func (h *Hub) InRoom(c *Client, room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[room][c]
	return ok
}

// Shutdown unregisters every client, which makes their write pumps send a
// close frame.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	all := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		all = append(all, c)
	}
	h.mu.RUnlock()

	for _, c := range all {
		h.Unregister(c)
	}
}
