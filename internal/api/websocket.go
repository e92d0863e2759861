package api

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/carpark-core/internal/carpark"
	"github.com/nerrad567/carpark-core/internal/infrastructure/config"
	"github.com/nerrad567/carpark-core/internal/infrastructure/logging"
)

// Frame types on the panel socket.
const (
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
	FramePing        = "ping"
	FramePong        = "pong"
	FrameEvent       = "event"
	FrameAck         = "response"
	FrameError       = "error"

	// ChannelLotUpdated carries every display update pushed by the lot.
	ChannelLotUpdated = "lot.updated"

	viewerQueueLen = 256
)

// Frame is one JSON message on the panel socket, in either direction.
type Frame struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// ChannelList is the payload of subscribe and unsubscribe frames.
type ChannelList struct {
	Channels []string `json:"channels"`
}

// inbound is a client frame with the payload left undecoded.
type inbound struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

func stamped(f Frame) []byte {
	f.Timestamp = time.Now().UTC().Format(time.RFC3339)
	data, _ := json.Marshal(f) //nolint:errcheck // payloads are maps and slices of plain values
	return data
}

// Hub fans lot updates out to connected panels.
//
// It is registered with the lot as a display: every Update goes out on
// ChannelLotUpdated, and the latest one is replayed to a panel the moment
// it subscribes, so a fresh page never shows blanks.
type Hub struct {
	id      int
	cfg     config.WebSocketConfig
	logger  *logging.Logger
	mu      sync.RWMutex
	viewers map[*viewer]struct{}
	last    map[string]any
}

// NewHub creates a hub that reports itself to the lot as display id.
func NewHub(id int, cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		id:      id,
		cfg:     cfg,
		logger:  logger,
		viewers: make(map[*viewer]struct{}),
	}
}

func (h *Hub) ID() int                     { return h.id }
func (h *Hub) Kind() carpark.ComponentKind { return carpark.KindDisplay }

// Update records the lot state and relays it to subscribed panels.
func (h *Hub) Update(data map[string]any) {
	h.mu.Lock()
	h.last = data
	h.mu.Unlock()
	h.Broadcast(ChannelLotUpdated, data)
}

// Last is the most recent lot update, nil before the first.
func (h *Hub) Last() map[string]any {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last
}

// Run blocks until ctx ends, then disconnects every panel.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	gone := h.viewers
	h.viewers = make(map[*viewer]struct{})
	h.mu.Unlock()

	for v := range gone {
		v.shut()
		if v.conn != nil {
			_ = v.conn.Close() //nolint:errcheck // shutting down
		}
	}
}

func (h *Hub) join(v *viewer) {
	h.mu.Lock()
	h.viewers[v] = struct{}{}
	n := len(h.viewers)
	h.mu.Unlock()
	h.logger.Debug("panel connected", "panels", n)
}

// leave may run more than once for the same viewer.
func (h *Hub) leave(v *viewer) {
	h.mu.Lock()
	delete(h.viewers, v)
	n := len(h.viewers)
	h.mu.Unlock()
	v.shut()
	h.logger.Debug("panel disconnected", "panels", n)
}

// Broadcast queues an event for every panel subscribed to channel.
// Panels with a full queue miss it.
func (h *Hub) Broadcast(channel string, payload any) {
	data := stamped(Frame{Type: FrameEvent, EventType: channel, Payload: payload})

	h.mu.RLock()
	targets := make([]*viewer, 0, len(h.viewers))
	for v := range h.viewers {
		targets = append(targets, v)
	}
	h.mu.RUnlock()

	sent := 0
	for _, v := range targets {
		if v.wants(channel) && v.deliver(data) {
			sent++
		}
	}
	if sent > 0 {
		h.logger.Debug("lot update relayed", "channel", channel, "panels", sent)
	}
}

// ClientCount is the number of connected panels.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers)
}

// viewer is one connected panel.
type viewer struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu       sync.Mutex
	channels map[string]struct{}
	closed   bool
}

func newViewer(h *Hub, conn *websocket.Conn) *viewer {
	return &viewer{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, viewerQueueLen),
		channels: make(map[string]struct{}),
	}
}

// deliver queues data without blocking; false if the panel is gone or behind.
func (v *viewer) deliver(data []byte) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return false
	}
	select {
	case v.send <- data:
		return true
	default:
		return false
	}
}

// shut closes the send queue once; the write loop then says goodbye.
func (v *viewer) shut() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.closed {
		v.closed = true
		close(v.send)
	}
}

func (v *viewer) wants(channel string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.channels[channel]
	return ok
}

func (v *viewer) reply(f Frame) { v.deliver(stamped(f)) }

func (v *viewer) replyError(id, message string) {
	v.reply(Frame{Type: FrameError, ID: id, Payload: map[string]string{"message": message}})
}

// handle acts on one client frame.
func (v *viewer) handle(raw []byte) {
	var in inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		v.replyError("", "invalid JSON message")
		return
	}

	switch in.Type {
	case FramePing:
		v.reply(Frame{Type: FramePong, ID: in.ID})
	case FrameSubscribe, FrameUnsubscribe:
		var list ChannelList
		if len(in.Payload) > 0 {
			if err := json.Unmarshal(in.Payload, &list); err != nil {
				v.replyError(in.ID, "invalid "+in.Type+" payload")
				return
			}
		}
		v.setChannels(in.ID, in.Type == FrameSubscribe, list.Channels)
	default:
		v.replyError(in.ID, "unknown message type: "+in.Type)
	}
}

func (v *viewer) setChannels(id string, on bool, channels []string) {
	v.mu.Lock()
	for _, ch := range channels {
		if on {
			v.channels[ch] = struct{}{}
		} else {
			delete(v.channels, ch)
		}
	}
	v.mu.Unlock()

	if !on {
		v.reply(Frame{Type: FrameAck, ID: id, Payload: map[string]any{"unsubscribed": channels}})
		return
	}
	v.hub.logger.Debug("panel subscribed", "channels", channels)
	v.reply(Frame{Type: FrameAck, ID: id, Payload: map[string]any{"subscribed": channels}})

	if slices.Contains(channels, ChannelLotUpdated) {
		if last := v.hub.Last(); last != nil {
			v.deliver(stamped(Frame{Type: FrameEvent, EventType: ChannelLotUpdated, Payload: last}))
		}
	}
}

// keepalive derives the ping period and the read deadline extension.
func keepalive(cfg config.WebSocketConfig) (ping, deadline time.Duration) {
	ping = time.Duration(cfg.PingInterval) * time.Second
	return ping, ping + time.Duration(cfg.PongTimeout)*time.Second
}

// readLoop handles client frames until the socket fails. Any frame, not
// just a pong, extends the deadline, since some kiosks never answer pings.
func (v *viewer) readLoop(cfg config.WebSocketConfig) {
	defer func() {
		v.hub.leave(v)
		_ = v.conn.Close() //nolint:errcheck // already done reading
	}()

	_, deadline := keepalive(cfg)
	extend := func() error { return v.conn.SetReadDeadline(time.Now().Add(deadline)) }

	v.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	_ = extend() //nolint:errcheck // a failed deadline surfaces on read
	v.conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, raw, err := v.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				v.hub.logger.Warn("panel socket read failed", "error", err)
			}
			return
		}
		_ = extend() //nolint:errcheck // a failed deadline surfaces on read
		v.handle(raw)
	}
}

// writeLoop drains the queue and pings on the keepalive period.
func (v *viewer) writeLoop(cfg config.WebSocketConfig) {
	ping, _ := keepalive(cfg)
	writeWait := time.Duration(cfg.PongTimeout) * time.Second
	ticker := time.NewTicker(ping)
	defer func() {
		ticker.Stop()
		_ = v.conn.Close() //nolint:errcheck // read loop sees the close
	}()

	write := func(kind int, data []byte) error {
		_ = v.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck // write reports it
		return v.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case data, ok := <-v.send:
			if !ok {
				_ = write(websocket.CloseMessage, nil) //nolint:errcheck // best effort goodbye
				return
			}
			if write(websocket.TextMessage, data) != nil {
				return
			}
		case <-ticker.C:
			if write(websocket.PingMessage, nil) != nil {
				return
			}
		}
	}
}

// handleWebSocket upgrades a panel connection. The stream is read-only
// lot data, so the only gate is the CORS origin list.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		fail(w, http.StatusServiceUnavailable, "websocket hub not running")
		return
	}

	up := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.originAllowed(origin)
		},
	}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("panel upgrade refused", "error", err)
		return
	}

	v := newViewer(s.hub, conn)
	s.hub.join(v)
	go v.writeLoop(s.wsCfg)
	go v.readLoop(s.wsCfg)
}
