package dispatch

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/caretrack/bedside/pkg/logger"
	"github.com/caretrack/bedside/pkg/types"
)

const (
	// writeWait is the deadline for one outbound frame
	writeWait = 10 * time.Second

	// pongWait is how long to wait for a pong before dropping the client
	pongWait = 60 * time.Second

	// pingPeriod must be shorter than pongWait
	pingPeriod = (pongWait * 9) / 10

	// sendBufferSize bounds how far a slow client may fall behind before
	// it is dropped instead of backpressuring the dispatcher
	sendBufferSize = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Staff clients connect from hospital-internal origins resolved by the
	// deployment; origin policy is enforced upstream.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSClient adapts one WebSocket connection to the dispatcher's EventSink.
// Send never blocks: events go into a bounded buffer drained by the write
// pump, and a full buffer counts as a delivery failure.
type WSClient struct {
	conn *websocket.Conn
	send chan *types.AlertEvent

	closeOnce sync.Once
	closed    chan struct{}
}

// NewWSClient wraps an upgraded WebSocket connection
func NewWSClient(conn *websocket.Conn) *WSClient {
	return &WSClient{
		conn:   conn,
		send:   make(chan *types.AlertEvent, sendBufferSize),
		closed: make(chan struct{}),
	}
}

// Send queues an event for the write pump
func (c *WSClient) Send(event *types.AlertEvent) error {
	select {
	case <-c.closed:
		return types.NewDispatchError(types.ErrCodeDispatchFailed, "connection closed", nil)
	default:
	}

	select {
	case c.send <- event:
		return nil
	default:
		return types.NewDispatchError(types.ErrCodeDispatchFailed, "send buffer full", nil)
	}
}

// Close shuts the sink down; safe to call more than once
func (c *WSClient) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.conn.Close()
	})
	return nil
}

// ServeWS upgrades an HTTP request to a WebSocket subscription on the hub.
// The optional department query parameter filters delivered events. The
// subscription is torn down as soon as either pump observes an error, so
// dead connections never accumulate in the fan-out set.
func ServeWS(hub *Hub, log *logger.Logger, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	client := NewWSClient(conn)
	department := r.URL.Query().Get("department")
	handle := hub.Subscribe(client, department)

	go client.writePump(hub, handle)
	go client.readPump(hub, handle)
}

// writePump drains the send buffer onto the connection and keeps the
// connection alive with pings.
func (c *WSClient) writePump(hub *Hub, handle string) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		hub.Unsubscribe(handle)
	}()

	for {
		select {
		case <-c.closed:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case event := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(event); err != nil {
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

// readPump discards inbound frames (subscribers only listen) and detects
// disconnects.
func (c *WSClient) readPump(hub *Hub, handle string) {
	defer hub.Unsubscribe(handle)

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
