package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/yigit/scribelink/internal/app/models"
	"github.com/yigit/scribelink/internal/app/models/dto"
	"github.com/yigit/scribelink/internal/app/realtime"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4 * 1024

	// Frames buffered per client before new ones are dropped
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Same-origin checks are left to the reverse proxy.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is a middleman between the websocket connection and the session's
// realtime bridge
type Client struct {
	hub *Hub

	// The WebSocket connection
	conn *websocket.Conn

	// Buffered channel of outbound frames
	send chan []byte

	// Caller the connection belongs to
	session models.Session

	// Keeps the session's match request view fresh
	bridge *realtime.Bridge

	mu     sync.Mutex
	closed bool

	// Logger instance
	logger zerolog.Logger
}

func newClient(hub *Hub, conn *websocket.Conn, session models.Session, bridge *realtime.Bridge, logger zerolog.Logger) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		session: session,
		bridge:  bridge,
		logger:  logger,
	}
}

// Session returns the session the client belongs to.
func (c *Client) Session() models.Session {
	return c.session
}

// start subscribes the bridge; frames flow to the write pump from then on.
func (c *Client) start() error {
	return c.bridge.Subscribe(context.Background(), c.session, c.push)
}

// push is the bridge callback. It never blocks: a slow peer loses frames,
// and the next frame carries the full list again.
func (c *Client) push(list []models.EnrichedMatchRequest) {
	data, err := json.Marshal(dto.RealtimeFrame{
		Type:     dto.RealtimeFrameType,
		Realtime: c.bridge.RealtimeEnabled(),
		Data:     list,
	})
	if err != nil {
		c.logger.Error().Err(err).Str("sessionID", c.session.SessionID).Msg("Failed to marshal realtime frame")
		return
	}
	c.enqueue(data)
}

func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		c.logger.Warn().Str("sessionID", c.session.SessionID).Msg("Realtime client too slow, dropping frame")
		return false
	}
}

// close stops the bridge and ends the write pump. Safe to call repeatedly.
func (c *Client) close() {
	c.bridge.Close()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// readPump keeps the read deadline fresh and notices when the peer leaves.
// Clients never send data frames that matter.
func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { return c.conn.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Str("sessionID", c.session.SessionID).Msg("Unexpected WebSocket close")
			} else {
				c.logger.Debug().Err(err).Str("sessionID", c.session.SessionID).Msg("WebSocket closed")
			}
			return
		}
	}
}

// writePump pumps frames from the bridge to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
