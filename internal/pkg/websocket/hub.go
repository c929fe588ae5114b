package websocket

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yigit/scribelink/internal/pkg/metrics"
)

// sessionKey identifies a connection slot. Session ids are chosen by the
// browser, so they only ever collide within one user.
type sessionKey struct {
	userID    uuid.UUID
	sessionID string
}

func keyOf(c *Client) sessionKey {
	return sessionKey{userID: c.session.UserID, sessionID: c.session.SessionID}
}

// Hub maintains the set of active clients, at most one per user session
type Hub struct {
	// Registered clients keyed by user and session id
	clients map[sessionKey]*Client

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Sessions whose client should be dropped
	disconnect chan sessionKey

	// Mutex for concurrent access to clients map
	mu sync.RWMutex

	// Closed when Run returns
	done chan struct{}

	// Logger for Hub operations
	logger zerolog.Logger
}

// NewHub creates a new Hub instance
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[sessionKey]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		disconnect: make(chan sessionKey),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run handles registrations until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case key := <-h.disconnect:
			h.mu.RLock()
			client := h.clients[key]
			h.mu.RUnlock()
			if client != nil {
				h.unregisterClient(client)
			}

		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

// registerClient registers a new client, replacing the session's previous one
func (h *Hub) registerClient(client *Client) {
	key := keyOf(client)
	h.mu.Lock()
	old := h.clients[key]
	h.clients[key] = client
	count := len(h.clients)
	h.mu.Unlock()

	if old != nil {
		old.close()
		h.logger.Info().Str("sessionID", client.session.SessionID).Msg("Replaced existing realtime client")
	}
	metrics.RealtimeClients.Set(float64(count))

	h.logger.Info().
		Str("sessionID", client.session.SessionID).
		Str("userID", client.session.UserID.String()).
		Msg("Client registered")
}

// unregisterClient unregisters a client from the hub
func (h *Hub) unregisterClient(client *Client) {
	key := keyOf(client)
	h.mu.Lock()
	current, ok := h.clients[key]
	if ok && current == client {
		delete(h.clients, key)
	}
	count := len(h.clients)
	h.mu.Unlock()

	client.close()
	metrics.RealtimeClients.Set(float64(count))

	if ok && current == client {
		h.logger.Info().
			Str("sessionID", client.session.SessionID).
			Str("userID", client.session.UserID.String()).
			Msg("Client unregistered")
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[sessionKey]*Client)
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	metrics.RealtimeClients.Set(0)
}

// Register hands a client to the hub. It returns false once the hub stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
		client.close()
	}
}

// Disconnect drops the client userID holds for sessionID, if any.
func (h *Hub) Disconnect(userID uuid.UUID, sessionID string) {
	select {
	case h.disconnect <- sessionKey{userID: userID, sessionID: sessionID}:
	case <-h.done:
	}
}

// ClientsCount returns the number of connected clients
func (h *Hub) ClientsCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Client returns the client userID holds for sessionID.
func (h *Hub) Client(userID uuid.UUID, sessionID string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[sessionKey{userID: userID, sessionID: sessionID}]
	return c, ok
}

// Done is closed after Run returns.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}
