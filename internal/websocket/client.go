package websocket

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dafibh/bazaar/bazaar-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Inbound frames are subscription commands and stay small
	maxMessageSize = 512

	sendBuffer = 256
)

// Subscription commands a client may send
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
	ActionStatus      = "status"
)

// Command is an inbound subscription command, e.g. {"action":"subscribe","entities":["payment"]}
type Command struct {
	Action   string       `json:"action"`
	Entities []EntityType `json:"entities,omitempty"`
}

// SubscriptionStatus acknowledges a command with the entities the client now follows
type SubscriptionStatus struct {
	Identity domain.Identity `json:"identity"`
	Entities []EntityType    `json:"entities"`
}

// CommandError reports a rejected command
type CommandError struct {
	Action string `json:"action,omitempty"`
	Error  string `json:"error"`
}

var knownEntities = map[EntityType]bool{
	EntityTypePayment:      true,
	EntityTypeTokenAccount: true,
}

// Client is one WebSocket connection following the settlements of an identity.
// It receives only events for the entity types it subscribed to.
type Client struct {
	id       string
	identity domain.Identity
	conn     *websocket.Conn
	hub      *Hub
	send     chan []byte

	mu       sync.RWMutex
	closed   bool
	entities map[EntityType]bool

	closeOnce sync.Once
}

// NewClient creates a client following identity. With no entities it follows every entity type.
func NewClient(conn *websocket.Conn, identity domain.Identity, hub *Hub, entities ...EntityType) *Client {
	c := &Client{
		id:       uuid.New().String(),
		identity: identity,
		conn:     conn,
		hub:      hub,
		send:     make(chan []byte, sendBuffer),
		entities: make(map[EntityType]bool),
	}
	if len(entities) == 0 {
		entities = AllEntities()
	}
	for _, e := range entities {
		if knownEntities[e] {
			c.entities[e] = true
		}
	}
	return c
}

// AllEntities lists every entity type a client can follow
func AllEntities() []EntityType {
	return []EntityType{EntityTypePayment, EntityTypeTokenAccount}
}

// ParseEntities validates entity names, as given in a query string or a command
func ParseEntities(names []string) ([]EntityType, error) {
	out := make([]EntityType, 0, len(names))
	for _, n := range names {
		e := EntityType(n)
		if !knownEntities[e] {
			return nil, fmt.Errorf("unknown entity %q", n)
		}
		out = append(out, e)
	}
	return out, nil
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) Identity() domain.Identity {
	return c.identity
}

// Follows reports whether events about entity should reach this client
func (c *Client) Follows(entity EntityType) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entities[entity]
}

// Entities returns the followed entity types in a stable order
func (c *Client) Entities() []EntityType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]EntityType, 0, len(c.entities))
	for e := range c.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Send queues a message. A full buffer means the client is too slow and counts as closed.
func (c *Client) Send(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrClientClosed
	}

	select {
	case c.send <- data:
		return nil
	default:
		return ErrClientClosed
	}
}

// Close is safe to call more than once
func (c *Client) Close() error {
	var closeErr error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()

		if c.conn != nil {
			closeErr = c.conn.Close()
		}
	})
	return closeErr
}

func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// HandleCommand applies one inbound frame and returns the reply to queue
func (c *Client) HandleCommand(raw []byte) Event {
	var cmd Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return SubscriptionRejected(CommandError{Error: "malformed command"})
	}

	entities := make([]string, len(cmd.Entities))
	for i, e := range cmd.Entities {
		entities[i] = string(e)
	}
	parsed, err := ParseEntities(entities)
	if err != nil {
		return SubscriptionRejected(CommandError{Action: cmd.Action, Error: err.Error()})
	}

	switch cmd.Action {
	case ActionSubscribe:
		if len(parsed) == 0 {
			parsed = AllEntities()
		}
		c.mu.Lock()
		for _, e := range parsed {
			c.entities[e] = true
		}
		c.mu.Unlock()
	case ActionUnsubscribe:
		c.mu.Lock()
		if len(parsed) == 0 {
			c.entities = make(map[EntityType]bool)
		}
		for _, e := range parsed {
			delete(c.entities, e)
		}
		c.mu.Unlock()
	case ActionStatus:
	default:
		return SubscriptionRejected(CommandError{Action: cmd.Action, Error: "unknown action"})
	}

	return SubscriptionUpdated(SubscriptionStatus{Identity: c.identity, Entities: c.Entities()})
}

func (c *Client) reply(event Event) {
	data, err := event.ToJSON()
	if err != nil {
		return
	}
	if err := c.Send(data); err != nil {
		log.Debug().Err(err).Str("client_id", c.id).Msg("Dropped subscription reply")
	}
}

// ReadPump applies subscription commands until the connection drops. Run it in a goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		kind, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().
					Err(err).
					Str("client_id", c.id).
					Str("identity", c.identity.String()).
					Msg("WebSocket unexpected close")
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}

		reply := c.HandleCommand(raw)
		log.Debug().
			Str("client_id", c.id).
			Str("reply", reply.Type).
			Interface("entities", c.Entities()).
			Msg("WebSocket subscription command")
		c.reply(reply)
	}
}

// WritePump drains queued messages to the connection and keeps it alive with pings.
// Run it in a goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Warn().
					Err(err).
					Str("client_id", c.id).
					Str("identity", c.identity.String()).
					Msg("WebSocket write error")
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
