package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/wricardo/parking-lot-game/game/engine"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // must stay below pongWait
	maxMessageSize = 512

	// Pending broadcasts before new ones are dropped
	broadcastBuffer = 64
	// Pending frames per follower before it is disconnected as too slow
	outboxBuffer = 256
)

// Event names sent to clients
const (
	EventStateUpdate = "state_update"
	EventSolved      = "solved"
	EventReset       = "reset"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The REST API is CORS-open as well
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is the frame pushed to every follower of a session. Seq increases
// by one per delivered broadcast within a session, so a gap tells the client
// that a message was dropped and it should refetch the state.
type Message struct {
	SessionID string            `json:"session_id"`
	Seq       uint64            `json:"seq"`
	GameState *engine.GameState `json:"game_state,omitempty"`
	Event     string            `json:"event,omitempty"`
	Data      interface{}       `json:"data,omitempty"`
}

// Client is one websocket connection following a session
type Client struct {
	id        string
	hub       *Hub
	conn      *websocket.Conn
	outbox    chan []byte
	sessionID string
}

type countRequest struct {
	sessionID string
	reply     chan int
}

// Hub fans session updates out to websocket followers.
// Only the Run goroutine touches followers and seq.
type Hub struct {
	followers map[string]map[*Client]struct{}
	seq       map[string]uint64

	broadcast   chan *Message
	subscribe   chan *Client
	unsubscribe chan *Client
	counts      chan countRequest
	done        chan struct{}

	log logrus.FieldLogger
}

// NewHub creates a hub that logs through the standard logrus logger
func NewHub() *Hub {
	return NewHubWithLogger(logrus.StandardLogger())
}

// NewHubWithLogger creates a hub that logs through log
func NewHubWithLogger(log logrus.FieldLogger) *Hub {
	return &Hub{
		followers:   make(map[string]map[*Client]struct{}),
		seq:         make(map[string]uint64),
		broadcast:   make(chan *Message, broadcastBuffer),
		subscribe:   make(chan *Client),
		unsubscribe: make(chan *Client),
		counts:      make(chan countRequest),
		done:        make(chan struct{}),
		log:         log.WithField("component", "websocket"),
	}
}

// Run owns the follower registry until ctx is cancelled, then disconnects
// everyone still attached
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case c := <-h.subscribe:
			h.add(c)
		case c := <-h.unsubscribe:
			h.remove(c)
		case msg := <-h.broadcast:
			h.deliver(msg)
		case req := <-h.counts:
			req.reply <- len(h.followers[req.sessionID])
		case <-ctx.Done():
			for _, set := range h.followers {
				for c := range set {
					h.remove(c)
				}
			}
			return
		}
	}
}

// ServeWS upgrades the request and attaches the connection to sessionID
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	c := &Client{
		id:        uuid.NewString(),
		hub:       h,
		conn:      conn,
		outbox:    make(chan []byte, outboxBuffer),
		sessionID: sessionID,
	}

	select {
	case h.subscribe <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writeLoop()
	go c.readLoop()
}

// ClientCount returns how many clients follow a session. It needs a running hub.
func (h *Hub) ClientCount(ctx context.Context, sessionID string) int {
	req := countRequest{sessionID: sessionID, reply: make(chan int, 1)}
	select {
	case h.counts <- req:
		return <-req.reply
	case <-h.done:
		return 0
	case <-ctx.Done():
		return 0
	}
}

// BroadcastToSession pushes a state snapshot to the session's followers
func (h *Hub) BroadcastToSession(sessionID string, state *engine.GameState) {
	h.enqueue(&Message{SessionID: sessionID, GameState: state, Event: EventStateUpdate})
}

// BroadcastEvent pushes a named event with an arbitrary payload
func (h *Hub) BroadcastEvent(sessionID string, event string, data interface{}) {
	h.enqueue(&Message{SessionID: sessionID, Event: event, Data: data})
}

// enqueue never blocks the caller; a full queue drops the message
func (h *Hub) enqueue(msg *Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.log.WithFields(logrus.Fields{
			"session": msg.SessionID,
			"event":   msg.Event,
		}).Warn("broadcast queue full, dropping message")
	}
}

func (h *Hub) add(c *Client) {
	set := h.followers[c.sessionID]
	if set == nil {
		set = make(map[*Client]struct{})
		h.followers[c.sessionID] = set
	}
	set[c] = struct{}{}

	h.log.WithFields(logrus.Fields{
		"client":    c.id,
		"session":   c.sessionID,
		"followers": len(set),
	}).Debug("client subscribed")
}

// remove detaches c and closes its outbox; removing twice is a no-op
func (h *Hub) remove(c *Client) {
	set := h.followers[c.sessionID]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.outbox)
	if len(set) == 0 {
		delete(h.followers, c.sessionID)
	}

	h.log.WithFields(logrus.Fields{
		"client":    c.id,
		"session":   c.sessionID,
		"followers": len(set),
	}).Debug("client unsubscribed")
}

// deliver stamps msg with the next sequence number of its session and hands
// it to every follower. Followers whose outbox is full are disconnected.
func (h *Hub) deliver(msg *Message) {
	set := h.followers[msg.SessionID]
	if len(set) == 0 {
		return
	}

	h.seq[msg.SessionID]++
	msg.Seq = h.seq[msg.SessionID]

	frame, err := json.Marshal(msg)
	if err != nil {
		h.log.WithError(err).Error("failed to marshal broadcast message")
		return
	}

	for c := range set {
		select {
		case c.outbox <- frame:
		default:
			h.log.WithField("client", c.id).Warn("client too slow, disconnecting")
			h.remove(c)
		}
	}
}

// readLoop only keeps the connection alive; followers never send commands
func (c *Client) readLoop() {
	defer func() {
		select {
		case c.hub.unsubscribe <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.WithError(err).WithField("client", c.id).Warn("websocket read failed")
			}
			return
		}
	}
}

// writeLoop drains the outbox and pings the peer
func (c *Client) writeLoop() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.outbox:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
