package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"supmap-tracker/internal/navigation"
	"supmap-tracker/internal/track"
	"supmap-tracker/internal/tracker"
)

const (
	// sendChannelSize controls the max number
	// of messages that can be queued for a client.
	sendChannelSize = 256
	pingPeriod      = (60 * 9 * time.Second) / 10
)

// Message types exchanged with the renderer.
const (
	TypeSnapshot = "snapshot"
	TypeDiff     = "diff"
	TypeError    = "error"
	TypePosition = "position"
	TypeEnable   = "enable"
	TypeDuration = "duration"
)

type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Snapshot is the full track state. The renderer replaces whatever it drew
// with it; diffs that follow apply on top of it.
type Snapshot struct {
	Enabled       bool               `json:"enabled"`
	DurationHours int64              `json:"duration_hours"`
	MaxPoints     int                `json:"max_points"`
	Points        []navigation.Point `json:"points"`
}

type EnableRequest struct {
	Enabled bool `json:"enabled"`
}

type DurationRequest struct {
	Hours int64 `json:"hours"`
}

func NewMessage(msgType string, v any) (Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Message{}, fmt.Errorf("marshalling %s message: %w", msgType, err)
	}
	return Message{Type: msgType, Data: data}, nil
}

type Client struct {
	ID      string
	Conn    *websocket.Conn
	Manager *Manager
	send    chan Message
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewClient(id string, conn *websocket.Conn, manager *Manager) *Client {
	ctx, cancel := context.WithCancel(manager.ctx)
	return &Client{
		ID:      id,
		Conn:    conn,
		Manager: manager,
		send:    make(chan Message, sendChannelSize),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start registers the client, then starts its pumps. Registering first
// guarantees the manager knows the client before it can unregister.
func (c *Client) Start() {
	select {
	case c.Manager.register <- c:
	case <-c.ctx.Done():
		return
	}
	go c.readPump()
	go c.writePump()
}

func (c *Client) Close() {
	if err := c.Conn.Close(websocket.StatusNormalClosure, "bye"); err != nil {
		c.Manager.logger.Debug("failed to close connection", "clientID", c.ID, "error", err)
	}
	c.cancel()
}

// Send queues msg without blocking. A client that cannot keep up is
// disconnected from another goroutine, since Send may run under the track lock.
func (c *Client) Send(msg Message) {
	select {
	case c.send <- msg:
	default:
		c.Manager.logger.Warn("client send queue full, disconnecting", "clientID", c.ID)
		go c.Manager.forceDisconnect(c)
	}
}

// pushDiff is the track diff subscriber of the renderer client.
func (c *Client) pushDiff(d track.Diff) {
	if d.Added == nil {
		d.Added = []navigation.Point{}
	}
	if d.Evicted == nil {
		d.Evicted = []navigation.Point{}
	}
	msg, err := NewMessage(TypeDiff, d)
	if err != nil {
		c.Manager.logger.Error("failed to encode diff", "clientID", c.ID, "error", err)
		return
	}
	c.Send(msg)
}

func (c *Client) sendSnapshot(snap Snapshot) {
	msg, err := NewMessage(TypeSnapshot, snap)
	if err != nil {
		c.Manager.logger.Error("failed to encode snapshot", "clientID", c.ID, "error", err)
		return
	}
	c.Send(msg)
}

func (c *Client) sendError(err error) {
	msg, encErr := NewMessage(TypeError, err.Error())
	if encErr != nil {
		return
	}
	c.Send(msg)
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.Manager.unregister <- c:
		case <-c.Manager.ctx.Done():
		}
		c.Close()
	}()

	for {
		var msg Message
		if err := wsjson.Read(c.ctx, c.Conn, &msg); err != nil {
			c.Manager.logger.Debug("stopped reading messages", "clientID", c.ID, "error", err)
			break
		}
		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := wsjson.Write(c.ctx, c.Conn, msg); err != nil {
				c.Manager.logger.Warn("failed to write message", "clientID", c.ID, "error", err)
				return
			}
			c.Manager.logger.Debug("message sent", "clientID", c.ID, "type", msg.Type)
		case <-ticker.C:
			if err := c.Conn.Ping(c.ctx); err != nil {
				c.Manager.logger.Debug("failed to ping client", "clientID", c.ID, "error", err)
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Client) handleMessage(msg Message) {
	switch msg.Type {
	case TypePosition:
		var p navigation.Point
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			c.Manager.logger.Warn("failed to unmarshal position", "clientID", c.ID, "error", err)
			c.sendError(fmt.Errorf("invalid position: %w", err))
			return
		}
		c.Manager.tracker.OnLocationUpdated(p)
	case TypeEnable:
		var req EnableRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			c.sendError(fmt.Errorf("invalid enable request: %w", err))
			return
		}
		if c.Manager.tracker.SetEnabled(c.ctx, req.Enabled) {
			c.Manager.Resync()
		}
	case TypeDuration:
		var req DurationRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			c.sendError(fmt.Errorf("invalid duration request: %w", err))
			return
		}
		d, err := tracker.HoursToDuration(req.Hours)
		if err != nil {
			c.sendError(err)
			return
		}
		if err := c.Manager.tracker.SetDuration(c.ctx, d); err != nil {
			c.sendError(err)
		}
	case TypeSnapshot:
		c.Manager.resync(c)
	default:
		c.Manager.logger.Debug("received unknown type message", "clientID", c.ID, "type", msg.Type)
	}
}
