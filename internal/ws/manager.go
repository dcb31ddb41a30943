package ws

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"supmap-tracker/internal/navigation"
	"supmap-tracker/internal/track"
)

// Tracker is the part of the gps tracker driven over websocket.
type Tracker interface {
	ConnectWithSnapshot(fn track.DiffCallback, snapshot func([]navigation.Point))
	Disconnect()
	ForEachTrackPoint(visitor func(navigation.Point) bool)
	OnLocationUpdated(p navigation.Point)
	SetEnabled(ctx context.Context, enabled bool) bool
	SetDuration(ctx context.Context, d time.Duration) error
	IsEnabled() bool
	GetDuration() time.Duration
	MaxCount() int
}

// Manager owns the websocket clients. The most recently connected client is
// the renderer: the single subscriber of the track diffs. Any previous
// renderer is disconnected when a new one registers.
type Manager struct {
	clients    map[string]*Client
	renderer   *Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	tracker    Tracker
	logger     *slog.Logger
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewManager(ctx context.Context, logger *slog.Logger, tracker Tracker) *Manager {
	ctx, cancel := context.WithCancel(ctx)
	return &Manager{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		tracker:    tracker,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (m *Manager) Start() {
	for {
		select {
		case client := <-m.register:
			m.registerClient(client)
		case client := <-m.unregister:
			m.unregisterClient(client)
		case <-m.ctx.Done():
			return
		}
	}
}

// HandleNewConnection starts serving conn as the new renderer.
func (m *Manager) HandleNewConnection(conn *websocket.Conn) *Client {
	client := NewClient(uuid.NewString(), conn, m)
	client.Start()
	return client
}

func (m *Manager) registerClient(client *Client) {
	m.mu.Lock()
	previous := m.renderer
	m.clients[client.ID] = client
	m.renderer = client
	m.mu.Unlock()

	m.syncRenderer(client)
	m.logger.Info("renderer connected", "clientID", client.ID)

	if previous != nil {
		m.logger.Info("renderer replaced", "clientID", previous.ID)
		previous.Close()
	}
}

func (m *Manager) unregisterClient(client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.clients[client.ID]; !ok {
		return
	}
	if m.renderer == client {
		// no diff can reach the client once Disconnect returns
		m.tracker.Disconnect()
		m.renderer = nil
	}
	delete(m.clients, client.ID)
	close(client.send)
	m.logger.Info("client disconnected", "clientID", client.ID)
}

// Resync sends a fresh snapshot to the renderer, e.g. after the track was
// cleared by enabling tracking.
func (m *Manager) Resync() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.renderer != nil {
		m.syncRenderer(m.renderer)
	}
}

// syncRenderer subscribes client to the track diffs and queues the snapshot
// they apply on, in one step: no diff can be queued ahead of the snapshot
// while already being part of it.
func (m *Manager) syncRenderer(client *Client) {
	enabled, duration, maxPoints := m.tracker.IsEnabled(), m.tracker.GetDuration(), m.tracker.MaxCount()
	m.tracker.ConnectWithSnapshot(client.pushDiff, func(points []navigation.Point) {
		client.sendSnapshot(newSnapshot(enabled, duration, maxPoints, points))
	})
}

// resync answers a snapshot request from client.
func (m *Manager) resync(client *Client) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.renderer == client {
		m.syncRenderer(client)
		return
	}
	client.sendSnapshot(BuildSnapshot(m.tracker))
}

// StateReader is the read side of the tracker needed to build a Snapshot.
type StateReader interface {
	ForEachTrackPoint(visitor func(navigation.Point) bool)
	IsEnabled() bool
	GetDuration() time.Duration
	MaxCount() int
}

func BuildSnapshot(t StateReader) Snapshot {
	var points []navigation.Point
	t.ForEachTrackPoint(func(p navigation.Point) bool {
		points = append(points, p)
		return true
	})
	return newSnapshot(t.IsEnabled(), t.GetDuration(), t.MaxCount(), points)
}

func newSnapshot(enabled bool, duration time.Duration, maxPoints int, points []navigation.Point) Snapshot {
	if points == nil {
		points = []navigation.Point{}
	}
	return Snapshot{
		Enabled:       enabled,
		DurationHours: int64(duration / time.Hour),
		MaxPoints:     maxPoints,
		Points:        points,
	}
}

func (m *Manager) forceDisconnect(c *Client) {
	c.Close()
}

func (m *Manager) Shutdown() {
	m.cancel()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.renderer != nil {
		m.tracker.Disconnect()
		m.renderer = nil
	}
	for _, client := range m.clients {
		client.Close()
	}
}
