// Package realtime owns the single push connection a session keeps open to
// the backend, and the topic subscriptions delivered over it.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/evcraddock/house-market/internal/apperr"
)

// ErrClosed is returned by commands issued after Close.
var ErrClosed = errors.New("realtime manager closed")

// ErrNotConnected is returned by Emit when no connection is open.
var ErrNotConnected = fmt.Errorf("%w: realtime channel not connected", apperr.ErrNetwork)

// State is the lifecycle state of the connection.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Handler receives the data of an event delivered on a subscribed topic.
type Handler func(data json.RawMessage)

// Envelope is one frame on the wire.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type Settings struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	// ReconnectTimeout is the delay before redialing after the transport
	// drops. Zero disables reconnecting.
	ReconnectTimeout time.Duration
}

func DefaultSettings() *Settings {
	return &Settings{
		HandshakeTimeout: 5 * time.Second,
		WriteTimeout:     5 * time.Second,
		ReconnectTimeout: 5 * time.Second,
	}
}

// command runs on the owner goroutine with exclusive access to the loop.
type command func(l *loop)

// Manager serializes every operation on the connection through one owner
// goroutine. Handlers run on the connection's read goroutine in arrival order.
type Manager struct {
	socketURL  string
	settings   *Settings
	dialer     *websocket.Dialer
	instanceID string

	ctx      context.Context
	cancel   context.CancelFunc
	commands chan command
	done     chan struct{}

	mu    sync.RWMutex
	state State
}

// loop is the state only the owner goroutine touches.
type loop struct {
	m *Manager

	conn   *websocket.Conn
	gen    uint64
	userID string
	// wanted is true between Connect and Disconnect; a dropped transport is
	// only redialed while it holds.
	wanted bool
	subs   map[string]Handler
}

func NewManagerWithDefaults(ctx context.Context, socketURL string) *Manager {
	return NewManager(ctx, socketURL, DefaultSettings())
}

func NewManager(ctx context.Context, socketURL string, settings *Settings) *Manager {
	cancelCtx, cancel := context.WithCancel(ctx)
	m := &Manager{
		socketURL:  socketURL,
		settings:   settings,
		dialer:     &websocket.Dialer{HandshakeTimeout: settings.HandshakeTimeout},
		instanceID: uuid.NewString(),
		ctx:        cancelCtx,
		cancel:     cancel,
		commands:   make(chan command),
		done:       make(chan struct{}),
	}
	go m.run()
	return m
}

func (m *Manager) run() {
	l := &loop{m: m, subs: map[string]Handler{}}
	defer func() {
		l.closeConn()
		m.setState(Disconnected)
		close(m.done)
	}()

	for {
		select {
		case <-m.ctx.Done():
			return
		case cmd := <-m.commands:
			cmd(l)
		}
	}
}

// exec queues fn on the owner goroutine and waits for it to finish.
func (m *Manager) exec(fn func(l *loop) error) error {
	result := make(chan error, 1)
	select {
	case <-m.ctx.Done():
		return ErrClosed
	case m.commands <- func(l *loop) { result <- fn(l) }:
	}
	select {
	case err := <-result:
		return err
	case <-m.done:
		return ErrClosed
	}
}

// post queues fn without waiting. Used from the read goroutine and timers.
func (m *Manager) post(fn command) {
	select {
	case <-m.ctx.Done():
	case m.commands <- fn:
	}
}

// InstanceID identifies this manager in logs.
func (m *Manager) InstanceID() string {
	return m.instanceID
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// Connect opens the connection for userID. If a connection is already open it
// does nothing.
func (m *Manager) Connect(ctx context.Context, userID string) error {
	return m.exec(func(l *loop) error {
		if l.conn != nil {
			if userID != l.userID {
				slog.Debug("realtime already connected", "instance", m.instanceID, "user_id", l.userID)
			}
			return nil
		}
		l.userID = userID
		l.wanted = true
		return l.dial(ctx)
	})
}

// Disconnect closes the connection and drops every subscription.
func (m *Manager) Disconnect() error {
	return m.exec(func(l *loop) error {
		l.wanted = false
		l.closeConn()
		l.subs = map[string]Handler{}
		m.setState(Disconnected)
		return nil
	})
}

// Subscribe routes events named topic to h, replacing any previous handler.
// Subscriptions survive a dropped transport but not Disconnect.
func (m *Manager) Subscribe(topic string, h Handler) error {
	return m.exec(func(l *loop) error {
		l.subs[topic] = h
		return nil
	})
}

// Unsubscribe removes the handler for topic.
func (m *Manager) Unsubscribe(topic string) error {
	return m.exec(func(l *loop) error {
		delete(l.subs, topic)
		return nil
	})
}

// Topics returns the active subscriptions.
func (m *Manager) Topics() []string {
	var topics []string
	_ = m.exec(func(l *loop) error {
		for t := range l.subs {
			topics = append(topics, t)
		}
		return nil
	})
	return topics
}

// Emit sends event with payload encoded as JSON.
func (m *Manager) Emit(event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", event, err)
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("encoding %s frame: %w", event, err)
	}

	return m.exec(func(l *loop) error {
		if l.conn == nil {
			return ErrNotConnected
		}
		if err := l.conn.SetWriteDeadline(time.Now().Add(m.settings.WriteTimeout)); err != nil {
			return apperr.Network(err)
		}
		if err := l.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			l.drop(l.gen, err)
			return apperr.Network(fmt.Errorf("emit %s: %w", event, err))
		}
		slog.Debug("realtime emit", "instance", m.instanceID, "event", event)
		return nil
	})
}

// Close disconnects and stops the owner goroutine.
func (m *Manager) Close() {
	m.cancel()
	<-m.done
}

func (l *loop) dial(ctx context.Context) error {
	m := l.m
	u, err := url.Parse(m.socketURL)
	if err != nil {
		return fmt.Errorf("parsing socket url: %w", err)
	}
	q := u.Query()
	q.Set("userId", l.userID)
	u.RawQuery = q.Encode()

	m.setState(Connecting)
	conn, _, err := m.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		m.setState(Disconnected)
		return apperr.Network(fmt.Errorf("connecting realtime channel: %w", err))
	}

	l.conn = conn
	l.gen++
	m.setState(Connected)
	slog.Info("realtime connected", "instance", m.instanceID, "user_id", l.userID)

	go m.read(conn, l.gen)
	return nil
}

func (l *loop) closeConn() {
	if l.conn == nil {
		return
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = l.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(l.m.settings.WriteTimeout))
	if err := l.conn.Close(); err != nil {
		slog.Debug("closing realtime connection", "error", err)
	}
	l.conn = nil
}

// drop handles a transport failure on connection generation gen.
func (l *loop) drop(gen uint64, err error) {
	if l.conn == nil || gen != l.gen {
		return
	}
	m := l.m
	slog.Warn("realtime connection lost", "instance", m.instanceID, "error", err)
	l.closeConn()
	m.setState(Disconnected)

	if l.wanted && m.settings.ReconnectTimeout > 0 {
		l.scheduleReconnect()
	}
}

// scheduleReconnect redials after ReconnectTimeout unless the connection was
// reopened or torn down in the meantime.
func (l *loop) scheduleReconnect() {
	m := l.m
	gen := l.gen
	time.AfterFunc(m.settings.ReconnectTimeout, func() {
		m.post(func(l *loop) {
			if l.conn != nil || !l.wanted || gen != l.gen {
				return
			}
			if err := l.dial(m.ctx); err != nil {
				slog.Warn("realtime reconnect failed", "instance", m.instanceID, "error", err)
				l.scheduleReconnect()
			}
		})
	})
}

// read delivers inbound frames until the connection fails.
func (m *Manager) read(conn *websocket.Conn, gen uint64) {
	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			m.post(func(l *loop) { l.drop(gen, err) })
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var env Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			slog.Warn("realtime frame not decodable", "instance", m.instanceID, "error", err)
			continue
		}

		var h Handler
		if err := m.exec(func(l *loop) error {
			if gen == l.gen {
				h = l.subs[env.Event]
			}
			return nil
		}); err != nil {
			return
		}
		if h == nil {
			slog.Debug("realtime event without subscriber", "event", env.Event)
			continue
		}
		h(env.Data)
	}
}
