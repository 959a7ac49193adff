package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
	"github.com/gorilla/websocket"

	"github.com/evcraddock/house-market/internal/apperr"
)

type testServer struct {
	*httptest.Server
	conns   chan *websocket.Conn
	userIDs chan string
}

func newTestServer(t *testing.T) *testServer {
	upgrader := websocket.Upgrader{}
	ts := &testServer{
		conns:   make(chan *websocket.Conn, 8),
		userIDs: make(chan string, 8),
	}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		ts.userIDs <- r.URL.Query().Get("userId")
		ts.conns <- conn
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *testServer) socketURL() string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/socket"
}

func testSettings(reconnect time.Duration) *Settings {
	return &Settings{
		HandshakeTimeout: time.Second,
		WriteTimeout:     time.Second,
		ReconnectTimeout: reconnect,
	}
}

func newTestManager(t *testing.T, ts *testServer, reconnect time.Duration) *Manager {
	m := NewManager(context.Background(), ts.socketURL(), testSettings(reconnect))
	t.Cleanup(m.Close)
	return m
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting")
	}
	var zero T
	return zero
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestConnectIsIdempotent(t *testing.T) {
	ts := newTestServer(t)
	m := newTestManager(t, ts, 0)
	assert.Equal(t, m.State(), Disconnected)

	err := m.Connect(context.Background(), "u1")
	assert.Equal(t, err, nil)
	assert.Equal(t, m.State(), Connected)
	assert.Equal(t, recv(t, ts.userIDs), "u1")
	recv(t, ts.conns)

	err = m.Connect(context.Background(), "u1")
	assert.Equal(t, err, nil)

	select {
	case <-ts.conns:
		t.Fatal("second connection opened")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscribeDeliversTopic(t *testing.T) {
	ts := newTestServer(t)
	m := newTestManager(t, ts, 0)

	created := make(chan json.RawMessage, 1)
	other := make(chan json.RawMessage, 1)
	assert.Equal(t, m.Subscribe(ReviewCreatedTopic("A1"), func(data json.RawMessage) { created <- data }), nil)
	assert.Equal(t, m.Subscribe(ReviewCreatedTopic("B2"), func(data json.RawMessage) { other <- data }), nil)

	assert.Equal(t, m.Connect(context.Background(), "u1"), nil)
	server := recv(t, ts.conns)

	frame := `{"event":"send_review_A1","data":{"user_id":"u2","ratings":4}}`
	assert.Equal(t, server.WriteMessage(websocket.TextMessage, []byte(frame)), nil)

	var got struct {
		UserID  string `json:"user_id"`
		Ratings int    `json:"ratings"`
	}
	assert.Equal(t, json.Unmarshal(recv(t, created), &got), nil)
	assert.Equal(t, got.UserID, "u2")
	assert.Equal(t, got.Ratings, 4)

	select {
	case <-other:
		t.Fatal("event crossed into another property's topic")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	ts := newTestServer(t)
	m := newTestManager(t, ts, 0)

	got := make(chan json.RawMessage, 2)
	topic := ReviewUpdatedTopic("A1")
	assert.Equal(t, m.Subscribe(topic, func(data json.RawMessage) { got <- data }), nil)
	assert.Equal(t, m.Connect(context.Background(), "u1"), nil)
	server := recv(t, ts.conns)

	assert.Equal(t, m.Unsubscribe(topic), nil)
	assert.Equal(t, len(m.Topics()), 0)

	assert.Equal(t, server.WriteMessage(websocket.TextMessage, []byte(`{"event":"update_review_A1","data":{}}`)), nil)
	select {
	case <-got:
		t.Fatal("handler ran after unsubscribe")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEmitWritesEnvelope(t *testing.T) {
	ts := newTestServer(t)
	m := newTestManager(t, ts, 0)

	assert.Equal(t, m.Connect(context.Background(), "u1"), nil)
	server := recv(t, ts.conns)

	payload := map[string]interface{}{"property_id": "A1", "ratings": 5}
	assert.Equal(t, m.Emit(EventReviewCreated, payload), nil)

	assert.Equal(t, server.SetReadDeadline(time.Now().Add(2*time.Second)), nil)
	_, message, err := server.ReadMessage()
	assert.Equal(t, err, nil)

	var env Envelope
	assert.Equal(t, json.Unmarshal(message, &env), nil)
	assert.Equal(t, env.Event, "send_review")

	var data map[string]interface{}
	assert.Equal(t, json.Unmarshal(env.Data, &data), nil)
	assert.Equal(t, data["property_id"], "A1")
}

func TestEmitWithoutConnection(t *testing.T) {
	ts := newTestServer(t)
	m := newTestManager(t, ts, 0)

	err := m.Emit(EventReviewCreated, map[string]string{})
	assert.Equal(t, errors.Is(err, ErrNotConnected), true)
	assert.Equal(t, errors.Is(err, apperr.ErrNetwork), true)
}

func TestDisconnectDropsSubscriptions(t *testing.T) {
	ts := newTestServer(t)
	m := newTestManager(t, ts, 0)

	assert.Equal(t, m.Subscribe(ReviewCreatedTopic("A1"), func(json.RawMessage) {}), nil)
	assert.Equal(t, m.Subscribe(ReviewUpdatedTopic("A1"), func(json.RawMessage) {}), nil)
	assert.Equal(t, m.Connect(context.Background(), "u1"), nil)
	server := recv(t, ts.conns)

	assert.Equal(t, m.Disconnect(), nil)
	assert.Equal(t, m.State(), Disconnected)
	assert.Equal(t, len(m.Topics()), 0)

	assert.Equal(t, server.SetReadDeadline(time.Now().Add(2*time.Second)), nil)
	_, _, err := server.ReadMessage()
	assert.NotEqual(t, err, nil)
}

func TestTransportDropWithoutReconnect(t *testing.T) {
	ts := newTestServer(t)
	m := newTestManager(t, ts, 0)

	assert.Equal(t, m.Subscribe(ReviewCreatedTopic("A1"), func(json.RawMessage) {}), nil)
	assert.Equal(t, m.Connect(context.Background(), "u1"), nil)
	server := recv(t, ts.conns)

	assert.Equal(t, server.Close(), nil)
	eventually(t, func() bool { return m.State() == Disconnected })

	// Subscriptions outlive the transport.
	assert.Equal(t, len(m.Topics()), 1)

	select {
	case <-ts.conns:
		t.Fatal("reconnected with reconnect disabled")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestTransportDropReconnects(t *testing.T) {
	ts := newTestServer(t)
	m := newTestManager(t, ts, 20*time.Millisecond)

	assert.Equal(t, m.Connect(context.Background(), "u7"), nil)
	assert.Equal(t, recv(t, ts.userIDs), "u7")
	first := recv(t, ts.conns)

	assert.Equal(t, first.Close(), nil)

	assert.Equal(t, recv(t, ts.userIDs), "u7")
	recv(t, ts.conns)
	eventually(t, func() bool { return m.State() == Connected })
}

func TestConnectFailure(t *testing.T) {
	ts := newTestServer(t)
	url := ts.socketURL()
	ts.Close()

	m := NewManager(context.Background(), url, testSettings(0))
	t.Cleanup(m.Close)

	err := m.Connect(context.Background(), "u1")
	assert.Equal(t, errors.Is(err, apperr.ErrNetwork), true)
	assert.Equal(t, m.State(), Disconnected)
}

func TestClosedManagerRejectsCommands(t *testing.T) {
	ts := newTestServer(t)
	m := NewManager(context.Background(), ts.socketURL(), testSettings(0))
	m.Close()

	assert.Equal(t, m.Subscribe("x", func(json.RawMessage) {}), ErrClosed)
	assert.Equal(t, m.Connect(context.Background(), "u1"), ErrClosed)
}

func TestTopics(t *testing.T) {
	assert.Equal(t, ReviewCreatedTopic("A1"), "send_review_A1")
	assert.Equal(t, ReviewUpdatedTopic("A1"), "update_review_A1")
	assert.Equal(t, DefaultSettings().ReconnectTimeout > 0, true)
}
