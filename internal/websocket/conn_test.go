package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"naspac-portal/internal/testutil"

	"github.com/gorilla/websocket"
)

// serveFeed starts a server that upgrades every request into a Conn for clientID
func serveFeed(t *testing.T, hub *Hub, clientID string, feed FeedFunc, interval time.Duration) *websocket.Conn {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		NewConn(context.Background(), hub, ws, clientID, feed, interval).Serve()
	}))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	testutil.AssertNoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) ServerMessage {
	t.Helper()
	testutil.AssertNoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	testutil.AssertNoError(t, err)

	var msg ServerMessage
	testutil.AssertNoError(t, json.Unmarshal(raw, &msg))
	return msg
}

func TestConn_PushesFeedOnConnect(t *testing.T) {
	hub, _ := startHub(t)
	feed := func(ctx context.Context) (any, error) {
		return map[string]int{"unviewed": 2}, nil
	}
	conn := serveFeed(t, hub, "client-a", feed, time.Hour)

	msg := readMessage(t, conn)
	testutil.AssertEqual(t, msg.Type, TypeNotifications)
	data, ok := msg.Data.(map[string]any)
	testutil.AssertTrue(t, ok, "data should be an object")
	testutil.AssertEqual(t, data["unviewed"].(float64), 2.0)
}

func TestConn_RefreshForcesPoll(t *testing.T) {
	hub, _ := startHub(t)
	var polls atomic.Int32
	feed := func(ctx context.Context) (any, error) {
		return polls.Add(1), nil
	}
	conn := serveFeed(t, hub, "client-a", feed, time.Hour)

	first := readMessage(t, conn)
	testutil.AssertEqual(t, first.Data.(float64), 1.0)

	testutil.AssertNoError(t, conn.WriteJSON(ClientMessage{Type: "refresh"}))
	second := readMessage(t, conn)
	testutil.AssertEqual(t, second.Data.(float64), 2.0)
}

func TestConn_PollsOnInterval(t *testing.T) {
	hub, _ := startHub(t)
	var polls atomic.Int32
	feed := func(ctx context.Context) (any, error) {
		return polls.Add(1), nil
	}
	conn := serveFeed(t, hub, "client-a", feed, 20*time.Millisecond)

	readMessage(t, conn)
	readMessage(t, conn)
	testutil.AssertTrue(t, polls.Load() >= 2, "feed should be polled repeatedly")
}

func TestConn_FeedErrorSendsError(t *testing.T) {
	hub, _ := startHub(t)
	feed := func(ctx context.Context) (any, error) {
		return nil, errors.New("backend down")
	}
	conn := serveFeed(t, hub, "client-a", feed, time.Hour)

	msg := readMessage(t, conn)
	testutil.AssertEqual(t, msg.Type, TypeError)
}

func TestConn_ReceivesHubMessages(t *testing.T) {
	hub, _ := startHub(t)
	feed := func(ctx context.Context) (any, error) { return "ready", nil }
	conn := serveFeed(t, hub, "client-a", feed, time.Hour)

	// the first poll runs after registration
	readMessage(t, conn)

	testutil.AssertNoError(t, hub.Send("client-a", TypeNotice, "Logged out successfully"))
	msg := readMessage(t, conn)
	testutil.AssertEqual(t, msg.Type, TypeNotice)
	testutil.AssertEqual(t, msg.Data.(string), "Logged out successfully")
}

func TestConn_CloseConnectionIdempotent(t *testing.T) {
	hub, _ := startHub(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := NewConn(context.Background(), hub, ws, "client-a", nil, 0)
		c.closeConnection()
		c.closeConnection()
		if err := c.writeMessage(websocket.TextMessage, []byte("x")); err != websocket.ErrCloseSent {
			t.Errorf("writeMessage after close = %v, want ErrCloseSent", err)
		}
		if c.interval != defaultPollInterval {
			t.Errorf("interval = %v, want default", c.interval)
		}
	}))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	testutil.AssertNoError(t, err)
	conn.Close()
}
