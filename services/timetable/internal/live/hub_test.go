package live

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dial(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev Event
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func TestHubBroadcastsToSubscribers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil, "", zap.NewNop())
	go hub.Run(ctx)

	first := dial(t, hub)
	second := dial(t, hub)
	require.Eventually(t, func() bool { return hub.Subscribers() == 2 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(ctx, "entry.created", 3, map[string]string{"id": "e1"})

	for _, conn := range []*websocket.Conn{first, second} {
		ev := readEvent(t, conn)
		assert.Equal(t, "entry.created", ev.Type)
		assert.Equal(t, 3, ev.TermID)
		assert.Equal(t, map[string]any{"id": "e1"}, ev.Payload)
	}
}

func TestHubDropsClosedSubscribers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil, "", zap.NewNop())
	go hub.Run(ctx)

	conn := dial(t, hub)
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestPublishAfterStopDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil, "", zap.NewNop())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	for i := 0; i < sendBuffer+1; i++ {
		hub.Publish(context.Background(), "entry.deleted", 1, nil)
	}
}

func TestHubFansOutThroughRedis(t *testing.T) {
	addr := os.Getenv("TIMETABLE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TIMETABLE_TEST_REDIS_ADDR not set")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { rdb.Close() })
	require.NoError(t, rdb.Ping(ctx).Err())

	channel := "timetable:test:" + time.Now().Format("150405.000000")
	publisher := NewHub(rdb, channel, zap.NewNop())
	subscriber := NewHub(rdb, channel, zap.NewNop())
	go publisher.Run(ctx)
	go subscriber.Run(ctx)

	conn := dial(t, subscriber)
	require.Eventually(t, func() bool { return subscriber.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)
	// Subscribe is asynchronous; give it a moment to reach the server.
	time.Sleep(200 * time.Millisecond)

	publisher.Publish(ctx, "timetable.generated", 7, map[string]int{"created": 42})
	ev := readEvent(t, conn)
	assert.Equal(t, "timetable.generated", ev.Type)
	assert.Equal(t, 7, ev.TermID)
}
