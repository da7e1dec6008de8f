package push

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"helpdesk-console/internal/domain"
)

type nopLogger struct{}

func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Debug(context.Context, string, ...any) {}

type reconnectCounter struct{ n atomic.Int32 }

func (r *reconnectCounter) NavigationResolved(string) {}
func (r *reconnectCounter) GuardDecision(string)      {}
func (r *reconnectCounter) LoginAttempt(string)       {}
func (r *reconnectCounter) PushReconnect()            { r.n.Add(1) }
func (r *reconnectCounter) NotificationReceived()     {}

type collector struct {
	mu   sync.Mutex
	msgs []domain.NotificationMessage
}

func (c *collector) deliver(m domain.NotificationMessage) {
	c.mu.Lock()
	c.msgs = append(c.msgs, m)
	c.mu.Unlock()
}

func (c *collector) ids() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.msgs))
	for i, m := range c.msgs {
		out[i] = m.ID
	}
	return out
}

// pushServer records subscriptions, sends the given frames and then drops the
// connection.
func pushServer(t *testing.T, frames []string) (*httptest.Server, *atomic.Int32, chan []string) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	var connects atomic.Int32
	subscribed := make(chan []string, 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		connects.Add(1)

		var dests []string
		for i := 0; i < 2; i++ {
			var f frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			dests = append(dests, f.Command+" "+f.Destination)
		}
		select {
		case subscribed <- dests:
		default:
		}
		for _, raw := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &connects, subscribed
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func session() domain.Session {
	return domain.Session{ID: "s1", Authenticated: true, Identity: domain.Identity{ID: "u1"}, Tokens: domain.TokenPair{AccessToken: "at"}}
}

func TestClient_SubscribesAndDelivers(t *testing.T) {
	srv, _, subscribed := pushServer(t, []string{
		`{"destination":"/user/queue/notifications","body":{"id":"n1","title":"Ticket assigned"}}`,
		`{"destination":"/topic/other","body":{"id":"ignored"}}`,
		`{"destination":"/topic/notifications","body":"{\"id\":\"n2\",\"title\":\"Maintenance\"}"}`,
		`{"destination":"/topic/notifications","body":{"title":"no id"}}`,
	})
	metrics := &reconnectCounter{}
	client := New(wsURL(srv), time.Hour, metrics, nopLogger{})
	defer client.Close()

	got := &collector{}
	client.Subscribe(context.Background(), session(), got.deliver)

	select {
	case dests := <-subscribed:
		assert.Equal(t, []string{"SUBSCRIBE /topic/notifications", "SUBSCRIBE /user/queue/notifications"}, dests)
	case <-time.After(2 * time.Second):
		t.Fatal("no subscription frames")
	}
	assert.Eventually(t, func() bool { return len(got.ids()) == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"n1", "n2"}, got.ids())
}

func TestClient_ReconnectsAfterFixedDelay(t *testing.T) {
	srv, connects, _ := pushServer(t, nil)
	metrics := &reconnectCounter{}
	client := New(wsURL(srv), 20*time.Millisecond, metrics, nopLogger{})

	client.Subscribe(context.Background(), session(), func(domain.NotificationMessage) {})
	assert.Eventually(t, func() bool { return connects.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, metrics.n.Load(), int32(2))

	client.Unsubscribe("u1")
	assert.False(t, client.Subscribed("u1"))
	time.Sleep(50 * time.Millisecond)
	settled := connects.Load()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, settled, connects.Load(), "no reconnects after unsubscribe")
}

func TestClient_SubscribeIsIdempotentPerUser(t *testing.T) {
	srv, connects, subscribed := pushServer(t, nil)
	client := New(wsURL(srv), time.Hour, &reconnectCounter{}, nopLogger{})
	defer client.Close()

	client.Subscribe(context.Background(), session(), func(domain.NotificationMessage) {})
	client.Subscribe(context.Background(), session(), func(domain.NotificationMessage) {})
	<-subscribed
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), connects.Load())
	require.True(t, client.Subscribed("u1"))
}

func TestClient_RejectedTokenStopsReconnecting(t *testing.T) {
	srv, connects, _ := pushServer(t, nil)
	metrics := &reconnectCounter{}
	client := New(wsURL(srv), 10*time.Millisecond, metrics, nopLogger{})
	defer client.Close()

	rejected := make(chan domain.Session, 1)
	client.OnRejected(func(_ context.Context, sess domain.Session) { rejected <- sess })

	sess := session()
	sess.Tokens.AccessToken = "revoked"
	client.Subscribe(context.Background(), sess, func(domain.NotificationMessage) {})

	select {
	case got := <-rejected:
		assert.Equal(t, "s1", got.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("rejection not reported")
	}
	assert.False(t, client.Subscribed("u1"))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), connects.Load())
	assert.Equal(t, int32(0), metrics.n.Load())
}

func TestDecodeBody(t *testing.T) {
	msg, err := decodeBody([]byte(`{"id":"n1","created_at":"2026-03-01T10:00:00Z"}`))
	require.NoError(t, err)
	assert.Equal(t, 2026, msg.CreatedAt.Year())

	_, err = decodeBody(nil)
	assert.Error(t, err)
	_, err = decodeBody([]byte(`"not json"`))
	assert.Error(t, err)
}
