// Package push keeps one websocket subscription open per authenticated user
// and hands decoded notifications to the caller.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"helpdesk-console/internal/domain"
	"helpdesk-console/internal/ports"
)

const (
	BroadcastTopic = "/topic/notifications"
	UserQueue      = "/user/queue/notifications"

	DefaultReconnectDelay = 5 * time.Second
	handshakeTimeout      = 10 * time.Second
)

type frame struct {
	Command     string          `json:"command,omitempty"`
	Destination string          `json:"destination"`
	Body        json.RawMessage `json:"body,omitempty"`
}

type Client struct {
	url     string
	delay   time.Duration
	dialer  *websocket.Dialer
	metrics ports.Metrics
	logger  ports.Logger

	mu       sync.Mutex
	subs     map[string]context.CancelFunc
	rejected func(ctx context.Context, sess domain.Session)
}

func New(url string, reconnectDelay time.Duration, metrics ports.Metrics, logger ports.Logger) *Client {
	if reconnectDelay <= 0 {
		reconnectDelay = DefaultReconnectDelay
	}
	return &Client{
		url:     url,
		delay:   reconnectDelay,
		dialer:  &websocket.Dialer{HandshakeTimeout: handshakeTimeout, Proxy: http.ProxyFromEnvironment},
		metrics: metrics,
		logger:  logger,
		subs:    map[string]context.CancelFunc{},
	}
}

// OnRejected registers fn to run when the push endpoint refuses a session's
// access token. The subscription loop has already stopped by then.
func (c *Client) OnRejected(fn func(ctx context.Context, sess domain.Session)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rejected = fn
}

// Subscribe starts the user's subscription loop. A second call for a user
// that is already subscribed is a no-op.
func (c *Client) Subscribe(ctx context.Context, sess domain.Session, deliver func(domain.NotificationMessage)) {
	key := sess.UserKey()
	c.mu.Lock()
	if _, ok := c.subs[key]; ok {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	c.subs[key] = cancel
	c.mu.Unlock()

	go c.run(ctx, sess, deliver)
}

func (c *Client) Unsubscribe(userKey string) {
	c.mu.Lock()
	cancel, ok := c.subs[userKey]
	delete(c.subs, userKey)
	c.mu.Unlock()
	if ok {
		cancel()
	}
}

// Subscribed reports whether a subscription loop is running for the user.
func (c *Client) Subscribed(userKey string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.subs[userKey]
	return ok
}

func (c *Client) Close() {
	c.mu.Lock()
	subs := c.subs
	c.subs = map[string]context.CancelFunc{}
	c.mu.Unlock()
	for _, cancel := range subs {
		cancel()
	}
}

// run reconnects after a fixed delay until ctx is cancelled or the endpoint
// rejects the access token.
func (c *Client) run(ctx context.Context, sess domain.Session, deliver func(domain.NotificationMessage)) {
	for {
		err := c.listen(ctx, sess, deliver)
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, domain.ErrUnauthenticated) {
			c.reject(ctx, sess, err)
			return
		}
		c.logger.Warn(ctx, "push channel disconnected", "user_id", sess.UserKey(), "error", err, "retry_in", c.delay.String())
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.delay):
		}
		c.metrics.PushReconnect()
	}
}

func (c *Client) reject(ctx context.Context, sess domain.Session, err error) {
	c.logger.Warn(ctx, "push channel rejected the access token", "user_id", sess.UserKey(), "error", err)
	c.Unsubscribe(sess.UserKey())
	c.mu.Lock()
	fn := c.rejected
	c.mu.Unlock()
	if fn != nil {
		fn(context.WithoutCancel(ctx), sess)
	}
}

func (c *Client) listen(ctx context.Context, sess domain.Session, deliver func(domain.NotificationMessage)) error {
	header := http.Header{}
	if sess.Tokens.AccessToken != "" {
		header.Set("Authorization", "Bearer "+sess.Tokens.AccessToken)
	}
	conn, resp, err := c.dialer.DialContext(ctx, c.url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("dial: %w", domain.ErrUnauthenticated)
		}
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for _, dest := range []string{BroadcastTopic, UserQueue} {
		if err := conn.WriteJSON(frame{Command: "SUBSCRIBE", Destination: dest}); err != nil {
			return fmt.Errorf("subscribe %s: %w", dest, err)
		}
	}
	c.logger.Info(ctx, "push channel connected", "user_id", sess.UserKey())

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			return err
		}
		if f.Destination != BroadcastTopic && f.Destination != UserQueue {
			continue
		}
		msg, err := decodeBody(f.Body)
		if err != nil {
			c.logger.Warn(ctx, "dropping undecodable push frame", "destination", f.Destination, "error", err)
			continue
		}
		deliver(msg)
	}
}

// decodeBody accepts the message either inline or as a JSON-encoded string.
func decodeBody(body json.RawMessage) (domain.NotificationMessage, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return domain.NotificationMessage{}, errors.New("empty body")
	}
	if body[0] == '"' {
		var inner string
		if err := json.Unmarshal(body, &inner); err != nil {
			return domain.NotificationMessage{}, err
		}
		body = []byte(inner)
	}
	var msg domain.NotificationMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return domain.NotificationMessage{}, err
	}
	if msg.ID == "" {
		return domain.NotificationMessage{}, errors.New("notification without id")
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	return msg, nil
}
