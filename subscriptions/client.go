package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/che-incubator/dashboard-backend/model"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var ErrNotConnected = errors.New("websocket not connected")

// Listener receives the messages of one channel.
type Listener func(model.EventMessage)

// WebSocketClient keeps a subscription connection to a dashboard backend
// open, reconnecting after a fixed delay and replaying subscriptions.
type WebSocketClient struct {
	url            string
	token          string
	reconnectDelay time.Duration
	dialer         *websocket.Dialer
	manager        *Manager

	writeMu sync.Mutex

	mu        sync.RWMutex
	conn      *websocket.Conn
	listeners map[string][]Listener
}

func NewWebSocketClient(cfg model.ClientConfig) (*WebSocketClient, error) {
	u, err := websocketURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	delay := cfg.ReconnectDelay
	if delay <= 0 {
		delay = 3 * time.Second
	}
	return &WebSocketClient{
		url:            u,
		token:          cfg.Token,
		reconnectDelay: delay,
		dialer:         &websocket.Dialer{HandshakeTimeout: 10 * time.Second, Proxy: http.ProxyFromEnvironment},
		manager:        NewManager(),
		listeners:      make(map[string][]Listener),
	}, nil
}

func websocketURL(base string) (string, error) {
	u, err := url.Parse(strings.TrimSuffix(base, "/"))
	if err != nil {
		return "", fmt.Errorf("parse dashboard url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported dashboard url scheme %q", u.Scheme)
	}
	u.Path += model.APIPrefix + "/websocket"
	return u.String(), nil
}

func (c *WebSocketClient) Manager() *Manager { return c.manager }

func (c *WebSocketClient) AddListener(channel string, l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners[channel] = append(c.listeners[channel], l)
}

// Subscribe records the subscription and sends it when connected. While
// disconnected it is sent by the next replay.
func (c *WebSocketClient) Subscribe(channel string, params model.SubscribeParams) error {
	if err := c.manager.Subscribe(c, channel, params); err != nil && !errors.Is(err, ErrNotConnected) {
		return err
	}
	return nil
}

func (c *WebSocketClient) Unsubscribe(channel string) error {
	if err := c.manager.Unsubscribe(c, channel); err != nil && !errors.Is(err, ErrNotConnected) {
		return err
	}
	return nil
}

func (c *WebSocketClient) Send(req model.SubscribeRequest) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(req)
}

// Run connects and dispatches messages until ctx is done.
func (c *WebSocketClient) Run(ctx context.Context) error {
	for {
		err := c.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		log.Warn().Err(err).Dur("retry", c.reconnectDelay).Msg("websocket disconnected")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.reconnectDelay):
		}
	}
}

func (c *WebSocketClient) session(ctx context.Context) error {
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	conn, resp, err := c.dialer.DialContext(ctx, c.url, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: %s", c.url, resp.Status)
		}
		return fmt.Errorf("dial %s: %w", c.url, err)
	}
	defer func() { _ = conn.Close() }()

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
	}()

	log.Info().Str("url", c.url).Msg("websocket connected")
	if err := c.manager.Replay(c); err != nil {
		return fmt.Errorf("replay subscriptions: %w", err)
	}

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		var msg model.ChannelMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		c.dispatch(msg)
		if c.manager.Observe(msg) {
			log.Info().Str("channel", msg.Channel).Msg("resource version expired, resubscribing")
			if err := c.manager.Resubscribe(c, msg.Channel); err != nil {
				return err
			}
		}
	}
}

func (c *WebSocketClient) dispatch(msg model.ChannelMessage) {
	c.mu.RLock()
	listeners := append([]Listener(nil), c.listeners[msg.Channel]...)
	c.mu.RUnlock()
	for _, l := range listeners {
		l(msg.Message)
	}
}
