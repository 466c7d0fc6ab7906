// Package push keeps a websocket to the notification channel open for the
// signed-in user and fans incoming events out to registered handlers.
package push

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
	"github.com/safar/storefront/internal/config"
)

const EventNotificationNew = "notification:new"

type Credentials interface {
	Token() string
}

// Handler receives the raw data of one event. Handlers run on the read loop
// in arrival order and must not block for long.
type Handler func(data json.RawMessage)

type Settings struct {
	URL              string
	Namespace        string
	ReconnectTimeout time.Duration
	ReadTimeout      time.Duration
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
}

func DefaultSettings(cfg *config.PushConfig) *Settings {
	return &Settings{
		URL:              cfg.URL,
		Namespace:        cfg.Namespace,
		ReconnectTimeout: cfg.ReconnectTimeout,
		ReadTimeout:      cfg.ReadTimeout,
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
	}
}

type message struct {
	Event     string          `json:"event"`
	Namespace string          `json:"namespace"`
	Data      json.RawMessage `json:"data"`
}

type Client struct {
	ctx         context.Context
	cancel      context.CancelFunc
	settings    *Settings
	credentials Credentials
	dialer      *websocket.Dialer

	mu          sync.Mutex
	handlers    map[string]map[uint64]Handler
	nextHandler uint64
	connected   bool
	connects    int
	stateChange chan struct{}
}

// NewClient starts connecting in the background. The connection is retried
// every ReconnectTimeout until Close.
func NewClient(ctx context.Context, settings *Settings, credentials Credentials) *Client {
	cancelCtx, cancel := context.WithCancel(ctx)
	c := &Client{
		ctx:         cancelCtx,
		cancel:      cancel,
		settings:    settings,
		credentials: credentials,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: settings.HandshakeTimeout,
		},
		handlers:    make(map[string]map[uint64]Handler),
		stateChange: make(chan struct{}),
	}
	go c.run()
	return c
}

// On registers h for event. The returned function removes it; it is safe to
// call more than once.
func (c *Client) On(event string, h Handler) func() {
	c.mu.Lock()
	id := c.nextHandler
	c.nextHandler++
	if c.handlers[event] == nil {
		c.handlers[event] = make(map[uint64]Handler)
	}
	c.handlers[event][id] = h
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.handlers[event], id)
			c.mu.Unlock()
		})
	}
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// WaitConnected blocks until the socket has been established at least n
// times in total.
func (c *Client) WaitConnected(ctx context.Context, n int) error {
	for {
		c.mu.Lock()
		connects := c.connects
		changed := c.stateChange
		c.mu.Unlock()
		if connects >= n {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.ctx.Done():
			return fmt.Errorf("push client closed")
		case <-changed:
		}
	}
}

func (c *Client) Close() {
	c.cancel()
}

func (c *Client) setConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = connected
	if connected {
		c.connects++
	}
	close(c.stateChange)
	c.stateChange = make(chan struct{})
}

func (c *Client) dial() (*websocket.Conn, error) {
	u, err := url.Parse(c.settings.URL)
	if err != nil {
		return nil, fmt.Errorf("parse push url: %w", err)
	}
	if c.settings.Namespace != "" {
		q := u.Query()
		q.Set("namespace", c.settings.Namespace)
		u.RawQuery = q.Encode()
	}

	header := http.Header{}
	if c.credentials != nil {
		if token := c.credentials.Token(); token != "" {
			header.Set("Authorization", "Bearer "+token)
		}
	}

	ws, resp, err := c.dialer.DialContext(c.ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial push channel: status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial push channel: %w", err)
	}
	return ws, nil
}

func (c *Client) run() {
	defer c.cancel()

	for {
		reconnect := newReconnect(c.settings.ReconnectTimeout)

		ws, err := c.dial()
		if err != nil {
			glog.Infof("[push]connect error = %s", err)
			select {
			case <-c.ctx.Done():
				return
			case <-reconnect.After():
				continue
			}
		}

		glog.V(1).Infof("[push]connected %s", c.settings.URL)
		c.setConnected(true)
		c.serve(ws)
		c.setConnected(false)
		glog.V(1).Infof("[push]disconnected %s", c.settings.URL)

		reconnect = newReconnect(c.settings.ReconnectTimeout)
		select {
		case <-c.ctx.Done():
			return
		case <-reconnect.After():
		}
	}
}

func (c *Client) serve(ws *websocket.Conn) {
	defer ws.Close()

	handleCtx, handleCancel := context.WithCancel(c.ctx)
	defer handleCancel()

	extend := func() {
		if c.settings.ReadTimeout > 0 {
			ws.SetReadDeadline(time.Now().Add(c.settings.ReadTimeout))
		}
	}
	ws.SetPongHandler(func(string) error {
		extend()
		return nil
	})

	go func() {
		defer handleCancel()
		if c.settings.ReadTimeout <= 0 {
			<-handleCtx.Done()
			return
		}
		for {
			select {
			case <-handleCtx.Done():
				return
			case <-time.After(c.settings.ReadTimeout / 2):
				deadline := time.Now().Add(c.settings.WriteTimeout)
				if err := ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					glog.Infof("[push]ping error = %s", err)
					return
				}
			}
		}
	}()

	go func() {
		<-handleCtx.Done()
		// unblocks the reader
		ws.Close()
	}()

	for {
		extend()
		messageType, data, err := ws.ReadMessage()
		if err != nil {
			if handleCtx.Err() == nil {
				glog.Infof("[push]read error = %s", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			glog.V(2).Infof("[push]other=%d", messageType)
			continue
		}
		c.dispatch(data)
	}
}

func (c *Client) dispatch(data []byte) {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		glog.Infof("[push]drop malformed message: %s", err)
		return
	}
	if msg.Namespace != "" && c.settings.Namespace != "" && msg.Namespace != c.settings.Namespace {
		glog.V(2).Infof("[push]drop namespace %s", msg.Namespace)
		return
	}

	c.mu.Lock()
	handlers := make([]Handler, 0, len(c.handlers[msg.Event]))
	for _, h := range c.handlers[msg.Event] {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()

	glog.V(2).Infof("[push]%s<- (%d handlers)", msg.Event, len(handlers))
	for _, h := range handlers {
		h(msg.Data)
	}
}
