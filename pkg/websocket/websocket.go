package websocketPkg

import (
	"ProjectSpatial/pkg/log"
	"ProjectSpatial/pkg/stream"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var ErrInvalidURL = errors.New("relay url must use ws or wss scheme")

// IRelay pulls frames from remote WebSocket cameras into the frame hub.
type IRelay interface {
	Attach(sessionID string, rawURL string) error
	Detach(sessionID string)
	IsAttached(sessionID string) bool
	CloseAll()
}

type relayConn struct {
	conn *websocket.Conn
	host string
}

type relayClient struct {
	hub          stream.IFrameHub
	conns        map[string]*relayConn
	mu           sync.Mutex
	pingInterval time.Duration
	writeTimeout time.Duration
	dialTimeout  time.Duration
	readLimit    int64
}

func NewRelayClient(hub stream.IFrameHub) IRelay {
	return &relayClient{
		hub:          hub,
		conns:        make(map[string]*relayConn),
		pingInterval: 30 * time.Second,
		writeTimeout: 5 * time.Second,
		dialTimeout:  10 * time.Second,
		readLimit:    10 << 20,
	}
}

func (c *relayClient) Attach(sessionID string, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		return ErrInvalidURL
	}

	c.Detach(sessionID)

	// rawURL may embed credentials; log the host only.
	log.Info(log.Fields{
		"session_id": sessionID,
		"host":       u.Host,
	}, "[relay.Attach] connecting to camera")

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = c.dialTimeout

	conn, _, err := dialer.Dial(rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", u.Host, err)
	}
	conn.SetReadLimit(c.readLimit)

	conn.SetPingHandler(func(appData string) error {
		if err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.writeTimeout)); err != nil {
			log.Warn(log.Fields{"session_id": sessionID, "error": err.Error()}, "[relay] error sending pong")
		}
		return nil
	})

	rc := &relayConn{conn: conn, host: u.Host}

	c.mu.Lock()
	c.conns[sessionID] = rc
	c.mu.Unlock()

	go c.readLoop(sessionID, rc)
	go c.keepAlive(sessionID, rc)

	return nil
}

func (c *relayClient) IsAttached(sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.conns[sessionID]
	return ok
}

func (c *relayClient) Detach(sessionID string) {
	c.mu.Lock()
	rc, ok := c.conns[sessionID]
	delete(c.conns, sessionID)
	c.mu.Unlock()

	if ok {
		rc.conn.Close()
		c.hub.Drop(sessionID)
	}
}

func (c *relayClient) CloseAll() {
	c.mu.Lock()
	conns := c.conns
	c.conns = make(map[string]*relayConn)
	c.mu.Unlock()

	for _, rc := range conns {
		rc.conn.Close()
	}
}

// readLoop publishes binary messages as-is and text messages as base64.
func (c *relayClient) readLoop(sessionID string, rc *relayConn) {
	defer c.forget(sessionID, rc)

	for {
		msgType, message, err := rc.conn.ReadMessage()
		if err != nil {
			log.Warn(log.Fields{
				"session_id": sessionID,
				"host":       rc.host,
				"error":      err.Error(),
			}, "[relay.readLoop] camera connection closed")
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			c.hub.Publish(sessionID, message)
		case websocket.TextMessage:
			frame, err := base64.StdEncoding.DecodeString(string(message))
			if err != nil {
				log.Warn(log.Fields{"session_id": sessionID}, "[relay.readLoop] dropping non-base64 text frame")
				continue
			}
			c.hub.Publish(sessionID, frame)
		}
	}
}

func (c *relayClient) keepAlive(sessionID string, rc *relayConn) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for range ticker.C {
		if !c.owns(sessionID, rc) {
			return
		}

		err := rc.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(c.writeTimeout))
		if err != nil {
			log.Warn(log.Fields{
				"session_id": sessionID,
				"error":      err.Error(),
			}, "[relay.keepAlive] ping failed, marking connection as dead")
			c.forget(sessionID, rc)
			return
		}
	}
}

func (c *relayClient) owns(sessionID string, rc *relayConn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conns[sessionID] == rc
}

// forget removes rc only if it is still the session's active connection,
// together with the last frame it delivered.
func (c *relayClient) forget(sessionID string, rc *relayConn) {
	c.mu.Lock()
	current := c.conns[sessionID] == rc
	if current {
		delete(c.conns, sessionID)
	}
	c.mu.Unlock()

	if current {
		c.hub.Drop(sessionID)
	}

	rc.conn.Close()
}
