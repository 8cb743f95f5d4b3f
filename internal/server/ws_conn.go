package server

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Tyrowin/gochat/internal/chat"
	"github.com/Tyrowin/gochat/internal/config"
)

// wsConn is a chat.Transport over a gorilla WebSocket. ReadFrame and
// WriteFrame each have a single caller; the keepalive goroutine only uses
// WriteControl, which gorilla allows concurrently with other writers.
type wsConn struct {
	conn       *websocket.Conn
	addr       string
	logger     *zap.Logger
	writeWait  time.Duration
	pongWait   time.Duration
	pingPeriod time.Duration

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func newWSConn(conn *websocket.Conn, addr string, cfg config.WebSocketConfig, logger *zap.Logger) *wsConn {
	c := &wsConn{
		conn:       conn,
		addr:       addr,
		logger:     logger,
		writeWait:  cfg.WriteWait,
		pongWait:   cfg.PongWait,
		pingPeriod: cfg.PingPeriod,
		done:       make(chan struct{}),
	}
	conn.SetReadLimit(cfg.MaxMessageSize)
	c.setupReadConnection()
	go c.keepalive()
	return c
}

// setupReadConnection configures read deadlines and pong handler for the WebSocket connection
func (c *wsConn) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.pongWait)); err != nil {
		c.logger.Warn("setting initial read deadline", zap.Error(err))
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.pongWait)); err != nil {
			c.logger.Warn("setting read deadline in pong handler", zap.Error(err))
		}
		return nil
	})
}

// ReadFrame returns the next data frame from the peer.
func (c *wsConn) ReadFrame() (chat.Frame, error) {
	messageType, payload, err := c.conn.ReadMessage()
	if err != nil {
		return chat.Frame{}, c.classifyReadError(err)
	}
	return chat.Frame{Text: messageType == websocket.TextMessage, Payload: payload}, nil
}

// classifyReadError maps a read failure to either a clean end of stream
// (wrapping chat.ErrConnClosed) or a transport failure.
func (c *wsConn) classifyReadError(err error) error {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.logger.Info("message exceeded maximum size", zap.String("remote_addr", c.addr))
		return fmt.Errorf("reading message: %w", err)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived):
		c.logger.Debug("client disconnected", zap.String("remote_addr", c.addr), zap.Error(err))
		return fmt.Errorf("%w: %v", chat.ErrConnClosed, err)
	case errors.Is(err, io.EOF), isExpectedCloseError(err):
		c.logger.Debug("connection closed", zap.String("remote_addr", c.addr), zap.Error(err))
		return fmt.Errorf("%w: %v", chat.ErrConnClosed, err)
	default:
		c.logger.Info("websocket read error", zap.String("remote_addr", c.addr), zap.Error(err))
		return err
	}
}

// WriteFrame writes one text frame within the configured write deadline.
func (c *wsConn) WriteFrame(payload []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
		return fmt.Errorf("setting write deadline: %w", err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	return nil
}

// Close sends a normal-closure frame and closes the socket. Only the first
// call does anything; later calls return the first result.
func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if err := c.conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(c.writeWait)); err != nil {
			if !isExpectedCloseError(err) {
				c.logger.Debug("writing close message", zap.String("remote_addr", c.addr), zap.Error(err))
			}
		}
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.closeErr = err
		}
	})
	return c.closeErr
}

// keepalive pings the peer until the connection is closed.
func (c *wsConn) keepalive() {
	ticker := time.NewTicker(c.pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeWait)); err != nil {
				if !isExpectedCloseError(err) {
					c.logger.Debug("writing ping", zap.String("remote_addr", c.addr), zap.Error(err))
				}
				return
			}
		}
	}
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, websocket.ErrCloseSent) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "broken pipe")
}
