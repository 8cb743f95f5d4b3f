package server

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"github.com/Tyrowin/gochat/internal/chat"
)

func TestClassifyReadError(t *testing.T) {
	c := &wsConn{addr: "127.0.0.1:1234", logger: zaptest.NewLogger(t)}

	clean := []error{
		&websocket.CloseError{Code: websocket.CloseNormalClosure},
		&websocket.CloseError{Code: websocket.CloseGoingAway},
		&websocket.CloseError{Code: websocket.CloseNoStatusReceived},
		io.EOF,
		errors.New("read tcp 127.0.0.1:8080: use of closed network connection"),
	}
	for _, err := range clean {
		assert.ErrorIs(t, c.classifyReadError(err), chat.ErrConnClosed, "error %v", err)
	}

	failures := []error{
		&websocket.CloseError{Code: websocket.CloseAbnormalClosure},
		websocket.ErrReadLimit,
		errors.New("i/o timeout"),
	}
	for _, err := range failures {
		got := c.classifyReadError(err)
		assert.NotErrorIs(t, got, chat.ErrConnClosed, "error %v", err)
		assert.ErrorIs(t, got, err)
	}
}

func TestIsExpectedCloseError(t *testing.T) {
	assert.True(t, isExpectedCloseError(nil))
	assert.True(t, isExpectedCloseError(websocket.ErrCloseSent))
	assert.True(t, isExpectedCloseError(fmt.Errorf("write: %w", websocket.ErrCloseSent)))
	assert.True(t, isExpectedCloseError(errors.New("write tcp: broken pipe")))
	assert.False(t, isExpectedCloseError(errors.New("connection reset by peer")))
}
