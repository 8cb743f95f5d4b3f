// Package testutil provides helpers shared by tests that drive the GoChat
// server over real HTTP and WebSocket connections.
package testutil

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/gochat/internal/chat"
)

// TestOrigin is the Origin header test clients send.
const TestOrigin = "http://localhost:8080"

// ReadTimeout bounds every frame read in tests.
const ReadTimeout = 2 * time.Second

// ChatURL builds the ws:// URL for joining room as username on the server
// at httpURL. Extra query parameters such as take or offset may be passed
// as key/value pairs.
func ChatURL(t *testing.T, httpURL, room, username string, extra ...string) string {
	t.Helper()
	u, err := url.Parse(httpURL)
	require.NoError(t, err)
	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	u.Path = "/chat/" + url.PathEscape(room)

	q := url.Values{}
	if username != "" {
		q.Set("username", username)
	}
	for i := 0; i+1 < len(extra); i += 2 {
		q.Set(extra[i], extra[i+1])
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Dial opens a WebSocket connection with the test Origin header. The
// handshake response is returned so callers can inspect rejected upgrades.
func Dial(wsURL string) (*websocket.Conn, *http.Response, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	headers.Set("Origin", TestOrigin)

	conn, resp, err := dialer.Dial(wsURL, headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, resp, err
}

// Connect dials wsURL and fails the test if the handshake does not succeed.
// The connection is closed when the test ends.
func Connect(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := Dial(wsURL)
	require.NoError(t, err, "dialing %s", wsURL)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// SendText sends a chat message frame carrying text.
func SendText(t *testing.T, conn *websocket.Conn, text string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]string{"text": text}))
}

// SendRaw sends an arbitrary frame.
func SendRaw(t *testing.T, conn *websocket.Conn, messageType int, data []byte) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(messageType, data))
}

// ReadFrame reads the next text frame within ReadTimeout.
func ReadFrame(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(ReadTimeout)))
	messageType, data, err := conn.ReadMessage()
	require.NoError(t, err, "reading frame")
	assert.Equal(t, websocket.TextMessage, messageType)
	return data
}

// ReadMessages reads the next frame and decodes it as a message array.
func ReadMessages(t *testing.T, conn *websocket.Conn) []chat.Message {
	t.Helper()
	data := ReadFrame(t, conn)
	var messages []chat.Message
	require.NoError(t, json.Unmarshal(data, &messages), "frame %s is not a message array", data)
	return messages
}

// ReadError reads the next frame and returns its error_message.
func ReadError(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	data := ReadFrame(t, conn)
	var frame chat.ErrorFrame
	require.NoError(t, json.Unmarshal(data, &frame), "frame %s is not an error object", data)
	require.NotEmpty(t, frame.ErrorMessage, "frame %s has no error_message", data)
	return frame.ErrorMessage
}

// ExpectNoMessage fails the test if a data frame arrives within wait. A
// timed-out gorilla connection cannot be read again, so this must be the
// last read on conn.
func ExpectNoMessage(t *testing.T, conn *websocket.Conn, wait time.Duration) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(wait)))
	_, data, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("expected no message, got %s", data)
	}
	var netErr net.Error
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Fatalf("expected read timeout, got %v", err)
	}
}

// ExpectClosed fails the test unless the server ends the connection within
// ReadTimeout.
func ExpectClosed(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(ReadTimeout)))
	for {
		_, data, err := conn.ReadMessage()
		if err == nil {
			t.Logf("frame before close: %s", data)
			continue
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			t.Fatalf("connection still open after %s", ReadTimeout)
		}
		return
	}
}

// CloseWebSocket sends a normal-closure frame and closes the connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}

// MakeRequest executes a plain HTTP request with a 5-second timeout.
func MakeRequest(t *testing.T, method, target string) *http.Response {
	t.Helper()

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(method, target, http.NoBody)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// Eventually polls cond until it holds or the timeout passes.
func Eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, ReadTimeout, 10*time.Millisecond, msg)
}
