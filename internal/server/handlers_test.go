package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Tyrowin/gochat/internal/chat"
)

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthHandler(rec, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	assert.Equal(t, "GoChat server is running!", rec.Body.String())
}

func TestRoomsHandlerEmpty(t *testing.T) {
	registry := chat.NewRegistry(zaptest.NewLogger(t))
	rec := httptest.NewRecorder()
	RoomsHandler(registry, zaptest.NewLogger(t))(rec, httptest.NewRequest("GET", "/rooms", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestRoomsHandlerListsRooms(t *testing.T) {
	registry := chat.NewRegistry(zaptest.NewLogger(t))
	general := registry.GetOrCreate("general")
	_, err := general.Join("alice", chat.NewOutbox())
	require.NoError(t, err)
	general.Broadcast("alice", chat.NewMessage("alice", "hi"))
	registry.GetOrCreate("empty")

	rec := httptest.NewRecorder()
	RoomsHandler(registry, zaptest.NewLogger(t))(rec, httptest.NewRequest("GET", "/rooms", nil))

	var rooms []chat.RoomInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rooms))
	require.Len(t, rooms, 2)
	assert.Equal(t, "empty", rooms[0].Name)
	assert.Equal(t, "general", rooms[1].Name)
	assert.Equal(t, []string{"alice"}, rooms[1].Members)
	assert.Equal(t, 1, rooms[1].HistoryLen)
}

func TestTestPageHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	TestPageHandler(zaptest.NewLogger(t))(rec, httptest.NewRequest("GET", "/test", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "<!DOCTYPE html>")
	assert.Contains(t, body, "/chat/")
	assert.Contains(t, body, "error_message")
}

func TestChatRejectsNonGet(t *testing.T) {
	d := NewDispatcher(chat.NewRegistry(nil), testWebSocketConfig(), zaptest.NewLogger(t))
	rec := httptest.NewRecorder()
	d.HandleChat(rec, httptest.NewRequest("POST", "/chat/general?username=alice", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
