package server

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/gochat/internal/config"
)

func testWebSocketConfig() config.WebSocketConfig {
	return config.WebSocketConfig{
		AllowedOrigins: []string{"http://localhost:8080"},
		MaxMessageSize: 4096,
		WriteWait:      time.Second,
		PongWait:       time.Minute,
		PingPeriod:     30 * time.Second,
	}
}

func TestParseJoinRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/chat/general?username=alice&take=10&offset=5", nil)
	r.SetPathValue("room", "general")

	req, err := parseJoinRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "general", req.Room)
	assert.Equal(t, "alice", req.Name)
	require.NotNil(t, req.Page.Take)
	require.NotNil(t, req.Page.Offset)
	assert.Equal(t, 10, *req.Page.Take)
	assert.Equal(t, 5, *req.Page.Offset)
}

func TestParseJoinRequestWithoutWindow(t *testing.T) {
	r := httptest.NewRequest("GET", "/chat/general?username=alice", nil)
	r.SetPathValue("room", "general")

	req, err := parseJoinRequest(r)
	require.NoError(t, err)
	assert.Nil(t, req.Page.Take)
	assert.Nil(t, req.Page.Offset)
}

func TestParseJoinRequestRejects(t *testing.T) {
	tests := []struct {
		name    string
		room    string
		query   string
		wantErr string
	}{
		{"missing username", "general", "", "username is required"},
		{"empty username", "general", "username=", "username is required"},
		{"missing room", "", "username=alice", "room is required"},
		{"negative take", "general", "username=alice&take=-1", "take must not be negative"},
		{"negative offset", "general", "username=alice&offset=-3", "offset must not be negative"},
		{"non-numeric take", "general", "username=alice&take=ten", "take must be an integer"},
		{"non-numeric offset", "general", "username=alice&offset=1.5", "offset must be an integer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/chat/x?"+tt.query, nil)
			r.SetPathValue("room", tt.room)

			_, err := parseJoinRequest(r)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseJoinRequestReportsEveryProblem(t *testing.T) {
	r := httptest.NewRequest("GET", "/chat/?take=-1", nil)

	_, err := parseJoinRequest(r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "room is required")
	assert.Contains(t, err.Error(), "username is required")
	assert.Contains(t, err.Error(), "take must not be negative")
}
