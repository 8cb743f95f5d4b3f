package server

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestNormalizeOrigins(t *testing.T) {
	logger := zaptest.NewLogger(t)

	normalized, allowAll := normalizeOrigins([]string{
		" HTTP://LocalHost:8080 ",
		"",
		"not-an-origin",
		"https://chat.example.com",
	}, logger)
	assert.False(t, allowAll)
	assert.Equal(t, []string{"http://localhost:8080", "https://chat.example.com"}, normalized)

	_, allowAll = normalizeOrigins([]string{"*"}, logger)
	assert.True(t, allowAll)

	normalized, allowAll = normalizeOrigins(nil, logger)
	assert.Nil(t, normalized)
	assert.False(t, allowAll)
}

func TestOriginPolicy(t *testing.T) {
	policy := newOriginPolicy([]string{"http://localhost:8080"}, zaptest.NewLogger(t))

	tests := []struct {
		name   string
		origin string
		want   bool
	}{
		{"exact match", "http://localhost:8080", true},
		{"case insensitive", "HTTP://LOCALHOST:8080", true},
		{"different port", "http://localhost:9090", false},
		{"different scheme", "https://localhost:8080", false},
		{"missing header", "", false},
		{"garbage", "::::", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/chat/general", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, policy.checkOrigin(r))
		})
	}
}

func TestOriginPolicyAllowAll(t *testing.T) {
	policy := newOriginPolicy([]string{"*"}, zaptest.NewLogger(t))

	r := httptest.NewRequest("GET", "/chat/general", nil)
	r.Header.Set("Origin", "https://anywhere.example")
	assert.True(t, policy.checkOrigin(r))

	r.Header.Del("Origin")
	assert.False(t, policy.checkOrigin(r), "a missing Origin header is never allowed")
}
