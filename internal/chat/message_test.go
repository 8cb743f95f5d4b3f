package chat

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeIncoming(t *testing.T) {
	tests := []struct {
		name    string
		frame   Frame
		want    string
		wantErr string
	}{
		{name: "valid", frame: Frame{Text: true, Payload: []byte(`{"text":"hi"}`)}, want: "hi"},
		{name: "empty text allowed", frame: Frame{Text: true, Payload: []byte(`{"text":""}`)}, want: ""},
		{name: "unknown fields ignored", frame: Frame{Text: true, Payload: []byte(`{"text":"hi","extra":1}`)}, want: "hi"},
		{name: "binary frame", frame: Frame{Text: false, Payload: []byte(`{"text":"hi"}`)}, wantErr: invalidMessageText},
		{name: "invalid utf8", frame: Frame{Text: true, Payload: []byte{0xff, 0xfe}}, wantErr: invalidMessageText},
		{name: "not json", frame: Frame{Text: true, Payload: []byte(`hello`)}, wantErr: bodyFormatText},
		{name: "json array", frame: Frame{Text: true, Payload: []byte(`["hi"]`)}, wantErr: bodyFormatText},
		{name: "missing text", frame: Frame{Text: true, Payload: []byte(`{"content":"hi"}`)}, wantErr: bodyFormatText},
		{name: "null", frame: Frame{Text: true, Payload: []byte(`null`)}, wantErr: bodyFormatText},
		{name: "text not string", frame: Frame{Text: true, Payload: []byte(`{"text":5}`)}, wantErr: bodyFormatText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeIncoming(tt.frame)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}
			require.ErrorIs(t, err, ErrMalformedFrame)
			var malformed *MalformedFrameError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, tt.wantErr, malformed.Reason)
		})
	}
}

func TestEncodeMessages(t *testing.T) {
	empty, err := EncodeMessages(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))

	one, err := EncodeMessages([]Message{NewMessage("alice", "hi")})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"author":"alice","text":"hi"}]`, string(one))
}

func TestEncodeError(t *testing.T) {
	taken := EncodeError(&AlreadyTakenError{Room: "general", Name: "alice"})
	assert.JSONEq(t, `{"error_message":"user with name \"alice\" already exists in chat \"general\""}`, string(taken))

	malformed := EncodeError(&MalformedFrameError{Reason: bodyFormatText, Err: errors.New("boom")})
	assert.JSONEq(t, `{"error_message":"body format is wrong"}`, string(malformed))

	other := EncodeError(errors.New("database exploded"))
	assert.JSONEq(t, `{"error_message":"something went wrong"}`, string(other))
}

func TestJoinRequestValidate(t *testing.T) {
	ok, negative := 3, -1
	assert.NoError(t, JoinRequest{Room: "general", Name: "alice"}.Validate())
	assert.NoError(t, JoinRequest{Room: "general", Name: "alice", Page: Pagination{Take: &ok, Offset: &ok}}.Validate())
	assert.Error(t, JoinRequest{Room: "general", Name: "alice", Page: Pagination{Take: &negative}}.Validate())
	assert.Error(t, JoinRequest{Room: "general", Name: "alice", Page: Pagination{Offset: &negative}}.Validate())
	assert.Error(t, JoinRequest{Room: "", Name: "alice"}.Validate())
	assert.Error(t, JoinRequest{Room: "general", Name: ""}.Validate())
}
