package chat

import (
	"encoding/json"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// Message is a single chat line as stored in room history and delivered to
// members. Messages are immutable once created.
type Message struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

// NewMessage builds a Message authored by the given display name.
func NewMessage(author, text string) Message {
	return Message{Author: author, Text: text}
}

// IncomingMessage is the JSON payload clients send over the connection.
// Text is a pointer so that a missing field can be told apart from an empty
// string.
type IncomingMessage struct {
	Text *string `json:"text" validate:"required"`
}

// Pagination is the optional history window requested at join time.
type Pagination struct {
	Take   *int `validate:"omitempty,gte=0"`
	Offset *int `validate:"omitempty,gte=0"`
}

// ErrorFrame is the JSON object sent to a connection before it is closed
// because of an error.
type ErrorFrame struct {
	ErrorMessage string `json:"error_message"`
}

var validate = validator.New()

// DecodeIncoming turns one inbound frame into the text it carries. Frames
// that are not text, not valid UTF-8, not a JSON object, or that lack the
// text field are reported as a *MalformedFrameError.
func DecodeIncoming(frame Frame) (string, error) {
	if !frame.Text || !utf8.Valid(frame.Payload) {
		return "", &MalformedFrameError{Reason: invalidMessageText}
	}

	var incoming IncomingMessage
	if err := json.Unmarshal(frame.Payload, &incoming); err != nil {
		return "", &MalformedFrameError{Reason: bodyFormatText, Err: err}
	}
	if err := validate.Struct(incoming); err != nil {
		return "", &MalformedFrameError{Reason: bodyFormatText, Err: err}
	}
	return *incoming.Text, nil
}

// EncodeMessages renders messages as a JSON array frame. A nil or empty
// slice encodes as [] rather than null.
func EncodeMessages(messages []Message) ([]byte, error) {
	if messages == nil {
		messages = []Message{}
	}
	return json.Marshal(messages)
}

// EncodeError renders the error frame for err.
func EncodeError(err error) []byte {
	payload, marshalErr := json.Marshal(ErrorFrame{ErrorMessage: errorText(err)})
	if marshalErr != nil {
		return []byte(`{"error_message":"` + somethingWrongText + `"}`)
	}
	return payload
}
