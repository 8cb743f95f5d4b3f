package chat

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Frame is one inbound message as delivered by a Transport.
type Frame struct {
	// Text is false for binary or other non-text frames.
	Text    bool
	Payload []byte
}

// Transport is the already-negotiated bidirectional connection a Session
// runs on. ReadFrame is only called from the session goroutine and
// WriteFrame only from the session's writer goroutine. Close may be called
// from anywhere, more than once.
type Transport interface {
	// ReadFrame blocks for the next inbound frame. It returns io.EOF or an
	// error wrapping ErrConnClosed when the peer closed cleanly.
	ReadFrame() (Frame, error)
	WriteFrame(payload []byte) error
	Close() error
}

// JoinRequest carries what the dispatcher extracted from a new connection.
type JoinRequest struct {
	Room string     `validate:"required"`
	Name string     `validate:"required"`
	Page Pagination
}

// Validate reports a missing room or name, or a negative window bound.
func (r JoinRequest) Validate() error {
	return validate.Struct(r)
}

// State is a session's position in its lifecycle. States only move forward.
type State int32

const (
	StateConnecting State = iota
	StateJoined
	StateRelaying
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateJoined:
		return "joined"
	case StateRelaying:
		return "relaying"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Session drives one connection: join the room, send history, relay
// inbound frames, leave. All outbound traffic goes through the session's
// Outbox and is written by a single writer goroutine.
type Session struct {
	id        string
	registry  *Registry
	transport Transport
	req       JoinRequest
	outbox    *Outbox
	logger    *zap.Logger

	state      atomic.Int32
	writerDone chan struct{}
}

// NewSession prepares a session in StateConnecting. Nothing happens until
// Run is called.
func NewSession(registry *Registry, transport Transport, req JoinRequest, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.NewString()
	return &Session{
		id:        id,
		registry:  registry,
		transport: transport,
		req:       req,
		outbox:    NewOutbox(),
		logger: logger.With(
			zap.String("session_id", id),
			zap.String("room", req.Room),
			zap.String("user", req.Name),
		),
		writerDone: make(chan struct{}),
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// Request returns the join request the session was created with.
func (s *Session) Request() JoinRequest {
	return s.req
}

// State returns the session's current state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Close closes the underlying transport, which ends the relay loop.
func (s *Session) Close() error {
	return s.transport.Close()
}

// Run executes the session to completion and returns once the connection
// has been released. It returns nil on a clean end of stream, an
// *AlreadyTakenError when admission fails, a *MalformedFrameError when the
// client sent an undecodable frame, or the transport's error.
func (s *Session) Run() error {
	go s.writeLoop()
	defer s.finish()

	room := s.registry.GetOrCreate(s.req.Room)
	member, history, err := room.JoinWithHistory(s.req.Name, s.outbox, s.req.Page)
	if err != nil {
		s.logger.Info("join rejected", zap.Error(err))
		s.sendError(err)
		s.setState(StateClosed)
		return err
	}
	// Runs before finish; a no-op when the explicit Leave below already ran.
	defer member.Leave()
	s.setState(StateJoined)
	s.logger.Debug("history sent", zap.Int("messages", len(history)))
	s.setState(StateRelaying)

	relayErr := s.relay(room)

	// The member must be gone before any error frame is queued.
	member.Leave()
	s.setState(StateClosed)

	switch {
	case relayErr == nil:
		s.logger.Debug("connection closed by peer")
	case errors.Is(relayErr, ErrMalformedFrame):
		s.logger.Info("closing session on malformed frame", zap.Error(relayErr))
		s.sendError(relayErr)
	default:
		s.logger.Info("connection lost", zap.Error(relayErr))
	}
	return relayErr
}

func (s *Session) relay(room *Room) error {
	for {
		frame, err := s.transport.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, ErrConnClosed) {
				return nil
			}
			return fmt.Errorf("reading frame: %w", err)
		}

		text, err := DecodeIncoming(frame)
		if err != nil {
			return err
		}
		room.Broadcast(s.req.Name, NewMessage(s.req.Name, text))
	}
}

func (s *Session) sendError(err error) {
	_ = s.outbox.Push(EncodeError(err))
}

// writeLoop is the only goroutine that writes to the transport.
func (s *Session) writeLoop() {
	defer close(s.writerDone)

	for {
		frame, ok := s.outbox.Next()
		if !ok {
			return
		}
		if err := s.transport.WriteFrame(frame); err != nil {
			s.logger.Debug("write failed", zap.Error(err))
			s.outbox.Discard()
			_ = s.transport.Close()
			return
		}
	}
}

func (s *Session) finish() {
	s.outbox.Close()
	<-s.writerDone
	if err := s.transport.Close(); err != nil {
		s.logger.Debug("closing transport", zap.Error(err))
	}
}

func (s *Session) setState(state State) {
	s.state.Store(int32(state))
}
