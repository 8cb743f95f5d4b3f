package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/Tyrowin/gochat/internal/chat"
	"github.com/Tyrowin/gochat/internal/config"
)

// errShuttingDown is returned to callers that connect after Shutdown began.
var errShuttingDown = errors.New("server is shutting down")

// Dispatcher accepts new chat connections, upgrades them and runs one
// chat.Session per connection. It keeps track of live sessions so they can
// be closed on shutdown.
type Dispatcher struct {
	registry *chat.Registry
	wsConfig config.WebSocketConfig
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu       sync.Mutex
	sessions map[*chat.Session]struct{}
	closing  bool
	wg       sync.WaitGroup
}

// NewDispatcher creates a Dispatcher serving rooms from registry.
func NewDispatcher(registry *chat.Registry, wsConfig config.WebSocketConfig, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("dispatcher")
	origins := newOriginPolicy(wsConfig.AllowedOrigins, logger)
	return &Dispatcher{
		registry: registry,
		wsConfig: wsConfig,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.checkOrigin,
		},
		logger:   logger,
		sessions: make(map[*chat.Session]struct{}),
	}
}

// Registry returns the room registry sessions join through.
func (d *Dispatcher) Registry() *chat.Registry {
	return d.registry
}

// HandleChat validates the join request, upgrades the connection and runs
// the session until the connection ends. Bad requests get a 400 before any
// upgrade happens.
func (d *Dispatcher) HandleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Chat endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	req, err := parseJoinRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if !d.track() {
		http.Error(w, errShuttingDown.Error(), http.StatusServiceUnavailable)
		return
	}
	defer d.wg.Done()

	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		d.logger.Info("websocket upgrade failed", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}

	transport := newWSConn(conn, r.RemoteAddr, d.wsConfig, d.logger)
	session := chat.NewSession(d.registry, transport, req, d.logger)

	if !d.register(session) {
		_ = transport.Close()
		return
	}
	defer d.unregister(session)

	d.logger.Debug("session started",
		zap.String("session_id", session.ID()),
		zap.String("remote_addr", r.RemoteAddr),
	)
	if err := session.Run(); err != nil {
		d.logger.Debug("session ended with error", zap.String("session_id", session.ID()), zap.Error(err))
	}
}

// ActiveSessions returns the number of sessions currently running.
func (d *Dispatcher) ActiveSessions() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sessions)
}

// Shutdown stops accepting connections, closes every live session and
// waits for them to finish or for ctx to expire.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closing = true
	sessions := lo.Keys(d.sessions)
	d.mu.Unlock()

	d.logger.Info("closing chat sessions", zap.Int("sessions", len(sessions)))
	for _, session := range sessions {
		if err := session.Close(); err != nil {
			d.logger.Debug("closing session", zap.String("session_id", session.ID()), zap.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("chat sessions closed")
		return nil
	case <-ctx.Done():
		d.logger.Warn("timed out waiting for chat sessions", zap.Int("remaining", d.ActiveSessions()))
		return fmt.Errorf("waiting for sessions: %w", ctx.Err())
	}
}

// track reserves a slot in the wait group unless shutdown has started.
func (d *Dispatcher) track() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closing {
		return false
	}
	d.wg.Add(1)
	return true
}

func (d *Dispatcher) register(session *chat.Session) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closing {
		return false
	}
	d.sessions[session] = struct{}{}
	return true
}

func (d *Dispatcher) unregister(session *chat.Session) {
	d.mu.Lock()
	delete(d.sessions, session)
	d.mu.Unlock()
}

// queryFields names request fields the way clients spell them.
var queryFields = map[string]string{
	"Room":   "room",
	"Name":   "username",
	"Take":   "take",
	"Offset": "offset",
}

// parseJoinRequest reads the room from the path and the display name and
// history window from the query string.
func parseJoinRequest(r *http.Request) (chat.JoinRequest, error) {
	query := r.URL.Query()
	req := chat.JoinRequest{
		Room: r.PathValue("room"),
		Name: query.Get("username"),
	}

	var err error
	if req.Page.Take, err = optionalInt(query, "take"); err != nil {
		return chat.JoinRequest{}, err
	}
	if req.Page.Offset, err = optionalInt(query, "offset"); err != nil {
		return chat.JoinRequest{}, err
	}

	if err := req.Validate(); err != nil {
		return chat.JoinRequest{}, describeValidation(err)
	}
	return req, nil
}

func optionalInt(query url.Values, key string) (*int, error) {
	raw := query.Get(key)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be an integer", key)
	}
	return &n, nil
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	problems := lo.Map(verrs, func(fe validator.FieldError, _ int) string {
		name := queryFields[fe.Field()]
		if name == "" {
			name = strings.ToLower(fe.Field())
		}
		switch fe.Tag() {
		case "required":
			return name + " is required"
		case "gte":
			return name + " must not be negative"
		default:
			return name + " is invalid"
		}
	})
	return errors.New(strings.Join(problems, "; "))
}
