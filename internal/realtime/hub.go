package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/multierr"

	"github.com/mvaldezh/whisperlink-backend/pkg/auth"
	"github.com/mvaldezh/whisperlink-backend/pkg/config"
	pkgerrors "github.com/mvaldezh/whisperlink-backend/pkg/errors"
	"github.com/mvaldezh/whisperlink-backend/pkg/logger"
	"github.com/mvaldezh/whisperlink-backend/pkg/metrics"
)

// Frame types exchanged with connected sockets. Event envelopes from the
// broker are forwarded verbatim alongside these control frames.
const (
	FrameSubscribe             = "subscribe"
	FrameUnsubscribe           = "unsubscribe"
	FrameConnectionEstablished = "connection:established"
	FrameSubscriptionSucceeded = "subscription:succeeded"
	FrameSubscriptionError     = "subscription:error"
)

type sessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// Hub upgrades websocket connections and relays broker envelopes to sockets
// that hold a valid grant for the channel.
type Hub struct {
	broker     *Broker
	authorizer *Authorizer
	sessions   sessionChecker
	jwtCfg     config.JWTConfig
	cfg        config.RealtimeConfig
	logg       *logger.Logger
	metrics    *metrics.RealtimeMetrics
	upgrader   websocket.Upgrader
}

// NewHub wires the websocket hub.
func NewHub(
	broker *Broker,
	authorizer *Authorizer,
	sessions sessionChecker,
	jwtCfg config.JWTConfig,
	cfg config.RealtimeConfig,
	logg *logger.Logger,
	rt *metrics.RealtimeMetrics,
) (*Hub, error) {
	if broker == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "broker required")
	}
	if authorizer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "authorizer required")
	}
	if sessions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "session checker required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &Hub{
		broker:     broker,
		authorizer: authorizer,
		sessions:   sessions,
		jwtCfg:     jwtCfg,
		cfg:        cfg,
		logg:       logg,
		metrics:    rt,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}, nil
}

type clientFrame struct {
	Type    string `json:"type"`
	Channel string `json:"channel,omitempty"`
	Auth    string `json:"auth,omitempty"`
}

type serverFrame struct {
	Type     string `json:"type"`
	SocketID string `json:"socketId,omitempty"`
	Channel  string `json:"channel,omitempty"`
	Message  string `json:"message,omitempty"`
}

// HandleConnection authenticates the request, upgrades it, and runs the socket
// until the client disconnects.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, err := auth.ParseAccessToken(h.jwtCfg, r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	active, err := h.sessions.HasSession(ctx, claims.ID)
	if err != nil {
		http.Error(w, "session check failed", http.StatusServiceUnavailable)
		return
	}
	if !active {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logg.Error(ctx, "websocket upgrade failed", err)
		return
	}

	socketID := uuid.NewString()
	logCtx := h.logg.WithFields(ctx, map[string]any{
		"socket_id": socketID,
		"user_id":   claims.UserID.String(),
	})
	h.logg.Info(logCtx, "websocket connected")

	if err := h.runSocket(logCtx, conn, socketID, claims.UserID); err != nil {
		h.logg.Warn(logCtx, "websocket closed with error: "+err.Error())
		return
	}
	h.logg.Info(logCtx, "websocket disconnected")
}

type socketState struct {
	mu         sync.Mutex
	subscribed map[string]bool // logical channel names
}

func (s *socketState) add(channel string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribed[channel] = true
}

func (s *socketState) remove(channel string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.subscribed[channel] {
		return false
	}
	delete(s.subscribed, channel)
	return true
}

func (s *socketState) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribed)
}

func (h *Hub) runSocket(ctx context.Context, conn *websocket.Conn, socketID string, userID uuid.UUID) (retErr error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Subscription starts empty; channels join on verified subscribe frames.
	subscription, err := h.broker.Subscribe(ctx)
	if err != nil {
		_ = conn.Close()
		return err
	}

	state := &socketState{subscribed: map[string]bool{}}
	send := make(chan []byte, h.sendQueueSize())

	defer func() {
		for i := 0; i < state.count(); i++ {
			h.metrics.SubscriptionClosed()
		}
		retErr = multierr.Combine(retErr, subscription.Close(), conn.Close())
	}()

	writerDone := make(chan struct{})
	go h.writeLoop(ctx, conn, send, writerDone)

	// A dead writer means the socket is unusable; closing the connection
	// unblocks the read loop below.
	go func() {
		select {
		case <-writerDone:
			_ = conn.Close()
		case <-ctx.Done():
		}
	}()

	go func() {
		// Redis fan-in: the subscription only carries verified channels.
		for msg := range subscription.Channel() {
			select {
			case send <- []byte(msg.Payload):
			case <-ctx.Done():
				return
			}
		}
	}()

	h.enqueueFrame(ctx, send, serverFrame{Type: FrameConnectionEstablished, SocketID: socketID})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			// Normal closure or network drop; either way the socket is done.
			return nil
		}

		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.enqueueFrame(ctx, send, serverFrame{Type: FrameSubscriptionError, Message: "malformed frame"})
			continue
		}

		switch frame.Type {
		case FrameSubscribe:
			h.handleSubscribe(ctx, subscription, state, send, socketID, userID, frame)
		case FrameUnsubscribe:
			h.handleUnsubscribe(ctx, subscription, state, frame.Channel)
		default:
			h.enqueueFrame(ctx, send, serverFrame{Type: FrameSubscriptionError, Message: "unknown frame type"})
		}
	}
}

func (h *Hub) handleSubscribe(
	ctx context.Context,
	subscription *redislib.PubSub,
	state *socketState,
	send chan<- []byte,
	socketID string,
	userID uuid.UUID,
	frame clientFrame,
) {
	channel, err := ParseChannel(frame.Channel)
	if err != nil {
		h.enqueueFrame(ctx, send, serverFrame{Type: FrameSubscriptionError, Channel: frame.Channel, Message: "invalid channel"})
		return
	}
	if channel.Owner != userID || !h.authorizer.Verify(socketID, frame.Channel, frame.Auth) {
		// Denied subscriptions leave the connection usable for other channels.
		h.enqueueFrame(ctx, send, serverFrame{Type: FrameSubscriptionError, Channel: frame.Channel, Message: "subscription denied"})
		return
	}

	if err := subscription.Subscribe(ctx, h.broker.ChannelKey(frame.Channel)); err != nil {
		h.enqueueFrame(ctx, send, serverFrame{Type: FrameSubscriptionError, Channel: frame.Channel, Message: "subscribe failed"})
		return
	}

	state.add(frame.Channel)
	h.metrics.SubscriptionOpened()
	h.enqueueFrame(ctx, send, serverFrame{Type: FrameSubscriptionSucceeded, Channel: frame.Channel})
}

func (h *Hub) handleUnsubscribe(
	ctx context.Context,
	subscription *redislib.PubSub,
	state *socketState,
	channel string,
) {
	if !state.remove(channel) {
		return
	}
	h.metrics.SubscriptionClosed()
	if err := subscription.Unsubscribe(ctx, h.broker.ChannelKey(channel)); err != nil {
		h.logg.Warn(h.logg.WithChannel(ctx, channel), "unsubscribe failed: "+err.Error())
	}
}

func (h *Hub) writeLoop(ctx context.Context, conn *websocket.Conn, send <-chan []byte, done chan<- struct{}) {
	defer close(done)

	pingInterval := h.cfg.PingInterval
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout()))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout()))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) enqueueFrame(ctx context.Context, send chan<- []byte, frame serverFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	select {
	case send <- data:
	case <-ctx.Done():
	default:
		// Slow consumer; drop the control frame rather than block the reader.
	}
}

func (h *Hub) sendQueueSize() int {
	if h.cfg.SendQueueSize > 0 {
		return h.cfg.SendQueueSize
	}
	return 64
}

func (h *Hub) writeTimeout() time.Duration {
	if h.cfg.WriteTimeout > 0 {
		return h.cfg.WriteTimeout
	}
	return 10 * time.Second
}
