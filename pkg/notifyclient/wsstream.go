package notifyclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Hub frame vocabulary. Kept in sync with the server's websocket hub.
const (
	frameSubscribe             = "subscribe"
	frameConnectionEstablished = "connection:established"
	frameSubscriptionSucceeded = "subscription:succeeded"
	frameSubscriptionError     = "subscription:error"

	eventNewNotification = "new-notification"
)

// AuthorizeFunc exchanges a socket id and channel name for a signed grant,
// typically by calling the realtime auth endpoint.
type AuthorizeFunc func(ctx context.Context, socketID, channel string) (string, error)

// WSStreamOptions configures the websocket push stream.
type WSStreamOptions struct {
	// URL is the websocket endpoint including the access token query param.
	URL string
	// Channel is the notification channel to subscribe to.
	Channel string
	// Authorize obtains the channel grant for this socket.
	Authorize AuthorizeFunc
	// HandshakeTimeout bounds the dial plus subscribe exchange.
	HandshakeTimeout time.Duration
}

// WSStream opens websocket subscriptions speaking the hub protocol.
type WSStream struct {
	opts WSStreamOptions
}

// NewWSStream validates the stream configuration.
func NewWSStream(opts WSStreamOptions) (*WSStream, error) {
	if opts.URL == "" {
		return nil, errors.New("websocket url required")
	}
	if opts.Channel == "" {
		return nil, errors.New("channel required")
	}
	if opts.Authorize == nil {
		return nil, errors.New("authorize func required")
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	return &WSStream{opts: opts}, nil
}

// wireFrame is the union of hub control frames and event envelopes.
type wireFrame struct {
	Type     string          `json:"type,omitempty"`
	SocketID string          `json:"socketId,omitempty"`
	Channel  string          `json:"channel,omitempty"`
	Message  string          `json:"message,omitempty"`
	Event    string          `json:"event,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// Subscribe dials the hub, completes the grant handshake, and returns a live
// subscription. A refused grant maps to ErrSubscriptionDenied.
func (s *WSStream) Subscribe(ctx context.Context) (Subscription, error) {
	handshakeCtx, cancel := context.WithTimeout(ctx, s.opts.HandshakeTimeout)
	defer cancel()

	dialer := websocket.Dialer{HandshakeTimeout: s.opts.HandshakeTimeout}
	conn, _, err := dialer.DialContext(handshakeCtx, s.opts.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing hub: %w", err)
	}

	deadline := time.Now().Add(s.opts.HandshakeTimeout)
	_ = conn.SetReadDeadline(deadline)

	socketID, err := awaitFrame(conn, frameConnectionEstablished)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("awaiting connection frame: %w", err)
	}

	auth, err := s.opts.Authorize(handshakeCtx, socketID.SocketID, s.opts.Channel)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("obtaining grant: %w", err)
	}

	_ = conn.SetWriteDeadline(deadline)
	payload := struct {
		Type    string `json:"type"`
		Channel string `json:"channel"`
		Auth    string `json:"auth"`
	}{frameSubscribe, s.opts.Channel, auth}
	if err := conn.WriteJSON(payload); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("sending subscribe frame: %w", err)
	}

	reply, err := awaitFrame(conn, frameSubscriptionSucceeded, frameSubscriptionError)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("awaiting subscription reply: %w", err)
	}
	if reply.Type == frameSubscriptionError {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: %s", ErrSubscriptionDenied, reply.Message)
	}

	// Handshake done; the read loop owns the deadline from here.
	_ = conn.SetReadDeadline(time.Time{})

	sub := &wsSubscription{
		conn:   conn,
		events: make(chan Notification),
		done:   make(chan struct{}),
	}
	go sub.readLoop()
	return sub, nil
}

func awaitFrame(conn *websocket.Conn, wanted ...string) (*wireFrame, error) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		var frame wireFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		for _, t := range wanted {
			if frame.Type == t {
				return &frame, nil
			}
		}
	}
}

type wsSubscription struct {
	conn   *websocket.Conn
	events chan Notification
	done   chan struct{}

	closeOnce sync.Once
	mu        sync.Mutex
	err       error
}

func (s *wsSubscription) Events() <-chan Notification {
	return s.events
}

func (s *wsSubscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *wsSubscription) Done() <-chan struct{} {
	return s.done
}

func (s *wsSubscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.conn.Close()
	})
	return err
}

func (s *wsSubscription) readLoop() {
	defer close(s.done)
	defer close(s.events)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
			return
		}

		var frame wireFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		if frame.Event != eventNewNotification || len(frame.Data) == 0 {
			continue
		}

		var notification Notification
		if err := json.Unmarshal(frame.Data, &notification); err != nil {
			continue
		}
		s.events <- notification
	}
}
