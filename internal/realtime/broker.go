package realtime

import (
	"context"
	"encoding/json"

	redislib "github.com/redis/go-redis/v9"

	pkgerrors "github.com/mvaldezh/whisperlink-backend/pkg/errors"
	"github.com/mvaldezh/whisperlink-backend/pkg/logger"
)

// Envelope is the wire shape relayed between publishers and subscribed
// sockets. Data holds the event payload as-is.
type Envelope struct {
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data"`
}

type brokerStore interface {
	Publish(ctx context.Context, channel string, payload any) error
	Subscribe(ctx context.Context, channels ...string) (*redislib.PubSub, error)
	RealtimeChannelKey(channel string) string
}

// Broker fans events out through redis Pub/Sub. Each logical channel maps to
// one redis key, so per-channel publish order is preserved end to end.
type Broker struct {
	store brokerStore
	logg  *logger.Logger
}

// NewBroker wires the redis-backed push transport.
func NewBroker(store brokerStore, logg *logger.Logger) (*Broker, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "redis client required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &Broker{store: store, logg: logg}, nil
}

// Trigger marshals the payload into an envelope and publishes it on the
// channel's redis key.
func (b *Broker) Trigger(ctx context.Context, channel, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode push payload")
	}
	envelope, err := json.Marshal(Envelope{
		Channel: channel,
		Event:   event,
		Data:    data,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode push envelope")
	}

	if err := b.store.Publish(ctx, b.store.RealtimeChannelKey(channel), envelope); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish push envelope")
	}
	return nil
}

// Subscribe opens a redis subscription for the hub. Channel names are logical;
// the key mapping happens here.
func (b *Broker) Subscribe(ctx context.Context, channels ...string) (*redislib.PubSub, error) {
	keys := make([]string, 0, len(channels))
	for _, channel := range channels {
		keys = append(keys, b.store.RealtimeChannelKey(channel))
	}
	sub, err := b.store.Subscribe(ctx, keys...)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "subscribe push channels")
	}
	return sub, nil
}

// ChannelKey exposes the logical-to-redis key mapping for subscribers that
// need to add or remove channels on a live subscription.
func (b *Broker) ChannelKey(channel string) string {
	return b.store.RealtimeChannelKey(channel)
}
