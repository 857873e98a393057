// Package notifyclient keeps a client-side view of a user's notification log
// in sync with the server. The view is seeded from a fetch and updated by
// pushes; because both sources can race, merges are keyed by id and ordered by
// (createdAt, id), so applying them in any order converges to the same view.
package notifyclient

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Notification mirrors the server's wire shape for one event.
type Notification struct {
	ID           uuid.UUID `json:"id"`
	Kind         string    `json:"kind"`
	Text         string    `json:"text"`
	RedirectPath *string   `json:"redirectPath,omitempty"`
	Viewed       bool      `json:"viewed"`
	CreatedAt    time.Time `json:"createdAt"`
}

// State is the subscription lifecycle of the client.
type State int

const (
	StateDisconnected State = iota
	StateSubscribing
	StateSynced
	// StateDegraded means the fetched view is being served but the push
	// channel was refused, so no live updates arrive.
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateSubscribing:
		return "subscribing"
	case StateSynced:
		return "synced"
	case StateDegraded:
		return "degraded"
	default:
		return "disconnected"
	}
}

// ErrSubscriptionDenied is returned by a Stream when the channel grant is
// refused. Denial stops resubscription, not the client: the fetched view
// stays served without live updates.
var ErrSubscriptionDenied = errors.New("channel subscription denied")

// Fetcher reads the authoritative active list from the store.
type Fetcher interface {
	ListActive(ctx context.Context) ([]Notification, error)
}

// Mutator applies state changes to the store.
type Mutator interface {
	MarkViewed(ctx context.Context, ids []uuid.UUID) error
	Delete(ctx context.Context, ids []uuid.UUID) error
	ClearAll(ctx context.Context) error
}

// Subscription is one live push stream session.
type Subscription interface {
	// Events yields pushes until the subscription ends.
	Events() <-chan Notification
	// Err reports why the subscription ended; nil while it is live.
	Err() error
	// Done closes when the subscription ends for any reason.
	Done() <-chan struct{}
	Close() error
}

// Stream opens push subscriptions on the user's notification channel.
type Stream interface {
	Subscribe(ctx context.Context) (Subscription, error)
}

func sortNewestFirst(items []Notification) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID.String() > items[j].ID.String()
	})
}
