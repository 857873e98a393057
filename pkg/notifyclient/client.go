package notifyclient

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Options configures a Client.
type Options struct {
	Fetcher Fetcher
	Mutator Mutator
	Stream  Stream

	// OnError receives asynchronous failures (failed mutations, stream
	// drops). Optional.
	OnError func(error)
	// OnChange fires after every view change. Optional.
	OnChange func()

	// ResubscribeBackoff is the initial delay before re-subscribing after a
	// transport failure; it doubles per attempt up to MaxResubscribeBackoff.
	ResubscribeBackoff    time.Duration
	MaxResubscribeBackoff time.Duration
}

// Client reconciles fetched state with pushed events into one local view.
// All view access is serialized under a single mutex; every asynchronous
// completion carries the session generation it belongs to, and completions
// from torn-down sessions are discarded.
type Client struct {
	opts Options

	mu         sync.Mutex
	state      State
	generation uint64
	view       map[uuid.UUID]Notification
	cancel     context.CancelFunc
	denied     bool
}

// New validates the wiring and returns a disconnected client.
func New(opts Options) (*Client, error) {
	if opts.Fetcher == nil {
		return nil, errors.New("fetcher required")
	}
	if opts.Mutator == nil {
		return nil, errors.New("mutator required")
	}
	if opts.Stream == nil {
		return nil, errors.New("stream required")
	}
	if opts.ResubscribeBackoff <= 0 {
		opts.ResubscribeBackoff = time.Second
	}
	if opts.MaxResubscribeBackoff < opts.ResubscribeBackoff {
		opts.MaxResubscribeBackoff = 30 * time.Second
	}
	return &Client{
		opts: opts,
		view: map[uuid.UUID]Notification{},
	}, nil
}

// Start seeds the view from a fetch and opens the push subscription. It
// returns once the session loop is running; sync progress is observable via
// State.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return errors.New("client already started")
	}
	if c.denied {
		c.mu.Unlock()
		return ErrSubscriptionDenied
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	go c.run(runCtx)
	return nil
}

// Stop tears the session down and discards the local view.
func (c *Client) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.generation++ // invalidate in-flight completions
	c.view = map[uuid.UUID]Notification{}
	c.state = StateDisconnected
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.notifyChange()
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// List returns the active view newest first.
func (c *Client) List() []Notification {
	c.mu.Lock()
	items := make([]Notification, 0, len(c.view))
	for _, n := range c.view {
		items = append(items, n)
	}
	c.mu.Unlock()

	sortNewestFirst(items)
	return items
}

// UnreadCount is derived from the view, never tracked separately.
func (c *Client) UnreadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, n := range c.view {
		if !n.Viewed {
			count++
		}
	}
	return count
}

// MarkRead flips the given ids to viewed locally, then persists. A failed
// persist surfaces on OnError; the optimistic view is kept, the next sync
// reconciles.
func (c *Client) MarkRead(ctx context.Context, ids []uuid.UUID) {
	if len(ids) == 0 {
		return
	}
	c.mu.Lock()
	gen := c.generation
	changed := false
	for _, id := range ids {
		if n, ok := c.view[id]; ok && !n.Viewed {
			n.Viewed = true
			c.view[id] = n
			changed = true
		}
	}
	c.mu.Unlock()

	if changed {
		c.notifyChange()
	}
	go c.persist(ctx, gen, func(ctx context.Context) error {
		return c.opts.Mutator.MarkViewed(ctx, ids)
	})
}

// MarkAllRead marks exactly the ids that are unread in the view right now.
// Events arriving afterwards are unaffected.
func (c *Client) MarkAllRead(ctx context.Context) {
	c.mu.Lock()
	ids := make([]uuid.UUID, 0, len(c.view))
	for id, n := range c.view {
		if !n.Viewed {
			ids = append(ids, id)
		}
	}
	c.mu.Unlock()

	c.MarkRead(ctx, ids)
}

// Delete removes the ids from the view and tombstones them in the store.
func (c *Client) Delete(ctx context.Context, ids []uuid.UUID) {
	if len(ids) == 0 {
		return
	}
	c.mu.Lock()
	gen := c.generation
	changed := false
	for _, id := range ids {
		if _, ok := c.view[id]; ok {
			delete(c.view, id)
			changed = true
		}
	}
	c.mu.Unlock()

	if changed {
		c.notifyChange()
	}
	go c.persist(ctx, gen, func(ctx context.Context) error {
		return c.opts.Mutator.Delete(ctx, ids)
	})
}

// ClearAll empties the view and tombstones everything server side.
func (c *Client) ClearAll(ctx context.Context) {
	c.mu.Lock()
	gen := c.generation
	changed := len(c.view) > 0
	c.view = map[uuid.UUID]Notification{}
	c.mu.Unlock()

	if changed {
		c.notifyChange()
	}
	go c.persist(ctx, gen, func(ctx context.Context) error {
		return c.opts.Mutator.ClearAll(ctx)
	})
}

func (c *Client) run(ctx context.Context) {
	backoff := c.opts.ResubscribeBackoff

	for {
		gen := c.beginSession()

		err := c.runSession(ctx, gen)
		if err == nil || ctx.Err() != nil {
			return
		}
		if errors.Is(err, ErrSubscriptionDenied) {
			// A refused grant only loses live updates. The fetch already
			// seeded the view, which keeps being served without push.
			c.mu.Lock()
			c.denied = true
			c.state = StateDegraded
			c.mu.Unlock()
			c.notifyError(err)
			c.notifyChange()
			return
		}

		// Transport failure: keep serving the last view and retry. The
		// next session's fetch replaces it with a fresh snapshot.
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()
		c.notifyError(err)
		c.notifyChange()

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff *= 2; backoff > c.opts.MaxResubscribeBackoff {
			backoff = c.opts.MaxResubscribeBackoff
		}
	}
}

// beginSession invalidates completions from the previous session but keeps
// the view: it stays served until the next fetch replaces it.
func (c *Client) beginSession() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.state = StateSubscribing
	return c.generation
}

// runSession fetches first, then subscribes. The fetch alone yields a usable
// view, so a refused or unreachable push channel degrades to fetch-only
// instead of an empty screen. Events appended between fetch and subscribe
// surface on the next session's fetch.
func (c *Client) runSession(ctx context.Context, gen uint64) error {
	seed, err := c.opts.Fetcher.ListActive(ctx)
	if err != nil {
		return err
	}
	c.replaceView(gen, seed)

	subscription, err := c.opts.Stream.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer subscription.Close()

	pushDone := make(chan struct{})
	go func() {
		defer close(pushDone)
		for n := range subscription.Events() {
			c.merge(gen, n)
		}
	}()

	c.mu.Lock()
	if c.generation == gen {
		c.state = StateSynced
	}
	c.mu.Unlock()
	c.notifyChange()

	select {
	case <-ctx.Done():
		_ = subscription.Close()
		<-pushDone
		return nil
	case <-subscription.Done():
		<-pushDone
		if err := subscription.Err(); err != nil {
			return err
		}
		return errors.New("push stream closed")
	}
}

// replaceView swaps in the fetched snapshot. Entries absent from the snapshot
// drop out (tombstoned elsewhere); for surviving ids the local viewed flag is
// carried forward, so an unpersisted optimistic read is not undone.
func (c *Client) replaceView(gen uint64, seed []Notification) {
	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return
	}
	next := make(map[uuid.UUID]Notification, len(seed))
	for _, n := range seed {
		if existing, ok := c.view[n.ID]; ok {
			n.Viewed = n.Viewed || existing.Viewed
		}
		next[n.ID] = n
	}
	c.view = next
	c.mu.Unlock()
	c.notifyChange()
}

func (c *Client) merge(gen uint64, n Notification) {
	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return
	}
	c.mergeLocked(n)
	c.mu.Unlock()
	c.notifyChange()
}

// mergeLocked upserts by id. Viewed only moves forward, so replaying an older
// copy of an event never un-reads it.
func (c *Client) mergeLocked(n Notification) {
	if existing, ok := c.view[n.ID]; ok {
		n.Viewed = n.Viewed || existing.Viewed
	}
	c.view[n.ID] = n
}

func (c *Client) persist(ctx context.Context, gen uint64, op func(context.Context) error) {
	err := op(ctx)
	if err == nil {
		return
	}
	c.mu.Lock()
	stale := c.generation != gen
	c.mu.Unlock()
	if stale {
		return
	}
	c.notifyError(err)
}

func (c *Client) notifyError(err error) {
	if c.opts.OnError != nil {
		c.opts.OnError(err)
	}
}

func (c *Client) notifyChange() {
	if c.opts.OnChange != nil {
		c.opts.OnChange()
	}
}
