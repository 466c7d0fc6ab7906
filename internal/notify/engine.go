// Package notify keeps the notification badge and list in sync from two
// sources: REST queries through the cache and notification:new push events.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/safar/storefront/internal/cache"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/push"
)

// Remote is the slice of the resource store the engine reads and writes.
type Remote interface {
	Cache() *cache.Cache
	UnreadCountQuery() cache.QueryDef[models.UnreadCount]
	NotificationsQuery(page, limit int) cache.QueryDef[models.Paginated[models.Notification]]
	MarkAllNotificationsRead(ctx context.Context) error
}

type Events interface {
	On(event string, h push.Handler) func()
}

type Options struct {
	PageLimit int
	// Dedup drops a pushed notification whose id is already listed.
	Dedup bool
	// Notice receives the transient message for each pushed notification.
	Notice func(message string)
}

type Engine struct {
	remote Remote
	events Events
	opts   Options

	mu         sync.Mutex
	state      state
	mounted    bool
	generation uint64
	ctx        context.Context
	cancel     context.CancelFunc
	teardown   []func()
}

func NewEngine(remote Remote, events Events, opts Options) *Engine {
	if opts.PageLimit <= 0 {
		opts.PageLimit = 20
	}
	return &Engine{
		remote: remote,
		events: events,
		opts:   opts,
	}
}

func (e *Engine) listQuery() cache.QueryDef[models.Paginated[models.Notification]] {
	return e.remote.NotificationsQuery(1, e.opts.PageLimit)
}

// Mount subscribes to the unread counter and the first list page, registers
// the push handler and fetches both queries. Fetch errors are returned but
// leave the engine mounted; later refetches recover.
func (e *Engine) Mount(ctx context.Context) error {
	e.mu.Lock()
	if e.mounted {
		e.mu.Unlock()
		return nil
	}
	e.mounted = true
	e.generation++
	generation := e.generation
	e.ctx, e.cancel = context.WithCancel(ctx)
	mountCtx := e.ctx
	e.mu.Unlock()

	c := e.remote.Cache()
	stopUnread := cache.Subscribe(c, e.remote.UnreadCountQuery(), func(count models.UnreadCount, err error) {
		if err != nil {
			return
		}
		e.update(generation, func(s *state) { s.setServerUnread(count.Count) })
	})
	stopList := cache.Subscribe(c, e.listQuery(), func(page models.Paginated[models.Notification], err error) {
		if err != nil {
			return
		}
		e.update(generation, func(s *state) { s.replaceList(items(page)) })
	})
	off := e.events.On(push.EventNotificationNew, func(data json.RawMessage) {
		e.handlePush(mountCtx, generation, data)
	})

	e.mu.Lock()
	e.teardown = []func(){off, stopList, stopUnread}
	e.mu.Unlock()

	glog.V(1).Infof("[notify]mount")

	unread, unreadErr := cache.Query(mountCtx, c, e.remote.UnreadCountQuery())
	if unreadErr == nil {
		e.update(generation, func(s *state) { s.setServerUnread(unread.Count) })
	}
	page, listErr := cache.Query(mountCtx, c, e.listQuery())
	if listErr == nil {
		e.update(generation, func(s *state) { s.replaceList(items(page)) })
	}

	if err := errors.Join(unreadErr, listErr); err != nil {
		return fmt.Errorf("sync notifications: %w", err)
	}
	return nil
}

// Unmount deregisters the push handler and the query subscriptions. Results
// still in flight are dropped.
func (e *Engine) Unmount() {
	e.mu.Lock()
	if !e.mounted {
		e.mu.Unlock()
		return
	}
	e.mounted = false
	e.generation++
	teardown := e.teardown
	e.teardown = nil
	cancel := e.cancel
	e.mu.Unlock()

	for _, f := range teardown {
		f()
	}
	cancel()
	glog.V(1).Infof("[notify]unmount")
}

// Reset unmounts and forgets all local state, for logout.
func (e *Engine) Reset() {
	e.Unmount()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = state{}
}

// OpenModal opens the list and marks everything read. The modal opens and
// the local items flip to read whatever the server answers; the refetches
// that follow reconcile the counter. The mark-all-read error, if any, is
// returned for reporting only.
func (e *Engine) OpenModal(ctx context.Context) error {
	e.mu.Lock()
	e.state.modalOpen = true
	generation := e.generation
	e.mu.Unlock()

	markErr := e.remote.MarkAllNotificationsRead(ctx)
	if markErr != nil {
		glog.Infof("[notify]mark all read: %s", markErr)
	}

	e.update(generation, func(s *state) { s.markAllRead() })

	c := e.remote.Cache()
	if _, err := cache.Refetch(ctx, c, e.remote.UnreadCountQuery()); err != nil {
		glog.Infof("[notify]refetch unread: %s", err)
	}
	if _, err := cache.Refetch(ctx, c, e.listQuery()); err != nil {
		glog.Infof("[notify]refetch list: %s", err)
	}
	return markErr
}

func (e *Engine) CloseModal() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.modalOpen = false
}

func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.view()
}

func (e *Engine) DisplayedUnread() int {
	return e.View().DisplayedUnread()
}

func (e *Engine) BadgeLabel() string {
	return e.View().BadgeLabel()
}

func (e *Engine) handlePush(ctx context.Context, generation uint64, data json.RawMessage) {
	item, err := decodeItem(data, time.Now().UTC())
	if err != nil {
		glog.Infof("[notify]drop malformed notification: %s", err)
		return
	}

	e.mu.Lock()
	if generation != e.generation {
		e.mu.Unlock()
		return
	}
	added := e.state.prepend(item, e.opts.Dedup)
	modalOpen := e.state.modalOpen
	e.mu.Unlock()

	if !added {
		glog.V(1).Infof("[notify]drop duplicate notification %s", item.ID)
		return
	}

	if e.opts.Notice != nil {
		e.opts.Notice(item.Title + ": " + item.Message)
	}

	c := e.remote.Cache()
	if _, err := cache.Refetch(ctx, c, e.remote.UnreadCountQuery()); err != nil {
		glog.Infof("[notify]refetch unread: %s", err)
	}
	if modalOpen {
		if _, err := cache.Refetch(ctx, c, e.listQuery()); err != nil {
			glog.Infof("[notify]refetch list: %s", err)
		}
	}
}

// pushedItem reads createdAt separately so an unreadable timestamp does not
// lose the rest of the notification.
type pushedItem struct {
	models.NotificationItem
	CreatedAt json.RawMessage `json:"createdAt"`
}

var createdAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC1123,
}

func decodeItem(data json.RawMessage, received time.Time) (models.NotificationItem, error) {
	var p pushedItem
	if err := json.Unmarshal(data, &p); err != nil {
		return models.NotificationItem{}, err
	}
	item := p.NotificationItem
	item.CreatedAt = parseCreatedAt(p.CreatedAt, received)
	return item, nil
}

// parseCreatedAt accepts a timestamp string or epoch milliseconds and falls
// back to the receive time.
func parseCreatedAt(raw json.RawMessage, received time.Time) time.Time {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		for _, layout := range createdAtLayouts {
			if t, err := time.Parse(layout, text); err == nil {
				return t
			}
		}
	}
	var millis int64
	if err := json.Unmarshal(raw, &millis); err == nil && millis > 0 {
		return time.UnixMilli(millis).UTC()
	}
	if len(raw) > 0 {
		glog.V(1).Infof("[notify]unreadable createdAt %s, using receive time", raw)
	}
	return received
}

func (e *Engine) update(generation uint64, f func(s *state)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if generation != e.generation {
		return
	}
	f(&e.state)
}

func items(page models.Paginated[models.Notification]) []models.NotificationItem {
	out := make([]models.NotificationItem, 0, len(page.Items))
	for _, n := range page.Items {
		out = append(out, n.Item())
	}
	return out
}
