package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/golang/glog"
)

// Tag labels what a query provides and what a mutation invalidates. A tag
// with an empty ID invalidates every tag of its type.
type Tag struct {
	Type string
	ID   string
}

func T(typ string) Tag {
	return Tag{Type: typ}
}

func TID(typ, id string) Tag {
	return Tag{Type: typ, ID: id}
}

func (t Tag) String() string {
	if t.ID == "" {
		return t.Type
	}
	return t.Type + ":" + t.ID
}

func (t Tag) invalidates(provided Tag) bool {
	if t.Type != provided.Type {
		return false
	}
	return t.ID == "" || t.ID == provided.ID
}

type QueryDef[T any] struct {
	// Key identifies the query and its parameters. Identical keys share one
	// cache entry.
	Key   string
	Fetch func(ctx context.Context) (T, error)
	// Tags lists what the query provides. It may depend on the fetched value.
	Tags func(result T) []Tag
}

type MutationDef[R any] struct {
	Name string
	Run  func(ctx context.Context) (R, error)
	// Invalidates lists the tags made stale by a successful run.
	Invalidates func(result R) []Tag
}

type subscriber func(value any, err error)

type entry struct {
	key   string
	fetch func(ctx context.Context) (any, error)
	tags  func(value any) []Tag

	provided   []Tag
	value      any
	err        error
	valid      bool
	generation uint64

	nextSubscriber uint64
	subscribers    map[uint64]subscriber
}

func (e *entry) active() bool {
	return len(e.subscribers) > 0
}

func (e *entry) snapshotSubscribers() []subscriber {
	subs := make([]subscriber, 0, len(e.subscribers))
	for _, s := range e.subscribers {
		subs = append(subs, s)
	}
	return subs
}

// Cache is a normalized store of remote query results. Writes go through
// Mutate, which invalidates tags; every subscribed query providing an
// invalidated tag is fetched again. There is no direct write API.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func New() *Cache {
	return &Cache{
		entries: make(map[string]*entry),
	}
}

func register[T any](c *Cache, def QueryDef[T]) *entry {
	e, ok := c.entries[def.Key]
	if ok {
		return e
	}

	e = &entry{
		key: def.Key,
		fetch: func(ctx context.Context) (any, error) {
			return def.Fetch(ctx)
		},
		tags: func(value any) []Tag {
			if def.Tags == nil {
				return nil
			}
			typed, _ := value.(T)
			return def.Tags(typed)
		},
		subscribers: make(map[uint64]subscriber),
	}
	c.entries[def.Key] = e
	return e
}

// Query returns the cached value for def.Key, fetching it when absent or
// invalidated. Failed fetches are not cached.
func Query[T any](ctx context.Context, c *Cache, def QueryDef[T]) (T, error) {
	c.mu.Lock()
	e := register(c, def)
	if e.valid {
		value := e.value
		c.mu.Unlock()
		typed, _ := value.(T)
		return typed, nil
	}
	c.mu.Unlock()

	value, err := c.run(ctx, e)
	typed, _ := value.(T)
	return typed, err
}

// Refetch fetches def.Key again regardless of validity and returns the result.
func Refetch[T any](ctx context.Context, c *Cache, def QueryDef[T]) (T, error) {
	c.mu.Lock()
	e := register(c, def)
	c.mu.Unlock()

	value, err := c.run(ctx, e)
	typed, _ := value.(T)
	return typed, err
}

// Peek returns the cached value without fetching.
func Peek[T any](c *Cache, key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	e, ok := c.entries[key]
	if !ok || !e.valid {
		return zero, false
	}
	typed, ok := e.value.(T)
	return typed, ok
}

// Subscribe marks def.Key as live: fn is called after every completed fetch
// of the key, and invalidation of a provided tag triggers a fetch. The
// returned function removes the subscription; results arriving afterwards are
// not delivered to fn.
func Subscribe[T any](c *Cache, def QueryDef[T], fn func(T, error)) func() {
	c.mu.Lock()
	e := register(c, def)
	id := e.nextSubscriber
	e.nextSubscriber++
	e.subscribers[id] = func(value any, err error) {
		typed, _ := value.(T)
		fn(typed, err)
	}
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(e.subscribers, id)
			c.mu.Unlock()
		})
	}
}

// Mutate runs a write. On success the declared tags are invalidated and
// active dependents are fetched before Mutate returns. Failed runs
// invalidate nothing.
func Mutate[R any](ctx context.Context, c *Cache, def MutationDef[R]) (R, error) {
	result, err := def.Run(ctx)
	if err != nil {
		return result, fmt.Errorf("%s: %w", def.Name, err)
	}

	if def.Invalidates != nil {
		c.Invalidate(ctx, def.Invalidates(result)...)
	}
	return result, nil
}

// Invalidate marks every entry providing one of tags as stale and fetches the
// ones with subscribers. Refetch failures go to the subscribers.
func (c *Cache) Invalidate(ctx context.Context, tags ...Tag) {
	if len(tags) == 0 {
		return
	}

	c.mu.Lock()
	var live []*entry
	for _, e := range c.entries {
		if !providesAny(e.provided, tags) {
			continue
		}
		e.valid = false
		if e.active() {
			live = append(live, e)
		}
	}
	c.mu.Unlock()

	glog.V(2).Infof("[cache]invalidate %v -> %d live", tags, len(live))

	for _, e := range live {
		if _, err := c.run(ctx, e); err != nil {
			glog.Infof("[cache]refetch %s after invalidation: %v", e.key, err)
		}
	}
}

// Reset drops every cached value. Subscriptions are kept.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		e.generation++
		e.value = nil
		e.err = nil
		e.valid = false
		e.provided = nil
	}
}

func (c *Cache) run(ctx context.Context, e *entry) (any, error) {
	c.mu.Lock()
	e.generation++
	generation := e.generation
	c.mu.Unlock()

	value, err := e.fetch(ctx)

	c.mu.Lock()
	if generation != e.generation {
		// a newer fetch or a reset superseded this one
		c.mu.Unlock()
		glog.V(2).Infof("[cache]drop superseded result for %s", e.key)
		return value, err
	}
	if err != nil {
		e.err = err
		e.valid = false
		if len(e.provided) == 0 {
			e.provided = e.tags(nil)
		}
	} else {
		e.value = value
		e.err = nil
		e.valid = true
		e.provided = e.tags(value)
	}
	subs := e.snapshotSubscribers()
	c.mu.Unlock()

	for _, s := range subs {
		s(value, err)
	}
	return value, err
}

func providesAny(provided []Tag, invalidated []Tag) bool {
	for _, inv := range invalidated {
		for _, p := range provided {
			if inv.invalidates(p) {
				return true
			}
		}
	}
	return false
}
