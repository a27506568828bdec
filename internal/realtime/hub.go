// Package realtime delivers row-level change notifications from PostgreSQL
// to in-process subscribers.
package realtime

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Change types as reported by the notify_table_change trigger.
const (
	ChangeInsert = "INSERT"
	ChangeUpdate = "UPDATE"
	ChangeDelete = "DELETE"
)

// Change is one row change published on the table_changes channel.
type Change struct {
	Table  string          `json:"table"`
	Type   string          `json:"type"`
	Record json.RawMessage `json:"record"`
}

// DecodeRecord unmarshals the changed row into T.
func DecodeRecord[T any](c Change) (T, error) {
	var out T
	if err := json.Unmarshal(c.Record, &out); err != nil {
		return out, fmt.Errorf("decode %s record: %w", c.Table, err)
	}
	return out, nil
}

// Subscription receives the changes of one table. Close it to stop delivery.
type Subscription struct {
	C <-chan Change

	hub   *Hub
	id    uint64
	table string
	types map[string]bool
	ch    chan Change
	once  sync.Once
}

func (s *Subscription) matches(c Change) bool {
	if c.Table != s.table {
		return false
	}
	return len(s.types) == 0 || s.types[strings.ToUpper(c.Type)]
}

// Close unsubscribes and closes C. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s.id)
	})
}

// Hub fans published changes out to subscribers. A subscriber that falls
// behind by more than its buffer loses changes rather than blocking others.
type Hub struct {
	logger *slog.Logger
	buffer int

	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]*Subscription

	onDrop func(table string)
}

func NewHub(logger *slog.Logger, buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{logger: logger, buffer: buffer, subs: make(map[uint64]*Subscription)}
}

// OnDrop registers a callback for changes dropped on a full subscriber.
func (h *Hub) OnDrop(fn func(table string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onDrop = fn
}

// Subscribe registers for changes to table. With no event types every
// change type is delivered.
func (h *Hub) Subscribe(table string, eventTypes ...string) *Subscription {
	types := make(map[string]bool, len(eventTypes))
	for _, t := range eventTypes {
		types[strings.ToUpper(t)] = true
	}

	ch := make(chan Change, h.buffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	sub := &Subscription{C: ch, hub: h, id: h.nextID, table: table, types: types, ch: ch}
	h.subs[sub.id] = sub
	return sub
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(sub.ch)
	}
}

// Publish delivers c to every matching subscriber without blocking.
func (h *Hub) Publish(c Change) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subs {
		if !sub.matches(c) {
			continue
		}
		select {
		case sub.ch <- c:
		default:
			h.logger.Warn("realtime subscriber buffer full, dropping change",
				slog.String("table", c.Table),
				slog.String("type", c.Type),
			)
			if h.onDrop != nil {
				h.onDrop(c.Table)
			}
		}
	}
}

// Subscribers reports the number of open subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// CloseAll closes every subscription, used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	subs := make([]*Subscription, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
}
