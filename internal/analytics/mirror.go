// Package analytics keeps the admin console's in-memory mirror of per-car
// click counters: lifetime totals loaded from the cars table plus today's
// counters rebuilt from the analytics event log.
package analytics

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Abdilito4-real/np/internal/models"
	"github.com/coder/quartz"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DedupMode decides how optimistic local events and their realtime echo are
// reconciled.
type DedupMode string

const (
	// DedupTag ignores a remote event whose client_event_id was already applied locally.
	DedupTag DedupMode = "tag"
	// DedupRemoteOnly makes the realtime feed the only writer of the mirror.
	DedupRemoteOnly DedupMode = "remote_only"
	// DedupNone applies both paths and may double count.
	DedupNone DedupMode = "none"
)

// Entry holds the counters for one car.
type Entry struct {
	DetailsClicks      int `json:"details_clicks"`
	BuyClicks          int `json:"buy_clicks"`
	DailyDetailsClicks int `json:"daily_details_clicks"`
	DailyBuyClicks     int `json:"daily_buy_clicks"`
}

func (e *Entry) add(eventType string) {
	switch eventType {
	case models.EventTypeView:
		e.DetailsClicks++
		e.DailyDetailsClicks++
	case models.EventTypeContactClick:
		e.BuyClicks++
		e.DailyBuyClicks++
	}
}

func (e *Entry) addDaily(eventType string) {
	switch eventType {
	case models.EventTypeView:
		e.DailyDetailsClicks++
	case models.EventTypeContactClick:
		e.DailyBuyClicks++
	}
}

// CarClicks is the persisted lifetime counters of one car.
type CarClicks struct {
	CarID         string
	DetailsClicks int
	BuyClicks     int
}

// Event is a single view or contact click.
type Event struct {
	CarID         string
	EventType     string
	ClientEventID string
}

// EventFromModel converts a stored analytics row.
func EventFromModel(ev *models.AnalyticsEvent) Event {
	return Event{CarID: ev.CarID, EventType: ev.EventType, ClientEventID: ev.ClientEventID}
}

// Observer is told about every change. carID is empty when every entry changed.
type Observer func(carID string, entry Entry)

type Options struct {
	Mode      DedupMode
	DedupTTL  time.Duration
	DedupSize int
	Observer  Observer
	// Clock ages the dedup set. Defaults to the real clock.
	Clock quartz.Clock
}

// Mirror is safe for concurrent use.
type Mirror struct {
	mode     DedupMode
	observer Observer
	clock    quartz.Clock
	ttl      time.Duration

	mu      sync.Mutex
	entries map[string]*Entry
	// applied maps a local client_event_id to when it was applied. Entries
	// age out lazily on lookup.
	applied *lru.Cache[string, time.Time]
}

func NewMirror(opts Options) *Mirror {
	if opts.Mode == "" {
		opts.Mode = DedupTag
	}
	if opts.DedupTTL <= 0 {
		opts.DedupTTL = 10 * time.Minute
	}
	if opts.DedupSize <= 0 {
		opts.DedupSize = 4096
	}
	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}
	// lru.New only fails for a non-positive size.
	applied, _ := lru.New[string, time.Time](opts.DedupSize)
	return &Mirror{
		mode:     opts.Mode,
		observer: opts.Observer,
		clock:    opts.Clock,
		ttl:      opts.DedupTTL,
		entries:  make(map[string]*Entry),
		applied:  applied,
	}
}

func (m *Mirror) Mode() DedupMode { return m.mode }

func validate(ev Event) error {
	if !models.ValidEventType(ev.EventType) {
		return fmt.Errorf("%w: %q", models.ErrUnknownEventType, ev.EventType)
	}
	if ev.CarID == "" {
		return fmt.Errorf("%w: car id is required", models.ErrBadRequest)
	}
	return nil
}

// entryLocked returns the entry for carID, creating a zeroed one if needed.
func (m *Mirror) entryLocked(carID string) *Entry {
	e, ok := m.entries[carID]
	if !ok {
		e = &Entry{}
		m.entries[carID] = e
	}
	return e
}

// BulkLoad replaces the mirror with the persisted lifetime counters and
// replays today's events into the daily counters.
func (m *Mirror) BulkLoad(cars []CarClicks, today []Event) {
	m.mu.Lock()
	m.entries = make(map[string]*Entry, len(cars))
	for _, c := range cars {
		m.entries[c.CarID] = &Entry{DetailsClicks: c.DetailsClicks, BuyClicks: c.BuyClicks}
	}
	for _, ev := range today {
		if validate(ev) != nil {
			continue
		}
		m.entryLocked(ev.CarID).addDaily(ev.EventType)
	}
	m.mu.Unlock()

	m.notify("", Entry{})
}

// ApplyLocalEvent applies an event raised in this process before it is
// persisted. It reports whether the mirror changed.
func (m *Mirror) ApplyLocalEvent(ev Event) (bool, error) {
	if err := validate(ev); err != nil {
		return false, err
	}
	if m.mode == DedupRemoteOnly {
		return false, nil
	}

	m.mu.Lock()
	e := m.entryLocked(ev.CarID)
	e.add(ev.EventType)
	snapshot := *e
	if m.mode == DedupTag && ev.ClientEventID != "" {
		m.applied.Add(ev.ClientEventID, m.clock.Now())
	}
	m.mu.Unlock()

	m.notify(ev.CarID, snapshot)
	return true, nil
}

// ApplyRemoteEvent applies an event delivered by the realtime feed. It
// reports false when the event was the echo of a local event already counted.
func (m *Mirror) ApplyRemoteEvent(ev Event) (bool, error) {
	if err := validate(ev); err != nil {
		return false, err
	}

	m.mu.Lock()
	if m.mode == DedupTag && ev.ClientEventID != "" {
		if at, seen := m.applied.Peek(ev.ClientEventID); seen {
			m.applied.Remove(ev.ClientEventID)
			if m.clock.Since(at) < m.ttl {
				m.mu.Unlock()
				return false, nil
			}
		}
	}
	e := m.entryLocked(ev.CarID)
	e.add(ev.EventType)
	snapshot := *e
	m.mu.Unlock()

	m.notify(ev.CarID, snapshot)
	return true, nil
}

// ResetDaily zeroes the daily counters of every entry. Lifetime counters are untouched.
func (m *Mirror) ResetDaily() {
	m.mu.Lock()
	for _, e := range m.entries {
		e.DailyDetailsClicks = 0
		e.DailyBuyClicks = 0
	}
	m.mu.Unlock()

	m.notify("", Entry{})
}

// Clear drops every entry, used on logout.
func (m *Mirror) Clear() {
	m.mu.Lock()
	m.entries = make(map[string]*Entry)
	m.applied.Purge()
	m.mu.Unlock()
}

func (m *Mirror) Get(carID string) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[carID]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

func (m *Mirror) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Snapshot copies every entry.
func (m *Mirror) Snapshot() map[string]Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]Entry, len(m.entries))
	for id, e := range m.entries {
		out[id] = *e
	}
	return out
}

// CarIDs returns the mirrored car ids in a stable order.
func (m *Mirror) CarIDs() []string {
	m.mu.Lock()
	ids := make([]string, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// Totals sums every entry.
func (m *Mirror) Totals() Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var t Entry
	for _, e := range m.entries {
		t.DetailsClicks += e.DetailsClicks
		t.BuyClicks += e.BuyClicks
		t.DailyDetailsClicks += e.DailyDetailsClicks
		t.DailyBuyClicks += e.DailyBuyClicks
	}
	return t
}

func (m *Mirror) notify(carID string, e Entry) {
	if m.observer != nil {
		m.observer(carID, e)
	}
}
