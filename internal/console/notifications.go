package console

import (
	"sync"
	"time"

	"github.com/Abdilito4-real/np/internal/analytics"
)

type Kind string

const (
	KindToast           Kind = "toast"
	KindSessionWarning  Kind = "session_warning"
	KindSessionExpired  Kind = "session_expired"
	KindRowUpdated      Kind = "row_updated"
	KindStatsReset      Kind = "stats_reset"
	KindMessageReceived Kind = "message_received"
	KindMessagesChanged Kind = "messages_changed"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is one item the dashboard shows or reacts to.
type Notification struct {
	Seq     uint64           `json:"seq"`
	Kind    Kind             `json:"kind"`
	Level   Level            `json:"level"`
	Message string           `json:"message,omitempty"`
	CarID   string           `json:"car_id,omitempty"`
	Entry   *analytics.Entry `json:"entry,omitempty"`
	At      time.Time        `json:"at"`
}

// Inbox is a bounded FIFO; when full the oldest notification is dropped.
type Inbox struct {
	mu    sync.Mutex
	items []Notification
	limit int
	seq   uint64
}

func NewInbox(limit int) *Inbox {
	if limit <= 0 {
		limit = 100
	}
	return &Inbox{limit: limit}
}

func (in *Inbox) Push(n Notification) {
	in.mu.Lock()
	defer in.mu.Unlock()

	in.seq++
	n.Seq = in.seq
	if len(in.items) == in.limit {
		copy(in.items, in.items[1:])
		in.items = in.items[:len(in.items)-1]
	}
	in.items = append(in.items, n)
}

// Drain returns every pending notification, oldest first, and empties the inbox.
func (in *Inbox) Drain() []Notification {
	in.mu.Lock()
	defer in.mu.Unlock()

	out := in.items
	in.items = nil
	if out == nil {
		out = []Notification{}
	}
	return out
}

func (in *Inbox) Len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.items)
}
