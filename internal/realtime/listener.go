package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

// Channel is the NOTIFY channel written by the notify_table_change trigger.
const Channel = "table_changes"

const pingInterval = 90 * time.Second

// Listener relays NOTIFY payloads from PostgreSQL into a Hub. Reconnection
// is handled by pq.Listener; changes sent while disconnected are lost, so
// consumers reload state after a reconnect.
type Listener struct {
	pql    *pq.Listener
	hub    *Hub
	logger *slog.Logger

	onReconnect func()
}

func NewListener(dsn string, hub *Hub, logger *slog.Logger) (*Listener, error) {
	l := &Listener{hub: hub, logger: logger}

	l.pql = pq.NewListener(dsn, 2*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnected:
			logger.Info("realtime listener connected")
		case pq.ListenerEventDisconnected:
			logger.Warn("realtime listener disconnected", slog.Any("error", err))
		case pq.ListenerEventReconnected:
			logger.Info("realtime listener reconnected")
		case pq.ListenerEventConnectionAttemptFailed:
			logger.Error("realtime listener connection attempt failed", slog.Any("error", err))
		}
	})

	if err := l.pql.Listen(Channel); err != nil {
		_ = l.pql.Close()
		return nil, fmt.Errorf("listen on %s: %w", Channel, err)
	}
	return l, nil
}

// OnReconnect registers a callback run after the connection is re-established.
func (l *Listener) OnReconnect(fn func()) { l.onReconnect = fn }

// Run relays notifications until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-l.pql.Notify:
			if n == nil {
				// pq sends nil after a reconnect
				if l.onReconnect != nil {
					l.onReconnect()
				}
				continue
			}
			l.handle(n.Extra)
		case <-time.After(pingInterval):
			if err := l.pql.Ping(); err != nil {
				l.logger.Warn("realtime listener ping failed", slog.Any("error", err))
			}
		}
	}
}

func (l *Listener) handle(payload string) {
	change, err := ParsePayload(payload)
	if err != nil {
		l.logger.Warn("discarding malformed change notification", slog.Any("error", err))
		return
	}
	l.hub.Publish(change)
}

// ParsePayload decodes a notify_table_change payload.
func ParsePayload(payload string) (Change, error) {
	var c Change
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return Change{}, fmt.Errorf("decode change: %w", err)
	}
	if c.Table == "" || c.Type == "" {
		return Change{}, fmt.Errorf("change is missing table or type")
	}
	return c, nil
}

func (l *Listener) Close() error {
	return l.pql.Close()
}
