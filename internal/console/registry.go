package console

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Abdilito4-real/np/internal/models"
	"github.com/coder/quartz"
	"github.com/google/uuid"
)

// Registry owns every open console of the process.
type Registry struct {
	deps Deps
	ctx  context.Context

	mu       sync.RWMutex
	consoles map[string]*Console
}

// NewRegistry creates a registry whose consoles live until ctx is cancelled
// or they are closed.
func NewRegistry(ctx context.Context, deps Deps) *Registry {
	if deps.Clock == nil {
		deps.Clock = quartz.NewReal()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Registry{
		deps:     deps,
		ctx:      ctx,
		consoles: make(map[string]*Console),
	}
}

// Open creates a console for a new tab. A token the caller still holds from
// an earlier tab life is signed out unless the new tab carries a live
// session flag.
func (r *Registry) Open(ctx context.Context, priorToken string) (*Console, error) {
	if limit := r.deps.MaxConsoles; limit > 0 && r.Len() >= limit {
		return nil, models.ErrTooManyConsoles
	}

	c := newConsole(r.ctx, uuid.NewString(), r.deps)

	if err := c.CheckLiveness(ctx, priorToken); err != nil {
		c.cancel()
		return nil, err
	}

	r.mu.Lock()
	if limit := r.deps.MaxConsoles; limit > 0 && len(r.consoles) >= limit {
		r.mu.Unlock()
		c.cancel()
		return nil, models.ErrTooManyConsoles
	}
	r.consoles[c.id] = c
	n := len(r.consoles)
	r.mu.Unlock()

	r.deps.Metrics.ActiveConsoles.Set(float64(n))
	r.deps.Audit.LogSessionEvent("console_opened", c.id, "", nil)
	return c, nil
}

func (r *Registry) Get(id string) (*Console, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.consoles[id]
	if !ok {
		return nil, models.ErrConsoleNotFound
	}
	return c, nil
}

// Close logs the console out if needed and forgets it.
func (r *Registry) Close(ctx context.Context, id string) error {
	r.mu.Lock()
	c, ok := r.consoles[id]
	delete(r.consoles, id)
	n := len(r.consoles)
	r.mu.Unlock()

	if !ok {
		return models.ErrConsoleNotFound
	}
	r.deps.Metrics.ActiveConsoles.Set(float64(n))
	return c.Close(ctx)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.consoles)
}

func (r *Registry) all() []*Console {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Console, 0, len(r.consoles))
	for _, c := range r.consoles {
		out = append(out, c)
	}
	return out
}

// Sweep closes consoles that are logged out and untouched for maxIdle.
func (r *Registry) Sweep(ctx context.Context, maxIdle time.Duration) (int64, error) {
	now := r.deps.Clock.Now()
	var removed int64
	for _, c := range r.all() {
		seen, loggedIn := c.idleSince()
		if loggedIn || now.Sub(seen) < maxIdle {
			continue
		}
		if err := r.Close(ctx, c.id); err != nil && !errors.Is(err, models.ErrConsoleNotFound) {
			r.deps.Logger.Warn("failed to close idle console", slog.String("console_id", c.id), slog.Any("error", err))
			continue
		}
		removed++
	}
	return removed, nil
}

// ReloadAll re-seeds the mirror of every signed-in console. It runs after
// the realtime feed reconnects, since changes may have been missed.
func (r *Registry) ReloadAll(ctx context.Context) {
	for _, c := range r.all() {
		if _, err := c.requireSession(); err != nil {
			continue
		}
		if err := c.Reload(ctx); err != nil {
			c.logger.Error("failed to reload mirror after reconnect", slog.Any("error", err))
		}
	}
}

// CloseAll closes every console, used at shutdown.
func (r *Registry) CloseAll(ctx context.Context) {
	for _, c := range r.all() {
		if err := r.Close(ctx, c.id); err != nil && !errors.Is(err, models.ErrConsoleNotFound) {
			r.deps.Logger.Warn("failed to close console", slog.String("console_id", c.id), slog.Any("error", err))
		}
	}
}
