package console_test

import (
	"context"
	"testing"
	"time"

	"github.com/Abdilito4-real/np/internal/console"
	"github.com/Abdilito4-real/np/internal/models"
	"github.com/Abdilito4-real/np/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestRegistry_OpenCloseDoesNotLeakGoroutines(t *testing.T) {
	f := newFixture(t)
	ignore := goleak.IgnoreCurrent()

	for i := 0; i < 50; i++ {
		c := f.open(t)
		if i%2 == 0 {
			f.login(t, c)
		}
		require.NoError(t, f.registry.Close(context.Background(), c.ID()))
	}

	assert.Zero(t, f.registry.Len())
	goleak.VerifyNone(t, ignore)
}

func TestRegistry_OpenRespectsCap(t *testing.T) {
	f := newFixture(t, func(d *console.Deps) { d.MaxConsoles = 2 })

	a := f.open(t)
	f.open(t)

	_, err := f.registry.Open(context.Background(), "")
	assert.ErrorIs(t, err, models.ErrTooManyConsoles)
	assert.Equal(t, 2, f.registry.Len())

	require.NoError(t, f.registry.Close(context.Background(), a.ID()))
	f.open(t)
}

func TestRegistry_OpenSignsOutStaleSession(t *testing.T) {
	f := newFixture(t)

	c, err := f.registry.Open(context.Background(), "token-from-closed-tab")
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID())

	outs := f.auth.SignOuts()
	require.Len(t, outs, 1)
	assert.Equal(t, "token-from-closed-tab", outs[0].Token)
	assert.Equal(t, "session_not_active", outs[0].Reason)
}

func TestRegistry_OpenWithoutPriorToken(t *testing.T) {
	f := newFixture(t)

	a := f.open(t)
	b := f.open(t)

	assert.NotEqual(t, a.ID(), b.ID())
	assert.Empty(t, f.auth.SignOuts())
	assert.Equal(t, 2, f.registry.Len())

	got, err := f.registry.Get(a.ID())
	require.NoError(t, err)
	assert.Same(t, a, got)

	_, err = f.registry.Get("missing")
	assert.ErrorIs(t, err, models.ErrConsoleNotFound)
}

func TestRegistry_CloseLogsOutAndClearsTab(t *testing.T) {
	f := newFixture(t)
	c := f.open(t)
	f.login(t, c)

	require.NoError(t, f.registry.Close(context.Background(), c.ID()))

	_, err := f.kv.Get(context.Background(), "tab:"+c.ID()+":"+console.SessionActiveKey)
	assert.ErrorIs(t, err, store.ErrMiss)
	assert.Zero(t, f.hub.Subscribers())
	assert.Contains(t, f.logs.Actions(), models.AdminActionLogout)

	outs := f.auth.SignOuts()
	require.Len(t, outs, 1)
	assert.Equal(t, "tab_closed", outs[0].Reason)

	_, err = f.registry.Get(c.ID())
	assert.ErrorIs(t, err, models.ErrConsoleNotFound)
	assert.ErrorIs(t, f.registry.Close(context.Background(), c.ID()), models.ErrConsoleNotFound)

	_, err = c.Login(context.Background(), console.LoginInput{Email: adminEmail, Password: goodPassword})
	assert.ErrorIs(t, err, models.ErrConsoleNotFound)
}

func TestRegistry_SweepDropsIdleLoggedOutConsoles(t *testing.T) {
	f := newFixture(t)
	idle := f.open(t)

	f.clock.Advance(90 * time.Minute)
	fresh := f.open(t)
	f.clock.Advance(40 * time.Minute)

	removed, err := f.registry.Sweep(context.Background(), 2*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = f.registry.Get(idle.ID())
	assert.ErrorIs(t, err, models.ErrConsoleNotFound)
	_, err = f.registry.Get(fresh.ID())
	assert.NoError(t, err)
}

func TestRegistry_ReloadAllReseedsSignedInConsoles(t *testing.T) {
	f := newFixture(t)
	c := f.open(t)
	f.login(t, c)
	f.open(t)

	f.analytics.Clicks[0].DetailsClicks = 42
	f.registry.ReloadAll(context.Background())

	view, err := c.Analytics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, view.Entries[carID].DetailsClicks)
}

func TestInbox_DropsOldest(t *testing.T) {
	in := console.NewInbox(2)
	in.Push(console.Notification{Message: "one"})
	in.Push(console.Notification{Message: "two"})
	in.Push(console.Notification{Message: "three"})

	got := in.Drain()
	require.Len(t, got, 2)
	assert.Equal(t, "two", got[0].Message)
	assert.Equal(t, "three", got[1].Message)
	assert.Equal(t, uint64(3), got[1].Seq)
	assert.Empty(t, in.Drain())
}
