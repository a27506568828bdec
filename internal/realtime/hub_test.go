package realtime_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Abdilito4-real/np/internal/models"
	"github.com/Abdilito4-real/np/internal/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func analyticsInsert(carID, eventType string) realtime.Change {
	c, err := realtime.ParsePayload(`{"table":"analytics","type":"INSERT","record":{"id":"e1","car_id":"` +
		carID + `","event_type":"` + eventType + `","client_event_id":null,"created_at":"2026-10-17T09:30:00.123456+00:00"}}`)
	if err != nil {
		panic(err)
	}
	return c
}

func TestHub_FiltersByTableAndType(t *testing.T) {
	hub := realtime.NewHub(testLogger(), 4)
	inserts := hub.Subscribe("analytics", "insert")
	allMessages := hub.Subscribe("messages")
	defer inserts.Close()
	defer allMessages.Close()

	hub.Publish(analyticsInsert("car-1", models.EventTypeView))
	hub.Publish(realtime.Change{Table: "analytics", Type: realtime.ChangeDelete})
	hub.Publish(realtime.Change{Table: "messages", Type: realtime.ChangeUpdate})

	require.Len(t, inserts.C, 1)
	got := <-inserts.C
	assert.Equal(t, "analytics", got.Table)

	require.Len(t, allMessages.C, 1)
	assert.Equal(t, realtime.ChangeUpdate, (<-allMessages.C).Type)
}

func TestHub_DropsWhenSubscriberIsFull(t *testing.T) {
	hub := realtime.NewHub(testLogger(), 1)
	sub := hub.Subscribe("analytics")
	defer sub.Close()

	var dropped int
	hub.OnDrop(func(string) { dropped++ })

	hub.Publish(analyticsInsert("a", models.EventTypeView))
	hub.Publish(analyticsInsert("b", models.EventTypeView))

	assert.Len(t, sub.C, 1)
	assert.Equal(t, 1, dropped)
}

func TestSubscription_CloseIsIdempotent(t *testing.T) {
	hub := realtime.NewHub(testLogger(), 1)
	sub := hub.Subscribe("analytics")
	require.Equal(t, 1, hub.Subscribers())

	sub.Close()
	sub.Close()

	assert.Equal(t, 0, hub.Subscribers())
	select {
	case _, ok := <-sub.C:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription channel was not closed")
	}

	// Publishing after close must not panic.
	hub.Publish(analyticsInsert("a", models.EventTypeView))
}

func TestHub_CloseAll(t *testing.T) {
	hub := realtime.NewHub(testLogger(), 1)
	hub.Subscribe("analytics")
	hub.Subscribe("messages")

	hub.CloseAll()
	assert.Zero(t, hub.Subscribers())
}

func TestDecodeRecord(t *testing.T) {
	ev, err := realtime.DecodeRecord[models.AnalyticsEvent](analyticsInsert("car-9", models.EventTypeContactClick))
	require.NoError(t, err)

	assert.Equal(t, "car-9", ev.CarID)
	assert.Equal(t, models.EventTypeContactClick, ev.EventType)
	assert.Empty(t, ev.ClientEventID)
	assert.Equal(t, 2026, ev.CreatedAt.Year())
}

func TestParsePayload_Rejects(t *testing.T) {
	_, err := realtime.ParsePayload("not json")
	assert.Error(t, err)

	_, err = realtime.ParsePayload(`{"table":"","type":"INSERT"}`)
	assert.Error(t, err)
}
