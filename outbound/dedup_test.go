package outbound

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDedupTrackerCollapsesWithinWindow(t *testing.T) {
	d := newDedupTracker(time.Minute)
	ack := BusAck{Stream: "orders.events", Sequence: 1}

	_, ok := d.Lookup("msg-1")
	require.False(t, ok)

	d.Remember("msg-1", ack)
	got, ok := d.Lookup("msg-1")
	require.True(t, ok)
	require.Equal(t, ack, got)
}

func TestDedupTrackerExpiresAfterWindow(t *testing.T) {
	d := newDedupTracker(time.Millisecond)
	d.Remember("msg-2", BusAck{Stream: "s", Sequence: 1})
	time.Sleep(5 * time.Millisecond)

	_, ok := d.Lookup("msg-2")
	require.False(t, ok, "expired dedup entries must be pruned rather than returned")
}

func TestDedupTrackerIgnoresEmptyMessageID(t *testing.T) {
	d := newDedupTracker(time.Minute)
	d.Remember("", BusAck{Stream: "s", Sequence: 1})

	_, ok := d.Lookup("")
	require.False(t, ok)
}
