package link

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTraceRing(t *testing.T) {
	require := require.New(t)

	t.Run("append and snapshot", func(t *testing.T) {
		ring := newTraceRing(4)

		ring.append(TraceRecord{Dir: DirOutbound, Payload: "STATUS", At: time.Now()})
		ring.append(TraceRecord{Dir: DirInbound, Payload: "ok", At: time.Now()})

		records := ring.snapshot()
		require.Len(records, 2)
		require.Equal(DirOutbound, records[0].Dir)
		require.Equal("STATUS", records[0].Payload)
		require.Equal(DirInbound, records[1].Dir)
		require.Equal("ok", records[1].Payload)
	})

	t.Run("capacity drops oldest", func(t *testing.T) {
		ring := newTraceRing(2)

		ring.append(TraceRecord{Payload: "a"})
		ring.append(TraceRecord{Payload: "b"})
		ring.append(TraceRecord{Payload: "c"})

		records := ring.snapshot()
		require.Len(records, 2)
		require.Equal("b", records[0].Payload)
		require.Equal("c", records[1].Payload)
	})

	t.Run("clear", func(t *testing.T) {
		ring := newTraceRing(2)
		ring.append(TraceRecord{Payload: "a"})
		ring.clear()
		require.Empty(ring.snapshot())
	})

	t.Run("handlers observe every record", func(t *testing.T) {
		var seen []string

		ring := newTraceRing(1)
		ring.addHandler(func(rec TraceRecord) { seen = append(seen, rec.Payload) })

		ring.append(TraceRecord{Payload: "a"})
		ring.append(TraceRecord{Payload: "b"})

		// The ring only retains one record, but handlers saw both.
		require.Equal([]string{"a", "b"}, seen)
		require.Len(ring.snapshot(), 1)
	})

	t.Run("direction strings", func(t *testing.T) {
		require.Equal("tx", DirOutbound.String())
		require.Equal("rx", DirInbound.String())
	})
}
