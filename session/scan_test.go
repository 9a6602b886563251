package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// feed sends n keystrokes spaced by step, starting at t0, and returns the
// outcome of the final keystroke.
func feed(d *ScanDetector, t0 time.Time, n int, step time.Duration) bool {
	var last bool
	for i := 0; i < n; i++ {
		last = d.Keystroke(t0.Add(time.Duration(i) * step))
	}

	return last
}

func TestScanDetector(t *testing.T) {
	require := require.New(t)

	t0 := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	t.Run("fast entry detected as scan", func(t *testing.T) {
		d, err := NewScanDetector(10, DefaultScanWindow)
		require.NoError(err)

		// 10 keystrokes in 90ms total.
		require.True(feed(d, t0, 10, 10*time.Millisecond))
	})

	t.Run("typed entry is not a scan", func(t *testing.T) {
		d, err := NewScanDetector(10, DefaultScanWindow)
		require.NoError(err)

		// 10 keystrokes over 900ms.
		require.False(feed(d, t0, 10, 100*time.Millisecond))
	})

	t.Run("window boundary is exclusive", func(t *testing.T) {
		d, err := NewScanDetector(2, DefaultScanWindow)
		require.NoError(err)

		require.False(d.Keystroke(t0))
		require.False(d.Keystroke(t0.Add(250 * time.Millisecond)))

		require.False(d.Keystroke(t0))
		require.True(d.Keystroke(t0.Add(249 * time.Millisecond)))
	})

	t.Run("incomplete entry reports nothing", func(t *testing.T) {
		d, err := NewScanDetector(10, DefaultScanWindow)
		require.NoError(err)

		require.False(feed(d, t0, 9, time.Millisecond))
	})

	t.Run("detector resets after a full field", func(t *testing.T) {
		d, err := NewScanDetector(3, DefaultScanWindow)
		require.NoError(err)

		require.True(feed(d, t0, 3, time.Millisecond))

		// Second entry is measured independently of the first.
		require.False(feed(d, t0.Add(time.Hour), 3, 200*time.Millisecond))
		require.True(feed(d, t0.Add(2*time.Hour), 3, time.Millisecond))
	})

	t.Run("reset discards a partial entry", func(t *testing.T) {
		d, err := NewScanDetector(3, DefaultScanWindow)
		require.NoError(err)

		d.Keystroke(t0)
		d.Keystroke(t0.Add(time.Millisecond))
		d.Reset()

		// The entry restarts; two more keystrokes do not fill the field.
		require.False(d.Keystroke(t0.Add(2 * time.Millisecond)))
		require.False(d.Keystroke(t0.Add(3 * time.Millisecond)))
		require.True(d.Keystroke(t0.Add(4 * time.Millisecond)))
	})

	t.Run("zero window falls back to default", func(t *testing.T) {
		d, err := NewScanDetector(2, 0)
		require.NoError(err)
		require.Equal(DefaultScanWindow, d.window)
	})

	t.Run("invalid length rejected", func(t *testing.T) {
		_, err := NewScanDetector(1, DefaultScanWindow)
		require.Error(err)
	})
}
