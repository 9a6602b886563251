package interlock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeGroup records SetEnabled calls.
type fakeGroup struct {
	enabled bool
	calls   int
}

func (g *fakeGroup) SetEnabled(enabled bool) {
	g.enabled = enabled
	g.calls++
}

const testTick = 100 * time.Millisecond

func newTestController(t *testing.T) *Controller {
	t.Helper()

	c, err := NewController(testTick, nil)
	require.NoError(t, err)

	return c
}

func TestNewController(t *testing.T) {
	require := require.New(t)

	_, err := NewController(0, nil)
	require.Error(err)

	c := newTestController(t)
	require.Equal(Idle, c.State())
	require.Zero(c.TicksRemaining())
}

func TestCountdown(t *testing.T) {
	require := require.New(t)

	t.Run("exact tick count", func(t *testing.T) {
		c := newTestController(t)
		group := &fakeGroup{enabled: true}
		c.Register("loader", group)

		// 300ms at a 100ms tick is exactly 3 ticks.
		require.NoError(c.Start(300 * time.Millisecond))
		require.Equal(Busy, c.State())
		require.Equal(3, c.TicksRemaining())
		require.False(group.enabled)

		c.Tick()
		require.Equal(Busy, c.State())
		require.Equal(2, c.TicksRemaining())
		require.False(group.enabled)

		c.Tick()
		require.Equal(Busy, c.State())
		require.False(group.enabled)

		// Final tick re-enables in the same transition.
		c.Tick()
		require.Equal(Idle, c.State())
		require.Zero(c.TicksRemaining())
		require.True(group.enabled)
	})

	t.Run("duration rounds up", func(t *testing.T) {
		c := newTestController(t)

		require.NoError(c.Start(250 * time.Millisecond))
		require.Equal(3, c.TicksRemaining())
	})

	t.Run("tick while idle is a no-op", func(t *testing.T) {
		c := newTestController(t)
		group := &fakeGroup{}
		c.Register("loader", group)

		c.Tick()
		require.Equal(Idle, c.State())
		require.Zero(group.calls)
	})
}

func TestStart(t *testing.T) {
	require := require.New(t)

	t.Run("busy rejects a second start", func(t *testing.T) {
		c := newTestController(t)

		require.NoError(c.Start(time.Second))
		require.ErrorIs(c.Start(time.Second), ErrBusy)
	})

	t.Run("invalid duration", func(t *testing.T) {
		c := newTestController(t)
		require.ErrorIs(c.Start(0), ErrInvalidDuration)
		require.ErrorIs(c.Start(-time.Second), ErrInvalidDuration)
	})

	t.Run("disables every registered group", func(t *testing.T) {
		c := newTestController(t)
		loader := &fakeGroup{enabled: true}
		m1 := &fakeGroup{enabled: true}
		m2 := &fakeGroup{enabled: true}
		c.Register("loader", loader)
		c.Register("m1", m1)
		c.Register("m2", m2)

		require.NoError(c.Start(time.Second))
		require.False(loader.enabled)
		require.False(m1.enabled)
		require.False(m2.enabled)
	})
}

func TestStop(t *testing.T) {
	require := require.New(t)

	t.Run("immediate override", func(t *testing.T) {
		c := newTestController(t)
		group := &fakeGroup{enabled: true}
		c.Register("loader", group)

		require.NoError(c.Start(time.Hour))
		require.False(group.enabled)

		c.Stop()
		require.Equal(Idle, c.State())
		require.Zero(c.TicksRemaining())
		require.True(group.enabled)
	})

	t.Run("stop while idle is a no-op", func(t *testing.T) {
		c := newTestController(t)
		group := &fakeGroup{}
		c.Register("loader", group)

		var boundaries int
		c.AddHandler(func(prev, next State) { boundaries++ })

		c.Stop()
		require.Equal(Idle, c.State())
		require.Zero(group.calls)
		require.Zero(boundaries)
	})
}

func TestStateChangeHandlers(t *testing.T) {
	require := require.New(t)

	c := newTestController(t)

	var transitions [][2]State
	c.AddHandler(func(prev, next State) {
		transitions = append(transitions, [2]State{prev, next})
	})

	require.NoError(c.Start(testTick))
	c.Tick()

	require.Equal([][2]State{
		{Idle, Busy},
		{Busy, Idle},
	}, transitions)
}

func TestStateString(t *testing.T) {
	require := require.New(t)

	require.Equal("idle", Idle.String())
	require.Equal("busy", Busy.String())
	require.Equal("unknown", State(9).String())
}
