package command

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testProfilesDoc = `{
	"profile": [
		{"label": "short run", "m1": "FWD_SHORT", "duration": 2},
		{"label": "full run", "m1": "M1FL", "m2": "M2FL", "duration": 12.5},
		{"label": "m2 only", "m2": "M2FS"}
	]
}`

func TestParseProfiles(t *testing.T) {
	require := require.New(t)

	profiles, err := ParseProfiles(strings.NewReader(testProfilesDoc))
	require.NoError(err)
	require.Len(profiles, 3)

	t.Run("labels in load order", func(t *testing.T) {
		require.Equal([]string{"short run", "full run", "m2 only"}, profiles.Labels())
	})

	t.Run("absent motor command is empty", func(t *testing.T) {
		p, err := profiles.Find("short run")
		require.NoError(err)
		require.Equal(Command("FWD_SHORT"), p.M1)
		require.Equal(Command(""), p.M2)
		require.Equal(2*time.Second, p.Duration)
	})

	t.Run("fractional duration", func(t *testing.T) {
		p, err := profiles.Find("full run")
		require.NoError(err)
		require.Equal(12500*time.Millisecond, p.Duration)
	})

	t.Run("zero duration means no interlock", func(t *testing.T) {
		p, err := profiles.Find("m2 only")
		require.NoError(err)
		require.Zero(p.Duration)
	})

	t.Run("unknown label", func(t *testing.T) {
		_, err := profiles.Find("nope")
		require.ErrorIs(err, ErrUnknownProfile)
	})
}

func TestParseProfilesValidation(t *testing.T) {
	require := require.New(t)

	t.Run("empty label rejected", func(t *testing.T) {
		_, err := ParseProfiles(strings.NewReader(`{"profile": [{"label": "", "m1": "X"}]}`))
		require.Error(err)
	})

	t.Run("duplicate label rejected", func(t *testing.T) {
		_, err := ParseProfiles(strings.NewReader(
			`{"profile": [{"label": "a", "m1": "X"}, {"label": "a", "m1": "Y"}]}`))
		require.Error(err)
	})

	t.Run("profile without motor command rejected", func(t *testing.T) {
		_, err := ParseProfiles(strings.NewReader(`{"profile": [{"label": "a"}]}`))
		require.Error(err)
	})

	t.Run("terminator in motor command rejected", func(t *testing.T) {
		_, err := ParseProfiles(strings.NewReader(`{"profile": [{"label": "a", "m1": "X="}]}`))
		require.ErrorIs(err, ErrTerminatorInCommand)
	})

	t.Run("negative duration rejected", func(t *testing.T) {
		_, err := ParseProfiles(strings.NewReader(`{"profile": [{"label": "a", "m1": "X", "duration": -1}]}`))
		require.Error(err)
	})
}
