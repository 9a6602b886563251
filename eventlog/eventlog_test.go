package eventlog

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var lineRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d{6}) (TX|RX|SESSION) (.*)$`)

func parseLines(t *testing.T, raw string) []time.Time {
	t.Helper()

	var stamps []time.Time
	for _, line := range strings.Split(strings.TrimRight(raw, "\n"), "\n") {
		m := lineRe.FindStringSubmatch(line)
		require.NotNil(t, m, "malformed log line: %q", line)

		ts, err := time.ParseInLocation("2006-01-02 15:04:05.000000", m[1], time.Local)
		require.NoError(t, err)
		stamps = append(stamps, ts)
	}

	return stamps
}

func TestLogEvents(t *testing.T) {
	require := require.New(t)

	t.Run("line format per kind", func(t *testing.T) {
		var buf bytes.Buffer
		l := New(&buf)

		require.NoError(l.TX("STATUS"))
		require.NoError(l.RX("ok"))
		require.NoError(l.Session("Amy", "S100", "A200"))

		lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
		require.Len(lines, 3)
		require.Contains(lines[0], " TX STATUS")
		require.Contains(lines[1], " RX ok")
		require.Contains(lines[2], " SESSION operator=Amy sample=S100 accession=A200")
	})

	t.Run("timestamps strictly increase", func(t *testing.T) {
		var buf bytes.Buffer
		l := New(&buf)

		// Freeze the clock so every event collides without the bump.
		frozen := time.Date(2024, 6, 1, 9, 0, 0, 0, time.Local)
		l.now = func() time.Time { return frozen }

		require.NoError(l.TX("STATUS"))
		require.NoError(l.Session("Amy", "S100", "A200"))
		require.NoError(l.RX("ok"))

		stamps := parseLines(t, buf.String())
		require.Len(stamps, 3)
		for i := 1; i < len(stamps); i++ {
			require.True(stamps[i].After(stamps[i-1]), "line %d timestamp did not increase", i)
		}
	})

	t.Run("send then commit ordering", func(t *testing.T) {
		var buf bytes.Buffer
		l := New(&buf)

		require.NoError(l.TX("STATUS"))
		require.NoError(l.Session("Amy", "S100", "A200"))

		lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
		require.Len(lines, 2)
		require.Contains(lines[0], "TX")
		require.Contains(lines[1], "SESSION")

		stamps := parseLines(t, buf.String())
		require.True(stamps[1].After(stamps[0]))
	})
}

func TestNop(t *testing.T) {
	require := require.New(t)

	l := Nop()
	require.NoError(l.TX("STATUS"))
	require.NoError(l.Close())
}

func TestOpenAppends(t *testing.T) {
	require := require.New(t)

	path := filepath.Join(t.TempDir(), "psd.log")

	l, err := Open(path)
	require.NoError(err)
	require.NoError(l.TX("STATUS"))
	require.NoError(l.Close())

	// Reopening appends, never truncates.
	l, err = Open(path)
	require.NoError(err)
	require.NoError(l.RX("ok"))
	require.NoError(l.Close())

	raw, err := os.ReadFile(path)
	require.NoError(err)

	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	require.Len(lines, 2)
	require.Contains(lines[0], "TX STATUS")
	require.Contains(lines[1], "RX ok")
}
