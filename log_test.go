package arbor

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryLogRecording(t *testing.T) {
	l := NewQueryLog()
	assert.False(t, l.Enabled())

	// Disabled logs drop entries.
	l.Record(QueryEntry{SQL: "SELECT 1"})
	assert.Zero(t, l.Len())

	l.Enable()
	l.Record(QueryEntry{SQL: "SELECT 1"})
	l.Record(QueryEntry{SQL: "SELECT 2", Bindings: []any{7}})
	require.Equal(t, 2, l.Len())
	assert.Equal(t, "SELECT 1", l.Entries()[0].SQL)
	assert.Equal(t, []any{7}, l.Entries()[1].Bindings)

	// Disabling keeps what was recorded.
	l.Disable()
	l.Record(QueryEntry{SQL: "SELECT 3"})
	assert.Equal(t, 2, l.Len())

	l.Flush()
	assert.Zero(t, l.Len())
}

func TestQueryLogSlowWarning(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	l := NewQueryLog()
	l.Enable()
	l.SetSlowThreshold(10*time.Millisecond, logger)

	l.Record(QueryEntry{SQL: "SELECT fast", Elapsed: time.Millisecond})
	assert.NotContains(t, buf.String(), "slow query")

	l.Record(QueryEntry{SQL: "SELECT slow", Elapsed: 50 * time.Millisecond})
	assert.Contains(t, buf.String(), "slow query detected")
	assert.Contains(t, buf.String(), "SELECT slow")
}
