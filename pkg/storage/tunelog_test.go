package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLog(t *testing.T, maxEvents int) *TuneLog {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "flbridge-storage-test")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	tl, err := NewTuneLog(filepath.Join(tempDir, "tunelog.db"), maxEvents)
	require.NoError(t, err)
	t.Cleanup(func() { tl.Close() })

	return tl
}

func TestTuneLogRecordAndQuery(t *testing.T) {
	tl := newTestLog(t, 100)

	tl.RecordTune("rigctld", 7074000)
	tl.RecordTune("sync-rig", 14078000)
	tl.RecordTune("web", 21074000)

	events, err := tl.RecentEvents(10)
	require.NoError(t, err)
	require.Len(t, events, 3)

	// Newest first
	assert.Equal(t, "web", events[0].Source)
	assert.Equal(t, int64(21074000), events[0].Frequency)
	assert.Equal(t, "sync-rig", events[1].Source)
	assert.Equal(t, "rigctld", events[2].Source)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestTuneLogLimit(t *testing.T) {
	tl := newTestLog(t, 100)

	for i := 0; i < 10; i++ {
		tl.RecordTune("rigctld", int64(7000000+i))
	}

	events, err := tl.RecentEvents(3)
	require.NoError(t, err)
	assert.Len(t, events, 3)
	assert.Equal(t, int64(7000009), events[0].Frequency)
}

func TestTuneLogPrunesOldEvents(t *testing.T) {
	tl := newTestLog(t, 5)

	for i := 0; i < 20; i++ {
		tl.RecordTune("rigctld", int64(7000000+i))
	}

	count, err := tl.EventCount()
	require.NoError(t, err)
	assert.Equal(t, 5, count, "log stays bounded at max_events")

	events, err := tl.RecentEvents(10)
	require.NoError(t, err)
	require.Len(t, events, 5)
	assert.Equal(t, int64(7000019), events[0].Frequency, "newest events survive pruning")
}

func TestTuneLogReopen(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "flbridge-storage-reopen")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	dbPath := filepath.Join(tempDir, "tunelog.db")

	tl, err := NewTuneLog(dbPath, 100)
	require.NoError(t, err)
	tl.RecordTune("rigctld", 7074000)
	require.NoError(t, tl.Close())

	reopened, err := NewTuneLog(dbPath, 100)
	require.NoError(t, err)
	defer reopened.Close()

	events, err := reopened.RecentEvents(10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, int64(7074000), events[0].Frequency)
}
