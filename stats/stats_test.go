package stats

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cizektom/spots/group"
)

func TestFromWorkerStatsFlattensColumns(t *testing.T) {
	ws := []group.WorkerStats{
		{JobsDone: 3, BusyTime: 2 * time.Second},
		{JobsDone: 7, BusyTime: 5 * time.Second},
	}
	jobs, busy := FromWorkerStats(ws)
	assert.Equal(t, []uint64{3, 7}, jobs)
	assert.Equal(t, []time.Duration{2 * time.Second, 5 * time.Second}, busy)
}

func TestWriterWritesHeaderOnlyOnce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stats.csv")

	w, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(Row{Root: "0!", Outcome: "Loss", Iterations: 10}))
	require.NoError(t, w.Close())

	w2, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, w2.Write(Row{Root: "22!", Outcome: "Win", Iterations: 20}))
	require.NoError(t, w2.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := splitNonEmptyLines(string(content))
	require.Len(t, lines, 3) // header + two rows
	assert.Equal(t, "root,outcome,tree_size,iterations,nimbers_known,nimbers_added,duration_ms,worker_jobs,worker_busy_ms", lines[0])
}

func TestWriterEncodesWorkerColumns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stats.csv")

	w, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(Row{
		Root:       "0!",
		WorkerJobs: []uint64{1, 2, 3},
		WorkerBusy: []time.Duration{time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond},
	}))
	require.NoError(t, w.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := splitNonEmptyLines(string(content))
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "1|2|3")
	assert.Contains(t, lines[1], "1|2|3,1|2|3") // jobs and busy-ms columns both pipe-joined
}

func splitNonEmptyLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			if line := s[start:i]; line != "" {
				out = append(out, line)
			}
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
