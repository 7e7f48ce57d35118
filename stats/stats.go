// Package stats collects and reports the per-job and aggregate search
// statistics supplementing §4.10/§4.12: tree size, iteration counts,
// per-worker timing/utilization, and nimber database growth, written
// as a CSV row per solve plus a condensed zerolog summary line. It
// carries the same information content as the original
// log_stats_csv/log_parallel_stats_stdout helpers without matching
// their literal column names.
package stats

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cizektom/spots/group"
)

// Row is one solve's worth of statistics, written as one CSV record.
type Row struct {
	Root         string
	Outcome      string
	TreeSize     int
	Iterations   uint64
	NimbersKnown int
	NimbersAdded int
	Duration     time.Duration
	WorkerJobs   []uint64
	WorkerBusy   []time.Duration
}

var csvHeader = []string{
	"root", "outcome", "tree_size", "iterations", "nimbers_known",
	"nimbers_added", "duration_ms", "worker_jobs", "worker_busy_ms",
}

// FromWorkerStats collapses group.WorkerStats into the two flattened
// columns a Row stores per solve.
func FromWorkerStats(ws []group.WorkerStats) ([]uint64, []time.Duration) {
	jobs := make([]uint64, len(ws))
	busy := make([]time.Duration, len(ws))
	for i, w := range ws {
		jobs[i] = w.JobsDone
		busy[i] = w.BusyTime
	}
	return jobs, busy
}

// Writer appends Rows to a CSV file, writing the header once if the
// file is new.
type Writer struct {
	f *os.File
	w *csv.Writer
}

// Open appends to (or creates) path, writing csvHeader only if the
// file did not already exist.
func Open(path string) (*Writer, error) {
	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening stats file %q: %w", path, err)
	}
	w := csv.NewWriter(f)
	if isNew {
		if err := w.Write(csvHeader); err != nil {
			f.Close()
			return nil, fmt.Errorf("writing stats header to %q: %w", path, err)
		}
		w.Flush()
	}
	return &Writer{f: f, w: w}, nil
}

// Write appends one row and flushes immediately, so a crash mid-search
// never loses a fully completed job's statistics.
func (sw *Writer) Write(r Row) error {
	jobsCol, busyCol := encodeWorkerColumns(r.WorkerJobs, r.WorkerBusy)
	record := []string{
		r.Root,
		r.Outcome,
		strconv.Itoa(r.TreeSize),
		strconv.FormatUint(r.Iterations, 10),
		strconv.Itoa(r.NimbersKnown),
		strconv.Itoa(r.NimbersAdded),
		strconv.FormatInt(r.Duration.Milliseconds(), 10),
		jobsCol,
		busyCol,
	}
	if err := sw.w.Write(record); err != nil {
		return fmt.Errorf("writing stats row: %w", err)
	}
	sw.w.Flush()
	return sw.w.Error()
}

// Close flushes and closes the underlying file.
func (sw *Writer) Close() error {
	sw.w.Flush()
	return sw.f.Close()
}

func encodeWorkerColumns(jobs []uint64, busy []time.Duration) (string, string) {
	jobsCol, busyCol := "", ""
	for i, j := range jobs {
		if i > 0 {
			jobsCol += "|"
			busyCol += "|"
		}
		jobsCol += strconv.FormatUint(j, 10)
		busyCol += strconv.FormatInt(busy[i].Milliseconds(), 10)
	}
	return jobsCol, busyCol
}

// LogSummary emits a condensed summary line via zerolog's global logger,
// matching the information content (not the format) of the original
// stdout logger: outcome, tree size, iteration count, and the
// busiest/idlest worker's share of the work.
func LogSummary(r Row) {
	ev := log.Info().
		Str("root", r.Root).
		Str("outcome", r.Outcome).
		Int("tree-size", r.TreeSize).
		Uint64("iterations", r.Iterations).
		Int("nimbers-known", r.NimbersKnown).
		Int("nimbers-added", r.NimbersAdded).
		Dur("duration", r.Duration)

	if len(r.WorkerJobs) > 0 {
		min, max := r.WorkerJobs[0], r.WorkerJobs[0]
		for _, j := range r.WorkerJobs {
			if j < min {
				min = j
			}
			if j > max {
				max = j
			}
		}
		ev = ev.Uint64("min-worker-jobs", min).Uint64("max-worker-jobs", max)
	}
	ev.Msg("solve finished")
}
