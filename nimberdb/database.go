// Package nimberdb implements the concurrent nimber (Grundy value)
// database: a monotonically-growing map from a position's compact
// encoding to its known Grundy value, with a "tracked new" overlay used
// to propagate freshly discovered nimbers between cooperating processes,
// and line-based file persistence.
package nimberdb

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/cizektom/spots/errs"
	"github.com/cizektom/spots/nimber"
)

const (
	headerNormalImpartial = "[Positions+Nimber]"
	headerMisereLosing    = "[WinLoss_Misere:Losing_Position]"
)

// Database is a concurrent map from a position's compact string to its
// known nimber, reader/writer-locked so lookups never block each other
// and inserts are monotonic: a known value is never revised.
type Database struct {
	mu sync.RWMutex

	data map[string]nimber.Nimber

	trackNew bool
	tracked  map[string]nimber.Nimber
}

// New creates an empty database. When trackNew is set, every genuinely
// new insertion is also recorded in a "tracked" overlay consumable via
// GetTrackedNimbers, used to ship discoveries to other processes.
func New(trackNew bool) *Database {
	db := &Database{
		data:     make(map[string]nimber.Nimber),
		trackNew: trackNew,
	}
	if trackNew {
		db.tracked = make(map[string]nimber.Nimber)
	}
	return db
}

// Get looks up a position's known nimber.
func (db *Database) Get(compactPosition string) (nimber.Nimber, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	n, ok := db.data[compactPosition]
	return n, ok
}

// Size reports the number of known positions.
func (db *Database) Size() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.data)
}

// Insert records a position's nimber if it is not already known. It
// reports whether the entry was genuinely new; known values are never
// revised (monotonic insertion).
func (db *Database) Insert(compactPosition string, n nimber.Nimber) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.insertLocked(compactPosition, n)
}

func (db *Database) insertLocked(compactPosition string, n nimber.Nimber) bool {
	if _, exists := db.data[compactPosition]; exists {
		return false
	}
	db.data[compactPosition] = n
	if db.trackNew {
		db.tracked[compactPosition] = n
	}
	return true
}

// AddNimbers bulk-inserts a batch of newly reported nimbers, returning
// the count of entries that were genuinely new.
func (db *Database) AddNimbers(nimbers map[string]nimber.Nimber) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	added := 0
	for compact, n := range nimbers {
		if db.insertLocked(compact, n) {
			added++
		}
	}
	return added
}

// GetTrackedNimbers drains (or, if clearTracked is false, snapshots) the
// overlay of positions inserted since the last drain.
func (db *Database) GetTrackedNimbers(clearTracked bool) map[string]nimber.Nimber {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make(map[string]nimber.Nimber, len(db.tracked))
	for k, v := range db.tracked {
		out[k] = v
	}
	if clearTracked {
		db.tracked = make(map[string]nimber.Nimber)
	}
	return out
}

// Clear empties the database. Used only when a worker's state-retention
// level requires dropping shared nim knowledge between unrelated jobs.
func (db *Database) Clear() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.data = make(map[string]nimber.Nimber)
	if db.trackNew {
		db.tracked = make(map[string]nimber.Nimber)
	}
}

// Store snapshots the database to a line-based file: a header line
// followed by "<positionStr> <nim>" lines, optionally sorted
// lexicographically by position string. Store never mutates the
// database and never touches any pre-existing file content beyond a
// full overwrite of path.
func (db *Database) Store(path string, sortLines bool) error {
	db.mu.RLock()
	lines := make([]string, 0, len(db.data))
	for compact, n := range db.data {
		lines = append(lines, compact+" "+strconv.FormatUint(uint64(n), 10))
	}
	db.mu.RUnlock()

	if sortLines {
		sort.Strings(lines)
	}

	f, err := os.Create(path)
	if err != nil {
		return errs.NewIOError(path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := w.WriteString(headerNormalImpartial + "\n"); err != nil {
		return errs.NewIOError(path, err)
	}
	for _, line := range lines {
		if _, err := w.WriteString(line + "\n"); err != nil {
			return errs.NewIOError(path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return errs.NewIOError(path, err)
	}
	log.Info().Str("path", path).Int("entries", len(lines)).Msg("stored nimber database")
	return nil
}

// Load reads a line-based nimber database file, inserting only
// previously-absent entries, and returns the count of newly inserted
// entries. Header and blank lines are skipped; a line that fails to
// parse is logged and skipped rather than aborting the whole load.
func (db *Database) Load(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errs.NewIOError(path, err)
	}
	defer f.Close()

	added := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line == headerNormalImpartial || line == headerMisereLosing {
			continue
		}
		compact, n, err := parseLine(line)
		if err != nil {
			log.Warn().Err(err).Str("line", line).Msg("skipping malformed nimber database line")
			continue
		}
		if db.Insert(compact, n) {
			added++
		}
	}
	if err := scanner.Err(); err != nil {
		return added, errs.NewIOError(path, err)
	}
	log.Info().Str("path", path).Int("added", added).Msg("loaded nimber database")
	return added, nil
}

// Load is the static-factory equivalent of NimberDatabase::load: it
// creates a fresh database and loads path into it.
func Load(path string, trackNew bool) (*Database, error) {
	db := New(trackNew)
	if _, err := db.Load(path); err != nil {
		return nil, err
	}
	return db, nil
}

func parseLine(line string) (string, nimber.Nimber, error) {
	idx := strings.LastIndexByte(line, ' ')
	if idx < 0 {
		// A position with no recorded nim (misere "losing position" list);
		// treat as the canonical Loss nimber.
		return line, nimber.Loss, nil
	}
	posStr, nimStr := line[:idx], line[idx+1:]
	n, err := strconv.ParseUint(nimStr, 10, 16)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", errs.ErrInvalidInput, err)
	}
	return posStr, nimber.Nimber(n), nil
}
