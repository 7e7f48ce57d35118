package nimberdb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cizektom/spots/nimber"
)

func TestInsertMonotonic(t *testing.T) {
	db := New(false)
	assert.True(t, db.Insert("00", nimber.Loss))
	assert.False(t, db.Insert("00", nimber.Nimber(5)))
	n, ok := db.Get("00")
	require.True(t, ok)
	assert.Equal(t, nimber.Loss, n)
}

func TestTrackedOverlayDrains(t *testing.T) {
	db := New(true)
	db.Insert("a", nimber.Nimber(1))
	db.Insert("b", nimber.Nimber(2))

	tracked := db.GetTrackedNimbers(true)
	assert.Len(t, tracked, 2)

	again := db.GetTrackedNimbers(true)
	assert.Len(t, again, 0)
}

func TestAddNimbersCountsOnlyNew(t *testing.T) {
	db := New(false)
	db.Insert("a", nimber.Nimber(1))

	added := db.AddNimbers(map[string]nimber.Nimber{
		"a": nimber.Nimber(9),
		"b": nimber.Nimber(2),
	})
	assert.Equal(t, 1, added)

	n, _ := db.Get("a")
	assert.Equal(t, nimber.Nimber(1), n, "known values must never be revised")
}

func TestStoreLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "db.spr")

	db := New(false)
	db.Insert("0*6", nimber.Nimber(3))
	db.Insert("00", nimber.Loss)
	require.NoError(t, db.Store(path, true))

	loaded, err := Load(path, false)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Size())

	n, ok := loaded.Get("0*6")
	require.True(t, ok)
	assert.Equal(t, nimber.Nimber(3), n)
}

func TestLoadSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "db.spr")
	content := "[Positions+Nimber]\n\n0*6 3\nbroken nim here\n00 0\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	db := New(false)
	added, err := db.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, added)
}
