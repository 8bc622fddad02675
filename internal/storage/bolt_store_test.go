package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/vuload/internal/performance/check"
	"github.com/wesleyorama2/vuload/internal/performance/config"
	"github.com/wesleyorama2/vuload/internal/performance/engine"
	"github.com/wesleyorama2/vuload/internal/performance/metrics"
)

func summaryAt(id string, start time.Time, passed bool) *engine.Summary {
	return &engine.Summary{
		RunID:     id,
		Name:      "users-api",
		BaseURL:   "http://localhost:3000",
		StartTime: start,
		Duration:  time.Minute,
		Checks:    []check.Result{{Name: "status 200", Passes: 10}},
		Metrics:   &metrics.Snapshot{TotalRequests: 15},
		Passed:    passed,
	}
}

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_SaveGet(t *testing.T) {
	s := openTemp(t)
	cfg := config.Default()

	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, s.Save(*cfg, summaryAt("run-a", start, true)))

	item, err := s.Get("run-a")
	require.NoError(t, err)
	assert.Equal(t, "run-a", item.ID)
	assert.True(t, item.Timestamp.Equal(start))
	assert.Equal(t, cfg.VUs, item.Config.VUs)
	assert.Equal(t, cfg.Duration, item.Config.Duration)
	require.NotNil(t, item.Summary)
	assert.Equal(t, int64(15), item.Summary.Metrics.TotalRequests)
	assert.Equal(t, "status 200", item.Summary.Checks[0].Name)
	assert.True(t, item.Passed())
}

func TestStore_GetUnknown(t *testing.T) {
	s := openTemp(t)

	_, err := s.Get("nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStore_SaveRequiresRunID(t *testing.T) {
	s := openTemp(t)

	assert.Error(t, s.Save(*config.Default(), nil))
	assert.Error(t, s.Save(*config.Default(), &engine.Summary{}))
}

func TestStore_ListNewestFirst(t *testing.T) {
	s := openTemp(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Save(*config.Default(), summaryAt("b", base.Add(time.Hour), true)))
	require.NoError(t, s.Save(*config.Default(), summaryAt("a", base, false)))
	require.NoError(t, s.Save(*config.Default(), summaryAt("c", base.Add(2*time.Hour), true)))

	items, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{items[0].ID, items[1].ID, items[2].ID})
	assert.False(t, items[2].Passed())

	items, err = s.List(2)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestStore_Delete(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.Save(*config.Default(), summaryAt("x", time.Now(), true)))

	require.NoError(t, s.Delete("x"))
	require.NoError(t, s.Delete("x"))

	_, err := s.Get("x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(*config.Default(), summaryAt("persisted", time.Now(), true)))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, path, s.Path())
	_, err = s.Get("persisted")
	assert.NoError(t, err)
}
