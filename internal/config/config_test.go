package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, key := range []string{"GEOJSON_PATH", "WORKBOOKS", "DEFAULT_YEAR", "SHEET_CACHE_SIZE", "WATCH_INTERVAL", "MAP_CENTER_LAT", "MAP_CENTER_LON", "MAP_ZOOM", "NAME_FIX_INDEX", "NAME_FIX_VALUE"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []int{2024, 2025}, cfg.Years())
	assert.Equal(t, "data 2025 for monitoring.xlsx", filepath.Base(cfg.Workbooks[2025]))
	assert.Equal(t, "gadm41_BFA_3.json", filepath.Base(cfg.GeoJSONPath))
	assert.Equal(t, 2025, cfg.DefaultYear)
	assert.Equal(t, 64, cfg.SheetCacheSize)
	assert.Equal(t, 30*time.Second, cfg.WatchInterval)
	assert.InDelta(t, 12.5, cfg.MapCenterLat, 1e-9)
	assert.InDelta(t, -1.5, cfg.MapCenterLon, 1e-9)
	assert.InDelta(t, 5.5, cfg.MapZoom, 1e-9)
	assert.Equal(t, 195, cfg.NameFixIndex)
	assert.Equal(t, "Fada N'gourma", cfg.NameFixValue)
}

func TestLoadOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("WORKBOOKS", "2023=/srv/a.xlsx")
	t.Setenv("WATCH_INTERVAL", "5s")
	t.Setenv("SHEET_CACHE_SIZE", "8")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, map[int]string{2023: "/srv/a.xlsx"}, cfg.Workbooks)
	assert.Equal(t, 5*time.Second, cfg.WatchInterval)
	assert.Equal(t, 8, cfg.SheetCacheSize)
}

func TestLoadRejectsBadCacheSize(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("WORKBOOKS", "")
	t.Setenv("SHEET_CACHE_SIZE", "0")

	_, err := Load()
	require.Error(t, err)
}

func TestParseWorkbooks(t *testing.T) {
	got, err := ParseWorkbooks(" 2024 = a.xlsx , ,2025=/abs/b.xlsx", "/base")
	require.NoError(t, err)
	assert.Equal(t, map[int]string{2024: "/base/a.xlsx", 2025: "/abs/b.xlsx"}, got)

	for _, bad := range []string{"2024", "year=a.xlsx", "2024="} {
		_, err := ParseWorkbooks(bad, "/base")
		assert.Error(t, err, bad)
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
