package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	GeoJSONPath string
	Workbooks   map[int]string
	DefaultYear int
	SchemaPath  string

	DBPath    string
	OutputDir string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	SheetCacheSize int
	WatchInterval  time.Duration

	MapCenterLat float64
	MapCenterLon float64
	MapZoom      float64

	NameFixIndex int
	NameFixValue string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	workbooks, err := ParseWorkbooks(getEnv("WORKBOOKS", "2024=data 2024 for monitoring.xlsx,2025=data 2025 for monitoring.xlsx"), cwd)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		GeoJSONPath: resolvePath(cwd, getEnv("GEOJSON_PATH", "gadm41_BFA_3.json")),
		Workbooks:   workbooks,
		DefaultYear: getEnvInt("DEFAULT_YEAR", 2025),
		SchemaPath:  getEnv("SCHEMA_PATH", ""),

		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "json"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		SheetCacheSize: getEnvInt("SHEET_CACHE_SIZE", 64),
		WatchInterval:  getEnvDuration("WATCH_INTERVAL", 30*time.Second),

		MapCenterLat: getEnvFloat("MAP_CENTER_LAT", 12.5),
		MapCenterLon: getEnvFloat("MAP_CENTER_LON", -1.5),
		MapZoom:      getEnvFloat("MAP_ZOOM", 5.5),

		NameFixIndex: getEnvInt("NAME_FIX_INDEX", 195),
		NameFixValue: getEnv("NAME_FIX_VALUE", "Fada N'gourma"),
	}

	if cfg.SheetCacheSize < 1 {
		return Config{}, fmt.Errorf("SHEET_CACHE_SIZE must be positive, got %d", cfg.SheetCacheSize)
	}
	if cfg.WatchInterval <= 0 {
		return Config{}, fmt.Errorf("WATCH_INTERVAL must be positive, got %s", cfg.WatchInterval)
	}

	return cfg, nil
}

// ParseWorkbooks reads "2024=a.xlsx,2025=b.xlsx". Relative paths are taken
// from base.
func ParseWorkbooks(value, base string) (map[int]string, error) {
	out := map[int]string{}
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		yearText, path, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("invalid WORKBOOKS entry %q: want year=path", part)
		}
		year, err := strconv.Atoi(strings.TrimSpace(yearText))
		if err != nil {
			return nil, fmt.Errorf("invalid WORKBOOKS year %q: %w", yearText, err)
		}
		path = strings.TrimSpace(path)
		if path == "" {
			return nil, fmt.Errorf("empty WORKBOOKS path for year %d", year)
		}
		out[year] = resolvePath(base, path)
	}
	return out, nil
}

// Years lists the configured years in ascending order.
func (c Config) Years() []int {
	years := make([]int, 0, len(c.Workbooks))
	for y := range c.Workbooks {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

func resolvePath(base, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(getEnv(key, ""))
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
