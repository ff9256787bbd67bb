package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"climatemap/internal"
	"climatemap/internal/observability"
	"climatemap/internal/schema"
	"climatemap/internal/storage"
)

var (
	ErrUnknownYear     = errors.New("unknown year")
	ErrWorkbookMissing = errors.New("workbook file missing")
)

type Options struct {
	GeoJSONPath    string
	Workbooks      map[int]string
	DefaultYear    int
	NameFix        NameFix
	SheetCacheSize int
}

// Service runs the pipeline for one selection at a time and memoizes the
// expensive steps: the boundary file and opened workbooks by path, and
// standardized sheets by (path, content hash, sheet) in memory and in the
// store. Invalidate drops everything derived from one source path.
type Service struct {
	opts    Options
	schema  *schema.Schema
	db      *storage.DB
	logger  *slog.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock

	mu         sync.Mutex
	boundaries *Boundaries
	workbooks  map[string]*Workbook
	sheets     *lruCache[StandardSheet]
}

// NewService wires a Service. db may be nil, in which case nothing is
// persisted.
func NewService(opts Options, s *schema.Schema, db *storage.DB, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Service {
	if s == nil {
		s = schema.Default()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		opts:      opts,
		schema:    s,
		db:        db,
		logger:    logger,
		metrics:   metrics,
		clock:     clock,
		workbooks: map[string]*Workbook{},
		sheets:    newLRUCache[StandardSheet](opts.SheetCacheSize),
	}
}

// Result is the unified record set of one selection plus what the
// presentation layer shows around it.
type Result struct {
	Selection    internal.Selection
	TraceID      string
	WorkbookHash string
	Records      []internal.UnifiedRecord
	Summary      Summary
	Mapping      schema.Mapping
	Boundaries   *Boundaries
}

// Sources lists every file the service reads, boundary file first.
func (s *Service) Sources() []string {
	out := []string{s.opts.GeoJSONPath}
	for _, year := range s.configuredYears() {
		out = append(out, s.opts.Workbooks[year])
	}
	return out
}

// Years lists configured years whose workbook exists on disk.
func (s *Service) Years() []int {
	out := []int{}
	for _, year := range s.configuredYears() {
		if _, err := os.Stat(s.opts.Workbooks[year]); err == nil {
			out = append(out, year)
		}
	}
	return out
}

// DefaultYear prefers the configured default and falls back to the first
// available year.
func (s *Service) DefaultYear() (int, error) {
	years := s.Years()
	if len(years) == 0 {
		return 0, fmt.Errorf("%w: no workbook found for any configured year", ErrWorkbookMissing)
	}
	for _, y := range years {
		if y == s.opts.DefaultYear {
			return y, nil
		}
	}
	return years[0], nil
}

func (s *Service) Sheets(year int) ([]string, error) {
	wb, _, err := s.workbook(year)
	if err != nil {
		return nil, err
	}
	return wb.SheetNames(), nil
}

func (s *Service) Boundaries() (*Boundaries, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.boundaries != nil {
		s.lookup("boundaries", true)
		return s.boundaries, nil
	}
	s.lookup("boundaries", false)

	b, err := LoadBoundaries(s.opts.GeoJSONPath, s.opts.NameFix)
	if err != nil {
		return nil, err
	}
	s.logger.Info("boundaries loaded", "path", s.opts.GeoJSONPath, "units", len(b.Units), "name_field", b.NameField)
	s.boundaries = b
	return b, nil
}

// Run executes the pipeline for sel. An empty sheet selects the first sheet
// of the workbook.
func (s *Service) Run(ctx context.Context, sel internal.Selection) (*Result, error) {
	start := s.clock.Now()
	res, err := s.run(ctx, sel, start)
	if err != nil {
		s.metrics.PipelineRuns.WithLabelValues("error").Inc()
		s.logger.Error("pipeline run failed", "year", sel.Year, "sheet", sel.Sheet, "error", err)
		return nil, err
	}
	s.metrics.PipelineRuns.WithLabelValues("success").Inc()
	s.metrics.RunDuration.Observe(s.clock.Since(start).Seconds())
	return res, nil
}

func (s *Service) run(ctx context.Context, sel internal.Selection, start time.Time) (*Result, error) {
	timings := map[string]float64{}
	mark := func(name string, since time.Time) time.Time {
		now := s.clock.Now()
		timings[name] = float64(now.Sub(since).Milliseconds())
		return now
	}

	bounds, err := s.Boundaries()
	if err != nil {
		return nil, err
	}
	step := mark("boundariesMs", start)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	wb, path, err := s.workbook(sel.Year)
	if err != nil {
		return nil, err
	}
	if sel.Sheet == "" {
		names := wb.SheetNames()
		if len(names) == 0 {
			return nil, fmt.Errorf("%w: workbook %s has no sheets", ErrUnknownSheet, path)
		}
		sel.Sheet = names[0]
	}
	step = mark("workbookMs", step)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sheet, err := s.sheet(path, wb, sel.Sheet)
	if err != nil {
		return nil, err
	}
	step = mark("sheetMs", step)

	records := Join(bounds.Units, sheet.Records)
	summary := Summarize(records)
	mark("joinMs", step)
	mark("totalMs", start)

	res := &Result{
		Selection:    sel,
		TraceID:      uuid.NewString(),
		WorkbookHash: wb.Hash,
		Records:      records,
		Summary:      summary,
		Mapping:      sheet.Mapping,
		Boundaries:   bounds,
	}

	counts := map[string]int{
		"sheetRows": len(sheet.Records),
		"units":     summary.Units,
		"matched":   summary.Matched,
		"unmatched": summary.Unmatched,
	}
	for _, lc := range summary.Labels {
		counts[string(lc.Label)] = lc.Count
		s.metrics.Events.WithLabelValues(string(lc.Label)).Add(float64(lc.Count))
	}
	s.metrics.UnmatchedUnits.Set(float64(summary.Unmatched))

	if s.db != nil {
		if err := s.db.InsertRun(res.TraceID, sel, wb.Hash, timings, counts); err != nil {
			s.logger.Warn("run not recorded", "trace_id", res.TraceID, "error", err)
		}
	}
	if missing := sheet.Mapping.Missing(); len(missing) > 0 {
		s.logger.Warn("sheet columns not resolved", "year", sel.Year, "sheet", sel.Sheet, "missing", missing)
	}
	if unexpected := summary.Unexpected(); len(unexpected) > 0 {
		s.logger.Warn("unexpected event labels", "year", sel.Year, "sheet", sel.Sheet, "labels", unexpected)
	}
	s.logger.Info("pipeline run",
		"trace_id", res.TraceID,
		"year", sel.Year,
		"sheet", sel.Sheet,
		"units", summary.Units,
		"unmatched", summary.Unmatched,
		"categories", summary.Caption(),
		"total_ms", timings["totalMs"],
	)
	return res, nil
}

// Invalidate drops every cached value derived from path. It reports whether
// anything was cached for it.
func (s *Service) Invalidate(path string) bool {
	s.mu.Lock()
	dropped := false
	if path == s.opts.GeoJSONPath && s.boundaries != nil {
		s.boundaries = nil
		dropped = true
	}
	var stale *Workbook
	if wb, ok := s.workbooks[path]; ok {
		stale = wb
		delete(s.workbooks, path)
		dropped = true
	}
	s.mu.Unlock()

	if n := s.sheets.dropPrefix(path + "|"); n > 0 {
		dropped = true
	}
	if stale != nil {
		if s.db != nil {
			if err := s.db.DeleteSheets(s.storeKey(stale.Hash)); err != nil {
				s.logger.Warn("stale sheet snapshots not deleted", "path", path, "error", err)
			}
		}
		if err := stale.Close(); err != nil {
			s.logger.Warn("workbook close failed", "path", path, "error", err)
		}
	}
	if dropped {
		s.metrics.SourceInvalidations.Inc()
		s.logger.Info("source invalidated", "path", path)
	}
	return dropped
}

// Close releases every opened workbook.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for path, wb := range s.workbooks {
		errs = append(errs, wb.Close())
		delete(s.workbooks, path)
	}
	return errors.Join(errs...)
}

func (s *Service) configuredYears() []int {
	years := make([]int, 0, len(s.opts.Workbooks))
	for y := range s.opts.Workbooks {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

func (s *Service) workbook(year int) (*Workbook, string, error) {
	path, ok := s.opts.Workbooks[year]
	if !ok {
		return nil, "", fmt.Errorf("%w: %d", ErrUnknownYear, year)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if wb, ok := s.workbooks[path]; ok {
		s.lookup("workbook", true)
		return wb, path, nil
	}
	s.lookup("workbook", false)

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, path, fmt.Errorf("%w: %s", ErrWorkbookMissing, path)
	}
	wb, err := ReadWorkbook(path)
	if err != nil {
		return nil, path, err
	}
	s.logger.Info("workbook opened", "year", year, "path", path, "sheets", len(wb.SheetNames()))
	s.workbooks[path] = wb
	return wb, path, nil
}

func (s *Service) sheet(path string, wb *Workbook, name string) (StandardSheet, error) {
	if !wb.HasSheet(name) {
		return StandardSheet{}, fmt.Errorf("%w: %q in %s", ErrUnknownSheet, name, path)
	}

	key := path + "|" + wb.Hash + "|" + name
	if st, ok := s.sheets.get(key); ok {
		s.lookup("sheet", true)
		return st, nil
	}
	s.lookup("sheet", false)

	if s.db != nil {
		snap, err := s.db.LoadSheet(s.storeKey(wb.Hash), name)
		switch {
		case err != nil:
			s.logger.Warn("sheet snapshot unreadable", "sheet", name, "error", err)
		case snap != nil:
			s.lookup("store", true)
			st := StandardSheet{Records: snap.Records, Mapping: s.schema.Resolve(snap.Headers)}
			s.sheets.put(key, st)
			return st, nil
		default:
			s.lookup("store", false)
		}
	}

	rows, err := wb.SheetCells(name)
	if err != nil {
		return StandardSheet{}, err
	}
	st := StandardizeSheet(rows, s.schema)
	s.sheets.put(key, st)
	s.logger.Debug("sheet standardized", "sheet", name, "rows", len(st.Records), "mapping", st.Mapping.String())

	if s.db != nil {
		snap := storage.SheetSnapshot{
			Hash:    s.storeKey(wb.Hash),
			Sheet:   name,
			Headers: st.Mapping.Headers(),
			Records: st.Records,
		}
		if err := s.db.SaveSheet(snap); err != nil {
			s.logger.Warn("sheet snapshot not saved", "sheet", name, "error", err)
		}
	}
	return st, nil
}

// storeKey ties persisted snapshots to both the workbook content and the
// schema they were standardized with.
func (s *Service) storeKey(hash string) string {
	return hash + ":" + s.schema.Fingerprint()
}

func (s *Service) lookup(layer string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	s.metrics.CacheLookups.WithLabelValues(layer, result).Inc()
}
