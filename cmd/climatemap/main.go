package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"climatemap/internal"
	"climatemap/internal/config"
	"climatemap/internal/dashboard"
	"climatemap/internal/observability"
	"climatemap/internal/pipeline"
	"climatemap/internal/schema"
	"climatemap/internal/storage"
	"climatemap/internal/watcher"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	sch, err := schema.Load(cfg.SchemaPath)
	must(err)

	cmd := os.Args[1]
	if cmd == "run" {
		runOneShot(cmd, sch, cfg)
		return
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	svc := pipeline.NewService(pipeline.Options{
		GeoJSONPath:    cfg.GeoJSONPath,
		Workbooks:      cfg.Workbooks,
		DefaultYear:    cfg.DefaultYear,
		NameFix:        pipeline.NameFix{Index: cfg.NameFixIndex, Value: cfg.NameFixValue},
		SheetCacheSize: cfg.SheetCacheSize,
	}, sch, db, logger, metrics, nil)
	defer svc.Close()

	switch cmd {
	case "years":
		years := svc.Years()
		if len(years) == 0 {
			must(fmt.Errorf("no workbook found for years %v", cfg.Years()))
		}
		def, err := svc.DefaultYear()
		must(err)
		for _, y := range years {
			marker := ""
			if y == def {
				marker = " (default)"
			}
			fmt.Printf("%d%s\t%s\n", y, marker, cfg.Workbooks[y])
		}
	case "sheets":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		year := fs.Int("year", 0, "workbook year (default: preferred year)")
		_ = fs.Parse(os.Args[2:])
		sheets, err := svc.Sheets(resolveYear(svc, *year))
		must(err)
		for _, name := range sheets {
			fmt.Println(name)
		}
	case "summary":
		sel := parseSelection(cmd, svc, nil)
		res, err := svc.Run(context.Background(), sel)
		must(err)
		printSummary(res)
	case "export:xlsx", "export:geojson":
		ext := ".xlsx"
		if cmd == "export:geojson" {
			ext = ".geojson"
		}
		var out string
		sel := parseSelection(cmd, svc, func(fs *flag.FlagSet) {
			fs.StringVar(&out, "out", "", "output path (default: OUTPUT_DIR/<year>_<sheet>"+ext+")")
		})
		res, err := svc.Run(context.Background(), sel)
		must(err)
		if strings.TrimSpace(out) == "" {
			out = filepath.Join(cfg.OutputDir, fmt.Sprintf("%d_%s%s", res.Selection.Year, res.Selection.Sheet, ext))
		}
		if ext == ".xlsx" {
			must(pipeline.ExportRecordsToXLSX(res.Records, res.Selection.Sheet, out))
		} else {
			must(pipeline.WriteGeoJSON(res.Records, out))
		}
		fmt.Printf("exported %d units to %s\n", len(res.Records), out)
	case "runs":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		limit := fs.Int("limit", 20, "number of runs")
		_ = fs.Parse(os.Args[2:])
		runs, err := db.ListRuns(*limit)
		must(err)
		for _, r := range runs {
			fmt.Printf("%s\t%d\t%s\tunits=%d unmatched=%d total_ms=%.0f\t%s\n",
				r.CreatedAt, r.Year, r.Sheet, r.Counts["units"], r.Counts["unmatched"], r.Timings["totalMs"], r.TraceID)
		}
	case "serve":
		serve(cfg, db, svc, logger)
	default:
		usage()
		os.Exit(1)
	}
}

func serve(cfg config.Config, db *storage.DB, svc *pipeline.Service, logger *slog.Logger) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	view := dashboard.MapView{CenterLat: cfg.MapCenterLat, CenterLon: cfg.MapCenterLon, Zoom: cfg.MapZoom}
	server := dashboard.NewServer(cfg.HTTPAddr, svc, readiness{db: db, svc: svc}, view, nil, logger)
	w := watcher.NewService(svc, db, logger, nil, cfg.WatchInterval)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		_ = w.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("http server failed", "error", err)
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	logger.Info("shutdown complete")
}

type readiness struct {
	db  *storage.DB
	svc *pipeline.Service
}

func (r readiness) CheckReadiness(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if _, err := r.svc.Boundaries(); err != nil {
		return err
	}
	if _, err := r.svc.DefaultYear(); err != nil {
		return err
	}
	return nil
}

func runOneShot(cmd string, sch *schema.Schema, cfg config.Config) {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	geo := fs.String("geojson", cfg.GeoJSONPath, "boundary GeoJSON path")
	workbook := fs.String("workbook", "", "workbook path")
	sheet := fs.String("sheet", "", "sheet name (default: first sheet)")
	output := fs.String("output", "", "output xlsx path")
	_ = fs.Parse(os.Args[2:])
	if *workbook == "" || *output == "" {
		must(fmt.Errorf("--workbook --output are required"))
	}

	records, summary, err := pipeline.ProcessFiles(*geo, *workbook, *sheet, sch, pipeline.NameFix{Index: cfg.NameFixIndex, Value: cfg.NameFixValue})
	must(err)
	must(pipeline.ExportRecordsToXLSX(records, *sheet, *output))
	fmt.Printf("processed %d units (%s) to %s\n", summary.Units, summary.Caption(), *output)
}

func parseSelection(cmd string, svc *pipeline.Service, extra func(*flag.FlagSet)) internal.Selection {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	year := fs.Int("year", 0, "workbook year (default: preferred year)")
	sheet := fs.String("sheet", "", "sheet name (default: first sheet)")
	if extra != nil {
		extra(fs)
	}
	_ = fs.Parse(os.Args[2:])
	return internal.Selection{Year: resolveYear(svc, *year), Sheet: *sheet}
}

func resolveYear(svc *pipeline.Service, year int) int {
	if year != 0 {
		return year
	}
	def, err := svc.DefaultYear()
	must(err)
	return def
}

func printSummary(res *pipeline.Result) {
	s := res.Summary
	fmt.Printf("%d / %s\n", res.Selection.Year, res.Selection.Sheet)
	fmt.Printf("units=%d matched=%d unmatched=%d\n", s.Units, s.Matched, s.Unmatched)
	fmt.Printf("Catégories détectées : %s\n", s.Caption())
	for _, lc := range s.Labels {
		fmt.Printf("  %-22s %4d  exposure=%s losses=%s\n", lc.Label, lc.Count, lc.Exposure.StringFixed(0), lc.Losses.StringFixed(0))
	}
	if missing := res.Mapping.Missing(); len(missing) > 0 {
		fmt.Printf("missing columns: %s\n", strings.Join(missing, ", "))
	}
	fmt.Printf("trace=%s\n", res.TraceID)
}

func usage() {
	fmt.Println("usage: climatemap <command> [flags]")
	fmt.Println("commands:")
	fmt.Println("  years")
	fmt.Println("  sheets --year 2025")
	fmt.Println("  summary --year 2025 --sheet Juillet")
	fmt.Println("  export:xlsx --year 2025 --sheet Juillet [--out path]")
	fmt.Println("  export:geojson --year 2025 --sheet Juillet [--out path]")
	fmt.Println("  runs --limit 20")
	fmt.Println("  run --workbook file.xlsx --sheet Juillet --output out.xlsx [--geojson file.json]")
	fmt.Println("  serve")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
