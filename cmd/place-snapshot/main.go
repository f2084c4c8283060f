package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/annel0/place-snapshot/internal/canvas"
	"github.com/annel0/place-snapshot/internal/config"
	"github.com/annel0/place-snapshot/internal/logging"
	"github.com/annel0/place-snapshot/internal/metrics"
	"github.com/annel0/place-snapshot/internal/observability"
	"github.com/annel0/place-snapshot/internal/placelog"
	"github.com/annel0/place-snapshot/internal/render"
	"github.com/annel0/place-snapshot/internal/replay"
	"github.com/annel0/place-snapshot/internal/storage"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: <place_dataset.csv.gzip> <timestamp>")
	fmt.Fprintln(w, "Example: ")
	fmt.Fprintln(w, "  place-snapshot /foo/snapshot.csv.gzip \"2022-04-04 18:00:00\"")
	fmt.Fprintln(w, "Flags:")
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("place-snapshot", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath    = fs.String("config", "", "YAML config path (default: $PLACE_CONFIG)")
		outPath       = fs.String("out", "", "Output PNG path (default: place.png)")
		storePath     = fs.String("store", "", "Snapshot store directory (default: disabled)")
		listSnapshots = fs.Bool("list-snapshots", false, "List snapshots in the store and exit")
	)
	fs.Usage = func() {
		usage(fs.Output())
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if !*listSnapshots && fs.NArg() < 2 {
		usage(stdout)
		fs.SetOutput(stdout)
		fs.PrintDefaults()
		return 0
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "❌ Ошибка загрузки конфигурации: %v\n", err)
		return 1
	}
	if *outPath != "" {
		cfg.Output.Path = *outPath
	}
	if *storePath != "" {
		cfg.Store.Path = *storePath
	}

	if err := initLogging(cfg, stdout); err != nil {
		fmt.Fprintf(stderr, "❌ Ошибка инициализации логирования: %v\n", err)
		return 1
	}
	defer logging.CloseDefaultLogger()

	if *listSnapshots {
		return printSnapshots(cfg.Store.GetPath(), stdout)
	}

	app := &snapshotRun{
		cfg:     cfg,
		dataset: fs.Arg(0),
		cutoff:  replay.Cutoff(fs.Arg(1)),
		runID:   uuid.NewString(),
		stdout:  stdout,
	}
	if err := app.execute(context.Background()); err != nil {
		logging.Error("❌ %v", err)
		return 1
	}
	return 0
}

func initLogging(cfg *config.Config, stdout io.Writer) error {
	consoleLevel, err := logging.ParseLevel(cfg.Logging.ConsoleLevel, logging.INFO)
	if err != nil {
		return err
	}
	fileLevel, err := logging.ParseLevel(cfg.Logging.FileLevel, logging.DEBUG)
	if err != nil {
		return err
	}
	return logging.InitDefaultLogger("place-snapshot",
		logging.WithDir(cfg.Logging.GetDir()),
		logging.WithConsole(stdout),
		logging.WithLevels(consoleLevel, fileLevel),
	)
}

// snapshotRun - один прогон: лог -> холст -> PNG
type snapshotRun struct {
	cfg     *config.Config
	dataset string
	cutoff  replay.Cutoff
	runID   string
	stdout  io.Writer
}

func (r *snapshotRun) execute(ctx context.Context) error {
	logging.Info("🎨 Снапшот %s на %q (run %s)", r.dataset, r.cutoff, r.runID)
	if _, err := placelog.ParseTimestamp(string(r.cutoff)); err != nil {
		logging.Warn("Отсечка %q не в формате %s, сравнение остаётся строковым", r.cutoff, placelog.TimestampLayout)
	}

	if r.cfg.Telemetry.Enabled {
		shutdown, err := observability.InitTelemetry(ctx, observability.TelemetryOptions{
			ServiceName: r.cfg.Telemetry.GetServiceName(),
			RunID:       r.runID,
			Endpoint:    r.cfg.Telemetry.GetEndpoint(),
			Insecure:    r.cfg.Telemetry.Insecure,
			SampleRatio: r.cfg.Telemetry.GetSampleRatio(),
		})
		if err != nil {
			logging.Warn("OpenTelemetry недоступен: %v", err)
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logging.Warn("Ошибка остановки OpenTelemetry: %v", err)
				}
			}()
		}
	}

	ctx, span := observability.StartSpan(ctx, "snapshot")
	defer span.End()
	span.SetAttributes(
		attribute.String("place.run_id", r.runID),
		attribute.String("place.dataset", r.dataset),
		attribute.String("place.cutoff", string(r.cutoff)),
	)

	collector := metrics.NewCollector()
	if addr := r.cfg.Metrics.GetAddr(); addr != "" {
		stop := collector.StartHTTP(addr)
		defer stop(context.Background())
	}

	store, key, err := r.openStore()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	var c *canvas.Canvas
	if store != nil {
		cached, meta, err := store.Load(key)
		switch {
		case err == nil:
			logging.Info("💾 Найден снапшот run %s от %s (%d записей), проигрывание пропущено",
				meta.RunID, meta.CreatedAt.Format(time.RFC3339), meta.Processed)
			c = cached
			replay.Report(c, resultFromMeta(*meta), r.observer(collector), r.cfg.Replay.GetReportUntouched())
		case errors.Is(err, storage.ErrSnapshotNotFound):
			logging.Debug("Снапшот для %s/%s не найден", key.Fingerprint, key.Cutoff)
		default:
			logging.Warn("Не удалось прочитать снапшот: %v", err)
		}
	}

	if c == nil {
		res, replayed, err := r.replay(ctx, collector)
		if err != nil {
			span.RecordError(err)
			return err
		}
		c = replayed
		span.SetAttributes(
			attribute.Int64("place.total", int64(res.Total)),
			attribute.Int64("place.processed", int64(res.Processed)),
		)

		if store != nil {
			meta := storage.SnapshotMeta{
				RunID:       r.runID,
				Dataset:     r.dataset,
				Total:       res.Total,
				Processed:   res.Processed,
				Rectangles:  res.Rectangles,
				CellUpdates: res.CellUpdates,
				Stale:       res.Stale,
				Untouched:   res.Untouched,
				CreatedAt:   time.Now().UTC(),
			}
			if err := store.Save(key, c, meta); err != nil {
				logging.Warn("Не удалось сохранить снапшот: %v", err)
			} else {
				logging.Info("💾 Снапшот сохранён (%s)", key.Fingerprint)
			}
		}
	}

	if rss, err := observability.ProcessRSS(); err == nil {
		logging.Debug("Память процесса: %s", humanize.Bytes(rss))
	}

	_, renderSpan := observability.StartSpan(ctx, "render")
	defer renderSpan.End()

	out := r.cfg.Output.GetOutputPath()
	fmt.Fprintln(r.stdout, "Rendering image...")
	if err := render.Render(c, out); err != nil {
		renderSpan.RecordError(err)
		return err
	}
	logging.Info("✅ Изображение сохранено в %s", out)
	return nil
}

func (r *snapshotRun) openStore() (*storage.SnapshotStore, storage.SnapshotKey, error) {
	path := r.cfg.Store.GetPath()
	if path == "" {
		return nil, storage.SnapshotKey{}, nil
	}

	fp, err := storage.Fingerprint(r.dataset)
	if err != nil {
		return nil, storage.SnapshotKey{}, err
	}
	store, err := storage.NewSnapshotStore(path)
	if err != nil {
		return nil, storage.SnapshotKey{}, err
	}
	return store, storage.SnapshotKey{Fingerprint: fp, Cutoff: string(r.cutoff)}, nil
}

func (r *snapshotRun) replay(ctx context.Context, collector *metrics.Collector) (replay.Result, *canvas.Canvas, error) {
	_, span := observability.StartSpan(ctx, "replay")
	defer span.End()

	src, err := placelog.Open(r.dataset)
	if err != nil {
		return replay.Result{}, nil, err
	}
	defer src.Close()
	logging.Debug("Лог %s открыт, сжатие: %s", r.dataset, src.Compression())

	c := canvas.New()
	player := replay.New(c, replay.Options{
		Cutoff:          r.cutoff,
		ProgressEvery:   uint64(r.cfg.Replay.GetProgressEvery()),
		ReportUntouched: r.cfg.Replay.GetReportUntouched(),
		Observer:        r.observer(collector),
	})

	res, err := player.Run(src)
	if err != nil {
		return res, nil, fmt.Errorf("проигрывание %s прервано: %w", r.dataset, err)
	}

	logging.Info("📊 Прочитано %s записей, применено %s за %s (прямоугольников: %d, устаревших обновлений: %d)",
		humanize.Comma(int64(res.Total)), humanize.Comma(int64(res.Processed)),
		res.Elapsed.Round(time.Millisecond), res.Rectangles, res.Stale)
	return res, c, nil
}

// observer - консольный отчёт плюс метрики; общий для прогона и снапшота
func (r *snapshotRun) observer(collector *metrics.Collector) replay.Observer {
	return replay.Observers{replay.NewConsoleObserver(r.stdout), collector}
}

// resultFromMeta восстанавливает итог прогона из метаданных снапшота
func resultFromMeta(meta storage.SnapshotMeta) replay.Result {
	return replay.Result{
		Total:       meta.Total,
		Processed:   meta.Processed,
		Rectangles:  meta.Rectangles,
		CellUpdates: meta.CellUpdates,
		Stale:       meta.Stale,
		Untouched:   meta.Untouched,
	}
}

func printSnapshots(path string, w io.Writer) int {
	if path == "" {
		logging.Error("❌ Хранилище снапшотов не задано (-store или store.path)")
		return 1
	}
	store, err := storage.NewSnapshotStore(path)
	if err != nil {
		logging.Error("❌ %v", err)
		return 1
	}
	defer store.Close()

	list, err := store.List()
	if err != nil {
		logging.Error("❌ %v", err)
		return 1
	}
	for _, m := range list {
		fmt.Fprintf(w, "%s  %s  cutoff=%q  processed=%d  run=%s\n",
			m.CreatedAt.Format(time.RFC3339), m.Fingerprint, m.Cutoff, m.Processed, m.RunID)
	}
	return 0
}
