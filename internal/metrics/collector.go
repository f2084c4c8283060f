package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/annel0/place-snapshot/internal/logging"
	"github.com/annel0/place-snapshot/internal/placelog"
	"github.com/annel0/place-snapshot/internal/replay"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector - наблюдатель прогона, экспортирующий счётчики в Prometheus.
// Progress приходит с накопленными значениями, поэтому counters
// увеличиваются на дельту относительно прошлого отчёта.
type Collector struct {
	registry *prometheus.Registry

	seen       prometheus.Counter
	processed  prometheus.Counter
	rectangles prometheus.Counter
	rectCells  prometheus.Counter
	stale      prometheus.Counter
	cells      prometheus.Counter
	untouched  prometheus.Gauge
	duration   prometheus.Gauge

	prevSeen      uint64
	prevProcessed uint64
}

// NewCollector создаёт коллектор со своим реестром
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		seen: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "place",
			Name:      "events_seen_total",
			Help:      "Общее число прочитанных записей лога.",
		}),
		processed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "place",
			Name:      "events_processed_total",
			Help:      "Записи в пределах отсечки.",
		}),
		rectangles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "place",
			Name:      "rectangle_events_total",
			Help:      "Прямоугольные размещения модераторов.",
		}),
		rectCells: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "place",
			Name:      "rectangle_cells_total",
			Help:      "Клетки, покрытые прямоугольными размещениями.",
		}),
		stale: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "place",
			Name:      "stale_updates_total",
			Help:      "Обновления клеток, отброшенные как более ранние.",
		}),
		cells: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "place",
			Name:      "cell_updates_total",
			Help:      "Применённые обновления клеток.",
		}),
		untouched: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "place",
			Name:      "untouched_cells",
			Help:      "Клетки без единой записи на момент отсечки.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "place",
			Name:      "replay_duration_seconds",
			Help:      "Длительность проигрывания лога; 0, если холст взят из хранилища.",
		}),
	}

	c.registry.MustRegister(c.seen, c.processed, c.rectangles, c.rectCells,
		c.stale, c.cells, c.untouched, c.duration)
	return c
}

// Registry возвращает реестр коллектора
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) RectanglePlaced(ev placelog.Event) {
	c.rectangles.Inc()
	c.rectCells.Add(float64(ev.Area.Area()))
}

func (c *Collector) Progress(total, processed uint64) {
	c.advance(total, processed)
}

func (c *Collector) Finished(res replay.Result) {
	c.advance(res.Total, res.Processed)
	c.cells.Add(float64(res.CellUpdates))
	c.stale.Add(float64(res.Stale))
	c.untouched.Set(float64(res.Untouched))
	c.duration.Set(res.Elapsed.Seconds())
}

func (c *Collector) Untouched(int, int) {}

func (c *Collector) advance(total, processed uint64) {
	if total > c.prevSeen {
		c.seen.Add(float64(total - c.prevSeen))
		c.prevSeen = total
	}
	if processed > c.prevProcessed {
		c.processed.Add(float64(processed - c.prevProcessed))
		c.prevProcessed = processed
	}
}

// StartHTTP запускает /metrics на addr в отдельной горутине.
// Возвращает функцию остановки сервера.
func (c *Collector) StartHTTP(addr string) func(context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		logging.Info("📈 Prometheus /metrics доступен по адресу %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Ошибка Prometheus HTTP сервера: %v", err)
		}
	}()

	return srv.Shutdown
}
