// Package replay проигрывает лог размещений поверх холста до заданной отсечки.
package replay

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/annel0/place-snapshot/internal/canvas"
	"github.com/annel0/place-snapshot/internal/placelog"
)

// DefaultProgressEvery - период отчёта о прогрессе в прочитанных записях
const DefaultProgressEvery = 100000

// ErrOutOfBounds - координаты события выходят за пределы холста
var ErrOutOfBounds = errors.New("координаты вне холста")

// Cutoff - отсечка в сыром формате лога ("2022-04-04 18:00:00").
// Сравнение строковое: запись с меткой > отсечки пропускается,
// равная метка включается.
type Cutoff string

// Includes сообщает, попадает ли сырая метка в снапшот
func (c Cutoff) Includes(raw string) bool {
	return raw <= string(c)
}

// Source - последовательный источник записей; конец сигнализируется io.EOF
type Source interface {
	Next() (placelog.Record, error)
}

// Result - итоговые счётчики прогона
type Result struct {
	Total       uint64 // прочитано записей
	Processed   uint64 // записей в пределах отсечки
	Rectangles  uint64 // из них прямоугольных
	CellUpdates uint64 // применено обновлений клеток
	Stale       uint64 // отброшено устаревших обновлений
	Untouched   int    // клеток без единой записи
	Elapsed     time.Duration
}

// RecordError привязывает фатальную ошибку к номеру записи (с 1)
type RecordError struct {
	Record uint64
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("запись %d: %v", e.Record, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// Options настраивает прогон
type Options struct {
	Cutoff          Cutoff
	ProgressEvery   uint64 // 0 - DefaultProgressEvery
	ReportUntouched bool
	Observer        Observer
}

// Replayer сворачивает лог в состояние холста
type Replayer struct {
	canvas *canvas.Canvas
	opts   Options
}

// New создаёт проигрыватель поверх холста c
func New(c *canvas.Canvas, opts Options) *Replayer {
	if opts.ProgressEvery == 0 {
		opts.ProgressEvery = DefaultProgressEvery
	}
	if opts.Observer == nil {
		opts.Observer = NopObserver{}
	}
	return &Replayer{canvas: c, opts: opts}
}

// Canvas возвращает холст, над которым работает проигрыватель
func (r *Replayer) Canvas() *canvas.Canvas {
	return r.canvas
}

// Run читает src до конца. Любая ошибка разбора фатальна: холст после неё
// не должен рендериться.
func (r *Replayer) Run(src Source) (Result, error) {
	var res Result
	obs := r.opts.Observer
	started := time.Now()
	appliedBefore, staleBefore := r.canvas.Applied(), r.canvas.Stale()

	for {
		rec, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return res, err
		}
		res.Total++

		if err := r.step(rec, &res); err != nil {
			return res, &RecordError{Record: res.Total, Err: err}
		}

		if res.Total%r.opts.ProgressEvery == 0 {
			obs.Progress(res.Total, res.Processed)
		}
	}

	res.CellUpdates = r.canvas.Applied() - appliedBefore
	res.Stale = r.canvas.Stale() - staleBefore
	res.Untouched = r.canvas.EachUntouched(nil)
	res.Elapsed = time.Since(started)

	Report(r.canvas, res, obs, r.opts.ReportUntouched)
	return res, nil
}

// Report выдаёт итог прогона наблюдателю: Finished, затем (если
// untouched) пустые клетки холста c. Используется и для холста,
// восстановленного из хранилища без проигрывания.
func Report(c *canvas.Canvas, res Result, obs Observer, untouched bool) {
	obs.Finished(res)
	if untouched {
		c.EachUntouched(obs.Untouched)
	}
}

// step применяет одну запись; отсечка проверяется до разбора
func (r *Replayer) step(rec placelog.Record, res *Result) error {
	if !r.opts.Cutoff.Includes(rec.Timestamp()) {
		return nil
	}

	ev, err := placelog.ParseRecord(rec)
	if err != nil {
		return err
	}
	if !canvas.Contains(ev.Area) {
		return fmt.Errorf("%w: %s..%s", ErrOutOfBounds, ev.Area.Min, ev.Area.Max)
	}

	if ev.Bulk {
		res.Rectangles++
		r.opts.Observer.RectanglePlaced(ev)
	}

	ev.Cells(func(x, y int) {
		r.canvas.Apply(x, y, ev.Time, ev.Color)
	})

	res.Processed++
	return nil
}
