package replay

import (
	"fmt"
	"io"

	"github.com/annel0/place-snapshot/internal/placelog"
	"github.com/dustin/go-humanize"
)

// Observer получает диагностические уведомления во время прогона.
// На результат реконструкции холста не влияет.
type Observer interface {
	// RectanglePlaced вызывается для каждого прямоугольного (модераторского) события
	RectanglePlaced(ev placelog.Event)
	// Progress вызывается каждые ProgressEvery прочитанных записей
	Progress(total, processed uint64)
	// Finished вызывается после исчерпания лога, до перечисления пустых клеток
	Finished(res Result)
	// Untouched вызывается для каждой незатронутой клетки: X снаружи, Y внутри
	Untouched(x, y int)
}

// NopObserver игнорирует все уведомления
type NopObserver struct{}

func (NopObserver) RectanglePlaced(placelog.Event) {}
func (NopObserver) Progress(uint64, uint64)        {}
func (NopObserver) Finished(Result)                {}
func (NopObserver) Untouched(int, int)             {}

// Observers рассылает уведомления всем наблюдателям по порядку
type Observers []Observer

func (o Observers) RectanglePlaced(ev placelog.Event) {
	for _, obs := range o {
		obs.RectanglePlaced(ev)
	}
}

func (o Observers) Progress(total, processed uint64) {
	for _, obs := range o {
		obs.Progress(total, processed)
	}
}

func (o Observers) Finished(res Result) {
	for _, obs := range o {
		obs.Finished(res)
	}
}

func (o Observers) Untouched(x, y int) {
	for _, obs := range o {
		obs.Untouched(x, y)
	}
}

// ConsoleObserver печатает отчёт прогона в человекочитаемом виде
type ConsoleObserver struct {
	W io.Writer
}

// NewConsoleObserver создаёт наблюдателя, пишущего в w
func NewConsoleObserver(w io.Writer) *ConsoleObserver {
	return &ConsoleObserver{W: w}
}

func (c *ConsoleObserver) RectanglePlaced(ev placelog.Event) {
	fmt.Fprintf(c.W, "🛡️  Found moderator placement at %s (%s..%s, %d px, %s)\n",
		ev.Raw, ev.Area.Min, ev.Area.Max, ev.Area.Area(), ev.Color.Hex())
}

func (c *ConsoleObserver) Progress(total, processed uint64) {
	fmt.Fprintf(c.W, "⏳ %s pixels iterated, %s processed so far...\n",
		humanize.Comma(int64(total)), humanize.Comma(int64(processed)))
}

func (c *ConsoleObserver) Finished(res Result) {
	fmt.Fprintf(c.W, "Total %d\n", res.Total)
	fmt.Fprintf(c.W, "Processed %d\n", res.Processed)
	if res.Stale > 0 {
		fmt.Fprintf(c.W, "Stale updates discarded %d\n", res.Stale)
	}
	fmt.Fprintln(c.W, "Untouched pixels:")
}

func (c *ConsoleObserver) Untouched(x, y int) {
	fmt.Fprintf(c.W, "Untouched: %d,%d\n", x, y)
}
