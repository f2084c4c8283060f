// Package canvas хранит состояние холста 2000x2000 и разрешает конфликты
// записи по правилу last-writer-wins.
package canvas

import (
	"fmt"

	"github.com/annel0/place-snapshot/internal/palette"
	"github.com/annel0/place-snapshot/internal/vec"
)

const (
	Width  = 2000
	Height = 2000
	Size   = Width * Height
)

// Canvas - три параллельных плоских массива, индекс клетки y*Width + x.
// Не потокобезопасен: владелец один на весь прогон.
type Canvas struct {
	colors  []palette.Index
	times   []int64
	touched []bool

	applied uint64 // применённые обновления
	stale   uint64 // отброшенные как устаревшие
}

// New создаёт белый холст без записей
func New() *Canvas {
	c := &Canvas{
		colors:  make([]palette.Index, Size),
		times:   make([]int64, Size),
		touched: make([]bool, Size),
	}
	for i := range c.colors {
		c.colors[i] = palette.White
	}
	return c
}

// Restore собирает холст из сохранённых массивов.
// Массивы не копируются.
func Restore(colors []palette.Index, times []int64, touched []bool) (*Canvas, error) {
	if len(colors) != Size || len(times) != Size || len(touched) != Size {
		return nil, fmt.Errorf("неверный размер массивов: %d/%d/%d, ожидалось %d",
			len(colors), len(times), len(touched), Size)
	}
	for i, c := range colors {
		if !c.Valid() {
			return nil, fmt.Errorf("клетка %d: индекс цвета %d вне палитры", i, c)
		}
	}
	return &Canvas{colors: colors, times: times, touched: touched}, nil
}

// Index возвращает индекс клетки в плоских массивах
func Index(x, y int) int {
	return y*Width + x
}

// Contains проверяет, что прямоугольник лежит внутри холста
func Contains(r vec.Rect) bool {
	return r.Within(Width, Height)
}

// Apply применяет обновление клетки. Если в клетке уже есть запись с
// большим временем, обновление отбрасывается; равное время перезаписывает.
func (c *Canvas) Apply(x, y int, ts int64, color palette.Index) {
	i := Index(x, y)
	if c.times[i] > ts {
		c.stale++
		return
	}

	c.times[i] = ts
	c.colors[i] = color
	c.touched[i] = true
	c.applied++
}

// Color возвращает текущий цвет клетки
func (c *Canvas) Color(x, y int) palette.Index {
	return c.colors[Index(x, y)]
}

// LastWrite возвращает время последней применённой записи (0 - не было)
func (c *Canvas) LastWrite(x, y int) int64 {
	return c.times[Index(x, y)]
}

// Touched сообщает, применялось ли к клетке хоть одно событие
func (c *Canvas) Touched(x, y int) bool {
	return c.touched[Index(x, y)]
}

// Applied возвращает число применённых обновлений клеток
func (c *Canvas) Applied() uint64 { return c.applied }

// Stale возвращает число отброшенных устаревших обновлений
func (c *Canvas) Stale() uint64 { return c.stale }

// EachUntouched обходит незатронутые клетки: X снаружи, Y внутри.
// Возвращает их количество.
func (c *Canvas) EachUntouched(fn func(x, y int)) int {
	n := 0
	for x := 0; x < Width; x++ {
		for y := 0; y < Height; y++ {
			if !c.touched[Index(x, y)] {
				n++
				if fn != nil {
					fn(x, y)
				}
			}
		}
	}
	return n
}

// Colors отдаёт массив цветов только для чтения (рендер, хранилище)
func (c *Canvas) Colors() []palette.Index { return c.colors }

// Times отдаёт массив времён только для чтения
func (c *Canvas) Times() []int64 { return c.times }

// TouchedMask отдаёт массив флагов только для чтения
func (c *Canvas) TouchedMask() []bool { return c.touched }
