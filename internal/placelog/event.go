package placelog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/annel0/place-snapshot/internal/palette"
	"github.com/annel0/place-snapshot/internal/vec"
)

// Record - сырая запись лога в том виде, в каком её вернул CSV
type Record []string

// Timestamp возвращает сырое поле времени; сравнивается с отсечкой как строка
func (r Record) Timestamp() string {
	if len(r) == 0 {
		return ""
	}
	return r[0]
}

// Event - разобранное событие размещения
type Event struct {
	Raw   string // исходная метка времени
	Time  int64  // секунды от начала месяца
	User  string
	Color palette.Index
	Area  vec.Rect
	Bulk  bool // прямоугольник модератора (4 координаты)
}

// Cells обходит все клетки события: X снаружи, Y внутри
func (e Event) Cells(fn func(x, y int)) {
	e.Area.Each(fn)
}

// ParseRecord разбирает запись: время, цвет, координаты
func ParseRecord(r Record) (Event, error) {
	if len(r) < 4 {
		return Event{}, fmt.Errorf("%w: %d", ErrShortRecord, len(r))
	}

	ts, err := ParseTimestamp(r[0])
	if err != nil {
		return Event{}, err
	}

	color, err := palette.Parse(r[2])
	if err != nil {
		return Event{}, err
	}

	area, bulk, err := ParseCoordinates(r[3])
	if err != nil {
		return Event{}, err
	}

	return Event{
		Raw:   r[0],
		Time:  ts,
		User:  r[1],
		Color: color,
		Area:  area,
		Bulk:  bulk,
	}, nil
}

// ParseCoordinates разбирает "x,y" или "x1,y1,x2,y2".
// Порядок углов прямоугольника не проверяется.
func ParseCoordinates(s string) (vec.Rect, bool, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 && len(parts) != 4 {
		return vec.Rect{}, false, &CoordinateError{Field: s, Count: len(parts)}
	}

	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return vec.Rect{}, false, &CoordinateError{Field: s, Count: len(parts), Err: err}
		}
		nums[i] = n
	}

	if len(nums) == 2 {
		return vec.Point(nums[0], nums[1]), false, nil
	}
	return vec.Rect{
		Min: vec.Vec2{X: nums[0], Y: nums[1]},
		Max: vec.Vec2{X: nums[2], Y: nums[3]},
	}, true, nil
}
