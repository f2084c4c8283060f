package vec

import "fmt"

// Vec2 представляет 2D координаты пикселя на холсте
type Vec2 struct {
	X, Y int
}

// String возвращает координаты в формате лога "x,y"
func (v Vec2) String() string {
	return fmt.Sprintf("%d,%d", v.X, v.Y)
}

// Rect - замкнутый прямоугольник: обе границы включительно
type Rect struct {
	Min, Max Vec2
}

// Point возвращает прямоугольник из одной клетки
func Point(x, y int) Rect {
	p := Vec2{X: x, Y: y}
	return Rect{Min: p, Max: p}
}

// IsPoint сообщает, состоит ли прямоугольник ровно из одной клетки
func (r Rect) IsPoint() bool {
	return r.Min == r.Max
}

// Area возвращает число клеток; 0 для вырожденного прямоугольника (Min > Max)
func (r Rect) Area() int {
	w := r.Max.X - r.Min.X + 1
	h := r.Max.Y - r.Min.Y + 1
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Within проверяет, что прямоугольник целиком лежит в [0,width)x[0,height)
func (r Rect) Within(width, height int) bool {
	return r.Min.X >= 0 && r.Min.Y >= 0 && r.Max.X < width && r.Max.Y < height
}

// Each обходит клетки: X снаружи, Y внутри
func (r Rect) Each(fn func(x, y int)) {
	for x := r.Min.X; x <= r.Max.X; x++ {
		for y := r.Min.Y; y <= r.Max.Y; y++ {
			fn(x, y)
		}
	}
}
