// Package palette содержит фиксированную палитру холста: 32 цвета,
// взаимно однозначно сопоставленные индексам 0..31, и таблицу индекс -> RGB.
package palette

import (
	"errors"
	"fmt"
	"image/color"
)

// Index - номер цвета в палитре
type Index uint8

// Count - число цветов палитры
const Count = 32

// White - цвет по умолчанию для незатронутых клеток
const White Index = 31

// ErrUnknownColor возвращается для цвета вне палитры
var ErrUnknownColor = errors.New("неизвестный цвет")

// UnknownColorError описывает строку цвета, которой нет в палитре
type UnknownColorError struct {
	Color string
}

func (e *UnknownColorError) Error() string {
	return fmt.Sprintf("%v: %q", ErrUnknownColor, e.Color)
}

func (e *UnknownColorError) Unwrap() error { return ErrUnknownColor }

type entry struct {
	hex string
	rgb color.RGBA
}

var entries = [Count]entry{
	{"#000000", color.RGBA{0, 0, 0, 255}},
	{"#00CCC0", color.RGBA{0, 204, 192, 255}},
	{"#94B3FF", color.RGBA{148, 179, 255, 255}},
	{"#6A5CFF", color.RGBA{106, 92, 255, 255}},
	{"#009EAA", color.RGBA{0, 158, 170, 255}},
	{"#E4ABFF", color.RGBA{228, 171, 255, 255}},
	{"#00756F", color.RGBA{0, 117, 111, 255}},
	{"#00A368", color.RGBA{0, 163, 104, 255}},
	{"#00CC78", color.RGBA{0, 204, 120, 255}},
	{"#2450A4", color.RGBA{36, 80, 164, 255}},
	{"#3690EA", color.RGBA{54, 144, 234, 255}},
	{"#493AC1", color.RGBA{73, 58, 193, 255}},
	{"#515252", color.RGBA{81, 82, 82, 255}},
	{"#51E9F4", color.RGBA{81, 233, 244, 255}},
	{"#6D001A", color.RGBA{109, 0, 26, 255}},
	{"#6D482F", color.RGBA{109, 72, 47, 255}},
	{"#7EED56", color.RGBA{126, 237, 86, 255}},
	{"#811E9F", color.RGBA{129, 30, 159, 255}},
	{"#898D90", color.RGBA{137, 141, 144, 255}},
	{"#9C6926", color.RGBA{156, 105, 38, 255}},
	{"#B44AC0", color.RGBA{180, 74, 192, 255}},
	{"#BE0039", color.RGBA{190, 0, 57, 255}},
	{"#D4D7D9", color.RGBA{212, 215, 217, 255}},
	{"#DE107F", color.RGBA{222, 16, 127, 255}},
	{"#FF3881", color.RGBA{255, 56, 129, 255}},
	{"#FF4500", color.RGBA{255, 69, 0, 255}},
	{"#FF99AA", color.RGBA{255, 153, 170, 255}},
	{"#FFA800", color.RGBA{255, 168, 0, 255}},
	{"#FFB470", color.RGBA{255, 180, 112, 255}},
	{"#FFD635", color.RGBA{255, 214, 53, 255}},
	{"#FFF8B8", color.RGBA{255, 248, 184, 255}},
	{"#FFFFFF", color.RGBA{255, 255, 255, 255}},
}

var byHex = func() map[string]Index {
	m := make(map[string]Index, Count)
	for i, e := range entries {
		m[e.hex] = Index(i)
	}
	return m
}()

// Parse возвращает индекс для строки вида "#RRGGBB".
// Сравнение точное, как в логе: верхний регистр.
func Parse(hex string) (Index, error) {
	idx, ok := byHex[hex]
	if !ok {
		return 0, &UnknownColorError{Color: hex}
	}
	return idx, nil
}

// Valid сообщает, входит ли индекс в палитру
func (i Index) Valid() bool {
	return int(i) < Count
}

// Hex возвращает строку цвета
func (i Index) Hex() string {
	if !i.Valid() {
		return fmt.Sprintf("#invalid(%d)", uint8(i))
	}
	return entries[i].hex
}

// RGB возвращает цвет для рендеринга.
// Индексы вне палитры не появляются на холсте: туда пишутся только результаты Parse.
func (i Index) RGB() color.RGBA {
	return entries[i].rgb
}

func (i Index) String() string {
	return i.Hex()
}
