package placelog

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedTimestamp - метка времени не разбирается по фиксированным смещениям
	ErrMalformedTimestamp = errors.New("некорректная метка времени")
	// ErrMalformedCoordinate - поле координат не из 2 или 4 целых чисел
	ErrMalformedCoordinate = errors.New("некорректные координаты")
	// ErrShortRecord - в записи меньше 4 полей
	ErrShortRecord = errors.New("запись короче 4 полей")
)

// TimestampError описывает строку, которую не удалось нормализовать
type TimestampError struct {
	Value string
	Err   error
}

func (e *TimestampError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v %q: %v", ErrMalformedTimestamp, e.Value, e.Err)
	}
	return fmt.Sprintf("%v %q", ErrMalformedTimestamp, e.Value)
}

func (e *TimestampError) Unwrap() error { return ErrMalformedTimestamp }

// CoordinateError описывает поле координат, которое не удалось разобрать
type CoordinateError struct {
	Field string
	Count int
	Err   error
}

func (e *CoordinateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v %q: %v", ErrMalformedCoordinate, e.Field, e.Err)
	}
	return fmt.Sprintf("%v %q: ожидалось 2 или 4 числа, получено %d", ErrMalformedCoordinate, e.Field, e.Count)
}

func (e *CoordinateError) Unwrap() error { return ErrMalformedCoordinate }
