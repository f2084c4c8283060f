package placelog

import (
	"fmt"
	"strconv"
)

// TimestampLayout - минимальный формат метки времени
const TimestampLayout = "2006-01-02 15:04:05"

// ParseTimestamp переводит метку вида "2022-04-04 18:00:00.123 UTC" в секунды
// от начала месяца. Месяц и год не учитываются: датасет охватывает один месяц.
// Всё после 19-го символа игнорируется.
func ParseTimestamp(s string) (int64, error) {
	if len(s) < len(TimestampLayout) {
		return 0, &TimestampError{Value: s, Err: fmt.Errorf("длина %d < %d", len(s), len(TimestampLayout))}
	}

	day, err := field(s, 8, 10)
	if err != nil {
		return 0, err
	}
	hour, err := field(s, 11, 13)
	if err != nil {
		return 0, err
	}
	minute, err := field(s, 14, 16)
	if err != nil {
		return 0, err
	}
	second, err := field(s, 17, 19)
	if err != nil {
		return 0, err
	}

	return day*86400 + hour*3600 + minute*60 + second, nil
}

func field(s string, from, to int) (int64, error) {
	v, err := strconv.ParseUint(s[from:to], 10, 8)
	if err != nil {
		return 0, &TimestampError{Value: s, Err: err}
	}
	return int64(v), nil
}
