package placelog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	cases := map[string]int64{
		"2022-04-01 00:00:00":         86400,
		"2022-04-01 00:00:01":         86401,
		"2022-04-04 18:00:00":         4*86400 + 18*3600,
		"2022-04-04 18:03:07.123 UTC": 4*86400 + 18*3600 + 3*60 + 7,
		"2022-04-05 00:14:59 UTC":     5*86400 + 14*60 + 59,
	}
	for in, want := range cases {
		got, err := ParseTimestamp(in)
		require.NoError(t, err, "метка %q должна разбираться", in)
		assert.Equal(t, want, got, "неверное значение для %q", in)
	}
}

func TestParseTimestamp_IgnoresMonthAndYear(t *testing.T) {
	a, err := ParseTimestamp("2022-04-03 10:00:00")
	require.NoError(t, err)
	b, err := ParseTimestamp("1999-12-03 10:00:00")
	require.NoError(t, err)
	assert.Equal(t, a, b, "месяц и год не входят в нормализованное значение")
}

func TestParseTimestamp_Malformed(t *testing.T) {
	for _, in := range []string{
		"",
		"2022-04-01",
		"2022-04-01 00:00:0",
		"2022-04-xx 00:00:00",
		"2022-04-01 0a:00:00",
		"timestamp",
		"2022-04-01 00:00:-1",
	} {
		_, err := ParseTimestamp(in)
		require.Error(t, err, "метка %q не должна разбираться", in)
		assert.True(t, errors.Is(err, ErrMalformedTimestamp))

		var te *TimestampError
		assert.True(t, errors.As(err, &te))
	}
}
