package replay

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/annel0/place-snapshot/internal/canvas"
	"github.com/annel0/place-snapshot/internal/palette"
	"github.com/annel0/place-snapshot/internal/placelog"
	"github.com/annel0/place-snapshot/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceSource отдаёт заранее заданные записи
type sliceSource struct {
	records []placelog.Record
	pos     int
	err     error // возвращается вместо io.EOF, если задана
}

func (s *sliceSource) Next() (placelog.Record, error) {
	if s.pos >= len(s.records) {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	rec := s.records[s.pos]
	s.pos++
	return rec, nil
}

func source(records ...placelog.Record) *sliceSource {
	return &sliceSource{records: records}
}

func rec(ts, color, coords string) placelog.Record {
	return placelog.Record{ts, "user", color, coords}
}

// recordingObserver запоминает все уведомления
type recordingObserver struct {
	rectangles []placelog.Event
	progress   [][2]uint64
	finished   []Result
	untouched  []vec.Vec2
}

func (o *recordingObserver) RectanglePlaced(ev placelog.Event) { o.rectangles = append(o.rectangles, ev) }
func (o *recordingObserver) Progress(total, processed uint64) {
	o.progress = append(o.progress, [2]uint64{total, processed})
}
func (o *recordingObserver) Finished(res Result) { o.finished = append(o.finished, res) }
func (o *recordingObserver) Untouched(x, y int) {
	o.untouched = append(o.untouched, vec.Vec2{X: x, Y: y})
}

func mustColor(t *testing.T, hex string) palette.Index {
	t.Helper()
	idx, err := palette.Parse(hex)
	require.NoError(t, err)
	return idx
}

func TestRun_RoundTrip(t *testing.T) {
	c := canvas.New()
	r := New(c, Options{Cutoff: "2022-04-01 00:00:01"})

	res, err := r.Run(source(
		rec("2022-04-01 00:00:00", "#FF4500", "5,5"),
		rec("2022-04-01 00:00:01", "#FFFFFF", "5,5"),
		rec("2022-04-01 00:00:00", "#000000", "6,6"),
	))
	require.NoError(t, err)

	assert.Equal(t, uint64(3), res.Total)
	assert.Equal(t, uint64(3), res.Processed)
	assert.Equal(t, uint64(3), res.CellUpdates)
	assert.Equal(t, canvas.Size-2, res.Untouched)

	assert.Equal(t, "#FFFFFF", c.Color(5, 5).Hex())
	assert.Equal(t, "#000000", c.Color(6, 6).Hex())
	assert.Equal(t, "#FFFFFF", c.Color(0, 0).Hex())
	assert.False(t, c.Touched(0, 0))
}

func TestRun_CutoffBoundaryInclusive(t *testing.T) {
	c := canvas.New()
	res, err := New(c, Options{Cutoff: "2022-04-01 12:00:00"}).Run(source(
		rec("2022-04-01 12:00:00", "#FF4500", "1,1"),
		rec("2022-04-01 12:00:01", "#000000", "2,2"),
	))
	require.NoError(t, err)

	assert.Equal(t, uint64(2), res.Total)
	assert.Equal(t, uint64(1), res.Processed)
	assert.Equal(t, mustColor(t, "#FF4500"), c.Color(1, 1), "метка, равная отсечке, включается")
	assert.False(t, c.Touched(2, 2), "более поздняя метка исключается")
}

func TestRun_CutoffIsStringComparison(t *testing.T) {
	c := canvas.New()
	// нормализованное время обеих записей совпадает с отсечкой,
	// но строка с дробной частью лексикографически больше
	res, err := New(c, Options{Cutoff: "2022-04-01 00:00:01"}).Run(source(
		rec("2022-04-01 00:00:01", "#FF4500", "1,1"),
		rec("2022-04-01 00:00:01.5 UTC", "#000000", "2,2"),
	))
	require.NoError(t, err)

	assert.Equal(t, uint64(1), res.Processed)
	assert.True(t, c.Touched(1, 1))
	assert.False(t, c.Touched(2, 2), "строка > отсечки исключается, даже если секунды совпадают")
}

func TestRun_CutoffSkipsBeforeParsing(t *testing.T) {
	c := canvas.New()
	// заголовок CSV и битая запись после отсечки не разбираются
	res, err := New(c, Options{Cutoff: "2022-04-01 00:00:00"}).Run(source(
		placelog.Record{"timestamp", "user_id", "pixel_color", "coordinate"},
		rec("2022-04-01 00:00:00", "#FF4500", "3,3"),
		rec("2022-04-02 00:00:00", "#123456", "bad"),
	))
	require.NoError(t, err)

	assert.Equal(t, uint64(3), res.Total)
	assert.Equal(t, uint64(1), res.Processed)
}

func TestRun_LaterTimestampWinsRegardlessOfOrder(t *testing.T) {
	c := canvas.New()
	_, err := New(c, Options{Cutoff: "2022-04-30 00:00:00"}).Run(source(
		rec("2022-04-01 00:00:02", "#000000", "9,9"),
		rec("2022-04-01 00:00:01", "#FF4500", "9,9"),
		rec("2022-04-01 00:00:01", "#FF4500", "8,8"),
		rec("2022-04-01 00:00:02", "#000000", "8,8"),
	))
	require.NoError(t, err)

	assert.Equal(t, mustColor(t, "#000000"), c.Color(9, 9), "t2 затем t1: побеждает t2")
	assert.Equal(t, mustColor(t, "#000000"), c.Color(8, 8), "t1 затем t2: побеждает t2")
}

func TestRun_EqualTimestampsLastProcessedWins(t *testing.T) {
	c := canvas.New()
	res, err := New(c, Options{Cutoff: "2022-04-30 00:00:00"}).Run(source(
		rec("2022-04-01 00:00:05", "#000000", "4,4"),
		rec("2022-04-01 00:00:05", "#7EED56", "4,4"),
	))
	require.NoError(t, err)

	assert.Equal(t, mustColor(t, "#7EED56"), c.Color(4, 4))
	assert.Zero(t, res.Stale)
}

func TestRun_RectangleEquivalentToSingleEvents(t *testing.T) {
	const ts = "2022-04-02 10:00:00"

	rectCanvas := canvas.New()
	obs := &recordingObserver{}
	res, err := New(rectCanvas, Options{Cutoff: "2022-04-30 00:00:00", Observer: obs}).Run(source(
		rec("2022-04-01 00:00:00", "#FF4500", "11,21"),
		rec(ts, "#2450A4", "10,20,12,23"),
	))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Rectangles)
	assert.Equal(t, uint64(1+3*4), res.CellUpdates)
	require.Len(t, obs.rectangles, 1, "прямоугольное событие должно порождать уведомление")
	assert.Equal(t, ts, obs.rectangles[0].Raw)

	var singles []placelog.Record
	singles = append(singles, rec("2022-04-01 00:00:00", "#FF4500", "11,21"))
	// обратный порядок внутри прямоугольника: клетки не пересекаются
	for x := 12; x >= 10; x-- {
		for y := 23; y >= 20; y-- {
			singles = append(singles, rec(ts, "#2450A4", vec.Vec2{X: x, Y: y}.String()))
		}
	}
	singleCanvas := canvas.New()
	_, err = New(singleCanvas, Options{Cutoff: "2022-04-30 00:00:00"}).Run(source(singles...))
	require.NoError(t, err)

	for x := 8; x <= 14; x++ {
		for y := 18; y <= 25; y++ {
			assert.Equal(t, singleCanvas.Color(x, y), rectCanvas.Color(x, y), "клетка %d,%d", x, y)
			assert.Equal(t, singleCanvas.LastWrite(x, y), rectCanvas.LastWrite(x, y))
			assert.Equal(t, singleCanvas.Touched(x, y), rectCanvas.Touched(x, y))
		}
	}
	assert.Equal(t, mustColor(t, "#2450A4"), rectCanvas.Color(11, 21), "прямоугольник перекрывает более раннюю запись")
}

func TestRun_UnknownColorAborts(t *testing.T) {
	c := canvas.New()
	res, err := New(c, Options{Cutoff: "2022-04-30 00:00:00"}).Run(source(
		rec("2022-04-01 00:00:00", "#FF4500", "1,1"),
		rec("2022-04-01 00:00:01", "#123456", "1,2"),
		rec("2022-04-01 00:00:02", "#FF4500", "1,3"),
	))
	require.Error(t, err)
	assert.True(t, errors.Is(err, palette.ErrUnknownColor))

	var re *RecordError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, uint64(2), re.Record)
	assert.False(t, c.Touched(1, 3), "после ошибки записи не применяются")
	assert.Equal(t, uint64(1), res.Processed)
}

func TestRun_MalformedCoordinateAborts(t *testing.T) {
	_, err := New(canvas.New(), Options{Cutoff: "2022-04-30 00:00:00"}).Run(source(
		rec("2022-04-01 00:00:00", "#FF4500", "1,2,3"),
	))
	assert.True(t, errors.Is(err, placelog.ErrMalformedCoordinate))
}

func TestRun_MalformedTimestampAborts(t *testing.T) {
	_, err := New(canvas.New(), Options{Cutoff: "2022-04-30 00:00:00"}).Run(source(
		rec("2022-04-01 0", "#FF4500", "1,2"),
	))
	assert.True(t, errors.Is(err, placelog.ErrMalformedTimestamp))
}

func TestRun_OutOfBoundsAborts(t *testing.T) {
	_, err := New(canvas.New(), Options{Cutoff: "2022-04-30 00:00:00"}).Run(source(
		rec("2022-04-01 00:00:00", "#FF4500", "1990,1990,2000,1995"),
	))
	assert.True(t, errors.Is(err, ErrOutOfBounds))
}

func TestRun_SourceErrorPropagates(t *testing.T) {
	boom := errors.New("gzip: invalid checksum")
	src := &sliceSource{records: []placelog.Record{rec("2022-04-01 00:00:00", "#FF4500", "1,1")}, err: boom}

	_, err := New(canvas.New(), Options{Cutoff: "2022-04-30 00:00:00"}).Run(src)
	assert.ErrorIs(t, err, boom)
}

func TestRun_ProgressAndUntouched(t *testing.T) {
	var records []placelog.Record
	for i := 0; i < 5; i++ {
		records = append(records, rec("2022-04-01 00:00:00", "#000000", vec.Vec2{X: 0, Y: i}.String()))
	}
	records = append(records, rec("2022-04-09 00:00:00", "#000000", "0,9"))

	obs := &recordingObserver{}
	c := canvas.New()
	res, err := New(c, Options{
		Cutoff:          "2022-04-05 00:00:00",
		ProgressEvery:   2,
		ReportUntouched: true,
		Observer:        obs,
	}).Run(source(records...))
	require.NoError(t, err)

	assert.Equal(t, [][2]uint64{{2, 2}, {4, 4}, {6, 5}}, obs.progress)
	require.Len(t, obs.finished, 1)
	assert.Equal(t, res, obs.finished[0])
	assert.Len(t, obs.untouched, canvas.Size-5)
	assert.Equal(t, vec.Vec2{X: 0, Y: 5}, obs.untouched[0], "первая пустая клетка в столбце x=0")
	assert.Equal(t, vec.Vec2{X: 1999, Y: 1999}, obs.untouched[len(obs.untouched)-1])
}

func TestRun_NoUntouchedReportByDefault(t *testing.T) {
	obs := &recordingObserver{}
	_, err := New(canvas.New(), Options{Cutoff: "2022-04-05 00:00:00", Observer: obs}).Run(source())
	require.NoError(t, err)
	assert.Empty(t, obs.untouched)
	require.Len(t, obs.finished, 1)
	assert.Equal(t, canvas.Size, obs.finished[0].Untouched)
}

func TestConsoleObserver(t *testing.T) {
	var buf bytes.Buffer
	obs := Observers{NewConsoleObserver(&buf), NopObserver{}}

	ev, err := placelog.ParseRecord(rec("2022-04-01 00:00:00", "#000000", "0,0,1,1"))
	require.NoError(t, err)

	obs.RectanglePlaced(ev)
	obs.Progress(200000, 150000)
	obs.Finished(Result{Total: 3, Processed: 2})
	obs.Untouched(4, 5)

	out := buf.String()
	assert.Contains(t, out, "Found moderator placement at 2022-04-01 00:00:00")
	assert.Contains(t, out, "200,000 pixels iterated, 150,000 processed so far...")
	assert.Contains(t, out, "Total 3")
	assert.Contains(t, out, "Untouched pixels:")
	assert.Contains(t, out, "Untouched: 4,5")
}

func TestReport_RestoredCanvas(t *testing.T) {
	src := canvas.New()
	src.Apply(0, 0, 10, palette.White)
	src.Apply(3, 7, 10, palette.Index(0))
	restored, err := canvas.Restore(src.Colors(), src.Times(), src.TouchedMask())
	require.NoError(t, err)

	obs := &recordingObserver{}
	res := Result{Total: 4, Processed: 2, Untouched: canvas.Size - 2}
	Report(restored, res, obs, true)

	require.Len(t, obs.finished, 1)
	assert.Equal(t, res, obs.finished[0])
	assert.Len(t, obs.untouched, canvas.Size-2)
	assert.Equal(t, vec.Vec2{X: 0, Y: 1}, obs.untouched[0], "(0,0) затронута")

	quiet := &recordingObserver{}
	Report(restored, res, quiet, false)
	assert.Len(t, quiet.finished, 1)
	assert.Empty(t, quiet.untouched, "без флага пустые клетки не перечисляются")
}

func TestRun_Elapsed(t *testing.T) {
	res, err := New(canvas.New(), Options{Cutoff: "2022-04-05 00:00:00"}).Run(source(
		rec("2022-04-01 00:00:00", "#000000", "1,1"),
	))
	require.NoError(t, err)
	assert.Greater(t, int64(res.Elapsed), int64(0), "длительность прогона должна заполняться")
}
