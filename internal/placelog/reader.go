package placelog

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression - формат сжатия лога
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionZstd
)

func (c Compression) String() string {
	switch c {
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	default:
		return "none"
	}
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// DetectCompression определяет сжатие по сигнатуре первых байт
func DetectCompression(head []byte) Compression {
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		return CompressionGzip
	case bytes.HasPrefix(head, zstdMagic):
		return CompressionZstd
	default:
		return CompressionNone
	}
}

// Reader - ленивый последовательный источник записей лога
type Reader struct {
	csv         *csv.Reader
	closers     []io.Closer
	compression Compression
	records     uint64
}

// Open открывает файл лога; gzip и zstd распознаются по сигнатуре
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть лог %s: %w", path, err)
	}

	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("не удалось распаковать лог %s: %w", path, err)
	}
	r.closers = append([]io.Closer{f}, r.closers...)
	return r, nil
}

// NewReader оборачивает поток (сжатый или нет) в CSV-ридер.
// Закрытие исходного потока остаётся за вызывающим.
func NewReader(src io.Reader) (*Reader, error) {
	br := bufio.NewReaderSize(src, 1<<20)
	head, err := br.Peek(len(zstdMagic))
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, err
	}

	r := &Reader{compression: DetectCompression(head)}

	var body io.Reader = br
	switch r.compression {
	case CompressionGzip:
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, gz)
		body = gz
	case CompressionZstd:
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, err
		}
		rc := dec.IOReadCloser()
		r.closers = append(r.closers, rc)
		body = rc
	}

	cr := csv.NewReader(body)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	r.csv = cr
	return r, nil
}

// Compression возвращает обнаруженный формат сжатия
func (r *Reader) Compression() Compression {
	return r.compression
}

// Next возвращает следующую запись или io.EOF
func (r *Reader) Next() (Record, error) {
	rec, err := r.csv.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения CSV после записи %d: %w", r.records, err)
	}
	r.records++
	return Record(rec), nil
}

// Close закрывает распаковщик и файл в обратном порядке открытия
func (r *Reader) Close() error {
	var firstErr error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.closers = nil
	return firstErr
}
