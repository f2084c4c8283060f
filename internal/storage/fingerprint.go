package storage

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

// fingerprintHead - сколько байт начала файла входит в отпечаток
const fingerprintHead = 64 << 10

// Fingerprint вычисляет отпечаток датасета по размеру, mtime и началу файла.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("не удалось открыть %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	h := xxhash.New()
	var meta [16]byte
	binary.LittleEndian.PutUint64(meta[:8], uint64(info.Size()))
	binary.LittleEndian.PutUint64(meta[8:], uint64(info.ModTime().UnixNano()))
	h.Write(meta[:])

	if _, err := io.CopyN(h, f, fingerprintHead); err != nil && err != io.EOF {
		return "", fmt.Errorf("ошибка чтения %s: %w", path, err)
	}

	return fmt.Sprintf("%016x", h.Sum64()), nil
}
