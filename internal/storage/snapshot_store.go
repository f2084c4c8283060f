package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/annel0/place-snapshot/internal/canvas"
	"github.com/annel0/place-snapshot/internal/palette"
	"github.com/dgraph-io/badger/v3"
	"github.com/klauspost/compress/zstd"
)

// ErrSnapshotNotFound - для ключа нет сохранённого снапшота
var ErrSnapshotNotFound = errors.New("снапшот не найден")

const keyPrefix = "snapshot:"

// SnapshotKey идентифицирует снапшот: отпечаток датасета + отсечка
type SnapshotKey struct {
	Fingerprint string
	Cutoff      string
}

func (k SnapshotKey) part(name string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s:%s", keyPrefix, k.Fingerprint, k.Cutoff, name))
}

// SnapshotMeta - сведения о прогоне, породившем снапшот
type SnapshotMeta struct {
	RunID       string    `json:"run_id"`
	Dataset     string    `json:"dataset"`
	Fingerprint string    `json:"fingerprint"`
	Cutoff      string    `json:"cutoff"`
	Total       uint64    `json:"total"`
	Processed   uint64    `json:"processed"`
	Rectangles  uint64    `json:"rectangles"`
	CellUpdates uint64    `json:"cell_updates"`
	Stale       uint64    `json:"stale"`
	Untouched   int       `json:"untouched"`
	CreatedAt   time.Time `json:"created_at"`
}

// SnapshotStore хранит полные итоговые холсты в BadgerDB.
// Массивы холста сжимаются zstd и пишутся отдельными ключами;
// meta пишется последней и служит признаком полной записи.
type SnapshotStore struct {
	db      *badger.DB
	dbPath  string
	enc     *zstd.Encoder
	dec     *zstd.Decoder
	mutex   sync.RWMutex
	isReady bool
}

// NewSnapshotStore открывает (или создаёт) хранилище в dataPath/snapshots
func NewSnapshotStore(dataPath string) (*SnapshotStore, error) {
	dbPath := filepath.Join(dataPath, "snapshots")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, fmt.Errorf("не удалось создать zstd decoder: %w", err)
	}

	return &SnapshotStore{
		db:      db,
		dbPath:  dbPath,
		enc:     enc,
		dec:     dec,
		isReady: true,
	}, nil
}

// Close закрывает хранилище
func (s *SnapshotStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.isReady {
		return nil
	}

	s.isReady = false
	s.enc.Close()
	s.dec.Close()
	return s.db.Close()
}

// Save сохраняет холст под ключом key
func (s *SnapshotStore) Save(key SnapshotKey, c *canvas.Canvas, meta SnapshotMeta) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return fmt.Errorf("хранилище не готово")
	}

	meta.Fingerprint = key.Fingerprint
	meta.Cutoff = key.Cutoff
	metaData, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("ошибка сериализации meta: %w", err)
	}

	parts := []struct {
		name string
		data []byte
	}{
		{"colors", s.enc.EncodeAll(encodeColors(c.Colors()), nil)},
		{"times", s.enc.EncodeAll(encodeTimes(c.Times()), nil)},
		{"touched", s.enc.EncodeAll(encodeTouched(c.TouchedMask()), nil)},
		{"meta", metaData},
	}

	// Отдельная транзакция на каждую часть: массивы большие
	for _, p := range parts {
		err := s.db.Update(func(txn *badger.Txn) error {
			return txn.Set(key.part(p.name), p.data)
		})
		if err != nil {
			return fmt.Errorf("ошибка сохранения %s в BadgerDB: %w", p.name, err)
		}
	}

	return nil
}

// Load восстанавливает холст и meta по ключу
func (s *SnapshotStore) Load(key SnapshotKey) (*canvas.Canvas, *SnapshotMeta, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return nil, nil, fmt.Errorf("хранилище не готово")
	}

	var meta SnapshotMeta
	var colors, times, touched []byte

	err := s.db.View(func(txn *badger.Txn) error {
		metaData, err := s.get(txn, key.part("meta"))
		if err != nil {
			return err
		}
		if err := json.Unmarshal(metaData, &meta); err != nil {
			return fmt.Errorf("ошибка десериализации meta: %w", err)
		}

		if colors, err = s.getCompressed(txn, key.part("colors")); err != nil {
			return err
		}
		if times, err = s.getCompressed(txn, key.part("times")); err != nil {
			return err
		}
		touched, err = s.getCompressed(txn, key.part("touched"))
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка чтения снапшота из BadgerDB: %w", err)
	}

	colorIdx, err := decodeColors(colors)
	if err != nil {
		return nil, nil, err
	}
	timeVals, err := decodeTimes(times)
	if err != nil {
		return nil, nil, err
	}

	c, err := canvas.Restore(colorIdx, timeVals, decodeTouched(touched, canvas.Size))
	if err != nil {
		return nil, nil, fmt.Errorf("снапшот повреждён: %w", err)
	}
	return c, &meta, nil
}

// List возвращает meta всех полных снапшотов, отсортированные по времени создания
func (s *SnapshotStore) List() ([]SnapshotMeta, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return nil, fmt.Errorf("хранилище не готово")
	}

	var result []SnapshotMeta
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			if !strings.HasSuffix(string(item.Key()), ":meta") {
				continue
			}
			var meta SnapshotMeta
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			})
			if err != nil {
				return fmt.Errorf("ключ %s: %w", item.Key(), err)
			}
			result = append(result, meta)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *SnapshotStore) get(txn *badger.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (s *SnapshotStore) getCompressed(txn *badger.Txn, key []byte) ([]byte, error) {
	data, err := s.get(txn, key)
	if err != nil {
		return nil, err
	}
	out, err := s.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка распаковки %s: %w", key, err)
	}
	return out, nil
}

func encodeColors(colors []palette.Index) []byte {
	out := make([]byte, len(colors))
	for i, c := range colors {
		out[i] = byte(c)
	}
	return out
}

func decodeColors(data []byte) ([]palette.Index, error) {
	if len(data) != canvas.Size {
		return nil, fmt.Errorf("снапшот повреждён: %d байт цветов", len(data))
	}
	out := make([]palette.Index, len(data))
	for i, b := range data {
		out[i] = palette.Index(b)
	}
	return out, nil
}

func encodeTimes(times []int64) []byte {
	out := make([]byte, len(times)*8)
	for i, t := range times {
		binary.LittleEndian.PutUint64(out[i*8:], uint64(t))
	}
	return out
}

func decodeTimes(data []byte) ([]int64, error) {
	if len(data) != canvas.Size*8 {
		return nil, fmt.Errorf("снапшот повреждён: %d байт времён", len(data))
	}
	out := make([]int64, canvas.Size)
	for i := range out {
		out[i] = int64(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return out, nil
}

// encodeTouched упаковывает флаги в битовую маску
func encodeTouched(touched []bool) []byte {
	out := make([]byte, (len(touched)+7)/8)
	for i, t := range touched {
		if t {
			out[i/8] |= 1 << (i % 8)
		}
	}
	return out
}

func decodeTouched(data []byte, n int) []bool {
	out := make([]bool, n)
	for i := range out {
		if i/8 < len(data) && data[i/8]&(1<<(i%8)) != 0 {
			out[i] = true
		}
	}
	return out
}
