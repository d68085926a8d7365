package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"call-insights-go/internal/logger"
	"call-insights-go/internal/types"
)

// StorageError wraps any filesystem failure of the record store.
type StorageError struct {
	Path string
	Op   string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("record store %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// CSVSink appends call records to a comma-separated file, one row per analysis.
// Appends are serialised; rows are never rewritten or removed.
type CSVSink struct {
	path string
	mu   sync.Mutex
	log  *logger.Logger
}

func NewCSVSink(path string, log *logger.Logger) *CSVSink {
	return &CSVSink{path: path, log: log.Component("store.csv")}
}

func (s *CSVSink) Path() string { return s.path }

// Append writes one row, writing the header first when the file is new or empty.
func (s *CSVSink) Append(rec types.CallRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &StorageError{Path: s.path, Op: "mkdir", Err: err}
		}
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return &StorageError{Path: s.path, Op: "open", Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return &StorageError{Path: s.path, Op: "stat", Err: err}
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(types.Columns); err != nil {
			return &StorageError{Path: s.path, Op: "write header", Err: err}
		}
	}
	if err := w.Write(rec.Row()); err != nil {
		return &StorageError{Path: s.path, Op: "write row", Err: err}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return &StorageError{Path: s.path, Op: "flush", Err: err}
	}
	if err := f.Sync(); err != nil {
		return &StorageError{Path: s.path, Op: "sync", Err: err}
	}

	s.log.WithField("path", s.path).WithField("sentiment", rec.Sentiment).Info("call record appended")
	return nil
}

// ReadAll returns every stored record in arrival order. A missing file is an empty store.
func (s *CSVSink) ReadAll() ([]types.CallRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &StorageError{Path: s.path, Op: "open", Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(types.Columns)

	var out []types.CallRecord
	header := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return out, &StorageError{Path: s.path, Op: "read", Err: err}
		}
		if header {
			header = false
			continue
		}
		out = append(out, types.CallRecord{
			Transcript: row[0],
			Summary:    row[1],
			Sentiment:  types.Sentiment(row[2]),
			Entities: types.Entities{
				CustomerName: types.Ptr(row[3]),
				OrderID:      types.Ptr(row[4]),
				Product:      types.Ptr(row[5]),
			},
		})
	}
	return out, nil
}
