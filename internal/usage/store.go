package usage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Column names of the cost sheet header, in write order.
const (
	ColumnTimestamp = "timestamp"
	ColumnRU        = "ru"
	ColumnCUH       = "cuh"
)

// TimestampLayout is the layout rows are written with.
const TimestampLayout = "2006-01-02 15:04:05.000000-07:00"

var readLayouts = []string{
	TimestampLayout,
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

var (
	// ErrMalformedRow is returned by ReadAll when a row cannot be decoded.
	ErrMalformedRow = errors.New("malformed usage row")

	// ErrMissingColumn is returned by ReadAll when the header lacks a column.
	ErrMissingColumn = errors.New("usage log header is missing a column")
)

// Reader is anything that can return the full ordered contents of a usage log.
type Reader interface {
	ReadAll() ([]Record, error)
}

// Appender is anything that can durably add one record to a usage log.
type Appender interface {
	Append(r Record) error
}

// Log is the append-only CSV cost sheet.
//
// Appends through the same *Log are serialized. Appends from separate
// processes are not coordinated, so only one process should write a given
// file.
type Log struct {
	path string
	mu   sync.Mutex
}

// OpenLog returns a Log for the CSV file at path. The file is not touched
// until the first Append or ReadAll.
func OpenLog(path string) *Log {
	return &Log{path: path}
}

// Path returns the location of the backing file.
func (l *Log) Path() string {
	return l.path
}

// Append writes r as a single new row, creating the file and its header if
// the file is absent or empty.
func (l *Log) Append(r Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create usage log dir: %w", err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open usage log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat usage log: %w", err)
	}

	// Build the whole payload first so it lands in one write.
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if info.Size() == 0 {
		w.Write([]string{ColumnTimestamp, ColumnRU, ColumnCUH})
	} else {
		// A hand-edited sheet may lack the final newline.
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, info.Size()-1); err != nil {
			return fmt.Errorf("read usage log tail: %w", err)
		}
		if last[0] != '\n' {
			sb.WriteByte('\n')
		}
	}
	w.Write(encodeRecord(r))
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encode usage record: %w", err)
	}

	if _, err := f.WriteString(sb.String()); err != nil {
		return fmt.Errorf("write usage record: %w", err)
	}
	return f.Close()
}

// ReadAll returns every record in file order. A missing or empty file is an
// empty log, not an error.
func (l *Log) ReadAll() ([]Record, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("open usage log: %w", err)
	}
	defer f.Close()

	return decode(f)
}

func encodeRecord(r Record) []string {
	return []string{
		r.Timestamp.UTC().Format(TimestampLayout),
		strconv.FormatFloat(r.ResourceUnits, 'f', -1, 64),
		strconv.FormatFloat(r.ComputeUnitHours, 'f', -1, 64),
	}
}

func decode(src io.Reader) ([]Record, error) {
	cr := csv.NewReader(src)

	header, err := cr.Read()
	if err == io.EOF {
		return []Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read usage log header: %w", err)
	}

	idx := map[string]int{}
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	cols := make([]int, 0, 3)
	for _, name := range []string{ColumnTimestamp, ColumnRU, ColumnCUH} {
		i, ok := idx[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
		cols = append(cols, i)
	}

	records := []Record{}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRow, err)
		}

		line, _ := cr.FieldPos(0)
		r, err := decodeRow(row, cols)
		if err != nil {
			return nil, fmt.Errorf("%w at line %d: %v", ErrMalformedRow, line, err)
		}
		records = append(records, r)
	}
	return records, nil
}

func decodeRow(row []string, cols []int) (Record, error) {
	ts, err := parseTimestamp(row[cols[0]])
	if err != nil {
		return Record{}, err
	}
	ru, err := strconv.ParseFloat(strings.TrimSpace(row[cols[1]]), 64)
	if err != nil {
		return Record{}, fmt.Errorf("ru: %w", err)
	}
	cuh, err := strconv.ParseFloat(strings.TrimSpace(row[cols[2]]), 64)
	if err != nil {
		return Record{}, fmt.Errorf("cuh: %w", err)
	}
	return Record{Timestamp: ts, ResourceUnits: ru, ComputeUnitHours: cuh}, nil
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range readLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("timestamp %q: unrecognised format", s)
}
