package locationlog

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jengzang/location-replay-go/internal/models"
)

// Writer appends records to a location log. The header comment is written
// on creation; rows are buffered until Flush or Close.
type Writer struct {
	mu     sync.Mutex
	schema *Schema
	buf    *bufio.Writer
	file   io.Closer
	rows   uint64
	closed bool
}

// NewWriter writes the schema header to w and returns a writer for rows
func NewWriter(w io.Writer, schema *Schema) (*Writer, error) {
	if schema == nil {
		return nil, fmt.Errorf("%w: writer needs a schema", models.ErrConfiguration)
	}

	lw := &Writer{
		schema: schema,
		buf:    bufio.NewWriter(w),
	}
	if c, ok := w.(io.Closer); ok {
		lw.file = c
	}

	if _, err := lw.buf.WriteString(schema.Header() + "\n"); err != nil {
		return nil, fmt.Errorf("failed to write log header: %w", err)
	}
	return lw, nil
}

// CreateLogFile starts a new log named after now in dir
func CreateLogFile(dir string, schema *Schema, now time.Time) (*Writer, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, "", fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, "location-log-"+now.Format("20060102-150405")+".txt")
	f, err := os.Create(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create log file %s: %w", path, err)
	}

	w, err := NewWriter(f, schema)
	if err != nil {
		f.Close()
		return nil, "", err
	}

	log.Printf("Starting new location log: %s", path)
	return w, path, nil
}

// Write appends one row
func (w *Writer) Write(rec Record) error {
	line, err := FormatRecord(w.schema, rec)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("location log writer: %w", models.ErrUseAfterRelease)
	}
	if _, err := w.buf.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("failed to write log row: %w", err)
	}
	w.rows++
	return nil
}

func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	return w.buf.Flush()
}

// Close flushes pending rows and closes the underlying file, if any.
// Closing twice is a no-op.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	err := w.buf.Flush()
	if w.file != nil {
		if cerr := w.file.Close(); err == nil {
			err = cerr
		}
	}
	log.Printf("%d locations logged", w.rows)
	return err
}

// Rows returns the number of data rows written (excludes header)
func (w *Writer) Rows() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows
}

// FormatRecord renders rec as one data row of schema
func FormatRecord(schema *Schema, rec Record) (string, error) {
	if schema == nil {
		return "", fmt.Errorf("%w: nil schema", models.ErrConfiguration)
	}

	tokens := make([]string, len(schema.columns))
	for i, col := range schema.columns {
		var v models.Value
		if col.Role == RoleState {
			sv, ok := rec.State.Value(col.Name)
			if !ok {
				return "", fmt.Errorf("state has no value for column %q", col.Name)
			}
			v = sv
		} else {
			v = valueOf(rec.Location, col.Role)
		}
		tokens[i] = formatValue(schema, col, v)
	}
	return strings.Join(tokens, schema.delimiter), nil
}

func formatValue(schema *Schema, col Column, v models.Value) string {
	if !v.Valid {
		return Unsupported
	}

	switch v.Kind {
	case models.KindFloat:
		return ftoa(v.Float, col.Precision)
	case models.KindBool:
		return btoa(v.Bool)
	case models.KindInt:
		return strconv.FormatInt(v.Int, 10)
	case models.KindTimestamp:
		return v.Time.UTC().Format(TimestampLayout)
	default:
		return sanitize(v.Str, schema.delimiter)
	}
}

func ftoa(v float64, prec int) string {
	if prec <= 0 {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func btoa(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// sanitize keeps free text from breaking the row layout
func sanitize(s, delimiter string) string {
	return strings.NewReplacer(delimiter, " ", "\n", " ", "\r", " ").Replace(s)
}
