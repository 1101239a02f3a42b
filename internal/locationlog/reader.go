package locationlog

import (
	"bytes"
	"fmt"
	"iter"
	"strings"

	"github.com/jengzang/location-replay-go/internal/models"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Reader replays a buffered location log forever. On end of data, or on
// the first blank line, it rewinds to the start of the buffer and keeps
// going. A Reader is owned by a single provider and is not safe for
// concurrent use.
type Reader struct {
	schema *Schema
	data   []byte
	pos    int

	closed bool
	err    error // first fatal error, returned by every later Next

	rows   uint64
	cycles uint64
}

// NewReader buffers contents and replays them under schema. Construction
// fails when the log holds no data row before its end-of-data marker;
// rows that do not fit schema are reported by Next.
func NewReader(contents []byte, schema *Schema) (*Reader, error) {
	if schema == nil {
		return nil, fmt.Errorf("%w: reader needs a schema", models.ErrConfiguration)
	}

	data := bytes.TrimPrefix(contents, utf8BOM)
	if _, ok := firstDataRow(data); !ok {
		return nil, fmt.Errorf("%w: location log has no data rows", models.ErrConfiguration)
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	return &Reader{schema: schema, data: buf}, nil
}

// Open builds a reader for the named schema, or detects it from the width
// of the first data row when name is SchemaAuto or empty.
func Open(contents []byte, name string) (*Reader, error) {
	if name != "" && name != SchemaAuto {
		schema, err := LookupSchema(name)
		if err != nil {
			return nil, err
		}
		return NewReader(contents, schema)
	}

	schema, err := DetectSchema(contents)
	if err != nil {
		return nil, err
	}
	return NewReader(contents, schema)
}

// DetectSchema picks the registered schema matching the first data row
func DetectSchema(contents []byte) (*Schema, error) {
	line, ok := firstDataRow(bytes.TrimPrefix(contents, utf8BOM))
	if !ok {
		return nil, fmt.Errorf("%w: location log has no data rows", models.ErrConfiguration)
	}
	width := strings.Count(line, Delimiter) + 1
	return SchemaForWidth(width)
}

// firstDataRow scans from the start the way Next does, without wrapping
func firstDataRow(data []byte) (string, bool) {
	pos := 0
	for {
		line, next, ok := nextLine(data, pos)
		if !ok || line == "" {
			return "", false
		}
		pos = next
		if !strings.HasPrefix(line, CommentMarker) {
			return line, true
		}
	}
}

// nextLine returns the line starting at pos without its terminator and the
// offset of the following line; ok is false at end of data.
func nextLine(data []byte, pos int) (string, int, bool) {
	if pos >= len(data) {
		return "", pos, false
	}
	rest := data[pos:]
	end := bytes.IndexByte(rest, '\n')
	next := len(data)
	if end >= 0 {
		rest = rest[:end]
		next = pos + end + 1
	}
	return string(bytes.TrimSuffix(rest, []byte{'\r'})), next, true
}

// Next returns the following record, rewinding as needed. A row that does
// not match the schema is fatal: the error is kept and returned by every
// later call. After Close, Next fails with models.ErrUseAfterRelease.
func (r *Reader) Next() (Record, error) {
	if r.closed {
		return Record{}, fmt.Errorf("location log reader: %w", models.ErrUseAfterRelease)
	}
	if r.err != nil {
		return Record{}, r.err
	}

	for {
		line, next, ok := nextLine(r.data, r.pos)
		if !ok || line == "" {
			r.rewind()
			continue
		}
		r.pos = next

		if strings.HasPrefix(line, CommentMarker) {
			continue
		}

		rec, err := ParseRecord(r.schema, line)
		if err != nil {
			r.err = fmt.Errorf("location log reader (row %d): %w", r.rows+1, err)
			return Record{}, r.err
		}
		r.rows++
		return rec, nil
	}
}

func (r *Reader) rewind() {
	r.pos = 0
	r.cycles++
}

// All returns the replay as an endless sequence. Iteration ends after the
// first error, which is yielded with a zero Record.
func (r *Reader) All() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for {
			rec, err := r.Next()
			if !yield(rec, err) || err != nil {
				return
			}
		}
	}
}

// Reset moves the cursor back to the start of the log
func (r *Reader) Reset() {
	r.pos = 0
}

// Close releases the buffer. Closing twice is a no-op.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.data = nil
	return nil
}

func (r *Reader) Schema() *Schema { return r.schema }

// Rows is the number of records returned so far
func (r *Reader) Rows() uint64 { return r.rows }

// Cycles is the number of times the reader wrapped to the start
func (r *Reader) Cycles() uint64 { return r.cycles }
