package locationlog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBundledSampleLogs(t *testing.T) {
	tests := []struct {
		file   string
		schema *Schema
		rows   int
	}{
		{file: "resting-walk.txt", schema: Minimal, rows: 6},
		{file: "extended-commute.txt", schema: Extended, rows: 4},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			contents, err := os.ReadFile(filepath.Join("..", "..", "testdata", tt.file))
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			r, err := Open(contents, SchemaAuto)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			if r.Schema() != tt.schema {
				t.Fatalf("expected schema %s, got %s", tt.schema.Name(), r.Schema().Name())
			}

			rows := 0
			for _, err := range r.All() {
				if err != nil {
					t.Fatalf("row %d: %v", rows+1, err)
				}
				if r.Cycles() > 0 {
					break
				}
				rows++
			}
			if rows != tt.rows {
				t.Fatalf("expected %d rows, got %d", tt.rows, rows)
			}
		})
	}
}
