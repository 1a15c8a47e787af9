// Package labels loads the class-index → label table used to name predictions.
package labels

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrEmpty is returned when a label source contains no lines.
var ErrEmpty = errors.New("labels: no labels found")

// Table maps class indices to labels. It is immutable once loaded.
type Table struct {
	labels []string
}

// Load reads a label file with one label per line.
// The 0-based line number is the class index.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open label file: %w", err)
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Read parses labels from r. Each line is trimmed of surrounding whitespace.
// Blank lines are kept so indices stay aligned with line numbers.
func Read(r io.Reader) (*Table, error) {
	var labels []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		labels = append(labels, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	if len(labels) == 0 {
		return nil, ErrEmpty
	}
	return &Table{labels: labels}, nil
}

// New builds a table from an in-memory list. The slice is copied.
func New(labels []string) (*Table, error) {
	if len(labels) == 0 {
		return nil, ErrEmpty
	}
	cp := make([]string, len(labels))
	for i, l := range labels {
		cp[i] = strings.TrimSpace(l)
	}
	return &Table{labels: cp}, nil
}

// Len returns the number of classes.
func (t *Table) Len() int {
	return len(t.labels)
}

// Label returns the label for a class index.
// Out-of-range indices get a synthetic "class N" name.
func (t *Table) Label(i int) string {
	if i < 0 || i >= len(t.labels) {
		return fmt.Sprintf("class %d", i)
	}
	return t.labels[i]
}

// All returns a copy of the labels in index order.
func (t *Table) All() []string {
	return append([]string(nil), t.labels...)
}
