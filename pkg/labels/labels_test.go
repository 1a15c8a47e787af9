package labels

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_IndexIsLineNumber(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classes.txt")
	require.NoError(t, os.WriteFile(path, []byte("cat\ndog\nbird\n"), 0o644))

	table, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, table.Len())
	assert.Equal(t, "cat", table.Label(0))
	assert.Equal(t, "dog", table.Label(1))
	assert.Equal(t, "bird", table.Label(2))
}

func TestRead_TrimsAndKeepsBlankLines(t *testing.T) {
	table, err := Read(strings.NewReader("  tench \r\n\ngoldfish\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"tench", "", "goldfish"}, table.All())
	assert.Equal(t, "goldfish", table.Label(2))
}

func TestRead_NoTrailingNewline(t *testing.T) {
	table, err := Read(strings.NewReader("a\nb"))
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
}

func TestRead_Empty(t *testing.T) {
	_, err := Read(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLabel_OutOfRange(t *testing.T) {
	table, err := New([]string{"only"})
	require.NoError(t, err)
	assert.Equal(t, "class 5", table.Label(5))
	assert.Equal(t, "class -1", table.Label(-1))
}

func TestNew_CopiesInput(t *testing.T) {
	in := []string{"cat", "dog"}
	table, err := New(in)
	require.NoError(t, err)

	in[0] = "changed"
	assert.Equal(t, "cat", table.Label(0))

	out := table.All()
	out[1] = "changed"
	assert.Equal(t, "dog", table.Label(1))
}
