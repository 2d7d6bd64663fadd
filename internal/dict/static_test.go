package dict

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	list, err := Load(strings.NewReader("# comment\n\n가족\t부부 중심의 집단\n  기자  \n\t\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, list.Len())

	got, err := list.Lookup(context.Background(), "가족")
	require.NoError(t, err)
	assert.True(t, got.Exists)
	assert.Equal(t, "부부 중심의 집단", got.Definition)

	got, _ = list.Lookup(context.Background(), "기자")
	assert.True(t, got.Exists)
	assert.Empty(t, got.Definition)

	got, _ = list.Lookup(context.Background(), "사과")
	assert.False(t, got.Exists)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	require.NoError(t, os.WriteFile(path, []byte("가족\n"), 0o644))

	list, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, list.Len())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
