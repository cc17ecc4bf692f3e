package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomicCreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "index.html")
	require.NoError(t, WriteFileAtomic(path, []byte("one")))
	require.NoError(t, WriteFileAtomic(path, []byte("two")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestLinkOrCopy(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "archive", "weekly-2025-W10.html")
	require.NoError(t, WriteFileAtomic(target, []byte("week 10")))
	link := filepath.Join(dir, "current_weekly_summary.html")

	_, err := LinkOrCopy(target, link)
	require.NoError(t, err)
	data, err := os.ReadFile(link)
	require.NoError(t, err)
	assert.Equal(t, "week 10", string(data))

	// 再次生成时替换旧链接
	target2 := filepath.Join(dir, "archive", "weekly-2025-W11.html")
	require.NoError(t, WriteFileAtomic(target2, []byte("week 11")))
	_, err = LinkOrCopy(target2, link)
	require.NoError(t, err)
	data, err = os.ReadFile(link)
	require.NoError(t, err)
	assert.Equal(t, "week 11", string(data))
}
