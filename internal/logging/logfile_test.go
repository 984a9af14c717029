package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileWriterAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	w, err := NewFileWriter(path, 1024, 2)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Write([]byte("one\n"))
	require.NoError(t, err)
	_, err = w.Write([]byte("two\n"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(data))
}

func TestFileWriterRotatesAtCap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	w, err := NewFileWriter(path, 10, 3)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Write([]byte("aaaaaaaa\n")) // 9 bytes
	require.NoError(t, err)
	_, err = w.Write([]byte("bbbb\n")) // pushes past the cap
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "bbbb\n", string(data))

	backups, err := filepath.Glob(path + ".*")
	require.NoError(t, err)
	require.Len(t, backups, 1)
	old, err := os.ReadFile(backups[0])
	require.NoError(t, err)
	assert.Equal(t, "aaaaaaaa\n", string(old))
}

func TestFileWriterPrunesOldBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	w, err := NewFileWriter(path, 4, 1)
	require.NoError(t, err)
	defer w.Close()

	for _, line := range []string{"111\n", "222\n", "333\n", "444\n"} {
		_, err := w.Write([]byte(line))
		require.NoError(t, err)
	}

	backups, err := filepath.Glob(path + ".*")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(backups), 1)
}

func TestFileWriterOversizedLineStillWritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	w, err := NewFileWriter(path, 8, 2)
	require.NoError(t, err)
	defer w.Close()

	long := strings.Repeat("x", 20) + "\n"
	_, err = w.Write([]byte(long))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, long, string(data))
}

func TestFileWriterRejectsClosed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	w, err := NewFileWriter(path, 1024, 0)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = w.Write([]byte("late\n"))
	assert.ErrorIs(t, err, os.ErrClosed)
}
