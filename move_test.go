// FILE: lixenwraith/logroll/move_test.go
package logroll

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// writeAged creates a file with content and a modification time two hours in the past
func writeAged(t *testing.T, path, content string) time.Time {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	mt := time.Now().Add(-2 * time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(path, mt, mt))
	return mt
}

// stubRename replaces the rename hook for the duration of the test
func stubRename(t *testing.T, fn func(src, dst string) error) {
	t.Helper()
	orig := osRename
	osRename = fn
	t.Cleanup(func() { osRename = orig })
}

func stubRemove(t *testing.T, fn func(path string) error) {
	t.Helper()
	orig := osRemove
	osRemove = fn
	t.Cleanup(func() { osRemove = orig })
}

func linkError(src, dst string, errno error) error {
	return &os.LinkError{Op: "rename", Old: src, New: dst, Err: errno}
}

func TestMove(t *testing.T) {
	t.Run("direct rename preserves timestamp", func(t *testing.T) {
		dir := t.TempDir()
		src, dst := filepath.Join(dir, "a.log"), filepath.Join(dir, "a_001.log")
		mt := writeAged(t, src, "hello\n")

		kind, err := Move(src, dst, true)
		require.NoError(t, err)
		assert.Equal(t, MoveRenamed, kind)
		assert.NoFileExists(t, src)

		data, err := os.ReadFile(dst)
		require.NoError(t, err)
		assert.Equal(t, "hello\n", string(data))

		info, err := os.Stat(dst)
		require.NoError(t, err)
		assert.True(t, info.ModTime().Equal(mt), "got %v want %v", info.ModTime(), mt)
	})

	t.Run("missing source", func(t *testing.T) {
		dir := t.TempDir()
		kind, err := Move(filepath.Join(dir, "gone.log"), filepath.Join(dir, "x.log"), true)
		assert.NoError(t, err)
		assert.Equal(t, MoveNone, kind)
	})

	t.Run("cross device falls back to copy", func(t *testing.T) {
		dir := t.TempDir()
		src, dst := filepath.Join(dir, "a.log"), filepath.Join(dir, "b.log")
		mt := writeAged(t, src, "payload\n")
		stubRename(t, func(s, d string) error { return linkError(s, d, unix.EXDEV) })

		kind, err := Move(src, dst, true)
		require.NoError(t, err)
		assert.Equal(t, MoveCopied, kind)
		assert.NoFileExists(t, src)

		data, err := os.ReadFile(dst)
		require.NoError(t, err)
		assert.Equal(t, "payload\n", string(data))

		info, err := os.Stat(dst)
		require.NoError(t, err)
		assert.True(t, info.ModTime().Equal(mt))
	})

	t.Run("permission error falls back to copy", func(t *testing.T) {
		dir := t.TempDir()
		src, dst := filepath.Join(dir, "a.log"), filepath.Join(dir, "b.log")
		writeAged(t, src, "payload\n")
		stubRename(t, func(s, d string) error { return linkError(s, d, unix.EACCES) })

		kind, err := Move(src, dst, false)
		require.NoError(t, err)
		assert.Equal(t, MoveCopied, kind)
	})

	t.Run("other errors propagate", func(t *testing.T) {
		dir := t.TempDir()
		src, dst := filepath.Join(dir, "a.log"), filepath.Join(dir, "b.log")
		writeAged(t, src, "payload\n")
		stubRename(t, func(s, d string) error { return linkError(s, d, unix.EINVAL) })

		kind, err := Move(src, dst, true)
		require.Error(t, err)
		assert.ErrorIs(t, err, unix.EINVAL)
		assert.Equal(t, MoveNone, kind)
		assert.FileExists(t, src)
		assert.NoFileExists(t, dst)
	})

	t.Run("transient errors are retried", func(t *testing.T) {
		dir := t.TempDir()
		src, dst := filepath.Join(dir, "a.log"), filepath.Join(dir, "b.log")
		writeAged(t, src, "payload\n")

		calls := 0
		stubRename(t, func(s, d string) error {
			calls++
			if calls == 1 {
				return linkError(s, d, unix.EBUSY)
			}
			return os.Rename(s, d)
		})

		kind, err := Move(src, dst, true)
		require.NoError(t, err)
		assert.Equal(t, MoveRenamed, kind)
		assert.Equal(t, 2, calls)
	})

	t.Run("copy succeeds but delete fails", func(t *testing.T) {
		dir := t.TempDir()
		src, dst := filepath.Join(dir, "a.log"), filepath.Join(dir, "b.log")
		writeAged(t, src, "payload\n")
		stubRename(t, func(s, d string) error { return linkError(s, d, unix.EXDEV) })
		stubRemove(t, func(string) error { return unix.EBUSY })

		kind, err := Move(src, dst, true)
		require.Error(t, err)
		assert.Equal(t, MoveCopied, kind)
		assert.FileExists(t, src)
		assert.FileExists(t, dst)
	})
}

func TestCompressMove(t *testing.T) {
	content := "line one\nline two\n"

	t.Run("gzip", func(t *testing.T) {
		dir := t.TempDir()
		src, dst := filepath.Join(dir, "a.log"), filepath.Join(dir, "a.log.gz")
		mt := writeAged(t, src, content)

		kind, err := CompressMove(src, dst, CodecGzip, true)
		require.NoError(t, err)
		assert.Equal(t, MoveCopied, kind)
		assert.NoFileExists(t, src)
		assert.Equal(t, content, readGzip(t, dst))

		info, err := os.Stat(dst)
		require.NoError(t, err)
		assert.True(t, info.ModTime().Equal(mt))
	})

	t.Run("zstd", func(t *testing.T) {
		dir := t.TempDir()
		src, dst := filepath.Join(dir, "a.log"), filepath.Join(dir, "a.log.zst")
		writeAged(t, src, content)

		kind, err := CompressMove(src, dst, CodecZstd, false)
		require.NoError(t, err)
		assert.Equal(t, MoveCopied, kind)
		assert.Equal(t, content, readZstd(t, dst))
	})

	t.Run("no codec is a plain move", func(t *testing.T) {
		dir := t.TempDir()
		src, dst := filepath.Join(dir, "a.log"), filepath.Join(dir, "b.log")
		writeAged(t, src, content)

		kind, err := CompressMove(src, dst, CodecNone, false)
		require.NoError(t, err)
		assert.Equal(t, MoveRenamed, kind)
	})

	t.Run("missing source", func(t *testing.T) {
		dir := t.TempDir()
		kind, err := CompressMove(filepath.Join(dir, "gone.log"), filepath.Join(dir, "gone.log.gz"), CodecGzip, true)
		assert.NoError(t, err)
		assert.Equal(t, MoveNone, kind)
	})
}

func TestCopyTruncate(t *testing.T) {
	dir := t.TempDir()
	src, dst := filepath.Join(dir, "a.log"), filepath.Join(dir, "a_001.log")
	writeAged(t, src, "before\n")

	// An append-mode descriptor held across the truncate keeps working
	f, err := os.OpenFile(src, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	defer f.Close()

	kind, err := CopyTruncate(src, dst, CodecNone, true)
	require.NoError(t, err)
	assert.Equal(t, MoveTruncated, kind)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "before\n", string(data))

	_, err = f.WriteString("after\n")
	require.NoError(t, err)
	data, err = os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, "after\n", string(data))
}

func TestMoveKindString(t *testing.T) {
	assert.Equal(t, "renamed", MoveRenamed.String())
	assert.Equal(t, "copied-and-deleted", MoveCopied.String())
	assert.Equal(t, "truncated", MoveTruncated.String())
	assert.Equal(t, "none", MoveNone.String())
	assert.Equal(t, ".gz", CodecGzip.Suffix())
	assert.Equal(t, ".zst", CodecZstd.Suffix())
	assert.Equal(t, "", CodecNone.Suffix())
}

func readGzip(t *testing.T, path string) string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer zr.Close()
	data, err := io.ReadAll(zr)
	require.NoError(t, err)
	return string(data)
}

func readZstd(t *testing.T, path string) string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	zr, err := zstd.NewReader(f)
	require.NoError(t, err)
	defer zr.Close()
	data, err := io.ReadAll(zr)
	require.NoError(t, err)
	return string(data)
}
