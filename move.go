// FILE: lixenwraith/logroll/move.go
package logroll

import (
	"bufio"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/sys/unix"
)

// MoveKind reports how a move was carried out
type MoveKind int

const (
	MoveNone      MoveKind = iota // source did not exist
	MoveRenamed                   // direct rename
	MoveCopied                    // copied to destination, source deleted
	MoveTruncated                 // copied to destination, source truncated in place
)

func (k MoveKind) String() string {
	switch k {
	case MoveRenamed:
		return "renamed"
	case MoveCopied:
		return "copied-and-deleted"
	case MoveTruncated:
		return "truncated"
	default:
		return "none"
	}
}

// Codec selects destination encoding for CompressMove and CopyTruncate
type Codec string

const (
	CodecNone Codec = ""
	CodecGzip Codec = CompressionGzip
	CodecZstd Codec = CompressionZstd
)

// Suffix returns the file suffix appended by the codec
func (c Codec) Suffix() string {
	switch c {
	case CodecGzip:
		return ".gz"
	case CodecZstd:
		return ".zst"
	default:
		return ""
	}
}

// copyBufferSize is the read/write buffer for stream copies
const copyBufferSize = 256 * 1024

// Filesystem hooks, replaced in tests to simulate cross-device and permission failures
var (
	osRename = os.Rename
	osRemove = os.Remove
)

// Move moves src to dst. A direct rename is tried first; when the rename fails because
// the paths are on different devices or the platform refuses the rename with a permission
// class error, the content is stream-copied to dst and src is deleted.
// Any other rename error is returned unchanged.
func Move(src, dst string, preserveTimestamp bool) (MoveKind, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return MoveNone, nil
		}
		return MoveNone, err
	}

	err = renameWithRetry(src, dst)
	if err == nil {
		if preserveTimestamp {
			setModTime(dst, srcInfo.ModTime())
		}
		return MoveRenamed, nil
	}
	if !needsCopy(err) {
		return MoveNone, err
	}

	if err := copyFile(src, dst, CodecNone, srcInfo); err != nil {
		return MoveNone, err
	}
	if err := osRemove(src); err != nil && !os.IsNotExist(err) {
		return MoveCopied, fmtErrorf("copied '%s' but failed to delete source: %w", src, err)
	}
	if preserveTimestamp {
		setModTime(dst, srcInfo.ModTime())
	}
	return MoveCopied, nil
}

// CompressMove writes a compressed copy of src to dst and deletes src.
// Compression always goes through a copy, so the kind on success is MoveCopied.
func CompressMove(src, dst string, codec Codec, preserveTimestamp bool) (MoveKind, error) {
	if codec == CodecNone {
		return Move(src, dst, preserveTimestamp)
	}
	srcInfo, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return MoveNone, nil
		}
		return MoveNone, err
	}

	if err := copyFile(src, dst, codec, srcInfo); err != nil {
		return MoveNone, err
	}
	if err := osRemove(src); err != nil && !os.IsNotExist(err) {
		return MoveCopied, fmtErrorf("compressed '%s' but failed to delete source: %w", src, err)
	}
	if preserveTimestamp {
		setModTime(dst, srcInfo.ModTime())
	}
	return MoveCopied, nil
}

// CopyTruncate copies src to dst (optionally compressed) and truncates src to zero length.
// Open append-mode descriptors on src keep working and continue at offset zero.
func CopyTruncate(src, dst string, codec Codec, preserveTimestamp bool) (MoveKind, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return MoveNone, nil
		}
		return MoveNone, err
	}

	if err := copyFile(src, dst, codec, srcInfo); err != nil {
		return MoveNone, err
	}
	if err := os.Truncate(src, 0); err != nil {
		return MoveNone, fmtErrorf("copied '%s' but failed to truncate source: %w", src, err)
	}
	if preserveTimestamp {
		setModTime(dst, srcInfo.ModTime())
	}
	return MoveTruncated, nil
}

// renameWithRetry retries a rename a bounded number of times on transient errors
func renameWithRetry(src, dst string) error {
	return retry.New(
		retry.Attempts(renameAttempts),
		retry.Delay(renameRetryDelay),
		retry.RetryIf(isTransient),
		retry.LastErrorOnly(true),
	).Do(func() error {
		return osRename(src, dst)
	})
}

// needsCopy reports whether a failed rename should fall back to copy and delete
func needsCopy(err error) bool {
	return errors.Is(err, unix.EXDEV) || errors.Is(err, unix.EPERM) || errors.Is(err, unix.EACCES)
}

// isTransient reports lock contention class errors worth retrying in place
func isTransient(err error) bool {
	return errors.Is(err, unix.EBUSY) || errors.Is(err, unix.ETXTBSY) || errors.Is(err, unix.EAGAIN)
}

// copyFile stream-copies src into a new dst, removing the partial dst on failure
func copyFile(src, dst string, codec Codec, srcInfo os.FileInfo) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmtErrorf("failed to open '%s' for copy: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, srcInfo.Mode().Perm())
	if err != nil {
		return fmtErrorf("failed to create '%s': %w", dst, err)
	}
	defer func() {
		if closeErr := out.Close(); err == nil && closeErr != nil {
			err = fmtErrorf("failed to close '%s': %w", dst, closeErr)
		}
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	bw := bufio.NewWriterSize(out, copyBufferSize)
	w, err := newCodecWriter(bw, codec, filepath.Base(src), srcInfo.ModTime())
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, in); err != nil {
		_ = w.Close()
		return fmtErrorf("failed to copy '%s' to '%s': %w", src, dst, err)
	}
	if err := w.Close(); err != nil {
		return fmtErrorf("failed to finish '%s': %w", dst, err)
	}
	if err := bw.Flush(); err != nil {
		return fmtErrorf("failed to flush '%s': %w", dst, err)
	}
	return out.Sync()
}

// nopWriteCloser gives a plain writer the codec writer shape
type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func newCodecWriter(w io.Writer, codec Codec, name string, modTime time.Time) (io.WriteCloser, error) {
	switch codec {
	case CodecGzip:
		gz := gzip.NewWriter(w)
		gz.Name = name
		gz.ModTime = modTime
		return gz, nil
	case CodecZstd:
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return nil, fmtErrorf("failed to init zstd writer: %w", err)
		}
		return enc, nil
	default:
		return nopWriteCloser{w}, nil
	}
}

// setModTime applies modTime truncated to whole seconds; failures are ignored
func setModTime(path string, modTime time.Time) {
	mt := modTime.Truncate(time.Second)
	_ = os.Chtimes(path, time.Now(), mt)
}
