// FILE: lixenwraith/logroll/stream.go
package logroll

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Stream is an append-mode output stream for one file.
// Writes land in an in-memory buffer that is pushed to the descriptor once it reaches the
// high-water mark, on Flush, or by the pool's periodic flush. While corked nothing reaches
// the descriptor and the buffer keeps growing.
type Stream struct {
	id            string
	path          string
	highWaterMark int

	mu     sync.Mutex
	file   *os.File
	buf    []byte
	corked bool
	ended  bool

	initialSize  int64        // file size when the stream was opened
	bytesFlushed atomic.Int64 // bytes handed to the descriptor
	bytesPending atomic.Int64 // bytes accepted but not yet flushed
}

// openStream ensures the file exists and opens it for appending
func openStream(path string, highWaterMark int, mode os.FileMode) (*Stream, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, mode)
	if err != nil {
		return nil, fmtErrorf("failed to open/create log file '%s': %w", path, err)
	}
	if highWaterMark <= 0 {
		highWaterMark = defaultHighWaterMark
	}
	s := &Stream{
		id:            uuid.NewString(),
		path:          path,
		highWaterMark: highWaterMark,
		file:          file,
		buf:           make([]byte, 0, highWaterMark),
	}
	if fi, errStat := file.Stat(); errStat == nil {
		s.initialSize = fi.Size()
	}
	return s, nil
}

// ID returns the unique identifier of this stream
func (s *Stream) ID() string {
	return s.id
}

// Path returns the file path the stream appends to
func (s *Stream) Path() string {
	return s.path
}

// Write buffers text. ok is false when the buffer sits above the high-water mark after
// the write, which callers should treat as a request to slow down.
func (s *Stream) Write(text string) (ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return false, ErrClosed
	}
	s.buf = append(s.buf, text...)
	s.bytesPending.Store(int64(len(s.buf)))

	if !s.corked && len(s.buf) >= s.highWaterMark {
		if err := s.flushLocked(); err != nil {
			return false, err
		}
	}
	return len(s.buf) < s.highWaterMark, nil
}

// Flush pushes buffered bytes to the descriptor unless corked
func (s *Stream) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended || s.corked {
		return nil
	}
	return s.flushLocked()
}

// Sync flushes and commits the file to stable storage
func (s *Stream) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return nil
	}
	if !s.corked {
		if err := s.flushLocked(); err != nil {
			return err
		}
	}
	return s.file.Sync()
}

// Cork stops bytes from reaching the descriptor until Uncork
func (s *Stream) Cork() {
	s.mu.Lock()
	s.corked = true
	s.mu.Unlock()
}

// Uncork resumes delivery and flushes what accumulated while corked
func (s *Stream) Uncork() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.corked = false
	if s.ended {
		return nil
	}
	return s.flushLocked()
}

// End flushes remaining bytes, even if corked, and closes the descriptor.
// Safe to call more than once.
func (s *Stream) End() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return nil
	}
	s.ended = true
	s.corked = false

	err := s.flushLocked()
	if closeErr := s.file.Close(); closeErr != nil {
		err = combineErrors(err, fmtErrorf("failed to close log file '%s': %w", s.path, closeErr))
	}
	return err
}

// Ended reports whether End was called
func (s *Stream) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// InitialSize is the size of the file when the stream opened it
func (s *Stream) InitialSize() int64 {
	return s.initialSize
}

// BytesFlushed is the number of bytes this stream handed to the descriptor
func (s *Stream) BytesFlushed() int64 {
	return s.bytesFlushed.Load()
}

// BytesBuffered is the number of accepted bytes not yet handed to the descriptor
func (s *Stream) BytesBuffered() int64 {
	return s.bytesPending.Load()
}

// EstimatedSize approximates the file size without a stat call
func (s *Stream) EstimatedSize() int64 {
	return s.initialSize + s.BytesFlushed() + s.BytesBuffered()
}

// flushLocked writes the buffer out, assuming mu is held
func (s *Stream) flushLocked() error {
	if len(s.buf) == 0 {
		return nil
	}
	n, err := s.file.Write(s.buf)
	s.bytesFlushed.Add(int64(n))
	if err != nil {
		// Keep the unwritten tail so a later flush can retry it
		s.buf = s.buf[:copy(s.buf, s.buf[n:])]
		s.bytesPending.Store(int64(len(s.buf)))
		return fmtErrorf("failed to write to log file '%s': %w", s.path, err)
	}
	s.buf = s.buf[:0]
	s.bytesPending.Store(0)
	return nil
}
