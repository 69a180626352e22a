// FILE: lixenwraith/logroll/pool_test.go
package logroll

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// eventLog collects events from a pool callback or a registry channel
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) add(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) count(code EventCode) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, ev := range l.events {
		if ev.Code == code {
			n++
		}
	}
	return n
}

func (l *eventLog) find(code EventCode) (Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ev := range l.events {
		if ev.Code == code {
			return ev, true
		}
	}
	return Event{}, false
}

func (l *eventLog) waitFor(t *testing.T, code EventCode, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return l.count(code) >= n }, 5*time.Second, 10*time.Millisecond,
		"expected %d %s events", n, code)
}

func newTestPool(t *testing.T, opts ...PoolOption) (*StreamPool, *eventLog) {
	t.Helper()
	events := &eventLog{}
	p := NewStreamPool(events.add, opts...)
	t.Cleanup(func() { _ = p.Close() })
	return p, events
}

func TestPoolGetOrCreateDedup(t *testing.T) {
	p, events := newTestPool(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	s1, err := p.GetOrCreate(path)
	require.NoError(t, err)
	assert.FileExists(t, path)

	// Case and surrounding whitespace map to the same stream
	s2, err := p.GetOrCreate("  " + filepath.Join(dir, "APP.LOG") + " ")
	require.NoError(t, err)
	assert.Same(t, s1, s2)
	assert.Same(t, s1, p.Current(path))
	assert.Equal(t, 1, events.count(EventStreamCreated))

	other, err := p.GetOrCreate(filepath.Join(dir, "other.log"))
	require.NoError(t, err)
	assert.NotEqual(t, s1.ID(), other.ID())

	_, err = p.GetOrCreate("")
	assert.ErrorIs(t, err, ErrNoPath)
	assert.Nil(t, p.Current(""))
}

func TestPoolReplace(t *testing.T) {
	p, events := newTestPool(t)
	path := filepath.Join(t.TempDir(), "app.log")

	old, err := p.GetOrCreate(path)
	require.NoError(t, err)
	_, err = old.Write("buffered\n")
	require.NoError(t, err)

	fresh, err := p.Replace(path)
	require.NoError(t, err)
	assert.NotEqual(t, old.ID(), fresh.ID())
	assert.True(t, old.Ended())
	assert.Same(t, fresh, p.Current(path))
	assert.Equal(t, 1, events.count(EventStreamReplaced))

	// The discarded stream flushed what it held
	assert.Equal(t, "buffered\n", readFile(t, path))
}

func TestPoolWriteDetach(t *testing.T) {
	p, _ := newTestPool(t)
	path := filepath.Join(t.TempDir(), "app.log")

	ok, err := p.Write(path, "one\n")
	require.NoError(t, err)
	assert.True(t, ok)

	s := p.Current(path)
	require.NotNil(t, s)

	require.NoError(t, p.Detach(path))
	assert.True(t, s.Ended())
	assert.Nil(t, p.Current(path))
	assert.Equal(t, "one\n", readFile(t, path))

	// Detaching an unknown path is a no-op
	assert.NoError(t, p.Detach(filepath.Join(t.TempDir(), "unknown.log")))

	// A later write opens a new stream
	_, err = p.Write(path, "two\n")
	require.NoError(t, err)
	require.NotNil(t, p.Current(path))
	assert.NotEqual(t, s.ID(), p.Current(path).ID())
}

func TestPoolPeriodicFlush(t *testing.T) {
	p, _ := newTestPool(t, WithFlushInterval(10*time.Millisecond))
	path := filepath.Join(t.TempDir(), "app.log")

	_, err := p.Write(path, "eventually\n")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(path)
		return err == nil && string(data) == "eventually\n"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPoolWatcherReplacesVanishedFile(t *testing.T) {
	p, events := newTestPool(t)
	if p.watcher == nil {
		t.Skip("filesystem watcher unavailable")
	}
	path := filepath.Join(t.TempDir(), "app.log")

	old, err := p.GetOrCreate(path)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	events.waitFor(t, EventFileVanished, 1)
	require.Eventually(t, func() bool {
		s := p.Current(path)
		return s != nil && s.ID() != old.ID()
	}, 5*time.Second, 10*time.Millisecond)
	assert.FileExists(t, path)
	assert.True(t, old.Ended())

	ok, err := p.Write(path, "healed\n")
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, p.Current(path).Sync())
	assert.Equal(t, "healed\n", readFile(t, path))
}

func TestPoolOwnerNotified(t *testing.T) {
	p, events := newTestPool(t)
	if p.watcher == nil {
		t.Skip("filesystem watcher unavailable")
	}
	path := filepath.Join(t.TempDir(), "app.log")

	notified := make(chan struct{}, 1)
	require.NoError(t, p.setOwner(path, func() {
		select {
		case notified <- struct{}{}:
		default:
		}
	}))

	s, err := p.GetOrCreate(path)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	select {
	case <-notified:
	case <-time.After(5 * time.Second):
		t.Fatal("owner was not notified")
	}

	// The owner decides; the pool leaves the stream alone
	assert.Same(t, s, p.Current(path))
	assert.Equal(t, 0, events.count(EventFileVanished))
}

func TestPoolWriteAcrossReplace(t *testing.T) {
	p, _ := newTestPool(t)
	path := filepath.Join(t.TempDir(), "app.log")
	_, err := p.GetOrCreate(path)
	require.NoError(t, err)

	stop := make(chan struct{})
	replaced := make(chan struct{})
	go func() {
		defer close(replaced)
		for {
			select {
			case <-stop:
				return
			default:
			}
			_, _ = p.Replace(path)
			time.Sleep(time.Millisecond)
		}
	}()

	var want strings.Builder
	for i := 0; i < 500; i++ {
		line := fmt.Sprintf("line %d\n", i)
		_, err := p.Write(path, line)
		require.NoError(t, err, "write %d", i)
		want.WriteString(line)
	}
	close(stop)
	<-replaced

	require.NoError(t, p.Current(path).Sync())
	assert.Equal(t, want.String(), readFile(t, path))
}

func TestPoolClose(t *testing.T) {
	p := NewStreamPool(nil)
	path := filepath.Join(t.TempDir(), "app.log")

	s, err := p.GetOrCreate(path)
	require.NoError(t, err)

	require.NoError(t, p.Close())
	assert.True(t, s.Ended())
	require.NoError(t, p.Close())

	_, err = p.GetOrCreate(path)
	assert.ErrorIs(t, err, ErrPoolClosed)
	assert.True(t, IsClosed(err))

	_, err = p.Replace(path)
	assert.ErrorIs(t, err, ErrPoolClosed)
}
