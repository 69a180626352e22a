// FILE: lixenwraith/logroll/roll.go
package logroll

import (
	"os"
	"time"
)

// rollResult is what a roll task reports back to the processor
type rollResult struct {
	stream     *Stream  // stream that was live when the roll started, may be nil
	kind       MoveKind // how the live file left its path
	dst        string
	needStream bool // live path must get a fresh stream
	err        error
}

// rollTask runs the roll steps for the live file. It executes outside the processor,
// which keeps queuing writes until the result arrives. Panics are converted into a
// failed result.
func (e *Engine) rollTask(s *Stream) (res rollResult) {
	res.stream = s
	defer func() {
		if r := recover(); r != nil {
			res.err = fmtErrorf("roll of '%s' panicked: %v", e.path, r)
			res.needStream = false
		}
	}()

	if _, err := os.Stat(e.path); err != nil {
		if !os.IsNotExist(err) {
			res.err = fmtErrorf("failed to stat '%s' before roll: %w", e.path, err)
			return res
		}
		// Nothing to roll; stop feeding a descriptor of a deleted file
		e.abandonStream(s, "live file missing at roll time")
		res.stream = nil
		return res
	}

	if err := e.ensureRollDirs(); err != nil {
		res.err = err
		return res
	}

	if e.cfg.MaxGenerations > 0 {
		if err := e.shiftGenerations(); err != nil {
			res.err = err
			return res
		}
	}

	if s != nil {
		// Bytes accepted before queuing started belong to the rolled file
		if err := s.Flush(); err != nil {
			e.emit(newErrorEvent(EventStreamError, e.path, s, err))
		}
		s.Cork()
	}

	dst, codec, err := e.rollDestination()
	if err != nil {
		res.err = err
		return res
	}
	res.dst = dst

	switch {
	case e.cfg.TruncateMode:
		res.kind, err = CopyTruncate(e.path, dst, codec, true)
	case codec == CodecNone:
		res.kind, err = Move(e.path, dst, true)
	default:
		res.kind, err = CompressMove(e.path, dst, codec, true)
	}

	if err != nil && res.kind == MoveCopied {
		// Content reached dst but the source could not be deleted; empty it in place so
		// no record lives in both files
		if truncErr := os.Truncate(e.path, 0); truncErr == nil {
			e.emit(newErrorEvent(EventMoveFailed, e.path, s, err))
			res.kind, err = MoveTruncated, nil
		}
	}
	if err != nil {
		e.emit(newErrorEvent(EventMoveFailed, e.path, s, err))
		res.err = fmtErrorf("failed to move '%s' to '%s': %w", e.path, dst, err)
		return res
	}

	switch res.kind {
	case MoveRenamed, MoveCopied:
		res.needStream = true
	case MoveNone:
		// Vanished between the stat and the move
		e.abandonStream(s, "live file vanished during roll")
		res.stream = nil
		return res
	}

	e.reportMove(res, codec)
	return res
}

// ensureRollDirs recreates roll and archive directories removed since Open
func (e *Engine) ensureRollDirs() error {
	if e.cfg.MaxGenerations > 0 {
		if err := ensureDir(e.rollDir, e.cfg.CreateDirectories); err != nil {
			return err
		}
	}
	if e.cfg.MaxGenerations == 0 || e.cfg.ArchiveEnabled {
		return ensureDir(e.archDir, e.cfg.CreateDirectories)
	}
	return nil
}

// abandonStream ends the stream of a live file that no longer exists
func (e *Engine) abandonStream(s *Stream, note string) {
	if s == nil {
		return
	}
	if err := e.pool.Detach(e.path); err != nil {
		e.emit(newErrorEvent(EventStreamError, e.path, s, err))
	}
	e.emit(newEvent(EventFileVanished, e.path, s, note))
}

// rollDestination returns where the live file goes: generation _001, or straight into
// the archive when no generation train is kept. Direct archives are named from the
// current time.
func (e *Engine) rollDestination() (string, Codec, error) {
	if e.cfg.MaxGenerations > 0 {
		return generationPath(e.rollDir, e.name, e.ext, 1), CodecNone, nil
	}
	codec := e.cfg.codec()
	dst, err := uniqueArchivePath(e.archDir, e.name, e.ext, e.cfg.ArchiveTimestampFormat, codec, time.Time{})
	return dst, codec, err
}

// shiftGenerations moves every _NNN up by one, highest first. Generations at or above
// the limit fall off the top and are deleted or archived.
func (e *Engine) shiftGenerations() error {
	gens, err := listGenerations(e.rollDir, e.name, e.ext)
	if err != nil {
		return err
	}

	limit := int(e.cfg.MaxGenerations)
	for _, n := range gens {
		src := generationPath(e.rollDir, e.name, e.ext, n)
		if n >= limit {
			if err := e.retireGeneration(src); err != nil {
				return err
			}
			continue
		}
		dst := generationPath(e.rollDir, e.name, e.ext, n+1)
		if _, err := Move(src, dst, true); err != nil {
			e.emit(newErrorEvent(EventMoveFailed, src, nil, err))
			return fmtErrorf("failed to shift generation '%s': %w", src, err)
		}
	}
	return nil
}

// retireGeneration removes a generation from the train, archiving it when enabled
func (e *Engine) retireGeneration(src string) error {
	if !e.cfg.ArchiveEnabled {
		if err := osRemove(src); err != nil && !os.IsNotExist(err) {
			return fmtErrorf("failed to delete generation '%s': %w", src, err)
		}
		e.state.TotalDeletions.Add(1)
		e.emit(newEvent(EventGenerationDeleted, src, nil, "generation fell off the train"))
		return nil
	}

	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmtErrorf("failed to stat generation '%s': %w", src, err)
	}

	codec := e.cfg.codec()
	dst, err := uniqueArchivePath(e.archDir, e.name, e.ext, e.cfg.ArchiveTimestampFormat, codec, info.ModTime())
	if err != nil {
		return err
	}
	if _, err := CompressMove(src, dst, codec, true); err != nil {
		e.emit(newErrorEvent(EventMoveFailed, src, nil, err))
		return fmtErrorf("failed to archive generation '%s': %w", src, err)
	}
	e.state.TotalArchives.Add(1)
	ev := newEvent(EventFileArchived, dst, nil, "generation archived")
	ev.Fields = map[string]any{"source": src}
	e.emit(ev)
	return nil
}

// reportMove emits the event describing where the live file content went
func (e *Engine) reportMove(res rollResult, codec Codec) {
	var ev Event
	switch {
	case res.kind == MoveTruncated:
		ev = newEvent(EventFileTruncated, e.path, res.stream, "live file copied and truncated")
	case codec != CodecNone:
		e.state.TotalArchives.Add(1)
		ev = newEvent(EventFileArchived, e.path, res.stream, "live file archived")
	default:
		ev = newEvent(EventFileRenamed, e.path, res.stream, "live file rolled")
	}
	ev.Fields = map[string]any{"kind": res.kind.String(), "destination": res.dst}
	e.emit(ev)
}
