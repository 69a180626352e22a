// FILE: lixenwraith/logroll/storage.go
package logroll

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// generationPath returns <dir>/<name>_<NNN><ext>
func generationPath(dir, name, ext string, n int) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%0*d%s", name, generationDigits, n, ext))
}

// parseGeneration extracts NNN from a generation file name, or returns 0
func parseGeneration(fileName, name, ext string) int {
	prefix := name + "_"
	if !strings.HasPrefix(fileName, prefix) || !strings.HasSuffix(fileName, ext) {
		return 0
	}
	digits := strings.TrimSuffix(strings.TrimPrefix(fileName, prefix), ext)
	if len(digits) != generationDigits {
		return 0
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

// listGenerations returns existing generation numbers in dir, highest first
func listGenerations(dir, name, ext string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmtErrorf("failed to read roll directory '%s': %w", dir, err)
	}

	var gens []int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if n := parseGeneration(entry.Name(), name, ext); n > 0 {
			gens = append(gens, n)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(gens)))
	return gens, nil
}

// archiveTimestamp picks the time embedded in an archive name.
// The rolled file's own modification time is preferred; a zero or implausibly old time
// falls back to now.
func archiveTimestamp(modTime, now time.Time) time.Time {
	if modTime.IsZero() || now.Sub(modTime) > implausibleAge {
		return now
	}
	return modTime
}

// archivePath returns <dir>/<name>_<timestamp><ext><codec suffix>
func archivePath(dir, name, ext, layout string, codec Codec, ts time.Time) string {
	return filepath.Join(dir, name+"_"+ts.Format(layout)+ext+codec.Suffix())
}

// uniqueArchivePath returns an archive destination that does not exist yet.
// On collision the timestamp is recomputed from now plus one millisecond per attempt.
func uniqueArchivePath(dir, name, ext, layout string, codec Codec, modTime time.Time) (string, error) {
	now := time.Now()
	ts := archiveTimestamp(modTime, now)
	for attempt := 1; attempt <= maxNameAttempts; attempt++ {
		dst := archivePath(dir, name, ext, layout, codec, ts)
		if _, err := os.Lstat(dst); os.IsNotExist(err) {
			return dst, nil
		}
		ts = now.Add(time.Duration(attempt) * time.Millisecond)
	}
	return "", fmtErrorf("no free archive name for '%s%s' in '%s' after %d attempts", name, ext, dir, maxNameAttempts)
}

// validTimestampLayout reports whether layout renders a file-name safe time that parses back
func validTimestampLayout(layout string) bool {
	if strings.TrimSpace(layout) == "" || strings.ContainsAny(layout, `/\`) {
		return false
	}
	ref := time.Date(2024, 11, 22, 13, 14, 15, 123000000, time.UTC)
	rendered := ref.Format(layout)
	if rendered == layout {
		// No layout element was recognized
		return false
	}
	_, err := time.Parse(layout, rendered)
	return err == nil
}

// ensureDir creates dir if missing, or verifies it exists when create is false
func ensureDir(dir string, create bool) error {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return fmtErrorf("'%s' exists but is not a directory", dir)
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return fmtErrorf("failed to stat directory '%s': %w", dir, err)
	}
	if !create {
		return fmtErrorf("directory '%s' does not exist", dir)
	}
	if err := os.MkdirAll(dir, defaultDirMode); err != nil {
		return fmtErrorf("failed to create directory '%s': %w", dir, err)
	}
	return nil
}

// getDiskFreeSpace retrieves available disk space for the given path
func getDiskFreeSpace(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmtErrorf("path '%s' does not exist for disk check: %w", path, err)
		}
		return 0, fmtErrorf("failed to stat '%s': %w", path, err)
	}
	if !info.IsDir() {
		path = filepath.Dir(path)
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, fmtErrorf("failed to get disk stats for '%s': %w", path, err)
	}
	return int64(stat.Bavail) * int64(stat.Bsize), nil
}
