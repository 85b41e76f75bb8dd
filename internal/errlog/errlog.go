// Package errlog provides a size-rotated error log file that zap tees
// ERROR-level entries into.
//
// Features:
//   - Automatic rotation when the file exceeds the configured size
//   - Rotated logs are gzip-compressed to save disk space
//   - Retains up to MaxBackups compressed archives
//   - Thread-safe: all operations are protected by a mutex
package errlog

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	logFileName = "error.log"

	// DefaultMaxSizeMB is the rotation threshold when none is configured.
	DefaultMaxSizeMB = 100
	// MaxBackups is the number of compressed archives to keep.
	MaxBackups = 5
)

// Writer is a zapcore.WriteSyncer over a rotating file in dir.
type Writer struct {
	mu         sync.Mutex
	file       *os.File
	dir        string
	path       string
	size       int64
	maxRotSize int64
	closed     bool
}

// Open creates dir if needed and opens dir/error.log for appending.
// maxSizeMB <= 0 selects DefaultMaxSizeMB.
func Open(dir string, maxSizeMB int) (*Writer, error) {
	if maxSizeMB <= 0 {
		maxSizeMB = DefaultMaxSizeMB
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create error log directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, logFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open error log file %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat error log file: %w", err)
	}

	return &Writer{
		file:       f,
		dir:        dir,
		path:       path,
		size:       info.Size(),
		maxRotSize: int64(maxSizeMB) << 20,
	}, nil
}

var errClosed = errors.New("errlog: writer closed")

// Write appends p and rotates once the file reaches the size threshold.
// zap hands over one encoded entry per call, so entries never straddle
// two files.
func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.file == nil {
		return 0, errClosed
	}
	n, err := w.file.Write(p)
	w.size += int64(n)
	if err != nil {
		return n, err
	}
	if w.size >= w.maxRotSize {
		w.rotate()
	}
	return n, nil
}

func (w *Writer) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	return w.file.Sync()
}

// Close flushes and closes the file. Further writes fail.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.closed = true
	if w.file == nil {
		return nil
	}
	w.file.Sync()
	err := w.file.Close()
	w.file = nil
	return err
}

// Path is the active log file.
func (w *Writer) Path() string { return w.path }

// rotate compresses the current log file and opens a fresh one.
// Caller must hold w.mu.
func (w *Writer) rotate() {
	w.file.Sync()
	w.file.Close()
	w.file = nil

	// Archive name: error-20260219-153045.123.log.gz, suffixed on collision.
	ts := time.Now().Format("20060102-150405.000")
	archivePath := filepath.Join(w.dir, fmt.Sprintf("error-%s.log.gz", ts))
	for i := 1; fileExists(archivePath); i++ {
		archivePath = filepath.Join(w.dir, fmt.Sprintf("error-%s.%d.log.gz", ts, i))
	}

	// The original is truncated even when compression fails, so the file
	// cannot grow without bound.
	compressFile(w.path, archivePath)
	os.Truncate(w.path, 0)

	pruneArchives(w.dir, MaxBackups)

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return
	}
	w.file = f
	w.size = 0
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// pruneArchives removes the oldest archives beyond keep.
func pruneArchives(dir string, keep int) {
	archives, err := ListArchives(dir)
	if err != nil || len(archives) <= keep {
		return
	}
	for _, name := range archives[:len(archives)-keep] {
		os.Remove(filepath.Join(dir, name))
	}
}

// compressFile reads src, writes gzip-compressed data to dst, and returns
// any error. On failure the partial dst file is removed.
func compressFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	gw, err := gzip.NewWriterLevel(out, gzip.BestSpeed)
	if err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if _, err := io.Copy(gw, in); err != nil {
		gw.Close()
		out.Close()
		os.Remove(dst)
		return err
	}
	// Must close gzip writer before the file to flush the footer.
	if err := gw.Close(); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	return nil
}

// RecentLines reads the last n lines of dir/error.log, oldest first.
func RecentLines(dir string, n int) ([]string, error) {
	if n <= 0 {
		n = 50
	}
	f, err := os.Open(filepath.Join(dir, logFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()
	if size == 0 {
		return []string{}, nil
	}

	// Only the tail is scanned.
	const maxRead = 256 * 1024
	readStart := int64(0)
	if size > maxRead {
		readStart = size - maxRead
	}
	buf := make([]byte, size-readStart)
	if _, err := f.ReadAt(buf, readStart); err != nil && err != io.EOF {
		return nil, err
	}

	lines := strings.Split(strings.TrimRight(string(buf), "\n"), "\n")
	if readStart > 0 && len(lines) > 1 {
		lines = lines[1:] // first line is probably cut
	}
	out := make([]string, 0, n)
	for _, l := range lines {
		if l != "" {
			out = append(out, l)
		}
	}
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out, nil
}

// ListArchives returns the compressed archives in dir, oldest first.
func ListArchives(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}
	archives := []string{}
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "error-") && strings.HasSuffix(name, ".log.gz") {
			archives = append(archives, name)
		}
	}
	// Timestamped names sort chronologically.
	sort.Strings(archives)
	return archives, nil
}
