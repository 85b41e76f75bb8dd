package errlog

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestOpenAndWrite(t *testing.T) {
	// Use a temp directory so we don't pollute a real log path.
	dir := filepath.Join(t.TempDir(), "logs")
	w, err := Open(dir, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if _, err := w.Write([]byte("test message 42\n")); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(w.Path())
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "test message 42\n" {
		t.Errorf("unexpected log content: %q", data)
	}
	if w.maxRotSize != DefaultMaxSizeMB<<20 {
		t.Errorf("maxRotSize = %d, want default", w.maxRotSize)
	}
}

func TestRotation(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	w.size = w.maxRotSize - 10 // just under the threshold

	// This write should push size over the threshold and trigger rotation.
	msg := "this message triggers rotation because the size counter is near the limit\n"
	if _, err := w.Write([]byte(msg)); err != nil {
		t.Fatal(err)
	}

	archives, err := ListArchives(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(archives) != 1 {
		t.Fatalf("expected one archive after rotation, got %v", archives)
	}

	// Verify the archive is valid gzip and contains the log line.
	gf, err := os.Open(filepath.Join(dir, archives[0]))
	if err != nil {
		t.Fatal(err)
	}
	defer gf.Close()
	gr, err := gzip.NewReader(gf)
	if err != nil {
		t.Fatalf("invalid gzip archive: %v", err)
	}
	defer gr.Close()
	content, err := io.ReadAll(gr)
	if err != nil {
		t.Fatalf("failed to read gzip content: %v", err)
	}
	if !strings.Contains(string(content), "triggers rotation") {
		t.Errorf("archive content missing expected message, got: %s", content)
	}

	// The active log file should now be empty, and still writable.
	info, err := os.Stat(w.Path())
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() > 0 {
		t.Errorf("expected active log to be empty after rotation, size=%d", info.Size())
	}
	if _, err := w.Write([]byte("after\n")); err != nil {
		t.Errorf("write after rotation: %v", err)
	}
}

func TestPruneArchives(t *testing.T) {
	dir := t.TempDir()

	// Create MaxBackups + 3 fake archives.
	for i := 0; i < MaxBackups+3; i++ {
		name := filepath.Join(dir, fmt.Sprintf("error-20260101-00000%d.000.log.gz", i))
		os.WriteFile(name, []byte("fake"), 0644)
	}

	pruneArchives(dir, MaxBackups)

	archives, err := ListArchives(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(archives) != MaxBackups {
		t.Fatalf("expected %d archives after prune, got %d", MaxBackups, len(archives))
	}
	if archives[0] != "error-20260101-000003.000.log.gz" {
		t.Errorf("oldest archives should be removed first, kept %v", archives)
	}
}

func TestRecentLines(t *testing.T) {
	dir := t.TempDir()

	lines, err := RecentLines(dir, 5)
	if err != nil || len(lines) != 0 {
		t.Fatalf("missing file: lines=%v err=%v", lines, err)
	}

	w, err := Open(dir, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	for i := 1; i <= 10; i++ {
		fmt.Fprintf(w, "line %d\n", i)
	}

	lines, err = RecentLines(dir, 3)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"line 8", "line 9", "line 10"}
	if strings.Join(lines, ",") != strings.Join(want, ",") {
		t.Errorf("RecentLines = %v, want %v", lines, want)
	}
}

func TestWriteAfterClose(t *testing.T) {
	w, err := Open(t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	// Close is idempotent and later writes fail instead of panicking.
	if err := w.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if _, err := w.Write([]byte("x")); err == nil {
		t.Error("expected error writing to a closed writer")
	}
}

func TestZapTee(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), w, zapcore.ErrorLevel)
	log := zap.New(core)
	log.Info("ignored")
	log.Error("[PDF] render failed", zap.String("file", "a.pdf"))
	log.Sync()

	lines, err := RecentLines(dir, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 || !strings.Contains(lines[0], `"file":"a.pdf"`) {
		t.Errorf("expected one error entry, got %v", lines)
	}
}
