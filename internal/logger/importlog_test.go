package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestImportLogger(t *testing.T, dir string) *Logger {
	t.Helper()
	hook, err := NewDailyFileHook(dir, DefaultRetention)
	if err != nil {
		t.Fatalf("NewDailyFileHook: %v", err)
	}
	return NewImportLogger(&Config{Format: "text", Output: io.Discard, ServiceName: "test"}, "debug", hook)
}

func writeLogFile(t *testing.T, dir, name, content string, mod time.Time) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	if err := os.Chtimes(path, mod, mod); err != nil {
		t.Fatalf("chtimes %s: %v", name, err)
	}
}

func TestDailyFileHookLevels(t *testing.T) {
	dir := t.TempDir()
	log := newTestImportLogger(t, dir)

	log.Debug("processing")
	log.Info("started")
	log.Success("imported")
	log.Warn("no category")
	log.Error("failed")

	name := filepath.Join(dir, "import-"+time.Now().Format("2006-01-02")+".log")
	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	want := []string{"[DEBUG] processing", "[INFO] started", "[SUCCESS] imported", "[WARNING] no category", "[ERROR] failed"}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d: %q", len(lines), len(want), lines)
	}
	for i, suffix := range want {
		if !strings.HasPrefix(lines[i], "[") || !strings.HasSuffix(lines[i], suffix) {
			t.Errorf("line %d = %q, want suffix %q", i, lines[i], suffix)
		}
	}
}

func TestFormatImportLine(t *testing.T) {
	ts := time.Date(2024, 3, 9, 7, 5, 1, 0, time.UTC)
	got := FormatImportLine(ts, "INFO", "Import started...")
	want := "[2024-03-09 07:05:01] [INFO] Import started...\n"
	if got != want {
		t.Errorf("FormatImportLine() = %q, want %q", got, want)
	}
}

func TestDailyFileHookRetention(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-30 * 24 * time.Hour)
	for i := 1; i <= 8; i++ {
		name := "import-2020-01-0" + string(rune('0'+i)) + ".log"
		writeLogFile(t, dir, name, "x\n", base.Add(time.Duration(i)*time.Hour))
	}
	writeLogFile(t, dir, "other.txt", "keep", base)

	log := newTestImportLogger(t, dir)
	log.Info("tick")

	files, err := listImportLogs(dir)
	if err != nil {
		t.Fatalf("listImportLogs: %v", err)
	}
	if len(files) != DefaultRetention {
		t.Fatalf("got %d files, want %d", len(files), DefaultRetention)
	}
	for _, gone := range []string{"import-2020-01-01.log", "import-2020-01-02.log"} {
		if _, err := os.Stat(filepath.Join(dir, gone)); !os.IsNotExist(err) {
			t.Errorf("%s should have been pruned", gone)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "other.txt")); err != nil {
		t.Errorf("unrelated file removed: %v", err)
	}
}

func TestReadLogs(t *testing.T) {
	t.Run("empty dir", func(t *testing.T) {
		got, err := ReadLogs(t.TempDir())
		if err != nil {
			t.Fatalf("ReadLogs: %v", err)
		}
		if got != NoLogsMessage {
			t.Errorf("ReadLogs() = %q, want %q", got, NoLogsMessage)
		}
	})

	t.Run("missing dir", func(t *testing.T) {
		got, err := ReadLogs(filepath.Join(t.TempDir(), "nope"))
		if err != nil {
			t.Fatalf("ReadLogs: %v", err)
		}
		if got != NoLogsMessage {
			t.Errorf("ReadLogs() = %q, want %q", got, NoLogsMessage)
		}
	})

	t.Run("newest name first, empty skipped", func(t *testing.T) {
		dir := t.TempDir()
		now := time.Now()
		writeLogFile(t, dir, "import-2024-01-01.log", "first\n", now)
		writeLogFile(t, dir, "import-2024-01-02.log", "", now)
		writeLogFile(t, dir, "import-2024-01-03.log", "third\n", now)

		got, err := ReadLogs(dir)
		if err != nil {
			t.Fatalf("ReadLogs: %v", err)
		}
		want := "=== import-2024-01-03.log ===\nthird\n\n=== import-2024-01-01.log ===\nfirst\n\n"
		if got != want {
			t.Errorf("ReadLogs() = %q, want %q", got, want)
		}
	})
}

func TestClearLogs(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	writeLogFile(t, dir, "import-2024-01-01.log", "a\n", now)
	writeLogFile(t, dir, "import-2024-01-02.log", "", now)
	writeLogFile(t, dir, "notes.log", "keep\n", now)

	n, err := ClearLogs(dir)
	if err != nil {
		t.Fatalf("ClearLogs: %v", err)
	}
	if n != 2 {
		t.Errorf("ClearLogs() = %d, want 2", n)
	}
	if _, err := os.Stat(filepath.Join(dir, "notes.log")); err != nil {
		t.Errorf("unrelated file removed: %v", err)
	}
	if got, _ := ReadLogs(dir); got != NoLogsMessage {
		t.Errorf("ReadLogs() after clear = %q", got)
	}
}
