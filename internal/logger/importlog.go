package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	importLogPrefix  = "import-"
	importLogSuffix  = ".log"
	importLogLayout  = "2006-01-02 15:04:05"
	importFileLayout = "2006-01-02"

	// DefaultRetention is how many daily import log files are kept.
	DefaultRetention = 7

	// NoLogsMessage is returned by ReadLogs when there is nothing to show.
	NoLogsMessage = "No logs available."
)

// DailyFileHook is a logrus hook that appends every entry to a per-day
// import log file and enforces the retention policy after each append.
type DailyFileHook struct {
	dir       string
	retention int
	now       func() time.Time

	mu sync.Mutex
}

// NewDailyFileHook creates a hook writing into dir. A retention below one
// falls back to DefaultRetention.
func NewDailyFileHook(dir string, retention int) (*DailyFileHook, error) {
	if retention < 1 {
		retention = DefaultRetention
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create import log dir: %w", err)
	}
	return &DailyFileHook{dir: dir, retention: retention, now: time.Now}, nil
}

// Dir returns the directory the hook writes to.
func (h *DailyFileHook) Dir() string {
	return h.dir
}

// Levels implements logrus.Hook.
func (h *DailyFileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements logrus.Hook.
func (h *DailyFileHook) Fire(entry *logrus.Entry) error {
	ts := entry.Time
	if ts.IsZero() {
		ts = h.now()
	}
	line := FormatImportLine(ts, importLevel(entry), entry.Message)

	h.mu.Lock()
	defer h.mu.Unlock()

	name := filepath.Join(h.dir, importLogPrefix+ts.Format(importFileLayout)+importLogSuffix)
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open import log: %w", err)
	}
	_, werr := f.WriteString(line)
	cerr := f.Close()
	if werr != nil {
		return fmt.Errorf("failed to write import log: %w", werr)
	}
	if cerr != nil {
		return cerr
	}
	return h.prune()
}

// FormatImportLine renders one import log line including the newline.
func FormatImportLine(ts time.Time, level, msg string) string {
	return fmt.Sprintf("[%s] [%s] %s\n", ts.Format(importLogLayout), level, msg)
}

// importLevel maps a logrus entry to the import log vocabulary.
func importLevel(entry *logrus.Entry) string {
	switch entry.Level {
	case logrus.TraceLevel, logrus.DebugLevel:
		return "DEBUG"
	case logrus.WarnLevel:
		return "WARNING"
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return "ERROR"
	}
	if outcome, _ := entry.Data[FieldOutcome].(string); outcome == OutcomeSuccess {
		return "SUCCESS"
	}
	return "INFO"
}

// prune keeps the retention newest files by modification time.
func (h *DailyFileHook) prune() error {
	files, err := listImportLogs(h.dir)
	if err != nil {
		return err
	}
	if len(files) <= h.retention {
		return nil
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].mod.After(files[j].mod)
	})
	for _, f := range files[h.retention:] {
		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove old import log: %w", err)
		}
	}
	return nil
}

type importLogFile struct {
	path string
	name string
	size int64
	mod  time.Time
}

func listImportLogs(dir string) ([]importLogFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list import logs: %w", err)
	}
	var files []importLogFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, importLogPrefix) || !strings.HasSuffix(name, importLogSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, importLogFile{
			path: filepath.Join(dir, name),
			name: name,
			size: info.Size(),
			mod:  info.ModTime(),
		})
	}
	return files, nil
}

// ReadLogs returns the content of all non-empty import logs, newest file
// name first, each preceded by a "=== name ===" header.
func ReadLogs(dir string) (string, error) {
	files, err := listImportLogs(dir)
	if err != nil {
		return "", err
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].name > files[j].name
	})

	var b strings.Builder
	for _, f := range files {
		if f.size == 0 {
			continue
		}
		data, err := os.ReadFile(f.path)
		if err != nil {
			return "", fmt.Errorf("failed to read import log %s: %w", f.name, err)
		}
		if len(data) == 0 {
			continue
		}
		fmt.Fprintf(&b, "=== %s ===\n", f.name)
		b.Write(data)
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return NoLogsMessage, nil
	}
	return b.String(), nil
}

// ClearLogs deletes every import log file and returns how many were removed.
func ClearLogs(dir string) (int, error) {
	files, err := listImportLogs(dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, f := range files {
		if err := os.Remove(f.path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return removed, fmt.Errorf("failed to remove import log %s: %w", f.name, err)
		}
		removed++
	}
	return removed, nil
}
