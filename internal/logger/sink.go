package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Sink is the append-only diagnostic log shared by every stage of a run.
// Each line carries the run id so interleaved runs from concurrent processes stay attributable.
// Banners and trace lines are always written; the level only filters Logger() entries.
type Sink struct {
	log   *zap.Logger
	trace *zap.Logger
	path  string
	runID string
	close func()
}

// OpenSink opens (or creates) the log file at path in append mode.
func OpenSink(path, level string) (*Sink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	ws, closeFn, err := zap.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	s, err := NewSink(ws, level)
	if err != nil {
		closeFn()
		return nil, err
	}
	s.path = path
	s.close = closeFn
	return s, nil
}

// NewSink builds a sink over any writer. Path() is empty for such sinks.
func NewSink(w io.Writer, level string) (*Sink, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	ws := zapcore.Lock(zapcore.AddSync(w))
	runID := uuid.NewString()
	run := zap.String("run", runID)
	return &Sink{
		log:   zap.New(newCore(ws, lvl)).With(run),
		trace: zap.New(newCore(ws, zapcore.DebugLevel)).With(run),
		runID: runID,
	}, nil
}

// NopSink discards everything.
func NopSink() *Sink {
	return &Sink{log: zap.NewNop(), trace: zap.NewNop()}
}

// Banner writes a section header.
func (s *Sink) Banner(title string) {
	s.trace.Info("===== " + title + " =====")
}

// Linef writes one formatted diagnostic line.
func (s *Sink) Linef(format string, args ...any) {
	s.trace.Info(fmt.Sprintf(format, args...))
}

// Logger exposes the underlying zap logger for structured entries.
func (s *Sink) Logger() *zap.Logger { return s.log }

// Path returns the log file location, or "" for writer-backed sinks.
func (s *Sink) Path() string { return s.path }

// RunID returns the id stamped on every line of this run.
func (s *Sink) RunID() string { return s.runID }

// Close syncs and closes the log file, if any.
func (s *Sink) Close() error {
	err := s.log.Sync()
	if s.close != nil {
		s.close()
	}
	return err
}

// DefaultPath returns name placed beside the running executable.
// Falls back to the working directory when the executable cannot be resolved.
func DefaultPath(name string) string {
	exe, err := os.Executable()
	if err != nil {
		return name
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	tmp := os.TempDir()
	if resolved, err := filepath.EvalSymlinks(tmp); err == nil {
		tmp = resolved
	}
	if isGoRunBinary(exe, tmp) {
		return name
	}
	return filepath.Join(filepath.Dir(exe), name)
}

// isGoRunBinary reports whether exe sits in a go-build work dir directly under tmp.
// go run builds there and removes the dir when the process exits.
func isGoRunBinary(exe, tmp string) bool {
	rel, err := filepath.Rel(filepath.Clean(tmp), exe)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	first, _, _ := strings.Cut(rel, string(filepath.Separator))
	return strings.HasPrefix(first, "go-build")
}
