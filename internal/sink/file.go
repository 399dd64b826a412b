package sink

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/maxbolgarin/curatrak/internal/model"
	"github.com/maxbolgarin/curatrak/internal/model/interfaces"
	"github.com/maxbolgarin/errm"
)

const filePerm = 0o644

var _ interfaces.EventSink = (*File)(nil)

// File appends event records to a local log file.
//
// Every record is written with a single write on a file opened in append mode,
// so lines of concurrent writers never interleave. The file is reopened for
// every record, a log removed or rotated by someone else is recreated on the next append.
type File struct {
	mu  sync.Mutex
	cfg FileConfig
}

// NewFile returns a file sink, the file is created on first append.
func NewFile(cfg FileConfig) *File {
	cfg.prepare()
	return &File{cfg: cfg}
}

// Path returns the active log file path.
func (s *File) Path() string {
	return s.cfg.Path
}

// Append writes one record. Rotation happens before the write when the record
// would push the file over the size limit.
func (s *File) Append(ctx context.Context, event model.WorkflowEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	line, err := EncodeRecord(event)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.rotateIfNeeded(int64(len(line))); err != nil {
		return errm.Wrap(err, "failed to rotate event log")
	}

	f, err := os.OpenFile(s.cfg.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
	if err != nil {
		return errm.Wrap(err, "failed to open event log")
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return errm.Wrap(err, "failed to write event record")
	}

	return nil
}

func (s *File) rotateIfNeeded(next int64) error {
	if s.cfg.MaxSizeBytes <= 0 {
		return nil
	}

	info, err := os.Stat(s.cfg.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.Size() == 0 || info.Size()+next <= s.cfg.MaxSizeBytes {
		return nil
	}

	return rotate(s.cfg.Path, s.cfg.MaxBackups)
}

// rotate shifts path.N-1 -> path.N ... path -> path.1 and drops the oldest backup.
func rotate(path string, maxBackups int) error {
	if maxBackups <= 0 {
		return os.Remove(path)
	}

	if err := os.Remove(BackupPath(path, maxBackups)); err != nil && !os.IsNotExist(err) {
		return err
	}
	for i := maxBackups - 1; i >= 1; i-- {
		if err := os.Rename(BackupPath(path, i), BackupPath(path, i+1)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	return os.Rename(path, BackupPath(path, 1))
}

// BackupPath returns the name of the n-th rotated segment of a log.
func BackupPath(path string, n int) string {
	return fmt.Sprintf("%s.%d", path, n)
}

// SegmentPaths lists a log and its rotated backups from the oldest to the newest.
func SegmentPaths(path string, maxBackups int) []string {
	out := make([]string, 0, maxBackups+1)
	for i := maxBackups; i >= 1; i-- {
		out = append(out, BackupPath(path, i))
	}
	return append(out, path)
}
