package importer

import (
	"fmt"
	"os"
	"path/filepath"
)

// Scratch is the per-process spill area for blob payloads and inline
// fileop data. It is created once per run, named after the process ID to
// avoid collision with a concurrent run in the same directory (spec.md
// §3, §5, §9's "scoped resources" idiom), and torn down unconditionally
// on every exit path by the caller's defer.
type Scratch struct {
	dir string
	pid int
}

// NewScratch creates the scratch directory ".rs<pid>" under the given
// base directory (normally the invocation directory).
func NewScratch(baseDir string, pid int) (*Scratch, error) {
	dir := filepath.Join(baseDir, fmt.Sprintf(".rs%d", pid))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating scratch directory %s: %w", dir, err)
	}
	return &Scratch{dir: dir, pid: pid}, nil
}

// Teardown removes the scratch directory and everything spilled into it.
// It is unconditional: callers invoke it via defer so it runs on success,
// on a fatal error, and on interrupt (spec.md §5, invariant P5).
func (s *Scratch) Teardown() {
	if s == nil {
		return
	}
	os.RemoveAll(s.dir)
}

// BlobPath names the stable spill-file location for a blob, derived from
// (pid, mark) so it never collides across concurrent runs (spec.md §4.2).
func (s *Scratch) BlobPath(mark string) string {
	return filepath.Join(s.dir, fmt.Sprintf("blob-%d-%s", s.pid, sanitizeMark(mark)))
}

// InlinePath names the spill-file location for an inline fileop payload,
// named after the owning commit's mark plus a per-commit sequence number
// so that multiple inline modifies in one commit don't collide.
func (s *Scratch) InlinePath(commitMark string, seq int) string {
	return filepath.Join(s.dir, fmt.Sprintf("inline-%d-%s-%d", s.pid, sanitizeMark(commitMark), seq))
}

func sanitizeMark(mark string) string {
	out := make([]byte, 0, len(mark))
	for i := 0; i < len(mark); i++ {
		c := mark[i]
		if c == ':' {
			continue
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return "0"
	}
	return string(out)
}
