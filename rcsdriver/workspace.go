package rcsdriver

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	shutil "github.com/termie/go-shutil"

	"gitlab.com/esr/fi2rcs/fault"
)

// Workspace is the temporary working area of spec.md §6's "Working
// directory discipline": all replay work happens under temp-import-<pid>
// sibling to the invocation directory, and the populated RCS tree is
// renamed into place atomically only on success.
type Workspace struct {
	Root string // temp-import-<pid>
	Dest string // the invocation directory
}

// NewWorkspace creates the temporary workspace directory.
func NewWorkspace(invocationDir string, pid int) (*Workspace, error) {
	root := filepath.Join(filepath.Dir(invocationDir), fmt.Sprintf("temp-import-%d", pid))
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("creating workspace %s: %w", root, err)
	}
	return &Workspace{Root: root, Dest: invocationDir}, nil
}

// Teardown removes the temporary workspace unconditionally.
func (w *Workspace) Teardown() {
	if w == nil {
		return
	}
	os.RemoveAll(w.Root)
}

// EnsureRCSDir creates (if needed) and returns the RCS subdirectory under
// the temporary workspace for the directory containing relPath.
func (w *Workspace) EnsureRCSDir(relPath string) string {
	dir := filepath.Join(w.Root, filepath.Dir(relPath), "RCS")
	if err := os.MkdirAll(dir, 0775); err != nil {
		panic(fault.Throw(fault.IO, 0, "creating RCS directory %s: %v", dir, err))
	}
	return dir
}

// MasterPath returns the ",v" master file path for relPath.
func (w *Workspace) MasterPath(relPath string) string {
	return filepath.Join(w.EnsureRCSDir(relPath), filepath.Base(relPath)+",v")
}

// FileDir returns the directory RCS commands for relPath should run in:
// the directory holding the working file, with an RCS/ subdirectory
// alongside it so the tools resolve the bare basename automatically.
func (w *Workspace) FileDir(relPath string) string {
	return filepath.Join(w.Root, filepath.Dir(relPath))
}

// WorkingPath returns the path of relPath's working file within the
// temporary workspace.
func (w *Workspace) WorkingPath(relPath string) string {
	dir := filepath.Join(w.Root, filepath.Dir(relPath))
	if err := os.MkdirAll(dir, 0775); err != nil {
		panic(fault.Throw(fault.IO, 0, "creating working directory %s: %v", dir, err))
	}
	return filepath.Join(w.Root, relPath)
}

// Commit renames every RCS subtree accumulated under the temporary
// workspace into its final location under Dest, satisfying the
// rename-on-success discipline of spec.md §6: a pre-rename interrupt
// leaves the destination untouched.
func (w *Workspace) Commit() error {
	var rcsDirs []string
	err := filepath.WalkDir(w.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == "RCS" {
			rcsDirs = append(rcsDirs, path)
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, src := range rcsDirs {
		rel, err := filepath.Rel(w.Root, src)
		if err != nil {
			return err
		}
		dst := filepath.Join(w.Dest, rel)
		if err := os.MkdirAll(filepath.Dir(dst), 0775); err != nil {
			return err
		}
		if err := os.Rename(src, dst); err != nil {
			// Cross-device temp dirs fall back to a recursive copy.
			if cerr := shutil.CopyTree(src, dst, nil); cerr != nil {
				return cerr
			}
		}
	}
	return nil
}
