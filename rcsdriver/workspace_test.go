package rcsdriver

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWorkspacePaths(t *testing.T) {
	invocationDir := t.TempDir()
	ws, err := NewWorkspace(invocationDir, 4242)
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}
	defer ws.Teardown()

	if filepath.Base(ws.Root) != "temp-import-4242" {
		t.Fatalf("Root = %q, unexpected name", ws.Root)
	}

	master := ws.MasterPath("sub/README")
	if filepath.Base(master) != "README,v" {
		t.Fatalf("MasterPath = %q", master)
	}
	if filepath.Base(filepath.Dir(master)) != "RCS" {
		t.Fatalf("MasterPath should live under an RCS directory, got %q", master)
	}
	if _, err := os.Stat(filepath.Dir(master)); err != nil {
		t.Fatalf("EnsureRCSDir should have created the directory: %v", err)
	}

	fileDir := ws.FileDir("sub/README")
	if fileDir != filepath.Join(ws.Root, "sub") {
		t.Fatalf("FileDir = %q", fileDir)
	}

	working := ws.WorkingPath("sub/README")
	if working != filepath.Join(ws.Root, "sub", "README") {
		t.Fatalf("WorkingPath = %q", working)
	}
}

func TestWorkspaceCommitMovesRCSDirsIntoDest(t *testing.T) {
	invocationDir := t.TempDir()
	ws, err := NewWorkspace(invocationDir, 99)
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}
	defer ws.Teardown()

	master := ws.MasterPath("pkg/README")
	if err := os.WriteFile(master, []byte("fake master"), 0644); err != nil {
		t.Fatalf("writing fake master: %v", err)
	}

	if err := ws.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(invocationDir, "pkg", "RCS", "README,v"))
	if err != nil {
		t.Fatalf("master not found under destination: %v", err)
	}
	if string(got) != "fake master" {
		t.Fatalf("got %q", got)
	}
}
