package importer

import (
	"os"
	"strings"
	"testing"

	"gitlab.com/esr/fi2rcs/logtag"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	dir := t.TempDir()
	scratch, err := NewScratch(dir, os.Getpid())
	if err != nil {
		t.Fatalf("NewScratch: %v", err)
	}
	t.Cleanup(scratch.Teardown)
	return NewRepository(scratch)
}

func parseString(t *testing.T, stream string) *Repository {
	t.Helper()
	repo := newTestRepo(t)
	lx := NewLexer(strings.NewReader(stream), "<test>")
	Parse(lx, repo, logtag.New(0))
	return repo
}

func TestParseLinearHistoryOneFile(t *testing.T) {
	stream := "blob\n" +
		"mark :1\n" +
		"data 2\n" +
		"a\n" +
		"commit refs/heads/master\n" +
		"mark :2\n" +
		"committer A <a@x> 1000000000 +0000\n" +
		"data 12\n" +
		"first commit\n" +
		"M 100644 :1 README\n"

	repo := parseString(t, stream)
	commits := repo.Commits()
	if len(commits) != 1 {
		t.Fatalf("got %d commits, want 1", len(commits))
	}
	c := commits[0]
	if c.Mark != ":2" || c.Branch != "refs/heads/master" {
		t.Fatalf("unexpected commit: %+v", c)
	}
	if c.Committer.Name != "A" || c.Committer.Email != "a@x" {
		t.Fatalf("unexpected committer: %+v", c.Committer)
	}
	if len(c.FileOps) != 1 {
		t.Fatalf("got %d fileops, want 1", len(c.FileOps))
	}
	op := c.FileOps[0]
	if op.Op != OpModify || op.Path != "README" || op.Mode != "100644" {
		t.Fatalf("unexpected fileop: %+v", op)
	}
	blob, ok := repo.MarkToEvent(":1").(*Blob)
	if !ok {
		t.Fatalf("mark :1 did not resolve to a blob")
	}
	if blob.FirstPath != "README" {
		t.Fatalf("blob.FirstPath = %q, want README", blob.FirstPath)
	}
}

func TestParseMissingMarkIsFatal(t *testing.T) {
	stream := "commit refs/heads/master\n" +
		"committer A <a@x> 1000000000 +0000\n" +
		"data 4\n" +
		"body\n"
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for missing commit mark")
		}
	}()
	parseString(t, stream)
}

func TestParseMissingCommitterIsFatal(t *testing.T) {
	stream := "commit refs/heads/master\n" +
		"mark :1\n" +
		"data 4\n" +
		"body\n"
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for missing committer")
		}
	}()
	parseString(t, stream)
}

func TestParseUnresolvedBlobMarkIsFatal(t *testing.T) {
	stream := "commit refs/heads/master\n" +
		"mark :1\n" +
		"committer A <a@x> 1000000000 +0000\n" +
		"data 4\n" +
		"body\n" +
		"M 100644 :99 README\n"
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unresolved blob mark")
		}
	}()
	parseString(t, stream)
}

func TestParsePropertyFlag(t *testing.T) {
	stream := "commit refs/heads/master\n" +
		"mark :1\n" +
		"committer A <a@x> 1000000000 +0000\n" +
		"property cvs-revisions\n" +
		"data 4\n" +
		"body\n"
	repo := parseString(t, stream)
	c := repo.Commits()[0]
	if len(c.Properties) != 1 || !c.Properties[0].Flag || c.Properties[0].Name != "cvs-revisions" {
		t.Fatalf("unexpected properties: %+v", c.Properties)
	}
}

func TestParsePropertyValued(t *testing.T) {
	stream := "commit refs/heads/master\n" +
		"mark :1\n" +
		"committer A <a@x> 1000000000 +0000\n" +
		"property legacy-id 3 abc\n" +
		"data 4\n" +
		"body\n"
	repo := parseString(t, stream)
	c := repo.Commits()[0]
	if len(c.Properties) != 1 || c.Properties[0].Flag || c.Properties[0].Name != "legacy-id" || c.Properties[0].Value != "abc" {
		t.Fatalf("unexpected properties: %+v", c.Properties)
	}
}

func TestParseRenameWithQuotedPath(t *testing.T) {
	stream := "blob\n" +
		"mark :1\n" +
		"data 2\n" +
		"a\n" +
		"commit refs/heads/master\n" +
		"mark :2\n" +
		"committer A <a@x> 1000000000 +0000\n" +
		"data 4\n" +
		"body\n" +
		"M 100644 :1 \"old name\"\n" +
		"commit refs/heads/master\n" +
		"mark :3\n" +
		"from :2\n" +
		"committer A <a@x> 1000000001 +0000\n" +
		"data 4\n" +
		"body\n" +
		"R \"old name\" \"new name\"\n"

	repo := parseString(t, stream)
	commits := repo.Commits()
	rename := commits[1].FileOps[0]
	if rename.Op != OpRename || rename.Source != "old name" || rename.Path != "new name" {
		t.Fatalf("unexpected rename op: %+v", rename)
	}
}

func TestParseTagAndReset(t *testing.T) {
	stream := "blob\n" +
		"mark :1\n" +
		"data 2\n" +
		"a\n" +
		"commit refs/heads/master\n" +
		"mark :2\n" +
		"committer A <a@x> 1000000000 +0000\n" +
		"data 4\n" +
		"body\n" +
		"M 100644 :1 README\n" +
		"tag v1\n" +
		"from :2\n" +
		"tagger A <a@x> 1000000000 +0000\n" +
		"data 2\n" +
		"hi\n" +
		"reset refs/heads/master\n" +
		"from :2\n"

	repo := parseString(t, stream)
	var tag *Tag
	var reset *Reset
	for _, e := range repo.Events {
		switch ev := e.(type) {
		case *Tag:
			tag = ev
		case *Reset:
			reset = ev
		}
	}
	if tag == nil || tag.Commit == nil || tag.Commit.Mark != ":2" {
		t.Fatalf("tag did not resolve to commit :2: %+v", tag)
	}
	if reset == nil || reset.Commit == nil || reset.Commit.Mark != ":2" {
		t.Fatalf("reset did not resolve to commit :2: %+v", reset)
	}

	commit := repo.Commits()[0]
	if len(commit.Tags) != 1 || commit.Tags[0] != tag {
		t.Fatalf("commit.Tags = %+v, want [tag]", commit.Tags)
	}
	if len(commit.Resets) != 1 || commit.Resets[0] != reset {
		t.Fatalf("commit.Resets = %+v, want [reset]", commit.Resets)
	}
}
