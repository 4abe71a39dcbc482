package rcsdriver

import (
	"strings"
	"testing"

	"gitlab.com/esr/fi2rcs/importer"
)

func TestBuildCommentPlainMode(t *testing.T) {
	c := &importer.Commit{Comment: "fix the thing\n"}
	if got := buildComment(c, false); got != "fix the thing\n" {
		t.Fatalf("got %q", got)
	}
}

func TestBuildCommentRoundTripEnvelope(t *testing.T) {
	author, err := importer.ParseAttribution("A U Thor <author@x> 1000000000 +0000")
	if err != nil {
		t.Fatalf("ParseAttribution: %v", err)
	}
	committer, err := importer.ParseAttribution("A U Thor <author@x> 1000000001 +0000")
	if err != nil {
		t.Fatalf("ParseAttribution: %v", err)
	}
	c := &importer.Commit{
		Mark:        ":5",
		ParentMarks: []string{":4"},
		Authors:     []importer.Attribution{author},
		Committer:   committer,
		Properties: []importer.Property{
			{Name: "legacy-id", Value: "abc"},
			{Name: "cvs-revisions", Flag: true},
		},
		Comment: "fix the thing\n",
	}

	got := buildComment(c, true)

	for _, want := range []string{
		"Author: A U Thor <author@x>\n",
		"Author-Date: 1000000000 +0000\n",
		"Committer: A U Thor <author@x>\n",
		"Committer-Date: 1000000001 +0000\n",
		"Property-Legacy-id: abc\n",
		"Empty-Properties: cvs-revisions\n",
		"Mark: :5\n",
		"Parents: :4\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("envelope missing %q, got:\n%s", want, got)
		}
	}
	if !strings.HasSuffix(got, "\nfix the thing\n") {
		t.Errorf("envelope should end with a blank line then the body, got:\n%s", got)
	}
}

func TestBuildCommentMultipleAuthorsNumbered(t *testing.T) {
	a1, _ := importer.ParseAttribution("One <one@x> 1000000000 +0000")
	a2, _ := importer.ParseAttribution("Two <two@x> 1000000001 +0000")
	committer, _ := importer.ParseAttribution("Two <two@x> 1000000002 +0000")
	c := &importer.Commit{
		Authors:   []importer.Attribution{a1, a2},
		Committer: committer,
		Comment:   "merge\n",
	}
	got := buildComment(c, true)
	if !strings.Contains(got, "Author: One <one@x>\n") {
		t.Errorf("missing first author header, got:\n%s", got)
	}
	if !strings.Contains(got, "Author2: Two <two@x>\n") {
		t.Errorf("missing second (numbered) author header, got:\n%s", got)
	}
}

func TestEscapeQuotes(t *testing.T) {
	got := escapeQuotes("it's a test")
	want := `it'\''s a test`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestCapitalize(t *testing.T) {
	cases := map[string]string{
		"legacy-id": "Legacy-id",
		"":          "",
		"X":         "X",
	}
	for in, want := range cases {
		if got := capitalize(in); got != want {
			t.Errorf("capitalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSymbolName(t *testing.T) {
	cases := map[string]string{
		"refs/heads/master":  "master",
		"refs/heads/a/b":     "a-b",
		"refs/tags/v1.0":     "v1.0",
		"already-plain":      "already-plain",
	}
	for in, want := range cases {
		if got := symbolName(in); got != want {
			t.Errorf("symbolName(%q) = %q, want %q", in, got, want)
		}
	}
}
