// Package importer implements the stream lexer, event parser, and event
// graph resolver described in spec.md §4.1-4.3: it turns a fast-import
// stream into an ordered, mark-resolved event list, without knowing
// anything about RCS.
package importer

import "fmt"

// Event is the tagged-variant interface over the five stream event kinds:
// Blob, Commit, Reset, Tag, Passthrough. Dispatch on it is by type switch
// in the replay engine, never by virtual method, per spec.md §9.
type Event interface {
	fmt.Stringer
	// eventMark returns the event's own mark, or "" if it has none.
	eventMark() string
}

// Attribution is a (name, email, date) triple, used for both author and
// committer lines and for tag taggers.
type Attribution struct {
	Name  string
	Email string
	Date  Date
}

func (a Attribution) String() string {
	return fmt.Sprintf("%s <%s> %s", a.Name, a.Email, a.Date.String())
}

// NameEmail renders just the "Name <email>" portion, used by the replay
// engine's RFC-822 comment envelope where date gets its own header.
func (a Attribution) NameEmail() string {
	return fmt.Sprintf("%s <%s>", a.Name, a.Email)
}

// OpType tags the variant a FileOp carries.
type OpType int

const (
	OpModify OpType = iota
	OpDelete
	OpRename
	OpCopy
	OpDeleteAll
)

// FileOp is a single file-level change within a commit. Source is only
// meaningful for Rename and Copy; Mode, Ref and SpillPath only for Modify.
type FileOp struct {
	Op   OpType
	Mode string // "100644", "100755"; refused modes (120000, 160000) are recorded here and diagnosed at replay time
	Ref  string // ":N" mark, or "inline"
	// SpillPath is where the op's content lives on disk: either the
	// referenced blob's spill file (Modify by mark) or an inline spill
	// file written directly under the op (Modify by inline data).
	SpillPath string
	Path      string
	Source    string // Rename/Copy source path
}

func (f *FileOp) String() string {
	switch f.Op {
	case OpModify:
		return fmt.Sprintf("M %s %s %s", f.Mode, f.Ref, f.Path)
	case OpDelete:
		return fmt.Sprintf("D %s", f.Path)
	case OpRename:
		return fmt.Sprintf("R %s %s", f.Source, f.Path)
	case OpCopy:
		return fmt.Sprintf("C %s %s", f.Source, f.Path)
	case OpDeleteAll:
		return "deleteall"
	}
	return "?"
}

// Property is one `property` extension line on a commit: either a bare
// flag (Flag == true, Value == "") or a name/value pair.
type Property struct {
	Name  string
	Value string
	Flag  bool
}

// Blob is a detached binary payload: its content lives at SpillPath on
// disk for the duration of the run, never held whole in memory by the
// event list itself.
type Blob struct {
	Mark string
	// SpillPath is the on-disk location the payload was streamed to,
	// named deterministically from (pid, mark) per spec.md §4.2.
	SpillPath string
	Size      int64
	// FirstPath is set the first time a Modify fileop references this
	// blob; later references reuse SpillPath without re-copying.
	FirstPath string
}

func (b *Blob) eventMark() string { return b.Mark }
func (b *Blob) String() string    { return fmt.Sprintf("blob %s", b.Mark) }

// Commit is one fast-import commit event.
type Commit struct {
	Mark        string
	Branch      string
	Authors     []Attribution
	Committer   Attribution
	Comment     string
	ParentMarks []string // first entry is the first parent
	FileOps     []*FileOp
	Properties  []Property
	Tags        []*Tag
	Resets      []*Reset

	// ChildBranches is populated during replay by the branch-assignment
	// engine: the ordered, duplicate-free list of distinct branch names
	// that fork from this commit, used to allocate RCS branch numbers
	// deterministically (spec.md §4.5).
	ChildBranches []string

	// sourceLine is the stream line the "commit" keyword appeared on,
	// remembered so that a missing-mark/missing-committer diagnostic at
	// commit-close time can point at the right place (spec.md §4.2).
	sourceLine int
}

func (c *Commit) eventMark() string { return c.Mark }
func (c *Commit) String() string    { return fmt.Sprintf("commit %s (%s)", c.Mark, c.Branch) }

// FirstParent returns the commit's first parent mark, or "" if it is a
// root commit.
func (c *Commit) FirstParent() string {
	if len(c.ParentMarks) == 0 {
		return ""
	}
	return c.ParentMarks[0]
}

// IsMerge reports whether the commit has more than one parent.
func (c *Commit) IsMerge() bool {
	return len(c.ParentMarks) > 1
}

// Reset is a (ref, optional committish) pair.
type Reset struct {
	Ref        string
	Committish string // mark, or "" if this reset clears the ref
	Commit     *Commit
}

func (r *Reset) eventMark() string { return "" }
func (r *Reset) String() string    { return fmt.Sprintf("reset %s", r.Ref) }

// Tag is an annotated tag attached to a commit.
type Tag struct {
	Name       string
	Committish string
	Tagger     *Attribution // nil if the stream omitted it
	Comment    string
	Commit     *Commit
}

func (t *Tag) eventMark() string { return "" }
func (t *Tag) String() string    { return fmt.Sprintf("tag %s", t.Name) }

// Passthrough carries an unrecognized top-level line through the event
// list verbatim, for lossless accounting. It is never replayed to RCS.
type Passthrough struct {
	Text string
}

func (p *Passthrough) eventMark() string { return "" }
func (p *Passthrough) String() string    { return p.Text }
