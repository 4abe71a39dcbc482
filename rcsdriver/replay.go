package rcsdriver

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gitlab.com/esr/fi2rcs/fault"
	"gitlab.com/esr/fi2rcs/importer"
	"gitlab.com/esr/fi2rcs/logtag"
	"gitlab.com/esr/fi2rcs/revid"
)

// FinalCheckout selects the post-action spec.md §4.6 runs after every
// commit has been replayed.
type FinalCheckout int

const (
	// FinalNeither unlocks every master and leaves no working copy.
	FinalNeither FinalCheckout = iota
	// FinalLocked is a no-op: replay leaves every master's head locked
	// to the importing process already.
	FinalLocked
	// FinalUnlocked unlocks every master and checks out a working copy.
	FinalUnlocked
)

// Options configures one replay run.
type Options struct {
	RoundTrip bool
	Checkout  FinalCheckout
}

// Engine is the replay engine (VCS driver) of spec.md §4.6: it walks a
// resolved importer.Repository in stream order, asking a BranchAssigner
// for a revision ID per file-op and driving RCS through a Shell.
type Engine struct {
	repo     *importer.Repository
	assigner *BranchAssigner
	ws       *Workspace
	shell    *Shell
	log      *logtag.Logger
	opts     Options

	lastCheckedIn map[string]revid.ID
	liveSet       map[string]map[string]bool // branch -> currently-live paths
	notTip        map[string]bool
	annotatedRev  revid.ID
}

// NewEngine builds a replay engine over repo, performing its work under
// ws and driving RCS tools via shell.
func NewEngine(repo *importer.Repository, ws *Workspace, shell *Shell, log *logtag.Logger, opts Options) *Engine {
	return &Engine{
		repo:          repo,
		assigner:      NewBranchAssigner(repo),
		ws:            ws,
		shell:         shell,
		log:           log,
		opts:          opts,
		lastCheckedIn: make(map[string]revid.ID),
		liveSet:       make(map[string]map[string]bool),
	}
}

// Replay drives every commit in stream order, then runs the post-action
// pass spec.md §4.6 describes.
func (e *Engine) Replay() {
	e.notTip = computeBranchTips(e.repo)
	commits := e.repo.Commits()
	e.log.Baton.StartProgress("replay commits", uint64(len(commits)))
	for i, c := range commits {
		e.precommit(c)
		if c.IsMerge() {
			e.log.Logf(logtag.Warn, "commit %s: merge parents beyond the first are not represented in RCS", c.Mark)
		}
		for _, op := range c.FileOps {
			e.dispatch(c, op)
		}
		e.postcommit(c)
		e.log.Baton.PercentProgress(uint64(i + 1))
	}
	e.log.Baton.EndProgress()
	e.finalize()
}

func (e *Engine) precommit(c *importer.Commit) {
	e.log.Logf(logtag.Ops, "commit %s on %s", c.Mark, c.Branch)
}

func (e *Engine) dispatch(c *importer.Commit, op *importer.FileOp) {
	e.log.Logf(logtag.Ops, "  %s", op.String())
	switch op.Op {
	case importer.OpModify:
		e.dispatchModify(c, op)
	case importer.OpDelete:
		e.performDelete(c, op.Path)
	case importer.OpRename:
		e.performCopy(c, op.Source, op.Path, "Rename")
		e.performDelete(c, op.Source)
	case importer.OpCopy:
		e.performCopy(c, op.Source, op.Path, "")
	case importer.OpDeleteAll:
		e.dispatchDeleteAll(c)
	}
}

func (e *Engine) dispatchModify(c *importer.Commit, op *importer.FileOp) {
	if op.Mode == "120000" || op.Mode == "160000" {
		kind := "symlink"
		if op.Mode == "160000" {
			kind = "gitlink/submodule"
		}
		panic(fault.Throw(fault.Capability, 0, "commit %s: file mode %s (%s) at %q is not supported", c.Mark, op.Mode, kind, op.Path))
	}

	rev := e.assigner.Assign(c, op.Path)
	working := e.ws.WorkingPath(op.Path)
	if _, err := os.Stat(working); err == nil {
		panic(fault.Throw(fault.IO, 0, "working path %q already exists", working))
	}
	if err := os.Link(op.SpillPath, working); err != nil {
		panic(fault.Throw(fault.IO, 0, "linking blob into working path %q: %v", working, err))
	}

	e.checkin(c, op.Path, rev, "")
	os.Remove(working)

	e.markLive(c.Branch, op.Path, true)
}

func (e *Engine) performDelete(c *importer.Commit, path string) {
	e.log.Logf(logtag.Delete, "delete %s on %s", path, c.Branch)
	rev := e.assigner.Assign(c, path)
	working := e.ws.WorkingPath(path)
	f, err := os.Create(working)
	if err != nil {
		panic(fault.Throw(fault.IO, 0, "creating empty working file %q: %v", working, err))
	}
	f.Close()

	e.checkin(c, path, rev, "Deleted")
	os.Remove(working)

	e.markLive(c.Branch, path, false)
}

func (e *Engine) performCopy(c *importer.Commit, src, dst, legend string) {
	if e.assigner.HasMaster(dst) {
		panic(fault.Throw(fault.Capability, 0, "commit %s: copy target %q already has a master", c.Mark, dst))
	}
	tip, ok := e.assigner.TipOf(src, c.Branch)
	if !ok {
		panic(fault.Throw(fault.Capability, 0, "commit %s: copy source %q has no tip on branch %s", c.Mark, src, c.Branch))
	}

	content := e.shell.CaptureIn(e.ws.FileDir(src), "co", "-q", "-p", "-r"+tip.String(), filepath.Base(src))
	working := e.ws.WorkingPath(dst)
	if err := os.WriteFile(working, content, 0644); err != nil {
		panic(fault.Throw(fault.IO, 0, "writing copy target %q: %v", working, err))
	}

	if legend != "" {
		e.log.Logf(logtag.Shuffle, "%s: %s -> %s", legend, src, dst)
	}

	rev := e.assigner.Assign(c, dst)
	e.checkin(c, dst, rev, "")
	os.Remove(working)
	e.markLive(c.Branch, dst, true)
}

func (e *Engine) dispatchDeleteAll(c *importer.Commit) {
	live := e.liveSet[c.Branch]
	paths := make([]string, 0, len(live))
	for p, isLive := range live {
		if isLive {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	for _, p := range paths {
		e.performDelete(c, p)
	}
}

func (e *Engine) markLive(branch, path string, live bool) {
	if e.liveSet[branch] == nil {
		e.liveSet[branch] = make(map[string]bool)
	}
	e.liveSet[branch][path] = live
}

// checkin runs the check-in command synthesis of spec.md §4.6: a fresh
// master is created with ci -i; otherwise, if rev's parent doesn't match
// the master's last checked-in revision, the master is unlocked and the
// parent explicitly relocked before check-in (P2). Every check-in leaves
// the new head locked to the importing process, so the locked-checkout
// post-action is a no-op and the unlocked one has work to do.
func (e *Engine) checkin(c *importer.Commit, path string, rev revid.ID, state string) {
	e.ws.EnsureRCSDir(path)
	dir := e.ws.FileDir(path)
	base := filepath.Base(path)
	comment := escapeQuotes(buildComment(c, e.opts.RoundTrip))
	date := c.Committer.Date.Timestamp.UTC().Format("2006-01-02 15:04:05")

	stateFlag := ""
	if state != "" {
		stateFlag = " -s" + state
	}

	if !e.assigner.HasMaster(path) {
		line := fmt.Sprintf("ci -q -i -U -t-none -r%s -d'%s'%s -m'%s' %s", rev.String(), date, stateFlag, comment, base)
		e.shell.RunLineIn(dir, line)
		e.assigner.NoteMasterCreated(path)
	} else {
		last, ok := e.lastCheckedIn[path]
		if !ok || !last.Equal(rev.Parent()) {
			e.shell.RunLineIn(dir, fmt.Sprintf("rcs -q -u %s", base))
			e.shell.RunLineIn(dir, fmt.Sprintf("rcs -q -l%s %s", rev.Parent().String(), base))
		}
		line := fmt.Sprintf("ci -q -r%s -d'%s'%s -m'%s' %s", rev.String(), date, stateFlag, comment, base)
		e.shell.RunLineIn(dir, line)
	}
	e.shell.RunLineIn(dir, fmt.Sprintf("rcs -q -l %s", base))
	e.lastCheckedIn[path] = rev

	if !e.notTip[c.Mark] {
		e.shell.RunLineIn(dir, fmt.Sprintf("rcs -q -n%s:%s %s", symbolName(c.Branch), rev.BranchOf().String(), base))
	}
	for _, r := range c.Resets {
		e.shell.RunLineIn(dir, fmt.Sprintf("rcs -q -n%s:%s %s", symbolName(r.Ref), rev.String(), base))
	}
}

// postcommit handles the commit's attached annotated tags, per spec.md
// §4.6: one new revision of the top-level ANNOTATED-TAGS master per tag,
// whose content is a Tag/Tagger/Date header block followed by the tag's
// body, plus a symbolic name of the tag's own name across every master
// that exists so far.
func (e *Engine) postcommit(c *importer.Commit) {
	for _, tag := range c.Tags {
		e.recordAnnotatedTag(c, tag)
	}
}

const annotatedTagsPath = "ANNOTATED-TAGS"

func (e *Engine) recordAnnotatedTag(c *importer.Commit, tag *importer.Tag) {
	taggerLine := "(none)"
	date := c.Committer.Date
	if tag.Tagger != nil {
		taggerLine = tag.Tagger.NameEmail()
		date = tag.Tagger.Date
	}
	body := fmt.Sprintf("Tag: %s\nTagger: %s\nDate: %s\n\n%s", tag.Name, taggerLine, date.String(), tag.Comment)

	working := e.ws.WorkingPath(annotatedTagsPath)
	if err := os.WriteFile(working, []byte(body), 0644); err != nil {
		panic(fault.Throw(fault.IO, 0, "writing %s: %v", annotatedTagsPath, err))
	}

	var rev revid.ID
	if e.annotatedRev == nil {
		rev = revid.Fresh()
	} else {
		rev = e.annotatedRev.Successor()
	}
	e.annotatedRev = rev

	e.ws.EnsureRCSDir(annotatedTagsPath)
	dir := e.ws.FileDir(annotatedTagsPath)
	comment := escapeQuotes(fmt.Sprintf("Annotated tag %s", tag.Name))
	dateArg := date.Timestamp.UTC().Format("2006-01-02 15:04:05")
	if e.annotatedRev.Equal(revid.Fresh()) {
		line := fmt.Sprintf("ci -q -i -U -t-none -r%s -d'%s' -m'%s' %s", rev.String(), dateArg, comment, annotatedTagsPath)
		e.shell.RunLineIn(dir, line)
		e.assigner.NoteMasterCreated(annotatedTagsPath)
	} else {
		line := fmt.Sprintf("ci -q -r%s -d'%s' -m'%s' %s", rev.String(), dateArg, comment, annotatedTagsPath)
		e.shell.RunLineIn(dir, line)
	}
	e.shell.RunLineIn(dir, fmt.Sprintf("rcs -q -l %s", annotatedTagsPath))
	os.Remove(working)

	for _, path := range e.assigner.Masters() {
		if path == annotatedTagsPath {
			continue
		}
		e.shell.RunLineIn(e.ws.FileDir(path), fmt.Sprintf("rcs -q -n%s: %s", symbolName(tag.Name), filepath.Base(path)))
	}
}

// finalize runs the post-action pass of spec.md §4.6 over every master
// this run created.
func (e *Engine) finalize() {
	switch e.opts.Checkout {
	case FinalLocked:
		return
	case FinalUnlocked:
		for _, path := range e.assigner.Masters() {
			dir := e.ws.FileDir(path)
			base := filepath.Base(path)
			e.shell.RunIn(dir, "rcs", "-q", "-u", base)
			e.shell.RunIn(dir, "co", "-q", base)
		}
	default:
		for _, path := range e.assigner.Masters() {
			e.shell.RunIn(e.ws.FileDir(path), "rcs", "-q", "-u", filepath.Base(path))
		}
	}
}

// symbolName maps a git-style ref to an RCS symbolic name: slashes are
// not legal in RCS symbol names, and the common refs/heads, refs/tags
// prefixes just add noise.
func symbolName(ref string) string {
	ref = strings.TrimPrefix(ref, "refs/heads/")
	ref = strings.TrimPrefix(ref, "refs/tags/")
	return strings.ReplaceAll(ref, "/", "-")
}
