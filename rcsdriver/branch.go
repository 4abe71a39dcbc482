// Package rcsdriver is the branch-assignment and replay engine of
// spec.md §4.5-4.6: it walks the importer's resolved event graph and
// drives an external RCS toolchain to reproduce the history it encodes.
package rcsdriver

import (
	"sort"

	orderedset "github.com/emirpasic/gods/sets/linkedhashset"

	"gitlab.com/esr/fi2rcs/fault"
	"gitlab.com/esr/fi2rcs/importer"
	"gitlab.com/esr/fi2rcs/revid"
)

type tipKey struct {
	path   string
	branch string
}

// BranchAssigner maintains the tip[(path,branch)] map of spec.md §4.5 and
// the per-master existence bit that drives step 1 of the assignment
// algorithm. It is consulted once per (commit, path) pair as the replay
// engine dispatches each modify-op.
type BranchAssigner struct {
	repo         *importer.Repository
	tips         map[tipKey]revid.ID
	masterExists map[string]bool
	childSets    map[*importer.Commit]*orderedset.Set
}

// NewBranchAssigner builds an assigner over repo's commit graph, used to
// climb first-parent chains during step 2 of the algorithm.
func NewBranchAssigner(repo *importer.Repository) *BranchAssigner {
	return &BranchAssigner{
		repo:         repo,
		tips:         make(map[tipKey]revid.ID),
		masterExists: make(map[string]bool),
		childSets:    make(map[*importer.Commit]*orderedset.Set),
	}
}

// HasMaster reports whether path's RCS master has already been created in
// this run.
func (a *BranchAssigner) HasMaster(path string) bool {
	return a.masterExists[path]
}

// NoteMasterCreated records that path's master now exists on disk.
func (a *BranchAssigner) NoteMasterCreated(path string) {
	a.masterExists[path] = true
}

// TipOf returns the current recorded tip for (path, branch), if any.
func (a *BranchAssigner) TipOf(path, branch string) (revid.ID, bool) {
	t, ok := a.tips[tipKey{path, branch}]
	return t, ok
}

// Masters returns every path with a master created so far, sorted for
// deterministic iteration (postcommit's cross-master tag attachment and
// finalize's post-action pass both need a stable order).
func (a *BranchAssigner) Masters() []string {
	out := make([]string, 0, len(a.masterExists))
	for p := range a.masterExists {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Assign implements the five-step algorithm of spec.md §4.5 for a
// modify-op on (commit, path).
func (a *BranchAssigner) Assign(commit *importer.Commit, path string) revid.ID {
	key := tipKey{path, commit.Branch}

	if !a.masterExists[path] {
		id := revid.Fresh()
		a.tips[key] = id
		return id
	}

	ancestor, tip := a.findOwningAncestor(commit, path)
	if ancestor == nil {
		panic(fault.Throw(fault.Capability, 0,
			"branch assignment: master for %q exists but no ancestor of commit %s owns its tip", path, commit.Mark))
	}

	var assigned revid.ID
	if ancestor.Branch == commit.Branch {
		assigned = tip.Successor()
	} else {
		k := a.childBranchIndex(ancestor, commit.Branch)
		assigned = tip.BranchTip(k)
	}
	a.tips[key] = assigned
	return assigned
}

// findOwningAncestor climbs first-parent pointers from commit until it
// finds a parent with a recorded tip for path on its own branch.
func (a *BranchAssigner) findOwningAncestor(commit *importer.Commit, path string) (*importer.Commit, revid.ID) {
	cursor := commit
	for {
		pm := cursor.FirstParent()
		if pm == "" {
			return nil, nil
		}
		ev := a.repo.MarkToEvent(pm)
		parent, ok := ev.(*importer.Commit)
		if !ok {
			panic(fault.Throw(fault.Semantic, 0, "branch assignment: parent mark %s is not a commit", pm))
		}
		if t, ok := a.tips[tipKey{path, parent.Branch}]; ok {
			return parent, t
		}
		cursor = parent
	}
}

// childBranchIndex returns the 1-based index of branch in ancestor's
// child-branches list, appending it if this is the first fork onto that
// branch seen from this ancestor. Membership and fork order are tracked in
// an orderedset.Set (the same wrapper-around-linkedhashset idiom the
// teacher uses for its fastOrderedIntSet), then flattened onto the Commit
// itself (importer.Commit.ChildBranches) since spec.md §3 treats it as a
// plain field populated during replay.
func (a *BranchAssigner) childBranchIndex(ancestor *importer.Commit, branch string) int {
	set, ok := a.childSets[ancestor]
	if !ok {
		set = orderedset.New()
		a.childSets[ancestor] = set
	}
	if !set.Contains(branch) {
		set.Add(branch)
	}

	values := set.Values()
	ancestor.ChildBranches = make([]string, len(values))
	index := 0
	for i, v := range values {
		name := v.(string)
		ancestor.ChildBranches[i] = name
		if name == branch {
			index = i + 1
		}
	}
	return index
}

// computeBranchTips returns the set of commit marks that are NOT branch
// tips: those with some other commit whose first parent is this one on
// the same branch. Spec.md §4.5's definition ("a commit is the branch tip
// if none of its children shares its branch name") is a whole-DAG
// property, independent of the per-path tip bookkeeping above, so it is
// computed once as a standalone pass rather than threaded through Assign.
func computeBranchTips(repo *importer.Repository) map[string]bool {
	continued := make(map[string]bool)
	for _, c := range repo.Commits() {
		fp := c.FirstParent()
		if fp == "" {
			continue
		}
		if parent, ok := repo.MarkToEvent(fp).(*importer.Commit); ok && parent.Branch == c.Branch {
			continued[parent.Mark] = true
		}
	}
	return continued
}
