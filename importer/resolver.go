package importer

import (
	"strings"

	"gitlab.com/esr/fi2rcs/fault"
	"gitlab.com/esr/fi2rcs/logtag"
)

// resolveGraph is the event-graph resolver of spec.md §4.3: a single
// linear pass over the already-parsed event list that ties each Tag and
// Reset to the commit its committish names. Commit parent marks are left
// as strings — the branch-assignment engine resolves those on demand
// during replay, which keeps this pass O(events) rather than O(events²).
func resolveGraph(repo *Repository, log *logtag.Logger) {
	for _, e := range repo.Events {
		switch ev := e.(type) {
		case *Tag:
			ev.Commit = resolveCommittish(repo, ev.Committish, "tag "+ev.Name)
			if ev.Commit != nil {
				ev.Commit.Tags = append(ev.Commit.Tags, ev)
			}
		case *Reset:
			if ev.Committish == "" {
				continue
			}
			ev.Commit = resolveCommittish(repo, ev.Committish, "reset "+ev.Ref)
			if ev.Commit != nil {
				ev.Commit.Resets = append(ev.Commit.Resets, ev)
			}
		}
	}

	for _, c := range repo.Commits() {
		for _, pm := range c.ParentMarks {
			if strings.HasPrefix(pm, ":") && repo.MarkToEvent(pm) == nil {
				panic(fault.Throw(fault.Semantic, 0, "commit %s: parent mark %s never defined", c.Mark, pm))
			}
		}
	}

	log.Logf(logtag.Ops, "resolved %d commits, %d branches", len(repo.Commits()), len(repo.KnownBranches()))
}

// resolveCommittish resolves a committish to a *Commit. The grammar
// spec.md §4.3 supports is a bare mark (":N") or nothing at all (an
// empty ref, meaning "the branch doesn't exist yet" for a Reset); any
// other form is a fatal unresolved reference, invariant 2.
func resolveCommittish(repo *Repository, committish string, context string) *Commit {
	if committish == "" {
		return nil
	}
	ev := repo.MarkToEvent(committish)
	if ev == nil {
		panic(fault.Throw(fault.Semantic, 0, "%s: unresolved reference %q", context, committish))
	}
	c, ok := ev.(*Commit)
	if !ok {
		panic(fault.Throw(fault.Semantic, 0, "%s: reference %q does not name a commit", context, committish))
	}
	return c
}
