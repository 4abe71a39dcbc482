package rcsdriver

import (
	"testing"

	"gitlab.com/esr/fi2rcs/importer"
)

func TestAssignFreshMaster(t *testing.T) {
	repo := importer.NewRepository(nil)
	c1 := &importer.Commit{Mark: ":1", Branch: "refs/heads/master"}
	repo.AddEvent(c1)

	a := NewBranchAssigner(repo)
	rev := a.Assign(c1, "README")
	if rev.String() != "1.1" {
		t.Fatalf("got %s, want 1.1", rev)
	}
}

func TestAssignTwoCommitTrunk(t *testing.T) {
	repo := importer.NewRepository(nil)
	c1 := &importer.Commit{Mark: ":1", Branch: "refs/heads/master"}
	c2 := &importer.Commit{Mark: ":2", Branch: "refs/heads/master", ParentMarks: []string{":1"}}
	repo.AddEvent(c1)
	repo.AddEvent(c2)

	a := NewBranchAssigner(repo)
	r1 := a.Assign(c1, "README")
	a.NoteMasterCreated("README")
	r2 := a.Assign(c2, "README")

	if r1.String() != "1.1" {
		t.Fatalf("c1 got %s, want 1.1", r1)
	}
	if r2.String() != "1.2" {
		t.Fatalf("c2 got %s, want 1.2", r2)
	}
	if !r2.Parent().Equal(r1) {
		t.Fatalf("c2's parent %s should equal c1's revision %s", r2.Parent(), r1)
	}
}

// TestAssignBranchFork reproduces spec.md §8 scenario 3: C1 on master,
// C2 on master (child of C1), C3 on topic (child of C1). Expects
// C1->1.1, C2->1.2, C3->1.1.1.1, and C1.ChildBranches == ["topic"].
func TestAssignBranchFork(t *testing.T) {
	repo := importer.NewRepository(nil)
	c1 := &importer.Commit{Mark: ":1", Branch: "refs/heads/master"}
	c2 := &importer.Commit{Mark: ":2", Branch: "refs/heads/master", ParentMarks: []string{":1"}}
	c3 := &importer.Commit{Mark: ":3", Branch: "refs/heads/topic", ParentMarks: []string{":1"}}
	repo.AddEvent(c1)
	repo.AddEvent(c2)
	repo.AddEvent(c3)

	a := NewBranchAssigner(repo)
	r1 := a.Assign(c1, "README")
	a.NoteMasterCreated("README")
	r2 := a.Assign(c2, "README")
	r3 := a.Assign(c3, "README")

	if r1.String() != "1.1" {
		t.Fatalf("c1 got %s, want 1.1", r1)
	}
	if r2.String() != "1.2" {
		t.Fatalf("c2 got %s, want 1.2", r2)
	}
	if r3.String() != "1.1.1.1" {
		t.Fatalf("c3 got %s, want 1.1.1.1", r3)
	}
	if len(c1.ChildBranches) != 1 || c1.ChildBranches[0] != "refs/heads/topic" {
		t.Fatalf("c1.ChildBranches = %v, want [refs/heads/topic]", c1.ChildBranches)
	}
}

func TestAssignFatalWhenNoAncestorOwnsTip(t *testing.T) {
	repo := importer.NewRepository(nil)
	c1 := &importer.Commit{Mark: ":1", Branch: "refs/heads/master"}
	c2 := &importer.Commit{Mark: ":2", Branch: "refs/heads/master", ParentMarks: []string{":1"}}
	repo.AddEvent(c1)
	repo.AddEvent(c2)

	a := NewBranchAssigner(repo)
	// Force "README" to look like an existing master with no tip ever
	// recorded for any ancestor of c2.
	a.NoteMasterCreated("README")

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic when no ancestor owns the tip")
		}
	}()
	a.Assign(c2, "README")
}

func TestComputeBranchTips(t *testing.T) {
	repo := importer.NewRepository(nil)
	c1 := &importer.Commit{Mark: ":1", Branch: "refs/heads/master"}
	c2 := &importer.Commit{Mark: ":2", Branch: "refs/heads/master", ParentMarks: []string{":1"}}
	c3 := &importer.Commit{Mark: ":3", Branch: "refs/heads/topic", ParentMarks: []string{":1"}}
	repo.AddEvent(c1)
	repo.AddEvent(c2)
	repo.AddEvent(c3)

	notTip := computeBranchTips(repo)
	if !notTip[":1"] {
		t.Error("c1 should not be a branch tip: c2 continues its branch")
	}
	if notTip[":2"] {
		t.Error("c2 should be a branch tip: nothing continues master from it")
	}
	if notTip[":3"] {
		t.Error("c3 should be a branch tip: nothing continues topic from it")
	}
}
