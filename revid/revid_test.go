package revid

import "testing"

func TestFresh(t *testing.T) {
	if got := Fresh().String(); got != "1.1" {
		t.Errorf("Fresh() = %s, want 1.1", got)
	}
}

func TestSuccessor(t *testing.T) {
	cases := []struct{ in, want string }{
		{"1.1", "1.2"},
		{"1.4", "1.5"},
		{"1.1.1.1", "1.1.1.2"},
	}
	for _, c := range cases {
		id, err := Parse(c.in)
		if err != nil {
			t.Fatalf("Parse(%s): %v", c.in, err)
		}
		if got := id.Successor().String(); got != c.want {
			t.Errorf("Successor(%s) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestParent(t *testing.T) {
	cases := []struct{ in, want string }{
		{"1.2", "1.1"},
		{"1.1.1.1", "1.1"},
		{"1.1.1.5", "1.1.1.4"},
	}
	for _, c := range cases {
		id, err := Parse(c.in)
		if err != nil {
			t.Fatalf("Parse(%s): %v", c.in, err)
		}
		if got := id.Parent().String(); got != c.want {
			t.Errorf("Parent(%s) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestParentOfRootPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Parent of 1.1 did not panic")
		}
	}()
	Fresh().Parent()
}

func TestBranchTip(t *testing.T) {
	id, _ := Parse("1.3")
	if got := id.BranchTip(1).String(); got != "1.3.1.1" {
		t.Errorf("BranchTip(1) = %s, want 1.3.1.1", got)
	}
	if got := id.BranchTip(2).String(); got != "1.3.2.1" {
		t.Errorf("BranchTip(2) = %s, want 1.3.2.1", got)
	}
}

func TestBranchOf(t *testing.T) {
	id, _ := Parse("1.3.1.7")
	if got := id.BranchOf().String(); got != "1.3.1" {
		t.Errorf("BranchOf(1.3.1.7) = %s, want 1.3.1", got)
	}
}

func TestSameBranch(t *testing.T) {
	a, _ := Parse("1.3.1.1")
	b, _ := Parse("1.3.1.9")
	c, _ := Parse("1.3.2.1")
	if !a.SameBranch(b) {
		t.Error("1.3.1.1 and 1.3.1.9 should share a branch")
	}
	if a.SameBranch(c) {
		t.Error("1.3.1.1 and 1.3.2.1 should not share a branch")
	}
}

func TestLessOrdering(t *testing.T) {
	seq := []string{"1.1", "1.2", "1.3", "1.3.1.1", "1.3.1.2", "1.4"}
	for i := 1; i < len(seq); i++ {
		a, _ := Parse(seq[i-1])
		b, _ := Parse(seq[i])
		if !a.Less(b) {
			t.Errorf("%s should sort before %s", seq[i-1], seq[i])
		}
	}
}

func TestParseRejectsOddLength(t *testing.T) {
	if _, err := Parse("1.2.3"); err == nil {
		t.Error("Parse(1.2.3) should fail: odd number of components")
	}
}
