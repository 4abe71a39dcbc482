// Package revid implements the RCS revision-ID algebra of spec.md §4.4:
// dotted-number identifiers and the four operations the branch-assignment
// and replay engines build on (fresh, successor, parent, branch tip).
package revid

import (
	"fmt"
	"strconv"
	"strings"
)

// ID is an RCS revision number: a non-empty, even-length sequence of
// positive integers. len(ID) == 2 is a trunk revision ("1.4"); longer
// sequences are branch revisions ("1.4.1.2"). The zero value is not a
// valid ID; use Fresh to build the first one.
type ID []int

// Fresh returns the first revision on the trunk, "1.1".
func Fresh() ID {
	return ID{1, 1}
}

// String renders the dotted-decimal form RCS itself uses.
func (r ID) String() string {
	parts := make([]string, len(r))
	for i, n := range r {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

// Successor returns the next revision on the same branch as r, i.e. r
// with its last component incremented.
func (r ID) Successor() ID {
	out := append(ID(nil), r...)
	out[len(out)-1]++
	return out
}

// Parent returns the revision r was checked in on top of. On the same
// branch this decrements the last component; at the root of a branch
// (last component == 1) it climbs back to the fork point by dropping the
// branch's last two components. Parent of the trunk root "1.1" has no
// meaning and panics — callers must check r.IsRoot() first.
func (r ID) Parent() ID {
	if len(r) == 2 && r[1] == 1 {
		panic(fmt.Sprintf("revid: no parent of trunk root %s", r))
	}
	out := append(ID(nil), r...)
	if out[len(out)-1] > 1 {
		out[len(out)-1]--
		return out
	}
	return out[:len(out)-2]
}

// IsRoot reports whether r is the trunk root "1.1", the one ID with no
// parent.
func (r ID) IsRoot() bool {
	return len(r) == 2 && r[0] == 1 && r[1] == 1
}

// BranchTip returns the first revision on the k'th branch forked from r,
// i.e. r with ".k.1" appended. k is the 1-based branch-fork index kept by
// the branch-assignment engine's ChildBranches bookkeeping.
func (r ID) BranchTip(k int) ID {
	out := make(ID, 0, len(r)+2)
	out = append(out, r...)
	out = append(out, k, 1)
	return out
}

// BranchOf returns the branch identifier a revision lives on: r with its
// last component dropped. Two revisions are on the same branch iff their
// BranchOf results are equal. The trunk's branch identifier is "1".
func (r ID) BranchOf() ID {
	return append(ID(nil), r[:len(r)-1]...)
}

// SameBranch reports whether r and other share a branch.
func (r ID) SameBranch(other ID) bool {
	return r.BranchOf().Equal(other.BranchOf())
}

// Equal reports whether r and other are the identical revision.
func (r ID) Equal(other ID) bool {
	if len(r) != len(other) {
		return false
	}
	for i := range r {
		if r[i] != other[i] {
			return false
		}
	}
	return true
}

// Less reports whether r sorts before other in dotted-number order,
// comparing component by component and treating a shorter, otherwise
// equal prefix as smaller (spec.md invariant P1: revisions issued on a
// branch strictly increase in this order).
func (r ID) Less(other ID) bool {
	for i := 0; i < len(r) && i < len(other); i++ {
		if r[i] != other[i] {
			return r[i] < other[i]
		}
	}
	return len(r) < len(other)
}

// Parse parses a dotted-decimal revision number such as "1.4.1.2".
func Parse(s string) (ID, error) {
	fields := strings.Split(s, ".")
	if len(fields) == 0 || len(fields)%2 != 0 {
		return nil, fmt.Errorf("revid: malformed revision number %q", s)
	}
	out := make(ID, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("revid: malformed revision component %q in %q", f, s)
		}
		out[i] = n
	}
	return out, nil
}
