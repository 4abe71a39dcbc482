package rcsdriver

import (
	"fmt"
	"sort"
	"strings"

	"gitlab.com/esr/fi2rcs/importer"
)

// buildComment renders the check-in comment for a commit: the raw stream
// comment in plain mode, or an RFC-822-style header envelope in
// round-trip mode carrying everything RCS itself cannot store (spec.md
// §4.6, P6). Grounded on reposurgeon's MessageBlock/Commit.emailOut,
// trimmed to the header set this spec calls for.
func buildComment(commit *importer.Commit, roundTrip bool) string {
	if !roundTrip {
		return commit.Comment
	}

	var b strings.Builder
	for i, author := range commit.Authors {
		label := "Author"
		if i > 0 {
			label = fmt.Sprintf("Author%d", i+1)
		}
		fmt.Fprintf(&b, "%s: %s\n", label, author.NameEmail())
		fmt.Fprintf(&b, "%s-Date: %s\n", label, author.Date.String())
	}
	fmt.Fprintf(&b, "Committer: %s\n", commit.Committer.NameEmail())
	fmt.Fprintf(&b, "Committer-Date: %s\n", commit.Committer.Date.String())

	var flagged []string
	var valued []string
	values := make(map[string]string)
	for _, p := range commit.Properties {
		if p.Flag {
			flagged = append(flagged, p.Name)
		} else {
			valued = append(valued, p.Name)
			values[p.Name] = p.Value
		}
	}
	sort.Strings(valued)
	for _, name := range valued {
		fmt.Fprintf(&b, "Property-%s: %s\n", capitalize(name), values[name])
	}
	if len(flagged) > 0 {
		sort.Strings(flagged)
		fmt.Fprintf(&b, "Empty-Properties: %s\n", strings.Join(flagged, ","))
	}

	fmt.Fprintf(&b, "Mark: %s\n", commit.Mark)
	if len(commit.ParentMarks) > 0 {
		fmt.Fprintf(&b, "Parents: %s\n", strings.Join(commit.ParentMarks, ","))
	}

	b.WriteByte('\n')
	b.WriteString(commit.Comment)
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// escapeQuotes applies the standard shell single-quote-close / quote /
// reopen sequence so a comment containing "'" survives being wrapped in
// single quotes on an RCS command line (spec.md §4.6).
func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, "'", `'\''`)
}
