package importer

import "gitlab.com/esr/fi2rcs/fault"

// Repository is the ordered event list plus the bookkeeping the parser
// needs while building it: mark resolution and the set of branch names
// seen so far. It owns the Scratch that backs every blob and inline spill
// file created while parsing spec.md §3's Repository.
type Repository struct {
	Events []Event

	marks         map[string]Event
	knownBranches map[string]bool
	Scratch       *Scratch
}

// NewRepository creates an empty Repository backed by the given scratch
// area.
func NewRepository(scratch *Scratch) *Repository {
	return &Repository{
		Events:        make([]Event, 0, 1024),
		marks:         make(map[string]Event),
		knownBranches: make(map[string]bool),
		Scratch:       scratch,
	}
}

// AddEvent appends an event to the list and, if it carries a mark,
// registers it for later resolution.
func (r *Repository) AddEvent(e Event) {
	r.Events = append(r.Events, e)
	if mark := e.eventMark(); mark != "" {
		r.marks[mark] = e
	}
}

// MarkToEvent resolves a ":N" mark to the event that defined it, or nil
// if the mark was never seen. Callers turn a nil result into a fatal
// "unresolved mark" diagnostic (spec.md invariant 1/2).
func (r *Repository) MarkToEvent(mark string) Event {
	return r.marks[mark]
}

// RegisterBranch records a branch name as known, used only for
// diagnostics (spec.md §3's "set of known branch names").
func (r *Repository) RegisterBranch(name string) {
	r.knownBranches[name] = true
}

// KnownBranches reports every branch name observed while parsing.
func (r *Repository) KnownBranches() []string {
	out := make([]string, 0, len(r.knownBranches))
	for name := range r.knownBranches {
		out = append(out, name)
	}
	return out
}

// Commits returns the event list filtered down to *Commit, in stream
// order, the sequence the replay engine iterates over.
func (r *Repository) Commits() []*Commit {
	out := make([]*Commit, 0, len(r.Events))
	for _, e := range r.Events {
		if c, ok := e.(*Commit); ok {
			out = append(out, c)
		}
	}
	return out
}

// requireBlob resolves a mark to a *Blob or panics with a classed semantic
// error naming the offending mark, per invariant 1.
func (r *Repository) requireBlob(mark string, line int) *Blob {
	ev := r.MarkToEvent(mark)
	if ev == nil {
		panic(fault.Throw(fault.Semantic, line, "reference to unknown mark %s", mark))
	}
	blob, ok := ev.(*Blob)
	if !ok {
		panic(fault.Throw(fault.Semantic, line, "mark %s does not refer to a blob", mark))
	}
	return blob
}
