// Package version relates one version of an entity to the versions immediately before and after
// it, so as to answer when that version was valid.
package version

import "fmt"

// Window holds three versions of the same entity: the current one, and the versions immediately
// preceding and succeeding it. A version is valid from its own timestamp up to, but not including,
// the timestamp of its successor.
//
// When the current version is the first known one, prev is the same record as curr. When it is
// the last known one, next is the same record as curr. NewWindow detects these cases by comparing
// the records' identity, not their content.
//
// The zero value is an empty window. Every method other than IsEmpty and String panics with
// ErrEmptyWindow when called on an empty window.
//
// A Window never modifies its records. The caller must not modify them either while the window is
// in use.
type Window struct {
	prev, curr, next Record
	first, last      bool
}

// EmptyWindow returns a Window holding no records.
func EmptyWindow() Window {
	return Window{}
}

// NewWindow binds the given versions of one entity together.
//
// NewWindow panics if any of the records is nil, or if they disagree on their item type or ID.
func NewWindow(prev, curr, next Record) Window {
	if prev == nil || curr == nil || next == nil {
		panic(ErrUnboundRecord)
	}
	if t := curr.Type(); prev.Type() != t || next.Type() != t {
		panic(mismatchedTypeError{prev.Type(), t, next.Type()})
	}
	if id := curr.ID(); prev.ID() != id || next.ID() != id {
		panic(mismatchedIDError{prev.ID(), id, next.ID()})
	}
	return Window{
		prev:  prev,
		curr:  curr,
		next:  next,
		first: prev == curr,
		last:  curr == next,
	}
}

func (w Window) mustBeBound() {
	if w.curr == nil {
		panic(ErrEmptyWindow)
	}
}

// IsEmpty reports whether the window holds no records.
func (w Window) IsEmpty() bool {
	return w.curr == nil
}

// Prev returns the version preceding the current one, or the current one if it is the first.
func (w Window) Prev() Record {
	w.mustBeBound()
	return w.prev
}

// Curr returns the current version.
func (w Window) Curr() Record {
	w.mustBeBound()
	return w.curr
}

// Next returns the version succeeding the current one, or the current one if it is the last.
func (w Window) Next() Record {
	w.mustBeBound()
	return w.next
}

// IsFirst reports whether no version precedes the current one.
func (w Window) IsFirst() bool {
	w.mustBeBound()
	return w.first
}

// IsLast reports whether no version succeeds the current one.
func (w Window) IsLast() bool {
	w.mustBeBound()
	return w.last
}

func (w Window) Type() ItemType {
	w.mustBeBound()
	return w.curr.Type()
}

func (w Window) ID() ObjectID {
	w.mustBeBound()
	return w.curr.ID()
}

func (w Window) Version() VersionNumber {
	w.mustBeBound()
	return w.curr.Version()
}

func (w Window) Changeset() ChangesetID {
	w.mustBeBound()
	return w.curr.Changeset()
}

// StartTime returns the time at which the current version became valid.
func (w Window) StartTime() Timestamp {
	w.mustBeBound()
	return w.curr.Timestamp()
}

// EndTime returns the time at which the current version stopped being valid, being the time at
// which its successor became valid. For the last version, EndTime returns EndOfTime.
func (w Window) EndTime() Timestamp {
	w.mustBeBound()
	if w.last {
		return EndOfTime
	}
	return w.next.Timestamp()
}

// Overlaps reports whether the current version was valid at some point in the half-open interval
// [from, to).
//
// A version superseded at the same instant it was created has an empty validity interval. Such a
// version overlaps the query interval when that instant lies within [from, to).
func (w Window) Overlaps(from, to Timestamp) bool {
	start, end := w.StartTime(), w.EndTime()
	if start == end {
		return start < to && end >= from
	}
	return start < to && end > from
}

// IsVisibleAt reports whether the current version was valid at time t and did not mark the entity
// as deleted.
func (w Window) IsVisibleAt(t Timestamp) bool {
	start, end := w.StartTime(), w.EndTime()
	return start <= t && t < end && w.curr.Visible()
}

func (w Window) String() string {
	if w.IsEmpty() {
		return "<empty window>"
	}
	return fmt.Sprintf("%s/%d v%d [%s, %s)", w.Type(), w.ID(), w.Version(), w.StartTime(), w.EndTime())
}
