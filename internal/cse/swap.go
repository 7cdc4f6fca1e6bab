package cse

import "kanso/internal/ir"

// CanSwap reports whether two occurrences may have their result identities
// merged or reordered without disturbing some other candidate's def/use
// relationship (spec.md §4.7 property S6). kanso's IR is already flattened
// to one instruction per "statement" (label.go's comment on label(): no
// tree-of-nodes layer to walk), so there is no sibling-subtree transposition
// to perform here -- the question S6 actually asks in this engine is
// narrower: do a and b's CseTags belong to the same candidate, on opposite
// sides of def and use? If so, treating them as interchangeable (as
// shareDefResult does when unifying two independent defs of one candidate
// onto a shared value) would reorder that candidate's def relative to its
// own use and is never safe. Anything else -- untagged instructions,
// occurrences of different candidates, or two defs/two uses of the same
// one -- is disjoint and may be merged or reordered freely.
func (e *Engine) CanSwap(a, b ir.Instruction) bool {
	ta := e.tags.get(a.GetID())
	tb := e.tags.get(b.GetID())
	if ta.isNone() || tb.isNone() {
		return true
	}
	if ta.index() != tb.index() {
		return true
	}
	return !((ta.isDef() && tb.isUse()) || (ta.isUse() && tb.isDef()))
}
