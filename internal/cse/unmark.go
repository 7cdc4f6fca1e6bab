package cse

import "kanso/internal/ir"

// unmarkCSE implements spec.md §4.2's optUnmarkCSE: retract occ's CseTag and
// its contribution to c's def/use bookkeeping together. Every call site that
// deletes or replaces a CSE-tagged instruction (redirectAndRemove,
// spliceReplace) goes through here rather than clearing the tag table
// directly, so DefCount/UseCount never drift from what actually still exists
// in the function after a rewrite -- the bug that let a deleted use stay
// counted in UseCount indefinitely.
func (e *Engine) unmarkCSE(c *Cse, occ occurrence) {
	t := e.tags.get(occ.inst.GetID())
	e.tags.clear(occ.inst.GetID())
	c.occList = removeOccurrence(c.occList, occ.inst)

	switch {
	case t.isDef():
		c.DefCount--
		c.DefWtCnt--
	case t.isUse():
		c.UseCount--
		c.UseWtCnt--
	}
}

func removeOccurrence(occList []occurrence, inst ir.Instruction) []occurrence {
	out := occList[:0:0]
	for _, o := range occList {
		if o.inst != inst {
			out = append(out, o)
		}
	}
	return out
}
