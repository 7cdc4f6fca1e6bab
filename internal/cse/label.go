package cse

import (
	"kanso/internal/ir"
	"kanso/internal/vn"
)

// label performs spec.md §4.4 over every block of fn, in any block order
// (each block's in-set is self-contained), walking instructions within a
// block in source order. kanso's IR is already flattened to one instruction
// per "statement" with operands guaranteed to have been defined earlier in
// the same SSA walk, so the tree's "bottom-up, operands before parents"
// requirement is satisfied automatically by iterating block.Instructions in
// order -- there is no nested-tree walk to perform separately.
func (e *Engine) label(fn *ir.Function, flows map[*ir.BasicBlock]*blockFlow) {
	for _, block := range fn.Blocks {
		bf := flows[block]
		available := bf.in.clone()

		for _, inst := range block.Instructions {
			if isCallInstruction(inst) {
				e.labelCallSite(inst, available)
				continue
			}
			t := e.tags.get(inst.GetID())
			if t.isNone() {
				continue
			}
			c := e.table.findDsc(t.index())
			if c == nil || c.abandoned {
				continue
			}
			e.classifyOccurrence(c, inst, available)
		}
	}
}

// labelCallSite applies the call-kill rule to the running available set
// unless the call has itself been pre-classified as a CSE def (spec.md §4.4
// item 5) -- recognized by the call's own CseTag already being set to a def
// by an earlier phase. kanso has no helper-materializes-a-CSE-value notion
// today, so in practice every call clears availCrossCallBit for every
// candidate; the check is kept so a future "CSE-able helper call" tag would
// be honored without further change here.
func (e *Engine) labelCallSite(inst ir.Instruction, available *availSet) {
	if t := e.tags.get(inst.GetID()); t.isDef() {
		return
	}
	// Any candidate whose availability survives up to this call, and that
	// later sees a use past it, gets flagged liveAcrossCall when that use
	// is processed (see reconcileUse). Clearing here is the actual kill.
	for i := 1; i <= e.table.count(); i++ {
		available.clearAvailCrossCall(i)
	}
}

func (e *Engine) classifyOccurrence(c *Cse, inst ir.Instruction, available *availSet) {
	i := c.Index
	isUse := available.isAvail(i)

	liberal := e.numberer.PairOf(inst).Liberal
	excSet := e.numberer.Store.ExceptionSet(liberal)

	if isUse {
		e.reconcileUse(c, inst, excSet, available)
	} else {
		e.tags.set(inst.GetID(), defTag(i))
		if e.reconcileDef(c, excSet) {
			available.setAvail(i)
			available.setAvailCrossCall(i)
		} else {
			// Abandonment: this def's tag is cleared too (spec.md §7).
			e.tags.clear(inst.GetID())
		}
	}

	e.trackConservativeVN(c, inst)
}

// reconcileDef updates defExcSetCurrent per spec.md §4.4 item 2 "On a def".
// Returns false when the candidate must be abandoned.
func (e *Engine) reconcileDef(c *Cse, excSet vn.ExcSet) bool {
	if !c.defExcSetCurrentValid {
		c.defExcSetCurrent = excSet
		c.defExcSetCurrentValid = true
		c.DefCount++
		c.DefWtCnt++
		return true
	}
	if vn.ExcIsSubset(c.defExcSetPromise, excSet) {
		c.defExcSetCurrent = vn.ExcSetIntersection(c.defExcSetCurrent, excSet)
		c.DefCount++
		c.DefWtCnt++
		return true
	}
	c.abandoned = true
	return false
}

// reconcileUse updates defExcSetPromise and classifies or drops the use per
// spec.md §4.4 item 2 "On a use", then marks availability and live-across-
// call per item 5/6.
func (e *Engine) reconcileUse(c *Cse, inst ir.Instruction, excSet vn.ExcSet, available *availSet) {
	i := c.Index
	if !c.defExcSetCurrentValid {
		// Use observed before any def (e.g. a bottom-tested loop back-edge).
		c.defExcSetPromise = vn.ExcSetUnion(c.defExcSetPromise, excSet)
	} else if vn.ExcIsSubset(excSet, c.defExcSetCurrent) {
		c.defExcSetPromise = vn.ExcSetUnion(c.defExcSetPromise, excSet)
	}

	if !vn.ExcIsSubset(excSet, c.defExcSetPromise) {
		// This particular use cannot be satisfied by what defs promise:
		// skip it (clear its tag) but keep the candidate alive.
		e.tags.clear(inst.GetID())
		return
	}

	if !available.isAvailCrossCall(i) {
		c.LiveAcrossCall = true
	}
	c.UseCount++
	c.UseWtCnt++
}

// trackConservativeVN implements spec.md §4.4 item 3: non-shared-const
// candidates track a single conservative normal VN across defs; divergence
// sets defConservNormVN to "no VN" permanently.
func (e *Engine) trackConservativeVN(c *Cse, inst ir.Instruction) {
	if c.IsSharedConst || c.conservDiverged {
		return
	}
	t := e.tags.get(inst.GetID())
	if !t.isDef() {
		return
	}
	conserv := e.numberer.PairOf(inst).Conservative
	if !c.defConservNormVNValid {
		c.defConservNormVN = conserv
		c.defConservNormVNValid = true
		return
	}
	if c.defConservNormVN != conserv {
		c.conservDiverged = true
		c.defConservNormVNValid = false
	}
}
