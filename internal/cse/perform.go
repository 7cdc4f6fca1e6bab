package cse

import "kanso/internal/ir"

// performCSE rewrites every occurrence of c except the one chosen as its
// canonical definition to reference that definition's result value instead
// of recomputing it, then removes the now-dead recomputation from its block
// (spec.md §4.6). This is the "keep the first computation, redirect every
// later use to it" move, applied across blocks (guided by the data-flow and
// labelling phases that already proved a definition reaches each redirected
// site), plus the shared-constant anchor case spec.md §4.6 step 3 describes.
func (e *Engine) performCSE(c *Cse) {
	if c.abandoned || !c.viable() {
		return
	}

	if c.IsSharedConst {
		e.performSharedConst(c)
	} else {
		e.performPlain(c)
	}
	c.promoted = true
	e.madeChanges = true
}

// performPlain is the common case: every occurrence classified as a use (via
// the tag table, not mere list position) computes a value already available
// from some def, so it is deleted and its result references redirected to
// that def's value. Occurrences classified as defs are never touched here --
// label.go's classifyOccurrence has already proven each one is the first
// computation reaching its own path, and deleting one would read a value not
// actually defined along that path.
//
// c.DefCount can legitimately exceed 1 (candidate.go's viable() only requires
// DefCount+UseCount >= 2): sibling branches of a diamond can each
// independently compute the same expression, with a single redundant reuse
// after the join. There is no one def that dominates every use in that case,
// so every def is promoted onto one shared result value instead (see
// shareDefResult) -- each def keeps computing on its own path, but all of
// them now write the same SSA value identity, so whichever one actually ran
// is what a downstream use reads.
func (e *Engine) performPlain(c *Cse) {
	var defs, uses []occurrence
	for _, occ := range c.occList {
		switch t := e.tags.get(occ.inst.GetID()); {
		case t.isDef():
			defs = append(defs, occ)
		case t.isUse():
			uses = append(uses, occ)
		}
	}
	if len(defs) == 0 || len(uses) == 0 {
		return
	}

	var canonical *ir.Value
	if len(defs) == 1 {
		canonical = defs[0].inst.GetResult()
	} else {
		canonical = e.shareDefResult(defs)
	}
	if canonical == nil {
		return
	}

	for _, occ := range uses {
		e.redirectAndRemove(c, occ, canonical)
	}
}

// shareDefResult promotes two or more mutually-exclusive, non-dominating
// defs of the same candidate onto one freshly allocated result value: each
// def instruction keeps computing on its own path, but its own Result is
// rewritten in place to the shared value's identity, so a use downstream of
// their common join reads whichever one actually executed. Mirrors
// insertSharedConstAdjustment's precedent for synthesizing new Values
// mid-pass, but rewrites existing instructions instead of splicing in new
// ones.
func (e *Engine) shareDefResult(defs []occurrence) *ir.Value {
	first := defs[0].inst.GetResult()
	if first == nil {
		return nil
	}
	// Unifying these defs' identities is only safe if no two of them are on
	// opposite sides of some other candidate's def/use relationship (S6) --
	// otherwise collapsing them here would silently reorder that other
	// candidate's def relative to its own use.
	for i := 0; i < len(defs); i++ {
		for j := i + 1; j < len(defs); j++ {
			if !e.CanSwap(defs[i].inst, defs[j].inst) {
				return nil
			}
		}
	}
	shared := &ir.Value{
		ID:   e.allocValueID(),
		Name: syntheticName("cse_shared", e.allocInstID()),
		Type: first.Type,
	}
	for _, def := range defs {
		old := def.inst.GetResult()
		if old == nil || !setResultValue(def.inst, shared) {
			return nil
		}
		e.redirectUses(old, shared)
		shared.DefInst = def.inst
		shared.DefBlock = def.block
	}
	return shared
}

// setResultValue overwrites inst's own result field in place. Reports false
// for instruction kinds performPlain never sees here (no result, or a
// multi-result shape CSE doesn't candidate today), so callers can bail
// instead of silently dropping a def.
func setResultValue(inst ir.Instruction, v *ir.Value) bool {
	switch i := inst.(type) {
	case *ir.PhiInstruction:
		i.Result = v
	case *ir.LoadInstruction:
		i.Result = v
	case *ir.StorageLoadInstruction:
		i.Result = v
	case *ir.KeyedStorageLoadInstruction:
		i.Result = v
	case *ir.BinaryInstruction:
		i.Result = v
	case *ir.CallInstruction:
		i.Result = v
	case *ir.ConstantInstruction:
		i.Result = v
	case *ir.SenderInstruction:
		i.Result = v
	case *ir.StorageAddrInstruction:
		i.Result = v
	case *ir.CheckedArithInstruction:
		i.ResultVal = v
	case *ir.TopicAddrInstruction:
		i.Result = v
	case *ir.ABIEncU256Instruction:
		i.ResultData = v
	case *ir.EventSignatureInstruction:
		i.Result = v
	default:
		return false
	}
	return true
}

// performSharedConst realizes the shared-constant anchor: the canonical
// occurrence's literal becomes the anchor value. Occurrences whose literal
// matches exactly are redirected straight to the anchor; occurrences whose
// literal only shares the folded high bits get a small ADD inserted in their
// own block (anchor + the literal difference) instead of being deleted,
// since their value is not actually identical to the anchor's (spec.md §4.6
// step 3, §4.1 rule 2).
func (e *Engine) performSharedConst(c *Cse) {
	anchorInst, ok := c.firstOccurrence.inst.(*ir.ConstantInstruction)
	if !ok {
		return
	}
	anchorValue := anchorInst.Result
	anchorLiteral, ok := asUint64(anchorInst.Value)
	if !ok {
		return
	}

	for _, occ := range c.occList {
		if occ.inst == c.firstOccurrence.inst {
			continue
		}
		// Only a use-classified occurrence is a redundant recomputation
		// safe to replace -- an occurrence label.go classified as a def is
		// an independent literal on a path the anchor does not dominate
		// (same hazard performPlain guards against), so it is left alone.
		if !e.tags.get(occ.inst.GetID()).isUse() {
			continue
		}
		occInst, ok := occ.inst.(*ir.ConstantInstruction)
		if !ok {
			continue
		}
		occLiteral, ok := asUint64(occInst.Value)
		if !ok {
			continue
		}
		if occLiteral == anchorLiteral {
			e.redirectAndRemove(c, occ, anchorValue)
			continue
		}
		e.insertSharedConstAdjustment(c, occ, anchorValue, anchorLiteral, occLiteral)
	}
}

// insertSharedConstAdjustment replaces occ's constant instruction with an
// ADD of the shared anchor and a freshly materialized delta constant,
// preserving the occurrence's actual literal value while still routing it
// through the anchor rather than its own independent constant.
func (e *Engine) insertSharedConstAdjustment(c *Cse, occ occurrence, anchor *ir.Value, anchorLiteral, occLiteral uint64) {
	occInst, ok := occ.inst.(*ir.ConstantInstruction)
	if !ok {
		return
	}

	var delta uint64
	if occLiteral >= anchorLiteral {
		delta = occLiteral - anchorLiteral
	} else {
		// Anchor picked from a later-promoted occurrence can end up larger
		// than this one; ADD still works with the two's roles swapped is not
		// representable as a single instruction without a SUB op, so this
		// occurrence is left untouched rather than risk miscompiling it.
		return
	}

	deltaValue := &ir.Value{
		ID:   e.allocValueID(),
		Name: syntheticName("cse_delta", e.allocInstID()),
		Type: occInst.Type,
	}
	deltaConst := &ir.ConstantInstruction{
		ID:     deltaValue.ID,
		Result: deltaValue,
		Block:  occ.block,
		Value:  delta,
		Type:   occInst.Type,
	}
	deltaValue.DefInst = deltaConst
	deltaValue.DefBlock = occ.block

	sumValue := &ir.Value{
		ID:   e.allocValueID(),
		Name: syntheticName("cse_anchor_adj", deltaConst.ID),
		Type: occInst.Type,
	}
	sum := &ir.BinaryInstruction{
		ID:     e.allocInstID(),
		Result: sumValue,
		Block:  occ.block,
		Op:     "ADD",
		Left:   anchor,
		Right:  deltaValue,
	}
	sumValue.DefInst = sum
	sumValue.DefBlock = occ.block

	e.spliceReplace(c, occ, []ir.Instruction{deltaConst, sum})
	e.redirectUses(occInst.Result, sumValue)
}

func syntheticName(prefix string, id int) string {
	return prefix + "_" + itoa(id)
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	pos := len(buf)
	for v > 0 {
		pos--
		buf[pos] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// redirectAndRemove points every use of occ's own result at replacement and
// deletes occ's instruction from its block (spec.md §4.6: the redundant
// recomputation carries no remaining side effects once CSE-eligible, so
// dropping it is safe -- see hasDontCSEEffect in heuristic.go), then unmarks
// it so c's bookkeeping stops counting an occurrence that no longer exists.
func (e *Engine) redirectAndRemove(c *Cse, occ occurrence, replacement *ir.Value) {
	result := occ.inst.GetResult()
	if result != nil {
		e.redirectUses(result, replacement)
	}
	e.removeInstruction(occ.block, occ.inst)
	e.unmarkCSE(c, occ)
}

// spliceReplace replaces occ's single instruction with repl, in place, in
// occ's block instruction list, and unmarks occ (see unmarkCSE) since it no
// longer exists for c to track.
func (e *Engine) spliceReplace(c *Cse, occ occurrence, repl []ir.Instruction) {
	block := occ.block
	out := make([]ir.Instruction, 0, len(block.Instructions)+len(repl))
	for _, inst := range block.Instructions {
		if inst == occ.inst {
			out = append(out, repl...)
			continue
		}
		out = append(out, inst)
	}
	block.Instructions = out
	e.unmarkCSE(c, occ)
}

func (e *Engine) removeInstruction(block *ir.BasicBlock, target ir.Instruction) {
	out := block.Instructions[:0:0]
	for _, inst := range block.Instructions {
		if inst != target {
			out = append(out, inst)
		}
	}
	block.Instructions = out
}

// redirectUses walks every instruction and terminator of the function,
// replacing references to oldValue with newValue in the operands of every
// instruction kind redirectInInstruction and redirectInTerminator handle.
func (e *Engine) redirectUses(oldValue, newValue *ir.Value) {
	if oldValue == nil || oldValue == newValue {
		return
	}
	for _, block := range e.fn.Blocks {
		for _, inst := range block.Instructions {
			redirectInInstruction(inst, oldValue, newValue)
		}
		if block.Terminator != nil {
			redirectInTerminator(block.Terminator, oldValue, newValue)
		}
	}
}

func swapValue(slot **ir.Value, oldValue, newValue *ir.Value) {
	if *slot == oldValue {
		*slot = newValue
	}
}

func redirectInInstruction(inst ir.Instruction, oldValue, newValue *ir.Value) {
	switch i := inst.(type) {
	case *ir.PhiInstruction:
		for block, v := range i.Inputs {
			if v == oldValue {
				i.Inputs[block] = newValue
			}
		}
	case *ir.LoadInstruction:
		swapValue(&i.Address, oldValue, newValue)
	case *ir.StoreInstruction:
		swapValue(&i.Address, oldValue, newValue)
		swapValue(&i.Value, oldValue, newValue)
	case *ir.StorageLoadInstruction:
		swapValue(&i.Slot, oldValue, newValue)
	case *ir.StorageStoreInstruction:
		swapValue(&i.Slot, oldValue, newValue)
		swapValue(&i.Value, oldValue, newValue)
	case *ir.KeyedStorageLoadInstruction:
		swapValue(&i.Key, oldValue, newValue)
	case *ir.KeyedStorageStoreInstruction:
		swapValue(&i.Key, oldValue, newValue)
		swapValue(&i.Value, oldValue, newValue)
	case *ir.BinaryInstruction:
		swapValue(&i.Left, oldValue, newValue)
		swapValue(&i.Right, oldValue, newValue)
	case *ir.CallInstruction:
		for j, arg := range i.Args {
			if arg == oldValue {
				i.Args[j] = newValue
			}
		}
	case *ir.EmitInstruction:
		for j, arg := range i.Args {
			if arg == oldValue {
				i.Args[j] = newValue
			}
		}
	case *ir.RequireInstruction:
		swapValue(&i.Condition, oldValue, newValue)
		swapValue(&i.Error, oldValue, newValue)
	case *ir.StorageAddrInstruction:
		for j, key := range i.Keys {
			if key == oldValue {
				i.Keys[j] = newValue
			}
		}
	case *ir.CheckedArithInstruction:
		swapValue(&i.Left, oldValue, newValue)
		swapValue(&i.Right, oldValue, newValue)
	case *ir.AssumeInstruction:
		swapValue(&i.Predicate, oldValue, newValue)
	case *ir.LogInstruction:
		swapValue(&i.Signature, oldValue, newValue)
		for j, arg := range i.TopicArgs {
			if arg == oldValue {
				i.TopicArgs[j] = newValue
			}
		}
		swapValue(&i.DataPtr, oldValue, newValue)
		swapValue(&i.DataLen, oldValue, newValue)
	case *ir.TopicAddrInstruction:
		swapValue(&i.Address, oldValue, newValue)
	case *ir.ABIEncU256Instruction:
		swapValue(&i.Value, oldValue, newValue)
	}
}

func redirectInTerminator(term ir.Terminator, oldValue, newValue *ir.Value) {
	switch t := term.(type) {
	case *ir.BranchTerminator:
		swapValue(&t.Condition, oldValue, newValue)
	case *ir.ReturnTerminator:
		swapValue(&t.Value, oldValue, newValue)
	}
}
