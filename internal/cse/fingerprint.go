package cse

import (
	"kanso/internal/ir"
	"kanso/internal/vn"
)

// relocatable reports whether a constant value should never be shared-const
// folded (GC handles, relocatable addresses). The kanso IR only ever
// constant-folds integer/bool/address literals that are fixed at compile
// time (internal/ir/optimizations.go's ConstantFolding), so nothing here is
// ever relocatable; the hook exists to keep the rule from spec.md §4.1
// explicit rather than silently dropped.
func relocatable(value interface{}) bool { return false }

// isNonNullGCHandle mirrors the spec's second shared-const exclusion. The
// kanso IR has no GC-handle constant kind, so this is always false; kept as
// a named predicate so the exclusion is visible in the code, not silently
// absorbed into "otherwise."
func isNonNullGCHandle(value interface{}) bool { return false }

// encodeSharedConst folds the low `shiftBits` bits of an integral constant
// and sets the distinguished high bit so shared-const keys never collide
// with a plain VN-valued key (spec.md §4.1 rule 2).
func encodeSharedConst(value uint64, shiftBits uint) Key {
	return Key(value>>shiftBits) | sharedConstKeyBit
}

// commaLike is implemented by instructions the surrounding compiler treats
// as "evaluate for effect, then yield another value" (spec.md §4.1 rule 1).
// The kanso IR is already flattened into basic blocks of single-effect
// instructions, so nothing implements it today -- but the lookup stays in
// the key-selection switch below so the rule is expressed, not omitted, and
// a future expression-tree-shaped instruction can opt in.
type commaLike interface {
	ir.Instruction
	CommaValue() *ir.Value
}

// fingerprintKey computes the candidate key for inst per spec.md §4.1's
// three rules, in order.
func (e *Engine) fingerprintKey(inst ir.Instruction) (key Key, sharedConst bool, ok bool) {
	result := inst.GetResult()
	if result == nil {
		return 0, false, false
	}
	pair := e.numberer.PairOf(inst)
	if pair.Liberal == vn.NoVN {
		return 0, false, false
	}

	// Rule 1: two-arg comma whose tail changed the exception set.
	if c, isComma := inst.(commaLike); isComma {
		tailPair := e.numberer.PairOf(findDefiner(c.CommaValue()))
		if tailPair.Liberal != pair.Liberal {
			return Key(pair.Liberal), false, true
		}
		return Key(e.numberer.Store.NormalValue(pair.Liberal)), false, true
	}

	// Rule 2: shared integral constant.
	if e.cfg.ConstCSE == ConstCSEShared {
		if ci, isConst := inst.(*ir.ConstantInstruction); isConst {
			if iv, isUint := asUint64(ci.Value); isUint && !relocatable(ci.Value) && !isNonNullGCHandle(ci.Value) {
				return encodeSharedConst(iv, e.cfg.SharedConstShiftBits), true, true
			}
		}
	}

	// Rule 3: plain normal VN.
	return Key(e.numberer.Store.NormalValue(pair.Liberal)), false, true
}

func asUint64(value interface{}) (uint64, bool) {
	switch v := value.(type) {
	case uint64:
		return v, true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}

func findDefiner(v *ir.Value) ir.Instruction {
	if v == nil {
		return nil
	}
	return v.DefInst
}

// locate is the fingerprinting pass: it walks every instruction of fn in
// block/instruction order, computes keys for eligible instructions, and
// groups repeats into Cse descriptors with CseTag set to +index on every
// occurrence (spec.md §4.1, §4.2).
func (e *Engine) locate(fn *ir.Function) {
	for _, block := range fn.Blocks {
		for pos, inst := range block.Instructions {
			if !e.eligible(inst) {
				continue
			}
			key, sharedConst, ok := e.fingerprintKey(inst)
			if !ok {
				continue
			}
			occ := occurrence{inst: inst, block: block, pos: pos}
			e.recordOccurrence(key, sharedConst, occ)
		}
	}
}

// eligible applies the heuristic's legality gate (spec.md §4.5.1
// ConsiderTree) before a tree is even allowed to become a candidate.
func (e *Engine) eligible(inst ir.Instruction) bool {
	if inst.GetResult() == nil {
		return false
	}
	if inst.IsTerminator() {
		return false
	}
	return e.heuristic.ConsiderTree(e, inst)
}

// recordOccurrence only materializes a Cse descriptor once a key has been
// seen at least twice (spec.md §3: "one per distinct fingerprint that
// appears at least twice"); a single sighting is remembered in e.pending
// until (if ever) a second sighting promotes it into a real candidate.
func (e *Engine) recordOccurrence(key Key, sharedConst bool, occ occurrence) {
	if existing := e.table.lookup(key); existing != nil {
		e.maybePromote(existing, occ)
		existing.occList = append(existing.occList, occ)
		return
	}

	first, seenOnce := e.pending[key]
	if !seenOnce {
		e.pending[key] = occ
		return
	}
	delete(e.pending, key)

	c := e.table.insertNew(key, sharedConst)
	if c == nil {
		// CSE_TABLE_FULL: stop creating new candidates; does not abort the
		// pass (spec.md §7).
		return
	}
	c.firstOccurrence = first
	c.occList = append(c.occList, first, occ)
	e.maybePromote(c, occ)
}

// maybePromote implements the promotion-swap rule: when the recorded first
// occurrence precedes a later occurrence in the same block (the dominance
// proxy) and its liberal exception set is a strict superset of the later
// one's, the later occurrence becomes the canonical first occurrence
// (spec.md §4.1 "Insertion"; §8 B4).
func (e *Engine) maybePromote(c *Cse, later occurrence) {
	first := c.firstOccurrence
	if first.block != later.block {
		return
	}
	if first.pos >= later.pos {
		return
	}
	firstExc := e.numberer.Store.ExceptionSet(e.numberer.PairOf(first.inst).Liberal)
	laterExc := e.numberer.Store.ExceptionSet(e.numberer.PairOf(later.inst).Liberal)
	if vn.ExcIsSubset(laterExc, firstExc) && laterExc != firstExc {
		c.firstOccurrence = later
	}
}
