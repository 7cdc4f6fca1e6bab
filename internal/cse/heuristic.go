package cse

import (
	"sort"

	"kanso/internal/ir"
)

// Heuristic is the pluggable policy framework of spec.md §4.5. The four
// concrete heuristics (Standard, Random, Replay, RL) are a closed,
// enumerated set, so this is a plain interface plus a shared HeuristicBase
// struct rather than a deep inheritance hierarchy -- the Go analogue of the
// "variant instead of inheritance" design note in spec.md §9.
type Heuristic interface {
	// ConsiderTree is the legality + cheap filter from spec.md §4.5.1: true
	// iff inst may become a candidate at all.
	ConsiderTree(e *Engine, inst ir.Instruction) bool
	// Initialize precomputes whatever per-function state the heuristic
	// needs (register-class cutoffs, frame-size estimate, RNG seed, ...).
	Initialize(e *Engine)
	// SortCandidates produces the ordered working set ConsiderCandidates
	// iterates.
	SortCandidates(e *Engine) []*Cse
	// PromotionCheck decides whether one candidate should be promoted.
	PromotionCheck(e *Engine, c *Cse) bool
	// AdjustHeuristic is called after every successful promotion to let the
	// heuristic tighten its own thresholds (feedback).
	AdjustHeuristic(e *Engine, c *Cse)
	// ConsiderCandidates drives the PromotionCheck/PerformCSE loop.
	ConsiderCandidates(e *Engine) Status
}

// HeuristicBase holds the state every concrete heuristic shares: the sorted
// candidate array, whether any change was made, and the code-optimization
// kind (spec.md §9: "split that state into a HeuristicBase struct embedded
// by each variant").
type HeuristicBase struct {
	sortTab     []*Cse
	madeChanges bool
	codeOptKind CodeOptKind
}

func (b *HeuristicBase) considerTreeCommon(e *Engine, inst ir.Instruction) bool {
	result := inst.GetResult()
	if result == nil {
		return false
	}
	if isVoidType(result.Type) {
		return false
	}
	if hasDontCSEEffect(inst) {
		return false
	}
	ex, _ := costOf(inst)
	if ex < minCSECost {
		return false
	}
	if isVolatileLoad(inst) {
		return false
	}
	if isAllocatorHelperCall(e.cfg, inst) {
		return false
	}
	if isMemoryIntrinsic(inst) {
		return false
	}
	if inst.IsTerminator() {
		return false
	}
	if _, isConst := inst.(*ir.ConstantInstruction); isConst && e.cfg.ConstCSE == ConstCSEDisabled {
		return false
	}
	return true
}

// minCSECost is the MIN_CSE_COST threshold of spec.md §4.5.1.
const minCSECost = 2

func hasDontCSEEffect(inst ir.Instruction) bool {
	switch inst.(type) {
	case *ir.StoreInstruction, *ir.StorageStoreInstruction, *ir.KeyedStorageStoreInstruction,
		*ir.EmitInstruction, *ir.RequireInstruction, *ir.LogInstruction, *ir.RevertInstruction,
		*ir.AssumeInstruction:
		return true
	default:
		return false
	}
}

// isVoidType reports whether t is the unit/void tuple type `()` (spec.md
// §4.5.1 "trees of void type").
func isVoidType(t ir.Type) bool {
	tup, ok := t.(*ir.TupleType)
	return ok && len(tup.Elements) == 0
}

func isVolatileLoad(inst ir.Instruction) bool {
	// kanso's IR has no volatile-qualified load today; named so a future
	// MemoryRegion/volatile flag only needs to be read here.
	return false
}

func isAllocatorHelperCall(cfg Config, inst ir.Instruction) bool {
	call, ok := inst.(*ir.CallInstruction)
	if !ok {
		return false
	}
	return cfg.AllocatorHelperNames[call.Function]
}

func isMemoryIntrinsic(inst ir.Instruction) bool {
	switch inst.(type) {
	case *ir.LoadInstruction, *ir.StoreInstruction:
		return false // ordinary loads/stores are ordinary CSE candidates
	case *ir.ABIEncU256Instruction:
		return true // memory-writing intrinsic, excluded per spec.md §4.5.1
	default:
		return false
	}
}

// sortByCandidateValue orders candidates by (defCount+useCount) descending,
// then by Index ascending for determinism -- the order Standard and RL use
// (Random shuffles; Replay follows the configured sequence).
func sortByCandidateValue(cands []*Cse) []*Cse {
	out := append([]*Cse{}, cands...)
	sort.SliceStable(out, func(i, j int) bool {
		wi := out[i].DefCount + out[i].UseCount
		wj := out[j].DefCount + out[j].UseCount
		if wi != wj {
			return wi > wj
		}
		return out[i].Index < out[j].Index
	})
	return out
}

// defaultConsiderCandidates is the ConsiderCandidates loop shared by
// heuristics whose PromotionCheck is a pure per-candidate yes/no decision
// (Standard; Random, Replay and RL run their own loops) -- spec.md §4.5's
// "ConsiderCandidates... invokes PerformCSE".
func defaultConsiderCandidates(e *Engine, h Heuristic) Status {
	sorted := h.SortCandidates(e)
	madeChanges := false
	for _, c := range sorted {
		if !c.viable() {
			continue
		}
		if e.cfg.NoCSE2[c.Index] {
			continue
		}
		if !e.cfg.attemptAllowed(c.Index) {
			continue
		}
		if h.PromotionCheck(e, c) {
			e.performCSE(c)
			h.AdjustHeuristic(e, c)
			madeChanges = true
		}
	}
	if madeChanges {
		return ModifiedEverything
	}
	return ModifiedNothing
}

func viableCandidates(e *Engine) []*Cse {
	var out []*Cse
	for i := 1; i <= e.table.count(); i++ {
		c := e.table.findDsc(i)
		if c != nil && c.viable() {
			out = append(out, c)
		}
	}
	return out
}
