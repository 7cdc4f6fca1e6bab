package cse

import "kanso/internal/ir"

// registerClass mirrors spec.md §4.5.2's three promotion classes.
type registerClass int

const (
	classConservative registerClass = iota
	classModerate
	classAggressive
)

// Standard is the deterministic, cost-model-driven heuristic (spec.md
// §4.5.2) and is the default used by internal/ir's optimization pipeline.
type Standard struct {
	HeuristicBase

	aggressiveRefCnt float64
	moderateRefCnt   float64
	frameSize        frameSizeClass
}

type frameSizeClass int

const (
	frameSmall frameSizeClass = iota
	frameLarge
	frameHuge
)

func NewStandard() *Standard { return &Standard{} }

func (s *Standard) ConsiderTree(e *Engine, inst ir.Instruction) bool {
	if !s.considerTreeCommon(e, inst) {
		return false
	}
	// Non-leaf trees whose conservative normal VN is already a constant are
	// left for downstream assertion propagation (spec.md §4.5.1).
	if _, isLeaf := inst.(*ir.ConstantInstruction); !isLeaf {
		if e.numberer.Store.IsConstant(e.numberer.PairOf(inst).Conservative) {
			return false
		}
	}
	return true
}

func (s *Standard) Initialize(e *Engine) {
	s.codeOptKind = e.cfg.CodeOpt
	// A small, fixed cutoff pair stands in for the register-allocator's
	// real frame-pressure model (unavailable to this pass per spec.md §1's
	// "back end... is out of scope"). 2D+U against these cutoffs is the
	// only per-function-adaptive state the Standard heuristic keeps.
	s.aggressiveRefCnt = 3.0
	s.moderateRefCnt = 2.0
	s.frameSize = estimateFrameSize(e)
}

func estimateFrameSize(e *Engine) frameSizeClass {
	locals := 0
	for range e.fn.LocalVars {
		locals++
	}
	switch {
	case locals > 64:
		return frameHuge
	case locals > 16:
		return frameLarge
	default:
		return frameSmall
	}
}

func (s *Standard) SortCandidates(e *Engine) []*Cse {
	s.sortTab = sortByCandidateValue(viableCandidates(e))
	return s.sortTab
}

func (s *Standard) classify(c *Cse) registerClass {
	refs := float64(2*c.DefCount + c.UseCount)
	enreg := enregisterable(c)
	if refs >= s.aggressiveRefCnt && enreg {
		return classAggressive
	}
	if refs >= s.moderateRefCnt {
		return classModerate
	}
	return classConservative
}

// enregisterable approximates "fits in a single EVM stack slot" -- every
// kanso value type today does (U256/Bool/Address/String-handle), so the
// only thing excluded is a multi-element tuple, which behaves like the
// spec's "struct returns that are not of a small-vector type".
func enregisterable(c *Cse) bool {
	result := c.firstOccurrence.inst.GetResult()
	if result == nil {
		return true
	}
	tup, ok := result.Type.(*ir.TupleType)
	return !ok || len(tup.Elements) <= 2
}

// defUseCosts implements the per-class defCost/useCost table of spec.md
// §4.5.2, folding in the live-across-call and register-starved extras. This
// codebase has no floating-point or SIMD value kind, so the float/SIMD
// prolog-epilog extra from the spec does not apply and is omitted.
func (s *Standard) defUseCosts(c *Cse, class registerClass) (defCost, useCost int) {
	switch class {
	case classAggressive:
		defCost, useCost = 1, 1
	case classModerate:
		if c.LiveAcrossCall || !enregisterable(c) {
			defCost, useCost = 2, 3
		} else {
			defCost, useCost = 2, 1
		}
	default:
		defCost, useCost = 2, 3
	}
	return
}

func (s *Standard) PromotionCheck(e *Engine, c *Cse) bool {
	class := s.classify(c)
	defCost, useCost := s.defUseCosts(c, class)

	treeEx, treeSz := costOf(c.firstOccurrence.inst)
	treeCost := treeEx
	if s.codeOptKind == OptimizeForSize {
		treeCost = treeSz
	}

	noCSE := c.UseCount * treeCost
	if s.codeOptKind == OptimizeForSize && !enregisterable(c) {
		// Code-size mode adds a small penalty for the extra encoding width
		// a not-CSE'd repeated tree costs on a large/huge frame.
		switch s.frameSize {
		case frameLarge:
			noCSE += 2
		case frameHuge:
			noCSE += 4
		}
	}

	yesCSE := c.DefCount*defCost + c.UseCount*useCost
	if c.LiveAcrossCall && class != classAggressive {
		yesCSE += 2 // caller-save spill/restore pair
	}

	return yesCSE <= noCSE
}

// AdjustHeuristic dampens further promotions after a live-across-call
// candidate is accepted -- anti-register-pressure feedback (spec.md
// §4.5.2).
func (s *Standard) AdjustHeuristic(e *Engine, c *Cse) {
	if c.LiveAcrossCall {
		s.aggressiveRefCnt += 1
		s.moderateRefCnt += 0.5
	}
}

func (s *Standard) ConsiderCandidates(e *Engine) Status {
	return defaultConsiderCandidates(e, s)
}
