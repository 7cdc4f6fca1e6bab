package cse

import (
	"math/rand"

	"kanso/internal/ir"
)

// Random promotes a uniformly-random prefix of a uniformly-random
// permutation of the viable candidates (spec.md §4.5, §4.5.4). It exists to
// fuzz-test the rest of the pipeline (performer, swap-legality) against
// promotion orders the Standard heuristic would never produce.
type Random struct {
	HeuristicBase
	rng *rand.Rand
}

func NewRandom(seed int64) *Random {
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

func (r *Random) ConsiderTree(e *Engine, inst ir.Instruction) bool {
	return r.considerTreeCommon(e, inst)
}

func (r *Random) Initialize(e *Engine) {
	r.codeOptKind = e.cfg.CodeOpt
}

// SortCandidates performs an inside-out Fisher-Yates shuffle of the viable
// candidates (spec.md §4.5.4).
func (r *Random) SortCandidates(e *Engine) []*Cse {
	cands := viableCandidates(e)
	out := make([]*Cse, len(cands))
	for i, c := range cands {
		j := r.rng.Intn(i + 1)
		out[i] = out[j]
		out[j] = c
	}
	r.sortTab = out
	return out
}

// PromotionCheck is unused by Random's own ConsiderCandidates (which decides
// membership in the promoted prefix up front) but is implemented so Random
// satisfies the Heuristic interface and can be driven generically in tests.
func (r *Random) PromotionCheck(e *Engine, c *Cse) bool { return true }

func (r *Random) AdjustHeuristic(e *Engine, c *Cse) {}

func (r *Random) ConsiderCandidates(e *Engine) Status {
	sorted := r.SortCandidates(e)
	if len(sorted) == 0 {
		return ModifiedNothing
	}
	k := 1 + r.rng.Intn(len(sorted))

	madeChanges := false
	for idx := 0; idx < k; idx++ {
		c := sorted[idx]
		if e.cfg.NoCSE2[c.Index] || !e.cfg.attemptAllowed(c.Index) {
			continue
		}
		e.performCSE(c)
		madeChanges = true
	}
	if madeChanges {
		return ModifiedEverything
	}
	return ModifiedNothing
}
