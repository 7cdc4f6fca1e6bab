package cse

import "kanso/internal/ir"

// Replay promotes candidates in exactly the order given by Config.ReplayCSE
// (spec.md §4.5.4): "indices are 1-based in the configuration, converted to
// 0-based; invalid or non-viable indices are silently skipped and logged at
// a debug level." This engine keeps the indices 1-based throughout (they
// already line up with Cse.Index), so no conversion is needed beyond
// bounds/viability checking.
type Replay struct {
	HeuristicBase
	Log []string // debug-level skip notices, exposed for tests
}

func NewReplay() *Replay { return &Replay{} }

func (r *Replay) ConsiderTree(e *Engine, inst ir.Instruction) bool {
	return r.considerTreeCommon(e, inst)
}

func (r *Replay) Initialize(e *Engine) {
	r.codeOptKind = e.cfg.CodeOpt
}

func (r *Replay) SortCandidates(e *Engine) []*Cse {
	var out []*Cse
	for _, idx := range e.cfg.ReplayCSE {
		c := e.table.findDsc(idx)
		out = append(out, c)
	}
	r.sortTab = out
	return out
}

func (r *Replay) PromotionCheck(e *Engine, c *Cse) bool { return true }
func (r *Replay) AdjustHeuristic(e *Engine, c *Cse)     {}

func (r *Replay) ConsiderCandidates(e *Engine) Status {
	madeChanges := false
	for pos, idx := range e.cfg.ReplayCSE {
		c := e.table.findDsc(idx)
		if c == nil || !c.viable() {
			r.Log = append(r.Log, debugf("replay: skipping non-viable candidate index %d at step %d", idx, pos))
			continue
		}
		if e.cfg.NoCSE2[c.Index] || !e.cfg.attemptAllowed(c.Index) {
			r.Log = append(r.Log, debugf("replay: skipping disabled candidate index %d at step %d", idx, pos))
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
