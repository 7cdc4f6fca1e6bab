package cse

import "kanso/internal/ir"

// blockFlow is the per-block data-flow state (spec.md §3 "Per-block
// bitsets"): gen/in/out plus whether the block contains a call and, if so,
// which instructions come after the last call in program order.
type blockFlow struct {
	gen, in, out *availSet
	hasCall      bool
	afterLastCall map[int]bool // instruction ID -> "appears after the block's last call"
	isHandler     bool         // EH landing pad: unreachable from CSE's perspective
	visited       bool
}

// isCallInstruction reports whether inst is an (opaque, non-helper) call
// site for the purposes of the call-kill rule. spec.md §4.4 item 5 carves
// out "certain helper calls that materialise CSE-able values" -- those are
// exactly the calls this engine's Labelling phase classifies as defs, which
// is handled in label.go, not here; runDataFlow conservatively treats every
// CallInstruction as a potential kill.
func isCallInstruction(inst ir.Instruction) bool {
	_, ok := inst.(*ir.CallInstruction)
	return ok
}

// buildBlockFlow computes gen and the "after last call" set for every block
// of fn (spec.md §4.3 "gen").
func (e *Engine) buildBlockFlow(fn *ir.Function) map[*ir.BasicBlock]*blockFlow {
	flows := make(map[*ir.BasicBlock]*blockFlow, len(fn.Blocks))
	for _, block := range fn.Blocks {
		bf := &blockFlow{
			gen:           newAvailSet(MaxCSE),
			in:            newAvailSet(MaxCSE),
			out:           newAvailSet(MaxCSE),
			afterLastCall: make(map[int]bool),
			isHandler:     isHandlerBlock(block),
		}

		lastCallPos := -1
		for pos, inst := range block.Instructions {
			if isCallInstruction(inst) {
				bf.hasCall = true
				lastCallPos = pos
			}
		}
		for pos, inst := range block.Instructions {
			if pos > lastCallPos {
				bf.afterLastCall[inst.GetID()] = true
			}
		}

		for _, occ := range e.occurrencesByBlock[block] {
			i := occ.candidate.Index
			bf.gen.setAvail(i)
			if !bf.hasCall || bf.afterLastCall[occ.occ.inst.GetID()] {
				bf.gen.setAvailCrossCall(i)
			}
		}

		flows[block] = bf
	}
	return flows
}

// isHandlerBlock reports whether block is an EH filter/handler entry,
// treated as unreachable from CSE's perspective (spec.md §4.3, GLOSSARY
// "Funclet"). The kanso IR has no explicit EH-region flag today (kanso
// contracts use `require`/`revert`, not try/catch funclets), so this is
// always false; the hook stays named and called so a future EH-region flag
// on ir.BasicBlock only needs to be read here.
func isHandlerBlock(block *ir.BasicBlock) bool { return false }

// runDataFlow computes in/out availability for every block of fn to a fixed
// point (spec.md §4.3).
func (e *Engine) runDataFlow(fn *ir.Function) map[*ir.BasicBlock]*blockFlow {
	flows := e.buildBlockFlow(fn)

	for _, block := range fn.Blocks {
		bf := flows[block]
		if block == fn.Entry || bf.isHandler {
			bf.in.clear()
		} else {
			bf.in.setAllOnes()
		}
		bf.out.setAllOnes()
	}

	callKillMask := newAvailSet(MaxCSE)
	for i := 1; i <= e.table.count(); i++ {
		callKillMask.setAvail(i)
		// availCrossCallBit(i) deliberately left clear: passing through a
		// call preserves availBit but clears availCrossCallBit.
	}

	worklist := append([]*ir.BasicBlock{}, fn.Blocks...)
	for len(worklist) > 0 {
		block := worklist[0]
		worklist = worklist[1:]
		bf := flows[block]

		newIn := newAvailSet(MaxCSE)
		if block == fn.Entry || bf.isHandler {
			// Entry / handler-entry merge is a no-op: stays {}.
		} else {
			newIn.setAllOnes()
			for _, pred := range block.Predecessors {
				newIn.intersectInto(flows[pred].out)
			}
		}

		changedIn := !bf.visited || !newIn.equals(bf.in)
		bf.in.copyFrom(newIn)

		newOut := bf.gen.clone()
		masked := bf.in.clone()
		if bf.hasCall {
			masked.intersectInto(callKillMask)
		}
		newOut.unionInto(masked)

		changedOut := !bf.visited || !newOut.equals(bf.out)
		bf.out.copyFrom(newOut)
		bf.visited = true

		if changedIn || changedOut {
			for _, succ := range block.Successors {
				worklist = append(worklist, succ)
			}
		}
	}

	return flows
}
