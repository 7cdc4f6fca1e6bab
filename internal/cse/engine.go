package cse

import (
	"kanso/internal/ir"
	"kanso/internal/vn"
)

// Status reports whether Run (or a single heuristic's ConsiderCandidates)
// changed the function it was given, mirroring the bool-returning
// Apply(program) *OptimizationPass convention internal/ir/optimizations.go
// uses elsewhere in the pipeline.
type Status int

const (
	ModifiedNothing Status = iota
	ModifiedEverything
)

// occEntry pairs a recorded occurrence with the candidate it belongs to, the
// per-block index buildBlockFlow needs to compute gen sets (dataflow.go).
type occEntry struct {
	candidate *Cse
	occ       occurrence
}

// Engine is the per-function driver state tying together every phase of
// spec.md §4: fingerprinting, the candidate table, data-flow, labelling, and
// the pluggable heuristic. One Engine is used per function and is not meant
// to be reused or shared across goroutines (spec.md §5: single-threaded, no
// concurrent access to one Engine's state).
type Engine struct {
	cfg       Config
	fn        *ir.Function
	numberer  *vn.Numberer
	heuristic Heuristic

	tags    *tagTable
	table   *table
	pending map[Key]occurrence

	occurrencesByBlock map[*ir.BasicBlock][]occEntry

	nextInstID  int
	nextValueID int

	madeChanges bool
}

func newEngine(cfg Config, fn *ir.Function, numberer *vn.Numberer, heuristic Heuristic) *Engine {
	e := &Engine{
		cfg:       cfg,
		fn:        fn,
		numberer:  numberer,
		heuristic: heuristic,
		tags:      newTagTable(),
		table:     newTable(),
		pending:   make(map[Key]occurrence),
	}
	e.nextInstID, e.nextValueID = scanMaxIDs(fn)
	return e
}

// scanMaxIDs walks fn to find the highest instruction and value ID already
// in use, so newly synthesized instructions/values (performCSE's shared-
// const anchors and adjustments) never collide with the builder's own IDs.
func scanMaxIDs(fn *ir.Function) (maxInst int, maxValue int) {
	bump := func(id int, cur *int) {
		if id > *cur {
			*cur = id
		}
	}
	for _, block := range fn.Blocks {
		for _, inst := range block.Instructions {
			bump(inst.GetID(), &maxInst)
			if r := inst.GetResult(); r != nil {
				bump(r.ID, &maxValue)
			}
		}
		if block.Terminator != nil {
			bump(block.Terminator.GetID(), &maxInst)
		}
	}
	for _, v := range fn.LocalVars {
		bump(v.ID, &maxValue)
	}
	return maxInst, maxValue
}

func (e *Engine) allocInstID() int {
	e.nextInstID++
	return e.nextInstID
}

func (e *Engine) allocValueID() int {
	e.nextValueID++
	return e.nextValueID
}

// tagOccurrences sets the initial CseTag (a use, per spec.md §3 "CseTag")
// on every recorded occurrence once the candidate table's dense index is
// known (spec.md §4.2, run right after buildIndex). Labelling later upgrades
// exactly one occurrence per reaching def to a def tag as it walks the
// function (label.go's classifyOccurrence).
func (e *Engine) tagOccurrences() {
	for i := 1; i <= e.table.count(); i++ {
		c := e.table.findDsc(i)
		for _, occ := range c.occList {
			e.tags.set(occ.inst.GetID(), useTag(i))
		}
	}
}

// buildOccurrencesByBlock groups every candidate's occurrences by the block
// they live in, the index buildBlockFlow (dataflow.go) needs to compute gen
// sets without re-scanning the whole candidate table per block.
func (e *Engine) buildOccurrencesByBlock() {
	e.occurrencesByBlock = make(map[*ir.BasicBlock][]occEntry)
	for i := 1; i <= e.table.count(); i++ {
		c := e.table.findDsc(i)
		for _, occ := range c.occList {
			e.occurrencesByBlock[occ.block] = append(e.occurrencesByBlock[occ.block], occEntry{candidate: c, occ: occ})
		}
	}
}
