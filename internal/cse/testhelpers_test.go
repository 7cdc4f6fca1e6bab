package cse

import (
	"testing"

	"kanso/internal/ir"
	"kanso/internal/vn"
)

// buildDupAddFunction returns a one-block function computing the same
// binary expression (p1+p2) twice and using both results, the minimal shape
// that produces exactly one viable candidate with DefCount+UseCount==2.
func buildDupAddFunction(t *testing.T) *ir.Function {
	t.Helper()

	p1 := &ir.Value{Name: "p1", Type: &ir.IntType{Bits: 256}}
	p2 := &ir.Value{Name: "p2", Type: &ir.IntType{Bits: 256}}

	sum1 := &ir.Value{Name: "sum1", Type: &ir.IntType{Bits: 256}}
	add1 := &ir.BinaryInstruction{ID: 1, Result: sum1, Op: "+", Left: p1, Right: p2}
	sum1.DefInst = add1

	sum2 := &ir.Value{Name: "sum2", Type: &ir.IntType{Bits: 256}}
	add2 := &ir.BinaryInstruction{ID: 2, Result: sum2, Op: "+", Left: p1, Right: p2}
	sum2.DefInst = add2

	total := &ir.Value{Name: "total", Type: &ir.IntType{Bits: 256}}
	add3 := &ir.BinaryInstruction{ID: 3, Result: total, Op: "+", Left: sum1, Right: sum2}
	total.DefInst = add3

	block := &ir.BasicBlock{
		Label:        "entry",
		Instructions: []ir.Instruction{add1, add2, add3},
		Terminator:   &ir.ReturnTerminator{ID: 4, Value: total},
	}

	fn := &ir.Function{
		Name:      "dup_add",
		Entry:     block,
		Blocks:    []*ir.BasicBlock{block},
		LocalVars: map[string]*ir.Value{},
	}
	return fn
}

// prepareEngine runs every CSE phase up to (but not including) the
// heuristic's own ConsiderCandidates, mirroring pass.go's runFunction, so
// tests can drive a specific heuristic's decision methods directly against
// a known candidate set.
func prepareEngine(t *testing.T, fn *ir.Function, cfg Config, h Heuristic) *Engine {
	t.Helper()

	numberer := vn.NewNumberer()
	numberer.Number(fn)

	e := newEngine(cfg, fn, numberer, h)
	e.locate(fn)
	e.table.buildIndex()
	e.tagOccurrences()
	e.buildOccurrencesByBlock()
	flows := e.runDataFlow(fn)
	e.label(fn, flows)
	h.Initialize(e)
	return e
}
