package cse

import (
	"testing"

	"kanso/internal/ir"
	"kanso/internal/vn"
)

func TestScanMaxIDsFindsHighestInstructionAndValueIDs(t *testing.T) {
	result := &ir.Value{ID: 7, Name: "v"}
	inst := &ir.BinaryInstruction{ID: 2, Result: result, Op: "+"}
	block := &ir.BasicBlock{
		Label:        "entry",
		Instructions: []ir.Instruction{inst},
		Terminator:   &ir.ReturnTerminator{ID: 4, Value: result},
	}
	fn := &ir.Function{Name: "f", Entry: block, Blocks: []*ir.BasicBlock{block}}

	maxInst, maxValue := scanMaxIDs(fn)

	if maxInst != 4 {
		t.Errorf("maxInst = %d, want 4 (the ReturnTerminator's ID)", maxInst)
	}
	if maxValue != 7 {
		t.Errorf("maxValue = %d, want 7 (the result value's ID)", maxValue)
	}
}

func TestAllocInstIDAndAllocValueIDNeverCollideWithExisting(t *testing.T) {
	fn := buildDupAddFunction(t)
	numberer := vn.NewNumberer()
	e := newEngine(DefaultConfig(), fn, numberer, NewStandard())

	existingInstIDs := map[int]bool{}
	for _, inst := range fn.Entry.Instructions {
		existingInstIDs[inst.GetID()] = true
	}
	existingInstIDs[fn.Entry.Terminator.GetID()] = true

	for i := 0; i < 5; i++ {
		id := e.allocInstID()
		if existingInstIDs[id] {
			t.Errorf("allocInstID returned %d, which collides with an existing instruction ID", id)
		}
	}
}

func TestTagOccurrencesSetsUseTagOnEveryOccurrence(t *testing.T) {
	fn := buildDupAddFunction(t)
	numberer := vn.NewNumberer()
	numberer.Number(fn)
	e := newEngine(DefaultConfig(), fn, numberer, NewStandard())
	e.locate(fn)
	e.table.buildIndex()
	e.tagOccurrences()

	add1 := fn.Entry.Instructions[0]
	add2 := fn.Entry.Instructions[1]

	t1 := e.tags.get(add1.GetID())
	t2 := e.tags.get(add2.GetID())
	if t1.isNone() || t2.isNone() {
		t.Fatal("both duplicate-expression occurrences should be tagged")
	}
	if !t1.isUse() || !t2.isUse() {
		t.Error("tagOccurrences should tag every occurrence as a use prior to labelling")
	}
	if t1.index() != t2.index() {
		t.Error("both occurrences of the same expression should share one candidate index")
	}
}

func TestBuildOccurrencesByBlockGroupsByBlock(t *testing.T) {
	fn := buildDupAddFunction(t)
	numberer := vn.NewNumberer()
	numberer.Number(fn)
	e := newEngine(DefaultConfig(), fn, numberer, NewStandard())
	e.locate(fn)
	e.table.buildIndex()
	e.buildOccurrencesByBlock()

	entries := e.occurrencesByBlock[fn.Entry]
	if len(entries) != 2 {
		t.Fatalf("expected 2 occurrences recorded for the entry block, got %d", len(entries))
	}
}

func TestNewEngineSeedsIDAllocatorsFromScanMaxIDs(t *testing.T) {
	fn := buildDupAddFunction(t)
	numberer := vn.NewNumberer()
	e := newEngine(DefaultConfig(), fn, numberer, NewStandard())

	wantInst, wantValue := scanMaxIDs(fn)
	if e.nextInstID != wantInst {
		t.Errorf("nextInstID = %d, want %d", e.nextInstID, wantInst)
	}
	if e.nextValueID != wantValue {
		t.Errorf("nextValueID = %d, want %d", e.nextValueID, wantValue)
	}
}

func TestScanMaxIDsCoversLocalVars(t *testing.T) {
	local := &ir.Value{ID: 99, Name: "tmp"}
	block := &ir.BasicBlock{Label: "entry", Terminator: &ir.ReturnTerminator{ID: 1}}
	fn := &ir.Function{
		Name:      "f",
		Entry:     block,
		Blocks:    []*ir.BasicBlock{block},
		LocalVars: map[string]*ir.Value{"tmp": local},
	}

	_, maxValue := scanMaxIDs(fn)
	if maxValue != 99 {
		t.Errorf("scanMaxIDs should account for LocalVars, got maxValue=%d", maxValue)
	}
}
