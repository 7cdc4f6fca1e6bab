package cse

import (
	"testing"

	"kanso/internal/ir"
)

func newSwapEngine() *Engine {
	return &Engine{tags: newTagTable()}
}

func TestCanSwapUntaggedInstructionsAlwaysSwap(t *testing.T) {
	e := newSwapEngine()
	a := &ir.BinaryInstruction{ID: 1, Op: "+"}
	b := &ir.StorageStoreInstruction{ID: 2, SlotNum: 3}

	if !e.CanSwap(a, b) {
		t.Error("instructions with no CseTag carry no candidate relationship and should always swap")
	}
}

func TestCanSwapDifferentCandidatesAlwaysSwap(t *testing.T) {
	e := newSwapEngine()
	a := &ir.BinaryInstruction{ID: 1, Op: "+"}
	b := &ir.BinaryInstruction{ID: 2, Op: "*"}
	e.tags.set(a.GetID(), defTag(1))
	e.tags.set(b.GetID(), useTag(2))

	if !e.CanSwap(a, b) {
		t.Error("occurrences of two distinct candidates are disjoint and should swap")
	}
}

func TestCanSwapSameCandidateTwoDefsOrTwoUsesSwap(t *testing.T) {
	e := newSwapEngine()
	a := &ir.BinaryInstruction{ID: 1, Op: "+"}
	b := &ir.BinaryInstruction{ID: 2, Op: "+"}

	e.tags.set(a.GetID(), defTag(1))
	e.tags.set(b.GetID(), defTag(1))
	if !e.CanSwap(a, b) {
		t.Error("two independent defs of the same candidate should still swap")
	}

	e.tags.set(a.GetID(), useTag(1))
	e.tags.set(b.GetID(), useTag(1))
	if !e.CanSwap(a, b) {
		t.Error("two uses of the same candidate should still swap")
	}
}

// S6: a candidate's def must never be treated as swappable with its own use
// -- neither direction.
func TestCanSwapSameCandidateDefAndUseNeverSwap(t *testing.T) {
	e := newSwapEngine()
	a := &ir.BinaryInstruction{ID: 1, Op: "+"}
	b := &ir.BinaryInstruction{ID: 2, Op: "+"}

	e.tags.set(a.GetID(), defTag(1))
	e.tags.set(b.GetID(), useTag(1))
	if e.CanSwap(a, b) {
		t.Error("a candidate's def must not be treated as swappable with its own use")
	}

	e.tags.set(a.GetID(), useTag(1))
	e.tags.set(b.GetID(), defTag(1))
	if e.CanSwap(a, b) {
		t.Error("CanSwap must reject the def/use conflict in either argument order")
	}
}
