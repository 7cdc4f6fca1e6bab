package cse

import (
	"testing"

	"kanso/internal/ir"
)

func TestUnmarkCSERetractsTagAndBookkeepingTogether(t *testing.T) {
	e := newSwapEngine()

	def := &ir.BinaryInstruction{ID: 1, Op: "+"}
	use := &ir.BinaryInstruction{ID: 2, Op: "+"}
	defOcc := occurrence{inst: def}
	useOcc := occurrence{inst: use}

	e.tags.set(def.GetID(), defTag(1))
	e.tags.set(use.GetID(), useTag(1))

	c := &Cse{
		Index:    1,
		DefCount: 1,
		UseCount: 1,
		occList:  []occurrence{defOcc, useOcc},
	}

	e.unmarkCSE(c, useOcc)

	if c.UseCount != 0 {
		t.Errorf("expected UseCount to drop to 0, got %d", c.UseCount)
	}
	if c.DefCount != 1 {
		t.Errorf("unmarking a use must not touch DefCount, got %d", c.DefCount)
	}
	if len(c.occList) != 1 || c.occList[0].inst != def {
		t.Errorf("expected only the def occurrence to remain in occList, got %v", c.occList)
	}
	if !e.tags.get(use.GetID()).isNone() {
		t.Error("expected the unmarked instruction's CseTag to be cleared")
	}
	if !e.tags.get(def.GetID()).isDef() {
		t.Error("unmarking the use occurrence must leave the def's tag untouched")
	}
}

func TestUnmarkCSEOnDefDecrementsDefCount(t *testing.T) {
	e := newSwapEngine()

	def := &ir.BinaryInstruction{ID: 1, Op: "+"}
	defOcc := occurrence{inst: def}
	e.tags.set(def.GetID(), defTag(1))

	c := &Cse{Index: 1, DefCount: 1, UseCount: 1, occList: []occurrence{defOcc}}

	e.unmarkCSE(c, defOcc)

	if c.DefCount != 0 {
		t.Errorf("expected DefCount to drop to 0, got %d", c.DefCount)
	}
	if c.UseCount != 1 {
		t.Errorf("unmarking a def must not touch UseCount, got %d", c.UseCount)
	}
}
