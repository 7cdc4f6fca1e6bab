package cse

import (
	"testing"

	"kanso/internal/ir"
)

func TestRunEliminatesRedundantComputationAcrossProgram(t *testing.T) {
	fn := buildDupAddFunction(t)
	program := &ir.Program{Functions: []*ir.Function{fn}}

	status := Run(program, DefaultConfig())
	if status != ModifiedEverything {
		t.Fatal("Run should report ModifiedEverything when a duplicate expression is eliminated")
	}
	if len(fn.Entry.Instructions) != 2 {
		t.Errorf("expected the duplicate add to be removed, got %d instructions", len(fn.Entry.Instructions))
	}
}

func TestRunIsNoopWhenNoCSEConfigured(t *testing.T) {
	fn := buildDupAddFunction(t)
	program := &ir.Program{Functions: []*ir.Function{fn}}
	before := len(fn.Entry.Instructions)

	cfg := DefaultConfig()
	cfg.NoCSE = true

	status := Run(program, cfg)
	if status != ModifiedNothing {
		t.Error("Run should report ModifiedNothing when NoCSE disables the whole pass")
	}
	if len(fn.Entry.Instructions) != before {
		t.Error("NoCSE should leave every function's instructions untouched")
	}
}

func TestRunSkipsFunctionsWithoutBlocks(t *testing.T) {
	empty := &ir.Function{Name: "empty"}
	program := &ir.Program{Functions: []*ir.Function{empty}}

	status := Run(program, DefaultConfig())
	if status != ModifiedNothing {
		t.Error("a function with no entry/blocks should be skipped, not crash or report a change")
	}
}

func TestRunIsNoopWhenNoDuplicateExpressionsExist(t *testing.T) {
	p1 := &ir.Value{Name: "p1", Type: &ir.IntType{Bits: 256}}
	p2 := &ir.Value{Name: "p2", Type: &ir.IntType{Bits: 256}}
	sum := &ir.Value{Name: "sum", Type: &ir.IntType{Bits: 256}}
	add := &ir.BinaryInstruction{ID: 1, Result: sum, Op: "+", Left: p1, Right: p2}
	block := &ir.BasicBlock{
		Label:        "entry",
		Instructions: []ir.Instruction{add},
		Terminator:   &ir.ReturnTerminator{ID: 2, Value: sum},
	}
	fn := &ir.Function{Name: "single", Entry: block, Blocks: []*ir.BasicBlock{block}, LocalVars: map[string]*ir.Value{}}
	program := &ir.Program{Functions: []*ir.Function{fn}}

	status := Run(program, DefaultConfig())
	if status != ModifiedNothing {
		t.Error("a function with nothing repeated should report ModifiedNothing")
	}
}

func TestRunWithReportEmitsOneRecordPerCandidate(t *testing.T) {
	fn := buildDupAddFunction(t)
	program := &ir.Program{Functions: []*ir.Function{fn}}

	status, reports := RunWithReport(program, DefaultConfig())
	if status != ModifiedEverything {
		t.Fatal("RunWithReport should rewrite the duplicate expression just like Run")
	}
	if len(reports) != 1 {
		t.Fatalf("expected one candidate report, got %d", len(reports))
	}
	r := reports[0]
	if r.Function != "dup_add" {
		t.Errorf("report.Function = %q, want dup_add", r.Function)
	}
	if r.DefCount != 1 || r.UseCount != 1 {
		t.Errorf("report def/use counts = %d/%d, want 1/1", r.DefCount, r.UseCount)
	}
	if !r.Promoted {
		t.Error("the sole candidate should be reported as promoted")
	}
	if r.Class == "" {
		t.Error("the Standard heuristic should populate a non-empty promotion class")
	}
}

func TestNewHeuristicSelectsConfiguredKind(t *testing.T) {
	cases := []struct {
		kind HeuristicKind
		want string
	}{
		{HeuristicStandard, "*cse.Standard"},
		{HeuristicRandom, "*cse.Random"},
		{HeuristicReplay, "*cse.Replay"},
		{HeuristicRL, "*cse.RL"},
	}
	for _, tc := range cases {
		cfg := DefaultConfig()
		cfg.Heuristic = tc.kind
		h := newHeuristic(cfg)
		switch tc.kind {
		case HeuristicStandard:
			if _, ok := h.(*Standard); !ok {
				t.Errorf("HeuristicStandard should build a *Standard, got %T", h)
			}
		case HeuristicRandom:
			if _, ok := h.(*Random); !ok {
				t.Errorf("HeuristicRandom should build a *Random, got %T", h)
			}
		case HeuristicReplay:
			if _, ok := h.(*Replay); !ok {
				t.Errorf("HeuristicReplay should build a *Replay, got %T", h)
			}
		case HeuristicRL:
			if _, ok := h.(*RL); !ok {
				t.Errorf("HeuristicRL should build an *RL, got %T", h)
			}
		}
	}
}
