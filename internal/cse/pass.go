package cse

import (
	"kanso/internal/ir"
	"kanso/internal/vn"
)

// Run drives the whole CSE pipeline (spec.md §4) over every function of
// program: fingerprinting, candidate indexing, data-flow, labelling, then
// the configured heuristic's promotion loop and rewrite. Mirrors
// internal/ir/optimizations.go's OptimizationPass.Apply(program) bool
// convention via the richer Status result.
func Run(program *ir.Program, cfg Config) Status {
	overall := ModifiedNothing
	for _, fn := range program.Functions {
		if cfg.NoCSE {
			continue
		}
		if runFunction(fn, cfg) == ModifiedEverything {
			overall = ModifiedEverything
		}
	}
	return overall
}

func runFunction(fn *ir.Function, cfg Config) Status {
	if fn.Entry == nil || len(fn.Blocks) == 0 {
		return ModifiedNothing
	}

	numberer := vn.NewNumberer()
	numberer.Number(fn)

	heuristic := newHeuristic(cfg)

	e := newEngine(cfg, fn, numberer, heuristic)

	e.locate(fn)
	e.table.buildIndex()
	if e.table.count() == 0 {
		return ModifiedNothing
	}
	e.tagOccurrences()
	e.buildOccurrencesByBlock()

	flows := e.runDataFlow(fn)
	e.label(fn, flows)

	heuristic.Initialize(e)
	return heuristic.ConsiderCandidates(e)
}

// CandidateReport is the per-candidate metric record spec.md §6's "Outputs"
// describes (index, promotion class, def/use counts, live-across-call bit),
// exposed for cmd/kanso-cse's dump subcommand. It plays no role in the pass
// itself -- RunWithReport runs the identical pipeline Run does and only
// additionally snapshots each function's candidate table afterwards.
type CandidateReport struct {
	Function       string
	Index          int
	IsSharedConst  bool
	DefCount       int
	UseCount       int
	LiveAcrossCall bool
	Class          string
	Promoted       bool
}

// RunWithReport behaves exactly like Run but also returns one CandidateReport
// per candidate discovered in every function, in function-then-index order.
func RunWithReport(program *ir.Program, cfg Config) (Status, []CandidateReport) {
	overall := ModifiedNothing
	var reports []CandidateReport
	for _, fn := range program.Functions {
		if cfg.NoCSE {
			continue
		}
		status, recs := runFunctionWithReport(fn, cfg)
		if status == ModifiedEverything {
			overall = ModifiedEverything
		}
		reports = append(reports, recs...)
	}
	return overall, reports
}

func runFunctionWithReport(fn *ir.Function, cfg Config) (Status, []CandidateReport) {
	if fn.Entry == nil || len(fn.Blocks) == 0 {
		return ModifiedNothing, nil
	}

	numberer := vn.NewNumberer()
	numberer.Number(fn)

	heuristic := newHeuristic(cfg)
	e := newEngine(cfg, fn, numberer, heuristic)

	e.locate(fn)
	e.table.buildIndex()
	if e.table.count() == 0 {
		return ModifiedNothing, nil
	}
	e.tagOccurrences()
	e.buildOccurrencesByBlock()

	flows := e.runDataFlow(fn)
	e.label(fn, flows)

	heuristic.Initialize(e)
	status := heuristic.ConsiderCandidates(e)

	standard, isStandard := heuristic.(*Standard)
	recs := make([]CandidateReport, 0, e.table.count())
	for i := 1; i <= e.table.count(); i++ {
		c := e.table.findDsc(i)
		class := "n/a"
		if isStandard {
			class = classifyName(standard.classify(c))
		}
		recs = append(recs, CandidateReport{
			Function:       fn.Name,
			Index:          c.Index,
			IsSharedConst:  c.IsSharedConst,
			DefCount:       c.DefCount,
			UseCount:       c.UseCount,
			LiveAcrossCall: c.LiveAcrossCall,
			Class:          class,
			Promoted:       c.promoted,
		})
	}
	return status, recs
}

func classifyName(class registerClass) string {
	switch class {
	case classAggressive:
		return "aggressive"
	case classModerate:
		return "moderate"
	default:
		return "conservative"
	}
}

func newHeuristic(cfg Config) Heuristic {
	switch cfg.Heuristic {
	case HeuristicRandom:
		return NewRandom(cfg.RandomCSE)
	case HeuristicReplay:
		return NewReplay()
	case HeuristicRL:
		return NewRL(cfg, cfg.RandomCSE)
	default:
		return NewStandard()
	}
}
