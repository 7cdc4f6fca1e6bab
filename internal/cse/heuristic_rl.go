package cse

import (
	"math"
	"math/rand"
	"sort"

	"kanso/internal/ir"
	"kanso/internal/vn"
)

// rlFeatureCount is the fixed dimensionality of the linear model (spec.md
// §4.5.3).
const rlFeatureCount = 25

// RL is the reinforcement-learning heuristic: a linear model over a
// 25-feature vector per candidate, decided greedily, by softmax sampling, or
// by replaying a known sequence and applying a policy-gradient update
// (spec.md §4.5.3).
type RL struct {
	HeuristicBase

	Params  [rlFeatureCount]float64
	Alpha   float64
	Greedy  bool
	Verbose bool
	DumpCandidateFeatures bool

	rng *rand.Rand

	// sortedWeights is the sorted vector of enregisterable local weights
	// captured at the start of the decision process, used by feature 25
	// (the stop-action spill estimate).
	sortedWeights []float64

	Decisions      []string
	FeatureRows    [][rlFeatureCount]float64
}

// NewRL builds an RL heuristic from Config; params not supplied by
// Config.RLCSE default to zero.
func NewRL(cfg Config, seed int64) *RL {
	r := &RL{
		Alpha:                 cfg.RLCSEAlpha,
		Greedy:                cfg.RLCSEGreedy,
		Verbose:               cfg.RLCSEVerbose,
		DumpCandidateFeatures: cfg.RLCSECandidateFeatures,
		rng:                   rand.New(rand.NewSource(seed)),
	}
	for i := 0; i < rlFeatureCount && i < len(cfg.RLCSE); i++ {
		r.Params[i] = cfg.RLCSE[i]
	}
	return r
}

func (r *RL) ConsiderTree(e *Engine, inst ir.Instruction) bool {
	return r.considerTreeCommon(e, inst)
}

func (r *RL) Initialize(e *Engine) {
	r.codeOptKind = e.cfg.CodeOpt
	var weights []float64
	for i := 1; i <= e.table.count(); i++ {
		c := e.table.findDsc(i)
		if c != nil && c.viable() && enregisterable(c) {
			weights = append(weights, c.DefWtCnt+c.UseWtCnt)
		}
	}
	sort.Float64s(weights)
	r.sortedWeights = weights
}

func (r *RL) SortCandidates(e *Engine) []*Cse {
	r.sortTab = sortByCandidateValue(viableCandidates(e))
	return r.sortTab
}

// features computes the 25-feature row for candidate c. Feature 25 (the
// stop-action spill estimate) is reserved for the dedicated stop action
// (stopFeatures) and left zero here, matching spec.md §4.5.3 ("only
// populated when the 'stop' action is being scored").
func (r *RL) features(c *Cse) [rlFeatureCount]float64 {
	const boolScale = 5.0
	b := func(v bool) float64 {
		if v {
			return boolScale
		}
		return 0
	}

	var f [rlFeatureCount]float64
	ex, sz := costOf(c.firstOccurrence.inst)
	refs := float64(2*c.DefCount + c.UseCount)

	f[0] = float64(c.DefCount)
	f[1] = float64(c.UseCount)
	f[2] = c.DefWtCnt
	f[3] = c.UseWtCnt
	f[4] = b(c.LiveAcrossCall)
	f[5] = b(c.IsSharedConst)
	f[6] = refs
	f[7] = float64(ex)
	f[8] = float64(sz)
	f[9] = b(enregisterable(c))
	f[10] = b(c.defConservNormVNValid)
	f[11] = b(c.conservDiverged)
	f[12] = float64(c.NumDistinctLocals)
	f[13] = float64(c.NumLocalOccurrences)
	f[14] = float64(c.Index)
	f[15] = float64(c.DefCount) * float64(c.UseCount)
	f[16] = float64(c.UseCount - c.DefCount)
	f[17] = c.DefWtCnt - c.UseWtCnt
	f[18] = b(refs >= 3)
	f[19] = b(refs >= 2)
	f[20] = float64(len(c.occList))
	f[21] = float64(ex+sz) / 2
	f[22] = b(c.ConstDefVN != vn.NoVN)
	f[23] = 1 // bias term
	return f
}

// spillEstimate returns the weight at which the next CSE would be expected
// to cause a register spill, approximated from the sorted snapshot of
// enregisterable local weights taken at Initialize (spec.md §4.5.3).
func (r *RL) spillEstimate() float64 {
	if len(r.sortedWeights) == 0 {
		return 0
	}
	idx := len(r.sortedWeights) - 1
	return r.sortedWeights[idx]
}

func dot(a [rlFeatureCount]float64, b [rlFeatureCount]float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// action pairs a candidate (nil for "stop") with its preference score.
type rlAction struct {
	c    *Cse
	pref float64
	feat [rlFeatureCount]float64
}

func (r *RL) scoreActions(e *Engine, remaining []*Cse) []rlAction {
	actions := make([]rlAction, 0, len(remaining)+1)
	for _, c := range remaining {
		f := r.features(c)
		actions = append(actions, rlAction{c: c, pref: dot(f, r.Params), feat: f})
	}
	stopFeat := r.stopFeatures()
	actions = append(actions, rlAction{c: nil, pref: dot(stopFeat, r.Params), feat: stopFeat})
	if r.DumpCandidateFeatures {
		for _, a := range actions {
			r.FeatureRows = append(r.FeatureRows, a.feat)
		}
	}
	return actions
}

// stopFeatures computes the feature vector for the "stop" action: it has no
// associated candidate, so every candidate-specific feature is zero except
// the bias term and the spill estimate.
func (r *RL) stopFeatures() [rlFeatureCount]float64 {
	var f [rlFeatureCount]float64
	f[23] = 1
	f[24] = r.spillEstimate()
	return f
}

func softmax(actions []rlAction) []float64 {
	max := actions[0].pref
	for _, a := range actions {
		if a.pref > max {
			max = a.pref
		}
	}
	exps := make([]float64, len(actions))
	var sum float64
	for i, a := range actions {
		exps[i] = math.Exp(a.pref - max)
		sum += exps[i]
	}
	probs := make([]float64, len(actions))
	for i := range exps {
		probs[i] = exps[i] / sum
	}
	return probs
}

func (r *RL) pickGreedy(actions []rlAction) int {
	best := -1
	for i, a := range actions {
		if a.c == nil {
			continue // stop is the tiebreak default, handled below
		}
		if best == -1 || a.pref > actions[best].pref ||
			(a.pref == actions[best].pref && a.c.Index < actions[best].c.Index) {
			best = i
		}
	}
	stopIdx := len(actions) - 1
	if best == -1 || actions[stopIdx].pref >= actions[best].pref {
		return stopIdx
	}
	return best
}

func (r *RL) pickSoftmax(actions []rlAction) int {
	probs := softmax(actions)
	roll := r.rng.Float64()
	var cum float64
	for i, p := range probs {
		cum += p
		if roll <= cum {
			return i
		}
	}
	return len(actions) - 1
}

func (r *RL) PromotionCheck(e *Engine, c *Cse) bool { return true }
func (r *RL) AdjustHeuristic(e *Engine, c *Cse)     {}

// ConsiderCandidates runs one of the three RL sub-modes (spec.md §4.5.3):
// Update when a replay sequence with rewards is configured, otherwise the
// iterative Greedy/Softmax decision loop.
func (r *RL) ConsiderCandidates(e *Engine) Status {
	if len(e.cfg.ReplayCSE) > 0 && len(e.cfg.ReplayCSEReward) == len(e.cfg.ReplayCSE) {
		return r.considerReplayUpdate(e)
	}
	return r.considerIterative(e)
}

func (r *RL) considerIterative(e *Engine) Status {
	remaining := sortByCandidateValue(viableCandidates(e))
	madeChanges := false

	for len(remaining) > 0 {
		actions := r.scoreActions(e, remaining)
		var choice int
		if r.Greedy {
			choice = r.pickGreedy(actions)
		} else {
			choice = r.pickSoftmax(actions)
		}
		chosen := actions[choice]
		if chosen.c == nil {
			if r.Verbose {
				r.Decisions = append(r.Decisions, debugf("rl: stop"))
			}
			break
		}
		if e.cfg.NoCSE2[chosen.c.Index] || !e.cfg.attemptAllowed(chosen.c.Index) {
			remaining = removeCandidate(remaining, chosen.c)
			continue
		}
		if r.Verbose {
			r.Decisions = append(r.Decisions, debugf("rl: promote candidate %d (pref=%.4f)", chosen.c.Index, chosen.pref))
		}
		e.performCSE(chosen.c)
		madeChanges = true
		remaining = removeCandidate(remaining, chosen.c)
	}

	if madeChanges {
		return ModifiedEverything
	}
	return ModifiedNothing
}

// considerReplayUpdate replays Config.ReplayCSE, performing each promotion
// in sequence, and accumulates the policy-gradient update spec.md §4.5.3
// describes: Δparams += α·reward·(features - Σ_k softmax_k·features_k).
func (r *RL) considerReplayUpdate(e *Engine) Status {
	var delta [rlFeatureCount]float64
	madeChanges := false
	remaining := sortByCandidateValue(viableCandidates(e))

	for step, idx := range e.cfg.ReplayCSE {
		reward := e.cfg.ReplayCSEReward[step]
		c := e.table.findDsc(idx)
		if c == nil || !c.viable() {
			continue
		}

		actions := r.scoreActions(e, remaining)
		probs := softmax(actions)
		var expected [rlFeatureCount]float64
		for i, a := range actions {
			for k := range expected {
				expected[k] += probs[i] * a.feat[k]
			}
		}
		chosenFeat := r.features(c)
		for k := range delta {
			delta[k] += r.Alpha * reward * (chosenFeat[k] - expected[k])
		}

		if !e.cfg.NoCSE2[c.Index] && e.cfg.attemptAllowed(c.Index) {
			e.performCSE(c)
			madeChanges = true
		}
		remaining = removeCandidate(remaining, c)
	}

	for k := range r.Params {
		r.Params[k] += delta[k]
	}

	if madeChanges {
		return ModifiedEverything
	}
	return ModifiedNothing
}

func removeCandidate(cands []*Cse, target *Cse) []*Cse {
	out := cands[:0:0]
	for _, c := range cands {
		if c != target {
			out = append(out, c)
		}
	}
	return out
}
