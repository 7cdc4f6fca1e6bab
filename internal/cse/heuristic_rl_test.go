package cse

import (
	"math"
	"testing"
)

func TestRLFeaturesBiasTermIsAlwaysOne(t *testing.T) {
	fn := buildDupAddFunction(t)
	r := NewRL(DefaultConfig(), 1)
	e := prepareEngine(t, fn, DefaultConfig(), r)

	viable := viableCandidates(e)
	if len(viable) == 0 {
		t.Fatal("fixture should produce at least one viable candidate")
	}
	f := r.features(viable[0])
	if f[23] != 1 {
		t.Errorf("feature 23 (bias) should always be 1, got %v", f[23])
	}
	if f[24] != 0 {
		t.Errorf("feature 24 (stop-only spill estimate) should be zero for a candidate row, got %v", f[24])
	}
}

func TestRLStopFeaturesCarriesSpillEstimate(t *testing.T) {
	fn := buildDupAddFunction(t)
	r := NewRL(DefaultConfig(), 1)
	_ = prepareEngine(t, fn, DefaultConfig(), r)

	f := r.stopFeatures()
	if f[23] != 1 {
		t.Errorf("stop action bias term should be 1, got %v", f[23])
	}
	for i := 0; i < 23; i++ {
		if f[i] != 0 {
			t.Errorf("stop action feature %d should be zero, got %v", i, f[i])
		}
	}
	if f[24] != r.spillEstimate() {
		t.Errorf("stop action feature 24 should equal spillEstimate(), got %v want %v", f[24], r.spillEstimate())
	}
}

func TestRLSpillEstimateEmptyWhenNoEnregisterableCandidates(t *testing.T) {
	r := &RL{}
	if got := r.spillEstimate(); got != 0 {
		t.Errorf("spillEstimate with no sorted weights should be 0, got %v", got)
	}
}

func TestDotProduct(t *testing.T) {
	var a, b [rlFeatureCount]float64
	a[0], a[1] = 2, 3
	b[0], b[1] = 5, 7
	want := 2*5 + 3*7.0
	if got := dot(a, b); got != want {
		t.Errorf("dot() = %v, want %v", got, want)
	}
}

func TestSoftmaxSumsToOne(t *testing.T) {
	actions := []rlAction{{pref: 1.0}, {pref: 2.0}, {pref: -1.0}}
	probs := softmax(actions)
	var sum float64
	for _, p := range probs {
		sum += p
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("softmax probabilities should sum to 1, got %v", sum)
	}
	for i := 1; i < len(probs); i++ {
		if probs[i] < 0 {
			t.Errorf("softmax probability must be non-negative, got %v", probs[i])
		}
	}
	if probs[1] <= probs[0] || probs[1] <= probs[2] {
		t.Errorf("the highest-preference action should get the highest probability, got %v", probs)
	}
}

func TestPickGreedyChoosesHighestPreferenceCandidate(t *testing.T) {
	r := &RL{}
	c1 := &Cse{Index: 1}
	c2 := &Cse{Index: 2}
	actions := []rlAction{
		{c: c1, pref: 0.5},
		{c: c2, pref: 1.5},
		{c: nil, pref: 0.1}, // stop
	}
	choice := r.pickGreedy(actions)
	if actions[choice].c != c2 {
		t.Errorf("pickGreedy should choose the highest-preference candidate, got index %v", choice)
	}
}

func TestPickGreedyChoosesStopWhenItDominates(t *testing.T) {
	r := &RL{}
	c1 := &Cse{Index: 1}
	actions := []rlAction{
		{c: c1, pref: 0.1},
		{c: nil, pref: 5.0}, // stop
	}
	choice := r.pickGreedy(actions)
	if actions[choice].c != nil {
		t.Error("pickGreedy should choose stop when its preference dominates")
	}
}

func TestPickGreedyBreaksStopCandidateTieInFavorOfStop(t *testing.T) {
	r := &RL{}
	c1 := &Cse{Index: 1}
	actions := []rlAction{
		{c: c1, pref: 1.0},
		{c: nil, pref: 1.0}, // stop, exact tie with c1
	}
	choice := r.pickGreedy(actions)
	if actions[choice].c != nil {
		t.Error("pickGreedy should break a stop/candidate preference tie in favor of stop")
	}
}

func TestPickGreedyBreaksTiesByLowerIndex(t *testing.T) {
	r := &RL{}
	c1 := &Cse{Index: 5}
	c2 := &Cse{Index: 2}
	actions := []rlAction{
		{c: c1, pref: 1.0},
		{c: c2, pref: 1.0},
		{c: nil, pref: -10.0},
	}
	choice := r.pickGreedy(actions)
	if actions[choice].c.Index != 2 {
		t.Errorf("pickGreedy should break preference ties by lower candidate index, got %v", actions[choice].c.Index)
	}
}

func TestConsiderIterativeGreedyPromotesWhenCandidateWins(t *testing.T) {
	fn := buildDupAddFunction(t)
	cfg := DefaultConfig()
	r := NewRL(cfg, 1)
	r.Greedy = true
	r.Params[6] = 1.0 // favor the "refs" feature heavily so any real candidate beats stop
	e := prepareEngine(t, fn, cfg, r)

	status := r.ConsiderCandidates(e)
	if status != ModifiedEverything {
		t.Error("a strongly favorable linear model should promote the sole viable candidate")
	}
}

func TestConsiderIterativeGreedyStopsWhenStopWins(t *testing.T) {
	fn := buildDupAddFunction(t)
	cfg := DefaultConfig()
	r := NewRL(cfg, 1)
	r.Greedy = true
	r.Params[24] = 1000.0 // dominate via the spill-estimate feature, which only stop carries with weight
	e := prepareEngine(t, fn, cfg, r)

	status := r.ConsiderCandidates(e)
	if status != ModifiedNothing {
		t.Error("a model that strongly favors stop should make no changes")
	}
}

func TestConsiderReplayUpdateAppliesPolicyGradient(t *testing.T) {
	fn := buildDupAddFunction(t)
	cfg := DefaultConfig()
	cfg.ReplayCSE = []int{1}
	cfg.ReplayCSEReward = []float64{1.0}
	r := NewRL(cfg, 1)
	e := prepareEngine(t, fn, cfg, r)

	before := r.Params
	status := r.ConsiderCandidates(e)
	if status != ModifiedEverything {
		t.Error("replaying a viable candidate index should promote it")
	}
	if r.Params == before {
		t.Error("considerReplayUpdate should adjust Params via the policy-gradient update")
	}
}

func TestConsiderReplayUpdateSkipsInvalidIndex(t *testing.T) {
	fn := buildDupAddFunction(t)
	cfg := DefaultConfig()
	cfg.ReplayCSE = []int{99}
	cfg.ReplayCSEReward = []float64{1.0}
	r := NewRL(cfg, 1)
	e := prepareEngine(t, fn, cfg, r)

	status := r.ConsiderCandidates(e)
	if status != ModifiedNothing {
		t.Error("an invalid replay index should produce no promotions")
	}
}

func TestNewRLCopiesConfigParamsAndTruncatesExcess(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RLCSEAlpha = 0.25
	cfg.RLCSEGreedy = true
	cfg.RLCSE = make([]float64, rlFeatureCount+5)
	for i := range cfg.RLCSE {
		cfg.RLCSE[i] = float64(i + 1)
	}

	r := NewRL(cfg, 42)
	if r.Alpha != 0.25 {
		t.Errorf("Alpha should come from Config.RLCSEAlpha, got %v", r.Alpha)
	}
	if !r.Greedy {
		t.Error("Greedy should come from Config.RLCSEGreedy")
	}
	for i := 0; i < rlFeatureCount; i++ {
		if r.Params[i] != float64(i+1) {
			t.Errorf("Params[%d] = %v, want %v", i, r.Params[i], float64(i+1))
		}
	}
}
