// SPDX-License-Identifier: Apache-2.0
package main

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"kanso/internal/cse"
)

// cseFlags mirrors the §6 configuration table 1:1; bound onto both the run
// and dump subcommands identically so either can drive any heuristic.
type cseFlags struct {
	constCSE bool
	noCSE    bool
	noCSE2   []int
	cseHash  uint32
	cseMask  uint32

	randomCSE int64

	replayCSE   []int
	rlRewardRaw string

	rlParamsRaw            string
	rlCSEAlpha             float64
	rlCSEGreedy            bool
	rlCSEVerbose           bool
	rlCSECandidateFeatures bool
}

func registerCSEFlags(cmd *cobra.Command, f *cseFlags) {
	cmd.Flags().BoolVar(&f.constCSE, "const-cse", true, "Fold identical/nearby integral constants into shared CSE candidates")
	cmd.Flags().BoolVar(&f.noCSE, "no-cse", false, "Disable CSE entirely")
	cmd.Flags().IntSliceVar(&f.noCSE2, "no-cse2", nil, "1-based candidate indices to exclude from promotion")
	cmd.Flags().Uint32Var(&f.cseHash, "cse-hash", 0, "Per-attempt hash compared against --cse-mask")
	cmd.Flags().Uint32Var(&f.cseMask, "cse-mask", 0, "Mask gating which promotion attempts are allowed (0 disables the gate)")

	cmd.Flags().Int64Var(&f.randomCSE, "random-cse", 0, "PRNG salt for the random heuristic")

	cmd.Flags().IntSliceVar(&f.replayCSE, "replay-cse", nil, "1-based candidate indices to promote, in order, for the replay heuristic")
	cmd.Flags().StringVar(&f.rlRewardRaw, "replay-cse-reward", "", "Comma-separated per-step rewards, same length as --replay-cse")

	cmd.Flags().StringVar(&f.rlParamsRaw, "rl-cse", "", "Comma-separated 25 initial linear-model parameters for the RL heuristic")
	cmd.Flags().Float64Var(&f.rlCSEAlpha, "rl-cse-alpha", 0.01, "Learning rate for the RL heuristic's Update policy mode")
	cmd.Flags().BoolVar(&f.rlCSEGreedy, "rl-cse-greedy", false, "Select the RL heuristic's Greedy policy mode instead of Softmax sampling")
	cmd.Flags().BoolVar(&f.rlCSEVerbose, "rl-cse-verbose", false, "Dump the RL heuristic's per-step decisions")
	cmd.Flags().BoolVar(&f.rlCSECandidateFeatures, "rl-cse-candidate-features", false, "Dump the RL heuristic's 25-feature row per candidate per decision step")
}

func (f *cseFlags) toConfig() (cse.Config, error) {
	cfg := cse.DefaultConfig()

	if f.constCSE {
		cfg.ConstCSE = cse.ConstCSEShared
	} else {
		cfg.ConstCSE = cse.ConstCSEDisabled
	}
	cfg.NoCSE = f.noCSE
	cfg.NoCSE2 = map[int]bool{}
	for _, idx := range f.noCSE2 {
		cfg.NoCSE2[idx] = true
	}
	cfg.CSEHash = f.cseHash
	cfg.CSEMask = f.cseMask

	cfg.Heuristic = cse.HeuristicStandard
	cfg.RandomCSE = f.randomCSE
	cfg.ReplayCSE = f.replayCSE

	rewards, err := parseFloats(f.rlRewardRaw)
	if err != nil {
		return cfg, err
	}
	cfg.ReplayCSEReward = rewards
	if len(f.replayCSE) > 0 {
		cfg.Heuristic = cse.HeuristicReplay
	}

	params, err := parseFloats(f.rlParamsRaw)
	if err != nil {
		return cfg, err
	}
	if len(params) > 0 {
		cfg.Heuristic = cse.HeuristicRL
		cfg.RLCSE = params
	}
	cfg.RLCSEAlpha = f.rlCSEAlpha
	cfg.RLCSEGreedy = f.rlCSEGreedy
	cfg.RLCSEVerbose = f.rlCSEVerbose
	cfg.RLCSECandidateFeatures = f.rlCSECandidateFeatures

	if f.randomCSE != 0 && len(params) == 0 && len(f.replayCSE) == 0 {
		cfg.Heuristic = cse.HeuristicRandom
	}

	return cfg, nil
}

func parseFloats(raw string) ([]float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
