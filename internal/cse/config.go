package cse

// ConstCSEMode controls whether/how integral constants participate in CSE
// (spec.md §6 "ConstCSE").
type ConstCSEMode int

const (
	// ConstCSEDisabled never creates constant CSE candidates.
	ConstCSEDisabled ConstCSEMode = iota
	// ConstCSEEnabled CSEs identical constants but does not fold nearby
	// constants into a shared anchor.
	ConstCSEEnabled
	// ConstCSEShared additionally folds nearby integral constants into a
	// single shared-anchor candidate (spec.md §4.1 rule 2, §4.6 step 3).
	ConstCSEShared
)

// HeuristicKind selects which of the four heuristic framework
// implementations (spec.md §4.5) drives promotion decisions.
type HeuristicKind int

const (
	HeuristicStandard HeuristicKind = iota
	HeuristicRandom
	HeuristicReplay
	HeuristicRL
)

// CodeOptKind mirrors the standard heuristic's two cost tables (spec.md
// §4.5.2): optimize for speed (register-class driven) or for code size
// (frame-size driven).
type CodeOptKind int

const (
	OptimizeBlendedCode CodeOptKind = iota
	OptimizeForSize
)

// Config gathers every configuration input spec.md §6 names, plus the two
// target-specific parameters SPEC_FULL.md §2 resolves as Open Questions
// (SharedConstShiftBits, the allocator-helper name list).
type Config struct {
	// ConstCSE: enable/disable constant CSE and its "shared" mode.
	ConstCSE ConstCSEMode
	// SharedConstShiftBits: width folded away by encodeSharedConst. Target
	// specific; defaults applied by DefaultConfig.
	SharedConstShiftBits uint

	// NoCSE disables CSE for every function of the program. It is a plain
	// switch: there is no per-method hash or function-name match.
	NoCSE bool
	// NoCSE2 disables individual CSEs by their 1-based candidate sequence
	// number once assigned.
	NoCSE2 map[int]bool

	// CSEHash/CSEMask gate individual promotion attempts: attempt `n` is
	// allowed only if n&CSEMask == CSEHash&CSEMask. A zero mask disables the
	// gate (all attempts allowed).
	CSEHash uint32
	CSEMask uint32

	Heuristic HeuristicKind
	CodeOpt   CodeOptKind

	// RandomCSE: PRNG salt for HeuristicRandom.
	RandomCSE int64

	// ReplayCSE: 1-based candidate indices (as seen in config) to promote,
	// in order; invalid/non-viable indices are skipped.
	ReplayCSE []int
	// ReplayCSEReward: per-step rewards, same length as ReplayCSE, used by
	// the RL heuristic's Update mode when replaying a prior sequence.
	ReplayCSEReward []float64

	// RLCSE: 25 initial linear-model parameters for HeuristicRL.
	RLCSE []float64
	// RLCSEAlpha: learning rate for the Update policy mode.
	RLCSEAlpha float64
	// RLCSEGreedy: true selects the Greedy policy mode; false selects
	// Softmax sampling (ignored when ReplayCSE is set, which always drives
	// Update mode).
	RLCSEGreedy bool
	// RLCSEVerbose: dump per-step decisions.
	RLCSEVerbose bool
	// RLCSECandidateFeatures: dump the 25-feature row computed per
	// candidate at each decision step.
	RLCSECandidateFeatures bool

	// AllocatorHelperNames: CallInstruction.Function names ConsiderTree
	// rejects as "their IND shadows CSE better than they do" (spec.md
	// §4.5.1). See SPEC_FULL.md §2 for why this is a named stand-in rather
	// than a faithful port of the real helper-properties table.
	AllocatorHelperNames map[string]bool
}

// DefaultConfig returns the Standard heuristic with constant CSE enabled in
// shared mode, gas-optimized (OptimizeBlendedCode) cost tables, and no
// per-attempt overrides -- the configuration internal/ir's optimization
// pipeline uses when it calls cse.Run.
func DefaultConfig() Config {
	return Config{
		ConstCSE:             ConstCSEShared,
		SharedConstShiftBits: 16,
		NoCSE2:               map[int]bool{},
		CSEMask:              0,
		Heuristic:            HeuristicStandard,
		CodeOpt:              OptimizeBlendedCode,
		RLCSEAlpha:           0.01,
		AllocatorHelperNames: map[string]bool{
			"alloc":           true,
			"abi_encode":      true,
			"keccak256_alloc": true,
		},
	}
}

// attemptAllowed implements the CSEHash/CSEMask per-attempt testing knob
// (spec.md §7 "Heuristic overrides (config)").
func (c Config) attemptAllowed(attempt int) bool {
	if c.CSEMask == 0 {
		return true
	}
	return uint32(attempt)&c.CSEMask == c.CSEHash&c.CSEMask
}
