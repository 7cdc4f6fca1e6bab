package cse

import (
	"kanso/internal/ir"
	"kanso/internal/vn"
)

// occurrence is one appearance of a candidate expression: the instruction
// itself, the block it lives in, and its position in that block's
// instruction list (kanso's IR is already flattened into one instruction per
// "statement" — there is no separate statement-owning-a-tree layer to walk,
// unlike the tree-of-nodes IR spec.md's §3 describes, so occurrence tracking
// collapses one level).
type occurrence struct {
	inst  ir.Instruction
	block *ir.BasicBlock
	pos   int
}

// Cse is the per-fingerprint candidate descriptor (spec.md §3).
type Cse struct {
	Key            Key
	Index          int // 1-based; 0 == unassigned
	IsSharedConst  bool

	firstOccurrence occurrence
	occList         []occurrence

	DefCount, UseCount     int
	DefWtCnt, UseWtCnt     float64
	LiveAcrossCall         bool

	defExcSetCurrent      vn.ExcSet
	defExcSetCurrentValid bool
	defExcSetPromise      vn.ExcSet
	abandoned             bool

	defConservNormVN      vn.VN
	defConservNormVNValid bool
	conservDiverged       bool

	NumDistinctLocals    int
	NumLocalOccurrences  int

	ConstDefValue interface{}
	ConstDefVN    vn.VN

	// promoted records whether performCSE actually rewrote this candidate,
	// for reporting purposes only (cmd/kanso-cse's dump subcommand) -- it
	// plays no role in any decision the engine itself makes.
	promoted bool
}

// viable reports whether the candidate satisfies spec.md §3 invariant 3:
// defCount+useCount >= 2, and the candidate has not been abandoned outright.
func (c *Cse) viable() bool {
	return !c.abandoned && c.DefCount+c.UseCount >= 2
}

// Key is the fingerprint used to group candidates (spec.md §4.1). It is
// either a plain value number (non-negative) or an encoded shared-constant
// key (distinguished by sharedConstKeyBit), kept disjoint by construction.
type Key int64

const sharedConstKeyBit Key = 1 << 62

// table is the candidate hash + dense index (spec.md §3 "Candidate table").
type table struct {
	buckets    map[Key][]*Cse
	bucketCnt  int
	all        []*Cse // insertion order, used to build the dense index
	index      []*Cse // index[i-1] == candidate with Index i, built by buildIndex
	full       bool
}

func newTable() *table {
	return &table{
		buckets:   make(map[Key][]*Cse),
		bucketCnt: 8,
	}
}

// lookup finds an existing candidate with the given key, or nil.
func (t *table) lookup(key Key) *Cse {
	for _, c := range t.buckets[key] {
		if c.Key == key {
			return c
		}
	}
	return nil
}

// insertNew creates and indexes a new candidate for key. Returns nil (and
// sets t.full) if MaxCSE has already been reached — spec.md §7
// "CSE_TABLE_FULL": stop creating new candidates, existing ones proceed.
func (t *table) insertNew(key Key, isSharedConst bool) *Cse {
	if len(t.all) >= MaxCSE {
		t.full = true
		return nil
	}
	c := &Cse{
		Key:           key,
		IsSharedConst: isSharedConst,
		ConstDefVN:    vn.NoVN,
	}
	t.buckets[key] = append(t.buckets[key], c)
	t.all = append(t.all, c)
	if len(t.all) > 4*t.bucketCnt {
		t.grow()
	}
	return c
}

func (t *table) grow() {
	t.bucketCnt *= 2
	// Re-bucketing by key is a pure capacity change here (we key buckets by
	// the Key value itself via a Go map, so there is nothing to rehash) --
	// bucketCnt is retained purely to preserve the load-factor accounting
	// spec.md §4.1 describes.
}

// buildIndex assigns 1-based Index values in first-seen order and populates
// the dense index array (spec.md §4.2 optCSEstop). No candidates is a valid,
// common case -- the whole pass becomes a no-op.
func (t *table) buildIndex() {
	t.index = make([]*Cse, len(t.all))
	for i, c := range t.all {
		c.Index = i + 1
		t.index[i] = c
	}
}

// findDsc is the O(1) candidate lookup by 1-based index (spec.md §4.2
// optCSEfindDsc).
func (t *table) findDsc(i int) *Cse {
	if i <= 0 || i > len(t.index) {
		return nil
	}
	return t.index[i-1]
}

func (t *table) count() int { return len(t.all) }
