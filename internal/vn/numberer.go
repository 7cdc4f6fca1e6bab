package vn

import (
	"fmt"

	"kanso/internal/ir"
)

// Numberer assigns VNPairs to every instruction of a function by structural
// hashing: two instructions of the same opcode whose operands already carry
// equal VNs are assigned the same normal VN. This mirrors the walk-blocks,
// classify-by-instruction-type shape of ConstantFolding.identifyConstants in
// internal/ir/optimizations.go, generalized from "is this a constant" to
// "what value number does this produce."
type Numberer struct {
	Store *Store

	// pairs maps an instruction ID (Instruction.GetID()) to its VNPair.
	pairs map[int]VNPair
	// table maps a structural fingerprint to the normal VN already assigned
	// to an earlier, equivalent instruction (local value numbering).
	table map[string]VN
}

// NewNumberer creates a Numberer backed by a fresh Store.
func NewNumberer() *Numberer {
	return &Numberer{
		Store: NewStore(),
		pairs: make(map[int]VNPair),
		table: make(map[string]VN),
	}
}

// PairOf returns the VNPair previously assigned to inst, or the zero pair
// (NoVN, NoVN) if inst was never numbered.
func (n *Numberer) PairOf(inst ir.Instruction) VNPair {
	if p, ok := n.pairs[inst.GetID()]; ok {
		return p
	}
	return VNPair{Liberal: NoVN, Conservative: NoVN}
}

// Number walks fn's blocks in layout order and assigns a VNPair to every
// instruction, including block terminators.
func (n *Numberer) Number(fn *ir.Function) {
	for _, block := range fn.Blocks {
		for _, inst := range block.Instructions {
			n.numberInstruction(inst)
		}
		if block.Terminator != nil {
			n.numberInstruction(block.Terminator)
		}
	}
}

func (n *Numberer) valueVN(v *ir.Value) VN {
	if v == nil {
		return n.Store.NewNormal()
	}
	if v.DefInst == nil {
		// Function parameter or otherwise externally defined value: each
		// distinct *Value gets its own fresh normal VN, memoized by pointer
		// identity via a synthetic per-value fingerprint.
		key := fmt.Sprintf("param:%p", v)
		if existing, ok := n.table[key]; ok {
			return existing
		}
		fresh := n.Store.NewNormal()
		n.table[key] = fresh
		return fresh
	}
	return n.PairOf(v.DefInst).Liberal
}

func (n *Numberer) numberInstruction(inst ir.Instruction) {
	if _, ok := n.pairs[inst.GetID()]; ok {
		return
	}

	var normal VN
	var exc ExcSet

	switch i := inst.(type) {
	case *ir.ConstantInstruction:
		key := n.fingerprint("const", i.Value)
		if existing, ok := n.table[key]; ok {
			normal = existing
		} else {
			normal = n.Store.NewConstant(i.Value)
			n.table[key] = normal
		}
	case *ir.BinaryInstruction:
		fp := n.fingerprint("bin", i.Op, n.valueVN(i.Left), n.valueVN(i.Right))
		normal = n.internFingerprint(fp)
		if i.Op == "/" || i.Op == "%" {
			exc = ExcSet(ExcDivideByZero)
		}
	case *ir.CheckedArithInstruction:
		fp := n.fingerprint("chkarith", i.Op, n.valueVN(i.Left), n.valueVN(i.Right))
		normal = n.internFingerprint(fp)
		exc = ExcSet(ExcOverflow)
	case *ir.LoadInstruction:
		fp := n.fingerprint("load", n.valueVN(i.Address))
		normal = n.internFingerprint(fp)
		exc = ExcSet(ExcNullDeref)
	case *ir.StorageLoadInstruction:
		fp := n.fingerprint("sload", fmt.Sprintf("%d", i.SlotNum), n.valueVN(i.Slot))
		normal = n.internFingerprint(fp)
	case *ir.KeyedStorageLoadInstruction:
		fp := n.fingerprint("ksload", fmt.Sprintf("%d", i.BaseSlot), n.valueVN(i.Key))
		normal = n.internFingerprint(fp)
		exc = ExcSet(ExcIndexOutOfRange)
	case *ir.StoreInstruction:
		fp := n.fingerprint("store", n.valueVN(i.Address), n.valueVN(i.Value))
		normal = n.internFingerprint(fp)
		exc = ExcSet(ExcNullDeref)
	case *ir.KeyedStorageStoreInstruction:
		fp := n.fingerprint("ksstore", fmt.Sprintf("%d", i.BaseSlot), n.valueVN(i.Key), n.valueVN(i.Value))
		normal = n.internFingerprint(fp)
		exc = ExcSet(ExcIndexOutOfRange)
	case *ir.SenderInstruction:
		normal = n.internFingerprint(n.fingerprint("sender"))
	case *ir.StorageAddrInstruction:
		args := []VN{}
		for _, k := range i.Keys {
			args = append(args, n.valueVN(k))
		}
		fp := n.fingerprint("saddr", fmt.Sprintf("%d", i.BaseSlot), args)
		normal = n.internFingerprint(fp)
	case *ir.TopicAddrInstruction:
		fp := n.fingerprint("topicaddr", n.valueVN(i.Address))
		normal = n.internFingerprint(fp)
	case *ir.EventSignatureInstruction:
		fp := n.fingerprint("evsig", i.Signature)
		normal = n.internFingerprint(fp)
	case *ir.PhiInstruction:
		// Phis merge control flow; each is its own fresh normal VN unless
		// every input already shares one (a degenerate, single-predecessor
		// phi a later pass may have produced).
		var shared VN = NoVN
		allEqual := len(i.Inputs) > 0
		for _, in := range i.Inputs {
			vn := n.valueVN(in)
			if shared == NoVN {
				shared = vn
			} else if shared != vn {
				allEqual = false
			}
		}
		if allEqual && shared != NoVN {
			normal = shared
		} else {
			normal = n.Store.NewNormal()
		}
	default:
		// Stores, requires, emits, logs, terminators, reverts: these either
		// produce no result or are side-effecting control; they still need
		// a VNPair placeholder so GetEffects-driven CSE logic has something
		// uniform to ask about, but it is never a CSE fingerprint key since
		// ConsiderTree (internal/cse) rejects non-value-producing trees.
		normal = n.Store.NewNormal()
	}

	liberal := n.Store.NewWithExceptions(normal, exc)
	n.pairs[inst.GetID()] = VNPair{Liberal: liberal, Conservative: normal}
}

func (n *Numberer) fingerprint(parts ...interface{}) string {
	return fmt.Sprint(parts...)
}

func (n *Numberer) internFingerprint(fp string) VN {
	if existing, ok := n.table[fp]; ok {
		return existing
	}
	fresh := n.Store.NewNormal()
	n.table[fp] = fresh
	return fresh
}
