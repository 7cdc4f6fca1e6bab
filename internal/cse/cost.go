package cse

import "kanso/internal/ir"

// costOf estimates execution cost and code-size cost for inst. The kanso IR
// has no costEx/costSz fields (unlike the tree-of-nodes IR spec.md §3
// describes), so this is new, narrowly-scoped per-opcode table: exactly the
// data CSE itself needs to apply MIN_CSE_COST (§4.5.1) and the standard cost
// model (§4.5.2), nothing more.
func costOf(inst ir.Instruction) (ex, sz int) {
	switch i := inst.(type) {
	case *ir.ConstantInstruction:
		return 1, 1
	case *ir.BinaryInstruction:
		switch i.Op {
		case "*", "/", "%":
			return 5, 3
		default:
			return 2, 2
		}
	case *ir.CheckedArithInstruction:
		return 6, 4
	case *ir.LoadInstruction:
		return 3, 2
	case *ir.StorageLoadInstruction:
		return 20, 2
	case *ir.KeyedStorageLoadInstruction:
		return 25, 3
	case *ir.StorageAddrInstruction:
		return 6, 3
	case *ir.SenderInstruction:
		return 2, 1
	case *ir.TopicAddrInstruction:
		return 3, 2
	case *ir.EventSignatureInstruction:
		return 1, 1
	case *ir.PhiInstruction:
		return 0, 0
	default:
		return 1, 1
	}
}
