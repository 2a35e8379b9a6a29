package bytecode

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/ifps-tools/ifpsdump/errs"
)

// BasicBlock is a straight-line run of instructions: no jump target lands in
// its interior, and a conditional branch always ends it. An instruction that
// follows an unconditional branch or Ret and is not itself a jump target
// stays in the same block.
type BasicBlock struct {
	Offset       int
	Instructions []int // indices into the owning Function's Body

	Predecessors []int // block offsets
	Successors   []int // block offsets

	// EntryDepth is the inferred stack depth on entry to this block, or nil
	// if the data-flow pass could not determine a consistent value.
	EntryDepth *int
}

func isUnconditionalBranch(op Opcode) bool {
	switch op {
	case OpJump, OpJumpFlag, OpJumpPop1, OpJumpPop2:
		return true
	default:
		return false
	}
}

func isBranch(op Opcode) bool {
	switch op {
	case OpJump, OpJumpTrue, OpJumpFalse, OpJumpFlag, OpJumpPop1, OpJumpPop2:
		return true
	default:
		return false
	}
}

// Blocks builds (and caches) fn's basic-block map, then runs the forward
// stack-depth data-flow pass and the Local-variant stack-bound validation.
// Computation happens on first access; the cache is not safe for concurrent
// access from multiple functions at once.
func (u *Unit) Blocks(fn *Function) (map[int]*BasicBlock, error) {
	if fn.blocks != nil {
		return fn.blocks, nil
	}
	if len(fn.Body) == 0 {
		fn.blocks = map[int]*BasicBlock{}
		return fn.blocks, nil
	}

	blocks := map[int]*BasicBlock{}
	order := []int{}

	ensureBlock := func(offset int) *BasicBlock {
		if b, ok := blocks[offset]; ok {
			return b
		}
		b := &BasicBlock{Offset: offset}
		blocks[offset] = b
		order = append(order, offset)
		return b
	}

	cur := ensureBlock(fn.Body[0].Offset)
	hardBranchedIntoNext := false

	for i, insn := range fn.Body {
		switch {
		case blocks[insn.Offset] != nil && insn.Offset != cur.Offset:
			cur = blocks[insn.Offset]
		case insn.JumpTarget && blocks[insn.Offset] == nil:
			next := ensureBlock(insn.Offset)
			if !hardBranchedIntoNext {
				wireEdge(blocks, cur.Offset, next.Offset)
			}
			cur = next
		}

		cur.Instructions = append(cur.Instructions, i)

		if isBranch(insn.Op) {
			ensureBlock(insn.Target)
			wireEdge(blocks, cur.Offset, insn.Target)
			if !isUnconditionalBranch(insn.Op) && i+1 < len(fn.Body) {
				next := fn.Body[i+1].Offset
				ensureBlock(next)
				wireEdge(blocks, cur.Offset, next)
			}
		}

		hardBranchedIntoNext = insn.Op == OpRet || isUnconditionalBranch(insn.Op)
	}

	// Prune empty blocks (created eagerly as a branch destination that was
	// never actually reached as a fall-through or jump-target start).
	for _, offset := range order {
		b := blocks[offset]
		if len(b.Instructions) == 0 {
			delete(blocks, offset)
			for _, other := range blocks {
				other.Successors = removeInt(other.Successors, offset)
				other.Predecessors = removeInt(other.Predecessors, offset)
			}
		}
	}

	if err := u.traceStack(fn, blocks); err != nil {
		return nil, err
	}
	if err := u.validateStackBounds(fn, blocks); err != nil {
		return nil, err
	}

	fn.blocks = blocks
	return blocks, nil
}

func wireEdge(blocks map[int]*BasicBlock, from, to int) {
	if b, ok := blocks[from]; ok {
		b.Successors = appendUnique(b.Successors, to)
	}
	if b, ok := blocks[to]; ok {
		b.Predecessors = appendUnique(b.Predecessors, from)
	} else {
		blocks[to] = &BasicBlock{Offset: to, Predecessors: []int{from}}
	}
}

func appendUnique(s []int, v int) []int {
	if slices.Contains(s, v) {
		return s
	}
	return append(s, v)
}

func removeInt(s []int, v int) []int {
	out := s[:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

// traceStack runs a deterministic DFS from block 0 (offset of the first
// instruction), propagating entry depth forward and poisoning any block
// reached with two different entry depths (along with everything only
// reachable through that inconsistency).
func (u *Unit) traceStack(fn *Function, blocks map[int]*BasicBlock) error {
	offsets := maps.Keys(blocks)
	slices.Sort(offsets)
	if len(offsets) == 0 {
		return nil
	}

	poisoned := map[int]bool{}
	visited := map[int]int{}

	var visit func(offset, depth int)
	visit = func(offset int, depth int) {
		if poisoned[offset] {
			return
		}
		if prior, seen := visited[offset]; seen {
			if prior != depth {
				poisoned[offset] = true
			}
			return
		}
		visited[offset] = depth

		b := blocks[offset]
		entryCopy := depth
		b.EntryDepth = &entryCopy
		d := depth
		for _, idx := range b.Instructions {
			insn := &fn.Body[idx]
			entry := d
			insn.entryDepth = &entry
			d += insn.stackDelta
		}
		exitDepth := d

		succs := append([]int(nil), b.Successors...)
		slices.Sort(succs)
		for _, s := range succs {
			visit(s, exitDepth)
		}
	}
	visit(fn.Body[0].Offset, 0)

	// A block that is reachable from the entry only by passing through a
	// poisoned block never had a trustworthy depth computed for it either,
	// even if visit() happened to assign one on its first (later-invalidated)
	// pass through. Find every block still reachable via some path that
	// never crosses a poisoned block, and poison everything else too.
	clean := map[int]bool{}
	var markClean func(offset int)
	markClean = func(offset int) {
		if clean[offset] || poisoned[offset] {
			return
		}
		clean[offset] = true
		for _, s := range blocks[offset].Successors {
			markClean(s)
		}
	}
	markClean(fn.Body[0].Offset)

	for offset, b := range blocks {
		if poisoned[offset] || clean[offset] {
			continue
		}
		b.EntryDepth = nil
		for _, idx := range b.Instructions {
			fn.Body[idx].entryDepth = nil
		}
	}
	for offset := range poisoned {
		b := blocks[offset]
		b.EntryDepth = nil
		for _, idx := range b.Instructions {
			fn.Body[idx].entryDepth = nil
		}
	}
	return nil
}

// validateStackBounds checks every operand (and index sub-operand) that
// references a Local variant: its slot must be strictly below the
// instruction's inferred entry depth.
func (u *Unit) validateStackBounds(fn *Function, blocks map[int]*BasicBlock) error {
	for i := range fn.Body {
		insn := &fn.Body[i]
		if insn.entryDepth == nil {
			continue
		}
		depth := *insn.entryDepth
		for slot, op := range insn.Operands {
			if err := checkOperandBounds(fn, insn, slot, op, depth); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkOperandBounds(fn *Function, insn *Instruction, slot int, op Operand, depth int) error {
	if op.Variant.Kind == VariantLocal && int(op.Variant.Slot) >= depth {
		return errs.StackUnderflow(fn.Name, insn.Offset, slot, int(op.Variant.Slot), depth)
	}
	if op.VarIndex != nil && op.VarIndex.Kind == VariantLocal && int(op.VarIndex.Slot) >= depth {
		return errs.StackUnderflow(fn.Name, insn.Offset, slot, int(op.VarIndex.Slot), depth)
	}
	return nil
}
