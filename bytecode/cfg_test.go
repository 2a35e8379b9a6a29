package bytecode

import "testing"

func TestBlocksLinearBody(t *testing.T) {
	fn := &Function{Name: "F0", Body: []Instruction{
		{Offset: 0, Op: OpPush, stackDelta: 1},
		{Offset: 1, Op: OpPop, stackDelta: -1},
		{Offset: 2, Op: OpRet},
	}}
	u := &Unit{}
	blocks, err := u.Blocks(fn)
	if err != nil {
		t.Fatalf("Blocks: %v", err)
	}
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	b := blocks[0]
	if b.EntryDepth == nil || *b.EntryDepth != 0 {
		t.Fatalf("EntryDepth = %v, want 0", b.EntryDepth)
	}
	if fn.Body[1].entryDepth == nil || *fn.Body[1].entryDepth != 1 {
		t.Fatalf("second instruction entryDepth = %v, want 1", fn.Body[1].entryDepth)
	}
}

func TestBlocksSplitAtJumpTarget(t *testing.T) {
	fn := &Function{Name: "F0", Body: []Instruction{
		{Offset: 0, Op: OpJump, Target: 1},
		{Offset: 1, Op: OpRet},
	}}
	u := &Unit{}
	blocks, err := u.Blocks(fn)
	if err != nil {
		t.Fatalf("Blocks: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if blocks[0].Successors[0] != 1 {
		t.Fatalf("block 0 successors = %v, want [1]", blocks[0].Successors)
	}
	if blocks[1].Predecessors[0] != 0 {
		t.Fatalf("block 1 predecessors = %v, want [0]", blocks[1].Predecessors)
	}
}

func TestBlocksPoisonOnConflictingDepth(t *testing.T) {
	// Block 0's JumpTrue falls through to block 1 and branches to block
	// 10, both at depth 0. Block 1 pushes once and jumps to block 20 at
	// depth 1; block 10 pushes twice and jumps to block 20 at depth 2, so
	// block 20 is reached with two different depths and must come out
	// poisoned (EntryDepth nil).
	fn := &Function{Name: "F0", Body: []Instruction{
		{Offset: 0, Op: OpJumpTrue, Target: 10, stackDelta: 0},
		{Offset: 1, Op: OpPush, stackDelta: 1},
		{Offset: 2, Op: OpJump, Target: 20, stackDelta: 0},

		{Offset: 10, Op: OpPush, stackDelta: 1},
		{Offset: 11, Op: OpPush, stackDelta: 1},
		{Offset: 12, Op: OpJump, Target: 20, stackDelta: 0},

		{Offset: 20, Op: OpRet, stackDelta: 0},
	}}
	u := &Unit{}
	blocks, err := u.Blocks(fn)
	if err != nil {
		t.Fatalf("Blocks: %v", err)
	}
	b20, ok := blocks[20]
	if !ok {
		t.Fatal("expected a block at offset 20")
	}
	if b20.EntryDepth != nil {
		t.Fatalf("EntryDepth = %v, want nil (poisoned)", *b20.EntryDepth)
	}
}

func TestBlocksPoisonPropagatesTransitively(t *testing.T) {
	// Same conflicting-depth setup as above, but block 20 now jumps on to
	// block 30 instead of returning. Block 30 is reachable only through
	// block 20, which ends up poisoned, so block 30's depth (computed once,
	// via block 20's first and later-invalidated pass) must also come out
	// nil rather than keeping its stale value.
	fn := &Function{Name: "F0", Body: []Instruction{
		{Offset: 0, Op: OpJumpTrue, Target: 10, stackDelta: 0},
		{Offset: 1, Op: OpPush, stackDelta: 1},
		{Offset: 2, Op: OpJump, Target: 20, stackDelta: 0},

		{Offset: 10, Op: OpPush, stackDelta: 1},
		{Offset: 11, Op: OpPush, stackDelta: 1},
		{Offset: 12, Op: OpJump, Target: 20, stackDelta: 0},

		{Offset: 20, Op: OpPush, stackDelta: 1},
		{Offset: 21, Op: OpJump, Target: 30, stackDelta: 0},

		{Offset: 30, Op: OpRet, stackDelta: 0},
	}}
	u := &Unit{}
	blocks, err := u.Blocks(fn)
	if err != nil {
		t.Fatalf("Blocks: %v", err)
	}
	b20, ok := blocks[20]
	if !ok {
		t.Fatal("expected a block at offset 20")
	}
	if b20.EntryDepth != nil {
		t.Fatalf("block 20 EntryDepth = %v, want nil (poisoned)", *b20.EntryDepth)
	}
	b30, ok := blocks[30]
	if !ok {
		t.Fatal("expected a block at offset 30")
	}
	if b30.EntryDepth != nil {
		t.Fatalf("block 30 EntryDepth = %v, want nil (only reachable through the poisoned block 20)", *b30.EntryDepth)
	}
}

func TestValidateStackBoundsRejectsUnallocatedLocal(t *testing.T) {
	fn := &Function{Name: "F0", Body: []Instruction{
		{
			Offset: 0, Op: OpAssign, stackDelta: 0,
			Operands: []Operand{
				{Kind: OperandVariant, Variant: Variant{Kind: VariantLocal, Slot: 0}},
				{Kind: OperandValue, Value: Value{Payload: int64(1)}},
			},
		},
	}}
	u := &Unit{}
	if _, err := u.Blocks(fn); err == nil {
		t.Fatal("expected a stack-underflow error for a Local slot at depth 0")
	}
}

func TestValidateStackBoundsAcceptsAllocatedLocal(t *testing.T) {
	fn := &Function{Name: "F0", Body: []Instruction{
		{Offset: 0, Op: OpPush, stackDelta: 1},
		{
			Offset: 1, Op: OpAssign, stackDelta: 0,
			Operands: []Operand{
				{Kind: OperandVariant, Variant: Variant{Kind: VariantLocal, Slot: 0}},
				{Kind: OperandValue, Value: Value{Payload: int64(1)}},
			},
		},
	}}
	u := &Unit{}
	if _, err := u.Blocks(fn); err != nil {
		t.Fatalf("Blocks: %v, want no error (slot 0 is below entry depth 1)", err)
	}
}
