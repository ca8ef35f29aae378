package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapemachine/bfc/internal/ir"
	"github.com/tapemachine/bfc/internal/lexer"
)

func partialOptions() Options {
	return Options{Collapse: true, LoopSimplify: true, ScanLoops: true, PartialEval: true}
}

func TestPartialEval_FoldsConstantOutput(t *testing.T) {
	prog := mustCompile(t, "+++.", partialOptions())
	require.Len(t, prog.Root, 1)
	op := prog.Ops[prog.Root[0]]
	assert.Equal(t, ir.OpEmit, op.Kind)
	assert.Equal(t, int64(3), op.Arg)
}

func TestPartialEval_FoldsLoopsIntoEmits(t *testing.T) {
	prog := mustCompile(t, "++++++++++[>+++++++>++++++++++<<-]>++.>+++++.", partialOptions())
	require.Len(t, prog.Root, 2)
	var out []byte
	for _, idx := range prog.Root {
		op := prog.Ops[idx]
		require.Equal(t, ir.OpEmit, op.Kind)
		out = append(out, byte(op.Arg))
	}
	assert.Equal(t, "Hi", string(out))
}

func TestPartialEval_DefersInputDependentOps(t *testing.T) {
	prog := mustCompile(t, ",.", partialOptions())
	assert.Equal(t, []ir.OpKind{ir.OpInput, ir.OpOutput}, rootKinds(prog))
}

func TestPartialEval_OutputAfterInputStaysKnownElsewhere(t *testing.T) {
	// The cell under the pointer after the move is still known zero, so the
	// output folds to an emit even though another cell became unknown.
	prog := mustCompile(t, ",>.", partialOptions())
	require.Equal(t, []ir.OpKind{ir.OpInput, ir.OpEmit}, rootKinds(prog))
	assert.Equal(t, int64(0), prog.Ops[prog.Root[1]].Arg)
}

func TestPartialEval_UnrollsLoopAroundUnknownCell(t *testing.T) {
	// The loop guard stays known, so all three iterations unroll and the
	// unknown target cell collects three deferred increments.
	prog := mustCompile(t, "+++>,<[->+<]", partialOptions())
	require.Equal(t, []ir.OpKind{ir.OpSetPtr, ir.OpInput, ir.OpAdd, ir.OpAdd, ir.OpAdd}, rootKinds(prog))
	assert.Equal(t, int64(1), prog.Ops[prog.Root[0]].Arg)
	for _, idx := range prog.Root[2:] {
		assert.Equal(t, int64(1), prog.Ops[idx].Arg)
	}
}

func TestPartialEval_BailRestoresLoopEntryState(t *testing.T) {
	// The first iteration defers an input before the inner loop's guard
	// turns out unknown. The bail must discard that deferred input and
	// hand the whole loop to runtime with the entry state materialized,
	// or the program would read a byte twice.
	prog := mustCompile(t, "+++[>,[-]<-]", partialOptions())
	require.Equal(t, []ir.OpKind{ir.OpSetCell, ir.OpLoop}, rootKinds(prog))

	set := prog.Ops[prog.Root[0]]
	assert.Equal(t, int64(3), set.Arg)
	assert.Equal(t, int64(0), set.Off)

	body := prog.Ops[prog.Root[1]].Body
	assert.Equal(t, []ir.OpKind{ir.OpMove, ir.OpInput, ir.OpClear, ir.OpMove, ir.OpAdd}, blockKinds(prog, body))
}

func TestPartialEval_TopLevelUnknownGuardAddsNoSync(t *testing.T) {
	// Nothing to materialize: the pointer never moved and no known cell is
	// nonzero, so the residual program is just input plus the loop.
	prog := mustCompile(t, ",[-]", partialOptions())
	assert.Equal(t, []ir.OpKind{ir.OpInput, ir.OpClear}, rootKinds(prog))
}

func TestPartialEval_RemovesLoopOnZeroGuard(t *testing.T) {
	prog := mustCompile(t, "[.,.]+.", partialOptions())
	require.Len(t, prog.Root, 1)
	op := prog.Ops[prog.Root[0]]
	assert.Equal(t, ir.OpEmit, op.Kind)
	assert.Equal(t, int64(1), op.Arg)
}

func TestPartialEval_FuelExhaustionLeavesResidualLoop(t *testing.T) {
	tokens, err := lexer.Scan([]byte("+[]"))
	require.NoError(t, err)

	c := &compiler{opts: partialOptions()}
	root := c.lowerBlock(tokens, 0, len(tokens))
	pe := newPartialEvaluator(c)
	pe.fuel = 16
	root = pe.run(root)
	prog := &ir.Program{Ops: c.ops, Root: root}

	require.Equal(t, []ir.OpKind{ir.OpSetCell, ir.OpLoop}, rootKinds(prog))
	set := prog.Ops[prog.Root[0]]
	assert.Equal(t, int64(1), set.Arg)
	assert.Equal(t, int64(0), set.Off)
	assert.Empty(t, prog.Ops[prog.Root[1]].Body)
}
