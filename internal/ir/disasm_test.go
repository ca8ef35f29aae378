package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildMulCopyProgram hand-builds the optimized form of "+++++[->+>++<<]".
func buildMulCopyProgram() *Program {
	return &Program{
		Ops: []Op{
			{Kind: OpAdd, Arg: 5, Pos: Position{Offset: 0, Line: 1, Col: 1}},
			{Kind: OpMulCopy, Factors: []Factor{
				{Offset: 1, Multiplier: 1},
				{Offset: 2, Multiplier: 2},
			}, Pos: Position{Offset: 5, Line: 1, Col: 6}},
		},
		Root: []uint32{0, 1},
	}
}

func TestDisasm_Mnemonics(t *testing.T) {
	p := &Program{
		Ops: []Op{
			{Kind: OpAdd, Arg: -3},
			{Kind: OpMove, Arg: 2},
			{Kind: OpInput},
			{Kind: OpOutput},
			{Kind: OpClear},
			{Kind: OpScan, Arg: -1},
			{Kind: OpSetPtr, Arg: 4},
			{Kind: OpSetCell, Off: -2, Arg: 7},
			{Kind: OpEmit, Arg: 72},
		},
		Root: []uint32{0, 1, 2, 3, 4, 5, 6, 7, 8},
	}

	want := []string{
		"add -3",
		"move 2",
		"input",
		"output",
		"clear",
		"scan -1",
		"setptr 4",
		"setcell -2, 7",
		"emit 72",
	}
	for i, w := range want {
		assert.Equal(t, w, Disasm(p, uint32(i)))
	}
}

func TestDisasm_MulCopyFactors(t *testing.T) {
	p := buildMulCopyProgram()
	assert.Equal(t, "mulcopy +1*1 +2*2", Disasm(p, 1))
}

func TestDisasmProgram_IndentsLoopBodies(t *testing.T) {
	// +[->+<] left as a generic loop
	p := &Program{
		Ops: []Op{
			{Kind: OpAdd, Arg: 1},
			{Kind: OpAdd, Arg: -1},
			{Kind: OpMove, Arg: 1},
			{Kind: OpAdd, Arg: 1},
			{Kind: OpMove, Arg: -1},
			{Kind: OpLoop, Body: []uint32{1, 2, 3, 4}},
		},
		Root: []uint32{0, 5},
	}

	got := DisasmProgram(p)
	want := "" +
		"   0  add 1\n" +
		"   5  loop\n" +
		"   1    add -1\n" +
		"   2    move 1\n" +
		"   3    add 1\n" +
		"   4    move -1\n"
	assert.Equal(t, want, got)
}

func TestSourceText_ReconstructsIdioms(t *testing.T) {
	p := buildMulCopyProgram()
	assert.Equal(t, "+++++", SourceText(p, 0))
	assert.Equal(t, "[->+>++<<]", SourceText(p, 1))
}

func TestSourceText_NegativeOffsets(t *testing.T) {
	p := &Program{
		Ops: []Op{
			{Kind: OpMulCopy, Factors: []Factor{
				{Offset: -1, Multiplier: 1},
				{Offset: 1, Multiplier: -2},
			}},
		},
		Root: []uint32{0},
	}
	assert.Equal(t, "[-<+>>--<]", SourceText(p, 0))
}

func TestSourceText_GenericLoop(t *testing.T) {
	p := &Program{
		Ops: []Op{
			{Kind: OpAdd, Arg: -1},
			{Kind: OpOutput},
			{Kind: OpLoop, Body: []uint32{0, 1}},
		},
		Root: []uint32{2},
	}
	assert.Equal(t, "[-.]", SourceText(p, 2))
}

func TestOpKind_TextRoundTrip(t *testing.T) {
	text, err := OpMulCopy.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "mulcopy", string(text))

	var k OpKind
	require.NoError(t, k.UnmarshalText([]byte("scan")))
	assert.Equal(t, OpScan, k)

	assert.Error(t, k.UnmarshalText([]byte("jmp")))
}
