package ir

import (
	"fmt"
	"strings"
)

// Disasm renders the op at arena index idx as a single mnemonic line.
func Disasm(p *Program, idx uint32) string {
	op := p.Ops[idx]
	switch op.Kind {
	case OpAdd, OpMove, OpScan, OpSetPtr, OpEmit:
		return fmt.Sprintf("%s %d", op.Kind, op.Arg)
	case OpSetCell:
		return fmt.Sprintf("setcell %d, %d", op.Off, op.Arg)
	case OpMulCopy:
		var b strings.Builder
		b.WriteString("mulcopy")
		for _, f := range op.Factors {
			fmt.Fprintf(&b, " %+d*%d", f.Offset, f.Multiplier)
		}
		return b.String()
	default:
		return op.Kind.String()
	}
}

// DisasmProgram renders the whole program as a listing, one op per line
// prefixed by its arena index, loop bodies indented under their loop.
func DisasmProgram(p *Program) string {
	var b strings.Builder
	disasmBlock(&b, p, p.Root, 0)
	return b.String()
}

func disasmBlock(b *strings.Builder, p *Program, block []uint32, depth int) {
	for _, idx := range block {
		fmt.Fprintf(b, "%4d  %s%s\n", idx, strings.Repeat("  ", depth), Disasm(p, idx))
		if p.Ops[idx].Kind == OpLoop {
			disasmBlock(b, p, p.Ops[idx].Body, depth+1)
		}
	}
}

// SourceText reconstructs canonical instruction text for the op at idx.
// Specialized ops render as the idiom they replaced; partial-evaluation
// products have no source form and render as {mnemonic}.
func SourceText(p *Program, idx uint32) string {
	var b strings.Builder
	sourceOp(&b, p, idx)
	return b.String()
}

func sourceOp(b *strings.Builder, p *Program, idx uint32) {
	op := p.Ops[idx]
	switch op.Kind {
	case OpAdd:
		writeRun(b, op.Arg, '+', '-')
	case OpMove:
		writeRun(b, op.Arg, '>', '<')
	case OpInput:
		b.WriteByte(',')
	case OpOutput:
		b.WriteByte('.')
	case OpClear:
		b.WriteString("[-]")
	case OpScan:
		b.WriteByte('[')
		writeRun(b, op.Arg, '>', '<')
		b.WriteByte(']')
	case OpMulCopy:
		// Factors are offset-sorted, so the walk visits each target once
		// and returns the pointer to the origin at the end.
		b.WriteString("[-")
		at := int64(0)
		for _, f := range op.Factors {
			writeRun(b, f.Offset-at, '>', '<')
			at = f.Offset
			writeRun(b, f.Multiplier, '+', '-')
		}
		writeRun(b, -at, '>', '<')
		b.WriteByte(']')
	case OpLoop:
		b.WriteByte('[')
		for _, c := range op.Body {
			sourceOp(b, p, c)
		}
		b.WriteByte(']')
	default:
		fmt.Fprintf(b, "{%s}", Disasm(p, idx))
	}
}

func writeRun(b *strings.Builder, n int64, pos, neg byte) {
	ch := pos
	if n < 0 {
		ch, n = neg, -n
	}
	for ; n > 0; n-- {
		b.WriteByte(ch)
	}
}
