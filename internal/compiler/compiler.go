// Package compiler lowers scanned tokens into the arena IR and applies the
// optimizer's rewrite passes. Compilation never fails: any token stream that
// survives the lexer produces a program, and every pass preserves the
// observable behavior of the unoptimized lowering.
package compiler

import (
	"github.com/tapemachine/bfc/internal/ir"
	"github.com/tapemachine/bfc/internal/lexer"
)

// Options selects the optimizer's rewrite passes. The zero value disables
// everything and yields the plain one-token-per-op lowering.
type Options struct {
	// Collapse fuses runs of adjacent cell and pointer tokens into single
	// ops with summed deltas. Runs with a zero net delta are elided.
	Collapse bool `json:"collapse"`

	// LoopSimplify rewrites recognizable loop shapes: clear loops become
	// Clear and multiply-copy loops become MulCopy.
	LoopSimplify bool `json:"loop_simplify"`

	// ScanLoops rewrites pure pointer-movement loops into Scan ops.
	ScanLoops bool `json:"scan_loops"`

	// PartialEval executes the program abstractly at compile time, folding
	// everything computable without input into the residual program.
	PartialEval bool `json:"partial_eval"`
}

// DefaultOptions returns the standard pass selection. Partial evaluation is
// opt-in; everything else is on.
func DefaultOptions() Options {
	return Options{Collapse: true, LoopSimplify: true, ScanLoops: true}
}

// Unoptimized returns the pass selection that keeps the lowering untouched,
// one op per token. Useful as the reference side of equivalence checks.
func Unoptimized() Options {
	return Options{}
}

// Build lexes src and compiles the resulting tokens in one step.
func Build(src []byte, opts Options) (*ir.Program, error) {
	tokens, err := lexer.Scan(src)
	if err != nil {
		return nil, err
	}
	return Compile(tokens, opts), nil
}

// Compile lowers tokens into an arena program and runs the passes selected
// by opts. The token stream must come from lexer.Scan, which guarantees
// balanced brackets with resolved Match indices.
func Compile(tokens []lexer.Token, opts Options) *ir.Program {
	c := &compiler{opts: opts}
	root := c.lowerBlock(tokens, 0, len(tokens))
	if opts.PartialEval {
		root = newPartialEvaluator(c).run(root)
	}
	if opts.LoopSimplify || opts.ScanLoops {
		c.simplifyBlock(root)
	}
	return &ir.Program{Ops: c.ops, Root: root}
}

type compiler struct {
	opts Options
	ops  []ir.Op
}

// push appends op to the arena and returns its index.
func (c *compiler) push(op ir.Op) uint32 {
	c.ops = append(c.ops, op)
	return uint32(len(c.ops) - 1)
}

// lowerBlock converts tokens[start:end) into a block of arena indices.
// Loop ops are pushed before their bodies so arena indices increase in
// source order.
func (c *compiler) lowerBlock(tokens []lexer.Token, start, end int) []uint32 {
	var block []uint32
	i := start
	for i < end {
		tok := tokens[i]
		switch tok.Kind {
		case lexer.IncrementCell, lexer.DecrementCell:
			if !c.opts.Collapse {
				block = append(block, c.push(ir.Op{Kind: ir.OpAdd, Arg: cellDelta(tok.Kind), Pos: tok.Pos}))
				i++
				continue
			}
			var sum int64
			j := i
			for j < end && (tokens[j].Kind == lexer.IncrementCell || tokens[j].Kind == lexer.DecrementCell) {
				sum += cellDelta(tokens[j].Kind)
				j++
			}
			if d := reduceCellDelta(sum); d != 0 {
				block = append(block, c.push(ir.Op{Kind: ir.OpAdd, Arg: d, Pos: tok.Pos}))
			}
			i = j

		case lexer.IncrementPointer, lexer.DecrementPointer:
			if !c.opts.Collapse {
				block = append(block, c.push(ir.Op{Kind: ir.OpMove, Arg: ptrDelta(tok.Kind), Pos: tok.Pos}))
				i++
				continue
			}
			var sum int64
			j := i
			for j < end && (tokens[j].Kind == lexer.IncrementPointer || tokens[j].Kind == lexer.DecrementPointer) {
				sum += ptrDelta(tokens[j].Kind)
				j++
			}
			if sum != 0 {
				block = append(block, c.push(ir.Op{Kind: ir.OpMove, Arg: sum, Pos: tok.Pos}))
			}
			i = j

		case lexer.Output:
			block = append(block, c.push(ir.Op{Kind: ir.OpOutput, Pos: tok.Pos}))
			i++

		case lexer.Input:
			block = append(block, c.push(ir.Op{Kind: ir.OpInput, Pos: tok.Pos}))
			i++

		case lexer.LoopOpen:
			idx := c.push(ir.Op{Kind: ir.OpLoop, Pos: tok.Pos})
			body := c.lowerBlock(tokens, i+1, tok.Match)
			c.ops[idx].Body = body
			block = append(block, idx)
			i = tok.Match + 1

		default:
			// lexer.LoopClose is consumed by the matching LoopOpen above.
			i++
		}
	}
	return block
}

func cellDelta(k lexer.TokenKind) int64 {
	if k == lexer.IncrementCell {
		return 1
	}
	return -1
}

func ptrDelta(k lexer.TokenKind) int64 {
	if k == lexer.IncrementPointer {
		return 1
	}
	return -1
}

// reduceCellDelta maps a summed cell delta to its canonical representative
// in [-127, 128]. Cells wrap modulo 256, so any sum is equivalent to exactly
// one value in that range.
func reduceCellDelta(sum int64) int64 {
	d := sum % 256
	if d < 0 {
		d += 256
	}
	if d > 128 {
		d -= 256
	}
	return d
}
