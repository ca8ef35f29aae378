package compiler

import (
	"sort"

	"github.com/tapemachine/bfc/internal/ir"
)

// simplifyBlock applies the loop-shape passes to every loop reachable from
// block, innermost loops first. Recognized loops are rewritten in place at
// the same arena index; their body ops become unreferenced.
func (c *compiler) simplifyBlock(block []uint32) {
	for _, idx := range block {
		if c.ops[idx].Kind == ir.OpLoop {
			c.simplifyLoop(idx)
		}
	}
}

func (c *compiler) simplifyLoop(idx uint32) {
	c.simplifyBlock(c.ops[idx].Body)

	body := c.ops[idx].Body
	pos := c.ops[idx].Pos

	// Clear loop: a single cell adjustment with an odd delta. Odd deltas
	// are invertible modulo 256, so the loop always reaches zero. An even
	// delta diverges from half the starting values and must stay a loop.
	if c.opts.LoopSimplify && len(body) == 1 {
		if b := c.ops[body[0]]; b.Kind == ir.OpAdd && b.Arg%2 != 0 {
			c.ops[idx] = ir.Op{Kind: ir.OpClear, Pos: pos}
			return
		}
	}

	// Scan loop: a single pointer move. The loop strides the tape until it
	// lands on a zero cell.
	if c.opts.ScanLoops && len(body) == 1 {
		if b := c.ops[body[0]]; b.Kind == ir.OpMove && b.Arg != 0 {
			c.ops[idx] = ir.Op{Kind: ir.OpScan, Arg: b.Arg, Pos: pos}
			return
		}
	}

	// Multiply-copy loop: cell and pointer arithmetic only, pointer returns
	// to the origin, and the origin cell decrements by one each iteration.
	// Such a loop runs exactly origin-value times, adding value*multiplier
	// into each target cell and zeroing the origin.
	if c.opts.LoopSimplify {
		if factors, ok := c.mulCopyShape(body); ok {
			if len(factors) == 0 {
				c.ops[idx] = ir.Op{Kind: ir.OpClear, Pos: pos}
			} else {
				c.ops[idx] = ir.Op{Kind: ir.OpMulCopy, Factors: factors, Pos: pos}
			}
			return
		}
	}
}

// mulCopyShape reports whether body is a multiply-copy loop body and, if so,
// returns its factors sorted by offset. Targets whose net delta reduces to
// zero are dropped.
func (c *compiler) mulCopyShape(body []uint32) ([]ir.Factor, bool) {
	var offset int64
	deltas := make(map[int64]int64)
	for _, bi := range body {
		op := c.ops[bi]
		switch op.Kind {
		case ir.OpMove:
			offset += op.Arg
		case ir.OpAdd:
			deltas[offset] += op.Arg
		default:
			return nil, false
		}
	}
	if offset != 0 {
		return nil, false
	}
	origin := deltas[0] % 256
	if origin < 0 {
		origin += 256
	}
	if origin != 255 {
		return nil, false
	}

	factors := make([]ir.Factor, 0, len(deltas)-1)
	for off, d := range deltas {
		if off == 0 {
			continue
		}
		if m := reduceCellDelta(d); m != 0 {
			factors = append(factors, ir.Factor{Offset: off, Multiplier: m})
		}
	}
	sort.Slice(factors, func(a, b int) bool { return factors[a].Offset < factors[b].Offset })
	return factors, true
}
