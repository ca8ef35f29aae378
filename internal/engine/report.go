package engine

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/tapemachine/bfc/internal/ir"
)

// hotLoopLimit caps the number of loops listed in the hot loop summary.
const hotLoopLimit = 10

// WriteProfile writes the execution profile for a completed run: one row
// per reachable op with its execution count, followed by a ranking of the
// generic loops that evaluated their guard most often.
//
// Requires a Result produced with profiling enabled.
func WriteProfile(w io.Writer, prog *ir.Program, res *Result) error {
	if res.Counts == nil {
		return fmt.Errorf("profile report requires a run with profiling enabled")
	}

	fmt.Fprintln(w, "=== Profile ===")
	fmt.Fprintf(w, "Steps: %d\n\n", res.Steps)

	tw := tabwriter.NewWriter(w, 8, 8, 1, '\t', 0)
	fmt.Fprintln(tw, "Index\tPos\tOp\tExecuted")

	var walk func(block []uint32, depth int)
	walk = func(block []uint32, depth int) {
		for _, idx := range block {
			op := prog.Ops[idx]
			fmt.Fprintf(tw, "%d\t%s\t%s%s\t%d\n",
				idx, op.Pos, strings.Repeat("  ", depth), ir.Disasm(prog, idx), res.Counts[idx])
			if op.Kind == ir.OpLoop {
				walk(op.Body, depth+1)
			}
		}
	}
	walk(prog.Root, 0)
	if err := tw.Flush(); err != nil {
		return err
	}

	return writeHotLoops(w, prog, res)
}

type hotLoop struct {
	idx   uint32
	count uint64
}

// writeHotLoops ranks the generic loops by guard evaluations. These are the
// loops the optimizer left alone; a "simple" shape here means the loop does
// pure cell and pointer arithmetic and is worth a closer look.
func writeHotLoops(w io.Writer, prog *ir.Program, res *Result) error {
	var loops []hotLoop
	for idx, op := range prog.Ops {
		if op.Kind == ir.OpLoop && res.Counts[idx] > 0 {
			loops = append(loops, hotLoop{idx: uint32(idx), count: res.Counts[idx]})
		}
	}

	fmt.Fprintln(w, "\n=== Hot Loops ===")
	if len(loops) == 0 {
		fmt.Fprintln(w, "No loops executed.")
		return nil
	}

	sort.Slice(loops, func(a, b int) bool {
		if loops[a].count != loops[b].count {
			return loops[a].count > loops[b].count
		}
		return loops[a].idx < loops[b].idx
	})
	if len(loops) > hotLoopLimit {
		loops = loops[:hotLoopLimit]
	}

	tw := tabwriter.NewWriter(w, 8, 8, 1, '\t', 0)
	fmt.Fprintln(tw, "Rank\tGuard Evals\tShape\tLoop")
	for i, hl := range loops {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n",
			i+1, hl.count, classifyLoop(prog, hl.idx), ir.SourceText(prog, hl.idx))
	}
	return tw.Flush()
}

// classifyLoop labels a generic loop "simple" when its body is pure cell
// and pointer arithmetic that returns to the origin and steps the guard
// cell by one in either direction. Everything else is "complex".
func classifyLoop(prog *ir.Program, idx uint32) string {
	var net, originDelta int64
	for _, b := range prog.Ops[idx].Body {
		op := prog.Ops[b]
		switch op.Kind {
		case ir.OpMove:
			net += op.Arg
		case ir.OpAdd:
			if net == 0 {
				originDelta += op.Arg
			}
		default:
			return "complex"
		}
	}
	if net != 0 {
		return "complex"
	}
	d := (originDelta%256 + 256) % 256
	if d == 1 || d == 255 {
		return "simple"
	}
	return "complex"
}
