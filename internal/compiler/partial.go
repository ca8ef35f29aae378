package compiler

import (
	"sort"

	"github.com/tapemachine/bfc/internal/ir"
)

// partialFuel bounds the number of abstract steps the evaluator will take
// before giving up, keeping compilation total even for programs that loop
// forever on known state.
const partialFuel = 10_000_000

// partialEvaluator runs the lowered program against an abstract tape at
// compile time. Cells start known-zero and stay known through arithmetic;
// only Input makes a cell unknown. Everything computable on known state is
// folded away, leaving a residual program of deferred ops followed by the
// part of the program the evaluator could not finish.
//
// The residual program writes the tape only through deferred ops, and those
// touch only unknown cells. Known cells therefore hold their initial zero at
// runtime until a sync materializes the abstract value, which is what makes
// the bail-out sync below sound.
type partialEvaluator struct {
	c *compiler

	known   map[int64]byte // nonzero known cells; absent and not unknown means zero
	unknown map[int64]bool
	ptr     int64

	// syncedPtr tracks where the runtime pointer sits after the residue
	// emitted so far. A SetPtr is needed before any deferred op that uses
	// the pointer while syncedPtr differs from the abstract pointer.
	syncedPtr int64

	residue []uint32
	fuel    int64

	snap *peSnapshot
}

// peSnapshot captures the evaluator at the entry of a top-level loop. If the
// loop cannot be fully evaluated, the state is rolled back to the snapshot
// and the whole loop is left for runtime, so no half-executed iteration ever
// leaks into the residue.
type peSnapshot struct {
	known      map[int64]byte
	unknown    map[int64]bool
	ptr        int64
	syncedPtr  int64
	residueLen int
}

func newPartialEvaluator(c *compiler) *partialEvaluator {
	return &partialEvaluator{
		c:       c,
		known:   make(map[int64]byte),
		unknown: make(map[int64]bool),
		fuel:    partialFuel,
	}
}

// run evaluates the block and returns the root of the residual program.
func (pe *partialEvaluator) run(root []uint32) []uint32 {
	for ti := 0; ti < len(root); ti++ {
		if pe.fuel <= 0 {
			return pe.finish(root, ti)
		}
		idx := root[ti]
		if pe.c.ops[idx].Kind == ir.OpLoop {
			if _, ok := pe.cellKnown(pe.ptr); !ok {
				return pe.finish(root, ti)
			}
			pe.snapshot()
			if !pe.evalLoop(idx) {
				pe.restore()
				return pe.finish(root, ti)
			}
			pe.snap = nil
			continue
		}
		pe.evalOp(idx)
	}
	return pe.residue
}

// evalOp evaluates a non-loop op, either folding it into the abstract state
// or deferring it to the residue.
func (pe *partialEvaluator) evalOp(idx uint32) {
	pe.fuel--
	op := pe.c.ops[idx]
	switch op.Kind {
	case ir.OpAdd:
		if v, ok := pe.cellKnown(pe.ptr); ok {
			pe.setKnown(pe.ptr, byte(int64(v)+op.Arg))
		} else {
			pe.syncPtr()
			pe.deferOp(ir.Op{Kind: ir.OpAdd, Arg: op.Arg, Pos: op.Pos})
		}
	case ir.OpMove:
		pe.ptr += op.Arg
	case ir.OpOutput:
		if v, ok := pe.cellKnown(pe.ptr); ok {
			pe.deferOp(ir.Op{Kind: ir.OpEmit, Arg: int64(v), Pos: op.Pos})
		} else {
			pe.syncPtr()
			pe.deferOp(ir.Op{Kind: ir.OpOutput, Pos: op.Pos})
		}
	case ir.OpInput:
		pe.syncPtr()
		pe.deferOp(ir.Op{Kind: ir.OpInput, Pos: op.Pos})
		pe.setUnknown(pe.ptr)
	}
}

// evalLoop evaluates a loop to completion on known state. It reports false
// when the guard cell is unknown or the fuel budget runs out.
func (pe *partialEvaluator) evalLoop(idx uint32) bool {
	for {
		v, ok := pe.cellKnown(pe.ptr)
		if !ok {
			return false
		}
		if v == 0 {
			return true
		}
		if pe.fuel <= 0 {
			return false
		}
		// One unit per iteration so even empty bodies make progress
		// toward the budget.
		pe.fuel--
		for _, b := range pe.c.ops[idx].Body {
			if pe.c.ops[b].Kind == ir.OpLoop {
				if !pe.evalLoop(b) {
					return false
				}
				continue
			}
			pe.evalOp(b)
		}
	}
}

// finish seals the residue so the unevaluated remainder root[resume:] sees
// the runtime state the abstract state promises: the pointer is moved to its
// abstract position and every known nonzero cell is materialized.
func (pe *partialEvaluator) finish(root []uint32, resume int) []uint32 {
	out := pe.residue
	if pe.ptr != pe.syncedPtr {
		out = append(out, pe.c.push(ir.Op{Kind: ir.OpSetPtr, Arg: pe.ptr}))
	}
	for _, off := range sortedOffsets(pe.known) {
		out = append(out, pe.c.push(ir.Op{Kind: ir.OpSetCell, Arg: int64(pe.known[off]), Off: off}))
	}
	return append(out, root[resume:]...)
}

func (pe *partialEvaluator) cellKnown(p int64) (byte, bool) {
	if pe.unknown[p] {
		return 0, false
	}
	return pe.known[p], true
}

func (pe *partialEvaluator) setKnown(p int64, v byte) {
	delete(pe.unknown, p)
	if v == 0 {
		delete(pe.known, p)
	} else {
		pe.known[p] = v
	}
}

func (pe *partialEvaluator) setUnknown(p int64) {
	delete(pe.known, p)
	pe.unknown[p] = true
}

func (pe *partialEvaluator) syncPtr() {
	if pe.syncedPtr != pe.ptr {
		pe.deferOp(ir.Op{Kind: ir.OpSetPtr, Arg: pe.ptr})
	}
	pe.syncedPtr = pe.ptr
}

func (pe *partialEvaluator) deferOp(op ir.Op) {
	pe.residue = append(pe.residue, pe.c.push(op))
}

func (pe *partialEvaluator) snapshot() {
	s := &peSnapshot{
		known:      make(map[int64]byte, len(pe.known)),
		unknown:    make(map[int64]bool, len(pe.unknown)),
		ptr:        pe.ptr,
		syncedPtr:  pe.syncedPtr,
		residueLen: len(pe.residue),
	}
	for k, v := range pe.known {
		s.known[k] = v
	}
	for k := range pe.unknown {
		s.unknown[k] = true
	}
	pe.snap = s
}

func (pe *partialEvaluator) restore() {
	pe.known = pe.snap.known
	pe.unknown = pe.snap.unknown
	pe.ptr = pe.snap.ptr
	pe.syncedPtr = pe.snap.syncedPtr
	pe.residue = pe.residue[:pe.snap.residueLen]
	pe.snap = nil
}

func sortedOffsets(m map[int64]byte) []int64 {
	offs := make([]int64, 0, len(m))
	for off := range m {
		offs = append(offs, off)
	}
	sort.Slice(offs, func(a, b int) bool { return offs[a] < offs[b] })
	return offs
}
