// Package codegen translates arena programs into x86-64 assembly.
//
// The generated unit defines one function, bf_main, that receives the
// initial data pointer in %rdi per the SysV ABI and runs the program
// against the caller's tape. Cell I/O goes through libc's putchar and
// getchar, so getchar's -1 at end of input lands in a cell as 255, the
// same value the interpreter stores.
//
// Register assignment is fixed: %r12 holds the data pointer and %r13
// keeps the origin for origin-relative ops. Pointer movement is not
// range-checked; the caller decides how much tape to allocate.
package codegen

import (
	"fmt"
	"strings"

	"github.com/tapemachine/bfc/internal/ir"
)

// Generate emits AT&T-syntax assembly for prog. The output is a complete
// translation unit ready for a C compiler driver to assemble and link
// against the runner. Fails with *Error on an op kind the backend has
// no template for.
func Generate(prog *ir.Program) (string, error) {
	e := &emitter{prog: prog}

	e.raw("\t.text\n")
	e.raw("\t.globl\tbf_main\n")
	e.raw("\t.type\tbf_main, @function\n")
	e.raw("bf_main:\n")
	e.op("pushq\t%%r12")
	e.op("pushq\t%%r13")
	// Entry leaves the stack 8 bytes off a 16-byte boundary; two pushes
	// and this adjustment restore the alignment libc calls require.
	e.op("subq\t$8, %%rsp")
	e.op("movq\t%%rdi, %%r12")
	e.op("movq\t%%rdi, %%r13")

	e.block(prog.Root)

	e.op("addq\t$8, %%rsp")
	e.op("popq\t%%r13")
	e.op("popq\t%%r12")
	e.op("ret")
	e.raw("\t.size\tbf_main, .-bf_main\n")
	e.raw("\t.section\t.note.GNU-stack,\"\",@progbits\n")

	if e.err != nil {
		return "", e.err
	}
	return e.b.String(), nil
}

type emitter struct {
	prog   *ir.Program
	b      strings.Builder
	labels int
	err    error
}

func (e *emitter) raw(s string) {
	e.b.WriteString(s)
}

func (e *emitter) op(format string, args ...any) {
	fmt.Fprintf(&e.b, "\t"+format+"\n", args...)
}

func (e *emitter) label(name string) {
	e.b.WriteString(name)
	e.b.WriteString(":\n")
}

func (e *emitter) block(ops []uint32) {
	for _, idx := range ops {
		e.emit(e.prog.Ops[idx])
	}
}

func (e *emitter) emit(op ir.Op) {
	switch op.Kind {
	case ir.OpAdd:
		if op.Arg > 0 {
			e.op("addb\t$%d, (%%r12)", op.Arg)
		} else {
			e.op("subb\t$%d, (%%r12)", -op.Arg)
		}

	case ir.OpMove:
		if op.Arg > 0 {
			e.op("addq\t$%d, %%r12", op.Arg)
		} else {
			e.op("subq\t$%d, %%r12", -op.Arg)
		}

	case ir.OpOutput:
		e.op("movzbl\t(%%r12), %%edi")
		e.op("callq\tputchar")

	case ir.OpInput:
		e.op("callq\tgetchar")
		e.op("movb\t%%al, (%%r12)")

	case ir.OpClear:
		e.op("movb\t$0, (%%r12)")

	case ir.OpScan:
		id := e.labels
		e.labels++
		begin := fmt.Sprintf(".Lscan_%d_begin", id)
		end := fmt.Sprintf(".Lscan_%d_end", id)
		e.label(begin)
		e.op("cmpb\t$0, (%%r12)")
		e.op("je\t%s", end)
		if op.Arg > 0 {
			e.op("addq\t$%d, %%r12", op.Arg)
		} else {
			e.op("subq\t$%d, %%r12", -op.Arg)
		}
		e.op("jmp\t%s", begin)
		e.label(end)

	case ir.OpMulCopy:
		// No zero guard: when the origin is zero every target gains
		// zero and the clear is a no-op.
		e.op("movzbl\t(%%r12), %%eax")
		for _, f := range op.Factors {
			switch f.Multiplier {
			case 1:
				e.op("addb\t%%al, %s", e.mem(f.Offset))
			case -1:
				e.op("subb\t%%al, %s", e.mem(f.Offset))
			default:
				e.op("imull\t$%d, %%eax, %%ecx", f.Multiplier)
				e.op("addb\t%%cl, %s", e.mem(f.Offset))
			}
		}
		e.op("movb\t$0, (%%r12)")

	case ir.OpLoop:
		id := e.labels
		e.labels++
		begin := fmt.Sprintf(".Lloop_%d_begin", id)
		end := fmt.Sprintf(".Lloop_%d_end", id)
		e.label(begin)
		e.op("cmpb\t$0, (%%r12)")
		e.op("je\t%s", end)
		e.block(op.Body)
		e.op("jmp\t%s", begin)
		e.label(end)

	case ir.OpSetPtr:
		if op.Arg == 0 {
			e.op("movq\t%%r13, %%r12")
		} else {
			e.op("leaq\t%d(%%r13), %%r12", op.Arg)
		}

	case ir.OpSetCell:
		if op.Off == 0 {
			e.op("movb\t$%d, (%%r13)", op.Arg)
		} else {
			e.op("movb\t$%d, %d(%%r13)", op.Arg, op.Off)
		}

	case ir.OpEmit:
		e.op("movl\t$%d, %%edi", op.Arg)
		e.op("callq\tputchar")

	default:
		if e.err == nil {
			e.err = newUnsupportedOpError(op.Kind)
		}
	}
}

// mem formats a byte-cell operand at the given offset from the pointer.
func (e *emitter) mem(off int64) string {
	if off == 0 {
		return "(%r12)"
	}
	return fmt.Sprintf("%d(%%r12)", off)
}
