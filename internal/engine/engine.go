package engine

import (
	"bufio"
	"io"
	"os"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/tapemachine/bfc/internal/ir"
)

// DefaultTapeSize is the default tape length in bytes. The pointer starts
// at the midpoint, leaving two million cells of headroom in each direction.
const DefaultTapeSize = 4_000_000

// eofCell is the value stored by an input op once the stream is exhausted.
const eofCell byte = 255

// Engine executes one compiled program against a byte tape.
//
// An Engine is single-use: construct it with New, call Run exactly once,
// then read cells with Cell if needed. All execution happens in the calling
// goroutine.
type Engine struct {
	prog *ir.Program

	tape   []byte
	ptr    int
	origin int

	in  *bufio.Reader
	out *bufio.Writer

	clock  clock.Clock
	bounds bool

	steps  uint64
	counts []uint64

	tapeSize int
	rawIn    io.Reader
	rawOut   io.Writer
	profile  bool
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithInput sets the stream that input ops read from.
// Default: os.Stdin.
func WithInput(r io.Reader) EngineOption {
	return func(e *Engine) {
		e.rawIn = r
	}
}

// WithOutput sets the stream that output ops write to. Output is buffered
// and flushed before every read and when the program exits.
// Default: os.Stdout.
func WithOutput(w io.Writer) EngineOption {
	return func(e *Engine) {
		e.rawOut = w
	}
}

// WithTapeSize sets the tape length in bytes. The pointer starts at n/2.
// Values below one are ignored.
func WithTapeSize(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.tapeSize = n
		}
	}
}

// WithProfile enables per-op execution counting. The counts are returned
// on the Result, indexed by arena position.
func WithProfile() EngineOption {
	return func(e *Engine) {
		e.profile = true
	}
}

// WithBoundsChecks makes pointer movement and cell access range-checked.
// An access outside the tape then returns a RuntimeError with code
// TAPE_RANGE instead of panicking.
func WithBoundsChecks() EngineOption {
	return func(e *Engine) {
		e.bounds = true
	}
}

// WithClock sets the clock used to measure the run duration.
// Tests inject clock.NewMock() for deterministic durations.
func WithClock(c clock.Clock) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// New creates an Engine for prog. The program must not be mutated while
// the engine runs.
func New(prog *ir.Program, opts ...EngineOption) *Engine {
	e := &Engine{
		prog:     prog,
		tapeSize: DefaultTapeSize,
		rawIn:    os.Stdin,
		rawOut:   os.Stdout,
		clock:    clock.New(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.tape = make([]byte, e.tapeSize)
	e.origin = e.tapeSize / 2
	e.ptr = e.origin
	e.in = bufio.NewReader(e.rawIn)
	e.out = bufio.NewWriter(e.rawOut)
	if e.profile {
		e.counts = make([]uint64, len(prog.Ops))
	}
	return e
}

// Result reports what a completed run did.
type Result struct {
	// Steps is the total number of op executions. Each specialized op
	// counts once; a generic loop counts once per guard evaluation.
	Steps uint64

	// Duration is the wall-clock run time as measured by the engine's
	// clock. It is the only nondeterministic field.
	Duration time.Duration

	// Counts holds per-op execution counts indexed by arena position.
	// Nil unless profiling was enabled.
	Counts []uint64
}

// frame is one level of the execution stack: a block of arena indices and
// a cursor into it. Loop frames re-test their guard cell when the cursor
// reaches the end.
type frame struct {
	body   []uint32
	cursor int
	loop   uint32
	isLoop bool
}

// Run executes the program to completion and returns the run's Result.
// It must be called exactly once.
func (e *Engine) Run() (*Result, error) {
	start := e.clock.Now()

	frames := make([]frame, 1, 16)
	frames[0] = frame{body: e.prog.Root}

	for len(frames) > 0 {
		f := &frames[len(frames)-1]
		if f.cursor >= len(f.body) {
			if f.isLoop {
				e.count(f.loop)
				if e.tape[e.ptr] != 0 {
					f.cursor = 0
					continue
				}
			}
			frames = frames[:len(frames)-1]
			continue
		}

		idx := f.body[f.cursor]
		f.cursor++
		op := &e.prog.Ops[idx]
		e.count(idx)

		switch op.Kind {
		case ir.OpAdd:
			e.tape[e.ptr] += byte(op.Arg)

		case ir.OpMove:
			e.ptr += int(op.Arg)
			if e.bounds && !e.inBounds(e.ptr) {
				return nil, NewTapeRangeError(op.Pos, e.ptr, len(e.tape))
			}

		case ir.OpOutput:
			if err := e.out.WriteByte(e.tape[e.ptr]); err != nil {
				return nil, NewWriteError(op.Pos, err)
			}

		case ir.OpInput:
			if err := e.readInput(op); err != nil {
				return nil, err
			}

		case ir.OpClear:
			e.tape[e.ptr] = 0

		case ir.OpScan:
			step := int(op.Arg)
			for e.tape[e.ptr] != 0 {
				e.ptr += step
				if e.bounds && !e.inBounds(e.ptr) {
					return nil, NewTapeRangeError(op.Pos, e.ptr, len(e.tape))
				}
			}

		case ir.OpMulCopy:
			if v := e.tape[e.ptr]; v != 0 {
				for _, fac := range op.Factors {
					t := e.ptr + int(fac.Offset)
					if e.bounds && !e.inBounds(t) {
						return nil, NewTapeRangeError(op.Pos, t, len(e.tape))
					}
					e.tape[t] += byte(fac.Multiplier) * v
				}
				e.tape[e.ptr] = 0
			}

		case ir.OpLoop:
			if e.tape[e.ptr] != 0 {
				frames = append(frames, frame{body: op.Body, loop: idx, isLoop: true})
			}

		case ir.OpSetPtr:
			e.ptr = e.origin + int(op.Arg)
			if e.bounds && !e.inBounds(e.ptr) {
				return nil, NewTapeRangeError(op.Pos, e.ptr, len(e.tape))
			}

		case ir.OpSetCell:
			t := e.origin + int(op.Off)
			if e.bounds && !e.inBounds(t) {
				return nil, NewTapeRangeError(op.Pos, t, len(e.tape))
			}
			e.tape[t] = byte(op.Arg)

		case ir.OpEmit:
			if err := e.out.WriteByte(byte(op.Arg)); err != nil {
				return nil, NewWriteError(op.Pos, err)
			}
		}
	}

	if err := e.out.Flush(); err != nil {
		return nil, NewWriteError(ir.Position{}, err)
	}

	return &Result{
		Steps:    e.steps,
		Duration: e.clock.Since(start),
		Counts:   e.counts,
	}, nil
}

// readInput flushes pending output, then reads one byte into the current
// cell. At end of input the cell is set to eofCell instead.
func (e *Engine) readInput(op *ir.Op) error {
	if err := e.out.Flush(); err != nil {
		return NewWriteError(op.Pos, err)
	}
	b, err := e.in.ReadByte()
	switch {
	case err == io.EOF:
		b = eofCell
	case err != nil:
		return NewReadError(op.Pos, err)
	}
	e.tape[e.ptr] = b
	return nil
}

func (e *Engine) count(idx uint32) {
	e.steps++
	if e.counts != nil {
		e.counts[idx]++
	}
}

func (e *Engine) inBounds(i int) bool {
	return i >= 0 && i < len(e.tape)
}

// Cell returns the value of the cell at the given offset from the origin,
// the pointer's starting position. Offsets outside the tape read as zero.
func (e *Engine) Cell(offset int64) byte {
	i := e.origin + int(offset)
	if !e.inBounds(i) {
		return 0
	}
	return e.tape[i]
}

// Pointer returns the data pointer's offset from the origin.
func (e *Engine) Pointer() int64 {
	return int64(e.ptr - e.origin)
}
