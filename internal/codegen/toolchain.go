package codegen

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
)

// DefaultDriver is the C compiler driver used when none is configured.
const DefaultDriver = "cc"

//go:embed _runner.c
var runnerSource []byte

// RunnerSource returns the C runner that allocates the tape, positions the
// pointer at its midpoint, and calls the generated bf_main.
func RunnerSource() []byte {
	return append([]byte(nil), runnerSource...)
}

// Toolchain assembles and links generated assembly with the embedded runner
// through a C compiler driver.
type Toolchain struct {
	// Driver is the compiler command, e.g. "cc" or "gcc".
	Driver string
}

// NewToolchain returns a Toolchain using the given driver, falling back to
// DefaultDriver when empty.
func NewToolchain(driver string) Toolchain {
	if driver == "" {
		driver = DefaultDriver
	}
	return Toolchain{Driver: driver}
}

// Build assembles asmPath and links it with the runner into outPath.
// The runner source is materialized in a temporary directory for the
// driver to pick up.
func (tc Toolchain) Build(ctx context.Context, asmPath, outPath string) error {
	dir, err := os.MkdirTemp("", "bfc-build-")
	if err != nil {
		return fmt.Errorf("creating build directory: %w", err)
	}
	defer os.RemoveAll(dir)

	runnerPath := filepath.Join(dir, "runner.c")
	if err := os.WriteFile(runnerPath, runnerSource, 0o644); err != nil {
		return fmt.Errorf("writing runner source: %w", err)
	}

	// The generated code calls putchar and getchar without the @PLT
	// spelling, which links only as a non-PIE executable.
	cmd := exec.CommandContext(ctx, tc.Driver, "-no-pie", "-o", outPath, asmPath, runnerPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return fmt.Errorf("%s failed: %w: %s", tc.Driver, err, stderr.String())
		}
		return fmt.Errorf("%s failed: %w", tc.Driver, err)
	}
	return nil
}

// RunBinary executes a built program with the given streams attached.
func RunBinary(ctx context.Context, path string, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, path)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("running %s: %w", filepath.Base(path), err)
	}
	return nil
}
