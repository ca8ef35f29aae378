package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapemachine/bfc/internal/engine"
	"github.com/tapemachine/bfc/internal/ir"
	"github.com/tapemachine/bfc/internal/lexer"
)

// writeProgram writes a source file into a temp dir and returns its path.
func writeProgram(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestLoadProgram(t *testing.T) {
	path := writeProgram(t, "hello.b", "+++.")

	src, err := LoadProgram(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("+++."), src)
}

func TestLoadProgramMissing(t *testing.T) {
	_, err := LoadProgram(filepath.Join(t.TempDir(), "nope.b"))
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrCodeNotFound, loadErr.Code)
	assert.Contains(t, loadErr.Message, "not found")
}

func TestLoadProgramDirectory(t *testing.T) {
	_, err := LoadProgram(t.TempDir())
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrCodeNotAFile, loadErr.Code)
	assert.Contains(t, loadErr.Message, "not a file")
}

func TestLoadError_Error(t *testing.T) {
	err := &LoadError{Code: ErrCodeNotFound, Message: "source file not found: x.b", Path: "x.b"}
	assert.Equal(t, "E002: source file not found: x.b", err.Error())
}

func TestMapErrorCode(t *testing.T) {
	_, lexErr := lexer.Scan([]byte("[")) // unbalanced
	require.Error(t, lexErr)

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"load_error", &LoadError{Code: ErrCodeNotAFile}, ErrCodeNotAFile},
		{"unbalanced", lexErr, ErrCodeUnbalanced},
		{"runtime", engine.NewTapeRangeError(ir.Position{Line: 1, Col: 1}, -1, 4_000_000), ErrCodeRuntime},
		{"generic", errors.New("boom"), ErrCodeGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapErrorCode(tt.err))
		})
	}
}

func TestProgramStem(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"hello.b", "hello"},
		{"examples/mandelbrot.bf", "mandelbrot"},
		{"noext", "noext"},
		{".hidden", ".hidden"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, programStem(tt.path), "stem of %s", tt.path)
	}
}
