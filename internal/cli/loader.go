package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tapemachine/bfc/internal/engine"
	"github.com/tapemachine/bfc/internal/lexer"
)

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E002" // Source path not found
	ErrCodeNotAFile    = "E003" // Source path is a directory
	ErrCodeReadFailed  = "E004" // Source read error
	ErrCodeWriteFailed = "E005" // Output write error

	// Program errors
	ErrCodeUnbalanced = "E101" // bracket matching failed
	ErrCodeRuntime    = "E201" // program aborted at runtime
	ErrCodeToolchain  = "E301" // assembler/linker driver failed
)

// LoadError represents an error that occurred while loading a source file.
type LoadError struct {
	Code    string
	Message string
	Path    string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadProgram reads a program source file, rejecting missing paths and
// directories with coded errors.
func LoadProgram(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("source file not found: %s", path), Path: path}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("error accessing source file: %v", err), Path: path}
	}
	if info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotAFile, Message: fmt.Sprintf("not a file: %s", path), Path: path}
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeReadFailed, Message: fmt.Sprintf("reading source file: %v", err), Path: path}
	}
	return src, nil
}

// MapErrorCode maps an error to its unified CLI error code.
func MapErrorCode(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	if _, ok := lexer.AsUnbalancedLoop(err); ok {
		return ErrCodeUnbalanced
	}
	var runtimeErr *engine.RuntimeError
	if errors.As(err, &runtimeErr) {
		return ErrCodeRuntime
	}
	return ErrCodeGeneric
}

// outputProgramFailure reports a program that failed to scan or run
// (exit code 1).
func outputProgramFailure(formatter *OutputFormatter, err error) error {
	code := MapErrorCode(err)
	_ = formatter.Error(code, err.Error(), nil)
	return NewExitError(ExitFailure, fmt.Sprintf("%s: %s", code, err.Error()))
}

// programStem returns the source filename without its extension, used for
// default output naming and history display.
func programStem(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		return base
	}
	return stem
}
