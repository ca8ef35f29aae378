package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tapemachine/bfc/internal/ir"
	"github.com/tapemachine/bfc/internal/lexer"
)

// CheckResult holds the outcome of checking a single source file.
type CheckResult struct {
	Valid        bool   `json:"valid"`
	Path         string `json:"path"`
	Instructions int    `json:"instructions"`
	Loops        int    `json:"loops"`
	MaxDepth     int    `json:"max_depth"`
	ProgramHash  string `json:"program_hash,omitempty"`
	Error        string `json:"error,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <source-file>",
		Short: "Check a program without running it",
		Long: `Check that a program scans cleanly and its loops balance.

Reports instruction and loop counts plus the program's content hash.
Faster than interp for editing feedback.

Exit codes:
  0 - Program is well-formed
  1 - Unbalanced loops
  2 - Command error (file not found, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runCheck(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	src, err := LoadProgram(path)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return outputLoadError(formatter, loadErr)
		}
		return outputLoadError(formatter, &LoadError{Code: ErrCodeGeneric, Message: err.Error(), Path: path})
	}

	formatter.VerboseLog("Scanning %s (%d bytes)", path, len(src))

	tokens, err := lexer.Scan(src)
	if err != nil {
		return outputCheckFailure(formatter, path, err)
	}

	result := CheckResult{
		Valid:        true,
		Path:         path,
		Instructions: len(tokens),
		ProgramHash:  ir.HashSource([]byte(lexer.Canonical(tokens))),
	}
	depth := 0
	for _, tok := range tokens {
		switch tok.Kind {
		case lexer.LoopOpen:
			result.Loops++
			depth++
			if depth > result.MaxDepth {
				result.MaxDepth = depth
			}
		case lexer.LoopClose:
			depth--
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "%s %s: %d instructions, %d loops, max depth %d\n",
		passMark(formatter.Writer), path, result.Instructions, result.Loops, result.MaxDepth)
	formatter.VerboseLog("Program hash: %s", result.ProgramHash)
	return nil
}

// outputLoadError reports a source loading failure (exit code 2).
func outputLoadError(formatter *OutputFormatter, loadErr *LoadError) error {
	_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", loadErr.Code, loadErr.Message))
}

// outputCheckFailure reports an unbalanced program (exit code 1).
func outputCheckFailure(formatter *OutputFormatter, path string, err error) error {
	code := MapErrorCode(err)

	if formatter.Format == "json" {
		result := CheckResult{Valid: false, Path: path, Error: err.Error()}
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    code,
				Message: err.Error(),
			},
		}
		if encErr := writeIndentedJSON(formatter.Writer, response); encErr != nil {
			return encErr
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %s", code, err.Error()))
	}

	fmt.Fprintf(formatter.Writer, "%s Check failed\n\n", failMark(formatter.Writer))
	fmt.Fprintf(formatter.Writer, "  %s: %s\n", code, err.Error())
	return NewExitError(ExitFailure, fmt.Sprintf("%s: %s", code, err.Error()))
}
