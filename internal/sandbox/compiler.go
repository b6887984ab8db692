// Package sandbox compiles LaTeX markup into PDF documents in isolated,
// single-use working directories, and provides the clients the pipeline uses
// to reach it.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultTimeout is the wall-clock limit for one compilation.
	DefaultTimeout = 20 * time.Second
	// DefaultMaxBodyBytes caps the accepted source size.
	DefaultMaxBodyBytes = 200_000

	sourceFile = "main.tex"
	outputFile = "main.pdf"
)

// Compiler runs an external LaTeX compiler binary.
type Compiler struct {
	Binary   string
	Args     []string
	TempRoot string
	Timeout  time.Duration
}

// NewCompiler returns a Compiler for tectonic with the default timeout.
func NewCompiler(binary string, args []string, tempRoot string, timeout time.Duration) *Compiler {
	if binary == "" {
		binary = "tectonic"
	}
	if len(args) == 0 {
		args = []string{sourceFile}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Compiler{Binary: binary, Args: args, TempRoot: tempRoot, Timeout: timeout}
}

// Compile writes source into a fresh temp directory, runs the compiler there and
// returns the produced PDF. The directory is removed before Compile returns.
// Compiler failures are *CompileError; anything else is a resource failure.
func (c *Compiler) Compile(ctx context.Context, source string) (pdf []byte, err error) {
	workDir, err := os.MkdirTemp(c.TempRoot, "latex-")
	if err != nil {
		return nil, fmt.Errorf("failed to create working directory: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(workDir); rmErr != nil && err == nil {
			err = fmt.Errorf("failed to remove working directory: %w", rmErr)
			pdf = nil
		}
	}()

	if err := os.WriteFile(filepath.Join(workDir, sourceFile), []byte(source), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write source: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.Binary, c.Args...)
	cmd.Dir = workDir
	cmd.Env = isolatedEnv(workDir)
	// Children that inherit stdout would otherwise keep Wait blocked past the timeout.
	cmd.WaitDelay = time.Second

	var output strings.Builder
	cmd.Stdout = &output
	cmd.Stderr = &output

	runErr := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, &CompileError{
				Message: fmt.Sprintf("compilation timed out after %s", c.Timeout),
				Output:  output.String(),
				Cause:   ctxErr,
			}
		}
		return nil, fmt.Errorf("compilation cancelled: %w", ctxErr)
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			// The binary could not be started at all.
			return nil, fmt.Errorf("failed to run %s: %w", c.Binary, runErr)
		}
		return nil, &CompileError{
			Message: "compiler exited with an error",
			Output:  compilerText(output.String(), runErr),
			Cause:   runErr,
		}
	}

	pdf, err = os.ReadFile(filepath.Join(workDir, outputFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, &CompileError{
			Message: "PDF was not generated",
			Output:  compilerText(output.String(), nil),
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read output: %w", err)
	}
	return pdf, nil
}

// isolatedEnv gives the compiler its own home and caches inside workDir and
// passes through only PATH.
func isolatedEnv(workDir string) []string {
	cacheDir := filepath.Join(workDir, ".cache")
	return []string{
		"HOME=" + workDir,
		"XDG_CACHE_HOME=" + cacheDir,
		"TECTONIC_CACHE_DIR=" + cacheDir,
		"PATH=" + os.Getenv("PATH"),
	}
}

func compilerText(output string, runErr error) string {
	if strings.TrimSpace(output) != "" {
		return output
	}
	if runErr != nil {
		return runErr.Error()
	}
	return "no output produced"
}
