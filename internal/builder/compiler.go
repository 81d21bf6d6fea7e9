package builder

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// compileTimeout bounds one external compiler invocation.
const compileTimeout = 30 * time.Second

// Compiler produces a binary rule-set artifact from an assembled source
// document on disk.
type Compiler interface {
	Compile(inputPath, outputPath string) error
}

// SingBoxCompiler compiles rule-sets by invoking the sing-box CLI.
type SingBoxCompiler struct {
	Bin string
}

// NewSingBoxCompiler returns a compiler using bin, defaulting to "sing-box"
// from PATH.
func NewSingBoxCompiler(bin string) *SingBoxCompiler {
	if bin == "" {
		bin = "sing-box"
	}
	return &SingBoxCompiler{Bin: bin}
}

// Compile runs `sing-box rule-set compile`. The invocation is killed after
// a fixed timeout; timeouts and non-zero exits surface as ordinary errors
// and are never retried.
func (c *SingBoxCompiler) Compile(inputPath, outputPath string) error {
	ctx, cancel := context.WithTimeout(context.Background(), compileTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.Bin, "rule-set", "compile", "--output", outputPath, inputPath)
	out, err := cmd.CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("compile timed out after %s", compileTimeout)
	}
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("compile failed: %v: %s", err, msg)
		}
		return fmt.Errorf("compile failed: %w", err)
	}
	return nil
}
