package convert

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/xhad/tidy/pkg/hardware"
)

// ConversionError reports an external converter failure or an undiscoverable
// output. It is fatal to the chunk; whether it is fatal to the document is
// the caller's decision.
type ConversionError struct {
	Chunk  string
	Detail string
	Stderr string
	Err    error
}

func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("conversion failed for %s: %s", e.Chunk, e.Detail)
	if e.Stderr != "" {
		msg += ": " + strings.TrimSpace(e.Stderr)
	}
	return msg
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

type RunnerConfig struct {
	Command   string
	Flags     []string
	OutputExt string
	// Timeout bounds a single converter invocation. Zero disables the bound
	// and a hung converter blocks the pipeline.
	Timeout time.Duration
	Gate    *hardware.Gate
	Logger  *log.Logger
}

// Runner invokes the external OCR/conversion executable for one chunk at a
// time, gated on hardware health.
type Runner struct {
	config RunnerConfig
}

func NewWithConfig(config RunnerConfig) *Runner {
	if config.Command == "" {
		config.Command = "marker_single"
	}
	if config.OutputExt == "" {
		config.OutputExt = ".md"
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	return &Runner{config: config}
}

// Convert runs the converter on chunkPath with outputDir as the output
// directory and returns the path of the produced text file.
func (r *Runner) Convert(ctx context.Context, chunkPath, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", &ConversionError{Chunk: chunkPath, Detail: "cannot create output directory", Err: err}
	}

	// Wait for the hardware to be in a safe state before launching heavy
	// processing
	if r.config.Gate != nil {
		if err := r.config.Gate.AwaitReady(ctx); err != nil {
			return "", &ConversionError{Chunk: chunkPath, Detail: "hardware gate", Err: err}
		}
	}

	stem := chunkStem(chunkPath)

	// The caller's default flag set may carry its own output directory; ours
	// wins
	args := []string{chunkPath, "--output_dir", outputDir}
	args = append(args, filterOutputDirFlags(r.config.Flags)...)

	runCtx := ctx
	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, r.config.Command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.config.Logger.Printf("starting converter for %s: %s %s",
		chunkPath, r.config.Command, strings.Join(args, " "))

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	r.config.Logger.Printf("converter finished for %s (err=%v) in %.2fs",
		chunkPath, err, duration.Seconds())

	if err != nil {
		return "", &ConversionError{
			Chunk:  chunkPath,
			Detail: "converter exited with error",
			Stderr: stderr.String(),
			Err:    err,
		}
	}

	// Canonical expected location first
	canonical := filepath.Join(outputDir, stem+r.config.OutputExt)
	if _, err := os.Stat(canonical); err == nil {
		return canonical, nil
	}

	r.config.Logger.Printf("expected output not found at %s; running discovery", canonical)

	searchDirs := []string{outputDir, filepath.Dir(chunkPath)}
	if cwd, err := os.Getwd(); err == nil {
		searchDirs = append(searchDirs, cwd)
	}

	if found, ok := DiscoverOutput(stdout.String(), stderr.String(), searchDirs, stem, r.config.OutputExt); ok {
		r.config.Logger.Printf("discovered converter output at %s", found)
		return found, nil
	}

	return "", &ConversionError{
		Chunk:  chunkPath,
		Detail: "no output discovered after converter run",
		Stderr: stderr.String(),
	}
}

func chunkStem(chunkPath string) string {
	base := filepath.Base(chunkPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// filterOutputDirFlags drops any --output_dir flag (and its argument) so the
// runner's normalized output directory is the only one passed.
func filterOutputDirFlags(flags []string) []string {
	filtered := make([]string, 0, len(flags))
	skipNext := false
	for _, flag := range flags {
		if skipNext {
			skipNext = false
			continue
		}
		if flag == "--output_dir" {
			skipNext = true
			continue
		}
		if strings.HasPrefix(flag, "--output_dir=") {
			continue
		}
		filtered = append(filtered, flag)
	}
	return filtered
}
