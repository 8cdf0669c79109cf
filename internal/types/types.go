package types

import (
	"context"

	"github.com/xhad/tidy/internal/models"
)

// Core interfaces

// Generator produces text from a prompt using a text-generation service.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ChunkConverter converts one page-equivalent chunk (image or document) to a
// text file and returns the path of the produced output.
type ChunkConverter interface {
	Convert(ctx context.Context, chunkPath, outputDir string) (string, error)
}

// RunRecorder persists pipeline run outcomes. Recording is best-effort and
// never blocks pipeline results.
type RunRecorder interface {
	Record(ctx context.Context, rec models.RunRecord) error
}
