package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"golang.org/x/time/rate"
)

// GenerationError wraps a text-generation service failure. It is fatal to
// the (document, table) unit being processed.
type GenerationError struct {
	Model string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed (model %s): %v", e.Model, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// GeneratorConfig represents the configuration for a text generator.
type GeneratorConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
	RateLimit   float64 // requests per second
	BaseURL     string  // Ollama server URL
}

// Generator produces completions with a fixed temperature and max-token
// policy, one prompt in, raw text out.
type Generator struct {
	config  GeneratorConfig
	llm     llms.Model
	limiter *rate.Limiter
}

// NewWithConfig creates a new Generator with the given configuration.
func NewWithConfig(config GeneratorConfig) (*Generator, error) {
	if config.Model == "" {
		config.Model = "mistral" // Default Ollama model
	}
	if config.Temperature <= 0 || config.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 4096
	}
	if config.RateLimit == 0 {
		config.RateLimit = 1 // 1 request per second by default
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434" // Default Ollama URL
	}

	llm, err := ollama.New(ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &Generator{
		config:  config,
		llm:     llm,
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}, nil
}

// Generate sends one prompt to the generation service and returns the raw
// response text.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", &GenerationError{Model: g.config.Model, Err: err}
	}

	response, err := llms.GenerateFromSinglePrompt(ctx, g.llm, prompt,
		llms.WithTemperature(g.config.Temperature),
		llms.WithMaxTokens(g.config.MaxTokens),
	)
	if err != nil {
		return "", &GenerationError{Model: g.config.Model, Err: err}
	}

	return response, nil
}

// Model reports the configured model name, recorded in analysis artifacts.
func (g *Generator) Model() string {
	return g.config.Model
}
