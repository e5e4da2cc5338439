package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/jchau/jobmatch/internal/logger"
	"github.com/jchau/jobmatch/internal/utils"
)

const (
	defaultModel = "gemini-2.0-flash"

	defaultTopP float32 = 0.95
	defaultTopK float32 = 40
)

// modelCaller is the slice of the genai client the generator needs; it exists
// so tests can substitute a fake for the remote API.
type modelCaller interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator wraps the Google GenAI client to provide simple prompt-based interactions.
type Generator struct {
	models    modelCaller
	model     string
	logger    *zap.Logger
	maxLogLen int
}

const defaultMaxLogLength = 200

// NewGenerator creates a new Generator configured for the Gemini API backend.
// The api key is passed explicitly per construction; there is no ambient,
// process-global client.
func NewGenerator(ctx context.Context, apiKey, model string, maxLogLength int, logger *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		models:    client.Models,
		model:     model,
		maxLogLen: maxLogLength,
		logger:    logger,
	}, nil
}

// GenerateContent sends the prompt to Gemini at the requested temperature and
// returns the concatenated textual response. Failures are surfaced, not
// retried: the caller decides whether the job is worth another attempt.
func (g *Generator) GenerateContent(ctx context.Context, prompt string, temperature float32) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temperature),
		TopP:        genai.Ptr(defaultTopP),
		TopK:        genai.Ptr(defaultTopK),
	}

	g.logger.Debug("gemini generate content request",
		zap.String(logger.FieldModel, g.model),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, g.maxLogLen)),
	)

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	g.logger.Debug("gemini generate content response",
		zap.String(logger.FieldModel, g.model),
		zap.Int("response_length", utf8.RuneCountInString(output)),
		zap.String("response_preview", utils.TruncateForLog(output, g.maxLogLen)),
	)

	return output, nil
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}
