package gemini

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/genai"

	jmlogger "github.com/jchau/jobmatch/internal/logger"
)

type fakeModels struct {
	lastModel  string
	lastConfig *genai.GenerateContentConfig
	lastParts  []string
	resp       *genai.GenerateContentResponse
	err        error
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.lastModel = model
	f.lastConfig = config
	for _, content := range contents {
		for _, part := range content.Parts {
			f.lastParts = append(f.lastParts, part.Text)
		}
	}
	return f.resp, f.err
}

func textResponse(texts ...string) *genai.GenerateContentResponse {
	parts := make([]*genai.Part, 0, len(texts))
	for _, text := range texts {
		parts = append(parts, &genai.Part{Text: text})
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: parts},
		}},
	}
}

func TestGenerateContentPassesTemperature(t *testing.T) {
	models := &fakeModels{resp: textResponse(`{"ok": true}`)}
	g := &Generator{models: models, model: "gemini-2.0-flash", maxLogLen: 200, logger: zap.NewNop()}

	output, err := g.GenerateContent(context.Background(), "prompt text", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if output != `{"ok": true}` {
		t.Fatalf("unexpected output: %q", output)
	}

	if models.lastModel != "gemini-2.0-flash" {
		t.Fatalf("unexpected model: %q", models.lastModel)
	}

	if models.lastConfig == nil || models.lastConfig.Temperature == nil {
		t.Fatal("expected temperature to be set")
	}

	if *models.lastConfig.Temperature != 0 {
		t.Fatalf("expected temperature 0, got %v", *models.lastConfig.Temperature)
	}

	if len(models.lastParts) != 1 || models.lastParts[0] != "prompt text" {
		t.Fatalf("unexpected prompt parts: %+v", models.lastParts)
	}
}

func TestGenerateContentJoinsCandidateParts(t *testing.T) {
	models := &fakeModels{resp: textResponse(" first ", "", "second")}
	g := &Generator{models: models, model: "m", maxLogLen: 200, logger: zap.NewNop()}

	output, err := g.GenerateContent(context.Background(), "p", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if output != "first\nsecond" {
		t.Fatalf("unexpected output: %q", output)
	}
}

func TestGenerateContentLogsModel(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	models := &fakeModels{resp: textResponse("ok")}
	g := &Generator{models: models, model: "gemini-2.0-flash", maxLogLen: 200, logger: zap.New(core)}

	if _, err := g.GenerateContent(context.Background(), "p", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := logs.FilterField(zap.String(jmlogger.FieldModel, "gemini-2.0-flash")).All()
	if len(entries) == 0 {
		t.Fatal("expected debug entries carrying the model field")
	}
}

func TestGeneratorModel(t *testing.T) {
	g := &Generator{model: "gemini-2.0-flash"}
	if got := g.Model(); got != "gemini-2.0-flash" {
		t.Fatalf("unexpected model: %q", got)
	}

	var nilGen *Generator
	if got := nilGen.Model(); got != "" {
		t.Fatalf("expected empty model for nil generator, got %q", got)
	}
}

func TestGenerateContentSurfacesAPIError(t *testing.T) {
	models := &fakeModels{err: errors.New("quota exceeded")}
	g := &Generator{models: models, model: "m", maxLogLen: 200, logger: zap.NewNop()}

	if _, err := g.GenerateContent(context.Background(), "p", 0); err == nil {
		t.Fatal("expected error")
	}
}

func TestGenerateContentRejectsEmptyPrompt(t *testing.T) {
	g := &Generator{models: &fakeModels{}, model: "m", maxLogLen: 200, logger: zap.NewNop()}

	if _, err := g.GenerateContent(context.Background(), "   ", 0); err == nil {
		t.Fatal("expected error for empty prompt")
	}
}

func TestGenerateContentRejectsEmptyResponse(t *testing.T) {
	models := &fakeModels{resp: &genai.GenerateContentResponse{}}
	g := &Generator{models: models, model: "m", maxLogLen: 200, logger: zap.NewNop()}

	if _, err := g.GenerateContent(context.Background(), "p", 0); err == nil {
		t.Fatal("expected error for empty response")
	}
}
