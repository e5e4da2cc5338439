package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/jchau/jobmatch/internal/ai"
	"github.com/jchau/jobmatch/internal/jobboard"
	"github.com/jchau/jobmatch/internal/scrape"
)

type stubGenerator struct {
	reply      string
	err        error
	lastPrompt string
}

func (s *stubGenerator) GenerateContent(_ context.Context, prompt string, _ float32) (string, error) {
	s.lastPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func TestExtractFencedJSON(t *testing.T) {
	gen := &stubGenerator{reply: "Here you go:\n```json\n{\"title\": \"Backend Engineer\", \"summary\": \"Go services.\"}\n```"}
	ex := New(gen, 0, 0, zap.NewNop())

	res, err := ex.Extract(context.Background(), "some job page text", jobboard.PlatformJobsDB, "123")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if res.NoContent {
		t.Fatalf("Extract() NoContent = true, want detail")
	}
	if res.Detail.Title != "Backend Engineer" {
		t.Errorf("Title = %q, want %q", res.Detail.Title, "Backend Engineer")
	}
	if res.Detail.Summary != "Go services." {
		t.Errorf("Summary = %q, want %q", res.Detail.Summary, "Go services.")
	}
	if res.Detail.Platform != jobboard.PlatformJobsDB || res.Detail.JobID != "123" {
		t.Errorf("Detail identity = %s/%s, want jobsdb/123", res.Detail.Platform, res.Detail.JobID)
	}
}

func TestExtractBothNotFound(t *testing.T) {
	gen := &stubGenerator{reply: `{"title": "Not Found", "summary": "Not Found"}`}
	ex := New(gen, 0, 0, zap.NewNop())

	res, err := ex.Extract(context.Background(), "please log in to continue", jobboard.PlatformLinkedIn, "999")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !res.NoContent {
		t.Fatalf("Extract() NoContent = false, want true")
	}
	if res.Detail != nil {
		t.Errorf("Detail = %+v, want nil", res.Detail)
	}
}

func TestExtractSingleNotFound(t *testing.T) {
	gen := &stubGenerator{reply: `{"title": "Not Found", "summary": "A real summary."}`}
	ex := New(gen, 0, 0, zap.NewNop())

	res, err := ex.Extract(context.Background(), "text", jobboard.PlatformJobsDB, "1")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if res.Detail.Title != TitleNotFound {
		t.Errorf("Title = %q, want %q", res.Detail.Title, TitleNotFound)
	}
	if res.Detail.Summary != "A real summary." {
		t.Errorf("Summary = %q, want %q", res.Detail.Summary, "A real summary.")
	}
}

func TestExtractIgnoresExtraKeys(t *testing.T) {
	gen := &stubGenerator{reply: `{"title": "Data Analyst", "summary": "Analyze data.", "confidence": 0.9}`}
	ex := New(gen, 0, 0, zap.NewNop())

	res, err := ex.Extract(context.Background(), "text", jobboard.PlatformJobsDB, "1")
	if err != nil {
		t.Fatalf("Extract() error = %v, want extra keys ignored", err)
	}
	if res.Detail.Title != "Data Analyst" {
		t.Errorf("Title = %q, want %q", res.Detail.Title, "Data Analyst")
	}
	if res.Detail.Summary != "Analyze data." {
		t.Errorf("Summary = %q, want %q", res.Detail.Summary, "Analyze data.")
	}
}

func TestExtractMissingKeys(t *testing.T) {
	gen := &stubGenerator{reply: `{"title": "DevOps Lead"}`}
	ex := New(gen, 0, 0, zap.NewNop())

	res, err := ex.Extract(context.Background(), "text", jobboard.PlatformJobsDB, "1")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if res.Detail.Summary != "Extraction Error: Summary Key Missing" {
		t.Errorf("Summary = %q, want key-missing sentinel", res.Detail.Summary)
	}
}

func TestExtractMalformedReply(t *testing.T) {
	gen := &stubGenerator{reply: "Sorry, I cannot help with that."}
	ex := New(gen, 0, 0, zap.NewNop())

	_, err := ex.Extract(context.Background(), "text", jobboard.PlatformJobsDB, "1")
	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("Extract() error = %v, want *MalformedResponseError", err)
	}
	if malformed.Raw != "Sorry, I cannot help with that." {
		t.Errorf("Raw = %q, want original reply attached", malformed.Raw)
	}
}

func TestExtractModelError(t *testing.T) {
	gen := &stubGenerator{err: errors.New("quota exhausted")}
	ex := New(gen, 0, 0, zap.NewNop())

	_, err := ex.Extract(context.Background(), "text", jobboard.PlatformJobsDB, "1")
	var modelErr *ai.ModelError
	if !errors.As(err, &modelErr) {
		t.Fatalf("Extract() error = %v, want *ai.ModelError", err)
	}
}

func TestExtractEmptyInput(t *testing.T) {
	ex := New(&stubGenerator{}, 0, 0, zap.NewNop())

	_, err := ex.Extract(context.Background(), "   \n\t ", jobboard.PlatformJobsDB, "1")
	if !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("Extract() error = %v, want ErrEmptyContent", err)
	}
}

func TestExtractTruncatesOversizedInput(t *testing.T) {
	gen := &stubGenerator{reply: `{"title": "T", "summary": "S"}`}
	ex := New(gen, 50, 0, zap.NewNop())

	text := strings.Repeat("a", 120)
	if _, err := ex.Extract(context.Background(), text, jobboard.PlatformJobsDB, "1"); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	want := strings.Repeat("a", 50) + scrape.TruncationMarker
	if !strings.Contains(gen.lastPrompt, want) {
		t.Errorf("prompt does not contain the 50-rune prefix with truncation marker")
	}
	if strings.Contains(gen.lastPrompt, strings.Repeat("a", 51)) {
		t.Errorf("prompt contains more than 50 input runes")
	}
}
