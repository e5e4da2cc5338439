// Package extract turns normalized job page text into a structured
// {title, summary} record via a single low-temperature model call.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/jchau/jobmatch/internal/ai"
	"github.com/jchau/jobmatch/internal/jobboard"
	"github.com/jchau/jobmatch/internal/logger"
	"github.com/jchau/jobmatch/internal/scrape"
	"github.com/jchau/jobmatch/internal/utils"
)

//go:embed prompt.md
var promptTemplate string

const (
	// DefaultMaxChars bounds the text embedded into the prompt. Oversized
	// input is silently truncated, never rejected.
	DefaultMaxChars = 18000

	// notFound is the literal the model is instructed to emit when a field
	// cannot be recovered from the page text.
	notFound = "Not Found"

	// Sentinels for a single unrecoverable field. First-class values the
	// caller can detect; not errors.
	TitleNotFound   = "[Title Not Found in Content]"
	SummaryNotFound = "[Summary Not Found in Content]"

	// Sentinels for a reply that parsed but dropped a key.
	titleKeyMissing   = "Extraction Error: Title Key Missing"
	summaryKeyMissing = "Extraction Error: Summary Key Missing"
)

// ErrEmptyContent short-circuits extraction when there is no text to send.
var ErrEmptyContent = errors.New("no content to extract from")

// MalformedResponseError reports a model reply the pipeline could not make
// sense of after every fallback. Raw carries the offending text for diagnosis.
type MalformedResponseError struct {
	Raw string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed model response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// JobDetail is the structured record extracted from one job page.
type JobDetail struct {
	Platform jobboard.Platform `json:"platform"`
	JobID    string            `json:"job_id"`
	Title    string            `json:"title"`
	Summary  string            `json:"summary"`
}

// Result is the outcome of a successful extraction call. NoContent marks a
// page that was reachable but not a genuine job posting (error page, login
// wall); Detail is nil in that case.
type Result struct {
	Detail    *JobDetail
	NoContent bool
}

// Extractor drives the job-detail model call.
type Extractor struct {
	generator ai.Generator
	maxChars  int
	maxLogLen int
	logger    *zap.Logger
}

const defaultMaxLogLength = 200

func New(generator ai.Generator, maxChars, maxLogLength int, log *zap.Logger) *Extractor {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Extractor{
		generator: generator,
		maxChars:  maxChars,
		maxLogLen: maxLogLength,
		logger:    log,
	}
}

// Extract sends the page text to the model and parses the reply. Reply
// handling, in order: fenced JSON block, then the bare reply (required to look
// like an object), then the documented unescaping, then key-by-key sentinel
// mapping. A reply of "Not Found" for both fields is a NoContent result, not
// an error.
func (e *Extractor) Extract(ctx context.Context, text string, platform jobboard.Platform, jobID string) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyContent
	}

	log := logger.WithJobFields(e.logger, string(platform), jobID)

	prompt := buildPrompt(scrape.Truncate(text, e.maxChars), platform, jobID)

	log.Debug("job detail extraction request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, e.maxLogLen)),
	)

	raw, err := e.generator.GenerateContent(ctx, prompt, 0)
	if err != nil {
		return nil, &ai.ModelError{Err: err}
	}

	log.Debug("job detail extraction response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, e.maxLogLen)),
	)

	title, summary, err := parseReply(raw)
	if err != nil {
		return nil, err
	}

	if title == notFound && summary == notFound {
		log.Warn("page content not extractable: likely an error page or login wall")
		return &Result{NoContent: true}, nil
	}
	if title == notFound {
		title = TitleNotFound
	}
	if summary == notFound {
		summary = SummaryNotFound
	}

	return &Result{
		Detail: &JobDetail{
			Platform: platform,
			JobID:    jobID,
			Title:    title,
			Summary:  summary,
		},
	}, nil
}

func buildPrompt(text string, platform jobboard.Platform, jobID string) string {
	prompt := strings.ReplaceAll(promptTemplate, "{{PLATFORM}}", strings.ToUpper(string(platform)))
	prompt = strings.ReplaceAll(prompt, "{{JOB_ID}}", jobID)
	prompt = strings.ReplaceAll(prompt, "{{TEXT}}", text)
	return prompt
}

func parseReply(raw string) (title, summary string, err error) {
	block, err := ai.JSONBlock(raw)
	if err != nil {
		return "", "", &MalformedResponseError{Raw: raw, Err: err}
	}

	// Replies often carry extra keys (confidence scores, reasoning); only
	// the two documented keys matter, the rest is ignored.
	var fields map[string]any
	if err := json.Unmarshal([]byte(block), &fields); err != nil {
		return "", "", &MalformedResponseError{Raw: raw, Err: err}
	}

	return fieldValue(fields, "title", titleKeyMissing),
		fieldValue(fields, "summary", summaryKeyMissing),
		nil
}

func fieldValue(fields map[string]any, key, missing string) string {
	value, ok := fields[key]
	if !ok {
		return missing
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}
