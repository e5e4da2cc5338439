// Package evaluate scores a CV against one extracted job record with a
// fixed point-weighted rubric. All arithmetic is delegated to the model;
// this side only transmits the rubric, parses the reply and checks the sum.
package evaluate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/jchau/jobmatch/internal/ai"
	"github.com/jchau/jobmatch/internal/extract"
	"github.com/jchau/jobmatch/internal/logger"
	"github.com/jchau/jobmatch/internal/utils"
)

//go:embed rubric.md
var rubricTemplate string

// MalformedResponseError reports a scoring reply that survived no parsing
// fallback. Raw carries the model text.
type MalformedResponseError struct {
	Raw string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed evaluation response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// Category is one rubric axis with its awarded points and rationale.
type Category struct {
	Score       int    `json:"score"`
	Explanation string `json:"explanation"`
}

// Score is the parsed evaluation. Overall is the model's own total;
// Consistent records whether it equals the category sum and lands on a
// multiple of five, as the rubric instructs.
type Score struct {
	Overall            int      `json:"overall_score"`
	Experience         Category `json:"experience"`
	Skills             Category `json:"skills"`
	Personality        Category `json:"personality"`
	OverallExplanation string   `json:"overall_explanation"`

	Consistent bool `json:"consistent"`
}

// Sum returns the total the three categories actually add up to.
func (s *Score) Sum() int {
	return s.Experience.Score + s.Skills.Score + s.Personality.Score
}

// Evaluator drives the scoring model call.
type Evaluator struct {
	generator ai.Generator
	maxLogLen int
	logger    *zap.Logger
}

const defaultMaxLogLength = 200

func New(generator ai.Generator, maxLogLength int, log *zap.Logger) *Evaluator {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Evaluator{
		generator: generator,
		maxLogLen: maxLogLength,
		logger:    log,
	}
}

// Evaluate sends the CV and job record through the rubric prompt and parses
// the JSON reply. A reply whose category scores disagree with overall_score
// still parses; the mismatch is logged and flagged via Score.Consistent.
func (e *Evaluator) Evaluate(ctx context.Context, cvText string, detail *extract.JobDetail) (*Score, error) {
	log := logger.WithJobFields(e.logger, string(detail.Platform), detail.JobID)

	prompt := buildPrompt(cvText, detail)

	log.Debug("cv evaluation request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, e.maxLogLen)),
	)

	raw, err := e.generator.GenerateContent(ctx, prompt, 0)
	if err != nil {
		return nil, &ai.ModelError{Err: err}
	}

	log.Debug("cv evaluation response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, e.maxLogLen)),
	)

	block, err := ai.JSONBlock(raw)
	if err != nil {
		return nil, &MalformedResponseError{Raw: raw, Err: err}
	}

	var score Score
	if err := json.Unmarshal([]byte(block), &score); err != nil {
		return nil, &MalformedResponseError{Raw: raw, Err: err}
	}

	score.Consistent = score.Overall == score.Sum() && score.Overall%5 == 0
	if !score.Consistent {
		log.Warn("overall score violates the rubric invariant",
			zap.Int("overall", score.Overall),
			zap.Int("category_sum", score.Sum()),
			zap.Bool("multiple_of_five", score.Overall%5 == 0),
		)
	}

	return &score, nil
}

func buildPrompt(cvText string, detail *extract.JobDetail) string {
	prompt := strings.ReplaceAll(rubricTemplate, "{{JOB_TITLE}}", detail.Title)
	prompt = strings.ReplaceAll(prompt, "{{JOB_DESCRIPTION}}", detail.Summary)
	prompt = strings.ReplaceAll(prompt, "{{CV}}", cvText)
	return prompt
}
