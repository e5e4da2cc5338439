// Package pipeline chains fetch, normalize, extract and evaluate for a
// batch of jobs. Jobs run one at a time; a failure is recorded in the
// job's outcome and never aborts its siblings.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jchau/jobmatch/internal/evaluate"
	"github.com/jchau/jobmatch/internal/extract"
	"github.com/jchau/jobmatch/internal/jobboard"
	"github.com/jchau/jobmatch/internal/logger"
	"github.com/jchau/jobmatch/internal/scrape"
)

type fetcher interface {
	Fetch(ctx context.Context, url string) (*scrape.RawPage, error)
}

type extractor interface {
	Extract(ctx context.Context, text string, platform jobboard.Platform, jobID string) (*extract.Result, error)
}

type evaluator interface {
	Evaluate(ctx context.Context, cvText string, detail *extract.JobDetail) (*evaluate.Score, error)
}

// Job identifies one posting to run through the pipeline. URL is derived
// from the platform and id when empty.
type Job struct {
	Platform jobboard.Platform
	JobID    string
	URL      string
}

// Outcome is the per-job result. Exactly one of Score or Err is meaningful;
// Detail is set whenever extraction succeeded, even if evaluation later
// failed. NoContent marks a reachable page that carried no job posting.
type Outcome struct {
	Platform  jobboard.Platform  `json:"platform"`
	JobID     string             `json:"job_id"`
	URL       string             `json:"url"`
	Detail    *extract.JobDetail `json:"detail,omitempty"`
	Score     *evaluate.Score    `json:"score,omitempty"`
	NoContent bool               `json:"no_content,omitempty"`
	Err       string             `json:"error,omitempty"`
}

// Succeeded reports whether the job produced a score.
func (o *Outcome) Succeeded() bool {
	return o.Err == "" && o.Score != nil
}

// Pipeline holds the four stages. Stateless between Run calls.
type Pipeline struct {
	fetcher   fetcher
	extractor extractor
	evaluator evaluator
	maxChars  int
	logger    *zap.Logger
}

func New(f fetcher, ex extractor, ev evaluator, maxChars int, log *zap.Logger) *Pipeline {
	if maxChars <= 0 {
		maxChars = extract.DefaultMaxChars
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Pipeline{
		fetcher:   f,
		extractor: ex,
		evaluator: ev,
		maxChars:  maxChars,
		logger:    log,
	}
}

// Run processes every job in order and returns one outcome per job, in
// input order. Context cancellation stops the batch between stages.
func (p *Pipeline) Run(ctx context.Context, cvText string, jobs []Job) []Outcome {
	outcomes := make([]Outcome, 0, len(jobs))
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			outcomes = append(outcomes, Outcome{
				Platform: job.Platform,
				JobID:    job.JobID,
				URL:      job.URL,
				Err:      fmt.Sprintf("batch cancelled: %v", err),
			})
			continue
		}
		outcomes = append(outcomes, p.runOne(ctx, cvText, job))
	}
	return outcomes
}

// EvaluateDetail scores an already-extracted job record, skipping the fetch
// and normalize stages. Used for inline job descriptions.
func (p *Pipeline) EvaluateDetail(ctx context.Context, cvText string, detail *extract.JobDetail) Outcome {
	outcome := Outcome{
		Platform: detail.Platform,
		JobID:    detail.JobID,
		Detail:   detail,
	}

	score, err := p.evaluator.Evaluate(ctx, cvText, detail)
	if err != nil {
		outcome.Err = p.describe(err, detail.Platform, detail.JobID, "")
		return outcome
	}
	outcome.Score = score
	return outcome
}

// EvaluateText extracts a job record from inline posting text and scores
// it, skipping the fetch and normalize stages.
func (p *Pipeline) EvaluateText(ctx context.Context, cvText, jobText string, platform jobboard.Platform, jobID string) Outcome {
	outcome := Outcome{
		Platform: platform,
		JobID:    jobID,
	}

	result, err := p.extractor.Extract(ctx, jobText, platform, jobID)
	if err != nil {
		outcome.Err = p.describe(err, platform, jobID, "")
		return outcome
	}
	if result.NoContent {
		outcome.NoContent = true
		return outcome
	}
	outcome.Detail = result.Detail

	score, err := p.evaluator.Evaluate(ctx, cvText, result.Detail)
	if err != nil {
		outcome.Err = p.describe(err, platform, jobID, "")
		return outcome
	}
	outcome.Score = score
	return outcome
}

func (p *Pipeline) runOne(ctx context.Context, cvText string, job Job) Outcome {
	url := job.URL
	if url == "" {
		url = job.Platform.DetailURL(job.JobID)
	}

	outcome := Outcome{
		Platform: job.Platform,
		JobID:    job.JobID,
		URL:      url,
	}

	log := logger.WithJobFields(p.logger, string(job.Platform), job.JobID)
	log.Info("processing job", zap.String("url", url))

	page, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		outcome.Err = p.describe(err, job.Platform, job.JobID, url)
		log.Warn("fetch failed", zap.String("error", outcome.Err))
		return outcome
	}

	text, err := scrape.Normalize(string(page.Body), p.maxChars)
	if err != nil {
		outcome.Err = p.describe(err, job.Platform, job.JobID, url)
		log.Warn("normalize failed", zap.String("error", outcome.Err))
		return outcome
	}

	result, err := p.extractor.Extract(ctx, text, job.Platform, job.JobID)
	if err != nil {
		outcome.Err = p.describe(err, job.Platform, job.JobID, url)
		log.Warn("extraction failed", zap.String("error", outcome.Err))
		return outcome
	}
	if result.NoContent {
		outcome.NoContent = true
		log.Warn("page carried no job content")
		return outcome
	}
	outcome.Detail = result.Detail

	score, err := p.evaluator.Evaluate(ctx, cvText, result.Detail)
	if err != nil {
		outcome.Err = p.describe(err, job.Platform, job.JobID, url)
		log.Warn("evaluation failed", zap.String("error", outcome.Err))
		return outcome
	}
	outcome.Score = score

	log.Info("job scored", zap.Int("overall", score.Overall), zap.Bool("consistent", score.Consistent))
	return outcome
}

// describe renders a failure with enough identity to diagnose it from the
// batch report alone, attaching raw model text when the error carries it.
func (p *Pipeline) describe(err error, platform jobboard.Platform, jobID, url string) string {
	msg := fmt.Sprintf("%s/%s", platform, jobID)
	if url != "" {
		msg += " (" + url + ")"
	}
	msg += ": " + err.Error()

	var exMalformed *extract.MalformedResponseError
	var evMalformed *evaluate.MalformedResponseError
	switch {
	case errors.As(err, &exMalformed):
		msg += "; raw response: " + exMalformed.Raw
	case errors.As(err, &evMalformed):
		msg += "; raw response: " + evMalformed.Raw
	}
	return msg
}
