// Package server exposes the matching pipeline over HTTP. The model
// credential travels with each request; no client outlives the request
// that configured it.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jchau/jobmatch/internal/ai"
	"github.com/jchau/jobmatch/internal/ai/gemini"
	"github.com/jchau/jobmatch/internal/cv"
	"github.com/jchau/jobmatch/internal/evaluate"
	"github.com/jchau/jobmatch/internal/extract"
	"github.com/jchau/jobmatch/internal/jobboard"
	"github.com/jchau/jobmatch/internal/pipeline"
	"github.com/jchau/jobmatch/internal/scrape"
)

// engine is the per-request slice of the pipeline the handlers drive.
type engine interface {
	Run(ctx context.Context, cvText string, jobs []pipeline.Job) []pipeline.Outcome
	EvaluateText(ctx context.Context, cvText, jobText string, platform jobboard.Platform, jobID string) pipeline.Outcome
}

// Config holds the recognized server options.
type Config struct {
	// Model names the generative model built for each request.
	Model string `mapstructure:"model"`
	// MaxExtractChars bounds page text passed to the extractor.
	MaxExtractChars int `mapstructure:"max_extract_chars"`
	// MaxLogLength bounds prompt/response previews in debug logs.
	MaxLogLength int `mapstructure:"max_log_length"`
	// MaxCVBytes bounds the accepted CV upload size.
	MaxCVBytes int64 `mapstructure:"max_cv_bytes"`
}

const defaultMaxCVBytes = 10 << 20

// Server wires the gin router to the pipeline.
type Server struct {
	cfg    Config
	logger *zap.Logger

	// newEngine builds the per-request pipeline from the submitted API key.
	// Swapped out in tests.
	newEngine func(ctx context.Context, apiKey string, log *zap.Logger) (engine, error)
}

func New(cfg Config, log *zap.Logger) *Server {
	if cfg.MaxCVBytes <= 0 {
		cfg.MaxCVBytes = defaultMaxCVBytes
	}
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{cfg: cfg, logger: log}
	s.newEngine = s.buildEngine
	return s
}

// Router returns the configured gin engine. gin.Mode is left to the caller.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", s.handleHealth)
	router.POST("/evaluate", s.handleEvaluate)

	return router
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.Router().Run(addr)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// inlineJob is one entry of the job_descriptions form field.
type inlineJob struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	JobURL      string `json:"job_url"`
}

func (s *Server) handleEvaluate(c *gin.Context) {
	requestID := uuid.NewString()
	log := s.logger.With(zap.String("request_id", requestID))

	apiKey := c.PostForm("api_key")
	if apiKey == "" {
		log.Warn("evaluation request without api key")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
		return
	}

	cvText, err := s.readCV(c)
	if err != nil {
		log.Warn("cv upload rejected", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var urls []string
	if raw := c.PostForm("job_urls"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &urls); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid job_urls JSON: %v", err)})
			return
		}
	}

	var inline []inlineJob
	if raw := c.PostForm("job_descriptions"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &inline); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid job_descriptions JSON: %v", err)})
			return
		}
	}

	if len(urls) == 0 && len(inline) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no job descriptions or URLs provided for evaluation"})
		return
	}

	eng, err := s.newEngine(c.Request.Context(), apiKey, log)
	if err != nil {
		log.Warn("model configuration failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("error configuring model: %v", err)})
		return
	}

	log.Info("processing evaluation request",
		zap.Int("url_count", len(urls)),
		zap.Int("inline_count", len(inline)),
	)

	outcomes := make([]pipeline.Outcome, 0, len(inline)+len(urls))

	for idx, job := range inline {
		jobText := job.Description
		if job.Title != "" {
			jobText = "Job Title: " + job.Title + "\n\n" + jobText
		}
		outcome := eng.EvaluateText(c.Request.Context(), cvText, jobText,
			jobboard.PlatformWeb, fmt.Sprintf("inline-%d", idx+1))
		outcome.URL = job.JobURL
		outcomes = append(outcomes, outcome)
	}

	if len(urls) > 0 {
		jobs := make([]pipeline.Job, 0, len(urls))
		for idx, url := range urls {
			jobs = append(jobs, pipeline.Job{
				Platform: jobboard.PlatformWeb,
				JobID:    fmt.Sprintf("url-%d", idx+1),
				URL:      url,
			})
		}
		outcomes = append(outcomes, eng.Run(c.Request.Context(), cvText, jobs)...)
	}

	c.JSON(http.StatusOK, gin.H{
		"request_id":  requestID,
		"evaluations": outcomes,
	})
}

func (s *Server) readCV(c *gin.Context) (string, error) {
	header, err := c.FormFile("cv")
	if err != nil {
		return "", fmt.Errorf("cv file is required: %w", err)
	}
	if header.Size > s.cfg.MaxCVBytes {
		return "", fmt.Errorf("cv file exceeds %d bytes", s.cfg.MaxCVBytes)
	}

	file, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("opening cv upload: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxCVBytes))
	if err != nil {
		return "", fmt.Errorf("reading cv upload: %w", err)
	}

	return cv.ReadBytes(data, header.Filename)
}

// buildEngine assembles the production pipeline around a request-scoped
// Gemini generator.
func (s *Server) buildEngine(ctx context.Context, apiKey string, log *zap.Logger) (engine, error) {
	generator, err := gemini.NewGenerator(ctx, apiKey, s.cfg.Model, s.cfg.MaxLogLength, log)
	if err != nil {
		return nil, err
	}
	return s.assemble(generator, log), nil
}

func (s *Server) assemble(generator ai.Generator, log *zap.Logger) engine {
	fetcher := scrape.NewFetcher(scrape.Config{RequireHTML: true}, log)
	extractor := extract.New(generator, s.cfg.MaxExtractChars, s.cfg.MaxLogLength, log)
	evaluator := evaluate.New(generator, s.cfg.MaxLogLength, log)
	return pipeline.New(fetcher, extractor, evaluator, s.cfg.MaxExtractChars, log)
}
