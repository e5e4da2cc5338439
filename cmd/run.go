package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jchau/jobmatch/internal/ai/gemini"
	"github.com/jchau/jobmatch/internal/cv"
	"github.com/jchau/jobmatch/internal/evaluate"
	"github.com/jchau/jobmatch/internal/extract"
	"github.com/jchau/jobmatch/internal/jobboard"
	"github.com/jchau/jobmatch/internal/logger"
	"github.com/jchau/jobmatch/internal/pipeline"
	"github.com/jchau/jobmatch/internal/scrape"
	"github.com/jchau/jobmatch/internal/secrets"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptShowReport   = "Show the match report"
	PromptDumpToFile   = "Dump outcomes to file"
	PromptExit         = "Exit"
	defaultResults     = 10
	defaultEvaluateTop = 5
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "Proceed?",
	Items: []string{PromptShowReport, PromptDumpToFile, PromptExit},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Search the job boards and score the configured CV against the results",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("auto-approve", "y", false, "print the match report without prompting")
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the jobmatch", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config == nil {
		logger.Fatal("config is required")
	}

	if config.CVFile == "" {
		logger.Fatal("a CV file is required under cv-file to evaluate jobs against")
	}

	if config.Search == nil || config.Search.Keywords == "" {
		logger.Fatal("search keywords are required under search.keywords")
	}

	cvText, err := cv.Read(config.CVFile)
	if err != nil {
		logger.Fatal("reading the cv", zap.Error(err), zap.String("file", config.CVFile))
	}

	logger.Info("cv loaded", zap.String("file", config.CVFile))

	apiKey, err := resolveAPIKey(config)
	if err != nil {
		logger.Fatal(
			"loading gemini api key",
			zap.Error(err),
			zap.String("hint", "set GEMINI_API_KEY_FILE environment variable or the 'ai.gemini.api-key-file' key in the configuration file"),
		)
	}

	generator := buildGenerator(ctx, config, apiKey, logger)
	fetcher := scrape.NewFetcher(scrapeConfig(config), logger)

	jobs := searchAll(ctx, config, fetcher, logger)

	fmt.Println(jobboard.Render(jobs))

	if len(jobs) == 0 {
		logger.Info("exiting", zap.String("reason", "no jobs found"))
		return
	}

	top := config.Search.Evaluate
	if top <= 0 {
		top = defaultEvaluateTop
	}
	if top > len(jobs) {
		top = len(jobs)
	}

	logger.Info("evaluating top listings", zap.Int("count", top))

	maxChars := extract.DefaultMaxChars
	maxLogLen := 0
	if config.Scrape != nil && config.Scrape.MaxExtractChars > 0 {
		maxChars = config.Scrape.MaxExtractChars
	}
	if config.AI != nil && config.AI.Gemini != nil {
		maxLogLen = config.AI.Gemini.MaxLogLength
	}

	p := pipeline.New(
		fetcher,
		extract.New(generator, maxChars, maxLogLen, logger),
		evaluate.New(generator, maxLogLen, logger),
		maxChars,
		logger,
	)

	outcomes := p.Run(ctx, cvText, toPipelineJobs(jobs[:top]))
	sortByScore(outcomes)

	action := PromptShowReport
	for {
		var err error
		if cmd.Flag("auto-approve").Value.String() == "false" {
			_, action, err = prompt.Run()
			if err != nil {
				logger.Fatal("exiting", zap.Error(err))
			}
		}

		if err := handleAction(action, outcomes, logger); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}

		if cmd.Flag("auto-approve").Value.String() == "true" {
			return
		}
	}
}

func handleAction(action string, outcomes []pipeline.Outcome, logger *zap.Logger) error {
	switch action {
	case PromptShowReport:
		fmt.Println(renderReport(outcomes))
		return nil
	case PromptDumpToFile:
		filename, err := dumpToTmpFile(outcomes)
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func resolveAPIKey(config *Config) (string, error) {
	if config == nil {
		return "", errors.New("config is required")
	}

	keyFile := ""
	if config.AI != nil && config.AI.Gemini != nil {
		keyFile = strings.TrimSpace(config.AI.Gemini.APIKeyFile)
	}
	if keyFile == "" {
		keyFile = strings.TrimSpace(viper.GetString("ai.gemini.api-key-file"))
	}

	return secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: keyFile,
		Env:  "GEMINI_API_KEY",
	})
}

func buildGenerator(ctx context.Context, config *Config, apiKey string, logger *zap.Logger) *gemini.Generator {
	model := ""
	maxLogLen := 0
	if config.AI != nil && config.AI.Gemini != nil {
		model = config.AI.Gemini.Model
		maxLogLen = config.AI.Gemini.MaxLogLength
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, model, maxLogLen, logger)
	if err != nil {
		logger.Fatal("building gemini generator", zap.Error(err))
	}

	logger.Info("gemini generator ready", zap.String("model", generator.Model()))

	return generator
}

func scrapeConfig(config *Config) scrape.Config {
	cfg := scrape.Config{RequireHTML: true}
	if config.Scrape == nil {
		return cfg
	}

	if config.Scrape.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(config.Scrape.TimeoutSeconds) * time.Second
	}
	if config.Scrape.MinDelaySeconds > 0 {
		cfg.MinDelay = time.Duration(config.Scrape.MinDelaySeconds) * time.Second
	}
	if config.Scrape.MaxDelaySeconds > 0 {
		cfg.MaxDelay = time.Duration(config.Scrape.MaxDelaySeconds) * time.Second
	}

	return cfg
}

// searchAll collects listings from every configured platform. A platform
// that fails is logged and skipped; its siblings still contribute.
func searchAll(ctx context.Context, config *Config, fetcher *scrape.Fetcher, logger *zap.Logger) []jobboard.JobSummary {
	platforms := config.Search.Platforms
	if len(platforms) == 0 {
		platforms = []string{string(jobboard.PlatformJobsDB), string(jobboard.PlatformLinkedIn)}
	}

	results := config.Search.Results
	if results <= 0 {
		results = defaultResults
	}

	var jobs []jobboard.JobSummary
	for _, name := range platforms {
		platform, err := jobboard.ParsePlatform(name)
		if err != nil {
			logger.Warn("skipping platform", zap.Error(err))
			continue
		}

		logger.Info("starting the search",
			zap.String("platform", string(platform)),
			zap.String("keywords", config.Search.Keywords),
			zap.String("location", config.Search.Location),
		)

		var batch []jobboard.JobSummary
		switch platform {
		case jobboard.PlatformJobsDB:
			batch, err = jobboard.NewJobsDB(logger).Search(ctx, config.Search.Keywords, config.Search.Location, 1)
		case jobboard.PlatformLinkedIn:
			batch, err = jobboard.NewLinkedIn(fetcher, logger).Search(ctx, config.Search.Keywords, config.Search.Location, results)
		}
		if err != nil {
			logger.Warn("search failed", zap.String("platform", string(platform)), zap.Error(err))
			continue
		}

		if len(batch) > results {
			batch = batch[:results]
		}

		logger.Info("getting jobs", zap.String("platform", string(platform)), zap.Int("count", len(batch)))
		jobs = append(jobs, batch...)
	}

	return jobs
}

func toPipelineJobs(jobs []jobboard.JobSummary) []pipeline.Job {
	out := make([]pipeline.Job, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, pipeline.Job{
			Platform: job.Platform,
			JobID:    job.JobID,
			URL:      job.URL,
		})
	}
	return out
}

// sortByScore orders scored outcomes best-first; failures and no-content
// outcomes sink to the bottom in their original order.
func sortByScore(outcomes []pipeline.Outcome) {
	sort.SliceStable(outcomes, func(i, j int) bool {
		a, b := outcomes[i], outcomes[j]
		switch {
		case a.Succeeded() && b.Succeeded():
			return a.Score.Overall > b.Score.Overall
		case a.Succeeded():
			return true
		default:
			return false
		}
	})
}

func renderReport(outcomes []pipeline.Outcome) string {
	var b strings.Builder

	b.WriteString("Match report\n")
	b.WriteString(strings.Repeat("=", 50) + "\n")

	rank := 0
	for _, o := range outcomes {
		if !o.Succeeded() {
			continue
		}
		rank++
		fmt.Fprintf(&b, "#%d [%d/100] %s\n", rank, o.Score.Overall, o.Detail.Title)
		fmt.Fprintf(&b, "   %s/%s %s\n", o.Platform, o.JobID, o.URL)
		if !o.Score.Consistent {
			fmt.Fprintf(&b, "   note: overall score %d differs from category sum %d\n", o.Score.Overall, o.Score.Sum())
		}
		fmt.Fprintf(&b, "   %s\n", o.Score.OverallExplanation)
	}
	if rank == 0 {
		b.WriteString("No jobs were scored.\n")
	}

	for _, o := range outcomes {
		if o.Succeeded() {
			continue
		}
		if o.NoContent {
			fmt.Fprintf(&b, "skipped %s/%s: page carried no job content\n", o.Platform, o.JobID)
			continue
		}
		fmt.Fprintf(&b, "failed %s\n", o.Err)
	}

	return b.String()
}

func dumpToTmpFile(outcomes []pipeline.Outcome) (string, error) {
	data, err := json.MarshalIndent(outcomes, "", "  ")
	if err != nil {
		return "", err
	}

	f, err := os.CreateTemp("", app+"-outcomes-*.json")
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return "", err
	}

	return f.Name(), nil
}
