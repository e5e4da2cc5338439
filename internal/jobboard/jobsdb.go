package jobboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

const (
	jobsdbAPIURL     = "https://hk.jobsdb.com"
	jobsdbSearchPath = "/api/jobsearch/v5/search"
	jobsdbPageSize   = 25
	jobsdbUserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/134.0.0.0 Safari/537.36"
)

// JobsDB queries the JobsDB JSON search endpoint for listing pages.
type JobsDB struct {
	HTTPClient *http.Client
	APIURL     string
	UserAgent  string
	logger     *zap.Logger
}

func NewJobsDB(logger *zap.Logger) *JobsDB {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobsDB{
		HTTPClient: &http.Client{Timeout: 25 * time.Second},
		APIURL:     jobsdbAPIURL,
		UserAgent:  jobsdbUserAgent,
		logger:     logger,
	}
}

// jobsdbResponse mirrors the documented top of the search reply. The items
// themselves stay untyped because the upstream schema has observed variants.
type jobsdbResponse struct {
	Data []map[string]any `json:"data"`
}

// Search returns one page of listing summaries for a keyword/location pair.
// A reply without a data array means zero results, not an error.
func (c *JobsDB) Search(ctx context.Context, keywords, location string, page int) ([]JobSummary, error) {
	if page < 1 {
		page = 1
	}

	q := url.Values{}
	q.Set("siteKey", "HK-Main")
	q.Set("sourcesystem", "houston")
	q.Set("page", strconv.Itoa(page))
	q.Set("keywords", keywords)
	q.Set("pageSize", strconv.Itoa(jobsdbPageSize))
	q.Set("locale", "en-HK")
	q.Set("location", location)
	q.Set("include", "seodata,jobDetailScore")

	searchURL := c.APIURL + jobsdbSearchPath

	c.logger.Debug("jobsdb search request",
		zap.String("keywords", keywords),
		zap.String("location", location),
		zap.Int("page", page),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, &SearchError{Kind: SearchTransport, Platform: PlatformJobsDB, Err: err}
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &SearchError{Kind: SearchTransport, Platform: PlatformJobsDB, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &SearchError{
			Kind:     SearchTransport,
			Platform: PlatformJobsDB,
			Err:      fmt.Errorf("bad status: %s", resp.Status),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &SearchError{Kind: SearchTransport, Platform: PlatformJobsDB, Err: err}
	}

	var response jobsdbResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, &SearchError{Kind: SearchMalformed, Platform: PlatformJobsDB, Err: err}
	}

	jobs := make([]JobSummary, 0, len(response.Data))
	for _, item := range response.Data {
		jobs = append(jobs, mapJobsDBItem(item))
	}

	c.logger.Info("jobsdb search completed",
		zap.String("keywords", keywords),
		zap.Int("page", page),
		zap.Int("results", len(jobs)),
	)

	return jobs, nil
}

// fieldSource extracts one candidate value for an output field from a raw
// listing item.
type fieldSource func(item map[string]any) string

// The upstream schema drifts, so each output field is mapped through an
// explicit ordered fallback chain: first non-empty source wins.
var (
	jobsdbTitleSources = []fieldSource{
		topLevelString("title"),
	}
	jobsdbCompanySources = []fieldSource{
		nestedString("companyMeta", "name"),
		topLevelString("companyName"),
	}
	jobsdbAdvertiserSources = []fieldSource{
		nestedString("advertiser", "description"),
	}
	jobsdbPostedSources = []fieldSource{
		topLevelString("listingDate"),
		topLevelString("listingDateDisplay"),
	}
	jobsdbClassificationSources = []fieldSource{
		nestedString("classification", "description"),
	}
	jobsdbTeaserSources = []fieldSource{
		topLevelString("teaser"),
	}
)

func mapJobsDBItem(item map[string]any) JobSummary {
	id := firstNonEmpty(item, []fieldSource{topLevelString("id")})
	if id == "" {
		id = NotAvailable
	}

	summary := JobSummary{
		JobID:          id,
		Platform:       PlatformJobsDB,
		Title:          fallback(item, jobsdbTitleSources),
		Company:        fallback(item, jobsdbCompanySources),
		Advertiser:     fallback(item, jobsdbAdvertiserSources),
		Location:       jobsdbLocation(item),
		Posted:         fallback(item, jobsdbPostedSources),
		Classification: fallback(item, jobsdbClassificationSources),
		Teaser:         fallback(item, jobsdbTeaserSources),
		Salary:         jobsdbSalaryText(item),
		Highlights:     stringSlice(item["bulletPoints"]),
		URL:            PlatformJobsDB.DetailURL(id),
	}

	return summary
}

func fallback(item map[string]any, sources []fieldSource) string {
	if value := firstNonEmpty(item, sources); value != "" {
		return value
	}
	return NotAvailable
}

func firstNonEmpty(item map[string]any, sources []fieldSource) string {
	for _, source := range sources {
		if value := strings.TrimSpace(source(item)); value != "" {
			return value
		}
	}
	return ""
}

func topLevelString(key string) fieldSource {
	return func(item map[string]any) string {
		return asString(item[key])
	}
}

func nestedString(key, subkey string) fieldSource {
	return func(item map[string]any) string {
		nested, ok := item[key].(map[string]any)
		if !ok {
			return ""
		}
		return asString(nested[subkey])
	}
}

func asString(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		return ""
	}
}

func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	result := make([]string, 0, len(items))
	for _, item := range items {
		if s := asString(item); s != "" {
			result = append(result, s)
		}
	}
	return result
}

// jobsdbLocationHierarchy is the stable part of the location shape.
type jobsdbLocationHierarchy struct {
	Country jobsdbNamed `mapstructure:"country"`
	State   jobsdbNamed `mapstructure:"state"`
	City    jobsdbNamed `mapstructure:"city"`
	Area    jobsdbNamed `mapstructure:"area"`
}

type jobsdbNamed struct {
	Name string `mapstructure:"name"`
}

func jobsdbLocation(item map[string]any) string {
	var hierarchy jobsdbLocationHierarchy
	if err := mapstructure.Decode(item["locationHierarchy"], &hierarchy); err != nil {
		return NotAvailable
	}

	parts := make([]string, 0, 4)
	for _, name := range []string{hierarchy.Country.Name, hierarchy.State.Name, hierarchy.City.Name, hierarchy.Area.Name} {
		if name = strings.TrimSpace(name); name != "" {
			parts = append(parts, name)
		}
	}

	if len(parts) == 0 {
		return NotAvailable
	}
	return strings.Join(parts, ", ")
}

// jobsdbSalaryLabel is the preferred salary shape; older items only carry
// min/max/type.
type jobsdbSalary struct {
	Label jobsdbSalaryLabel `mapstructure:"label"`
	Min   float64           `mapstructure:"min"`
	Max   float64           `mapstructure:"max"`
	Type  string            `mapstructure:"type"`
}

type jobsdbSalaryLabel struct {
	Text string `mapstructure:"text"`
}

// jobsdbSalaryText resolves the salary through its own fallback chain:
// label text, then a min/max/type construction, then a plain string value.
func jobsdbSalaryText(item map[string]any) string {
	raw, ok := item["salary"]
	if !ok || raw == nil {
		return "Not Specified"
	}

	if s, ok := raw.(string); ok {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
		return "Not Specified"
	}

	var salary jobsdbSalary
	if err := mapstructure.Decode(raw, &salary); err != nil {
		return "Not Specified"
	}

	if text := strings.TrimSpace(salary.Label.Text); text != "" {
		return text
	}

	salaryType := strings.TrimSpace(salary.Type)
	switch {
	case salary.Min > 0 && salary.Max > 0 && salaryType != "":
		return fmt.Sprintf("%s - %s (%s)", groupedAmount(salary.Min), groupedAmount(salary.Max), salaryType)
	case salary.Min > 0 && salaryType != "":
		return fmt.Sprintf("From %s (%s)", groupedAmount(salary.Min), salaryType)
	case salaryType != "":
		return "Salary Type: " + salaryType
	default:
		return "Not Specified"
	}
}

// groupedAmount renders a monetary amount with thousands separators, e.g.
// 30000 -> "30,000".
func groupedAmount(v float64) string {
	s := strconv.FormatFloat(v, 'f', 0, 64)

	start := 0
	if strings.HasPrefix(s, "-") {
		start = 1
	}

	var b strings.Builder
	b.WriteString(s[:start])
	digits := s[start:]
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	return b.String()
}
