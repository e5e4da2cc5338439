// Package jobboard holds the job listing model and the per-platform search
// adapters that produce it.
package jobboard

import (
	"fmt"
	"strings"
)

// Platform identifies the job board a listing came from.
type Platform string

const (
	PlatformJobsDB   Platform = "jobsdb"
	PlatformLinkedIn Platform = "linkedin"

	// PlatformWeb covers arbitrary job page URLs and inline descriptions
	// submitted over the API, where no board identity applies.
	PlatformWeb Platform = "web"
)

// ParsePlatform maps a user-supplied platform name onto the enum.
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(PlatformJobsDB):
		return PlatformJobsDB, nil
	case string(PlatformLinkedIn):
		return PlatformLinkedIn, nil
	default:
		return "", fmt.Errorf("invalid platform %q: must be 'jobsdb' or 'linkedin'", s)
	}
}

// DetailURL returns the canonical detail page for a job id on this platform.
func (p Platform) DetailURL(jobID string) string {
	switch p {
	case PlatformJobsDB:
		return "https://hk.jobsdb.com/job/" + jobID
	case PlatformLinkedIn:
		return "https://www.linkedin.com/jobs/view/" + jobID
	default:
		return ""
	}
}

// NotAvailable is the sentinel for listing fields the board did not provide.
// Missing fields always carry it; they are never silently omitted.
const NotAvailable = "N/A"

// JobSummary is one lightweight listing result. JobID and Platform are always
// set; every other field holds NotAvailable when the board left it out. IDs
// are unique within one batch's platform only; duplicates across pages are
// possible and acceptable.
type JobSummary struct {
	JobID    string   `json:"job_id"`
	Platform Platform `json:"platform"`
	Title    string   `json:"title"`
	Company  string   `json:"company"`
	Location string   `json:"location"`
	Posted   string   `json:"posted_date"`
	URL      string   `json:"url"`

	// JobsDB enriches listings with extra advertising fields.
	Advertiser     string   `json:"advertiser,omitempty"`
	Salary         string   `json:"salary,omitempty"`
	Classification string   `json:"classification,omitempty"`
	Teaser         string   `json:"teaser,omitempty"`
	Highlights     []string `json:"highlights,omitempty"`
}

// Render produces the human-readable form of a batch, derivable
// deterministically from the structured summaries.
func Render(jobs []JobSummary) string {
	if len(jobs) == 0 {
		return "No jobs found."
	}

	var b strings.Builder
	for idx, job := range jobs {
		fmt.Fprintf(&b, "Job #%d — ID: %s\n", idx+1, job.JobID)
		fmt.Fprintf(&b, "Platform : %s\n", job.Platform)
		fmt.Fprintf(&b, "Title    : %s\n", job.Title)
		fmt.Fprintf(&b, "Company  : %s\n", job.Company)
		if job.Advertiser != "" {
			fmt.Fprintf(&b, "Advert.  : %s\n", job.Advertiser)
		}
		fmt.Fprintf(&b, "Location : %s\n", job.Location)
		fmt.Fprintf(&b, "Posted   : %s\n", job.Posted)
		if job.Salary != "" {
			fmt.Fprintf(&b, "Salary   : %s\n", job.Salary)
		}
		if job.Classification != "" {
			fmt.Fprintf(&b, "Class.   : %s\n", job.Classification)
		}
		if job.Teaser != "" {
			fmt.Fprintf(&b, "Teaser   : %s\n", job.Teaser)
		}
		if len(job.Highlights) > 0 {
			b.WriteString("Highlights:\n")
			for _, highlight := range job.Highlights {
				fmt.Fprintf(&b, "  - %s\n", highlight)
			}
		}
		fmt.Fprintf(&b, "URL      : %s\n", job.URL)
		b.WriteString(strings.Repeat("=", 50) + "\n")
	}

	return b.String()
}

// SearchErrorKind classifies a listing search failure.
type SearchErrorKind int

const (
	// SearchTransport covers timeouts and network-layer failures against the
	// board's endpoint.
	SearchTransport SearchErrorKind = iota + 1
	// SearchMalformed means the board's response could not be decoded.
	SearchMalformed
)

func (k SearchErrorKind) String() string {
	switch k {
	case SearchTransport:
		return "transport"
	case SearchMalformed:
		return "malformed_response"
	default:
		return "unknown"
	}
}

// SearchError is the typed failure returned by the listing adapters.
type SearchError struct {
	Kind     SearchErrorKind
	Platform Platform
	Err      error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("%s search: %s: %v", e.Platform, e.Kind, e.Err)
}

func (e *SearchError) Unwrap() error { return e.Err }
