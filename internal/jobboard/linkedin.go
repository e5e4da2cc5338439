package jobboard

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/jchau/jobmatch/internal/scrape"
)

const (
	linkedinGuestURL   = "https://www.linkedin.com/jobs-guest/jobs/api/seeMoreJobPostings/search"
	linkedinListingURL = "https://hk.linkedin.com/jobs/view/"

	linkedinDefaultResults = 25
)

// LinkedIn paginates the unauthenticated "see more postings" endpoint. Guest
// access is flaky; this adapter degrades to a partial or empty list rather
// than failing the batch when the markup runs thin.
type LinkedIn struct {
	fetcher  *scrape.Fetcher
	GuestURL string
	logger   *zap.Logger
}

func NewLinkedIn(fetcher *scrape.Fetcher, logger *zap.Logger) *LinkedIn {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LinkedIn{
		fetcher:  fetcher,
		GuestURL: linkedinGuestURL,
		logger:   logger,
	}
}

// Search accumulates listing cards page by page until numResults are
// collected or a page returns zero cards. Cards without an extractable id are
// skipped individually.
func (c *LinkedIn) Search(ctx context.Context, keywords, location string, numResults int) ([]JobSummary, error) {
	if numResults <= 0 {
		numResults = linkedinDefaultResults
	}

	jobs := make([]JobSummary, 0, numResults)

	for len(jobs) < numResults {
		q := url.Values{}
		q.Set("keywords", keywords)
		q.Set("location", location)
		q.Set("start", strconv.Itoa(len(jobs)))

		pageURL := c.GuestURL + "?" + q.Encode()

		page, err := c.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			return jobs, &SearchError{Kind: SearchTransport, Platform: PlatformLinkedIn, Err: err}
		}

		batch, cards, err := parseLinkedInCards(page.Body)
		if err != nil {
			return jobs, &SearchError{Kind: SearchMalformed, Platform: PlatformLinkedIn, Err: err}
		}

		c.logger.Debug("linkedin page parsed",
			zap.Int("cards", cards),
			zap.Int("extracted", len(batch)),
			zap.Int("start", len(jobs)),
		)

		if cards == 0 {
			break
		}

		jobs = append(jobs, batch...)

		// A page full of cards none of which carried an id would loop
		// forever on the same offset.
		if len(batch) == 0 {
			break
		}
	}

	if len(jobs) > numResults {
		jobs = jobs[:numResults]
	}

	c.logger.Info("linkedin search completed",
		zap.String("keywords", keywords),
		zap.Int("results", len(jobs)),
	)

	return jobs, nil
}

// parseLinkedInCards pulls listing summaries out of one guest result page,
// returning the total card count so the caller can tell "empty page" apart
// from "cards present but unusable".
func parseLinkedInCards(body []byte) ([]JobSummary, int, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}

	var jobs []JobSummary
	cards := doc.Find("li")

	cards.Each(func(_ int, card *goquery.Selection) {
		id, err := linkedinJobID(card)
		if err != nil {
			return // skip this card, not the batch
		}

		jobs = append(jobs, JobSummary{
			JobID:    id,
			Platform: PlatformLinkedIn,
			Title:    cardText(card, "span.sr-only"),
			Company:  cardText(card, "a.hidden-nested-link"),
			Location: cardText(card, "span.job-search-card__location"),
			Posted:   cardText(card, "time.job-search-card__listdate"),
			URL:      linkedinListingURL + id,
		})
	})

	return jobs, cards.Length(), nil
}

// linkedinJobID digs the numeric id out of the card's entity URN,
// e.g. "urn:li:jobPosting:3881234567".
func linkedinJobID(card *goquery.Selection) (string, error) {
	urn, ok := card.Find("div.base-card").Attr("data-entity-urn")
	if !ok {
		return "", errors.New("card has no data-entity-urn")
	}

	segments := strings.Split(urn, ":")
	if len(segments) < 4 || strings.TrimSpace(segments[3]) == "" {
		return "", errors.New("entity urn has no job id segment")
	}

	return strings.TrimSpace(segments[3]), nil
}

func cardText(card *goquery.Selection, selector string) string {
	text := strings.TrimSpace(card.Find(selector).First().Text())
	if text == "" {
		return NotAvailable
	}
	return text
}
