package scrape

import (
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// TruncationMarker is appended whenever normalized text is cut to the
// configured budget, so downstream consumers can tell extraction was partial.
const TruncationMarker = "\n... [Content Truncated]"

// ErrEmptyContent reports a page that stripped down to nothing: reachable,
// but with no text worth sending to the model.
var ErrEmptyContent = errors.New("no text content after stripping")

// Subtrees that carry chrome rather than content.
const strippedSelector = "script, style, noscript, header, footer, nav, aside"

// Normalize strips non-content elements from raw HTML and flattens what is
// left to a newline-joined, whitespace-collapsed text blob. Text longer than
// maxChars runes is truncated to exactly that prefix plus TruncationMarker;
// maxChars <= 0 disables the budget.
func Normalize(rawHTML string, maxChars int) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", err
	}

	doc.Find(strippedSelector).Remove()

	var lines []string
	for _, node := range doc.Nodes {
		collectText(node, &lines)
	}

	text := strings.Join(lines, "\n")
	if text == "" {
		return "", ErrEmptyContent
	}

	return Truncate(text, maxChars), nil
}

// Truncate bounds text to maxChars runes, appending TruncationMarker when the
// budget is exceeded. The kept prefix is byte-identical to the input.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars]) + TruncationMarker
}

// collectText walks the node tree in document order, appending one collapsed
// line per non-empty text node.
func collectText(node *html.Node, lines *[]string) {
	if node.Type == html.TextNode {
		if line := strings.Join(strings.Fields(node.Data), " "); line != "" {
			*lines = append(*lines, line)
		}
		return
	}

	for child := node.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, lines)
	}
}
