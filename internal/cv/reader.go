// Package cv loads candidate CV text from DOCX files.
package cv

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

// ErrNoParagraphs marks a file that opened fine but yielded no text. Kept
// distinct from an unreadable file so callers can report it separately.
var ErrNoParagraphs = errors.New("cv contains no paragraphs")

// ErrUnsupportedFormat rejects anything that is not a .docx file.
var ErrUnsupportedFormat = errors.New("unsupported cv format, expected .docx")

// Read flattens the DOCX paragraphs at path into newline-joined plain text.
func Read(path string) (string, error) {
	if !strings.EqualFold(filepath.Ext(path), ".docx") {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	reader, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", fmt.Errorf("reading cv file %s: %w", path, err)
	}
	defer reader.Close()

	return flatten(reader.Editable().GetContent())
}

// ReadBytes is the upload-oriented variant. The filename is only used for
// the extension check and diagnostics.
func ReadBytes(data []byte, filename string) (string, error) {
	if !strings.EqualFold(filepath.Ext(filename), ".docx") {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}

	reader, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("reading cv upload %s: %w", filename, err)
	}
	defer reader.Close()

	return flatten(reader.Editable().GetContent())
}

// flatten strips the WordprocessingML markup down to paragraph text,
// one line per <w:p> element.
func flatten(content string) (string, error) {
	var (
		lines     []string
		line      strings.Builder
		inTag     bool
		inPara    bool
		sawPara   bool
		tagBuffer strings.Builder
	)

	flush := func() {
		text := strings.TrimSpace(line.String())
		line.Reset()
		if text != "" {
			lines = append(lines, text)
		}
	}

	for _, r := range content {
		switch {
		case r == '<':
			inTag = true
			tagBuffer.Reset()
		case r == '>':
			inTag = false
			tag := tagBuffer.String()
			switch {
			case strings.HasPrefix(tag, "w:p ") || tag == "w:p":
				inPara = true
				sawPara = true
			case tag == "/w:p":
				inPara = false
				flush()
			}
		case inTag:
			tagBuffer.WriteRune(r)
		case inPara:
			line.WriteRune(r)
		}
	}
	flush()

	if !sawPara || len(lines) == 0 {
		return "", ErrNoParagraphs
	}

	return unescapeXML(strings.Join(lines, "\n")), nil
}

var xmlEntities = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
	"&amp;", "&",
)

func unescapeXML(s string) string {
	return xmlEntities.Replace(s)
}
