package cv

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const documentRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	files := map[string]string{
		"[Content_Types].xml":          contentTypesXML,
		"word/_rels/document.xml.rels": documentRelsXML,
		"word/document.xml":            documentXML,
	}
	for name, body := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("zip.Create(%s): %v", name, err)
		}
		if _, err := f.Write([]byte(body)); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	return buf.Bytes()
}

const twoParagraphDoc = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Jane Chan</w:t></w:r></w:p>
    <w:p><w:r><w:t>Senior Go developer, 8 years.</w:t></w:r></w:p>
  </w:body>
</w:document>`

func TestReadBytesFlattensParagraphs(t *testing.T) {
	data := buildDocx(t, twoParagraphDoc)

	text, err := ReadBytes(data, "cv.docx")
	if err != nil {
		t.Fatalf("ReadBytes() error = %v", err)
	}
	want := "Jane Chan\nSenior Go developer, 8 years."
	if text != want {
		t.Errorf("ReadBytes() = %q, want %q", text, want)
	}
}

func TestReadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cv.docx")
	if err := os.WriteFile(path, buildDocx(t, twoParagraphDoc), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	text, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if text == "" {
		t.Fatalf("Read() returned empty text")
	}
}

func TestReadBytesNoParagraphs(t *testing.T) {
	empty := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body></w:body>
</w:document>`
	data := buildDocx(t, empty)

	_, err := ReadBytes(data, "cv.docx")
	if !errors.Is(err, ErrNoParagraphs) {
		t.Fatalf("ReadBytes() error = %v, want ErrNoParagraphs", err)
	}
}

func TestReadBytesWrongExtension(t *testing.T) {
	_, err := ReadBytes([]byte("plain text"), "cv.pdf")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("ReadBytes() error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestReadBytesUnreadableFile(t *testing.T) {
	_, err := ReadBytes([]byte("not a zip archive"), "cv.docx")
	if err == nil {
		t.Fatalf("ReadBytes() error = nil, want unreadable-file error")
	}
	if errors.Is(err, ErrNoParagraphs) {
		t.Fatalf("ReadBytes() error = ErrNoParagraphs, want a distinct unreadable error")
	}
}

func TestFlattenUnescapesEntities(t *testing.T) {
	doc := `<w:document><w:body><w:p><w:r><w:t>R&amp;D engineer &lt;backend&gt;</w:t></w:r></w:p></w:body></w:document>`
	data := buildDocx(t, doc)

	text, err := ReadBytes(data, "cv.docx")
	if err != nil {
		t.Fatalf("ReadBytes() error = %v", err)
	}
	if text != "R&D engineer <backend>" {
		t.Errorf("ReadBytes() = %q, want entities unescaped", text)
	}
}
