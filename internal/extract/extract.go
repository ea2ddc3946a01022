package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pkg/errors"
)

var ErrUnsupportedType = errors.New("unsupported file type")

// TextExtractor turns an uploaded document into plain text based on its extension.
type TextExtractor struct{}

func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

func (e *TextExtractor) Extract(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", errors.Wrapf(err, "reading %s", filepath.Base(path))
		}
		return string(data), nil
	case ".json":
		return fromJSON(path)
	case ".docx":
		return fromDocx(path)
	case ".pdf":
		return fromPDF(path)
	default:
		return "", errors.Wrapf(ErrUnsupportedType, "%s", filepath.Ext(path))
	}
}

func fromJSON(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "reading %s", filepath.Base(path))
	}

	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		return "", errors.Wrapf(err, "parsing %s", filepath.Base(path))
	}
	return out.String(), nil
}

// fromPDF reports malformed documents as errors; the pdf reader panics on them.
func fromPDF(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", errors.Errorf("malformed pdf %s: %v", filepath.Base(path), r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "opening %s", filepath.Base(path))
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", errors.Wrapf(err, "reading text of %s", filepath.Base(path))
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", errors.Wrapf(err, "reading text of %s", filepath.Base(path))
	}
	return buf.String(), nil
}

// fromDocx reads word/document.xml and keeps one line per paragraph.
func fromDocx(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", errors.Wrapf(err, "opening %s", filepath.Base(path))
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", errors.Wrapf(err, "opening document of %s", filepath.Base(path))
		}
		defer rc.Close()
		return paragraphs(rc)
	}

	return "", errors.Errorf("%s has no word/document.xml", filepath.Base(path))
}

func paragraphs(r io.Reader) (string, error) {
	var (
		lines   []string
		current strings.Builder
		inText  bool
	)

	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", errors.Wrap(err, "decoding document")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				current.WriteString("\t")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				lines = append(lines, current.String())
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}

	return strings.Join(lines, "\n"), nil
}
