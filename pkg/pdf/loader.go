package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lpdf "github.com/ledongthuc/pdf"

	"pdfchat-be/pkg/rag"
)

// Page is the extracted plain text of one PDF page. Number is 1-based.
type Page struct {
	Number int
	Text   string
}

// Loader turns a file on disk into page text.
type Loader interface {
	Load(ctx context.Context, path string) ([]Page, error)
}

type PlainTextLoader struct{}

func NewLoader() *PlainTextLoader {
	return &PlainTextLoader{}
}

// Load extracts the text of every page. Pages with no text are skipped, and a
// document with no text at all is a load error.
func (l *PlainTextLoader) Load(ctx context.Context, path string) (pages []Page, err error) {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return nil, &rag.DocumentLoadError{Path: path, Reason: "file is not a PDF"}
	}
	if _, statErr := os.Stat(path); statErr != nil {
		return nil, &rag.DocumentLoadError{Path: path, Reason: "file not found", Err: statErr}
	}

	// the parser panics on some malformed xref tables
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = &rag.DocumentLoadError{Path: path, Reason: "malformed PDF", Err: fmt.Errorf("%v", r)}
		}
	}()

	f, reader, openErr := lpdf.Open(path)
	if openErr != nil {
		return nil, &rag.DocumentLoadError{Path: path, Reason: "unreadable PDF", Err: openErr}
	}
	defer f.Close()

	total := reader.NumPage()
	for i := 1; i <= total; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		p := reader.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, textErr := p.GetPlainText(nil)
		if textErr != nil {
			return nil, &rag.DocumentLoadError{Path: path, Reason: fmt.Sprintf("failed to read page %d", i), Err: textErr}
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		pages = append(pages, Page{Number: i, Text: text})
	}

	if len(pages) == 0 {
		return nil, &rag.DocumentLoadError{Path: path, Reason: "no extractable text"}
	}
	return pages, nil
}
