package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akolanti/LibraryRAG/internal/config"
	"github.com/akolanti/LibraryRAG/internal/domain/commonModels"
	"github.com/akolanti/LibraryRAG/internal/domain/ragErrors"
	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"
)

type rawPage struct {
	Number  int    `json:"number"`
	Content string `json:"content"`
}

// Extracted keeps the pages as the parser returned them; Text() is the normalized form that gets chunked.
type Extracted struct {
	Type  commonModels.DocType
	Pages []rawPage
}

func (e Extracted) Text() string {
	var b strings.Builder
	for _, p := range e.Pages {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(normalizeWhitespace(p.Content))
	}
	return strings.TrimSpace(b.String())
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func getDocType(data []byte) commonModels.DocType {
	switch {
	case len(data) == 0:
		return commonModels.ERR
	case bytes.HasPrefix(bytes.TrimLeft(data[:min(len(data), 1024)], "\x00\r\n\t "), []byte("%PDF-")):
		return commonModels.PDF
	default:
		return commonModels.DOCX
	}
}

// ExtractText parses document bytes. Any failure is an *ragErrors.ExtractionError and ends that document's ingestion.
func ExtractText(data []byte) (Extracted, error) {
	docType := getDocType(data)

	var pages []rawPage
	var err error
	switch docType {
	case commonModels.PDF:
		pages, err = extractPDF(data)
	case commonModels.DOCX:
		pages, err = extractDocxTxtRtf(data)
	default:
		return Extracted{}, &ragErrors.ExtractionError{Reason: "empty document"}
	}
	if err != nil {
		return Extracted{}, err
	}

	out := Extracted{Type: docType, Pages: pages}
	if out.Text() == "" {
		return Extracted{}, &ragErrors.ExtractionError{Reason: "document contains no extractable text"}
	}
	return out, nil
}

func extractPDF(data []byte) (pages []rawPage, err error) {
	// the parser panics on some malformed streams
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = &ragErrors.ExtractionError{Reason: "malformed pdf", Err: fmt.Errorf("%v", r)}
		}
	}()

	f, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &ragErrors.ExtractionError{Reason: "failed to open pdf", Err: err}
	}

	numPages := f.NumPage()
	logger.Debug("extractPDF", "number of pages", numPages)
	for i := 1; i <= numPages; i++ {
		page := f.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := protectExtract(page)
		if err != nil {
			// one unreadable page does not sink the document
			logger.Warn("Error parsing page content", "page", i, "error", err)
			continue
		}

		pages = append(pages, rawPage{
			Number:  i,
			Content: content,
		})
	}
	if len(pages) == 0 {
		return nil, &ragErrors.ExtractionError{Reason: "no readable pages"}
	}
	return pages, nil
}

// docx, odt, rtf or plain text; the library sniffs the format from the bytes
func extractDocxTxtRtf(data []byte) ([]rawPage, error) {
	text, err := cat.FromBytes(data)
	if err != nil {
		return nil, &ragErrors.ExtractionError{Reason: "unsupported or unreadable document", Err: err}
	}

	// page boundaries are not exposed for these formats
	return []rawPage{{Number: 1, Content: text}}, nil
}

func protectExtract(page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resChan <- result{"", fmt.Errorf("page parser panic: %v", r)}
			}
		}()
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-time.After(config.PageExtractTimeout):
		return "", errors.New("page extraction timeout")
	}
}
