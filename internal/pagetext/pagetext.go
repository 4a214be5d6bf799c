// Package pagetext extracts per-page text from report PDFs and stores it as
// parquet so later extraction work can reuse it without reparsing the PDF.
package pagetext

import (
	"fmt"
	"time"

	"github.com/ledongthuc/pdf"
)

// Page is the text content of one PDF page.
type Page struct {
	PageNum   int    `json:"page_num" parquet:"page_num"`
	Timestamp string `json:"timestamp" parquet:"timestamp"`
	SHA256    string `json:"sha256" parquet:"sha256"`
	Content   string `json:"page_content" parquet:"page_content"`
}

// Extract reads every page of the PDF at path. sha256 is the checksum of the
// source file and is stamped on every page. Pages without text have empty
// Content; pages the reader cannot decode are kept with empty Content so page
// numbers stay aligned with the PDF.
func Extract(path, sha256 string) ([]Page, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()

	n := r.NumPage()
	pages := make([]Page, 0, n)
	for i := 1; i <= n; i++ {
		p := Page{
			PageNum:   i,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			SHA256:    sha256,
		}

		page := r.Page(i)
		if !page.V.IsNull() {
			if text, err := page.GetPlainText(nil); err == nil {
				p.Content = text
			}
		}
		pages = append(pages, p)
	}

	return pages, nil
}

// Contents returns the text of each page in order.
func Contents(pages []Page) []string {
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = p.Content
	}
	return out
}
