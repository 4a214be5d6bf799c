package main

import (
	"github.com/spf13/cobra"

	"github.com/geoarchive/geoarchive/internal/pagetext"
	"github.com/geoarchive/geoarchive/internal/textmine"
)

var checksumType string

var checksumCmd = &cobra.Command{
	Use:   "checksum <file>",
	Short: "Print a file's md5 or sha256 digest",
	Args:  cobra.ExactArgs(1),
	RunE:  runChecksum,
}

var pagesCmd = &cobra.Command{
	Use:   "pages <pdf> <out.parquet>",
	Short: "Extract per-page text from a PDF into a parquet file",
	Args:  cobra.ExactArgs(2),
	RunE:  runPages,
}

func init() {
	checksumCmd.Flags().StringVar(&checksumType, "type", textmine.SHA256, "Digest type (sha256 or md5)")
	rootCmd.AddCommand(checksumCmd, pagesCmd)
}

// ChecksumResponse is the output of checksum.
type ChecksumResponse struct {
	Path     string `json:"path"`
	Type     string `json:"type"`
	Checksum string `json:"checksum"`
}

func runChecksum(cmd *cobra.Command, args []string) error {
	sum, err := textmine.Checksum(args[0], checksumType)
	if err != nil {
		return err
	}
	resp := ChecksumResponse{Path: args[0], Type: checksumType, Checksum: sum}
	return output(resp, func() {
		outputHuman("%s  %s\n", sum, args[0])
	})
}

// PagesResponse is the output of pages.
type PagesResponse struct {
	Source string `json:"source"`
	SHA256 string `json:"sha256"`
	Output string `json:"output"`
	Pages  int    `json:"pages"`
	Blank  int    `json:"blank"`
}

func runPages(cmd *cobra.Command, args []string) error {
	src, dst := args[0], args[1]

	sum, err := textmine.Checksum(src, textmine.SHA256)
	if err != nil {
		return err
	}
	pages, err := pagetext.Extract(src, sum)
	if err != nil {
		return err
	}
	if err := pagetext.WriteParquet(dst, pages); err != nil {
		return err
	}

	resp := PagesResponse{Source: src, SHA256: sum, Output: dst, Pages: len(pages)}
	for _, p := range pages {
		if p.Content == "" {
			resp.Blank++
		}
	}
	log.Debug().Str("source", src).Int("pages", resp.Pages).Msg("extracted page text")

	return output(resp, func() {
		outputHuman("Wrote %d pages (%d blank) to %s\n", resp.Pages, resp.Blank, dst)
	})
}
