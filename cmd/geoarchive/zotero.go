package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/geoarchive/geoarchive/internal/clipboard"
	"github.com/geoarchive/geoarchive/internal/journal"
	"github.com/geoarchive/geoarchive/internal/permalink"
	"github.com/geoarchive/geoarchive/internal/updater"
	"github.com/geoarchive/geoarchive/internal/zotero"
)

var (
	updateItemType string
	updatePageSize int
	updateJournal  string
	reportURLCopy  bool
)

var zoteroCmd = &cobra.Command{
	Use:   "zotero",
	Short: "Zotero library commands",
	Long: `Commands for the GeoArchive Zotero group library.

Environment Variables:
  ZOTERO_API_KEY     Zotero API key with write access (required)
  ZOTERO_LIBRARY_ID  Group library id (default 4530692)`,
}

var updateURLsCmd = &cobra.Command{
	Use:   "update-urls",
	Short: "Point every item's url at its w3id.org permanent identifier",
	Long: `Pages through the library and writes https://w3id.org/usgs/z/<library>/<key>
into the url field of every matching item, one batch of at most 50 per page.

Pages are processed strictly in sequence. A batch Zotero refuses is logged
and counted and the run continues; a network or service error stops the run.`,
	Args: cobra.NoArgs,
	RunE: runUpdateURLs,
}

var reportURLCmd = &cobra.Command{
	Use:   "report-url <library-id> <key>",
	Short: "Print the permanent identifier URL of an item",
	Args:  cobra.ExactArgs(2),
	RunE:  runReportURL,
}

var runInfoCmd = &cobra.Command{
	Use:   "run <run-id>",
	Short: "Show a journaled update-urls run and its refused batches",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunInfo,
}

func init() {
	updateURLsCmd.Flags().StringVar(&updateItemType, "item-type", updater.DefaultItemType, "Item type to update")
	updateURLsCmd.Flags().IntVar(&updatePageSize, "page-size", zotero.MaxPageSize, "Items per page (1-50)")
	updateURLsCmd.Flags().StringVar(&updateJournal, "journal", "", "Record batches in this SQLite journal")
	reportURLCmd.Flags().BoolVar(&reportURLCopy, "copy", false, "Also copy the URL to the clipboard")
	runInfoCmd.Flags().StringVar(&updateJournal, "journal", "", "SQLite journal to read")

	zoteroCmd.AddCommand(updateURLsCmd, reportURLCmd, runInfoCmd)
	rootCmd.AddCommand(zoteroCmd)
}

// UpdateURLsResponse is the output of update-urls.
type UpdateURLsResponse struct {
	RunID     string         `json:"run_id,omitempty"`
	Result    updater.Result `json:"result"`
	Confirmed int            `json:"confirmed"`
}

func newZoteroClient() (*zotero.Client, error) {
	if err := cfg.RequireZotero(); err != nil {
		return nil, err
	}
	return zotero.NewClient(cfg.Zotero.LibraryID, cfg.Zotero.APIKey,
		zotero.WithLibraryType(cfg.Zotero.LibraryType),
	), nil
}

func journalPath() string {
	if updateJournal != "" {
		return updateJournal
	}
	return cfg.JournalPath
}

func runUpdateURLs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	client, err := newZoteroClient()
	if err != nil {
		return err
	}

	opts := []updater.Option{
		updater.WithItemType(updateItemType),
		updater.WithPageSize(updatePageSize),
		updater.WithLibraryID(client.LibraryID()),
		updater.WithLogger(log),
	}

	var run *journal.Run
	if path := journalPath(); path != "" {
		j, err := journal.Open(path)
		if err != nil {
			return err
		}
		defer j.Close()

		run, err = j.StartRun(ctx, client.LibraryID(), updateItemType)
		if err != nil {
			return err
		}
		opts = append(opts, updater.WithRecorder(run))
	}

	u, err := updater.New(zotero.NewCollection(client, log), opts...)
	if err != nil {
		return err
	}

	res, runErr := u.Run(ctx)
	if run != nil {
		if err := run.Finish(context.WithoutCancel(ctx), res.Total); err != nil {
			log.Warn().Err(err).Msg("finishing journal run")
		}
	}
	if runErr != nil {
		log.Error().
			Int("pages", res.Pages).
			Int("total", res.Total).
			Msg("update stopped")
		return runErr
	}

	resp := UpdateURLsResponse{Result: res, Confirmed: res.Confirmed()}
	if run != nil {
		resp.RunID = run.ID
	}
	return output(resp, func() {
		outputHuman("Updated %d items over %d pages", res.Total, res.Pages)
		if res.FailedBatches > 0 {
			outputHuman(" (%d batches with %d items refused)", res.FailedBatches, res.FailedItems)
		}
		outputHuman("\n")
		if resp.RunID != "" {
			outputHuman("Journal run: %s\n", resp.RunID)
		}
	})
}

// ReportURLResponse is the output of report-url.
type ReportURLResponse struct {
	URL    string `json:"url"`
	Copied bool   `json:"copied,omitempty"`
}

func runReportURL(cmd *cobra.Command, args []string) error {
	resp := ReportURLResponse{URL: permalink.ZoteroItem(args[0], args[1])}

	if reportURLCopy {
		if err := clipboard.Copy(cmd.Context(), resp.URL); err != nil {
			log.Warn().Err(err).Msg("url not copied")
		} else {
			resp.Copied = true
		}
	}

	return output(resp, func() {
		outputHuman("%s\n", resp.URL)
	})
}

// RunInfoResponse is the output of zotero run.
type RunInfoResponse struct {
	Run     *journal.RunInfo `json:"run"`
	Refused []journal.Batch  `json:"refused"`
}

func runRunInfo(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	path := journalPath()
	if path == "" {
		return fmt.Errorf("no journal: pass --journal or set GEOARCHIVE_JOURNAL")
	}
	j, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer j.Close()

	info, err := j.GetRun(ctx, args[0])
	if err != nil {
		return err
	}
	if info == nil {
		return fmt.Errorf("run %s not found in %s", args[0], path)
	}
	refused, err := j.FailedBatches(ctx, args[0])
	if err != nil {
		return err
	}

	return output(RunInfoResponse{Run: info, Refused: refused}, func() {
		outputHuman("Run %s (library %s, %s)\n", info.ID, info.LibraryID, info.ItemType)
		outputHuman("  Started: %s\n", info.StartedAt.Format("2006-01-02 15:04:05"))
		if info.FinishedAt != nil {
			outputHuman("  Finished: %s, %d items\n", info.FinishedAt.Format("2006-01-02 15:04:05"), info.Total)
		}
		for _, b := range refused {
			outputHuman("  Refused: page %d (%d items)\n", b.Page, b.Items)
		}
	})
}
