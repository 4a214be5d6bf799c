package main

import (
	"github.com/spf13/cobra"

	"github.com/geoarchive/geoarchive/internal/geokb"
	"github.com/geoarchive/geoarchive/internal/ni43101"
	"github.com/geoarchive/geoarchive/internal/sciencebase"
)

var (
	ni43101Dropbox string
	ni43101Archive string
	ni43101Cache   string
)

var ni43101Cmd = &cobra.Command{
	Use:   "ni43101",
	Short: "NI 43-101 technical report commands",
}

var ni43101ProcessCmd = &cobra.Command{
	Use:   "process",
	Short: "Archive every report in the ScienceBase dropbox",
	Long: `Processes each SEDAR+ PDF attached to the dropbox item: builds its schema.org
description, extracts page text to parquet, creates a file archive item under
the archive parent and records the report in Zotero.

GeoKB linking of places and commodities is skipped with a warning when the
GeoKB is not configured or not reachable.

Environment Variables:
  SB_ACCESS_TOKEN, SB_REFRESH_TOKEN  ScienceBase session (required)
  ZOTERO_API_KEY                     Zotero API key (required)
  WB_SPARQL_ENDPOINT, WB_BOT_*       GeoKB access (optional)`,
	Args: cobra.NoArgs,
	RunE: runNI43101Process,
}

func init() {
	ni43101ProcessCmd.Flags().StringVar(&ni43101Dropbox, "dropbox", "", "Dropbox item id (default from config)")
	ni43101ProcessCmd.Flags().StringVar(&ni43101Archive, "archive", "", "File archive parent item id (default from config)")
	ni43101ProcessCmd.Flags().StringVar(&ni43101Cache, "cache", "", "Working directory for downloads (default from config)")

	ni43101Cmd.AddCommand(ni43101ProcessCmd)
	rootCmd.AddCommand(ni43101Cmd)
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

// loadGeoKBRef returns the reference lookups, or nil when the GeoKB cannot
// be used.
func loadGeoKBRef(cmd *cobra.Command) *geokb.Ref {
	if err := cfg.RequireGeoKB(); err != nil {
		log.Warn().Err(err).Msg("GeoKB not configured, reports will not be linked")
		return nil
	}
	client := geokb.NewClient(cfg.GeoKB.SPARQLEndpoint, cfg.GeoKB.UserAgent)
	return ni43101.LoadRef(cmd.Context(), client, log)
}

func runNI43101Process(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if err := cfg.RequireScienceBase(); err != nil {
		return err
	}
	zot, err := newZoteroClient()
	if err != nil {
		return err
	}

	var sbOpts []sciencebase.ClientOption
	if cfg.ScienceBase.BaseURL != "" {
		sbOpts = append(sbOpts, sciencebase.WithBaseURL(cfg.ScienceBase.BaseURL))
	}
	sb := sciencebase.NewClient(sciencebase.Token{
		AccessToken:  cfg.ScienceBase.AccessToken,
		RefreshToken: cfg.ScienceBase.RefreshToken,
	}, sbOpts...)
	if err := sb.Login(ctx); err != nil {
		return err
	}

	p := ni43101.NewProcessor(sb, zot,
		ni43101.WithRef(loadGeoKBRef(cmd)),
		ni43101.WithDropboxItemID(orDefault(ni43101Dropbox, cfg.NI43101.DropboxItemID)),
		ni43101.WithArchiveItemID(orDefault(ni43101Archive, cfg.NI43101.FileArchiveItemID)),
		ni43101.WithCachePath(orDefault(ni43101Cache, cfg.CachePath)),
		ni43101.WithLogger(log),
	)

	results, runErr := p.Run(ctx)
	if err := output(results, func() {
		for _, r := range results {
			outputHuman("%s  %s  %s\n", r.FilingID, r.ArchiveItemID, r.URL)
		}
	}); err != nil {
		return err
	}
	return runErr
}
