package main

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/geoarchive/geoarchive/internal/geokb"
)

var geokbCmd = &cobra.Command{
	Use:   "geokb",
	Short: "GeoKB knowledge graph commands",
}

var geokbLookupCmd = &cobra.Command{
	Use:       "lookup commodities|places",
	Short:     "List the reference entities reports are linked to",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"commodities", "places"},
	RunE:      runGeoKBLookup,
}

func init() {
	geokbCmd.AddCommand(geokbLookupCmd)
	rootCmd.AddCommand(geokbCmd)
}

func runGeoKBLookup(cmd *cobra.Command, args []string) error {
	if err := cfg.RequireGeoKB(); err != nil {
		return err
	}
	client := geokb.NewClient(cfg.GeoKB.SPARQLEndpoint, cfg.GeoKB.UserAgent)

	var lookup map[string]string
	var err error
	switch args[0] {
	case "commodities":
		lookup, err = geokb.CommodityLookup(cmd.Context(), client)
	case "places":
		lookup, err = geokb.PlaceLookup(cmd.Context(), client)
	default:
		return fmt.Errorf("unknown lookup %q", args[0])
	}
	if err != nil {
		return err
	}

	return output(lookup, func() {
		for _, label := range slices.Sorted(maps.Keys(lookup)) {
			outputHuman("%s\t%s\n", label, lookup[label])
		}
	})
}
