package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/rapidreach/lead-finder/internal/model"
)

var discoverFlags struct {
	city          string
	types         []string
	radiusKM      int
	maxResults    int
	minRating     float64
	includeChains bool
	callbackURL   string
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Run one lead discovery pass and print the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), "discover")
		if err != nil {
			return err
		}
		defer env.Close()

		req := model.FindLeadsRequest{
			City:          discoverFlags.city,
			BusinessTypes: discoverFlags.types,
			RadiusKM:      discoverFlags.radiusKM,
			MaxResults:    discoverFlags.maxResults,
			MinRating:     discoverFlags.minRating,
			CallbackURL:   discoverFlags.callbackURL,
		}
		if discoverFlags.includeChains {
			f := false
			req.ExcludeChains = &f
		}

		resp, err := env.Agent.Run(cmd.Context(), req)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	},
}

func init() {
	discoverCmd.Flags().StringVar(&discoverFlags.city, "city", "", "city to search (required)")
	discoverCmd.Flags().StringSliceVar(&discoverFlags.types, "types", nil, "business types to search")
	discoverCmd.Flags().IntVar(&discoverFlags.radiusKM, "radius-km", 0, "search radius in km")
	discoverCmd.Flags().IntVar(&discoverFlags.maxResults, "max-results", 0, "max leads per run")
	discoverCmd.Flags().Float64Var(&discoverFlags.minRating, "min-rating", 0, "minimum rating filter")
	discoverCmd.Flags().BoolVar(&discoverFlags.includeChains, "include-chains", false, "keep chain businesses")
	discoverCmd.Flags().StringVar(&discoverFlags.callbackURL, "callback", "", "progress event callback URL")
	discoverCmd.MarkFlagRequired("city") //nolint:errcheck
	rootCmd.AddCommand(discoverCmd)
}
