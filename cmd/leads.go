package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var leadsFlags struct {
	city      string
	limit     int
	noWebsite bool
}

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "List persisted leads",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), "discover")
		if err != nil {
			return err
		}
		defer env.Close()

		query := env.Store.QueryLeads
		if leadsFlags.noWebsite {
			query = env.Store.QueryNoWebsiteLeads
		}

		leads, err := query(cmd.Context(), leadsFlags.city, leadsFlags.limit)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(leads)
	},
}

func init() {
	leadsCmd.Flags().StringVar(&leadsFlags.city, "city", "", "filter by city")
	leadsCmd.Flags().IntVar(&leadsFlags.limit, "limit", 100, "max rows")
	leadsCmd.Flags().BoolVar(&leadsFlags.noWebsite, "no-website", false, "list the priority no-website leads, best-rated first")
	rootCmd.AddCommand(leadsCmd)
}
