package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"ragqa/internal/render"
)

var statsJSON bool

// pathReporter is implemented by indexes stored in a local file.
type pathReporter interface {
	Path() string
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show what the index contains",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := assemble(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer c.close()

		stats, err := c.svc.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("stats failed: %w", err)
		}
		if statsJSON {
			data, err := json.MarshalIndent(stats, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal stats: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), render.New(cmd.OutOrStdout()).Stats(stats))
		if p, ok := c.index.(pathReporter); ok {
			fmt.Fprintf(cmd.OutOrStdout(), "  index:   %s\n", p.Path())
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output stats as JSON")
	rootCmd.AddCommand(statsCmd)
}
