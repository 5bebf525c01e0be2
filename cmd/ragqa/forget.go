package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// sourceDeleter is implemented by indexes that can drop every chunk of a source.
type sourceDeleter interface {
	DeleteSource(ctx context.Context, source string) (int, error)
}

var forgetCmd = &cobra.Command{
	Use:   "forget [source]",
	Short: "Remove every chunk of a source from the index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := assemble(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer c.close()

		d, ok := c.index.(sourceDeleter)
		if !ok {
			return errors.New("the configured vector store does not support deleting sources")
		}
		n, err := d.DeleteSource(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("forget failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d chunks of %s\n", n, args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(forgetCmd)
}
