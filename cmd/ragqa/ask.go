package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ragqa/internal/render"
	"ragqa/internal/service"
)

var (
	askTopK      int
	askNoSources bool
	askJSON      bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the indexed documents",
	Long: `Retrieves the chunks closest to the question and asks the configured
language model to answer using only those chunks, citing their sources.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of chunks to retrieve (default from config)")
	askCmd.Flags().BoolVar(&askNoSources, "no-sources", false, "do not list cited sources")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")
	ctx := cmd.Context()

	c, err := assemble(ctx, true)
	if err != nil {
		return err
	}
	defer c.close()

	topK := askTopK
	if topK <= 0 {
		topK = appCfg.Query.TopK
	}
	ans, err := c.svc.Answer(ctx, question, service.QueryOptions{TopK: topK, HideSources: askNoSources})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		data, err := json.MarshalIndent(ans, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), render.New(cmd.OutOrStdout()).Answer(question, ans))
	return nil
}
