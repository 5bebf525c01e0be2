package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ragqa/internal/config"
	"ragqa/internal/domain"
	"ragqa/internal/extract"
	"ragqa/internal/render"
	"ragqa/internal/summarizer"
)

var (
	ingestSource   string
	ingestType     string
	ingestText     string
	ingestNoDigest bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file|url ...]",
	Short: "Add documents to the index",
	Long: `Extracts text from files (.txt, .md, .pdf) and web pages, splits it into
overlapping chunks and stores their embeddings in the index. Re-ingesting a
source overwrites its chunks instead of duplicating them.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestSource, "source", "", "source name (only with a single input or --text)")
	ingestCmd.Flags().StringVar(&ingestType, "type", "", "document type tag (default depends on the extractor)")
	ingestCmd.Flags().StringVar(&ingestText, "text", "", "ingest this text directly instead of files")
	ingestCmd.Flags().BoolVar(&ingestNoDigest, "no-digest", false, "do not print a summary of the ingested text")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && ingestText == "" {
		return errors.New("nothing to ingest: pass files, URLs or --text")
	}
	targets := expandTargets(args)
	if ingestSource != "" && len(targets)+boolToInt(ingestText != "") > 1 {
		return errors.New("--source can only be used with a single input")
	}

	ctx := cmd.Context()
	ex := extract.New(extract.Config{
		Timeout:   config.Seconds(appCfg.Extract.TimeoutSecs),
		UserAgent: appCfg.Extract.UserAgent,
		Logger:    logger,
	})

	var docs []domain.Document
	if ingestText != "" {
		docs = append(docs, domain.Document{Content: ingestText})
	}
	for _, t := range targets {
		docs = append(docs, ex.Extract(ctx, t))
	}
	for i := range docs {
		if ingestSource != "" {
			docs[i].Source = ingestSource
		}
		if ingestType != "" {
			docs[i].Type = ingestType
		}
	}

	// Same source means same chunk ids: the later document overwrites the earlier one.
	for _, src := range duplicateSources(docs) {
		logger.Warn("several inputs share a source name", zap.String("source", src))
	}

	c, err := assemble(ctx, false)
	if err != nil {
		return err
	}
	defer c.close()

	n, err := c.svc.Ingest(ctx, docs)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	digest := ""
	if !ingestNoDigest && n > 0 {
		var all strings.Builder
		for _, d := range docs {
			all.WriteString(d.Content)
			all.WriteString("\n")
		}
		digest = summarizer.NewFrequencySummarizer(appCfg.Summarizer.MaxSentences).Summarize(all.String())
	}
	fmt.Fprint(cmd.OutOrStdout(), render.New(cmd.OutOrStdout()).Ingested(len(docs), n, digest))
	return nil
}

// expandTargets expands shell-style globs in file arguments; URLs pass through untouched.
func expandTargets(args []string) []string {
	var out []string
	for _, a := range args {
		if extract.IsURL(a) {
			out = append(out, a)
			continue
		}
		matches, _ := filepath.Glob(a)
		if matches == nil {
			matches = []string{a}
		}
		out = append(out, matches...)
	}
	return out
}

// duplicateSources returns, in first-seen order, every non-empty source shared by more than one document.
func duplicateSources(docs []domain.Document) []string {
	seen := make(map[string]int, len(docs))
	var dups []string
	for _, d := range docs {
		if d.Source == "" {
			continue
		}
		seen[d.Source]++
		if seen[d.Source] == 2 {
			dups = append(dups, d.Source)
		}
	}
	return dups
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
