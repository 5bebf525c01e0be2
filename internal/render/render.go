// Package render formats answers, search hits and collection statistics for the terminal.
package render

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"ragqa/internal/domain"
	"ragqa/internal/textutil"
)

// Renderer holds lipgloss styles bound to one output. Colors are dropped
// automatically when the output is not a terminal.
type Renderer struct {
	header    lipgloss.Style
	muted     lipgloss.Style
	label     lipgloss.Style
	highlight lipgloss.Style
	box       lipgloss.Style
}

// New creates a renderer for w.
func New(w io.Writer) *Renderer {
	r := lipgloss.NewRenderer(w)
	return &Renderer{
		header:    r.NewStyle().Bold(true),
		muted:     r.NewStyle().Foreground(lipgloss.Color("8")),
		label:     r.NewStyle().Foreground(lipgloss.Color("10")),
		highlight: r.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		box:       r.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
	}
}

// Answer renders the generated answer followed by its cited sources.
func (r *Renderer) Answer(question string, ans domain.QueryAnswer) string {
	var b strings.Builder
	b.WriteString(r.header.Render("Answer"))
	b.WriteString("\n")
	b.WriteString(r.box.Render(ans.Answer))
	b.WriteString("\n")
	if len(ans.Sources) == 0 {
		return b.String()
	}
	b.WriteString("\n")
	b.WriteString(r.header.Render("Sources"))
	b.WriteString("\n")
	for i, src := range ans.Sources {
		b.WriteString(r.label.Render(SourceLine(i+1, src.Source, src.Similarity)))
		b.WriteString("\n    ")
		b.WriteString(r.highlightBestSentence(src.Excerpt, question))
		b.WriteString("\n")
	}
	return b.String()
}

// SearchResults renders ranked chunks without a generated answer.
func (r *Renderer) SearchResults(question string, results []domain.RetrievalResult) string {
	if len(results) == 0 {
		return r.muted.Render("No results.") + "\n"
	}
	var b strings.Builder
	for i, res := range results {
		title := fmt.Sprintf("Result %d/%d  %s  chunk=%d  similarity=%.3f",
			i+1, len(results), res.Metadata.Source, res.Metadata.ChunkIndex, 1-res.Distance)
		b.WriteString(r.header.Render(title))
		b.WriteString("\n")
		b.WriteString(r.box.Render(r.highlightBestSentence(res.Content, question)))
		b.WriteString("\n")
	}
	return b.String()
}

// Stats renders collection statistics with document types and sources in sorted order.
func (r *Renderer) Stats(stats domain.CollectionStats) string {
	var b strings.Builder
	b.WriteString(r.header.Render("Collection"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  chunks:  %d\n", stats.TotalChunks)
	fmt.Fprintf(&b, "  sources: %d\n", stats.UniqueSources)
	if len(stats.DocumentTypes) > 0 {
		b.WriteString(r.header.Render("Document types"))
		b.WriteString("\n")
		types := make([]string, 0, len(stats.DocumentTypes))
		for t := range stats.DocumentTypes {
			types = append(types, t)
		}
		sort.Strings(types)
		for _, t := range types {
			fmt.Fprintf(&b, "  %s: %d\n", t, stats.DocumentTypes[t])
		}
	}
	if len(stats.Sources) > 0 {
		b.WriteString(r.header.Render("Sources"))
		b.WriteString("\n")
		for _, s := range stats.Sources {
			fmt.Fprintf(&b, "  - %s\n", s)
		}
	}
	return b.String()
}

// Ingested renders the ingest summary line and an optional digest.
func (r *Renderer) Ingested(documents, chunks int, digest string) string {
	line := r.label.Render(fmt.Sprintf("Indexed %d chunks from %d documents", chunks, documents))
	if strings.TrimSpace(digest) == "" {
		return line + "\n"
	}
	return line + "\n" + r.muted.Render(digest) + "\n"
}

// SourceLine formats one cited source, e.g. "[1] notes.md (similarity: 0.800)".
func SourceLine(n int, source string, similarity float64) string {
	return fmt.Sprintf("[%d] %s (similarity: %.3f)", n, source, similarity)
}

func (r *Renderer) highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := textutil.Sentences(text)
	best := bestSentence(sentences, query)
	if best < 0 {
		return strings.Join(sentences, " ")
	}
	out := make([]string, len(sentences))
	for i, s := range sentences {
		if i == best {
			out[i] = r.highlight.Render(s)
		} else {
			out[i] = s
		}
	}
	return strings.Join(out, " ")
}

// bestSentence returns the index of the sentence sharing the most distinct terms
// with query, or -1 when the query has no terms or nothing overlaps.
func bestSentence(sentences []string, query string) int {
	qTerms := textutil.TermSet(query)
	if len(qTerms) == 0 {
		return -1
	}
	bestIdx, bestScore := -1, 0
	for i, s := range sentences {
		if score := overlap(qTerms, s); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	return bestIdx
}

func overlap(queryTerms map[string]struct{}, sentence string) int {
	score := 0
	for t := range textutil.TermSet(sentence) {
		if _, ok := queryTerms[t]; ok {
			score++
		}
	}
	return score
}
