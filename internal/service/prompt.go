package service

import (
	"strings"

	"ragqa/internal/domain"
)

const promptTemplate = `You are an assistant that answers questions using only the reference information below.

Reference information:
{{context}}

Question: {{question}}

Instructions:
- Use only the reference information above. Do not rely on outside knowledge.
- Cite the source of each fact you state, in the form [Source: name].
- If the reference information is not enough, say that the question cannot be answered from the provided information.
- Answer concisely.

Answer:`

// BuildContext renders each retrieved chunk as a source label followed by its text,
// in rank order, separated by blank lines.
func BuildContext(results []domain.RetrievalResult) string {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = "[Source: " + r.Metadata.Source + "]\n" + r.Content
	}
	return strings.Join(parts, "\n\n")
}

// BuildPrompt fills the fixed answering instructions with the question and its context.
func BuildPrompt(question string, results []domain.RetrievalResult) string {
	r := strings.NewReplacer("{{context}}", BuildContext(results), "{{question}}", strings.TrimSpace(question))
	return r.Replace(promptTemplate)
}
