package enhance

import (
	"fmt"
	"strings"

	"github.com/ppiankov/kgframe/internal/llm"
	"github.com/ppiankov/kgframe/internal/model"
)

// maxUniqueInsights bounds the "why unique" calls per run
const maxUniqueInsights = 10

// summarize produces comparison summaries and insights for shared rows and
// "why unique" insights for the first rows found in only one framework
func (r *run) summarize(frameworks []model.Framework, rows []model.Row) (map[string]string, map[string]string) {
	summaries := map[string]string{}
	insights := map[string]string{}
	if r.o.backend.Generator == nil {
		return summaries, insights
	}

	unique := 0
	for _, row := range rows {
		switch n := row.PresentCount(); {
		case n >= 2:
			if prompt, ok := summaryPrompt(row); ok {
				if s := r.text("summary", llm.CompletionRequest{Prompt: prompt, MaxTokens: 200, Temperature: 0.4}); s != "" {
					summaries[row.CriterionName] = s
				}
			}
			if prompt, ok := insightPrompt(row, frameworks); ok {
				if s := r.text("insight", llm.CompletionRequest{Prompt: prompt, MaxTokens: 150, Temperature: 0.5}); s != "" {
					insights[row.CriterionName] = s
				}
			}
		case n == 1:
			if unique >= maxUniqueInsights {
				continue
			}
			unique++
			if prompt, ok := uniquePrompt(row, frameworks); ok {
				if s := r.text("unique insight", llm.CompletionRequest{Prompt: prompt, MaxTokens: 100, Temperature: 0.5}); s != "" {
					insights[row.CriterionName] = s
				}
			}
		}
	}
	return summaries, insights
}

// overall writes one paragraph about the whole comparison
func (r *run) overall(frameworks []model.Framework, rows []model.Row, similarPairs int) string {
	if r.o.backend.Generator == nil || len(frameworks) == 0 {
		return ""
	}
	return r.text("overall", llm.CompletionRequest{
		Prompt:      overallPrompt(frameworks, rows, similarPairs),
		MaxTokens:   250,
		Temperature: 0.5,
	})
}

// summaryPrompt needs at least two present cells with a description or
// definitions
func summaryPrompt(row model.Row) (string, bool) {
	var blocks []string
	for _, c := range row.Cells {
		if !c.Present || (c.Description == "" && len(c.Definitions) == 0) {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("Framework %d:\nDescription: %s\nDefinitions: %s",
			len(blocks)+1, c.Description, strings.Join(firstN(c.Definitions, 2), "; ")))
	}
	if len(blocks) < 2 {
		return "", false
	}

	return fmt.Sprintf(`Compare how different knowledge graph quality frameworks define the criterion %q.

Definitions:
%s

Provide a concise 2-3 sentence summary highlighting:
1. Key similarities in how frameworks define this criterion
2. Notable differences or unique perspectives
3. Any important nuances

Be specific and factual. Return only the summary text, no markdown formatting.`, row.CriterionName, strings.Join(blocks, "\n\n")), true
}

func insightPrompt(row model.Row, frameworks []model.Framework) (string, bool) {
	var lines []string
	for i, c := range row.Cells {
		if !c.Present {
			continue
		}
		info := frameworkLabel(frameworks, i) + ":"
		if c.Category != "" {
			info += fmt.Sprintf(" Category: %s.", c.Category)
		}
		if c.Description != "" {
			info += fmt.Sprintf(" Description: %s.", c.Description)
		}
		if len(c.Definitions) > 0 {
			info += " Definitions: " + strings.Join(firstN(c.Definitions, 2), "; ")
		}
		lines = append(lines, "- "+info)
	}
	if len(lines) < 2 {
		return "", false
	}

	return fmt.Sprintf(`Analyze how different knowledge graph quality frameworks approach the criterion %q.

Framework approaches:
%s

Provide 2-3 sentences highlighting:
1. Key differences in how frameworks implement or measure this criterion
2. Which framework has the most comprehensive approach
3. Any practical implications or recommendations

Be concise and actionable. Return only the insight text, no markdown.`, row.CriterionName, strings.Join(lines, "\n")), true
}

func uniquePrompt(row model.Row, frameworks []model.Framework) (string, bool) {
	idx := -1
	for i, c := range row.Cells {
		if c.Present {
			idx = i
			break
		}
	}
	if idx < 0 || idx >= len(frameworks) {
		return "", false
	}
	cell := row.Cells[idx]
	fw := frameworks[idx]

	var others []string
	for i, f := range frameworks {
		if i != idx {
			others = append(others, f.Name)
		}
	}

	orDefault := func(s, def string) string {
		if s == "" {
			return def
		}
		return s
	}

	return fmt.Sprintf(`The criterion %q appears only in the framework %q but not in: %s.

Details from %s:
- Category: %s
- Description: %s
- Definitions: %s

Provide a brief 1-2 sentence insight about:
1. Why this criterion might be unique to this framework
2. Its potential importance or relevance

Be concise. Return only the insight text.`,
		row.CriterionName, fw.Name, strings.Join(others, ", "), fw.Name,
		orDefault(cell.Category, "Not specified"),
		orDefault(cell.Description, "Not provided"),
		orDefault(strings.Join(firstN(cell.Definitions, 2), "; "), "Not provided")), true
}

func overallPrompt(frameworks []model.Framework, rows []model.Row, similarPairs int) string {
	names := make([]string, len(frameworks))
	for i, f := range frameworks {
		names[i] = f.Name
	}
	common, unique := 0, 0
	for _, row := range rows {
		switch row.PresentCount() {
		case len(row.Cells):
			common++
		case 1:
			unique++
		}
	}

	return fmt.Sprintf(`Analyze this comparison of %d knowledge graph quality frameworks: %s.

Statistics:
- Total unique criteria: %d
- Criteria in all frameworks: %d
- Criteria unique to one framework: %d
- Semantically similar criteria pairs: %d

Provide 3-4 sentences with overall insights:
1. Key strengths of each framework
2. Major differences in approach
3. Recommendations for choosing or combining frameworks
4. Notable gaps or overlaps

Be insightful and practical. Return only the insight text, no markdown.`,
		len(frameworks), strings.Join(names, ", "), len(rows), common, unique, similarPairs)
}

func frameworkLabel(frameworks []model.Framework, i int) string {
	if i < len(frameworks) {
		return frameworks[i].Name
	}
	return fmt.Sprintf("Framework %d", i+1)
}
