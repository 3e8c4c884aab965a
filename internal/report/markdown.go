// Package report renders comparisons for files and terminals.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ppiankov/kgframe/internal/model"
)

// WriteJSON writes v as indented JSON to path
func WriteJSON(v interface{}, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// WriteMarkdown renders c as Markdown to path
func WriteMarkdown(c *model.Comparison, path string) error {
	if err := os.WriteFile(path, []byte(RenderMarkdown(c)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// RenderMarkdown renders the matrix, the similarity and difference lists
// and, when present, the generated LLM section
func RenderMarkdown(c *model.Comparison) string {
	var sb strings.Builder
	sb.WriteString("# Framework Comparison\n\n")

	if len(c.SelectedFrameworks) == 0 {
		sb.WriteString("No frameworks selected.\n")
		return sb.String()
	}

	sb.WriteString("## Frameworks\n\n")
	for _, d := range c.FrameworkDetails {
		fmt.Fprintf(&sb, "- **%s** (%s), %d criteria", d.Name, d.YearString(), d.CriteriaCount)
		if d.Authors != "" {
			fmt.Fprintf(&sb, ", %s", d.Authors)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	rows := c.Rows
	if c.LLMEnhancement != nil && c.LLMEnhancement.Enhanced {
		rows = c.LLMEnhancement.Rows
	}

	sb.WriteString("## Criteria Matrix\n\n")
	if len(rows) == 0 {
		sb.WriteString("No criteria recorded for the selected frameworks.\n\n")
	} else {
		sb.WriteString("| Criterion |")
		for _, f := range c.SelectedFrameworks {
			fmt.Fprintf(&sb, " %s (%s) |", escapeCell(f.Name), f.YearString())
		}
		sb.WriteString("\n|---|")
		for range c.SelectedFrameworks {
			sb.WriteString("---|")
		}
		sb.WriteString("\n")
		for _, r := range rows {
			fmt.Fprintf(&sb, "| %s |", escapeCell(r.CriterionName))
			for _, cell := range r.Cells {
				fmt.Fprintf(&sb, " %s |", renderCell(cell))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Similarities\n\n")
	if len(c.Similarities) == 0 {
		sb.WriteString("_No criterion is shared by every framework._\n\n")
	} else {
		for _, s := range c.Similarities {
			fmt.Fprintf(&sb, "- %s\n", s)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Differences\n\n")
	if len(c.Differences) == 0 {
		sb.WriteString("_None._\n")
	} else {
		for _, d := range c.Differences {
			fmt.Fprintf(&sb, "- %s: in %d of %d frameworks\n", d.Criterion, d.InFrameworks, d.Total)
		}
	}

	if e := c.LLMEnhancement; e != nil {
		sb.WriteString("\n")
		sb.WriteString(renderEnhancement(e))
	}
	return sb.String()
}

func renderCell(c model.Cell) string {
	if !c.Present {
		return "-"
	}
	text := c.Description
	if c.HasLLMEnhancement {
		text = c.LLMDescription
	}
	if text == "" && len(c.Definitions) > 0 {
		text = c.Definitions[0]
	}
	if text == "" {
		return "✓"
	}
	return "✓ " + escapeCell(text)
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

func renderEnhancement(e *model.Enhancement) string {
	var sb strings.Builder
	sb.WriteString("## LLM Insights\n\n")
	sb.WriteString("> **GENERATED CONTENT**: produced by a language model. The matrix, similarities and differences above are computed without it.\n\n")

	if !e.Enhanced {
		fmt.Fprintf(&sb, "Enhancement unavailable (provider: %s)", e.Provider)
		if e.Error != "" {
			fmt.Fprintf(&sb, ": %s", e.Error)
		}
		sb.WriteString(".\n")
		return sb.String()
	}

	fmt.Fprintf(&sb, "- **Provider**: %s\n", e.Provider)
	if e.RunID != "" {
		fmt.Fprintf(&sb, "- **Run**: %s\n", e.RunID)
	}
	sb.WriteString("\n")

	if e.OverallInsight != "" {
		sb.WriteString("### Overall\n\n")
		sb.WriteString(e.OverallInsight)
		sb.WriteString("\n\n")
	}

	writeSection := func(title string, m map[string]string) {
		if len(m) == 0 {
			return
		}
		fmt.Fprintf(&sb, "### %s\n\n", title)
		for _, k := range sortedKeys(m) {
			fmt.Fprintf(&sb, "- **%s**: %s\n", k, m[k])
		}
		sb.WriteString("\n")
	}
	writeListSection := func(title string, m map[string][]string) {
		if len(m) == 0 {
			return
		}
		fmt.Fprintf(&sb, "### %s\n\n", title)
		for _, k := range sortedKeys(m) {
			fmt.Fprintf(&sb, "- **%s**: %s\n", k, strings.Join(m[k], ", "))
		}
		sb.WriteString("\n")
	}

	writeSection("Summaries", e.Summaries)
	writeSection("Insights", e.Insights)
	writeListSection("Semantic Similarities", e.SemanticSimilarities)
	writeListSection("Groups", e.Groups)
	return sb.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
