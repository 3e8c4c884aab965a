package enhance

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/kgframe/internal/llm"
)

const (
	similarityThreshold = 0.7
	maxSimilar          = 3
	groupThreshold      = 0.5

	similarityPromptLimit = 20
	similarityDescChars   = 100
	groupPromptLimit      = 15
	groupDescChars        = 80
)

// similarities maps a criterion name to differently named criteria that
// mean the same thing
func (r *run) similarities(criteria []criterionText) map[string][]string {
	if len(criteria) < 2 {
		return map[string][]string{}
	}
	if r.o.backend.Embedder != nil {
		return r.embeddingSimilarities(criteria)
	}
	return r.generativeMapping("similarity", similarityPrompt(criteria), 0.3)
}

func (r *run) embeddingSimilarities(criteria []criterionText) map[string][]string {
	out := map[string][]string{}
	vecs := r.embed(criteria)
	if vecs == nil {
		return out
	}

	type scored struct {
		name  string
		score float32
	}
	for i, c := range criteria {
		var similar []scored
		for j, other := range criteria {
			if i == j {
				continue
			}
			if s := llm.CosineSimilarity(vecs[i], vecs[j]); s >= similarityThreshold {
				similar = append(similar, scored{other.Name, s})
			}
		}
		if len(similar) == 0 {
			continue
		}
		sort.SliceStable(similar, func(a, b int) bool { return similar[a].score > similar[b].score })
		if len(similar) > maxSimilar {
			similar = similar[:maxSimilar]
		}
		names := make([]string, len(similar))
		for k, s := range similar {
			names[k] = s.name
		}
		out[c.Name] = names
	}
	return out
}

// group clusters criteria into named thematic groups
func (r *run) group(criteria []criterionText) map[string][]string {
	if len(criteria) < 2 {
		return map[string][]string{}
	}
	if r.o.backend.Embedder != nil {
		return r.embeddingGroups(criteria)
	}
	return r.generativeMapping("grouping", groupPrompt(criteria), 0.3)
}

// embeddingGroups is single-link clustering: criteria connected through
// pairs at or above groupThreshold share a group. Groups of one are dropped
// and the rest are numbered in first-member order.
func (r *run) embeddingGroups(criteria []criterionText) map[string][]string {
	out := map[string][]string{}
	vecs := r.embed(criteria)
	if vecs == nil {
		return out
	}

	parent := make([]int, len(criteria))
	for i := range parent {
		parent[i] = i
	}
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	for i := range criteria {
		for j := i + 1; j < len(criteria); j++ {
			if llm.CosineSimilarity(vecs[i], vecs[j]) >= groupThreshold {
				a, b := find(i), find(j)
				if a < b {
					parent[b] = a
				} else if b < a {
					parent[a] = b
				}
			}
		}
	}

	members := map[int][]string{}
	var roots []int
	for i, c := range criteria {
		root := find(i)
		if _, ok := members[root]; !ok {
			roots = append(roots, root)
		}
		members[root] = append(members[root], c.Name)
	}
	n := 0
	for _, root := range roots {
		if len(members[root]) < 2 {
			continue
		}
		n++
		out[fmt.Sprintf("Group %d", n)] = members[root]
	}
	return out
}

// generativeMapping asks for a JSON object of string lists and parses the
// first balanced object in the reply
func (r *run) generativeMapping(step, prompt string, temperature float32) map[string][]string {
	text, err := r.complete(llm.CompletionRequest{
		Prompt:      prompt,
		MaxTokens:   1000,
		Temperature: temperature,
	})
	if err != nil {
		r.log.Warn("LLM step failed", "step", step, "err", err)
		return map[string][]string{}
	}
	obj, ok := llm.ExtractJSONObject(text)
	if !ok {
		r.log.Warn("LLM reply had no JSON object", "step", step, "chars", len(text))
		return map[string][]string{}
	}
	return llm.StringListMap(obj)
}

func criteriaLines(criteria []criterionText, limit, descChars int) string {
	if len(criteria) > limit {
		criteria = criteria[:limit]
	}
	var b strings.Builder
	for _, c := range criteria {
		fmt.Fprintf(&b, "- %s: %s\n", c.Name, truncate(c.Description, descChars))
	}
	return strings.TrimRight(b.String(), "\n")
}

func similarityPrompt(criteria []criterionText) string {
	return fmt.Sprintf(`Analyze these knowledge graph quality criteria and identify which ones are semantically similar or conceptually related, even if they have different names.

Criteria:
%s

Return a JSON object where keys are criterion names and values are lists of similar criterion names. Only include criteria that are genuinely similar (same concept, different wording). Format:
{"Criterion Name": ["Similar Criterion 1", "Similar Criterion 2"]}

Return only valid JSON, no other text.`, criteriaLines(criteria, similarityPromptLimit, similarityDescChars))
}

func groupPrompt(criteria []criterionText) string {
	return fmt.Sprintf(`Group these knowledge graph quality criteria into related categories based on their conceptual similarity.

Criteria:
%s

Return a JSON object with category names as keys and lists of criterion names as values. Use meaningful category names like "Completeness-related", "Accuracy-related", etc.

Format: {"Category Name": ["Criterion 1", "Criterion 2"]}

Return only valid JSON.`, criteriaLines(criteria, groupPromptLimit, groupDescChars))
}
