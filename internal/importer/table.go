package importer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ppiankov/kgframe/internal/model"
	"github.com/ppiankov/kgframe/internal/normalize"
)

// column identifies a survey table column
type column int

const (
	colTitle column = iota
	colYear
	colDimensions
	colAbstract
	colObjectives
	colMethodology
	colAlgorithm
	colTopModel
	colAccuracy
	colAdvantages
	colDrawbacks
	colReference
	// paired layout: one framework per group of criterion rows
	colFramework
	colCriterion
	colDefinition
)

// minTitleLen is the shortest row title taken as a framework
const minTitleLen = 10

var (
	yearRe          = regexp.MustCompile(`(\d{4})`)
	parenYearRe     = regexp.MustCompile(`\((\d{4})\)`)
	referenceAuthor = regexp.MustCompile(`^([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*(?:\s+et\s+al\.)?)`)
	yearStripRe     = regexp.MustCompile(`\s*\(?\d{4}\)?`)
	titleSplitRe    = regexp.MustCompile(`[:\-–]`)
	dimensionSplit  = regexp.MustCompile(`[,;]+`)
	dimensionPrefix = regexp.MustCompile(`(?i)^(Syntactic|Semantic|Representational)[\s-]+`)
	digitsOnly      = regexp.MustCompile(`^[\d\s]+$`)
	spaceRe         = regexp.MustCompile(`\s+`)
)

var headerPhrases = []string{"comprehensive", "the following", "table present", "the "}

var stopDimensions = map[string]bool{"n/a": true, "na": true, "read": true, "and": true, "or": true, "the": true}

// classifyHeader maps header cells to columns. The first keyword that
// matches a cell wins.
func classifyHeader(headers []string) map[column]int {
	cols := make(map[column]int)
	set := func(c column, i int) {
		if _, ok := cols[c]; !ok {
			cols[c] = i
		}
	}
	for i, h := range headers {
		h = strings.ToLower(strings.TrimSpace(h))
		switch {
		case strings.Contains(h, "title"):
			set(colTitle, i)
		case strings.Contains(h, "year"), strings.Contains(h, "published"):
			set(colYear, i)
		case strings.Contains(h, "dimension"):
			set(colDimensions, i)
		case strings.Contains(h, "abstract"):
			set(colAbstract, i)
		case strings.Contains(h, "objective"):
			set(colObjectives, i)
		case strings.Contains(h, "methodology"):
			set(colMethodology, i)
		case strings.Contains(h, "algorithm"):
			set(colAlgorithm, i)
		case strings.Contains(strings.ReplaceAll(h, " ", ""), "topmodel"):
			set(colTopModel, i)
		case strings.Contains(h, "accuracy"):
			set(colAccuracy, i)
		case strings.Contains(h, "advantage"):
			set(colAdvantages, i)
		case strings.Contains(h, "drawback"):
			set(colDrawbacks, i)
		case strings.Contains(h, "reference"):
			set(colReference, i)
		case strings.Contains(h, "framework"), strings.Contains(h, "author"), strings.Contains(h, "source"):
			set(colFramework, i)
		case strings.Contains(h, "criterion"), strings.Contains(h, "metric"):
			set(colCriterion, i)
		case strings.Contains(h, "definition"), strings.Contains(h, "description"):
			set(colDefinition, i)
		}
	}
	return cols
}

// parseTable reads one table whose first row is the header. Survey tables
// (one paper per row) are recognized by a title column; otherwise a
// framework/criterion column pair is tried.
func parseTable(rows [][]string, res *Result) []model.FrameworkRecord {
	if len(rows) < 2 {
		return nil
	}
	cols := classifyHeader(rows[0])
	if _, ok := cols[colTitle]; ok {
		return parseSurveyTable(rows[1:], cols)
	}
	_, hasFramework := cols[colFramework]
	if _, ok := cols[colCriterion]; ok && hasFramework {
		return parsePairedTable(rows[1:], cols)
	}
	if _, ok := cols[colDimensions]; ok && hasFramework {
		cols[colCriterion] = cols[colDimensions]
		return parsePairedTable(rows[1:], cols)
	}
	res.warnf("skipped a table with unrecognized header %q", strings.Join(rows[0], " | "))
	return nil
}

func cell(cells []string, cols map[column]int, c column) string {
	i, ok := cols[c]
	if !ok || i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}

func parseSurveyTable(rows [][]string, cols map[column]int) []model.FrameworkRecord {
	var out []model.FrameworkRecord
	for _, cells := range rows {
		title := cell(cells, cols, colTitle)
		if skipTitle(title) {
			continue
		}

		year := findYear(cell(cells, cols, colYear), yearRe)
		if year == nil {
			year = findYear(title, parenYearRe)
		}
		reference := cell(cells, cols, colReference)

		fw := model.FrameworkRecord{Framework: model.Framework{
			Name:          title,
			Authors:       guessAuthors(title, reference),
			Year:          year,
			Title:         title,
			Description:   cell(cells, cols, colAbstract),
			Objectives:    cell(cells, cols, colObjectives),
			Methodology:   cell(cells, cols, colMethodology),
			AlgorithmUsed: cell(cells, cols, colAlgorithm),
			TopModel:      cell(cells, cols, colTopModel),
			Accuracy:      cell(cells, cols, colAccuracy),
			Advantages:    cell(cells, cols, colAdvantages),
			Drawbacks:     cell(cells, cols, colDrawbacks),
			Source:        reference,
		}}

		for _, dim := range splitDimensions(cell(cells, cols, colDimensions)) {
			def := "Quality dimension from " + title
			if year != nil {
				def = fmt.Sprintf("%s (%d)", def, *year)
			}
			fw.Criteria = append(fw.Criteria, model.CriterionRecord{
				Criterion:   model.Criterion{Name: dim, Description: "Quality dimension from " + title},
				Definitions: []string{def},
			})
		}
		out = append(out, fw)
	}
	return out
}

func parsePairedTable(rows [][]string, cols map[column]int) []model.FrameworkRecord {
	var out []model.FrameworkRecord
	var current *model.FrameworkRecord
	flush := func() {
		if current != nil {
			out = append(out, *current)
		}
	}
	for _, cells := range rows {
		if name := cell(cells, cols, colFramework); name != "" {
			flush()
			var authors string
			if fields := strings.Fields(name); len(fields) > 0 {
				authors = fields[0]
			}
			current = &model.FrameworkRecord{Framework: model.Framework{
				Name:    name,
				Authors: authors,
				Year:    findYear(name, yearRe),
			}}
		}
		if current == nil {
			continue
		}
		criterion := cell(cells, cols, colCriterion)
		if criterion == "" {
			continue
		}
		definition := cell(cells, cols, colDefinition)
		for _, name := range splitDimensions(criterion) {
			rec := model.CriterionRecord{Criterion: model.Criterion{Name: name, Description: definition}}
			if definition != "" {
				rec.Definitions = []string{definition}
			}
			current.Criteria = append(current.Criteria, rec)
		}
	}
	flush()
	return out
}

// skipTitle rejects empty or short titles and rows that repeat document
// header phrases
func skipTitle(title string) bool {
	if len(title) < minTitleLen {
		return true
	}
	lower := strings.ToLower(title)
	for _, p := range headerPhrases {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

func findYear(s string, re *regexp.Regexp) *int {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	y, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &y
}

// guessAuthors takes authors from the reference cell, or from a short
// capitalized prefix of the title such as "Zaveri et al.: ..."
func guessAuthors(title, reference string) string {
	if reference != "" && !strings.EqualFold(reference, "read") {
		if m := referenceAuthor.FindStringSubmatch(reference); m != nil {
			return strings.TrimSpace(m[1])
		}
	}

	clean := yearStripRe.ReplaceAllString(title, "")
	parts := titleSplitRe.Split(clean, 2)
	if len(parts) < 2 {
		return ""
	}
	first := strings.TrimSpace(parts[0])
	words := strings.Fields(first)
	if len(words) == 0 || len(words) > 4 || len(first) >= 50 {
		return ""
	}
	for _, w := range words[:min(2, len(words))] {
		if r, _ := utf8.DecodeRuneInString(w); !unicode.IsUpper(r) {
			return ""
		}
	}
	return first
}

// splitDimensions turns a "Completeness, Accuracy; Timeliness" cell into
// capitalized, de-duplicated names
func splitDimensions(s string) []string {
	s = spaceRe.ReplaceAllString(s, " ")
	var out []string
	seen := make(map[string]bool)
	for _, dim := range dimensionSplit.Split(s, -1) {
		dim = strings.TrimSpace(dim)
		if len(dim) <= 2 || stopDimensions[strings.ToLower(dim)] {
			continue
		}
		dim = dimensionPrefix.ReplaceAllString(dim, "")
		dim = strings.TrimSpace(strings.TrimRight(dim, ".-"))
		if len(dim) <= 2 || digitsOnly.MatchString(dim) {
			continue
		}
		dim = normalize.CriterionName(dim)
		if key := strings.ToLower(dim); !seen[key] {
			seen[key] = true
			out = append(out, dim)
		}
	}
	return out
}
