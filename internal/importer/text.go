package importer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/kgframe/internal/model"
)

const criterionKeywords = `Completeness|Accuracy|Consistency|Conciseness|Timeliness|Relevancy|Interoperability|Availability|Usability|Correctness|Currency|Coverage`

var (
	bulletCriterionRe = regexp.MustCompile(`(?i)^\s*[-•*]\s*(` + criterionKeywords + `)\b`)

	// "Zaveri et al. (2016)", "Wang 1996"
	authorYearRe = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+et\s+al\.)?)\s*\(?(\d{4})\)?`)
	frameworkRe  = regexp.MustCompile(`(?i)^Framework[:\s]+([A-Z][^(]+)`)

	criterionRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(` + criterionKeywords + `)[:\s]+`),
		regexp.MustCompile(`(?i)Criterion[:\s]+([A-Z][a-z]+)`),
		regexp.MustCompile(`^\s*\d+\.\s*([A-Z][a-z]+)`),
	}
)

// parseText applies line heuristics: an author/year line opens a
// framework and known quality keywords inside it become criteria
func parseText(text string, res *Result) {
	var current *model.FrameworkRecord
	flush := func() {
		if current != nil {
			res.Frameworks = append(res.Frameworks, *current)
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || isDocumentHeader(line) {
			continue
		}

		if m := bulletCriterionRe.FindStringSubmatch(line); m != nil {
			if current != nil {
				addTextCriterion(current, m, line)
			}
			continue
		}

		if fw, ok := frameworkHeader(line); ok {
			flush()
			current = fw
			continue
		}

		if current == nil {
			continue
		}
		for _, re := range criterionRes {
			if m := re.FindStringSubmatch(line); m != nil {
				addTextCriterion(current, m, line)
				break
			}
		}
	}
	flush()
}

func isDocumentHeader(line string) bool {
	lower := strings.ToLower(line)
	for _, p := range []string{"comprehensive", "the following", "table present", "literature review"} {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

func frameworkHeader(line string) (*model.FrameworkRecord, bool) {
	if m := authorYearRe.FindStringSubmatch(line); m != nil {
		authors := strings.TrimSpace(m[1])
		year, err := strconv.Atoi(m[2])
		if err != nil {
			return nil, false
		}
		return &model.FrameworkRecord{Framework: model.Framework{
			Name:    authors + " " + m[2],
			Authors: authors,
			Year:    &year,
		}}, true
	}
	if m := frameworkRe.FindStringSubmatch(line); m != nil {
		name := strings.TrimSpace(m[1])
		return &model.FrameworkRecord{Framework: model.Framework{Name: name}}, true
	}
	return nil, false
}

// addTextCriterion uses the rest of the line as the description
func addTextCriterion(fw *model.FrameworkRecord, m []string, line string) {
	name := strings.TrimSpace(m[1])
	desc := strings.Replace(line, m[0], "", 1)
	desc = strings.Trim(desc, " \t:-–•*")
	rec := model.CriterionRecord{Criterion: model.Criterion{Name: name, Description: desc}}
	if desc != "" {
		rec.Definitions = []string{desc}
	}
	fw.Criteria = append(fw.Criteria, rec)
}
