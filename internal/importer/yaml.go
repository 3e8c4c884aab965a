package importer

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/kgframe/internal/model"
)

// seedFile is the hand-written YAML catalog format:
//
//	frameworks:
//	  - name: Zaveri et al.
//	    year: 2016
//	    criteria:
//	      - name: Completeness
//	        definitions: ["Degree to which ..."]
type seedFile struct {
	Frameworks []seedFramework `yaml:"frameworks"`
}

type seedFramework struct {
	Name          string          `yaml:"name"`
	Authors       string          `yaml:"authors"`
	Year          *int            `yaml:"year"`
	Title         string          `yaml:"title"`
	Description   string          `yaml:"description"`
	Objectives    string          `yaml:"objectives"`
	Methodology   string          `yaml:"methodology"`
	AlgorithmUsed string          `yaml:"algorithm_used"`
	TopModel      string          `yaml:"top_model"`
	Accuracy      string          `yaml:"accuracy"`
	Advantages    string          `yaml:"advantages"`
	Drawbacks     string          `yaml:"drawbacks"`
	Source        string          `yaml:"source"`
	Criteria      []seedCriterion `yaml:"criteria"`
}

type seedCriterion struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Category    string   `yaml:"category"`
	Definitions []string `yaml:"definitions"`
}

func parseYAML(data []byte, res *Result) error {
	var seed seedFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode seed: %w", err)
	}

	for _, sf := range seed.Frameworks {
		rec := model.FrameworkRecord{Framework: model.Framework{
			Name:          sf.Name,
			Authors:       sf.Authors,
			Year:          sf.Year,
			Title:         sf.Title,
			Description:   sf.Description,
			Objectives:    sf.Objectives,
			Methodology:   sf.Methodology,
			AlgorithmUsed: sf.AlgorithmUsed,
			TopModel:      sf.TopModel,
			Accuracy:      sf.Accuracy,
			Advantages:    sf.Advantages,
			Drawbacks:     sf.Drawbacks,
			Source:        sf.Source,
		}}
		for _, sc := range sf.Criteria {
			rec.Criteria = append(rec.Criteria, model.CriterionRecord{
				Criterion: model.Criterion{
					Name:        sc.Name,
					Description: sc.Description,
					Category:    sc.Category,
				},
				Definitions: sc.Definitions,
			})
		}
		res.Frameworks = append(res.Frameworks, rec)
	}
	return nil
}
