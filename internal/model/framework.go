package model

import (
	"strconv"
	"time"
)

// Framework is a published KG quality framework (usually one paper)
type Framework struct {
	ID            int64     `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Authors       string    `json:"authors,omitempty" db:"authors"`
	Year          *int      `json:"year,omitempty" db:"year"` // 1900-2100 when set
	Title         string    `json:"title,omitempty" db:"title"`
	Description   string    `json:"description,omitempty" db:"description"`
	Objectives    string    `json:"objectives,omitempty" db:"objectives"`
	Methodology   string    `json:"methodology,omitempty" db:"methodology"`
	AlgorithmUsed string    `json:"algorithm_used,omitempty" db:"algorithm_used"`
	TopModel      string    `json:"top_model,omitempty" db:"top_model"`
	Accuracy      string    `json:"accuracy,omitempty" db:"accuracy"`
	Advantages    string    `json:"advantages,omitempty" db:"advantages"`
	Drawbacks     string    `json:"drawbacks,omitempty" db:"drawbacks"`
	Source        string    `json:"source,omitempty" db:"source"` // citation or URL
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// YearString renders the year or "n.d." when unknown
func (f Framework) YearString() string {
	if f.Year == nil {
		return "n.d."
	}
	return strconv.Itoa(*f.Year)
}

// Completeness counts the non-empty descriptive fields
func (f Framework) Completeness() int {
	n := 0
	for _, s := range []string{f.Authors, f.Title, f.Description, f.Objectives, f.Methodology,
		f.AlgorithmUsed, f.TopModel, f.Accuracy, f.Advantages, f.Drawbacks, f.Source} {
		if s != "" {
			n++
		}
	}
	if f.Year != nil {
		n++
	}
	return n
}

// Criterion is a named quality dimension inside one framework
type Criterion struct {
	ID          int64     `json:"id" db:"id"`
	FrameworkID int64     `json:"framework_id" db:"framework_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description,omitempty" db:"description"`
	Category    string    `json:"category,omitempty" db:"category"`
	Order       int       `json:"order" db:"sort_order"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Definition is one textual definition of a criterion
type Definition struct {
	ID             int64     `json:"id" db:"id"`
	CriterionID    int64     `json:"criterion_id" db:"criterion_id"`
	DefinitionText string    `json:"definition_text" db:"definition_text"`
	Notes          string    `json:"notes,omitempty" db:"notes"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// CriterionRef is a criterion name as seen by the registry
type CriterionRef struct {
	FrameworkID int64  `db:"framework_id"`
	Name        string `db:"name"`
	Order       int    `db:"sort_order"`
}

// CriterionDetail is a criterion with its definitions attached
type CriterionDetail struct {
	Criterion
	Definitions []Definition `json:"definitions"`
}

// FrameworkDetail is a framework with its criteria attached
type FrameworkDetail struct {
	Framework
	Criteria []CriterionDetail `json:"criteria"`
}

// FrameworkSummary is a framework with its criteria count
type FrameworkSummary struct {
	Framework
	CriteriaCount int `json:"criteria_count" db:"criteria_count"`
}

// CriterionListing is a flat criterion row for pickers and autocomplete
type CriterionListing struct {
	ID            int64  `json:"id" db:"id"`
	Name          string `json:"name" db:"name"`
	FrameworkID   int64  `json:"framework_id" db:"framework_id"`
	FrameworkName string `json:"framework_name" db:"framework_name"`
}

// SearchHit is a matching criterion together with its framework
type SearchHit struct {
	Criterion   Criterion    `json:"criterion"`
	Framework   Framework    `json:"framework"`
	Definitions []Definition `json:"definitions"`
}

// SearchGroup collects search hits that share a criterion name
type SearchGroup struct {
	Name string      `json:"name"`
	Hits []SearchHit `json:"hits"`
}

// CriterionRecord is an imported criterion with its definition texts
type CriterionRecord struct {
	Criterion
	Definitions []string `json:"definitions" yaml:"definitions"`
}

// FrameworkRecord is an imported framework with its criteria
type FrameworkRecord struct {
	Framework
	Criteria []CriterionRecord `json:"criteria" yaml:"criteria"`
}

// Snapshot is the whole catalog, loaded for offline cleanup
type Snapshot struct {
	Frameworks  []Framework
	Criteria    []Criterion
	Definitions []Definition
}
