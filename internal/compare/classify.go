package compare

import (
	"github.com/ppiankov/kgframe/internal/logging"
	"github.com/ppiankov/kgframe/internal/model"
)

// Classify splits rows into criteria shared by every framework and
// criteria only some frameworks carry. With one framework or none there
// is nothing to compare and both results are empty.
func Classify(rows []model.Row, frameworkCount int) ([]string, []model.Difference) {
	similarities := []string{}
	differences := []model.Difference{}
	if frameworkCount <= 1 {
		return similarities, differences
	}

	for _, row := range rows {
		n := row.PresentCount()
		switch {
		case n == frameworkCount:
			similarities = append(similarities, row.CriterionName)
		case n > 0:
			differences = append(differences, model.Difference{
				Criterion:    row.CriterionName,
				InFrameworks: n,
				Total:        frameworkCount,
			})
		default:
			// registry names always come from a selected framework
			logging.Error("criterion row present in no framework", "criterion", row.CriterionName, "frameworks", frameworkCount)
		}
	}
	return similarities, differences
}
