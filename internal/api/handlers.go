package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ppiankov/kgframe/internal/model"
)

// OverviewResponse is the landing view: every framework plus the distinct
// criterion names across the catalog
type OverviewResponse struct {
	Frameworks []model.FrameworkSummary `json:"frameworks"`
	Criteria   []string                 `json:"criteria"`
}

// CompareResponse is a comparison plus the full framework list for pickers
type CompareResponse struct {
	*model.Comparison
	AllFrameworks []model.FrameworkSummary `json:"all_frameworks"`
}

// SearchResponse groups criterion matches by name. Results is null for an
// empty query.
type SearchResponse struct {
	Query   string              `json:"query"`
	Results []model.SearchGroup `json:"results"`
}

// DefinitionsResponse lists a criterion's definitions across frameworks
type DefinitionsResponse struct {
	Criterion string            `json:"criterion"`
	Results   []model.SearchHit `json:"results"`
}

// HealthResponse reports liveness and the selected LLM backend
type HealthResponse struct {
	Status      string `json:"status"`
	LLMProvider string `json:"llm_provider"`
}

func OverviewHandler(catalog Catalog) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		frameworks, err := catalog.ListFrameworks(ctx)
		if err != nil {
			return internalError(err)
		}
		names, err := catalog.DistinctCriterionNames(ctx)
		if err != nil {
			return internalError(err)
		}
		return c.JSON(http.StatusOK, OverviewResponse{
			Frameworks: nonNil(frameworks),
			Criteria:   nonNil(names),
		})
	}
}

func ListFrameworksHandler(catalog Catalog) echo.HandlerFunc {
	return func(c echo.Context) error {
		frameworks, err := catalog.ListFrameworks(c.Request().Context())
		if err != nil {
			return internalError(err)
		}
		return c.JSON(http.StatusOK, nonNil(frameworks))
	}
}

// GetFrameworkHandler answers with one framework and its criteria. param
// names the path parameter holding the id.
func GetFrameworkHandler(catalog Catalog, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := strconv.ParseInt(c.Param(param), 10, 64)
		if err != nil || id <= 0 {
			return badRequest("framework id must be a positive integer")
		}
		detail, err := catalog.FrameworkDetail(c.Request().Context(), id)
		if errors.Is(err, model.ErrNotFound) {
			return notFound()
		} else if err != nil {
			return internalError(err)
		}
		if detail.Criteria == nil {
			detail.Criteria = []model.CriterionDetail{}
		}
		return c.JSON(http.StatusOK, detail)
	}
}

// CompareHandler reads ?frameworks=1&frameworks=2 (comma lists also work)
// and ?llm=true. Bad ids are ignored rather than rejected.
func CompareHandler(catalog Catalog, comparer Comparer) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		rawIDs := c.QueryParams()["frameworks"]
		enableLLM := isTruthy(c.QueryParam("llm"))

		comparison, err := comparer.Compare(ctx, rawIDs, enableLLM)
		if err != nil {
			return internalError(err)
		}
		all, err := catalog.ListFrameworks(ctx)
		if err != nil {
			return internalError(err)
		}
		return c.JSON(http.StatusOK, CompareResponse{Comparison: comparison, AllFrameworks: nonNil(all)})
	}
}

func SearchHandler(catalog Catalog) echo.HandlerFunc {
	return func(c echo.Context) error {
		q := strings.TrimSpace(c.QueryParam("q"))
		resp := SearchResponse{Query: q}
		if q == "" {
			return c.JSON(http.StatusOK, resp)
		}
		groups, err := catalog.SearchCriteria(c.Request().Context(), q)
		if err != nil {
			return internalError(err)
		}
		resp.Results = nonNil(groups)
		return c.JSON(http.StatusOK, resp)
	}
}

func DefinitionsHandler(catalog Catalog) echo.HandlerFunc {
	return func(c echo.Context) error {
		name := strings.TrimSpace(c.QueryParam("criterion"))
		resp := DefinitionsResponse{Criterion: name, Results: []model.SearchHit{}}
		if name == "" {
			return c.JSON(http.StatusOK, resp)
		}
		hits, err := catalog.DefinitionsByCriterionName(c.Request().Context(), name)
		if err != nil {
			return internalError(err)
		}
		resp.Results = nonNil(hits)
		return c.JSON(http.StatusOK, resp)
	}
}

func CriteriaHandler(catalog Catalog) echo.HandlerFunc {
	return func(c echo.Context) error {
		list, err := catalog.ListCriteria(c.Request().Context(), c.QueryParam("q"))
		if err != nil {
			return internalError(err)
		}
		return c.JSON(http.StatusOK, nonNil(list))
	}
}

func HealthHandler(provider string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, HealthResponse{Status: "ok", LLMProvider: provider})
	}
}

func isTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// nonNil keeps empty lists rendering as [] instead of null
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
