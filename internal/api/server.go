// Package api serves the framework catalog and comparisons over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/ppiankov/kgframe/internal/model"
)

// Catalog is the read side of the store the API needs
type Catalog interface {
	ListFrameworks(ctx context.Context) ([]model.FrameworkSummary, error)
	FrameworkDetail(ctx context.Context, id int64) (*model.FrameworkDetail, error)
	DistinctCriterionNames(ctx context.Context) ([]string, error)
	SearchCriteria(ctx context.Context, q string) ([]model.SearchGroup, error)
	DefinitionsByCriterionName(ctx context.Context, name string) ([]model.SearchHit, error)
	ListCriteria(ctx context.Context, q string) ([]model.CriterionListing, error)
}

// Comparer builds comparisons from raw framework ids
type Comparer interface {
	Compare(ctx context.Context, rawIDs []string, enableLLM bool) (*model.Comparison, error)
}

// Options wires the server
type Options struct {
	Catalog     Catalog
	Comparer    Comparer
	LLMProvider string // reported by healthz; "none" when disabled
	LogLevel    string // debug|info|warn|error|off
}

// New builds the echo instance with every route registered under /api
func New(opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Pre(middleware.AddTrailingSlash())

	SetLevel(e, opts.LogLevel)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		e.DefaultHTTPErrorHandler(err, c)
		var he *echo.HTTPError
		if errors.As(err, &he) && he.Code < http.StatusInternalServerError {
			e.Logger.Debug(err)
			return
		}
		e.Logger.Error(err)
	}
	e.Use(middleware.Recover())
	e.Use(LogHandlerFunc)

	provider := opts.LLMProvider
	if provider == "" {
		provider = "none"
	}

	api := func(p string) string { return "/api/" + strings.Trim(p, "/") + "/" }
	e.GET(api("overview"), OverviewHandler(opts.Catalog))
	e.GET(api("frameworks"), ListFrameworksHandler(opts.Catalog))
	e.GET(api("frameworks/:id"), GetFrameworkHandler(opts.Catalog, "id"))
	e.GET(api("compare"), CompareHandler(opts.Catalog, opts.Comparer))
	e.GET(api("search"), SearchHandler(opts.Catalog))
	e.GET(api("definitions"), DefinitionsHandler(opts.Catalog))
	e.GET(api("criteria"), CriteriaHandler(opts.Catalog))
	e.GET(api("healthz"), HealthHandler(provider))
	return e
}

// Serve runs e on addr until ctx is cancelled, then shuts down gracefully
func Serve(ctx context.Context, e *echo.Echo, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		e.Logger.Infof("listening on %s", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	graceful, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(graceful); err != nil {
		return err
	}
	return <-errCh
}

// LogHandlerFunc logs each request and its response through echo's logger
func LogHandlerFunc(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		meth := c.Request().Method
		path := c.Request().URL
		begin := time.Now()
		c.Logger().Debugf("< request %s %s", meth, path)

		err := next(c)

		c.Logger().Infof(
			"> response status = %d (for %s %s) in %v / error = %v",
			c.Response().Status, meth, path, time.Since(begin), err,
		)
		return err
	}
}

// SetLevel maps a level name onto echo's gommon logger
func SetLevel(e *echo.Echo, loglevel string) {
	switch strings.ToLower(loglevel) {
	case "debug":
		e.Logger.SetLevel(log.DEBUG)
	case "info":
		e.Logger.SetLevel(log.INFO)
	case "warn", "":
		e.Logger.SetLevel(log.WARN)
	case "error":
		e.Logger.SetLevel(log.ERROR)
	case "off":
		e.Logger.SetLevel(log.OFF)
	default:
		e.Logger.SetLevel(log.WARN)
		e.Logger.Warnf("unknown loglevel: %s . fall-backed to warn", loglevel)
	}
}
