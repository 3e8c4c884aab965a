// Package importer turns framework survey documents into framework records.
// Parsing is best effort: malformed input yields warnings and whatever could
// be recovered, never a panic.
package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/kgframe/internal/logging"
	"github.com/ppiankov/kgframe/internal/model"
	"github.com/ppiankov/kgframe/internal/normalize"
)

// MaxFileSize is the largest document the importer reads
const MaxFileSize = 50 * 1024 * 1024

// Kind is a detected document format
type Kind string

const (
	KindDOCX Kind = "docx"
	KindPDF  Kind = "pdf"
	KindHTML Kind = "html"
	KindYAML Kind = "yaml"
	KindText Kind = "text"
)

// Result is what one document yielded
type Result struct {
	Source     string                  `json:"source"`
	Kind       Kind                    `json:"kind"`
	Frameworks []model.FrameworkRecord `json:"frameworks"`
	Warnings   []string                `json:"warnings,omitempty"`
}

func (r *Result) warnf(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// CriteriaCount is the number of criteria across all frameworks
func (r *Result) CriteriaCount() int {
	n := 0
	for _, f := range r.Frameworks {
		n += len(f.Criteria)
	}
	return n
}

// DetectKind identifies a document by its leading bytes, falling back to
// the file extension and finally to plain text
func DetectKind(name string, data []byte) Kind {
	switch {
	case bytes.HasPrefix(data, []byte("PK")):
		return KindDOCX
	case bytes.HasPrefix(data, []byte("%PDF")):
		return KindPDF
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".docx":
		return KindDOCX
	case ".pdf":
		return KindPDF
	case ".html", ".htm", ".xhtml":
		return KindHTML
	case ".yaml", ".yml":
		return KindYAML
	}

	head := strings.ToLower(string(data[:min(len(data), 512)]))
	head = strings.TrimSpace(head)
	if strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html") || strings.Contains(head, "<table") {
		return KindHTML
	}
	return KindText
}

// ParseFile reads and parses a local document
func ParseFile(path string) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("file not found: %w", err)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("%s exceeds size limit of %d bytes", path, MaxFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(path, data)
}

// Parse dispatches on the detected kind. Only an unreadable container
// (a corrupt zip, an unparseable PDF or YAML) is an error.
func Parse(name string, data []byte) (res *Result, err error) {
	kind := DetectKind(name, data)
	res = &Result{Source: name, Kind: kind}

	defer func() {
		if r := recover(); r != nil {
			logging.Error("Importer panic recovered", "source", name, "kind", kind, "panic", r)
			res, err = nil, fmt.Errorf("parse %s: %v", name, r)
		}
	}()

	switch kind {
	case KindDOCX:
		err = parseDOCX(data, res)
	case KindPDF:
		err = parsePDF(data, res)
	case KindHTML:
		err = parseHTML(data, res)
	case KindYAML:
		err = parseYAML(data, res)
	default:
		parseText(string(data), res)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s as %s: %w", name, kind, err)
	}

	res.Frameworks = tidy(res.Frameworks, res)
	if len(res.Frameworks) == 0 {
		res.warnf("no frameworks found in %s", name)
	}
	return res, nil
}

// Importer loads documents from disk or over HTTP
type Importer struct {
	fetcher *Fetcher
}

// New creates an importer; a nil fetcher disables URL sources
func New(fetcher *Fetcher) *Importer {
	return &Importer{fetcher: fetcher}
}

// Load parses ref, which is a local path or an http(s) URL
func (im *Importer) Load(ctx context.Context, ref string) (*Result, error) {
	if !IsURL(ref) {
		return ParseFile(ref)
	}
	if im.fetcher == nil {
		return nil, errors.New("URL import is not configured")
	}
	doc, err := im.fetcher.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	name := doc.Name
	if isHTMLContentType(doc.ContentType) {
		name = strings.TrimSuffix(name, filepath.Ext(name)) + ".html"
	}
	res, err := Parse(name, doc.Data)
	if err != nil {
		return nil, err
	}
	res.Source = ref
	return res, nil
}

// IsURL reports whether ref names an http(s) resource
func IsURL(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// tidy drops frameworks without a name, validates years and merges
// criteria that differ only in case or spacing
func tidy(in []model.FrameworkRecord, res *Result) []model.FrameworkRecord {
	out := make([]model.FrameworkRecord, 0, len(in))
	for _, f := range in {
		f.Name = strings.TrimSpace(f.Name)
		if f.Name == "" {
			res.warnf("skipped a framework without a name")
			continue
		}
		if f.Year != nil && !model.ValidYear(*f.Year) {
			res.warnf("framework %q: dropped implausible year %d", f.Name, *f.Year)
			f.Year = nil
		}

		seen := make(map[string]int)
		var criteria []model.CriterionRecord
		for _, c := range f.Criteria {
			c.Name = normalize.CriterionName(c.Name)
			if c.Name == "" {
				continue
			}
			key := normalize.Loose(c.Name)
			if i, ok := seen[key]; ok {
				criteria[i].Definitions = append(criteria[i].Definitions, c.Definitions...)
				continue
			}
			seen[key] = len(criteria)
			criteria = append(criteria, c)
		}
		for i := range criteria {
			criteria[i].Order = i
			criteria[i].Definitions = normalize.CollapseDefinitions(criteria[i].Definitions)
		}
		f.Criteria = criteria
		out = append(out, f)
	}
	return out
}
