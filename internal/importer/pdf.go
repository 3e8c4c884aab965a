package importer

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/dslipak/pdf"
)

// parsePDF extracts the plain text layer and applies the text heuristics.
// Image-only PDFs have no text layer and are reported as an error.
func parsePDF(data []byte, res *Result) error {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("failed to open PDF: %w", err)
	}

	b, err := r.GetPlainText()
	if err != nil {
		return fmt.Errorf("failed to read PDF text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(b); err != nil {
		return fmt.Errorf("failed to read PDF text: %w", err)
	}

	text := buf.String()
	if strings.TrimSpace(text) == "" {
		return errors.New("no text could be extracted; the PDF may be image-based")
	}
	parseText(text, res)
	return nil
}
