package importer

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// docxBody is the text content of word/document.xml
type docxBody struct {
	tables     [][][]string
	paragraphs []string
}

// parseDOCX prefers tables; a document without tables falls back to the
// plain text heuristics over its paragraphs
func parseDOCX(data []byte, res *Result) error {
	body, err := readDOCX(data)
	if err != nil {
		return err
	}
	for i, table := range body.tables {
		fws := parseTable(table, res)
		if len(fws) == 0 && len(table) > 1 {
			res.warnf("table %d: no frameworks recognized", i+1)
		}
		res.Frameworks = append(res.Frameworks, fws...)
	}
	if len(body.tables) == 0 {
		parseText(strings.Join(body.paragraphs, "\n"), res)
	}
	return nil
}

func readDOCX(data []byte) (*docxBody, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open docx zip: %w", err)
	}

	var documentXML *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			documentXML = f
			break
		}
	}
	if documentXML == nil {
		return nil, errors.New("invalid docx: missing word/document.xml")
	}

	rc, err := documentXML.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return decodeDocument(rc)
}

// decodeDocument walks the WordprocessingML stream. Nested tables are
// flattened into the text of their enclosing cell.
func decodeDocument(r io.Reader) (*docxBody, error) {
	body := &docxBody{}
	decoder := xml.NewDecoder(r)

	var (
		depth     int
		inText    bool
		para      strings.Builder
		cellParas []string
		row       []string
		table     [][]string
	)

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode document.xml: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				depth++
				if depth == 1 {
					table = nil
				}
			case "tr":
				if depth == 1 {
					row = nil
				}
			case "tc":
				if depth == 1 {
					cellParas = nil
				}
			case "p":
				para.Reset()
			case "t":
				inText = true
			case "tab":
				para.WriteByte('\t')
			case "br":
				para.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				text := strings.TrimSpace(para.String())
				if text == "" {
					continue
				}
				if depth > 0 {
					cellParas = append(cellParas, text)
				} else {
					body.paragraphs = append(body.paragraphs, text)
				}
			case "tc":
				if depth == 1 {
					row = append(row, strings.Join(cellParas, "\n"))
				}
			case "tr":
				if depth == 1 {
					table = append(table, row)
				}
			case "tbl":
				if depth == 1 {
					body.tables = append(body.tables, table)
				}
				if depth > 0 {
					depth--
				}
			}
		}
	}
	return body, nil
}
