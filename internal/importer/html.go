package importer

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// blockElements end a line when HTML is flattened to text
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true, "h1": true, "h2": true,
	"h3": true, "h4": true, "h5": true, "h6": true, "section": true, "article": true,
}

// parseHTML reads every outermost <table> with the survey table rules.
// A page without tables falls back to the text heuristics.
func parseHTML(data []byte, res *Result) error {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}

	tables := findTables(doc)
	for _, t := range tables {
		res.Frameworks = append(res.Frameworks, parseTable(tableRows(t), res)...)
	}
	if len(tables) == 0 {
		var sb strings.Builder
		flatten(&sb, doc)
		parseText(sb.String(), res)
	}
	return nil
}

// findTables returns tables not nested inside another table
func findTables(n *html.Node) []*html.Node {
	var tables []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "table" {
			tables = append(tables, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return tables
}

// tableRows collects the cell text of rows that belong to table itself
func tableRows(table *html.Node) [][]string {
	var rows [][]string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "table":
				// nested tables stay inside their cell
			case "tr":
				rows = append(rows, rowCells(c))
			default:
				walk(c)
			}
		}
	}
	walk(table)
	return rows
}

func rowCells(tr *html.Node) []string {
	var cells []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
			var sb strings.Builder
			flatten(&sb, c)
			cells = append(cells, collapseLines(sb.String()))
		}
	}
	return cells
}

// flatten writes the visible text of n, one line per block element
func flatten(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.ElementNode:
		if n.Data == "script" || n.Data == "style" || n.Data == "noscript" {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		flatten(sb, c)
	}
	if n.Type == html.ElementNode && blockElements[n.Data] {
		sb.WriteByte('\n')
	}
}

// collapseLines trims every line and drops empty ones
func collapseLines(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
