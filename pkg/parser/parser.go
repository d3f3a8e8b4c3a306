package parser

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/leakdiff/pkg/record"
	"golang.org/x/net/html"
)

// nullValues are cell texts that mean "no value" on the diagnostics pages.
var nullValues = map[string]bool{
	"":          true,
	"n/a":       true,
	"none":      true,
	"undefined": true,
}

// Parser turns a fetched body into a record.
type Parser interface {
	Parse(body string) (record.Record, error)
}

// New returns the parser for a parse mode ("table" or "json").
func New(mode string, n Normalizer, logger *slog.Logger) (Parser, error) {
	switch mode {
	case "", "table":
		return &TableParser{Normalizer: n, Logger: logger}, nil
	case "json":
		return &JSONParser{Normalizer: n}, nil
	default:
		return nil, fmt.Errorf("unknown parse mode %q", mode)
	}
}

// TableParser reads two-column table rows into a record.
type TableParser struct {
	Normalizer Normalizer
	Logger     *slog.Logger
}

// Parse scans every table row of the document. Rows with fewer than two cells
// are ignored; the first cell is the label, the second the value. When two rows
// normalize to the same key the later row wins.
func (p *TableParser) Parse(body string) (record.Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	out := record.Record{}
	doc.Find("tr").Each(func(i int, tr *goquery.Selection) {
		tds := tr.Find("td")
		if tds.Length() < 2 {
			return
		}
		label := cellText(tds.Get(0))
		key := p.Normalizer.Normalize(label)
		if prev, seen := out[key]; seen && p.Logger != nil {
			p.Logger.Debug("duplicate row key, keeping later value", "key", key, "label", label, "previous", prev)
		}
		out[key] = normalizeValue(cellText(tds.Get(1)))
	})

	return out, nil
}

// FindLabel returns the second cell of the first row whose first cell is
// exactly label.
func FindLabel(body, label string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", false
	}
	var value string
	var found bool
	doc.Find("tr").EachWithBreak(func(i int, tr *goquery.Selection) bool {
		tds := tr.Find("td")
		if tds.Length() >= 2 && cellText(tds.Get(0)) == label {
			value = cellText(tds.Get(1))
			found = true
			return false
		}
		return true
	})
	return value, found
}

// Title returns the trimmed document title.
func Title(body string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// normalizeValue maps placeholder texts to nil.
func normalizeValue(text string) any {
	if nullValues[strings.ToLower(text)] {
		return nil
	}
	return text
}

// cellText joins the text below n with single spaces; runs of whitespace
// inside and between text nodes collapse.
func cellText(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			parts = append(parts, strings.Fields(node.Data)...)
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, " ")
}
