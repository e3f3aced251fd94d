package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/JakeFAU/company-list-crawler/internal/crawler"
)

// DefaultTableSelector matches the records table on company-list pages.
const DefaultTableSelector = "table#table"

// TableExtractor reads company rows out of the records table.
type TableExtractor struct {
	selector string
}

// NewTableExtractor builds a TableExtractor for the given CSS selector.
func NewTableExtractor(selector string) *TableExtractor {
	if strings.TrimSpace(selector) == "" {
		selector = DefaultTableSelector
	}
	return &TableExtractor{selector: selector}
}

// Extract returns the rows that carry both a name and a company, in document
// order. Other rows (headers, spacers, malformed rows) are counted and dropped.
func (e *TableExtractor) Extract(body []byte) (crawler.Table, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return crawler.Table{}, fmt.Errorf("parse page html: %w", err)
	}

	var out crawler.Table
	table := doc.Find(e.selector).First()
	if table.Length() == 0 {
		return out, nil
	}

	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		record, ok := rowRecord(row)
		if !ok {
			out.SkippedRows++
			return
		}
		out.Records = append(out.Records, record)
	})
	return out, nil
}

func rowRecord(row *goquery.Selection) (crawler.Record, bool) {
	cells := row.ChildrenFiltered("td")
	name, hasName := firstText(cells.Eq(0))
	company := strings.TrimSpace(cells.Eq(1).Text())
	if !hasName || company == "" {
		return crawler.Record{}, false
	}
	roc, _ := firstText(cells.Eq(2))
	status, _ := firstText(cells.Eq(3))
	return crawler.Record{
		Name:    name,
		Company: company,
		ROC:     roc,
		Status:  status,
	}, true
}

// firstText returns the first non-blank direct text child of the cell.
func firstText(cell *goquery.Selection) (string, bool) {
	for _, node := range cell.Nodes {
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			if child.Type != html.TextNode {
				continue
			}
			if text := strings.TrimSpace(child.Data); text != "" {
				return text, true
			}
		}
	}
	return "", false
}
