package extract

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/JakeFAU/company-list-crawler/internal/crawler"
)

// DefaultPaginationXPath selects the first text node carrying "Page N of M".
const DefaultPaginationXPath = "//span[contains(text(),'Page')]/text()"

var leadingCount = regexp.MustCompile(`^\s*([0-9][0-9,]*)`)

// PaginationResolver finds the total page count in the listing page copy.
type PaginationResolver struct {
	xpath string
}

// NewPaginationResolver builds a resolver for the given XPath expression.
func NewPaginationResolver(xpath string) *PaginationResolver {
	if strings.TrimSpace(xpath) == "" {
		xpath = DefaultPaginationXPath
	}
	return &PaginationResolver{xpath: xpath}
}

// ResolveTotalPages returns M from the first "... of M" text node. It fails
// with crawler.ErrPaginationNotFound or crawler.ErrPaginationFormat.
func (r *PaginationResolver) ResolveTotalPages(body []byte) (int, error) {
	doc, err := htmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("parse listing html: %w", err)
	}
	node, err := htmlquery.Query(doc, r.xpath)
	if err != nil {
		return 0, fmt.Errorf("evaluate pagination xpath %q: %w", r.xpath, err)
	}
	if node == nil {
		return 0, crawler.ErrPaginationNotFound
	}
	text := node.Data
	if node.Type != html.TextNode {
		text = htmlquery.InnerText(node)
	}
	return ParsePageCount(text)
}

// ParsePageCount extracts the number after the first "of", dropping
// thousands separators: "Page 1 of 1,234" yields 1234.
func ParsePageCount(text string) (int, error) {
	parts := strings.Split(text, "of")
	if len(parts) < 2 {
		return 0, fmt.Errorf("%w: no total in %q", crawler.ErrPaginationFormat, text)
	}
	match := leadingCount.FindStringSubmatch(parts[1])
	if match == nil {
		return 0, fmt.Errorf("%w: no total in %q", crawler.ErrPaginationFormat, text)
	}
	total, err := strconv.Atoi(strings.ReplaceAll(match[1], ",", ""))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", crawler.ErrPaginationFormat, err)
	}
	return total, nil
}
