package extractor

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

// Legacy template identifier suffixes. Forwarding and template nesting can
// prepend arbitrary text to these ids, so lookups match on the suffix only.
const (
	legacyTotalSuffix = "costBreakdownRight"
	legacyItemsSuffix = "itemDetails"
)

// amountStrategy attempts to pull the order total, in milliunits, out of a
// document. ok is false when the strategy found nothing.
type amountStrategy struct {
	name string
	fn   func(doc *goquery.Document) (amount int64, ok bool)
}

// itemStrategy attempts to pull item titles out of a document. An empty
// slice means the strategy found nothing.
type itemStrategy struct {
	name string
	fn   func(doc *goquery.Document) []string
}

var dollarPattern = regexp.MustCompile(`\$\d+\.\d{2}`)

// totalTableAmount scans tables in document order for one whose flattened
// text contains "Total" and yields a dollar amount. The first hit wins.
func totalTableAmount(doc *goquery.Document) (int64, bool) {
	var amount int64
	found := false

	doc.Find("table").EachWithBreak(func(_ int, tbl *goquery.Selection) bool {
		text := flattenSpace(tbl.Text())
		if !strings.Contains(text, "Total") {
			return true
		}
		match := dollarPattern.FindString(text)
		if match == "" {
			return true
		}
		parsed, err := parseDollars(match)
		if err != nil {
			return true
		}
		amount = parsed
		found = true
		return false
	})

	return amount, found
}

// legacyCostBreakdownAmount reads the total from the old-template cost
// breakdown table, whose single cell is a bare "$12.34".
func legacyCostBreakdownAmount(doc *goquery.Document) (int64, bool) {
	sel := doc.Find(`table[id$="` + legacyTotalSuffix + `"]`).First()
	if sel.Length() == 0 {
		return 0, false
	}

	text := strings.TrimSpace(flattenSpace(sel.Text()))
	if !strings.HasPrefix(text, "$") {
		return 0, false
	}

	amount, err := parseDollars(text)
	if err != nil {
		return 0, false
	}
	return amount, true
}

// productLinkItems collects item titles from product-detail anchors.
func (e *Extractor) productLinkItems(doc *goquery.Document) []string {
	var items []string
	seen := make(map[string]bool)

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !isProductLink(href) {
			return
		}

		text := strings.TrimSpace(flattenSpace(a.Text()))
		if text == "" || len(text) >= e.cfg.MaxTitleLen {
			return
		}
		for _, phrase := range e.cfg.SkipPhrases {
			if strings.Contains(text, phrase) {
				return
			}
		}

		text = normalizeTruncation(text)
		if !seen[text] {
			seen[text] = true
			items = append(items, text)
		}
	})

	return items
}

// legacyItemTableItems reads item titles out of the old-template item table,
// one row per item with the title inside a styling font element.
func (e *Extractor) legacyItemTableItems(doc *goquery.Document) []string {
	var items []string
	seen := make(map[string]bool)

	doc.Find(`table[id$="`+legacyItemsSuffix+`"] tr`).Each(func(_ int, row *goquery.Selection) {
		text := strings.TrimSpace(flattenSpace(row.Find("td font").First().Text()))
		if text == "" {
			return
		}

		text = normalizeTruncation(text)
		if !seen[text] {
			seen[text] = true
			items = append(items, text)
		}
	})

	return items
}

// isProductLink reports whether an href points at a product detail page.
func isProductLink(href string) bool {
	return strings.Contains(href, "/gp/product/") || strings.Contains(href, "/dp/")
}

// normalizeTruncation rewrites titles that Amazon cut off mid-word. The last
// whitespace token is the partial word plus the ellipsis; dropping it (and
// any trailing comma) yields a stable title regardless of where the template
// truncated, so the same item dedupes across emails.
func normalizeTruncation(title string) string {
	if !strings.HasSuffix(title, "...") && !strings.HasSuffix(title, "…") {
		return title
	}

	fields := strings.Fields(title)
	if len(fields) < 2 {
		return title
	}

	out := strings.Join(fields[:len(fields)-1], " ")
	out = strings.TrimSuffix(out, ",")
	return out + ".."
}

// parseDollars converts a "$12.34" string to milliunits using exact decimal
// arithmetic. Thousands separators are tolerated.
func parseDollars(s string) (int64, error) {
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.Mul(decimal.NewFromInt(1000)).IntPart(), nil
}

// flattenSpace collapses all whitespace runs to single spaces, matching how
// rendered HTML text reads.
func flattenSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
