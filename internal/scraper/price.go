package scraper

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/refurbtrack/refurb-tracker/pkg/encoding"
	"github.com/shopspring/decimal"
)

var priceRe = regexp.MustCompile(`£\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)`)

// ParsePricePence extracts the first sterling amount from a scraped text
// fragment and returns it in integer pence. Diffing compares prices in
// minor units, so no float ever touches a price after this point.
func ParsePricePence(text string) (int64, error) {
	m := priceRe.FindStringSubmatch(encoding.CleanText(text))
	if m == nil {
		return 0, fmt.Errorf("no price found in %q", text)
	}

	d, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return 0, fmt.Errorf("unparseable price %q: %w", m[1], err)
	}
	return d.Mul(decimal.NewFromInt(100)).IntPart(), nil
}

// FormatPence renders a pence amount back as a sterling string for logs.
func FormatPence(pence int64) string {
	d := decimal.NewFromInt(pence).Div(decimal.NewFromInt(100))
	return "£" + d.StringFixed(2)
}
