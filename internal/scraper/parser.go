package scraper

import (
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/refurbtrack/refurb-tracker/internal/models"
	"github.com/refurbtrack/refurb-tracker/pkg/encoding"
)

var skuSuffixRe = regexp.MustCompile(`^[A-Z]{1,3}$`)

// SKUFromURL derives the stable identity key from a product URL. Vendor
// product paths look like /uk/shop/product/G1EJ3B/A/macbook-air-13inch;
// the segment after "product" (plus the short variant suffix when present)
// is the model SKU and survives name and price edits.
func SKUFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("bad product url %q: %w", raw, err)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, seg := range segments {
		if seg != "product" || i+1 >= len(segments) {
			continue
		}
		sku := segments[i+1]
		if i+2 < len(segments) && skuSuffixRe.MatchString(segments[i+2]) {
			sku += "/" + segments[i+2]
		}
		return sku, nil
	}
	return "", fmt.Errorf("no product segment in url %q", raw)
}

// DiscoverCategoryLinks finds the refurbished subcategory pages linked from
// the landing page (macbook-air, macbook-pro, imac, ...), absolutized
// against base and deduplicated. The landing page itself is not included.
func DiscoverCategoryLinks(r io.Reader, base string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse landing page: %w", err)
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("bad base url %q: %w", base, err)
	}

	seen := map[string]bool{}
	var links []string
	doc.Find("a[href*='/shop/refurbished/mac/']").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := baseURL.ResolveReference(ref)
		abs.Fragment = ""
		abs.RawQuery = ""
		if s := abs.String(); !seen[s] {
			seen[s] = true
			links = append(links, s)
		}
	})
	return links, nil
}

// ParseCategoryPage extracts product records from one category page. A tile
// is anchored on its product link; name comes from the link text, prices
// from the surrounding tile markup with a whole-tile regex fallback, the
// same way the price usually sits one wrapper above the link.
func ParseCategoryPage(r io.Reader, pageURL string, now time.Time) ([]models.ProductRecord, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse category page %s: %w", pageURL, err)
	}

	baseURL, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("bad page url %q: %w", pageURL, err)
	}

	var records []models.ProductRecord
	doc.Find("a[href*='/shop/product/']").Each(func(_ int, link *goquery.Selection) {
		name := encoding.CleanText(link.Text())
		if name == "" {
			return // image links, "Learn more" etc.
		}

		href, _ := link.Attr("href")
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		productURL := baseURL.ResolveReference(ref)
		productURL.Fragment = ""
		productURL.RawQuery = ""

		sku, err := SKUFromURL(productURL.String())
		if err != nil {
			return
		}

		tile := link.Closest("li, div.rf-refurb-category-grid-no-js, div")
		current, original := tilePrices(tile)
		if current == 0 {
			return // navigation link without a price tile
		}

		records = append(records, models.ProductRecord{
			SKU:                sku,
			Name:               name,
			URL:                productURL.String(),
			PricePence:         current,
			OriginalPricePence: original,
			Available:          true,
			Chip:               matchSpec(name, chipRe),
			Memory:             matchSpec(name, memoryRe),
			Storage:            matchSpec(name, storageRe),
			ScrapedAt:          now,
		})
	})
	return records, nil
}

var (
	chipRe    = regexp.MustCompile(`Apple (M[0-9]+(?: (?:Pro|Max|Ultra))?) Chip`)
	memoryRe  = regexp.MustCompile(`([0-9]+)GB (?:Unified )?Memory`)
	storageRe = regexp.MustCompile(`([0-9]+(?:GB|TB)) (?:SSD|Storage)`)
)

func matchSpec(name string, re *regexp.Regexp) string {
	if m := re.FindStringSubmatch(name); m != nil {
		return m[1]
	}
	return ""
}

// tilePrices returns (current, original) in pence. Original is the
// struck-through retail price and may be absent.
func tilePrices(tile *goquery.Selection) (int64, int64) {
	var current, original int64

	if text := tile.Find(".as-price-currentprice, .rf-refurb-price-currentprice").First().Text(); text != "" {
		current, _ = ParsePricePence(text)
	}
	if text := tile.Find(".as-price-previousprice, .rf-refurb-price-previousprice, s").First().Text(); text != "" {
		original, _ = ParsePricePence(text)
	}

	if current == 0 {
		// Fallback: first and second amounts anywhere in the tile text
		amounts := priceRe.FindAllString(encoding.CleanText(tile.Text()), 2)
		if len(amounts) > 0 {
			current, _ = ParsePricePence(amounts[0])
		}
		if len(amounts) > 1 {
			original, _ = ParsePricePence(amounts[1])
		}
	}
	return current, original
}
