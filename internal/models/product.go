package models

import "time"

// ProductRecord is one normalized catalog entry. SKU is the stable identity
// key derived from the product URL, so the same logical product keeps the
// same key across runs even when its name or price changes.
type ProductRecord struct {
	SKU                string    `json:"sku" db:"sku"`
	Name               string    `json:"name" db:"name"`
	URL                string    `json:"url" db:"url"`
	PricePence         int64     `json:"price_pence" db:"price_pence"`
	OriginalPricePence int64     `json:"original_price_pence,omitempty" db:"original_price_pence"`
	Available          bool      `json:"available" db:"available"`
	Chip               string    `json:"chip,omitempty" db:"chip"`
	Memory             string    `json:"memory,omitempty" db:"memory"`
	Storage            string    `json:"storage,omitempty" db:"storage"`
	Color              string    `json:"color,omitempty" db:"color"`
	ScrapedAt          time.Time `json:"scraped_at" db:"scraped_at"`
}

// SavingsPence is the vendor discount against the original retail price.
// Descriptive only, never diffed.
func (p ProductRecord) SavingsPence() int64 {
	if p.OriginalPricePence <= p.PricePence {
		return 0
	}
	return p.OriginalPricePence - p.PricePence
}
