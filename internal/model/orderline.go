// Package model defines the core domain types shared across the pipeline.
package model

import (
	"crypto/md5" //nolint:gosec // change-detection fingerprint, not security
	"fmt"
	"strings"
	"time"
)

// Channel identifies the sales channel an order line came from.
type Channel string

// Known sales channels.
const (
	ChannelAmazon        Channel = "amazon"
	ChannelInternational Channel = "international"
	ChannelMerchant      Channel = "merchant"
)

// QualityFlag marks whether a row passed ingestion validation.
type QualityFlag string

// Quality tiers. Rows missing their primary identifier are dropped outright
// and never carry a flag; INVALID rows are kept but excluded from aggregation.
const (
	QualityValid   QualityFlag = "VALID"
	QualityInvalid QualityFlag = "INVALID"
)

// OrderLine is one sold unit/transaction line in the canonical schema.
// Fields that could not be mapped from a source stay at their zero value.
type OrderLine struct {
	OrderDate        time.Time
	OrderID          string
	SKU              string
	Channel          Channel
	City             string
	State            string
	CustomerSegment  string
	ProductCategory  string
	Fulfillment      string
	CustomerKey      string
	ContentHash      string
	Quality          QualityFlag
	ValueTier        string
	Season           string
	CityTier         string
	FulfillmentModel string
	Quantity         int
	Amount           float64
	PerformanceScore float64
	IsB2B            bool
}

// DeriveCustomerKey computes the proxy customer identity. No stable customer
// ID exists in the source extracts, so identity is an MD5 over the available
// identifying attributes: city|segment|sku for most channels, with state
// added for Amazon rows. The same real customer may map to several keys and
// distinct customers may collide; downstream treats that as a known
// data-quality artifact, not something to repair.
func (o *OrderLine) DeriveCustomerKey() string {
	parts := []string{normalizeKeyPart(o.City)}
	if o.Channel == ChannelAmazon {
		parts = append(parts, normalizeKeyPart(o.State))
	}
	parts = append(parts, normalizeKeyPart(o.CustomerSegment), normalizeKeyPart(o.SKU))

	sum := md5.Sum([]byte(strings.Join(parts, "|"))) //nolint:gosec
	return fmt.Sprintf("%x", sum)
}

// GenerateContentHash creates a stable fingerprint over the key fields for
// change detection between runs. Two rows with identical key-field values
// hash identically regardless of row order in the source file.
func (o *OrderLine) GenerateContentHash() string {
	data := fmt.Sprintf("%s:%s:%s:%.2f:%d:%s",
		o.OrderID,
		o.SKU,
		o.OrderDate.Format("2006-01-02"),
		o.Amount,
		o.Quantity,
		o.Channel)
	sum := md5.Sum([]byte(data)) //nolint:gosec
	return fmt.Sprintf("%x", sum)
}

func normalizeKeyPart(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
