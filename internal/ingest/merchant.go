package ingest

import (
	"strings"

	"github.com/meridianbi/meridian/internal/model"
)

// MerchantMapper maps the direct-merchant extract, which already uses close
// to canonical column names.
type MerchantMapper struct{}

// Source implements Mapper.
func (MerchantMapper) Source() string { return "merchant" }

// Map implements Mapper.
func (MerchantMapper) Map(row Row) (model.OrderLine, bool) {
	line := model.OrderLine{
		Channel: model.ChannelMerchant,
		Quality: model.QualityValid,
		OrderID: row.Get("Order Id"),
		SKU:     row.Get("Sku"),
	}
	if line.OrderID == "" || line.SKU == "" {
		return line, false
	}

	if d, ok := tryParseDate(row.Get("Date")); ok {
		line.OrderDate = d
	} else {
		line.Quality = model.QualityInvalid
	}
	if q, ok := tryParseInt(row.Get("Quantity")); ok && q >= 0 {
		line.Quantity = q
	} else {
		line.Quality = model.QualityInvalid
	}
	if amt, ok := tryParseFloat(row.Get("Amount")); ok && amt >= 0 {
		line.Amount = amt
	} else {
		line.Quality = model.QualityInvalid
	}

	line.City = row.Get("City")
	line.State = row.Get("State")
	line.CustomerSegment = row.Get("Customer Segment")
	if line.CustomerSegment == "" {
		line.CustomerSegment = "B2C"
	}
	line.ProductCategory = row.Get("Category")
	line.Fulfillment = row.Get("Fulfilment")
	line.IsB2B = strings.EqualFold(row.Get("B2B"), "true")

	return finalize(line), true
}
