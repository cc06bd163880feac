package ingest

import (
	"strings"

	"github.com/meridianbi/meridian/internal/model"
)

// AmazonMapper maps the Amazon sale report extract. Column names follow the
// seller-central export ("Order ID", "Qty", "ship-city", ...).
type AmazonMapper struct{}

// Source implements Mapper.
func (AmazonMapper) Source() string { return "amazon" }

// Map implements Mapper.
func (AmazonMapper) Map(row Row) (model.OrderLine, bool) {
	line := model.OrderLine{
		Channel: model.ChannelAmazon,
		Quality: model.QualityValid,
		OrderID: row.Get("Order ID"),
		SKU:     row.Get("SKU"),
	}
	if line.OrderID == "" || line.SKU == "" {
		return line, false
	}

	if d, ok := tryParseDate(row.Get("Date")); ok {
		line.OrderDate = d
	} else {
		line.Quality = model.QualityInvalid
	}
	if q, ok := tryParseInt(row.Get("Qty")); ok && q >= 0 {
		line.Quantity = q
	} else {
		line.Quality = model.QualityInvalid
	}
	if amt, ok := tryParseFloat(row.Get("Amount")); ok && amt >= 0 {
		line.Amount = amt
	} else {
		line.Quality = model.QualityInvalid
	}

	line.City = row.Get("ship-city")
	line.State = row.Get("ship-state")
	line.ProductCategory = row.Get("Category")
	line.Fulfillment = row.Get("Fulfilment")
	line.IsB2B = strings.EqualFold(row.Get("B2B"), "true")
	if line.IsB2B {
		line.CustomerSegment = "B2B"
	} else {
		line.CustomerSegment = "B2C"
	}

	return finalize(line), true
}
