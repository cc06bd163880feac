package ingest

import (
	"fmt"

	"github.com/meridianbi/meridian/internal/model"
)

// InternationalMapper maps the international sale sheet. The sheet has no
// order identifier of its own, so a surrogate is synthesized from the date,
// buyer, and SKU; rows without a SKU are dropped. There is no shipping city
// either, which leaves that part of the customer-key derivation at its null
// sentinel.
type InternationalMapper struct{}

// Source implements Mapper.
func (InternationalMapper) Source() string { return "international" }

// Map implements Mapper.
func (InternationalMapper) Map(row Row) (model.OrderLine, bool) {
	line := model.OrderLine{
		Channel: model.ChannelInternational,
		Quality: model.QualityValid,
		SKU:     row.Get("SKU"),
	}
	if line.SKU == "" {
		return line, false
	}

	rawDate := row.Get("DATE")
	customer := row.Get("CUSTOMER")
	line.OrderID = fmt.Sprintf("INTL-%s-%s-%s", rawDate, customer, line.SKU)

	if d, ok := tryParseDate(rawDate); ok {
		line.OrderDate = d
	} else {
		line.Quality = model.QualityInvalid
	}
	if q, ok := tryParseInt(row.Get("PCS")); ok && q >= 0 {
		line.Quantity = q
	} else {
		line.Quality = model.QualityInvalid
	}
	if amt, ok := tryParseFloat(row.Get("GROSS AMT")); ok && amt >= 0 {
		line.Amount = amt
	} else {
		line.Quality = model.QualityInvalid
	}

	line.CustomerSegment = customer
	line.ProductCategory = row.Get("Style")
	line.Fulfillment = "export"

	return finalize(line), true
}
