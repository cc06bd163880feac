// Package ingest reads channel-specific CSV extracts and maps them onto the
// canonical order-line schema. Parsing is forgiving: a bad field nulls the
// field and flags the row INVALID, a missing primary identifier drops the
// row, and nothing aborts the batch.
package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/meridianbi/meridian/internal/common"
	"github.com/meridianbi/meridian/internal/model"
)

// Row is one CSV record with name-based column access. Lookups are
// case-insensitive; absent columns read as the empty string.
type Row struct {
	columns map[string]int
	record  []string
}

// Get returns the trimmed value of the named column, or "" when the column
// is absent from this source or the record is short.
func (r Row) Get(name string) string {
	idx, ok := r.columns[strings.ToLower(strings.TrimSpace(name))]
	if !ok || idx >= len(r.record) {
		return ""
	}
	return strings.TrimSpace(r.record[idx])
}

// Mapper converts source rows into canonical order lines.
//
// Map returns ok=false when the row is missing its primary identifier and
// must be dropped entirely. Rows that map but fail try-parse on other fields
// come back flagged INVALID.
type Mapper interface {
	Source() string
	Map(row Row) (model.OrderLine, bool)
}

// MapperFor returns the mapper registered for a source name.
func MapperFor(source string) (Mapper, error) {
	switch strings.ToLower(strings.TrimSpace(source)) {
	case "amazon":
		return AmazonMapper{}, nil
	case "international":
		return InternationalMapper{}, nil
	case "merchant":
		return MerchantMapper{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", common.ErrUnknownSource, source)
	}
}

// dateLayouts are tried in order; the extracts are not consistent about
// date formatting even within one channel.
var dateLayouts = []string{
	"2006-01-02",
	"01-02-06",
	"01-02-2006",
	"01/02/2006",
	"01/02/06",
}

func tryParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func tryParseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	// Extracts occasionally carry thousands separators and currency noise.
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "₹")
	s = strings.TrimPrefix(s, "$")
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func tryParseInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		// Some sheets format counts as floats.
		f, ferr := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, false
		}
		return int(f), true
	}
	return v, true
}

// finalize derives the proxy customer key and content hash once all mapped
// fields are in place.
func finalize(line model.OrderLine) model.OrderLine {
	line.CustomerKey = line.DeriveCustomerKey()
	line.ContentHash = line.GenerateContentHash()
	return line
}
