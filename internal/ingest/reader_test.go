package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianbi/meridian/internal/common"
	"github.com/meridianbi/meridian/internal/model"
)

func TestRead_AmazonExtract(t *testing.T) {
	csvData := `Order ID,Date,SKU,Qty,Amount,ship-city,ship-state,Category,B2B,Fulfilment
ORD-1,2024-01-05,SKU-1,1,100.00,Mumbai,Maharashtra,Kurta,FALSE,Amazon
ORD-2,2024-01-06,SKU-2,2,"1,250.50",Delhi,Delhi,Set,TRUE,Merchant
,2024-01-07,SKU-3,1,50.00,Pune,Maharashtra,Top,FALSE,Amazon
ORD-4,bad-date,SKU-4,1,75.00,Chennai,Tamil Nadu,Top,FALSE,Amazon
ORD-5,2024-01-08,SKU-5,1,,Kolkata,West Bengal,Saree,FALSE,Amazon`

	result, err := Read(context.Background(), strings.NewReader(csvData), AmazonMapper{})
	require.NoError(t, err)

	assert.Equal(t, 5, result.Read)
	assert.Equal(t, 1, result.Dropped, "row without order id is dropped")
	assert.Equal(t, 2, result.Invalid, "bad date and missing amount are flagged")
	require.Len(t, result.Lines, 4)

	first := result.Lines[0]
	assert.Equal(t, "ORD-1", first.OrderID)
	assert.Equal(t, model.ChannelAmazon, first.Channel)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), first.OrderDate)
	assert.Equal(t, 1, first.Quantity)
	assert.InDelta(t, 100.0, first.Amount, 0.001)
	assert.Equal(t, "Mumbai", first.City)
	assert.Equal(t, "B2C", first.CustomerSegment)
	assert.Equal(t, model.QualityValid, first.Quality)
	assert.NotEmpty(t, first.CustomerKey)
	assert.NotEmpty(t, first.ContentHash)

	b2b := result.Lines[1]
	assert.True(t, b2b.IsB2B)
	assert.Equal(t, "B2B", b2b.CustomerSegment)
	assert.InDelta(t, 1250.50, b2b.Amount, 0.001, "thousands separator is stripped")

	badDate := result.Lines[2]
	assert.Equal(t, model.QualityInvalid, badDate.Quality)
	assert.True(t, badDate.OrderDate.IsZero(), "unparseable date stays at null sentinel")

	noAmount := result.Lines[3]
	assert.Equal(t, model.QualityInvalid, noAmount.Quality)
	assert.Zero(t, noAmount.Amount)
}

func TestRead_InternationalExtract(t *testing.T) {
	csvData := `DATE,Months,CUSTOMER,Style,SKU,PCS,RATE,GROSS AMT
2024-02-01,Feb-24,LOGANATHAN,MEN5001,MEN5001-KR-L,3,200,600
2024-02-02,Feb-24,REVATHY,MEN5002,,2,150,300`

	result, err := Read(context.Background(), strings.NewReader(csvData), InternationalMapper{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Dropped, "row without SKU is dropped")
	require.Len(t, result.Lines, 1)

	line := result.Lines[0]
	assert.Equal(t, model.ChannelInternational, line.Channel)
	assert.Equal(t, "INTL-2024-02-01-LOGANATHAN-MEN5001-KR-L", line.OrderID)
	assert.Equal(t, "LOGANATHAN", line.CustomerSegment)
	assert.Equal(t, 3, line.Quantity)
	assert.InDelta(t, 600.0, line.Amount, 0.001)
	assert.Equal(t, model.QualityValid, line.Quality)
	assert.Empty(t, line.City, "international extracts carry no city")
}

func TestRead_MerchantExtract(t *testing.T) {
	csvData := `Order Id,Sku,Date,Quantity,Amount,City,State,Customer Segment,Category
M-1,SKU-9,2024-03-01,1,450,Jaipur,Rajasthan,Consumer,Dress`

	result, err := Read(context.Background(), strings.NewReader(csvData), MerchantMapper{})
	require.NoError(t, err)
	require.Len(t, result.Lines, 1)

	line := result.Lines[0]
	assert.Equal(t, model.ChannelMerchant, line.Channel)
	assert.Equal(t, "Consumer", line.CustomerSegment)
	assert.Equal(t, "Jaipur", line.City)
}

func TestRead_HeaderLookupIsCaseInsensitive(t *testing.T) {
	csvData := `ORDER ID,DATE,sku,QTY,amount,SHIP-CITY,ship-state,category,b2b,FULFILMENT
ORD-1,2024-01-05,SKU-1,1,100.00,Mumbai,Maharashtra,Kurta,FALSE,Amazon`

	result, err := Read(context.Background(), strings.NewReader(csvData), AmazonMapper{})
	require.NoError(t, err)
	require.Len(t, result.Lines, 1)
	assert.Equal(t, "ORD-1", result.Lines[0].OrderID)
	assert.Equal(t, model.QualityValid, result.Lines[0].Quality)
}

func TestRead_EmptyInput(t *testing.T) {
	_, err := Read(context.Background(), strings.NewReader(""), AmazonMapper{})
	assert.ErrorIs(t, err, common.ErrMissingHeader)
}

func TestRead_NoUsableRows(t *testing.T) {
	csvData := `Order ID,Date,SKU,Qty,Amount
,2024-01-05,,1,100`
	_, err := Read(context.Background(), strings.NewReader(csvData), AmazonMapper{})
	assert.ErrorIs(t, err, common.ErrNoUsableRows)
}

func TestRead_IdenticalRowsHashIdentically(t *testing.T) {
	// Same key fields in different file positions must fingerprint the same.
	csvA := `Order ID,Date,SKU,Qty,Amount
ORD-1,2024-01-05,SKU-1,1,100
ORD-2,2024-01-06,SKU-2,1,200`
	csvB := `Order ID,Date,SKU,Qty,Amount
ORD-2,2024-01-06,SKU-2,1,200
ORD-1,2024-01-05,SKU-1,1,100`

	resultA, err := Read(context.Background(), strings.NewReader(csvA), AmazonMapper{})
	require.NoError(t, err)
	resultB, err := Read(context.Background(), strings.NewReader(csvB), AmazonMapper{})
	require.NoError(t, err)

	hashes := func(lines []model.OrderLine) map[string]bool {
		out := make(map[string]bool)
		for _, l := range lines {
			out[l.ContentHash] = true
		}
		return out
	}
	assert.Equal(t, hashes(resultA.Lines), hashes(resultB.Lines))
}

func TestMapperFor(t *testing.T) {
	tests := []struct {
		source  string
		wantErr bool
	}{
		{source: "amazon"},
		{source: "International"},
		{source: " merchant "},
		{source: "shopify", wantErr: true},
		{source: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			m, err := MapperFor(tt.source)
			if tt.wantErr {
				if !errors.Is(err, common.ErrUnknownSource) {
					t.Errorf("expected ErrUnknownSource, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if m == nil {
				t.Fatal("expected a mapper")
			}
		})
	}
}
