package rfm

import (
	"fmt"
	"testing"
	"time"

	"github.com/Veraticus/mentat/internal/common"
	"github.com/Veraticus/mentat/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2011, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d)
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name    string
		batch   []model.TransactionRecord
		opts    Options
		want    map[string]model.CustomerRFM
		wantErr error
	}{
		{
			name: "aggregates per customer with default reference date",
			batch: []model.TransactionRecord{
				{InvoiceNo: "I1", StockCode: "A", CustomerID: "C1", Quantity: 2, UnitPrice: 10, InvoiceDate: day(0)},
				{InvoiceNo: "I1", StockCode: "B", CustomerID: "C1", Quantity: 1, UnitPrice: 5, InvoiceDate: day(0)},
				{InvoiceNo: "I2", StockCode: "A", CustomerID: "C1", Quantity: 1, UnitPrice: 10, InvoiceDate: day(7)},
				{InvoiceNo: "I3", StockCode: "C", CustomerID: "C2", Quantity: 3, UnitPrice: 4, InvoiceDate: day(10)},
			},
			want: map[string]model.CustomerRFM{
				"C1": {CustomerID: "C1", Recency: 3, Frequency: 2, Monetary: 35},
				"C2": {CustomerID: "C2", Recency: 0, Frequency: 1, Monetary: 12},
			},
		},
		{
			name: "explicit reference date",
			batch: []model.TransactionRecord{
				{InvoiceNo: "I1", StockCode: "A", CustomerID: "C1", Quantity: 1, UnitPrice: 1, InvoiceDate: day(0)},
			},
			opts: Options{ReferenceDate: day(30)},
			want: map[string]model.CustomerRFM{
				"C1": {CustomerID: "C1", Recency: 30, Frequency: 1, Monetary: 1},
			},
		},
		{
			name:    "empty batch fails validation",
			batch:   nil,
			wantErr: common.ErrEmptyDataset,
		},
		{
			name: "missing customer id fails validation",
			batch: []model.TransactionRecord{
				{InvoiceNo: "I1", StockCode: "A", Quantity: 1, UnitPrice: 1, InvoiceDate: day(0)},
			},
			wantErr: common.ErrMissingField,
		},
		{
			name: "missing invoice no fails validation",
			batch: []model.TransactionRecord{
				{StockCode: "A", CustomerID: "C1", Quantity: 1, UnitPrice: 1, InvoiceDate: day(0)},
			},
			wantErr: common.ErrMissingField,
		},
		{
			name: "zero invoice date fails validation",
			batch: []model.TransactionRecord{
				{InvoiceNo: "I1", StockCode: "A", CustomerID: "C1", Quantity: 1, UnitPrice: 1},
			},
			wantErr: common.ErrMissingField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compute(tt.batch, tt.opts)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Len(t, got, len(tt.want))
			for _, c := range got {
				want, ok := tt.want[c.CustomerID]
				require.True(t, ok, "unexpected customer %s", c.CustomerID)
				assert.Equal(t, want.Recency, c.Recency, "recency for %s", c.CustomerID)
				assert.Equal(t, want.Frequency, c.Frequency, "frequency for %s", c.CustomerID)
				assert.InDelta(t, want.Monetary, c.Monetary, 1e-9, "monetary for %s", c.CustomerID)
			}
		})
	}
}

func TestComputeInvariants(t *testing.T) {
	// recency >= 0, frequency >= 1, monetary >= 0 for any clean batch.
	batch := make([]model.TransactionRecord, 0, 60)
	for i := 0; i < 60; i++ {
		batch = append(batch, model.TransactionRecord{
			InvoiceNo:   fmt.Sprintf("I%d", i/2),
			StockCode:   fmt.Sprintf("S%d", i%7),
			CustomerID:  fmt.Sprintf("C%d", i%13),
			Quantity:    i%5 + 1,
			UnitPrice:   float64(i%9) + 0.5,
			InvoiceDate: day(i % 40),
		})
	}

	got, err := Compute(batch, Options{})
	require.NoError(t, err)

	for _, c := range got {
		assert.GreaterOrEqual(t, c.Recency, 0)
		assert.GreaterOrEqual(t, c.Frequency, 1)
		assert.GreaterOrEqual(t, c.Monetary, 0.0)
		assert.GreaterOrEqual(t, c.RScore, 1)
		assert.LessOrEqual(t, c.RScore, 5)
		assert.GreaterOrEqual(t, c.FScore, 1)
		assert.LessOrEqual(t, c.FScore, 5)
		assert.GreaterOrEqual(t, c.MScore, 1)
		assert.LessOrEqual(t, c.MScore, 5)
		assert.Len(t, c.RFMScore(), 3)
	}
}

func TestComputeQuantileScores(t *testing.T) {
	// 10 customers with strictly increasing monetary should spread evenly
	// across the five buckets, two per bucket.
	batch := make([]model.TransactionRecord, 0, 10)
	for i := 0; i < 10; i++ {
		batch = append(batch, model.TransactionRecord{
			InvoiceNo:   fmt.Sprintf("I%d", i),
			StockCode:   "A",
			CustomerID:  fmt.Sprintf("C%02d", i),
			Quantity:    1,
			UnitPrice:   float64((i + 1) * 10),
			InvoiceDate: day(i),
		})
	}

	got, err := Compute(batch, Options{})
	require.NoError(t, err)
	require.Len(t, got, 10)

	counts := make(map[int]int)
	for _, c := range got {
		counts[c.MScore]++
	}
	for score := 1; score <= 5; score++ {
		assert.Equal(t, 2, counts[score], "monetary bucket %d", score)
	}

	// Most recent purchaser scores highest on recency.
	last := got[9] // C09 purchased on the reference date
	assert.Equal(t, 0, last.Recency)
	assert.Equal(t, 5, last.RScore)
}

func TestComputeCollapsedBuckets(t *testing.T) {
	// Two distinct monetary values cannot fill five buckets; scoring must
	// degrade instead of erroring and scores must stay within 1..5.
	batch := []model.TransactionRecord{
		{InvoiceNo: "I1", StockCode: "A", CustomerID: "C1", Quantity: 1, UnitPrice: 10, InvoiceDate: day(0)},
		{InvoiceNo: "I2", StockCode: "A", CustomerID: "C2", Quantity: 1, UnitPrice: 10, InvoiceDate: day(1)},
		{InvoiceNo: "I3", StockCode: "A", CustomerID: "C3", Quantity: 1, UnitPrice: 99, InvoiceDate: day(2)},
	}

	got, err := Compute(batch, Options{})
	require.NoError(t, err)
	for _, c := range got {
		assert.GreaterOrEqual(t, c.MScore, 1)
		assert.LessOrEqual(t, c.MScore, 5)
	}
}

func TestSummarize(t *testing.T) {
	customers := []model.CustomerRFM{
		{CustomerID: "C1", Recency: 10, Frequency: 2, Monetary: 100},
		{CustomerID: "C2", Recency: 20, Frequency: 4, Monetary: 300},
	}

	s := Summarize(customers)

	assert.Equal(t, 2, s.TotalCustomers)
	assert.InDelta(t, 15, s.AvgRecency, 1e-9)
	assert.InDelta(t, 3, s.AvgFrequency, 1e-9)
	assert.InDelta(t, 200, s.AvgMonetary, 1e-9)
	assert.InDelta(t, 15, s.MedianRecency, 1e-9)
}
