package report

import (
	"testing"
	"time"

	"github.com/Veraticus/mentat/internal/common"
	"github.com/Veraticus/mentat/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	jan := time.Date(2011, time.January, 15, 10, 0, 0, 0, time.UTC)
	feb := time.Date(2011, time.February, 3, 12, 0, 0, 0, time.UTC)

	batch := []model.TransactionRecord{
		{InvoiceNo: "I1", StockCode: "A", Description: "TEAPOT", CustomerID: "C1", Country: "United Kingdom", Quantity: 10, UnitPrice: 2, InvoiceDate: jan},
		{InvoiceNo: "I1", StockCode: "B", Description: "MUG", CustomerID: "C1", Country: "United Kingdom", Quantity: 2, UnitPrice: 5, InvoiceDate: jan},
		{InvoiceNo: "I2", StockCode: "A", Description: "TEAPOT", CustomerID: "C2", Country: "France", Quantity: 5, UnitPrice: 2, InvoiceDate: feb},
	}

	o, err := Build(batch)
	require.NoError(t, err)

	assert.InDelta(t, 40, o.TotalRevenue, 1e-9)
	assert.Equal(t, 2, o.TotalCustomers)
	assert.Equal(t, 2, o.TotalOrders)
	assert.Equal(t, 2, o.TotalProducts)
	assert.InDelta(t, 20, o.AvgOrderValue, 1e-9)

	require.NotEmpty(t, o.TopProducts)
	assert.Equal(t, "A", o.TopProducts[0].StockCode)
	assert.Equal(t, 15, o.TopProducts[0].Quantity)

	require.NotEmpty(t, o.TopCustomers)
	assert.Equal(t, "C1", o.TopCustomers[0].CustomerID)
	assert.InDelta(t, 30, o.TopCustomers[0].Revenue, 1e-9)

	require.Len(t, o.MonthlyRevenue, 2)
	assert.True(t, o.MonthlyRevenue[0].Month.Before(o.MonthlyRevenue[1].Month))
	assert.InDelta(t, 30, o.MonthlyRevenue[0].Revenue, 1e-9)
	assert.InDelta(t, 10, o.MonthlyRevenue[1].Revenue, 1e-9)

	require.NotEmpty(t, o.RevenueByCountry)
	assert.Equal(t, "United Kingdom", o.RevenueByCountry[0].Country)

	require.NotEmpty(t, o.Insights)
	assert.Contains(t, o.Insights[0], "TEAPOT")
	// 30 -> 10 month over month is a 66.7% drop.
	assert.Contains(t, o.Insights[2], "down 66.7%")
}

func TestBuildEmpty(t *testing.T) {
	_, err := Build(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrEmptyDataset)
}
