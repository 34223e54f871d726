// Package report derives descriptive overview metrics from a transaction
// batch: totals, top products and customers, monthly revenue and a few
// plain-language insights.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/Veraticus/mentat/internal/common"
	"github.com/Veraticus/mentat/internal/model"
)

// ProductVolume is a product ranked by units sold.
type ProductVolume struct {
	Description string
	StockCode   string
	Quantity    int
}

// CustomerRevenue is a customer ranked by revenue contribution.
type CustomerRevenue struct {
	CustomerID string
	Revenue    float64
}

// MonthRevenue is one month of aggregated revenue.
type MonthRevenue struct {
	Month   time.Time
	Revenue float64
}

// CountryRevenue is a market ranked by revenue contribution.
type CountryRevenue struct {
	Country string
	Revenue float64
}

// Overview is the descriptive snapshot of one dataset.
type Overview struct {
	Insights         []string
	TopProducts      []ProductVolume
	TopCustomers     []CustomerRevenue
	MonthlyRevenue   []MonthRevenue
	RevenueByCountry []CountryRevenue
	TotalRevenue     float64
	AvgOrderValue    float64
	TotalCustomers   int
	TotalOrders      int
	TotalProducts    int
}

const topN = 10

// Build computes the overview for a batch.
func Build(batch []model.TransactionRecord) (*Overview, error) {
	if len(batch) == 0 {
		return nil, fmt.Errorf("building overview: %w", common.ErrEmptyDataset)
	}

	invoices := make(map[string]struct{})
	customers := make(map[string]struct{})
	productQty := make(map[string]int)
	productDesc := make(map[string]string)
	customerRevenue := make(map[string]float64)
	monthRevenue := make(map[time.Time]float64)
	countryRevenue := make(map[string]float64)
	var totalRevenue float64
	var totalQty int

	for _, rec := range batch {
		revenue := rec.Revenue()
		totalRevenue += revenue
		totalQty += rec.Quantity

		invoices[rec.InvoiceNo] = struct{}{}
		customers[rec.CustomerID] = struct{}{}
		productQty[rec.StockCode] += rec.Quantity
		if _, ok := productDesc[rec.StockCode]; !ok && rec.Description != "" {
			productDesc[rec.StockCode] = rec.Description
		}
		customerRevenue[rec.CustomerID] += revenue
		month := time.Date(rec.InvoiceDate.Year(), rec.InvoiceDate.Month(), 1, 0, 0, 0, 0, time.UTC)
		monthRevenue[month] += revenue
		if rec.Country != "" {
			countryRevenue[rec.Country] += revenue
		}
	}

	o := &Overview{
		TotalRevenue:   totalRevenue,
		TotalCustomers: len(customers),
		TotalOrders:    len(invoices),
		TotalProducts:  len(productQty),
	}
	if o.TotalOrders > 0 {
		o.AvgOrderValue = totalRevenue / float64(o.TotalOrders)
	}

	for code, qty := range productQty {
		o.TopProducts = append(o.TopProducts, ProductVolume{
			StockCode:   code,
			Description: productDesc[code],
			Quantity:    qty,
		})
	}
	sort.Slice(o.TopProducts, func(i, j int) bool {
		if o.TopProducts[i].Quantity != o.TopProducts[j].Quantity {
			return o.TopProducts[i].Quantity > o.TopProducts[j].Quantity
		}
		return o.TopProducts[i].StockCode < o.TopProducts[j].StockCode
	})
	if len(o.TopProducts) > topN {
		o.TopProducts = o.TopProducts[:topN]
	}

	for id, rev := range customerRevenue {
		o.TopCustomers = append(o.TopCustomers, CustomerRevenue{CustomerID: id, Revenue: rev})
	}
	sort.Slice(o.TopCustomers, func(i, j int) bool {
		if o.TopCustomers[i].Revenue != o.TopCustomers[j].Revenue {
			return o.TopCustomers[i].Revenue > o.TopCustomers[j].Revenue
		}
		return o.TopCustomers[i].CustomerID < o.TopCustomers[j].CustomerID
	})
	if len(o.TopCustomers) > topN {
		o.TopCustomers = o.TopCustomers[:topN]
	}

	for month, rev := range monthRevenue {
		o.MonthlyRevenue = append(o.MonthlyRevenue, MonthRevenue{Month: month, Revenue: rev})
	}
	sort.Slice(o.MonthlyRevenue, func(i, j int) bool {
		return o.MonthlyRevenue[i].Month.Before(o.MonthlyRevenue[j].Month)
	})

	for country, rev := range countryRevenue {
		o.RevenueByCountry = append(o.RevenueByCountry, CountryRevenue{Country: country, Revenue: rev})
	}
	sort.Slice(o.RevenueByCountry, func(i, j int) bool {
		if o.RevenueByCountry[i].Revenue != o.RevenueByCountry[j].Revenue {
			return o.RevenueByCountry[i].Revenue > o.RevenueByCountry[j].Revenue
		}
		return o.RevenueByCountry[i].Country < o.RevenueByCountry[j].Country
	})
	if len(o.RevenueByCountry) > topN {
		o.RevenueByCountry = o.RevenueByCountry[:topN]
	}

	o.Insights = buildInsights(o, totalQty)
	return o, nil
}

func buildInsights(o *Overview, totalQty int) []string {
	var insights []string

	if len(o.TopProducts) > 0 && totalQty > 0 {
		top := o.TopProducts[0]
		share := float64(top.Quantity) / float64(totalQty) * 100
		name := top.Description
		if name == "" {
			name = top.StockCode
		}
		insights = append(insights, fmt.Sprintf("Leading product: %s accounts for %.1f%% of units sold", name, share))
	}

	if len(o.RevenueByCountry) > 0 && o.TotalRevenue > 0 {
		top := o.RevenueByCountry[0]
		share := top.Revenue / o.TotalRevenue * 100
		insights = append(insights, fmt.Sprintf("Largest market: %s contributes %.1f%% of revenue", top.Country, share))
	}

	if n := len(o.MonthlyRevenue); n >= 2 {
		last := o.MonthlyRevenue[n-1].Revenue
		prev := o.MonthlyRevenue[n-2].Revenue
		if prev > 0 {
			change := (last - prev) / prev * 100
			direction := "up"
			if change < 0 {
				direction = "down"
			}
			insights = append(insights, fmt.Sprintf("Latest month's revenue is %s %.1f%% on the month before", direction, abs(change)))
		}
	}

	return insights
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
