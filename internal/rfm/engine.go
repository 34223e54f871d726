// Package rfm computes per-customer Recency, Frequency and Monetary
// features from a cleaned transaction ledger.
package rfm

import (
	"fmt"
	"sort"
	"time"

	"github.com/Veraticus/mentat/internal/common"
	"github.com/Veraticus/mentat/internal/model"
)

// Options configures a feature computation.
type Options struct {
	// ReferenceDate anchors recency. Zero means "use the maximum
	// timestamp in the batch".
	ReferenceDate time.Time
}

// Summary aggregates population statistics over a computed RFM table.
type Summary struct {
	TotalCustomers  int
	AvgRecency      float64
	AvgFrequency    float64
	AvgMonetary     float64
	MedianRecency   float64
	MedianFrequency float64
	MedianMonetary  float64
}

// Compute derives one CustomerRFM per customer in the batch, with quantile
// scores on a 1-5 scale. Recency is whole days between the reference date
// and the customer's latest purchase; frequency counts distinct invoices;
// monetary sums line revenue.
//
// Quantile scores are rank-based quintile cuts. When fewer than five
// distinct cut boundaries exist, adjacent buckets collapse and some score
// values are skipped; this is a documented degrade, not an error. Output is
// sorted by customer id.
func Compute(batch []model.TransactionRecord, opts Options) ([]model.CustomerRFM, error) {
	if len(batch) == 0 {
		return nil, fmt.Errorf("computing RFM features: %w", common.ErrEmptyDataset)
	}

	for i, rec := range batch {
		switch {
		case rec.CustomerID == "":
			return nil, fmt.Errorf("record %d: customer id: %w", i, common.ErrMissingField)
		case rec.InvoiceNo == "":
			return nil, fmt.Errorf("record %d: invoice no: %w", i, common.ErrMissingField)
		case rec.StockCode == "":
			return nil, fmt.Errorf("record %d: stock code: %w", i, common.ErrMissingField)
		case rec.InvoiceDate.IsZero():
			return nil, fmt.Errorf("record %d: invoice date: %w", i, common.ErrMissingField)
		}
	}

	refDate := opts.ReferenceDate
	if refDate.IsZero() {
		for _, rec := range batch {
			if rec.InvoiceDate.After(refDate) {
				refDate = rec.InvoiceDate
			}
		}
	}

	type accum struct {
		lastPurchase time.Time
		invoices     map[string]struct{}
		monetary     float64
		firstSeen    int
	}

	byCustomer := make(map[string]*accum)
	for i, rec := range batch {
		acc, ok := byCustomer[rec.CustomerID]
		if !ok {
			acc = &accum{invoices: make(map[string]struct{}), firstSeen: i}
			byCustomer[rec.CustomerID] = acc
		}
		if rec.InvoiceDate.After(acc.lastPurchase) {
			acc.lastPurchase = rec.InvoiceDate
		}
		acc.invoices[rec.InvoiceNo] = struct{}{}
		acc.monetary += rec.Revenue()
	}

	customers := make([]model.CustomerRFM, 0, len(byCustomer))
	firstSeen := make(map[string]int, len(byCustomer))
	for id, acc := range byCustomer {
		recency := int(refDate.Sub(acc.lastPurchase).Hours() / 24)
		if recency < 0 {
			recency = 0
		}
		customers = append(customers, model.CustomerRFM{
			CustomerID: id,
			Recency:    recency,
			Frequency:  len(acc.invoices),
			Monetary:   acc.monetary,
		})
		firstSeen[id] = acc.firstSeen
	}
	sort.Slice(customers, func(i, j int) bool {
		return customers[i].CustomerID < customers[j].CustomerID
	})

	scoreCustomers(customers, firstSeen)

	return customers, nil
}

// Summarize computes population statistics over an RFM table.
func Summarize(customers []model.CustomerRFM) Summary {
	recency := make([]float64, len(customers))
	frequency := make([]float64, len(customers))
	monetary := make([]float64, len(customers))
	for i, c := range customers {
		recency[i] = float64(c.Recency)
		frequency[i] = float64(c.Frequency)
		monetary[i] = c.Monetary
	}

	return Summary{
		TotalCustomers:  len(customers),
		AvgRecency:      common.Mean(recency),
		AvgFrequency:    common.Mean(frequency),
		AvgMonetary:     common.Mean(monetary),
		MedianRecency:   common.Median(recency),
		MedianFrequency: common.Median(frequency),
		MedianMonetary:  common.Median(monetary),
	}
}

// scoreCustomers fills in the 1-5 quantile scores. Recency is scored
// descending (most recent purchase scores highest), monetary ascending,
// and frequency on a first-seen rank so heavy ties still spread across
// buckets instead of collapsing into one.
func scoreCustomers(customers []model.CustomerRFM, firstSeen map[string]int) {
	n := len(customers)

	recency := make([]float64, n)
	monetary := make([]float64, n)
	for i, c := range customers {
		recency[i] = float64(c.Recency)
		monetary[i] = c.Monetary
	}

	rScores := scoreByValue(recency, true)
	mScores := scoreByValue(monetary, false)

	// Frequency: rank with ties broken by first appearance in the batch,
	// then cut the rank order into quintiles.
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ca, cb := customers[order[a]], customers[order[b]]
		if ca.Frequency != cb.Frequency {
			return ca.Frequency < cb.Frequency
		}
		return firstSeen[ca.CustomerID] < firstSeen[cb.CustomerID]
	})
	fScores := make([]int, n)
	for rank, idx := range order {
		fScores[idx] = rank*5/n + 1
	}

	for i := range customers {
		customers[i].RScore = rScores[i]
		customers[i].FScore = fScores[i]
		customers[i].MScore = mScores[i]
	}
}

// scoreByValue cuts values into up to five buckets at the 20/40/60/80th
// percentiles. Duplicate boundaries are dropped, collapsing buckets.
// Descending scoring inverts the scale so the lowest values score highest.
func scoreByValue(values []float64, descending bool) []int {
	edges := make([]float64, 0, 4)
	for _, p := range []float64{20, 40, 60, 80} {
		e := common.Percentile(values, p)
		if len(edges) == 0 || e > edges[len(edges)-1] {
			edges = append(edges, e)
		}
	}
	buckets := len(edges) + 1

	scores := make([]int, len(values))
	for i, v := range values {
		bucket := 0
		for _, e := range edges {
			if v > e {
				bucket++
			}
		}
		if descending {
			scores[i] = buckets - bucket
		} else {
			scores[i] = bucket + 1
		}
	}
	return scores
}
