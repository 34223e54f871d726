// Package basket mines frequent product co-occurrence sets and association
// rules from a transaction ledger. The search is level-wise Apriori over a
// binary invoice-by-product incidence matrix, restricted to the most
// frequent products to bound the matrix.
package basket

import (
	"context"
	"fmt"
	"math/bits"
	"sort"
	"strings"

	"github.com/Veraticus/mentat/internal/common"
	"github.com/Veraticus/mentat/internal/model"
)

// Config holds mining parameters.
type Config struct {
	MinSupport     float64
	MinConfidence  float64
	MaxRules       int
	TopProducts    int
	MaxItemsetSize int
}

// DefaultConfig returns the default mining configuration.
func DefaultConfig() Config {
	return Config{
		MinSupport:     0.01,
		MinConfidence:  0.2,
		MaxRules:       10,
		TopProducts:    300,
		MaxItemsetSize: 4,
	}
}

// Result carries mined itemsets and rules. A degenerate-but-successful run
// (too few products, nothing frequent, no qualifying rules) returns empty
// slices plus a Diagnostic explaining why; it is not an error.
type Result struct {
	Descriptions  map[string]string
	TopRule       *model.AssociationRule
	Diagnostic    string
	Itemsets      []model.Itemset
	Rules         []model.AssociationRule
	Insights      []string
	Invoices      int
	Products      int
	AvgConfidence float64
	AvgLift       float64
}

// itemsetKey joins sorted items into a map key.
func itemsetKey(items []string) string {
	return strings.Join(items, "\x1f")
}

// Mine discovers frequent itemsets and derives ranked association rules.
// Itemset support satisfies downward closure by construction: size-(k+1)
// candidates are generated only from frequent size-k itemsets sharing a
// k-1 prefix, and every k-subset must itself be frequent.
func Mine(ctx context.Context, batch []model.TransactionRecord, cfg Config) (*Result, error) {
	if len(batch) == 0 {
		return nil, fmt.Errorf("mining baskets: %w", common.ErrEmptyDataset)
	}
	if cfg.MinSupport <= 0 || cfg.MinSupport > 1 {
		return nil, fmt.Errorf("mining baskets: min support %v: %w", cfg.MinSupport, common.ErrInvalidConfig)
	}
	if cfg.MinConfidence <= 0 || cfg.MinConfidence > 1 {
		return nil, fmt.Errorf("mining baskets: min confidence %v: %w", cfg.MinConfidence, common.ErrInvalidConfig)
	}
	if cfg.MaxRules < 1 {
		cfg.MaxRules = 10
	}
	if cfg.TopProducts < 1 {
		cfg.TopProducts = 300
	}
	if cfg.MaxItemsetSize < 2 {
		cfg.MaxItemsetSize = 4
	}

	matrix := buildMatrix(batch, cfg.TopProducts)
	res := &Result{
		Descriptions: matrix.descriptions,
		Invoices:     matrix.invoices,
		Products:     len(matrix.products),
	}

	if len(matrix.products) < 2 {
		res.Diagnostic = "not enough distinct products to analyze"
		return res, nil
	}

	frequent, err := mineFrequent(ctx, matrix, cfg)
	if err != nil {
		return nil, err
	}
	if len(frequent) == 0 {
		res.Diagnostic = "no frequent itemsets found; try lowering min support"
		return res, nil
	}

	for _, fi := range frequent {
		res.Itemsets = append(res.Itemsets, model.Itemset{Items: fi.items, Support: fi.support})
	}

	rules := deriveRules(frequent, cfg)
	if len(rules) == 0 {
		res.Diagnostic = "no association rules found; try lowering min confidence"
		return res, nil
	}
	if len(rules) > cfg.MaxRules {
		rules = rules[:cfg.MaxRules]
	}

	res.Rules = rules
	res.TopRule = &rules[0]

	var confSum, liftSum float64
	for _, r := range rules {
		confSum += r.Confidence
		liftSum += r.Lift
	}
	res.AvgConfidence = confSum / float64(len(rules))
	res.AvgLift = liftSum / float64(len(rules))
	res.Insights = insights(rules, res.TopRule, matrix.descriptions)

	return res, nil
}

// incidence is the binary invoice-by-product matrix, one bitset column per
// product over the invoice rows.
type incidence struct {
	descriptions map[string]string
	columns      map[string][]uint64
	products     []string
	invoices     int
	words        int
}

// buildMatrix restricts the batch to the topN products by distinct-invoice
// count and builds one bitset per surviving product.
func buildMatrix(batch []model.TransactionRecord, topN int) *incidence {
	invoiceIdx := make(map[string]int)
	productInvoices := make(map[string]map[int]struct{})
	descriptions := make(map[string]string)

	for _, rec := range batch {
		if rec.InvoiceNo == "" || rec.StockCode == "" || rec.Quantity <= 0 {
			continue
		}
		row, ok := invoiceIdx[rec.InvoiceNo]
		if !ok {
			row = len(invoiceIdx)
			invoiceIdx[rec.InvoiceNo] = row
		}
		set, ok := productInvoices[rec.StockCode]
		if !ok {
			set = make(map[int]struct{})
			productInvoices[rec.StockCode] = set
		}
		set[row] = struct{}{}
		if _, ok := descriptions[rec.StockCode]; !ok && rec.Description != "" {
			descriptions[rec.StockCode] = rec.Description
		}
	}

	products := make([]string, 0, len(productInvoices))
	for p := range productInvoices {
		products = append(products, p)
	}
	// Rank by distinct invoice count, stock code breaking ties so the
	// cutoff is deterministic.
	sort.Slice(products, func(i, j int) bool {
		ci, cj := len(productInvoices[products[i]]), len(productInvoices[products[j]])
		if ci != cj {
			return ci > cj
		}
		return products[i] < products[j]
	})
	if len(products) > topN {
		products = products[:topN]
	}
	sort.Strings(products)

	words := (len(invoiceIdx) + 63) / 64
	columns := make(map[string][]uint64, len(products))
	for _, p := range products {
		col := make([]uint64, words)
		for row := range productInvoices[p] {
			col[row/64] |= 1 << (row % 64)
		}
		columns[p] = col
	}

	return &incidence{
		descriptions: descriptions,
		columns:      columns,
		products:     products,
		invoices:     len(invoiceIdx),
		words:        words,
	}
}

type frequentItemset struct {
	items   []string
	bitset  []uint64
	support float64
}

// mineFrequent runs the level-wise search. Each level's candidates come
// only from joining frequent sets of the previous level; support is a
// popcount over intersected bitsets.
func mineFrequent(ctx context.Context, m *incidence, cfg Config) ([]frequentItemset, error) {
	total := float64(m.invoices)
	supports := make(map[string]float64)

	var level []frequentItemset
	for _, p := range m.products {
		col := m.columns[p]
		support := float64(popcount(col)) / total
		if support >= cfg.MinSupport {
			fi := frequentItemset{items: []string{p}, bitset: col, support: support}
			level = append(level, fi)
			supports[p] = support
		}
	}

	all := append([]frequentItemset(nil), level...)

	for size := 2; size <= cfg.MaxItemsetSize && len(level) > 1; size++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var next []frequentItemset
		for i := 0; i < len(level); i++ {
			for j := i + 1; j < len(level); j++ {
				a, b := level[i], level[j]
				if !samePrefix(a.items, b.items) {
					break
				}
				if err := ctx.Err(); err != nil {
					return nil, err
				}

				candidate := append(append([]string(nil), a.items...), b.items[len(b.items)-1])
				if !allSubsetsFrequent(candidate, supports) {
					continue
				}

				bitset := intersect(a.bitset, b.bitset)
				support := float64(popcount(bitset)) / total
				if support < cfg.MinSupport {
					continue
				}

				fi := frequentItemset{items: candidate, bitset: bitset, support: support}
				next = append(next, fi)
				supports[itemsetKey(candidate)] = support
			}
		}

		all = append(all, next...)
		level = next
	}

	return all, nil
}

// samePrefix reports whether two equal-length sorted itemsets share all but
// the last item; only such pairs can join into a valid candidate.
func samePrefix(a, b []string) bool {
	for i := 0; i < len(a)-1; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return a[len(a)-1] < b[len(b)-1]
}

// allSubsetsFrequent checks the downward-closure prune: every subset of the
// candidate missing one item must already be frequent.
func allSubsetsFrequent(candidate []string, supports map[string]float64) bool {
	if len(candidate) <= 2 {
		return true
	}
	sub := make([]string, 0, len(candidate)-1)
	for skip := range candidate {
		sub = sub[:0]
		for i, item := range candidate {
			if i != skip {
				sub = append(sub, item)
			}
		}
		if _, ok := supports[itemsetKey(sub)]; !ok {
			return false
		}
	}
	return true
}

func intersect(a, b []uint64) []uint64 {
	out := make([]uint64, len(a))
	for i := range a {
		out[i] = a[i] & b[i]
	}
	return out
}

func popcount(bitset []uint64) int {
	var n int
	for _, w := range bitset {
		n += bits.OnesCount64(w)
	}
	return n
}
