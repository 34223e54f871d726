// Package ingest reads retail transaction ledgers from CSV files and
// applies the standard cleaning rules: cancelled invoices out, non-positive
// quantities and prices out, rows without a customer out.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/mentat/internal/common"
	"github.com/Veraticus/mentat/internal/model"
)

// Columns expected in the ledger header, case-insensitive.
var requiredColumns = []string{
	"InvoiceNo", "StockCode", "Description", "Quantity",
	"InvoiceDate", "UnitPrice", "CustomerID", "Country",
}

// Timestamp layouts accepted for InvoiceDate, tried in order.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/2006 15:04",
	"01/02/2006 15:04",
	"1/2/2006",
}

// DropStats counts rows removed during cleaning, so callers can report
// what cleaning actually did to the file.
type DropStats struct {
	Cancelled     int
	NonPositive   int
	MissingFields int
	BadTimestamps int
}

// Total returns the number of dropped rows.
func (d DropStats) Total() int {
	return d.Cancelled + d.NonPositive + d.MissingFields + d.BadTimestamps
}

// ReadLedger parses and cleans a ledger CSV. The returned batch satisfies
// the invariants the analytics engines assume: every record has an invoice,
// product, customer and timestamp, and strictly positive quantity and
// price. ProgressFunc, when non-nil, is called once per raw row.
func ReadLedger(r io.Reader, progress func()) ([]model.TransactionRecord, DropStats, error) {
	var stats DropStats

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, stats, fmt.Errorf("reading ledger header: %w", err)
	}

	idx, err := mapHeader(header)
	if err != nil {
		return nil, stats, err
	}

	var batch []model.TransactionRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("reading ledger row: %w", err)
		}
		if progress != nil {
			progress()
		}

		rec, drop := parseRow(row, idx)
		switch drop {
		case dropNone:
			batch = append(batch, rec)
		case dropCancelled:
			stats.Cancelled++
		case dropNonPositive:
			stats.NonPositive++
		case dropMissing:
			stats.MissingFields++
		case dropBadTimestamp:
			stats.BadTimestamps++
		}
	}

	if len(batch) == 0 {
		return nil, stats, fmt.Errorf("ledger contains no usable rows: %w", common.ErrEmptyDataset)
	}
	return batch, stats, nil
}

type dropReason int

const (
	dropNone dropReason = iota
	dropCancelled
	dropNonPositive
	dropMissing
	dropBadTimestamp
)

func mapHeader(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := idx[strings.ToLower(col)]; !ok {
			return nil, fmt.Errorf("ledger header missing column %q: %w", col, common.ErrMissingField)
		}
	}
	return idx, nil
}

func parseRow(row []string, idx map[string]int) (model.TransactionRecord, dropReason) {
	field := func(name string) string {
		i := idx[strings.ToLower(name)]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	rec := model.TransactionRecord{
		InvoiceNo:   field("InvoiceNo"),
		StockCode:   field("StockCode"),
		Description: field("Description"),
		CustomerID:  field("CustomerID"),
		Country:     field("Country"),
	}

	if rec.InvoiceNo == "" || rec.StockCode == "" || rec.CustomerID == "" {
		return rec, dropMissing
	}
	// Cancelled invoices carry a C prefix in this ledger format.
	if strings.HasPrefix(rec.InvoiceNo, "C") {
		return rec, dropCancelled
	}

	qty, err := strconv.Atoi(field("Quantity"))
	if err != nil {
		return rec, dropNonPositive
	}
	price, err := strconv.ParseFloat(field("UnitPrice"), 64)
	if err != nil {
		return rec, dropNonPositive
	}
	if qty <= 0 || price <= 0 {
		return rec, dropNonPositive
	}
	rec.Quantity = qty
	rec.UnitPrice = price

	when, ok := parseTimestamp(field("InvoiceDate"))
	if !ok {
		return rec, dropBadTimestamp
	}
	rec.InvoiceDate = when

	return rec, dropNone
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ReadOrders parses a per-order feature CSV with the header
// OrderID,CustomerReturnRate,SKUReturnRate,FirstTimeCustomer,OrderValue.
func ReadOrders(r io.Reader) ([]model.OrderFeatures, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 5

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading orders header: %w", err)
	}
	want := []string{"OrderID", "CustomerReturnRate", "SKUReturnRate", "FirstTimeCustomer", "OrderValue"}
	for i, col := range want {
		if !strings.EqualFold(strings.TrimSpace(header[i]), col) {
			return nil, fmt.Errorf("orders header column %d is %q, want %q: %w", i, header[i], col, common.ErrMissingField)
		}
	}

	var orders []model.OrderFeatures
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading orders row: %w", err)
		}
		line++

		crr, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: customer return rate: %w", line, err)
		}
		srr, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: sku return rate: %w", line, err)
		}
		first, err := strconv.ParseBool(strings.TrimSpace(row[3]))
		if err != nil {
			return nil, fmt.Errorf("line %d: first-time flag: %w", line, err)
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(row[4]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: order value: %w", line, err)
		}

		orders = append(orders, model.OrderFeatures{
			OrderID:            strings.TrimSpace(row[0]),
			CustomerReturnRate: crr,
			SKUReturnRate:      srr,
			FirstTimeCustomer:  first,
			OrderValue:         value,
		})
	}

	if len(orders) == 0 {
		return nil, fmt.Errorf("orders file contains no rows: %w", common.ErrEmptyDataset)
	}
	return orders, nil
}
