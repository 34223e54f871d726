// Package model defines the value types shared across the analytics
// engines. Everything here is a plain value object: constructed from one
// input snapshot, derived from, and discarded. Nothing carries state
// between invocations.
package model

import "time"

// TransactionRecord is a single line item from a cleaned retail ledger.
// The data preparation step guarantees no cancelled invoices and strictly
// positive quantity and unit price; the engines still validate defensively.
type TransactionRecord struct {
	InvoiceDate time.Time
	InvoiceNo   string
	StockCode   string
	Description string
	CustomerID  string
	Country     string
	Quantity    int
	UnitPrice   float64
}

// Revenue returns the line total for this record.
func (t TransactionRecord) Revenue() float64 {
	return float64(t.Quantity) * t.UnitPrice
}
