package model

// Itemset is a frequent combination of products together with the fraction
// of invoices containing all of them. Items are kept sorted so itemsets
// compare and print deterministically.
type Itemset struct {
	Items   []string
	Support float64
}

// AssociationRule is a directed co-purchase rule derived from a frequent
// itemset. Conviction is nil when confidence is exactly 1, where the metric
// is undefined; callers must treat nil as "not computable", not zero.
type AssociationRule struct {
	Antecedent []string
	Consequent []string
	Support    float64
	Confidence float64
	Lift       float64
	Conviction *float64
}
