package model

// Action is the gatekeeping decision for a scored order.
type Action string

// Possible gatekeeping actions, from least to most restrictive.
const (
	ActionApprove       Action = "APPROVE"
	ActionRequirePrepay Action = "REQUIRE_PREPAY"
	ActionBlockCOD      Action = "BLOCK_COD"
)

// OrderFeatures are the inputs to per-order return-risk scoring. Return
// rates are fractions in [0,1]; OrderValue is the order total in ledger
// currency units.
type OrderFeatures struct {
	OrderID            string
	CustomerReturnRate float64
	SKUReturnRate      float64
	FirstTimeCustomer  bool
	OrderValue         float64
}

// PolicyDecision records the outcome of evaluating one order against an
// approval threshold, including the expected profit under both branches so
// callers can audit why an action was chosen.
type PolicyDecision struct {
	OrderID        string
	RiskScore      float64
	Threshold      float64
	Action         Action
	ProfitApproved float64
	ProfitBlocked  float64
}
