package model

// Segment labels assigned by the quartile rule cascade.
const (
	SegmentChampions   = "Champions"
	SegmentLoyal       = "Loyal"
	SegmentAtRisk      = "At-Risk"
	SegmentHibernating = "Hibernating"
	SegmentRegulars    = "Regulars"
)

// CustomerRFM holds the behavioral features for one customer: days since
// last purchase, distinct invoice count, and total revenue. Quantile scores,
// cluster id and segment label are filled in by the downstream engines; a
// zero score means unscored and a nil Cluster means unclustered.
type CustomerRFM struct {
	CustomerID string
	Recency    int
	Frequency  int
	Monetary   float64
	RScore     int
	FScore     int
	MScore     int
	Cluster    *int
	Segment    string
}

// RFMScore concatenates the three quantile scores into the conventional
// three-digit code, e.g. "555" for a best-in-class customer. Returns ""
// when the customer has not been scored.
func (c CustomerRFM) RFMScore() string {
	if c.RScore == 0 || c.FScore == 0 || c.MScore == 0 {
		return ""
	}
	digits := []byte{
		byte('0' + c.RScore),
		byte('0' + c.FScore),
		byte('0' + c.MScore),
	}
	return string(digits)
}
