package segment

import (
	"fmt"

	"github.com/Veraticus/mentat/internal/common"
	"github.com/Veraticus/mentat/internal/model"
)

// defaultActions maps each segment label to its marketing playbook.
// Static by design: a future recommendation model replaces this table
// without touching the labelling cascade.
var defaultActions = map[string][]string{
	model.SegmentChampions: {
		"VIP offers and early access",
		"Refer-a-friend program",
		"Preview new products first",
	},
	model.SegmentLoyal: {
		"Loyalty points and upsell",
		"Birthday offers",
		"Cross-sell complementary products",
	},
	model.SegmentAtRisk: {
		"\"We miss you\" email with a 15% code",
		"Reactivation bundle at a good price",
		"Survey why they stopped buying",
	},
	model.SegmentHibernating: {
		"Aggressive remarketing campaign",
		"Reduced shipping fees",
		"Exclusive flash sale",
	},
	model.SegmentRegulars: {
		"Periodic promotions",
		"Suggest similar products",
		"Grow average order value",
	},
}

// labelCustomers assigns a semantic segment to every customer using
// population quartiles of recency, frequency and monetary. The cascade is
// ordered; the first matching rule wins.
func labelCustomers(customers []model.CustomerRFM) {
	recency := make([]float64, len(customers))
	frequency := make([]float64, len(customers))
	monetary := make([]float64, len(customers))
	for i, c := range customers {
		recency[i] = float64(c.Recency)
		frequency[i] = float64(c.Frequency)
		monetary[i] = c.Monetary
	}

	r25, r50, r75 := common.Percentile(recency, 25), common.Percentile(recency, 50), common.Percentile(recency, 75)
	f25, f50, f75 := common.Percentile(frequency, 25), common.Percentile(frequency, 50), common.Percentile(frequency, 75)
	m75 := common.Percentile(monetary, 75)

	for i := range customers {
		r := float64(customers[i].Recency)
		f := float64(customers[i].Frequency)
		m := customers[i].Monetary

		switch {
		case r <= r25 && f >= f75 && m >= m75:
			customers[i].Segment = model.SegmentChampions
		case r <= r50 && f >= f50:
			customers[i].Segment = model.SegmentLoyal
		case r >= r75 && f <= f25:
			customers[i].Segment = model.SegmentAtRisk
		case r >= r50 && f <= f50:
			customers[i].Segment = model.SegmentHibernating
		default:
			customers[i].Segment = model.SegmentRegulars
		}
	}
}

// marketingActions resolves the playbook for a segment, preferring the
// caller-supplied override table.
func marketingActions(segment string, overrides map[string][]string) []string {
	if overrides != nil {
		if actions, ok := overrides[segment]; ok {
			return actions
		}
	}
	if actions, ok := defaultActions[segment]; ok {
		return actions
	}
	return []string{"General promotion"}
}

func characteristics(segment string, avgR, avgF, avgM float64) string {
	switch segment {
	case model.SegmentChampions:
		return fmt.Sprintf("VIP customers: %.1f orders on average, %.0f total spend, last seen %.0f days ago", avgF, avgM, avgR)
	case model.SegmentLoyal:
		return fmt.Sprintf("Loyal customers with frequency %.1f, monetary %.0f, recency %.0f days", avgF, avgM, avgR)
	case model.SegmentAtRisk:
		return fmt.Sprintf("High churn danger: inactive for %.0f days with low frequency (%.1f), act now", avgR, avgF)
	case model.SegmentHibernating:
		return fmt.Sprintf("Dormant customers, recency %.0f days, frequency %.1f, remarketing needed", avgR, avgF)
	case model.SegmentRegulars:
		return fmt.Sprintf("Steady customers, recency %.0f days, frequency %.1f", avgR, avgF)
	default:
		return fmt.Sprintf("Segment with R=%.0f, F=%.1f, M=%.0f", avgR, avgF, avgM)
	}
}
