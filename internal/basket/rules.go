package basket

import (
	"fmt"
	"sort"

	"github.com/Veraticus/mentat/internal/model"
)

// deriveRules generates association rules from every frequent itemset of
// size two or more, trying every non-empty proper subset as antecedent.
// Both antecedent and consequent are subsets of a frequent itemset, so
// downward closure guarantees their supports were recorded during mining.
func deriveRules(frequent []frequentItemset, cfg Config) []model.AssociationRule {
	supports := make(map[string]float64, len(frequent))
	for _, fi := range frequent {
		supports[itemsetKey(fi.items)] = fi.support
	}

	var rules []model.AssociationRule
	for _, fi := range frequent {
		n := len(fi.items)
		if n < 2 {
			continue
		}

		for mask := 1; mask < (1<<n)-1; mask++ {
			antecedent := make([]string, 0, n-1)
			consequent := make([]string, 0, n-1)
			for i, item := range fi.items {
				if mask&(1<<i) != 0 {
					antecedent = append(antecedent, item)
				} else {
					consequent = append(consequent, item)
				}
			}

			antSupport := supports[itemsetKey(antecedent)]
			conSupport := supports[itemsetKey(consequent)]
			if antSupport == 0 || conSupport == 0 {
				continue
			}

			confidence := fi.support / antSupport
			if confidence < cfg.MinConfidence {
				continue
			}

			rule := model.AssociationRule{
				Antecedent: antecedent,
				Consequent: consequent,
				Support:    fi.support,
				Confidence: confidence,
				Lift:       confidence / conSupport,
			}
			if confidence < 1 {
				conviction := (1 - conSupport) / (1 - confidence)
				rule.Conviction = &conviction
			}
			rules = append(rules, rule)
		}
	}

	// Rank by (confidence, lift) descending; item names break remaining
	// ties so output order is reproducible.
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Confidence != rules[j].Confidence {
			return rules[i].Confidence > rules[j].Confidence
		}
		if rules[i].Lift != rules[j].Lift {
			return rules[i].Lift > rules[j].Lift
		}
		ki, kj := itemsetKey(rules[i].Antecedent), itemsetKey(rules[j].Antecedent)
		if ki != kj {
			return ki < kj
		}
		return itemsetKey(rules[i].Consequent) < itemsetKey(rules[j].Consequent)
	})

	return rules
}

// insights summarizes the mined rules for the report surface.
func insights(rules []model.AssociationRule, top *model.AssociationRule, descriptions map[string]string) []string {
	var out []string

	if top != nil {
		out = append(out, fmt.Sprintf("Top bundle candidate: %s -> %s (confidence %.1f%%, lift %.2f)",
			describe(top.Antecedent[0], descriptions),
			describe(top.Consequent[0], descriptions),
			top.Confidence*100, top.Lift))
	}

	var highConf, highLift int
	for _, r := range rules {
		if r.Confidence > 0.6 {
			highConf++
		}
		if r.Lift > 2.0 {
			highLift++
		}
	}
	if highConf > 0 {
		out = append(out, fmt.Sprintf("%d rules above 60%% confidence - strong bundle candidates", highConf))
	}
	if highLift > 0 {
		out = append(out, fmt.Sprintf("%d product pairs with very strong association (lift above 2.0)", highLift))
	}

	return out
}

// describe resolves a stock code to its first-seen description, falling
// back to the code itself.
func describe(stockCode string, descriptions map[string]string) string {
	if d, ok := descriptions[stockCode]; ok {
		return d
	}
	return stockCode
}
