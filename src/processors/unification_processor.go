package processors

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/username/cobranzas/backend/src/models"
	"github.com/username/cobranzas/backend/src/utils"
)

const (
	similarityThreshold = 0.6
	maxLengthDelta      = 8
)

// unificationProcessorImpl implements the UnificationProcessor interface.
type unificationProcessorImpl struct{}

// NewUnificationProcessor creates a new instance of UnificationProcessor.
func NewUnificationProcessor() UnificationProcessor {
	return &unificationProcessorImpl{}
}

// Suggest clusters client-name spellings that likely denote the same company.
// Only clusters with at least two distinct spellings are returned; the most
// frequent spelling is proposed as canonical.
func (p *unificationProcessorImpl) Suggest(names []string) []UnificationSuggestion {
	freq := make(map[string]int)
	order := make([]string, 0)
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if freq[n] == 0 {
			order = append(order, n)
		}
		freq[n]++
	}

	assigned := make(map[string]bool, len(order))
	var suggestions []UnificationSuggestion

	for i, name := range order {
		if assigned[name] {
			continue
		}
		cluster := []string{name}
		assigned[name] = true

		for _, other := range order[i+1:] {
			if assigned[other] {
				continue
			}
			if similarNames(name, other) {
				cluster = append(cluster, other)
				assigned[other] = true
			}
		}

		if len(cluster) < 2 {
			continue
		}

		sort.Slice(cluster, func(a, b int) bool {
			if freq[cluster[a]] != freq[cluster[b]] {
				return freq[cluster[a]] > freq[cluster[b]]
			}
			return cluster[a] < cluster[b]
		})
		suggestions = append(suggestions, UnificationSuggestion{
			Canonical: cluster[0],
			Variants:  cluster[1:],
		})
	}
	return suggestions
}

// similarNames is the clustering predicate: same first letter, comparable
// length and an edit-distance similarity of at least 0.6. The first-letter
// gate keeps unrelated companies with shared suffixes ("SA", "SRL") apart.
func similarNames(a, b string) bool {
	ua := strings.ToUpper(strings.TrimSpace(a))
	ub := strings.ToUpper(strings.TrimSpace(b))
	if ua == "" || ub == "" || ua[0] != ub[0] {
		return false
	}

	la, lb := len(ua), len(ub)
	if utils.AbsInt(la-lb) > maxLengthDelta {
		return false
	}

	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	dist := levenshtein.ComputeDistance(ua, ub)
	return float64(maxLen-dist)/float64(maxLen) >= similarityThreshold
}

// Apply rewrites client names per the saved rename rules across both the
// commercial records and the ledger, returning new slices. The inputs stay
// untouched so a cached dataset is never half-renamed by a failed run.
func (p *unificationProcessorImpl) Apply(rules map[string]string, quotes []models.UnifiedQuoteRecord, ledger []models.LedgerEntry) ([]models.UnifiedQuoteRecord, []models.LedgerEntry) {
	if len(rules) == 0 {
		return quotes, ledger
	}

	outQuotes := make([]models.UnifiedQuoteRecord, len(quotes))
	copy(outQuotes, quotes)
	for i := range outQuotes {
		if canonical, ok := rules[outQuotes[i].Client]; ok && canonical != "" {
			outQuotes[i].Client = canonical
		}
	}

	outLedger := make([]models.LedgerEntry, len(ledger))
	copy(outLedger, ledger)
	for i := range outLedger {
		if canonical, ok := rules[outLedger[i].Client]; ok && canonical != "" {
			outLedger[i].Client = canonical
		}
	}
	return outQuotes, outLedger
}
