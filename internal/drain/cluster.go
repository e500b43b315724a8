package drain

import "strings"

// logCluster is one mined template and the line ids assigned to it. Member
// ids are strictly increasing; every member tokenizes to the template's
// length and matches it position-wise.
type logCluster struct {
	template []string
	members  []int
}

func (c *logCluster) templateString() string {
	return strings.Join(c.template, " ")
}

// seqDistance scores a query sequence against a template of equal length.
// sim is the fraction of positions where a non-wildcard template token equals
// the query token; wildcards counts the template's wildcard positions.
func seqDistance(template, tokens []string) (sim float64, wildcards int) {
	simTokens := 0
	for i, t := range template {
		if t == Wildcard {
			wildcards++
			continue
		}
		if t == tokens[i] {
			simTokens++
		}
	}
	return float64(simTokens) / float64(len(template)), wildcards
}

// bestMatch selects the candidate with the highest similarity, breaking ties
// by wildcard count and then by list position (first wins, which keeps
// results reproducible). Returns nil when no candidate reaches simTh.
func bestMatch(clusters []*logCluster, tokens []string, simTh float64) *logCluster {
	var maxCluster *logCluster
	maxSim := -1.0
	maxWildcards := -1

	for _, c := range clusters {
		sim, wildcards := seqDistance(c.template, tokens)
		if sim > maxSim || (sim == maxSim && wildcards > maxWildcards) {
			maxSim = sim
			maxWildcards = wildcards
			maxCluster = c
		}
	}

	if maxSim >= simTh {
		return maxCluster
	}
	return nil
}

// mergeTemplate computes the elementwise common template of two equal-length
// sequences: identical tokens are kept, differing positions become the
// wildcard. Merging is monotone; wildcard positions never revert.
func mergeTemplate(tokens, template []string) []string {
	merged := make([]string, len(tokens))
	for i, t := range tokens {
		if t == template[i] {
			merged[i] = t
		} else {
			merged[i] = Wildcard
		}
	}
	return merged
}

func tokensEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
