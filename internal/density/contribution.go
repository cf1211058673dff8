package density

// ContributionKind tags a Contribution's source (spec.md §9: "replace the
// original's virtual Contribution dispatch with a closed, tagged sum type:
// a small enum plus a value, switched on in one place").
type ContributionKind int

const (
	ContributionBase ContributionKind = iota
	ContributionTerrain
	ContributionCave
)

// Contribution is one term in the density sum, tagged by source, as
// returned by Field.Contributions for callers that need per-source
// attribution. Field.Eval computes the same sum directly and does not
// build Contribution values.
type Contribution struct {
	Kind  ContributionKind
	Value float64
}

// Sum folds a list of contributions into a single scalar density value.
func Sum(terms []Contribution) float64 {
	total := 0.0
	for _, c := range terms {
		total += c.Value
	}
	return total
}
