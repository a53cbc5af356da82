package analysis

// aggregate maps the scan state to a terminal kind and its candidates.
func aggregate(st scanState) (Kind, []Candidate) {
	switch {
	case len(st.high) > 0:
		return KindHighConfidence, st.high
	case len(st.medium) > 0:
		return KindMediumConfidence, st.medium
	default:
		return KindNoResult, nil
	}
}

func prNumbers(candidates []Candidate) []int {
	out := make([]int, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.PRNumber)
	}
	return out
}
