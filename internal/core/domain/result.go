package domain

// FetchResult is the outcome of one batch attempt.
// Cases keep input order; Failed keeps the order the source reported them.
type FetchResult struct {
	Cases  []CaseRecord
	Failed []CaseID
}

// EmptyResult returns a result with no cases and no failures.
func EmptyResult() FetchResult {
	return FetchResult{Cases: []CaseRecord{}, Failed: []CaseID{}}
}

// Len returns the number of identifiers accounted for by the result.
func (r FetchResult) Len() int {
	return len(r.Cases) + len(r.Failed)
}

// Empty reports whether the result holds neither cases nor failures.
func (r FetchResult) Empty() bool {
	return r.Len() == 0
}
