package types

// BackendResult is the outcome of one backend in a multi-backend run.
type BackendResult struct {
	Backend string
	Skipped bool          // Backend was not found, nothing ran
	Summary *SuiteSummary // Nil when skipped or when the suite could not run
	Err     error         // Suite-level error, if any
}

// Status reports fail for errored or failing suites. Skipped backends pass.
func (r BackendResult) Status() TestStatus {
	if r.Err != nil {
		return TestStatusFail
	}
	if r.Summary != nil {
		return r.Summary.Status()
	}
	return TestStatusPass
}

// MatrixSummary collects backend results in probe order.
type MatrixSummary struct {
	Results []BackendResult
}

// Skipped returns the backends that were unavailable, in probe order.
func (m *MatrixSummary) Skipped() []string {
	var skipped []string
	for _, r := range m.Results {
		if r.Skipped {
			skipped = append(skipped, r.Backend)
		}
	}
	return skipped
}

// Ran returns the number of backends a suite was attempted for.
func (m *MatrixSummary) Ran() int {
	n := 0
	for _, r := range m.Results {
		if !r.Skipped {
			n++
		}
	}
	return n
}

// Status is fail if any attempted backend failed.
func (m *MatrixSummary) Status() TestStatus {
	for _, r := range m.Results {
		if r.Status() == TestStatusFail {
			return TestStatusFail
		}
	}
	return TestStatusPass
}
