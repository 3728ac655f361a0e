package entity

// Distribution maps action type to probability. A valid non-empty
// distribution sums to 1.0 over its entries; absent entries mean 0.
type Distribution map[ActionType]float64

// PriorModel is the persisted learned-prior state, keyed by workload
// then view. Long-lived process state: read during scoring, rewritten
// only by a batch update between episodes.
type PriorModel struct {
	Version        string                                 `json:"version"`
	ByWorkloadView map[WorkloadType]map[View]Distribution `json:"by_workload_view"`
}

// EmptyPriorModel is the fallback when no model file exists or the
// file is malformed.
func EmptyPriorModel() PriorModel {
	return PriorModel{
		Version:        "1",
		ByWorkloadView: map[WorkloadType]map[View]Distribution{},
	}
}

// Lookup returns the stored distribution for (workload, view), or nil.
func (m PriorModel) Lookup(workload WorkloadType, view View) Distribution {
	byView, ok := m.ByWorkloadView[workload]
	if !ok {
		return nil
	}
	return byView[view]
}
