package output

import "agentlab/internal/domain/entity"

// PriorStorePort loads and saves the learned prior model as a whole.
// Load never fails: a missing or malformed file yields the empty
// model.
type PriorStorePort interface {
	Load() entity.PriorModel
	Save(model entity.PriorModel) error
}
