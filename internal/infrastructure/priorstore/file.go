// Package priorstore persists the learned prior model as one JSON
// document.
package priorstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"agentlab/internal/application/port/output"
	"agentlab/internal/domain/entity"
)

var _ output.PriorStorePort = (*FileStore)(nil)

type FileStore struct {
	path   string
	logger output.LoggerPort
}

func New(path string, logger output.LoggerPort) *FileStore {
	return &FileStore{path: path, logger: logger}
}

// Load reads the model file. A missing or malformed file falls back to
// the empty model so a run never fails on priors.
func (s *FileStore) Load() entity.PriorModel {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if s.logger != nil && !os.IsNotExist(err) {
			s.logger.Warn("Prior model unreadable, using empty model", "path", s.path, "error", err)
		}
		return entity.EmptyPriorModel()
	}

	var model entity.PriorModel
	if err := json.Unmarshal(data, &model); err != nil {
		if s.logger != nil {
			s.logger.Warn("Prior model malformed, using empty model", "path", s.path, "error", err)
		}
		return entity.EmptyPriorModel()
	}
	if model.ByWorkloadView == nil {
		model.ByWorkloadView = map[entity.WorkloadType]map[entity.View]entity.Distribution{}
	}
	if model.Version == "" {
		model.Version = "1"
	}
	return model
}

func (s *FileStore) Save(model entity.PriorModel) error {
	data, err := json.MarshalIndent(model, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal prior model: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create prior model dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write prior model: %w", err)
	}
	return nil
}
