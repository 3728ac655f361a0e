// Package report writes episode batches and run summaries to disk.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"agentlab/internal/application/port/output"
	"agentlab/internal/domain/entity"
)

var _ output.EpisodeSink = (*FileSink)(nil)

type FileSink struct {
	dir    string
	runID  string
	stamp  string
	logger output.LoggerPort
}

func NewFileSink(dir string, logger output.LoggerPort) *FileSink {
	return &FileSink{
		dir:    dir,
		runID:  uuid.NewString(),
		stamp:  time.Now().UTC().Format("20060102T150405Z"),
		logger: logger,
	}
}

func (s *FileSink) RunID() string { return s.runID }

func (s *FileSink) WriteEpisodes(episodes []entity.EpisodeRecord) (string, error) {
	doc := map[string]any{
		"run_id":   s.runID,
		"episodes": episodes,
	}
	path := filepath.Join(s.dir, fmt.Sprintf("episodes_%s.json", s.stamp))
	if err := s.writeJSON(path, doc); err != nil {
		return "", err
	}
	if s.logger != nil {
		s.logger.Info("Episodes written", "path", path, "count", len(episodes))
	}
	return path, nil
}

func (s *FileSink) WriteSummary(summary map[string]any) (string, error) {
	doc := map[string]any{"run_id": s.runID}
	for k, v := range summary {
		doc[k] = v
	}
	path := filepath.Join(s.dir, fmt.Sprintf("episodes_%s.summary.json", s.stamp))
	if err := s.writeJSON(path, doc); err != nil {
		return "", err
	}
	if s.logger != nil {
		s.logger.Info("Summary written", "path", path)
	}
	return path, nil
}

func (s *FileSink) writeJSON(path string, doc any) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}
