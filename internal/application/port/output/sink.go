package output

import "agentlab/internal/domain/entity"

// EpisodeSink persists a batch run: one serializable record per
// episode plus one rollup document per run.
type EpisodeSink interface {
	WriteEpisodes(episodes []entity.EpisodeRecord) (path string, err error)
	WriteSummary(summary map[string]any) (path string, err error)
}
