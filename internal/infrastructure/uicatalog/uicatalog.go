// Package uicatalog loads the UI/action catalog: the per-view static
// prior weight tables the scoring policies start from.
package uicatalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"agentlab/internal/domain/entity"
)

type Catalog struct {
	Views []ViewConfig `yaml:"views"`
}

type ViewConfig struct {
	ViewID string      `yaml:"view_id"`
	Priors PriorConfig `yaml:"priors"`
}

type PriorConfig struct {
	ActionWeights map[string]float64 `yaml:"action_weights"`
}

// Load reads a UI catalog YAML file.
func Load(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read ui catalog: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("parse ui catalog %s: %w", path, err)
	}
	return c, nil
}

// StaticPriors converts the catalog into the per-view weight tables
// the policies consume.
func (c Catalog) StaticPriors() map[entity.View]entity.Distribution {
	out := make(map[entity.View]entity.Distribution, len(c.Views))
	for _, view := range c.Views {
		dist := entity.Distribution{}
		for actionType, weight := range view.Priors.ActionWeights {
			dist[entity.ActionType(actionType)] = weight
		}
		out[entity.View(view.ViewID)] = dist
	}
	return out
}

// Default is the built-in weight table used when no catalog file is
// given. Weights favor the action that usually advances each view.
func Default() Catalog {
	return Catalog{Views: []ViewConfig{
		{ViewID: string(entity.ViewHome), Priors: PriorConfig{ActionWeights: map[string]float64{
			"Search": 0.8, "GoToCart": 0.1, "NoOp": 0.1,
		}}},
		{ViewID: string(entity.ViewSearchResults), Priors: PriorConfig{ActionWeights: map[string]float64{
			"OpenResult": 0.45, "ApplyFacet": 0.2, "SortBy": 0.2, "Search": 0.1, "GoToCart": 0.05,
		}}},
		{ViewID: string(entity.ViewEmptyResults), Priors: PriorConfig{ActionWeights: map[string]float64{
			"Search": 0.6, "ApplyFacet": 0.2, "SortBy": 0.1, "NoOp": 0.1,
		}}},
		{ViewID: string(entity.ViewProductDetail), Priors: PriorConfig{ActionWeights: map[string]float64{
			"AddToCart": 0.5, "OpenRelated": 0.25, "BackToResults": 0.15, "GoToCart": 0.1,
		}}},
		{ViewID: string(entity.ViewCart), Priors: PriorConfig{ActionWeights: map[string]float64{
			"NoOp": 0.7, "BackToResults": 0.3,
		}}},
	}}
}
