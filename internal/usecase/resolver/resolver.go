// Package resolver expands task templates into concrete, immutable
// tasks. Resolution is a pure function of (template, catalog snapshot,
// seed): the same inputs always produce the same resolved task.
package resolver

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"

	"agentlab/internal/application/port/output"
	"agentlab/internal/domain/entity"
)

var (
	ErrNoProducts     = errors.New("no products available to sample")
	ErrUnknownBinding = errors.New("unknown binding")
	ErrUnknownField   = errors.New("unknown field")
)

const defaultGraphEdge = "also_bought"

// alternateEdges are tried after the task's requested edge when the
// seed product has no usable link of that relation.
var alternateEdges = []string{"bought_together", "also_viewed", "also_bought"}

// Resolve materializes one template against the catalog. The seeded
// generator is used only for product sampling.
func Resolve(tpl entity.TaskTemplate, catalog output.CatalogPort, seed int64) (entity.ResolvedTask, error) {
	rng := rand.New(rand.NewSource(seed))
	task := entity.ResolvedTask{
		TaskID:       tpl.TaskID,
		WorkloadType: tpl.WorkloadType,
		Materialized: true,
		Seed:         seed,
	}

	specTree, err := decodeTree(tpl.Spec)
	if err != nil {
		return entity.ResolvedTask{}, fmt.Errorf("task %s: decode spec: %w", tpl.TaskID, err)
	}
	oracleTree, err := decodeTree(tpl.Oracle)
	if err != nil {
		return entity.ResolvedTask{}, fmt.Errorf("task %s: decode oracle: %w", tpl.TaskID, err)
	}

	b := bindings{}
	sampled, warned, err := bindSeedProduct(specTree, catalog, rng)
	if err != nil {
		return entity.ResolvedTask{}, fmt.Errorf("task %s: %w", tpl.TaskID, err)
	}
	if sampled != nil {
		b["P"] = *sampled
		task.SampledProduct = &entity.SeedRef{ID: sampled.ID, Title: sampled.Title}
		if warned {
			task.ResolverWarning = fmt.Sprintf("seed sampling fallback used for task %s", tpl.TaskID)
		}
	}
	delete(specTree, "seed")

	specMap, err := evalTree(specTree, b)
	if err != nil {
		return entity.ResolvedTask{}, fmt.Errorf("task %s: resolve spec: %w", tpl.TaskID, err)
	}
	oracleMap, err := evalTree(oracleTree, b)
	if err != nil {
		return entity.ResolvedTask{}, fmt.Errorf("task %s: resolve oracle: %w", tpl.TaskID, err)
	}

	if err := remap(specMap, &task.Spec); err != nil {
		return entity.ResolvedTask{}, fmt.Errorf("task %s: spec shape: %w", tpl.TaskID, err)
	}
	if err := remap(oracleMap, &task.Oracle); err != nil {
		return entity.ResolvedTask{}, fmt.Errorf("task %s: oracle shape: %w", tpl.TaskID, err)
	}

	if task.WorkloadType == entity.WorkloadGraphBrowse && sampled != nil {
		edge := task.Spec.Edge
		if edge == "" {
			edge = defaultGraphEdge
		}
		targetID, edgeUsed := pickGraphTarget(catalog, *sampled, edge)
		task.Spec.StartID = sampled.ID
		task.Spec.TargetID = targetID
		task.Spec.EdgeUsed = edgeUsed
		if task.Oracle.Type == entity.OracleRelatedEdgeMatch {
			task.Oracle.ExpectedID = targetID
		}
	}

	// Jitter draw so reruns with a derived base seed vary the next
	// template's sample.
	_ = rng.Float64()
	return task, nil
}

// bindSeedProduct evaluates spec.seed.$sample_product when present.
// warned reports that the predicate matched nothing and the
// catalog-wide fallback was used instead.
func bindSeedProduct(specTree map[string]any, catalog output.CatalogPort, rng *rand.Rand) (p *entity.Product, warned bool, err error) {
	seedRaw, ok := specTree["seed"].(map[string]any)
	if !ok {
		return nil, false, nil
	}
	directive, ok := seedRaw["$sample_product"].(map[string]any)
	if !ok {
		return nil, false, nil
	}

	filter := parseSampleFilter(directive["where"])
	if picked, ok := catalog.Sample(filter, rng); ok {
		return &picked, false, nil
	}
	if picked, ok := catalog.Sample(nil, rng); ok {
		return &picked, true, nil
	}
	return nil, false, ErrNoProducts
}

func parseSampleFilter(raw any) output.SampleFilter {
	where, ok := raw.(map[string]any)
	if !ok || len(where) == 0 {
		return nil
	}
	filter := output.SampleFilter{}
	for field, cond := range where {
		if m, ok := cond.(map[string]any); ok {
			if v, present := m["$exists"]; present {
				exists, _ := v.(bool)
				filter[field] = output.FieldPredicate{Exists: &exists}
				continue
			}
			if v, present := m["$gt"]; present {
				if f, ok := asFloat(v); ok {
					filter[field] = output.FieldPredicate{GreaterThan: &f}
					continue
				}
			}
		}
		filter[field] = output.FieldPredicate{Equals: cond}
	}
	return filter
}

// pickGraphTarget finds the target entity for a graph-browse task:
// requested edge, then alternate edges, then same brand, then same
// category, then any other product.
func pickGraphTarget(catalog output.CatalogPort, seedProduct entity.Product, edge string) (targetID, edgeUsed string) {
	tried := map[string]bool{}
	for _, e := range append([]string{edge}, alternateEdges...) {
		if tried[e] {
			continue
		}
		tried[e] = true
		for _, id := range seedProduct.Related[e] {
			if id == "" {
				continue
			}
			if _, ok := catalog.FindByID(id); ok {
				return id, e
			}
		}
	}

	if seedProduct.Brand != "" {
		hits := catalog.List(output.ListQuery{Brand: seedProduct.Brand, ExcludeID: seedProduct.ID, Limit: 1})
		if len(hits) > 0 {
			return hits[0].ID, entity.EdgeUsedBrandFallback
		}
	}
	if seedProduct.Category != "" {
		hits := catalog.List(output.ListQuery{Category: seedProduct.Category, ExcludeID: seedProduct.ID, Limit: 1})
		if len(hits) > 0 {
			return hits[0].ID, entity.EdgeUsedCategoryFallback
		}
	}
	hits := catalog.List(output.ListQuery{ExcludeID: seedProduct.ID, Limit: 1})
	if len(hits) > 0 {
		return hits[0].ID, entity.EdgeUsedRandomFallback
	}
	return "", entity.EdgeUsedNone
}

func decodeTree(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var tree map[string]any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, err
	}
	if tree == nil {
		tree = map[string]any{}
	}
	return tree, nil
}

func evalTree(tree map[string]any, b bindings) (map[string]any, error) {
	parsed, err := parseNode(tree)
	if err != nil {
		return nil, err
	}
	resolved, err := parsed.eval(b)
	if err != nil {
		return nil, err
	}
	out, ok := resolved.(map[string]any)
	if !ok {
		return map[string]any{}, nil
	}
	return out, nil
}

// remap decodes a resolved generic tree into its typed shape.
func remap(from map[string]any, to any) error {
	data, err := json.Marshal(from)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, to)
}
