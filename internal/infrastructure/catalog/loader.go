// Package catalog loads product and task-template files from disk.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"agentlab/internal/domain/entity"
)

const lfsPointerPrefix = "version https://git-lfs.github.com/spec/v1"

// flexIDs accepts either a single id string or an array of ids, as
// both occur in the raw related-edge data.
type flexIDs []string

func (f *flexIDs) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		if strings.TrimSpace(one) != "" {
			*f = []string{one}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	out := make([]string, 0, len(many))
	for _, id := range many {
		if strings.TrimSpace(id) != "" {
			out = append(out, id)
		}
	}
	*f = out
	return nil
}

type productDoc struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Brand       string             `json:"brand"`
	Price       float64            `json:"price"`
	RatingAvg   float64            `json:"rating_avg"`
	RatingCount int                `json:"rating_count"`
	Category    string             `json:"category"`
	Related     map[string]flexIDs `json:"related"`
}

// LoadProducts reads a JSON array of products. A git-LFS pointer file
// in place of real data is reported explicitly; it is the most common
// way this file breaks in deployment.
func LoadProducts(path string) ([]entity.Product, error) {
	data, err := readJSONFile(path)
	if err != nil {
		return nil, err
	}
	var docs []productDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("products file must contain a JSON array: %s (%w)", path, err)
	}

	products := make([]entity.Product, 0, len(docs))
	for _, d := range docs {
		p := entity.Product{
			ID:          d.ID,
			Title:       d.Title,
			Brand:       d.Brand,
			Price:       d.Price,
			RatingAvg:   d.RatingAvg,
			RatingCount: d.RatingCount,
			Category:    d.Category,
		}
		if len(d.Related) > 0 {
			p.Related = make(map[string][]string, len(d.Related))
			for edge, ids := range d.Related {
				p.Related[edge] = ids
			}
		}
		products = append(products, p)
	}
	return products, nil
}

// LoadTaskTemplates reads a JSON array of task templates.
func LoadTaskTemplates(path string) ([]entity.TaskTemplate, error) {
	data, err := readJSONFile(path)
	if err != nil {
		return nil, err
	}
	var templates []entity.TaskTemplate
	if err := json.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("task file must contain a JSON array: %s (%w)", path, err)
	}
	return templates, nil
}

func readJSONFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if strings.HasPrefix(string(data), lfsPointerPrefix) {
		return nil, fmt.Errorf(
			"file is a git LFS pointer, not JSON data: %s; fetch real LFS objects or untrack the file", path)
	}
	return data, nil
}
