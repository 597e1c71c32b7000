package weight

import (
	"strings"

	"github.com/riskibarqy/scout-scoring/internal/domain/player"
)

// Catalog is the run-wide view of the active weight table, discovered once
// when the run starts and passed to normalize, score and export so all of
// them agree on the same indicator and category sets.
type Catalog struct {
	// Indicators are the active indicators present in the dataset, in weight
	// table order.
	Indicators []string `json:"indicators"`
	// Missing are active indicators with no matching dataset column.
	Missing []string `json:"missing,omitempty"`
	// Duplicates are indicators listed more than once; the last row wins.
	Duplicates []string `json:"duplicates,omitempty"`
	// UnknownDirections are indicators whose direction is neither CIMA nor BAIXO.
	// They are normalized as BAIXO.
	UnknownDirections []string `json:"unknown_directions,omitempty"`

	Directions    map[string]Direction                   `json:"directions"`
	Weights       map[string]map[player.Position]float64 `json:"weights"`
	CategoryOf    map[string]string                      `json:"category_of,omitempty"`
	SubCategoryOf map[string]string                      `json:"sub_category_of,omitempty"`
	Categories    []string                               `json:"categories,omitempty"`
	SubCategories []string                               `json:"sub_categories,omitempty"`
	ByCategory    map[string][]string                    `json:"by_category,omitempty"`
	BySubCategory map[string][]string                    `json:"by_sub_category,omitempty"`
}

// NewCatalog intersects the active entries with the dataset columns.
func NewCatalog(active []Entry, columns map[string]struct{}) Catalog {
	c := Catalog{
		Directions:    make(map[string]Direction),
		Weights:       make(map[string]map[player.Position]float64),
		CategoryOf:    make(map[string]string),
		SubCategoryOf: make(map[string]string),
		ByCategory:    make(map[string][]string),
		BySubCategory: make(map[string][]string),
	}

	latest := make(map[string]Entry, len(active))
	order := make([]string, 0, len(active))
	seen := make(map[string]int, len(active))
	for _, e := range active {
		name := strings.TrimSpace(e.Indicator)
		if name == "" {
			continue
		}
		seen[name]++
		if seen[name] == 1 {
			order = append(order, name)
		} else if seen[name] == 2 {
			c.Duplicates = append(c.Duplicates, name)
		}
		latest[name] = e
	}

	for _, name := range order {
		if _, ok := columns[name]; !ok {
			c.Missing = append(c.Missing, name)
			continue
		}
		e := latest[name]
		c.Indicators = append(c.Indicators, name)
		direction := Direction(strings.TrimSpace(string(e.Direction)))
		c.Directions[name] = direction
		if !direction.Valid() {
			c.UnknownDirections = append(c.UnknownDirections, name)
		}

		weights := make(map[player.Position]float64, len(player.CanonicalPositions))
		for _, pos := range player.CanonicalPositions {
			weights[pos] = e.Weights[pos]
		}
		c.Weights[name] = weights

		if category := strings.TrimSpace(e.Category); category != "" {
			c.CategoryOf[name] = category
			if _, ok := c.ByCategory[category]; !ok {
				c.Categories = append(c.Categories, category)
			}
			c.ByCategory[category] = append(c.ByCategory[category], name)
		}
		if sub := strings.TrimSpace(e.SubCategory); sub != "" {
			c.SubCategoryOf[name] = sub
			if _, ok := c.BySubCategory[sub]; !ok {
				c.SubCategories = append(c.SubCategories, sub)
			}
			c.BySubCategory[sub] = append(c.BySubCategory[sub], name)
		}
	}

	return c
}

// Weight returns the weight of indicator for pos, 0 when unknown.
func (c Catalog) Weight(indicator string, pos player.Position) float64 {
	return c.Weights[indicator][pos]
}
