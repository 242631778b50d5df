package domain

import (
	"encoding/json"
	"strings"

	"github.com/dmitrijs2005/fitsync/internal/common"
)

// DefaultServing is assumed when an item does not state its serving size.
const DefaultServing = "100 g"

// NutritionItem is catalog reference data: macros per serving.
type NutritionItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Serving  string  `json:"serving"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

type nutritionWire struct {
	ID       *string  `json:"id"`
	Name     *string  `json:"name"`
	Serving  *string  `json:"serving"`
	Calories *float64 `json:"calories"`
	Protein  *float64 `json:"protein"`
	Carbs    *float64 `json:"carbs"`
	Fat      *float64 `json:"fat"`
}

// ParseNutritionItem parses a nutrition payload.
func ParseNutritionItem(raw []byte) (NutritionItem, error) {
	const c = common.CollectionNutrition

	var w nutritionWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return NutritionItem{}, invalid(c, "", err.Error())
	}
	if w.ID == nil || *w.ID == "" {
		return NutritionItem{}, invalid(c, "id", "required")
	}
	if w.Name == nil || strings.TrimSpace(*w.Name) == "" {
		return NutritionItem{}, invalid(c, "name", "required")
	}

	n := NutritionItem{ID: *w.ID, Name: strings.TrimSpace(*w.Name), Serving: DefaultServing}
	if w.Serving != nil && strings.TrimSpace(*w.Serving) != "" {
		n.Serving = strings.TrimSpace(*w.Serving)
	}

	macros := []struct {
		field string
		src   *float64
		dst   *float64
	}{
		{"calories", w.Calories, &n.Calories},
		{"protein", w.Protein, &n.Protein},
		{"carbs", w.Carbs, &n.Carbs},
		{"fat", w.Fat, &n.Fat},
	}
	for _, m := range macros {
		if m.src == nil {
			continue
		}
		if *m.src < 0 {
			return NutritionItem{}, invalid(c, m.field, "must not be negative")
		}
		*m.dst = *m.src
	}

	return n, nil
}
