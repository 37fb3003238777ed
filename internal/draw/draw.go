package draw

import (
	"math/rand"

	"github.com/punchamoorthee/bazaarops/internal/catalog"
	"github.com/punchamoorthee/bazaarops/internal/models"
)

// Engine samples cards from the catalog by rarity weight. Draws never
// produce full variants; those are minted only by consolidation.
type Engine struct {
	catalog *catalog.Catalog
}

func NewEngine(c *catalog.Catalog) *Engine {
	return &Engine{catalog: c}
}

// eligible returns the categories that currently hold at least one base
// card, with their raw weights and the weight total.
func (e *Engine) eligible() ([]catalog.Category, float64) {
	var cats []catalog.Category
	var total float64
	for _, cat := range e.catalog.Categories() {
		if len(e.catalog.BaseCards(cat.Name)) == 0 {
			continue
		}
		cats = append(cats, cat)
		total += cat.Weight
	}
	return cats, total
}

// CategoryWeights returns the effective sampling distribution: empty
// categories excluded, remaining weights renormalized to sum to 1.
func (e *Engine) CategoryWeights() map[string]float64 {
	cats, total := e.eligible()
	weights := make(map[string]float64, len(cats))
	for _, cat := range cats {
		weights[cat.Name] = cat.Weight / total
	}
	return weights
}

// Draw samples n cards independently: a weighted category pick, then a
// uniform pick within the category. Repeats are allowed.
func (e *Engine) Draw(rng *rand.Rand, n int) []models.Card {
	cats, total := e.eligible()
	if len(cats) == 0 || n <= 0 {
		return nil
	}

	drawn := make([]models.Card, 0, n)
	for i := 0; i < n; i++ {
		r := rng.Float64() * total
		idx := len(cats) - 1
		for j, cat := range cats {
			r -= cat.Weight
			if r < 0 {
				idx = j
				break
			}
		}
		cards := e.catalog.BaseCards(cats[idx].Name)
		drawn = append(drawn, cards[rng.Intn(len(cards))])
	}
	return drawn
}
