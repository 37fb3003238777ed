package catalog

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"

	"github.com/punchamoorthee/bazaarops/internal/models"
)

// FullSuffix marks the upgraded variant of a base card in the catalog.
const FullSuffix = " (Full)"

// Category is a rarity tier with its draw probability mass.
type Category struct {
	Name   string
	Weight float64
}

type fileCategory struct {
	Name   string `yaml:"name"`
	Weight string `yaml:"weight"`
}

type fileCard struct {
	Category string `yaml:"category"`
	Name     string `yaml:"name"`
	ImageRef string `yaml:"image_ref"`
	Full     bool   `yaml:"full"`
}

type file struct {
	Categories []fileCategory `yaml:"categories"`
	Cards      []fileCard     `yaml:"cards"`
}

// Catalog is the immutable registry of card definitions. It is built once
// at startup and only read afterwards, so it needs no locking.
type Catalog struct {
	categories []Category
	cards      []models.Card
	byCategory map[string][]models.Card
	baseByCat  map[string][]models.Card
	byRef      map[models.CardRef]models.Card
}

// Load reads and validates a catalog YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse builds a catalog from YAML bytes, rejecting any file that breaks
// the catalog invariants: unique cards, positive weights summing to
// exactly 1, and every full variant backed by a base card.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(f.Categories) == 0 {
		return nil, fmt.Errorf("catalog has no categories")
	}

	c := &Catalog{
		byCategory: make(map[string][]models.Card),
		baseByCat:  make(map[string][]models.Card),
		byRef:      make(map[models.CardRef]models.Card),
	}

	seen := make(map[string]bool)
	sum := decimal.Zero
	for _, fc := range f.Categories {
		if fc.Name == "" {
			return nil, fmt.Errorf("category with empty name")
		}
		if seen[fc.Name] {
			return nil, fmt.Errorf("duplicate category %q", fc.Name)
		}
		seen[fc.Name] = true

		w, err := decimal.NewFromString(fc.Weight)
		if err != nil {
			return nil, fmt.Errorf("category %q: bad weight %q: %w", fc.Name, fc.Weight, err)
		}
		if !w.IsPositive() {
			return nil, fmt.Errorf("category %q: weight must be positive, got %s", fc.Name, w)
		}
		sum = sum.Add(w)
		weight, _ := w.Float64()
		c.categories = append(c.categories, Category{Name: fc.Name, Weight: weight})
	}
	if !sum.Equal(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("category weights sum to %s, want 1", sum)
	}

	weightOf := make(map[string]float64, len(c.categories))
	for _, cat := range c.categories {
		weightOf[cat.Name] = cat.Weight
	}

	for _, fc := range f.Cards {
		if fc.Name == "" || fc.Category == "" {
			return nil, fmt.Errorf("card with empty name or category")
		}
		if _, ok := weightOf[fc.Category]; !ok {
			return nil, fmt.Errorf("card %q references unknown category %q", fc.Name, fc.Category)
		}
		if fc.Full != strings.HasSuffix(fc.Name, FullSuffix) {
			return nil, fmt.Errorf("card %q: full flag and %q suffix disagree", fc.Name, FullSuffix)
		}

		ref := models.CardRef{Category: fc.Category, Name: fc.Name}
		if _, dup := c.byRef[ref]; dup {
			return nil, fmt.Errorf("duplicate card %s/%s", fc.Category, fc.Name)
		}

		card := models.Card{
			Category:     fc.Category,
			Name:         fc.Name,
			ImageRef:     fc.ImageRef,
			IsFull:       fc.Full,
			RarityWeight: weightOf[fc.Category],
		}
		c.byRef[ref] = card
		c.cards = append(c.cards, card)
		c.byCategory[fc.Category] = append(c.byCategory[fc.Category], card)
		if !fc.Full {
			c.baseByCat[fc.Category] = append(c.baseByCat[fc.Category], card)
		}
	}

	// Every full variant needs its base card in the same category.
	for ref, card := range c.byRef {
		if !card.IsFull {
			continue
		}
		base := models.CardRef{
			Category: ref.Category,
			Name:     strings.TrimSuffix(ref.Name, FullSuffix),
		}
		if _, ok := c.byRef[base]; !ok {
			return nil, fmt.Errorf("full card %s/%s has no base card", ref.Category, ref.Name)
		}
	}

	return c, nil
}

// Categories returns the rarity tiers in declared order.
func (c *Catalog) Categories() []Category {
	return c.categories
}

// Cards returns every definition in declared order.
func (c *Catalog) Cards() []models.Card {
	return c.cards
}

// Lookup resolves a card by its catalog coordinates.
func (c *Catalog) Lookup(ref models.CardRef) (models.Card, bool) {
	card, ok := c.byRef[ref]
	return card, ok
}

// BaseCards returns the non-full definitions of a category.
func (c *Catalog) BaseCards(category string) []models.Card {
	return c.baseByCat[category]
}

// FullVariant resolves the upgraded variant of a base card, if the
// catalog defines one.
func (c *Catalog) FullVariant(ref models.CardRef) (models.Card, bool) {
	card, ok := c.byRef[models.CardRef{Category: ref.Category, Name: ref.Name + FullSuffix}]
	return card, ok
}

// Size is the total number of definitions, full variants included.
func (c *Catalog) Size() int {
	return len(c.cards)
}
