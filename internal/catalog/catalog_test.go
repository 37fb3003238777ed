package catalog

import (
	"strings"
	"testing"

	"github.com/punchamoorthee/bazaarops/internal/models"
)

const validYAML = `
categories:
  - name: Founders
    weight: "0.3"
  - name: Students
    weight: "0.7"
cards:
  - category: Founders
    name: Alia
    image_ref: img/alia.png
  - category: Founders
    name: Alia (Full)
    image_ref: img/alia_full.png
    full: true
  - category: Students
    name: Brin
  - category: Students
    name: Cora
`

func TestParseValidCatalog(t *testing.T) {
	c, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if got := len(c.Categories()); got != 2 {
		t.Fatalf("got %d categories, want 2", got)
	}
	if c.Size() != 4 {
		t.Errorf("Size = %d, want 4", c.Size())
	}
	if got := len(c.BaseCards("Founders")); got != 1 {
		t.Errorf("BaseCards(Founders) = %d cards, want 1 (full excluded)", got)
	}

	card, ok := c.Lookup(models.CardRef{Category: "Students", Name: "Brin"})
	if !ok {
		t.Fatal("Brin not found")
	}
	if card.RarityWeight != 0.7 {
		t.Errorf("Brin weight = %v, want 0.7", card.RarityWeight)
	}

	full, ok := c.FullVariant(models.CardRef{Category: "Founders", Name: "Alia"})
	if !ok {
		t.Fatal("full variant of Alia not found")
	}
	if !full.IsFull || full.Name != "Alia (Full)" {
		t.Errorf("unexpected full variant %+v", full)
	}
}

func TestParseRejectsBadWeightSum(t *testing.T) {
	bad := strings.Replace(validYAML, `"0.7"`, `"0.69"`, 1)
	if _, err := Parse([]byte(bad)); err == nil {
		t.Fatal("expected error for weights not summing to 1")
	}
}

func TestParseRejectsOrphanFullCard(t *testing.T) {
	bad := `
categories:
  - name: Students
    weight: "1"
cards:
  - category: Students
    name: Ghost (Full)
    full: true
`
	if _, err := Parse([]byte(bad)); err == nil {
		t.Fatal("expected error for full card without base")
	}
}

func TestParseRejectsDuplicateCard(t *testing.T) {
	bad := validYAML + `
  - category: Students
    name: Brin
`
	if _, err := Parse([]byte(bad)); err == nil {
		t.Fatal("expected error for duplicate card")
	}
}

func TestParseRejectsUnknownCategory(t *testing.T) {
	bad := validYAML + `
  - category: Spirits
    name: Dorn
`
	if _, err := Parse([]byte(bad)); err == nil {
		t.Fatal("expected error for unknown category")
	}
}

func TestParseRejectsFullFlagMismatch(t *testing.T) {
	bad := strings.Replace(validYAML, "full: true", "full: false", 1)
	if _, err := Parse([]byte(bad)); err == nil {
		t.Fatal("expected error for full flag disagreeing with name suffix")
	}
}
