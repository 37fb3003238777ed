package draw

import (
	"github.com/punchamoorthee/bazaarops/internal/catalog"
	"github.com/punchamoorthee/bazaarops/internal/models"
)

// UpgradeThreshold is how many identical base copies consolidate into
// one full variant.
const UpgradeThreshold = 5

// PlanUpgrades computes the consolidations owed for the given inventory
// rows: every non-full card with a catalog full variant converts five
// copies into one full card, repeatedly (a count of 12 yields two
// upgrades and leaves 2). The returned deltas go through the same atomic
// inventory apply as any other mutation; planning itself touches nothing.
func PlanUpgrades(c *catalog.Catalog, items []models.InventoryItem) ([]models.UpgradeEvent, []models.InventoryDelta) {
	var events []models.UpgradeEvent
	var deltas []models.InventoryDelta

	for _, item := range items {
		if item.IsFull || item.Count < UpgradeThreshold {
			continue
		}
		ref := models.CardRef{Category: item.Category, Name: item.Name}
		full, ok := c.FullVariant(ref)
		if !ok {
			continue
		}

		upgrades := item.Count / UpgradeThreshold
		for i := 0; i < upgrades; i++ {
			events = append(events, models.UpgradeEvent{
				Category:   item.Category,
				Name:       full.Name,
				BaseName:   item.Name,
				Sacrificed: UpgradeThreshold,
			})
		}
		deltas = append(deltas,
			models.InventoryDelta{Category: item.Category, Name: item.Name, Delta: -upgrades * UpgradeThreshold},
			models.InventoryDelta{Category: full.Category, Name: full.Name, Delta: upgrades},
		)
	}
	return events, deltas
}
