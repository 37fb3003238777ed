package draw

import (
	"crypto/md5"
	"encoding/binary"
	"math/rand"

	"github.com/punchamoorthee/bazaarops/internal/models"
)

// SacrificialCount is how many candidate cards a day's sacrifice stakes.
const SacrificialCount = 5

// sacrificialSeed derives the daily selection seed from the user and the
// local calendar day, so repeated previews within one day agree and the
// selection re-rolls at midnight.
func sacrificialSeed(userID, day string) int64 {
	sum := md5.Sum([]byte(userID + "-" + day))
	return int64(binary.BigEndian.Uint32(sum[12:]))
}

// SelectSacrifices picks up to five distinct owned cards for the day's
// sacrificial draw. Full variants are ignored; a card's chance of being
// picked scales with how many copies the user owns. The result is stable
// for a given (user, day) pair regardless of call order.
func SelectSacrifices(userID, day string, owned []models.InventoryItem) []models.CardRef {
	var weighted []models.CardRef
	for _, item := range owned {
		if item.IsFull || item.Count < 1 {
			continue
		}
		ref := models.CardRef{Category: item.Category, Name: item.Name}
		for i := 0; i < item.Count; i++ {
			weighted = append(weighted, ref)
		}
	}
	if len(weighted) == 0 {
		return nil
	}

	rng := rand.New(rand.NewSource(sacrificialSeed(userID, day)))

	selected := make([]models.CardRef, 0, SacrificialCount)
	picked := make(map[models.CardRef]bool)
	for attempts := 0; len(selected) < SacrificialCount && attempts < 2*len(weighted); attempts++ {
		ref := weighted[rng.Intn(len(weighted))]
		if picked[ref] {
			continue
		}
		picked[ref] = true
		selected = append(selected, ref)
	}
	return selected
}

// EligibleCopies counts the non-full copies a user owns, the gate for
// unlocking the sacrificial draw.
func EligibleCopies(owned []models.InventoryItem) int {
	var n int
	for _, item := range owned {
		if !item.IsFull {
			n += item.Count
		}
	}
	return n
}
