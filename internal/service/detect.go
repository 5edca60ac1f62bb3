package service

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/fjod/go_cart/sync-service/internal/domain"
)

// conflictMetadataKeys is the allow-list of metadata keys that matter for
// conflict detection; everything else a client stuffs into metadata is
// ignored here.
var conflictMetadataKeys = []string{"couponCode", "shippingMethod", "paymentMethod"}

// DetectConflicts diffs an incoming cart state against the canonical one at
// field granularity. A nil existing state means first sync, which can never
// conflict. The output order is deterministic: item changes sorted by item
// key, then totals, then metadata.
func DetectConflicts(existing *domain.CartData, incoming domain.CartData) []domain.ConflictChange {
	if existing == nil {
		return nil
	}

	var changes []domain.ConflictChange

	existingItems := existing.ItemsByKey()
	incomingItems := incoming.ItemsByKey()

	keys := make([]string, 0, len(existingItems))
	for key := range existingItems {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	// Items added only on the incoming side are not conflicts; additions
	// are always compatible.
	for _, key := range keys {
		existingItem := existingItems[key]
		incomingItem, ok := incomingItems[key]
		if !ok {
			changes = append(changes, domain.ConflictChange{
				Field:    fmt.Sprintf("items.%s.removed", key),
				OldValue: existingItem.Quantity,
				NewValue: 0,
			})
			continue
		}
		if incomingItem.Quantity != existingItem.Quantity {
			changes = append(changes, domain.ConflictChange{
				Field:    fmt.Sprintf("items.%s.quantity", key),
				OldValue: existingItem.Quantity,
				NewValue: incomingItem.Quantity,
			})
		}
	}

	changes = append(changes, detectTotalChanges(existing.Totals, incoming.Totals)...)

	for _, key := range conflictMetadataKeys {
		incomingValue, ok := incoming.Metadata[key]
		if !ok {
			continue
		}
		existingValue := existing.Metadata[key]
		if !reflect.DeepEqual(existingValue, incomingValue) {
			changes = append(changes, domain.ConflictChange{
				Field:    "metadata." + key,
				OldValue: existingValue,
				NewValue: incomingValue,
			})
		}
	}

	return changes
}

func detectTotalChanges(existing, incoming domain.CartTotals) []domain.ConflictChange {
	var changes []domain.ConflictChange

	fields := []struct {
		name     string
		existing float64
		incoming float64
	}{
		{"subtotal", existing.Subtotal, incoming.Subtotal},
		{"tax", existing.Tax, incoming.Tax},
		{"discount", existing.Discount, incoming.Discount},
		{"total", existing.Total, incoming.Total},
	}

	for _, f := range fields {
		if f.existing != f.incoming {
			changes = append(changes, domain.ConflictChange{
				Field:    "totals." + f.name,
				OldValue: f.existing,
				NewValue: f.incoming,
			})
		}
	}

	return changes
}
