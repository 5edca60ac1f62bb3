package service

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/fjod/go_cart/sync-service/internal/domain"
)

// Resolved is the outcome of conflict resolution: a reconciled cart state
// and the changes that were actually applied to produce it.
type Resolved struct {
	Data    domain.CartData
	Applied []domain.ConflictChange
}

// Resolve reconciles the canonical cart state with the incoming one using
// the given strategy. Decisions are only consulted for user-choice.
func Resolve(strategy domain.Strategy, existing, incoming domain.CartData, decisions []domain.ConflictChange) (Resolved, error) {
	switch strategy {
	case domain.StrategyLatestWins:
		// The most recently persisted write dominates; the incoming
		// payload is discarded.
		return Resolved{Data: copyCartData(existing)}, nil
	case domain.StrategyMerge:
		return mergeResolve(existing, incoming), nil
	case domain.StrategyUserChoice:
		return userChoiceResolve(existing, incoming, decisions)
	default:
		return Resolved{}, fmt.Errorf("unknown resolution strategy %v", strategy)
	}
}

// mergeResolve unions the item sets, takes the max quantity where both sides
// hold the same item (a concurrent increase is never silently dropped) and
// recomputes totals from the merged items instead of picking a side.
func mergeResolve(existing, incoming domain.CartData) Resolved {
	result := copyCartData(existing)
	var applied []domain.ConflictChange

	merged := result.ItemsByKey()
	incomingItems := incoming.ItemsByKey()

	for i, item := range result.Items {
		key := item.ItemKey()
		incomingItem, ok := incomingItems[key]
		if !ok {
			continue
		}
		if incomingItem.Quantity > item.Quantity {
			applied = append(applied, domain.ConflictChange{
				Field:      fmt.Sprintf("items.%s.quantity", key),
				OldValue:   item.Quantity,
				NewValue:   incomingItem.Quantity,
				Resolution: domain.ResolutionAccepted,
			})
			result.Items[i].Quantity = incomingItem.Quantity
		}
	}

	addedKeys := make([]string, 0)
	for key := range incomingItems {
		if _, ok := merged[key]; !ok {
			addedKeys = append(addedKeys, key)
		}
	}
	sort.Strings(addedKeys)
	for _, key := range addedKeys {
		item := incomingItems[key]
		applied = append(applied, domain.ConflictChange{
			Field:      fmt.Sprintf("items.%s.quantity", key),
			OldValue:   0,
			NewValue:   item.Quantity,
			Resolution: domain.ResolutionAccepted,
		})
		result.Items = append(result.Items, item)
	}

	// Totals are derivable, so re-derive what we can from the merged item
	// set. Tax and discount come from the incoming side, the most recent
	// client computation; pricing itself is not this service's job.
	result.Totals = recomputeTotals(result.Items, incoming.Totals, existing.Totals)

	if result.Metadata == nil && (len(existing.Metadata) > 0 || len(incoming.Metadata) > 0) {
		result.Metadata = make(map[string]interface{})
	}
	for _, key := range conflictMetadataKeys {
		if v, ok := incoming.Metadata[key]; ok {
			result.Metadata[key] = v
		}
	}

	if incoming.LastModified.After(result.LastModified) {
		result.LastModified = incoming.LastModified
	}

	return Resolved{Data: result, Applied: applied}
}

// userChoiceResolve starts from the canonical state and applies exactly the
// accepted changes at their field paths; rejected changes keep the existing
// value.
func userChoiceResolve(existing, incoming domain.CartData, decisions []domain.ConflictChange) (Resolved, error) {
	result := copyCartData(existing)
	var applied []domain.ConflictChange

	for _, decision := range decisions {
		if decision.Resolution != domain.ResolutionAccepted {
			continue
		}
		if err := applyChange(&result, incoming, decision); err != nil {
			return Resolved{}, err
		}
		applied = append(applied, decision)
	}

	return Resolved{Data: result, Applied: applied}, nil
}

func applyChange(data *domain.CartData, incoming domain.CartData, change domain.ConflictChange) error {
	field := change.Field

	switch {
	case strings.HasPrefix(field, "items."):
		// The item key may itself contain dots (variant ids), so the
		// attribute is whatever follows the last dot.
		rest := strings.TrimPrefix(field, "items.")
		idx := strings.LastIndex(rest, ".")
		if idx <= 0 || idx == len(rest)-1 {
			return fmt.Errorf("%w: malformed item field %q", ErrValidation, field)
		}
		return applyItemChange(data, incoming, rest[:idx], rest[idx+1:], change.NewValue)
	case strings.HasPrefix(field, "totals."):
		return applyTotalsChange(&data.Totals, strings.TrimPrefix(field, "totals."), change.NewValue)
	case strings.HasPrefix(field, "metadata."):
		key := strings.TrimPrefix(field, "metadata.")
		if key == "" {
			return fmt.Errorf("%w: malformed metadata field %q", ErrValidation, field)
		}
		if data.Metadata == nil {
			data.Metadata = make(map[string]interface{})
		}
		data.Metadata[key] = change.NewValue
		return nil
	default:
		return fmt.Errorf("%w: unknown field path %q", ErrValidation, field)
	}
}

func applyItemChange(data *domain.CartData, incoming domain.CartData, itemKey, attr string, newValue interface{}) error {
	switch attr {
	case "quantity":
		quantity, err := asInt(newValue)
		if err != nil {
			return fmt.Errorf("%w: quantity for item %s: %v", ErrValidation, itemKey, err)
		}
		for i, item := range data.Items {
			if item.ItemKey() == itemKey {
				data.Items[i].Quantity = quantity
				return nil
			}
		}
		// The item only exists on the incoming side; accepting its
		// quantity pulls the whole line in.
		if item, ok := incoming.ItemsByKey()[itemKey]; ok {
			item.Quantity = quantity
			data.Items = append(data.Items, item)
			return nil
		}
		return fmt.Errorf("%w: item %s not present on either side", ErrValidation, itemKey)
	case "removed":
		for i, item := range data.Items {
			if item.ItemKey() == itemKey {
				data.Items = append(data.Items[:i], data.Items[i+1:]...)
				return nil
			}
		}
		return nil // already gone, removal is idempotent
	default:
		return fmt.Errorf("%w: unknown item attribute %q", ErrValidation, attr)
	}
}

func applyTotalsChange(totals *domain.CartTotals, field string, newValue interface{}) error {
	value, err := asFloat(newValue)
	if err != nil {
		return fmt.Errorf("%w: totals.%s: %v", ErrValidation, field, err)
	}

	switch field {
	case "subtotal":
		totals.Subtotal = value
	case "tax":
		totals.Tax = value
	case "discount":
		totals.Discount = value
	case "total":
		totals.Total = value
	default:
		return fmt.Errorf("%w: unknown totals field %q", ErrValidation, field)
	}
	return nil
}

func recomputeTotals(items []domain.CartItemData, incoming, existing domain.CartTotals) domain.CartTotals {
	totals := domain.CartTotals{
		Tax:      incoming.Tax,
		Discount: incoming.Discount,
		Currency: existing.Currency,
	}
	if totals.Currency == "" {
		totals.Currency = incoming.Currency
	}

	for _, item := range items {
		totals.Subtotal += item.Price * float64(item.Quantity)
		totals.ItemCount += item.Quantity
	}
	totals.Total = totals.Subtotal + totals.Tax - totals.Discount

	return totals
}

func copyCartData(data domain.CartData) domain.CartData {
	out := data
	out.Items = make([]domain.CartItemData, len(data.Items))
	copy(out.Items, data.Items)
	if data.Metadata != nil {
		out.Metadata = make(map[string]interface{}, len(data.Metadata))
		for k, v := range data.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// asInt and asFloat tolerate the types change values arrive in after a trip
// through JSON and BSON.
func asInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		return int(i), err
	default:
		return 0, fmt.Errorf("cannot interpret %T as an integer", v)
	}
}

func asFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	default:
		return 0, fmt.Errorf("cannot interpret %T as a number", v)
	}
}
