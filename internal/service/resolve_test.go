package service

import (
	"testing"

	"github.com/fjod/go_cart/sync-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_LatestWinsIgnoresIncoming(t *testing.T) {
	existing := domain.CartData{
		Items:  []domain.CartItemData{{ProductID: 1, Quantity: 2, Price: 10}},
		Totals: domain.CartTotals{Subtotal: 20, Total: 20, ItemCount: 2, Currency: "USD"},
		Metadata: map[string]interface{}{
			"couponCode": "SAVE10",
		},
	}
	incoming := domain.CartData{
		Items:  []domain.CartItemData{{ProductID: 1, Quantity: 99, Price: 10}},
		Totals: domain.CartTotals{Subtotal: 990, Total: 990, ItemCount: 99},
	}

	resolved, err := Resolve(domain.StrategyLatestWins, existing, incoming, nil)
	require.NoError(t, err)
	assert.Equal(t, existing.Items, resolved.Data.Items)
	assert.Equal(t, existing.Totals, resolved.Data.Totals)
	assert.Equal(t, existing.Metadata, resolved.Data.Metadata)
	assert.Empty(t, resolved.Applied)
}

func TestResolve_LatestWinsCopies(t *testing.T) {
	existing := domain.CartData{
		Items: []domain.CartItemData{{ProductID: 1, Quantity: 2}},
	}

	resolved, err := Resolve(domain.StrategyLatestWins, existing, domain.CartData{}, nil)
	require.NoError(t, err)

	// Mutating the result must not touch the canonical state.
	resolved.Data.Items[0].Quantity = 42
	assert.Equal(t, 2, existing.Items[0].Quantity)
}

func TestResolve_MergeIsUnionSafe(t *testing.T) {
	existing := domain.CartData{
		Items:  []domain.CartItemData{{ProductID: 1, Quantity: 1, Price: 10}},
		Totals: domain.CartTotals{Currency: "USD"},
	}
	incoming := domain.CartData{
		Items: []domain.CartItemData{{ProductID: 2, Quantity: 2, Price: 5}},
	}

	resolved, err := Resolve(domain.StrategyMerge, existing, incoming, nil)
	require.NoError(t, err)

	byKey := resolved.Data.ItemsByKey()
	require.Len(t, byKey, 2)
	assert.Equal(t, 1, byKey["1"].Quantity)
	assert.Equal(t, 2, byKey["2"].Quantity)
}

func TestResolve_MergeNeverDecreasesQuantity(t *testing.T) {
	existing := domain.CartData{
		Items: []domain.CartItemData{{ProductID: 1, Quantity: 1, Price: 10}},
	}
	incoming := domain.CartData{
		Items: []domain.CartItemData{{ProductID: 1, Quantity: 3, Price: 10}},
	}

	resolved, err := Resolve(domain.StrategyMerge, existing, incoming, nil)
	require.NoError(t, err)

	require.Len(t, resolved.Data.Items, 1)
	assert.Equal(t, 3, resolved.Data.Items[0].Quantity)

	require.Len(t, resolved.Applied, 1)
	assert.Equal(t, "items.1.quantity", resolved.Applied[0].Field)
	assert.Equal(t, domain.ResolutionAccepted, resolved.Applied[0].Resolution)
}

func TestResolve_MergeKeepsHigherExistingQuantity(t *testing.T) {
	existing := domain.CartData{
		Items: []domain.CartItemData{{ProductID: 1, Quantity: 7, Price: 10}},
	}
	incoming := domain.CartData{
		Items: []domain.CartItemData{{ProductID: 1, Quantity: 2, Price: 10}},
	}

	resolved, err := Resolve(domain.StrategyMerge, existing, incoming, nil)
	require.NoError(t, err)
	assert.Equal(t, 7, resolved.Data.Items[0].Quantity)
	assert.Empty(t, resolved.Applied)
}

func TestResolve_MergeRecomputesTotals(t *testing.T) {
	existing := domain.CartData{
		Items:  []domain.CartItemData{{ProductID: 1, Quantity: 1, Price: 10}},
		Totals: domain.CartTotals{Subtotal: 10, Total: 10, ItemCount: 1, Currency: "USD"},
	}
	incoming := domain.CartData{
		Items:  []domain.CartItemData{{ProductID: 1, Quantity: 2, Price: 10}, {ProductID: 2, Quantity: 1, Price: 4}},
		Totals: domain.CartTotals{Subtotal: 24, Tax: 2, Discount: 1, Total: 25},
	}

	resolved, err := Resolve(domain.StrategyMerge, existing, incoming, nil)
	require.NoError(t, err)

	// 2×10 + 1×4 from the merged items, tax/discount from the incoming side
	assert.Equal(t, float64(24), resolved.Data.Totals.Subtotal)
	assert.Equal(t, float64(2), resolved.Data.Totals.Tax)
	assert.Equal(t, float64(1), resolved.Data.Totals.Discount)
	assert.Equal(t, float64(25), resolved.Data.Totals.Total)
	assert.Equal(t, 3, resolved.Data.Totals.ItemCount)
	assert.Equal(t, "USD", resolved.Data.Totals.Currency)
}

func TestResolve_MergeMetadataIncomingWins(t *testing.T) {
	existing := domain.CartData{
		Metadata: map[string]interface{}{"couponCode": "OLD", "shippingMethod": "standard"},
	}
	incoming := domain.CartData{
		Metadata: map[string]interface{}{"couponCode": "NEW"},
	}

	resolved, err := Resolve(domain.StrategyMerge, existing, incoming, nil)
	require.NoError(t, err)
	assert.Equal(t, "NEW", resolved.Data.Metadata["couponCode"])
	assert.Equal(t, "standard", resolved.Data.Metadata["shippingMethod"])
}

func TestResolve_UserChoiceAppliesAccepted(t *testing.T) {
	existing := domain.CartData{
		Items:  []domain.CartItemData{{ProductID: 1, Quantity: 1, Price: 10}},
		Totals: domain.CartTotals{Total: 10},
	}
	incoming := domain.CartData{
		Items:  []domain.CartItemData{{ProductID: 1, Quantity: 5, Price: 10}},
		Totals: domain.CartTotals{Total: 50},
	}
	decisions := []domain.ConflictChange{
		{Field: "items.1.quantity", OldValue: 1, NewValue: 5, Resolution: domain.ResolutionAccepted},
		{Field: "totals.total", OldValue: float64(10), NewValue: float64(50), Resolution: domain.ResolutionRejected},
	}

	resolved, err := Resolve(domain.StrategyUserChoice, existing, incoming, decisions)
	require.NoError(t, err)

	assert.Equal(t, 5, resolved.Data.Items[0].Quantity)
	assert.Equal(t, float64(10), resolved.Data.Totals.Total) // rejected, kept
	require.Len(t, resolved.Applied, 1)
	assert.Equal(t, "items.1.quantity", resolved.Applied[0].Field)
}

func TestResolve_UserChoiceRemoval(t *testing.T) {
	existing := domain.CartData{
		Items: []domain.CartItemData{
			{ProductID: 1, Quantity: 1},
			{ProductID: 2, Quantity: 3},
		},
	}
	decisions := []domain.ConflictChange{
		{Field: "items.2.removed", OldValue: 3, NewValue: 0, Resolution: domain.ResolutionAccepted},
	}

	resolved, err := Resolve(domain.StrategyUserChoice, existing, domain.CartData{}, decisions)
	require.NoError(t, err)
	require.Len(t, resolved.Data.Items, 1)
	assert.Equal(t, int64(1), resolved.Data.Items[0].ProductID)
}

func TestResolve_UserChoicePullsIncomingItem(t *testing.T) {
	existing := domain.CartData{}
	incoming := domain.CartData{
		Items: []domain.CartItemData{{ProductID: 7, Quantity: 2, Price: 3.50}},
	}
	decisions := []domain.ConflictChange{
		{Field: "items.7.quantity", OldValue: 0, NewValue: 2, Resolution: domain.ResolutionAccepted},
	}

	resolved, err := Resolve(domain.StrategyUserChoice, existing, incoming, decisions)
	require.NoError(t, err)
	require.Len(t, resolved.Data.Items, 1)
	assert.Equal(t, int64(7), resolved.Data.Items[0].ProductID)
	assert.Equal(t, 2, resolved.Data.Items[0].Quantity)
	assert.Equal(t, 3.50, resolved.Data.Items[0].Price)
}

func TestResolve_UserChoiceMetadata(t *testing.T) {
	existing := domain.CartData{
		Metadata: map[string]interface{}{"couponCode": "OLD"},
	}
	decisions := []domain.ConflictChange{
		{Field: "metadata.couponCode", OldValue: "OLD", NewValue: "NEW", Resolution: domain.ResolutionAccepted},
	}

	resolved, err := Resolve(domain.StrategyUserChoice, existing, domain.CartData{}, decisions)
	require.NoError(t, err)
	assert.Equal(t, "NEW", resolved.Data.Metadata["couponCode"])
}

func TestResolve_UserChoiceQuantityAfterJSONRoundTrip(t *testing.T) {
	existing := domain.CartData{
		Items: []domain.CartItemData{{ProductID: 1, Quantity: 1}},
	}
	// Values arrive as float64 once they have been through JSON.
	decisions := []domain.ConflictChange{
		{Field: "items.1.quantity", OldValue: float64(1), NewValue: float64(4), Resolution: domain.ResolutionAccepted},
	}

	resolved, err := Resolve(domain.StrategyUserChoice, existing, domain.CartData{}, decisions)
	require.NoError(t, err)
	assert.Equal(t, 4, resolved.Data.Items[0].Quantity)
}

func TestResolve_UserChoiceVariantKeyWithDots(t *testing.T) {
	existing := domain.CartData{
		Items: []domain.CartItemData{{ProductID: 42, VariantID: "v1.5", Quantity: 1}},
	}
	// The variant id contains dots, so the attribute must be parsed from
	// the right of the field path.
	decisions := []domain.ConflictChange{
		{Field: "items.42:v1.5.quantity", OldValue: 1, NewValue: 3, Resolution: domain.ResolutionAccepted},
	}

	resolved, err := Resolve(domain.StrategyUserChoice, existing, domain.CartData{}, decisions)
	require.NoError(t, err)
	assert.Equal(t, 3, resolved.Data.Items[0].Quantity)
}

func TestResolve_UserChoiceUnknownPath(t *testing.T) {
	decisions := []domain.ConflictChange{
		{Field: "bogus.path", NewValue: 1, Resolution: domain.ResolutionAccepted},
	}

	_, err := Resolve(domain.StrategyUserChoice, domain.CartData{}, domain.CartData{}, decisions)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestParseStrategy(t *testing.T) {
	for name, want := range map[string]domain.Strategy{
		"latest-wins": domain.StrategyLatestWins,
		"merge":       domain.StrategyMerge,
		"user-choice": domain.StrategyUserChoice,
	} {
		got, err := domain.ParseStrategy(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, name, got.String())
	}

	_, err := domain.ParseStrategy("coin-flip")
	assert.Error(t, err)
}
