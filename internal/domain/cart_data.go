package domain

import (
	"strconv"
	"time"
)

// CartItemData is one line of a cart as captured in snapshots and backups.
type CartItemData struct {
	ProductID     int64     `bson:"product_id" json:"product_id"`
	VariantID     string    `bson:"variant_id,omitempty" json:"variant_id,omitempty"`
	Quantity      int       `bson:"quantity" json:"quantity"`
	Price         float64   `bson:"price" json:"price"`
	OriginalPrice float64   `bson:"original_price,omitempty" json:"original_price,omitempty"`
	AddedAt       time.Time `bson:"added_at" json:"added_at"`
}

type CartTotals struct {
	Subtotal  float64 `bson:"subtotal" json:"subtotal"`
	Tax       float64 `bson:"tax" json:"tax"`
	Discount  float64 `bson:"discount" json:"discount"`
	Total     float64 `bson:"total" json:"total"`
	ItemCount int     `bson:"item_count" json:"item_count"`
	Currency  string  `bson:"currency" json:"currency"`
}

// CartData is the full cart state a device submits and snapshots preserve.
type CartData struct {
	Items        []CartItemData         `bson:"items" json:"items"`
	Totals       CartTotals             `bson:"totals" json:"totals"`
	Metadata     map[string]interface{} `bson:"metadata,omitempty" json:"metadata,omitempty"`
	LastModified time.Time              `bson:"last_modified" json:"last_modified"`
}

// ItemKey identifies an item line across devices. Variants of the same
// product are distinct lines.
func (i CartItemData) ItemKey() string {
	if i.VariantID == "" {
		return strconv.FormatInt(i.ProductID, 10)
	}
	return strconv.FormatInt(i.ProductID, 10) + ":" + i.VariantID
}

// ItemsByKey indexes the cart's items for comparison and merging.
func (d CartData) ItemsByKey() map[string]CartItemData {
	m := make(map[string]CartItemData, len(d.Items))
	for _, item := range d.Items {
		m[item.ItemKey()] = item
	}
	return m
}
