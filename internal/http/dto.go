package http

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/fjod/go_cart/shopcart/internal/cart"
	"github.com/shopspring/decimal"
)

// productKey accepts a primary key sent either as a JSON string or a number.
type productKey string

func (k *productKey) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*k = productKey(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("product_id must be a string or number: %w", err)
	}
	*k = productKey(n.String())
	return nil
}

type AddItemRequestDTO struct {
	ProductType      string         `json:"product_type"`
	ProductID        productKey     `json:"product_id"`
	Quantity         *int           `json:"quantity,omitempty"`
	Variant          any            `json:"variant,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	OverrideQuantity bool           `json:"override_quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type ItemResponseDTO struct {
	ID          string          `json:"id"`
	ProductType string          `json:"product_type"`
	ProductID   string          `json:"product_id"`
	Variant     string          `json:"variant,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Metadata    map[string]any  `json:"metadata"`
}

type CartResponseDTO struct {
	Prefix      string            `json:"prefix"`
	Items       []ItemResponseDTO `json:"items"`
	Count       int               `json:"count"`
	UniqueCount int               `json:"unique_count"`
	Total       decimal.Decimal   `json:"total"`
	Metadata    map[string]any    `json:"metadata"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func toItemDTO(item *cart.Item) ItemResponseDTO {
	return ItemResponseDTO{
		ID:          item.ID,
		ProductType: item.Ref.Type,
		ProductID:   item.Ref.PK,
		Variant:     string(item.Variant),
		Quantity:    item.Quantity,
		UnitPrice:   item.Price(),
		Subtotal:    item.Subtotal(),
		Metadata:    item.Metadata,
	}
}

func toCartDTO(c *cart.Cart) CartResponseDTO {
	items := make([]ItemResponseDTO, 0, c.UniqueCount())
	for _, item := range c.Items() {
		items = append(items, toItemDTO(item))
	}
	return CartResponseDTO{
		Prefix:      c.Prefix(),
		Items:       items,
		Count:       c.Count(),
		UniqueCount: c.UniqueCount(),
		Total:       c.Total(),
		Metadata:    c.Metadata(),
	}
}
