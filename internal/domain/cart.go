package domain

import "fmt"

// ProductRef identifies a catalog product by type tag and primary key.
type ProductRef struct {
	Type string `json:"type" bson:"type"`
	PK   string `json:"pk" bson:"pk"`
}

func (r ProductRef) String() string {
	return fmt.Sprintf("%s:%s", r.Type, r.PK)
}

func (r ProductRef) IsZero() bool {
	return r.Type == "" || r.PK == ""
}

type ItemRecord struct {
	ID       string         `json:"id" bson:"id"`
	Quantity int            `json:"quantity" bson:"quantity"`
	Variant  Variant        `json:"variant,omitempty" bson:"variant,omitempty"`
	Product  ProductRef     `json:"product" bson:"product"`
	Metadata map[string]any `json:"metadata" bson:"metadata"`
}

// Slot is the persisted form of one namespaced cart.
type Slot struct {
	Items    []ItemRecord   `json:"items" bson:"items"`
	Metadata map[string]any `json:"metadata" bson:"metadata"`
}

func (s Slot) IsEmpty() bool {
	return len(s.Items) == 0 && len(s.Metadata) == 0
}

// State maps a cart prefix to its slot. Every backend persists this shape.
type State map[string]Slot

func (s State) IsEmpty() bool {
	for _, slot := range s {
		if !slot.IsEmpty() {
			return false
		}
	}
	return true
}
