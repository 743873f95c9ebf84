package model

import "github.com/google/uuid"

type Product struct {
	Base
	CategoryID  *uuid.UUID `json:"category_id,omitempty" db:"category_id"`
	Name        string     `json:"name" db:"name"`
	Slug        string     `json:"slug" db:"slug"`
	Description string     `json:"description" db:"description"`
	PriceCents  int64      `json:"price_cents" db:"price_cents"`
	Currency    string     `json:"currency" db:"currency"`
	Stock       int        `json:"stock" db:"stock"`
	Active      bool       `json:"active" db:"active"`
}

type Category struct {
	Base
	ParentID *uuid.UUID `json:"parent_id,omitempty" db:"parent_id"`
	Name     string     `json:"name" db:"name"`
	Slug     string     `json:"slug" db:"slug"`
	Position int        `json:"position" db:"position"`
}
