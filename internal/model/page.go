package model

type Page struct {
	Base
	Slug      string `json:"slug" db:"slug"`
	Title     string `json:"title" db:"title"`
	Body      string `json:"body" db:"body"`
	Published bool   `json:"published" db:"published"`
}
