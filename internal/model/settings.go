package model

// StoreSettings holds the business information rendered into storefront
// pages and email footers. Single-row table, cached aggressively.
type StoreSettings struct {
	Base
	StoreName    string `json:"store_name" db:"store_name"`
	SupportEmail string `json:"support_email" db:"support_email"`
	AdminEmail   string `json:"admin_email" db:"admin_email"`
	BaseURL      string `json:"base_url" db:"base_url"`
	FooterText   string `json:"footer_text" db:"footer_text"`
	Phone        string `json:"phone" db:"phone"`
	Address      string `json:"address" db:"address"`
}
