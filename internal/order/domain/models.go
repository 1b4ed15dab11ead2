// Package domain holds the order record consumed by the compliance engine.
// Orders are owned by the commerce side of the platform; this subsystem only
// reads them.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Customer is the optional buyer linked to an order.
type Customer struct {
	Name           string `json:"name"`
	VATNumber      string `json:"vat_number"`
	StreetName     string `json:"street_name"`
	BuildingNumber string `json:"building_number"`
	District       string `json:"district"`
	City           string `json:"city"`
	PostalCode     string `json:"postal_code"`
	CountryCode    string `json:"country_code"`
}

// Order is the receipt the invoice artifact is derived from. Price is
// tax-inclusive.
type Order struct {
	ID            snowflake.ID    `json:"id"`
	OrgID         snowflake.ID    `json:"org_id"`
	ReceiptNumber string          `json:"receipt_number"`
	Description   string          `json:"description"`
	Quantity      decimal.Decimal `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	Currency      string          `json:"currency"`
	Customer      *Customer       `json:"customer,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Total is the tax-inclusive order total (price x quantity).
func (o Order) Total() decimal.Decimal {
	if o.Quantity.IsZero() {
		return o.Price
	}
	return o.Price.Mul(o.Quantity)
}
