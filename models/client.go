package models

import (
	"time"
)

const (
	CurrencyHRK = "HRK"
	CurrencyEUR = "EUR"
	CurrencyUSD = "USD"
	CurrencyAUD = "AUD"

	PaymentMethodPayPal       = "PayPal"
	PaymentMethodWireTransfer = "Wire-transfer"
)

type Client struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
	Name                 string    `gorm:"size:120;not null" json:"name"`
	Address              string    `gorm:"type:text" json:"address"`
	Country              string    `gorm:"size:2" json:"country"` // ISO country code
	VATID                string    `gorm:"size:30" json:"vat_id"`
	Currency             string    `gorm:"size:10;not null;default:'HRK'" json:"currency"`
	DefaultPaymentMethod string    `gorm:"size:30;default:'Wire-transfer'" json:"default_payment_method"`
	Invoices             []Invoice `gorm:"foreignKey:ClientID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName overrides the table name
func (Client) TableName() string {
	return "clients"
}

// ReverseCharge reports whether invoices for this client fall under the
// reverse-charge mechanism: the client sits in a VAT-rated country outside
// the exemption list and presents a VAT identifier.
func (c *Client) ReverseCharge(rules Rules) bool {
	if _, rated := rules.VATRates[c.Country]; !rated || rules.isExempted(c.Country) {
		return false
	}
	return c.VATID != ""
}
