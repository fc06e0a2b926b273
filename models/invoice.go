package models

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrNoExchangeRate is returned by home-currency computations when the
// invoice's currency could not be resolved against the daily rate list.
// The invoice stays usable in its own currency until the rate is refreshed.
var ErrNoExchangeRate = errors.New("invoice has no exchange rate")

type Invoice struct {
	ID            uint                `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	Seq           int                 `gorm:"not null;index" json:"seq"`
	Created       time.Time           `gorm:"not null;index" json:"created"` // issue date, settable for back-dating
	DueDate       time.Time           `json:"due_date"`
	ClientID      uint                `gorm:"not null" json:"client_id"`
	Client        Client              `gorm:"foreignKey:ClientID;constraint:OnDelete:CASCADE" json:"client,omitempty"`
	Currency      string              `gorm:"size:10;not null" json:"currency"`
	PaymentMethod string              `gorm:"size:30" json:"payment_method"`
	ExchangeRate  decimal.NullDecimal `gorm:"type:decimal(12,6)" json:"exchange_rate"`
	VATRate       decimal.Decimal     `gorm:"type:decimal(4,2)" json:"vat_rate"`
	Paid          bool                `gorm:"default:false" json:"paid"`
	Items         []InvoiceItem       `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// TableName overrides the table name
func (Invoice) TableName() string {
	return "invoices"
}

// Number is the legal invoice number printed on documents.
func (i *Invoice) Number() string {
	return fmt.Sprintf("%d/VP1/1", i.Seq)
}

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Subtotal sums the stored amounts of all loaded line items.
func (i *Invoice) Subtotal() decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range i.Items {
		if item.Amount.Valid {
			subtotal = subtotal.Add(item.Amount.Decimal)
		}
	}
	return subtotal
}

// SubtotalHome is the subtotal converted to the home currency.
func (i *Invoice) SubtotalHome() (decimal.Decimal, error) {
	if !i.ExchangeRate.Valid {
		return decimal.Zero, ErrNoExchangeRate
	}
	return round2(i.Subtotal().Mul(i.ExchangeRate.Decimal)), nil
}

func (i *Invoice) VATAmount() decimal.Decimal {
	return round2(i.Subtotal().Mul(i.VATRate))
}

func (i *Invoice) VATHome() (decimal.Decimal, error) {
	subtotalHome, err := i.SubtotalHome()
	if err != nil {
		return decimal.Zero, err
	}
	return round2(subtotalHome.Mul(i.VATRate)), nil
}

func (i *Invoice) Total() decimal.Decimal {
	return round2(i.Subtotal().Add(i.VATAmount()))
}

func (i *Invoice) TotalHome() (decimal.Decimal, error) {
	subtotalHome, err := i.SubtotalHome()
	if err != nil {
		return decimal.Zero, err
	}
	vatHome, err := i.VATHome()
	if err != nil {
		return decimal.Zero, err
	}
	return round2(subtotalHome.Add(vatHome)), nil
}

func (i *Invoice) HasHourly() bool {
	for _, item := range i.Items {
		if item.IsHourly {
			return true
		}
	}
	return false
}

// NextSequence computes the sequence number for a new invoice issued in the
// given calendar year: one past the highest seq already issued that year.
// Two invoices created in the same instant can race to the same value; the
// allocation is a plain MAX query by design.
func NextSequence(db *gorm.DB, year int) (int, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	var max sql.NullInt64
	err := db.Model(&Invoice{}).
		Where("created >= ? AND created < ?", start, end).
		Select("MAX(seq)").
		Scan(&max).Error
	if err != nil {
		return 0, fmt.Errorf("failed to scan latest sequence: %w", err)
	}
	if !max.Valid {
		return 1, nil
	}
	return int(max.Int64) + 1, nil
}

type InvoiceItem struct {
	ID             uint                `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	InvoiceID      uint                `gorm:"not null;index" json:"invoice_id"`
	IsHourly       bool                `gorm:"default:true" json:"is_hourly"`
	Description    string              `gorm:"size:300;not null" json:"description"`
	AdditionalInfo string              `gorm:"size:300" json:"additional_info"`
	Rate           decimal.NullDecimal `gorm:"type:decimal(5,2)" json:"rate"`
	Hours          decimal.NullDecimal `gorm:"type:decimal(5,1)" json:"hours"`
	Amount         decimal.NullDecimal `gorm:"type:decimal(7,2)" json:"amount"`
}

// TableName overrides the table name
func (InvoiceItem) TableName() string {
	return "invoice_items"
}

// Validate enforces the hourly/fixed field contract before persisting.
func (it *InvoiceItem) Validate() error {
	if it.IsHourly {
		if !it.Rate.Valid || !it.Hours.Valid {
			return errors.New("hourly items require both rate and hours")
		}
		return nil
	}
	if !it.Amount.Valid {
		return errors.New("fixed items require an amount")
	}
	return nil
}

// Normalize recomputes the stored amount of hourly items from rate and hours.
func (it *InvoiceItem) Normalize() {
	if it.IsHourly && it.Rate.Valid && it.Hours.Valid {
		it.Amount = decimal.NewNullDecimal(it.Rate.Decimal.Mul(it.Hours.Decimal))
	}
}

// AmountHome converts the stored amount using the owning invoice's rate.
func (it *InvoiceItem) AmountHome(exchangeRate decimal.NullDecimal) (decimal.Decimal, error) {
	if !exchangeRate.Valid {
		return decimal.Zero, ErrNoExchangeRate
	}
	if !it.Amount.Valid {
		return decimal.Zero, nil
	}
	return round2(it.Amount.Decimal.Mul(exchangeRate.Decimal)), nil
}
