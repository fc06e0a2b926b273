package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/danij3l/simple-invoice/config"
	"github.com/danij3l/simple-invoice/models"
	"github.com/danij3l/simple-invoice/utils"
)

type InvoiceHandler struct {
	db    *gorm.DB
	cfg   *config.Config
	rates utils.RateSource
}

func NewInvoiceHandler(db *gorm.DB, cfg *config.Config) *InvoiceHandler {
	return &InvoiceHandler{
		db:    db,
		cfg:   cfg,
		rates: utils.NewHNBClient(cfg.HNBBaseURL),
	}
}

type CreateInvoiceRequest struct {
	ClientID uint       `json:"client_id" binding:"required"`
	Currency string     `json:"currency"`
	Created  *time.Time `json:"created"`
}

type ItemRequest struct {
	IsHourly       *bool               `json:"is_hourly"`
	Description    string              `json:"description" binding:"required"`
	AdditionalInfo string              `json:"additional_info"`
	Rate           decimal.NullDecimal `json:"rate"`
	Hours          decimal.NullDecimal `json:"hours"`
	Amount         decimal.NullDecimal `json:"amount"`
}

// resolveExchangeRate resolves the rate for an invoice issued on the given
// date. The home currency never dials out. An unknown currency yields a
// pending (null) rate rather than an error; transport failures propagate.
func (h *InvoiceHandler) resolveExchangeRate(ctx context.Context, currency string, date time.Time) (decimal.NullDecimal, error) {
	if currency == h.cfg.Rules.HomeCurrency {
		return decimal.NewNullDecimal(decimal.NewFromInt(1)), nil
	}

	rate, err := h.rates.DailyRate(ctx, currency, date)
	if errors.Is(err, utils.ErrCurrencyNotFound) {
		log.Warn().Str("currency", currency).Time("date", date).
			Msg("currency missing from daily rate list, invoice left without exchange rate")
		return decimal.NullDecimal{}, nil
	}
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(rate), nil
}

// issueInvoice derives every creation-time field of a new invoice: sequence
// number, due date, VAT rate and exchange rate. These are fixed once here and
// never implicitly recomputed on later saves.
func (h *InvoiceHandler) issueInvoice(ctx context.Context, client *models.Client, currency string, created time.Time) (*models.Invoice, error) {
	seq, err := models.NextSequence(h.db, created.Year())
	if err != nil {
		return nil, err
	}

	rate, err := h.resolveExchangeRate(ctx, currency, created)
	if err != nil {
		return nil, err
	}

	return &models.Invoice{
		Seq:           seq,
		Created:       created,
		DueDate:       created.AddDate(0, 0, h.cfg.Rules.PaymentPostponeDays),
		ClientID:      client.ID,
		Currency:      currency,
		PaymentMethod: client.DefaultPaymentMethod,
		ExchangeRate:  rate,
		VATRate:       models.ResolveVATRate(client, h.cfg.Rules),
	}, nil
}

func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var client models.Client
	if err := h.db.First(&client, req.ClientID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Client not found"})
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = client.Currency
	}
	created := time.Now()
	if req.Created != nil {
		created = *req.Created
	}

	invoice, err := h.issueInvoice(c.Request.Context(), &client, currency, created)
	if err != nil {
		log.Error().Err(err).Uint("client_id", client.ID).Msg("failed to issue invoice")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to issue invoice"})
		return
	}

	if err := h.db.Create(invoice).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create invoice"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"invoice":      invoice,
		"rate_pending": !invoice.ExchangeRate.Valid,
	})
}

func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	var invoice models.Invoice
	if err := h.db.Preload("Client").Preload("Items").First(&invoice, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
		return
	}

	c.JSON(http.StatusOK, invoice)
}

func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	var invoices []models.Invoice
	if err := h.db.Preload("Client").Preload("Items").Order("created DESC").Find(&invoices).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch invoices"})
		return
	}

	c.JSON(http.StatusOK, invoices)
}

func (h *InvoiceHandler) DeleteInvoice(c *gin.Context) {
	var invoice models.Invoice
	if err := h.db.First(&invoice, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", invoice.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&invoice).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete invoice"})
		return
	}

	c.Status(http.StatusNoContent)
}

// PayInvoice flips the paid flag. Deliberately touches nothing else: marking
// an invoice paid must not re-fetch rates or re-derive any creation-time field.
func (h *InvoiceHandler) PayInvoice(c *gin.Context) {
	var invoice models.Invoice
	if err := h.db.First(&invoice, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
		return
	}

	if err := h.db.Model(&invoice).Update("paid", true).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update invoice"})
		return
	}

	c.JSON(http.StatusOK, invoice)
}

// RefreshRate re-resolves the exchange rate for the invoice's original issue
// date. This is the explicit correction path for invoices whose currency was
// missing from the daily list at creation time.
func (h *InvoiceHandler) RefreshRate(c *gin.Context) {
	var invoice models.Invoice
	if err := h.db.First(&invoice, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
		return
	}

	rate, err := h.resolveExchangeRate(c.Request.Context(), invoice.Currency, invoice.Created)
	if err != nil {
		log.Error().Err(err).Uint("invoice_id", invoice.ID).Msg("failed to refresh exchange rate")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to resolve exchange rate"})
		return
	}

	if err := h.db.Model(&invoice).Update("exchange_rate", rate).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update invoice"})
		return
	}
	invoice.ExchangeRate = rate

	c.JSON(http.StatusOK, gin.H{
		"invoice":      invoice,
		"rate_pending": !rate.Valid,
	})
}

// DuplicateInvoice issues a fresh invoice for the same client and currency
// and copies the line items verbatim. Sequence, dates, VAT and exchange rate
// are all re-derived at the moment of duplication; the copy starts unpaid.
func (h *InvoiceHandler) DuplicateInvoice(c *gin.Context) {
	var source models.Invoice
	if err := h.db.Preload("Client").Preload("Items").First(&source, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
		return
	}

	invoice, err := h.issueInvoice(c.Request.Context(), &source.Client, source.Currency, time.Now())
	if err != nil {
		log.Error().Err(err).Uint("invoice_id", source.ID).Msg("failed to duplicate invoice")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to issue invoice"})
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(invoice).Error; err != nil {
			return err
		}
		for _, item := range source.Items {
			// The stored amount is copied as-is, not re-derived from
			// rate and hours.
			copied := models.InvoiceItem{
				InvoiceID:      invoice.ID,
				IsHourly:       item.IsHourly,
				Description:    item.Description,
				AdditionalInfo: item.AdditionalInfo,
				Rate:           item.Rate,
				Hours:          item.Hours,
				Amount:         item.Amount,
			}
			if err := tx.Create(&copied).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to duplicate invoice"})
		return
	}

	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/api/v1/invoices/%d", invoice.ID))
}

// PrintInvoice assembles the context the printable template renders from:
// the invoice, its items with home-currency equivalents, VAT as a whole
// percentage and the table colspan (4 with hourly columns, 2 without).
func (h *InvoiceHandler) PrintInvoice(c *gin.Context) {
	var invoice models.Invoice
	if err := h.db.Preload("Client").Preload("Items").First(&invoice, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
		return
	}

	colspan := 2
	if invoice.HasHourly() {
		colspan = 4
	}

	items := make([]gin.H, 0, len(invoice.Items))
	for _, item := range invoice.Items {
		entry := gin.H{
			"is_hourly":       item.IsHourly,
			"description":     item.Description,
			"additional_info": item.AdditionalInfo,
			"rate":            item.Rate,
			"hours":           item.Hours,
			"amount":          item.Amount,
		}
		if amountHome, err := item.AmountHome(invoice.ExchangeRate); err == nil {
			entry["amount_home"] = amountHome
		}
		items = append(items, entry)
	}

	resp := gin.H{
		"instance":   invoice,
		"number":     invoice.Number(),
		"items":      items,
		"vat":        invoice.VATRate.Mul(decimal.NewFromInt(100)).IntPart(),
		"colspan":    colspan,
		"subtotal":   invoice.Subtotal(),
		"vat_amount": invoice.VATAmount(),
		"total":      invoice.Total(),
	}

	subtotalHome, err := invoice.SubtotalHome()
	if errors.Is(err, models.ErrNoExchangeRate) {
		resp["rate_pending"] = true
	} else {
		vatHome, _ := invoice.VATHome()
		totalHome, _ := invoice.TotalHome()
		resp["subtotal_home"] = subtotalHome
		resp["vat_home"] = vatHome
		resp["total_home"] = totalHome
	}

	c.JSON(http.StatusOK, resp)
}

func (h *InvoiceHandler) CreateItem(c *gin.Context) {
	var invoice models.Invoice
	if err := h.db.First(&invoice, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
		return
	}

	var req ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	isHourly := true
	if req.IsHourly != nil {
		isHourly = *req.IsHourly
	}

	item := models.InvoiceItem{
		InvoiceID:      invoice.ID,
		IsHourly:       isHourly,
		Description:    req.Description,
		AdditionalInfo: req.AdditionalInfo,
		Rate:           req.Rate,
		Hours:          req.Hours,
		Amount:         req.Amount,
	}

	if err := item.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	item.Normalize()

	if err := h.db.Create(&item).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create item"})
		return
	}

	c.JSON(http.StatusCreated, item)
}

func (h *InvoiceHandler) UpdateItem(c *gin.Context) {
	var item models.InvoiceItem
	if err := h.db.First(&item, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		return
	}

	var req ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.IsHourly != nil {
		item.IsHourly = *req.IsHourly
	}
	item.Description = req.Description
	item.AdditionalInfo = req.AdditionalInfo
	item.Rate = req.Rate
	item.Hours = req.Hours
	item.Amount = req.Amount

	if err := item.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	item.Normalize()

	if err := h.db.Save(&item).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update item"})
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *InvoiceHandler) DeleteItem(c *gin.Context) {
	var item models.InvoiceItem
	if err := h.db.First(&item, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		return
	}

	if err := h.db.Delete(&item).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete item"})
		return
	}

	c.Status(http.StatusNoContent)
}
