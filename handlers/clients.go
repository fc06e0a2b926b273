package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/danij3l/simple-invoice/models"
)

type ClientHandler struct {
	db *gorm.DB
}

func NewClientHandler(db *gorm.DB) *ClientHandler {
	return &ClientHandler{db: db}
}

type ClientRequest struct {
	Name                 string `json:"name" binding:"required"`
	Address              string `json:"address"`
	Country              string `json:"country"`
	VATID                string `json:"vat_id"`
	Currency             string `json:"currency"`
	DefaultPaymentMethod string `json:"default_payment_method"`
}

func (h *ClientHandler) CreateClient(c *gin.Context) {
	var req ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	client := models.Client{
		Name:                 req.Name,
		Address:              req.Address,
		Country:              req.Country,
		VATID:                req.VATID,
		Currency:             req.Currency,
		DefaultPaymentMethod: req.DefaultPaymentMethod,
	}
	if client.Currency == "" {
		client.Currency = models.CurrencyHRK
	}
	if client.DefaultPaymentMethod == "" {
		client.DefaultPaymentMethod = models.PaymentMethodWireTransfer
	}

	if err := h.db.Create(&client).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create client"})
		return
	}

	c.JSON(http.StatusCreated, client)
}

func (h *ClientHandler) GetClient(c *gin.Context) {
	var client models.Client
	if err := h.db.First(&client, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Client not found"})
		return
	}

	c.JSON(http.StatusOK, client)
}

func (h *ClientHandler) ListClients(c *gin.Context) {
	var clients []models.Client
	if err := h.db.Order("name").Find(&clients).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch clients"})
		return
	}

	c.JSON(http.StatusOK, clients)
}

func (h *ClientHandler) UpdateClient(c *gin.Context) {
	var client models.Client
	if err := h.db.First(&client, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Client not found"})
		return
	}

	var req ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	client.Name = req.Name
	client.Address = req.Address
	client.Country = req.Country
	client.VATID = req.VATID
	if req.Currency != "" {
		client.Currency = req.Currency
	}
	if req.DefaultPaymentMethod != "" {
		client.DefaultPaymentMethod = req.DefaultPaymentMethod
	}

	if err := h.db.Save(&client).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update client"})
		return
	}

	c.JSON(http.StatusOK, client)
}

// DeleteClient removes a client together with its invoices and their items.
func (h *ClientHandler) DeleteClient(c *gin.Context) {
	var client models.Client
	if err := h.db.First(&client, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Client not found"})
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		var invoiceIDs []uint
		if err := tx.Model(&models.Invoice{}).Where("client_id = ?", client.ID).Pluck("id", &invoiceIDs).Error; err != nil {
			return err
		}
		if len(invoiceIDs) > 0 {
			if err := tx.Where("invoice_id IN ?", invoiceIDs).Delete(&models.InvoiceItem{}).Error; err != nil {
				return err
			}
			if err := tx.Where("client_id = ?", client.ID).Delete(&models.Invoice{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&client).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete client"})
		return
	}

	c.Status(http.StatusNoContent)
}
