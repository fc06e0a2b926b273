package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/danij3l/simple-invoice/models"
)

func setupClientRouter(db *gorm.DB) *gin.Engine {
	h := NewClientHandler(db)
	router := gin.New()
	router.POST("/api/v1/clients", h.CreateClient)
	router.GET("/api/v1/clients", h.ListClients)
	router.GET("/api/v1/clients/:id", h.GetClient)
	router.PUT("/api/v1/clients/:id", h.UpdateClient)
	router.DELETE("/api/v1/clients/:id", h.DeleteClient)
	return router
}

func TestCreateClient(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)
	router := setupClientRouter(db)

	t.Run("defaults applied", func(t *testing.T) {
		w := postJSON(t, router, "/api/v1/clients", ClientRequest{Name: "Dobar kod", Country: "HR"})

		require.Equal(t, http.StatusCreated, w.Code)
		var client models.Client
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &client))
		assert.Equal(t, models.CurrencyHRK, client.Currency)
		assert.Equal(t, models.PaymentMethodWireTransfer, client.DefaultPaymentMethod)
	})

	t.Run("name is required", func(t *testing.T) {
		w := postJSON(t, router, "/api/v1/clients", ClientRequest{Country: "HR"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetAndUpdateClient(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)
	router := setupClientRouter(db)
	client := createTestClient(t, db, "SE", "SE999999999901", models.CurrencyEUR)

	t.Run("get", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/clients/%d", client.ID), nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "SE999999999901")
	})

	t.Run("get missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/clients/707", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("update", func(t *testing.T) {
		body, _ := json.Marshal(ClientRequest{Name: "Test klijent", Country: "SE", VATID: ""})
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPut, fmt.Sprintf("/api/v1/clients/%d", client.ID), bytes.NewBuffer(body))
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var updated models.Client
		require.NoError(t, db.First(&updated, client.ID).Error)
		assert.Empty(t, updated.VATID)
		// Currency is not blanked by an empty update field.
		assert.Equal(t, models.CurrencyEUR, updated.Currency)
	})
}

func TestDeleteClientCascades(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)
	router := setupClientRouter(db)
	invoiceRouter := setupRouter(newTestHandler(db, testConfig(), usdOnlyRates()))

	client := createTestClient(t, db, "HR", "", models.CurrencyHRK)
	invoice := createInvoiceVia(t, invoiceRouter, CreateInvoiceRequest{ClientID: client.ID}).Invoice
	addItemVia(t, invoiceRouter, invoice.ID, ItemRequest{
		IsHourly:    boolPtr(false),
		Description: "Hosting",
		Amount:      decimal.NewNullDecimal(decimal.NewFromInt(10)),
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodDelete, fmt.Sprintf("/api/v1/clients/%d", client.ID), nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)

	var invoices, items int64
	db.Model(&models.Invoice{}).Where("client_id = ?", client.ID).Count(&invoices)
	db.Model(&models.InvoiceItem{}).Where("invoice_id = ?", invoice.ID).Count(&items)
	assert.Equal(t, int64(0), invoices)
	assert.Equal(t, int64(0), items)
}
