package utils

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

const dailyRates20160101 = `[{
	"median_rate": "7.000907",
	"selling_rate": "7.021910",
	"buying_rate": "6.979904",
	"unit_value": 1,
	"currency_code": "USD"
}]`

func TestDailyRate(t *testing.T) {
	date := time.Date(2016, time.January, 1, 0, 0, 0, 0, time.UTC)

	t.Run("matching currency returns median rate", func(t *testing.T) {
		var gotQuery string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.RawQuery
			w.Write([]byte(dailyRates20160101))
		}))
		defer server.Close()

		client := NewHNBClient(server.URL)
		rate, err := client.DailyRate(context.Background(), "USD", date)

		assert.NoError(t, err)
		assert.True(t, rate.Equal(decimal.RequireFromString("7.000907")), "rate = %s", rate)
		assert.Equal(t, "date=2016-01-01", gotQuery)
	})

	t.Run("unknown currency", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(dailyRates20160101))
		}))
		defer server.Close()

		client := NewHNBClient(server.URL)
		_, err := client.DailyRate(context.Background(), "DJANGO", date)

		assert.ErrorIs(t, err, ErrCurrencyNotFound)
	})

	t.Run("service error status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := NewHNBClient(server.URL)
		_, err := client.DailyRate(context.Background(), "USD", date)

		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrCurrencyNotFound)
	})

	t.Run("unreachable service", func(t *testing.T) {
		client := NewHNBClient("http://127.0.0.1:1")
		_, err := client.DailyRate(context.Background(), "USD", date)
		assert.Error(t, err)
	})

	t.Run("malformed body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"not": "a list"}`))
		}))
		defer server.Close()

		client := NewHNBClient(server.URL)
		_, err := client.DailyRate(context.Background(), "USD", date)
		assert.Error(t, err)
	})
}
