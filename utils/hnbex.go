package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// ErrCurrencyNotFound means the daily rate list had no entry for the
// requested currency. Callers store a pending (null) rate instead of failing.
var ErrCurrencyNotFound = errors.New("currency not present in daily rate list")

// RateSource resolves the median exchange rate for a currency on a given day.
type RateSource interface {
	DailyRate(ctx context.Context, currency string, date time.Time) (decimal.Decimal, error)
}

// HNBClient fetches daily median rates from the Croatian National Bank
// exchange list (hnbex).
type HNBClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewHNBClient(baseURL string) *HNBClient {
	return &HNBClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type dailyRate struct {
	CurrencyCode string          `json:"currency_code"`
	MedianRate   decimal.Decimal `json:"median_rate"`
	BuyingRate   decimal.Decimal `json:"buying_rate"`
	SellingRate  decimal.Decimal `json:"selling_rate"`
	UnitValue    int             `json:"unit_value"`
}

func (c *HNBClient) DailyRate(ctx context.Context, currency string, date time.Time) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/rates/daily/?date=%s", c.baseURL, date.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to build rate request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to fetch daily rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("rate service returned status %d", resp.StatusCode)
	}

	var rates []dailyRate
	if err := json.NewDecoder(resp.Body).Decode(&rates); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode daily rates: %w", err)
	}

	for _, r := range rates {
		if r.CurrencyCode == currency {
			return r.MedianRate, nil
		}
	}

	return decimal.Zero, ErrCurrencyNotFound
}
