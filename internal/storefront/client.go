package storefront

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/shopbot/internal/config"
)

// Client fetches invoices from the storefront API. Every check fetches fresh;
// the bot never caches storefront state.
type Client struct {
	cfg        config.StorefrontConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient builds a storefront client with the configured request timeout.
func NewClient(cfg config.StorefrontConfig, logger *zap.Logger) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
		logger: logger,
	}
}

// Configured reports whether API credentials are present.
func (c *Client) Configured() bool {
	return c.cfg.Configured()
}

// ShopURL returns the public storefront URL for purchase links.
func (c *Client) ShopURL() string {
	return c.cfg.ShopURL
}

// FetchInvoice looks up an invoice by id. It returns nil for missing
// credentials, non-200 responses, timeouts, and malformed bodies: a transient
// failure is deliberately indistinguishable from "not found" to the caller.
func (c *Client) FetchInvoice(ctx context.Context, invoiceID string) *Invoice {
	if !c.cfg.Configured() {
		return nil
	}

	url := fmt.Sprintf("%s/v1/shops/%s/invoices/%s", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.ShopID, invoiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.logger.Debug("storefront request build failed", zap.Error(err))
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("storefront fetch failed", zap.String("invoice_id", invoiceID), zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("storefront non-200", zap.String("invoice_id", invoiceID), zap.Int("status", resp.StatusCode))
		return nil
	}

	var invoice Invoice
	if err := json.NewDecoder(resp.Body).Decode(&invoice); err != nil {
		c.logger.Debug("storefront decode failed", zap.String("invoice_id", invoiceID), zap.Error(err))
		return nil
	}
	return &invoice
}
