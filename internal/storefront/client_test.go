package storefront

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/shopbot/internal/config"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.StorefrontConfig{
		APIKey:         "key",
		ShopID:         "shop1",
		BaseURL:        srv.URL,
		TimeoutSeconds: 2,
	}, zap.NewNop())
}

func TestFetchInvoice(t *testing.T) {
	t.Run("returns invoice on 200", func(t *testing.T) {
		client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/shops/shop1/invoices/inv-1", r.URL.Path)
			assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
			w.Write([]byte(`{"status":"paid","refunded":false,"cancelled":false,"items":[{"product":{"name":"Premium"},"variant":{"name":"Lifetime"}}]}`))
		})
		invoice := client.FetchInvoice(context.Background(), "inv-1")
		require.NotNil(t, invoice)
		assert.True(t, invoice.IsPaid())
	})

	t.Run("nil on non-200", func(t *testing.T) {
		client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		assert.Nil(t, client.FetchInvoice(context.Background(), "missing"))
	})

	t.Run("nil on malformed body", func(t *testing.T) {
		client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{not json`))
		})
		assert.Nil(t, client.FetchInvoice(context.Background(), "inv-1"))
	})

	t.Run("nil when credentials missing", func(t *testing.T) {
		client := NewClient(config.StorefrontConfig{}, zap.NewNop())
		assert.False(t, client.Configured())
		assert.Nil(t, client.FetchInvoice(context.Background(), "inv-1"))
	})
}

func TestInvoiceIsPaid(t *testing.T) {
	tests := []struct {
		name    string
		invoice Invoice
		want    bool
	}{
		{"paid", Invoice{Status: "paid"}, true},
		{"completed", Invoice{Status: "completed"}, true},
		{"complete", Invoice{Status: "complete"}, true},
		{"uppercase paid", Invoice{Status: "PAID"}, true},
		{"paid but refunded", Invoice{Status: "paid", Refunded: true}, false},
		{"paid but cancelled", Invoice{Status: "paid", Cancelled: true}, false},
		{"pending", Invoice{Status: "pending"}, false},
		{"empty status", Invoice{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.invoice.IsPaid())
		})
	}

	var nilInvoice *Invoice
	assert.False(t, nilInvoice.IsPaid())
}

func TestProductVariant(t *testing.T) {
	tests := []struct {
		name        string
		invoice     *Invoice
		wantProduct string
		wantVariant string
	}{
		{"nil invoice", nil, "Unknown", "Standard"},
		{"no items", &Invoice{}, "Unknown", "Standard"},
		{
			"full item",
			&Invoice{Items: []InvoiceItem{{Product: NamedEntity{Name: " Premium "}, Variant: NamedEntity{Name: "Lifetime"}}}},
			"Premium", "Lifetime",
		},
		{
			"variant falls back to product",
			&Invoice{Items: []InvoiceItem{{Product: NamedEntity{Name: "Premium"}}}},
			"Premium", "Premium",
		},
		{
			"nameless item",
			&Invoice{Items: []InvoiceItem{{}}},
			"Unknown", "Unknown",
		},
		{
			"second item ignored",
			&Invoice{Items: []InvoiceItem{
				{Product: NamedEntity{Name: "First"}, Variant: NamedEntity{Name: "V1"}},
				{Product: NamedEntity{Name: "Second"}, Variant: NamedEntity{Name: "V2"}},
			}},
			"First", "V1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			product, variant := tt.invoice.ProductVariant()
			assert.Equal(t, tt.wantProduct, product)
			assert.Equal(t, tt.wantVariant, variant)
		})
	}
}
