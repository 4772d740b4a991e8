package storefront

import "strings"

// Invoice is the storefront-side order record. Owned by the storefront, read
// by the bot.
type Invoice struct {
	Status    string        `json:"status"`
	Refunded  bool          `json:"refunded"`
	Cancelled bool          `json:"cancelled"`
	Items     []InvoiceItem `json:"items"`
}

// InvoiceItem is one line item on an invoice.
type InvoiceItem struct {
	Product NamedEntity `json:"product"`
	Variant NamedEntity `json:"variant"`
}

// NamedEntity carries the only field the bot reads off products and variants.
type NamedEntity struct {
	Name string `json:"name"`
}

// paidStatuses gates every access-granting decision.
var paidStatuses = map[string]bool{
	"paid":      true,
	"completed": true,
	"complete":  true,
}

// IsPaid reports whether the invoice is settled: a paid-family status, not
// refunded, not cancelled.
func (i *Invoice) IsPaid() bool {
	if i == nil {
		return false
	}
	return paidStatuses[strings.ToLower(i.Status)] && !i.Refunded && !i.Cancelled
}

// ProductVariant extracts display names from the first line item, falling
// back to "Unknown"/"Standard" when nothing usable is present.
func (i *Invoice) ProductVariant() (product, variant string) {
	if i == nil || len(i.Items) == 0 {
		return "Unknown", "Standard"
	}
	item := i.Items[0]
	product = strings.TrimSpace(item.Product.Name)
	if product == "" {
		product = "Unknown"
	}
	variant = strings.TrimSpace(item.Variant.Name)
	if variant == "" {
		variant = product
	}
	return product, variant
}
