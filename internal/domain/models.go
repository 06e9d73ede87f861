package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Color is a selectable product color with a stable key and a display label
type Color struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Product is a read-only catalog record. The cart references products by ID
// and captures price and option sets at add time; it never owns them.
type Product struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Image     string          `json:"image"`
	Colors    []Color         `json:"colors,omitempty"`
	Sizes     []string        `json:"sizes,omitempty"`
}

// HasSizes reports whether a size must be chosen before adding to cart
func (p Product) HasSizes() bool { return len(p.Sizes) > 0 }

// Variant is the (color, size) selection attached to a cart line,
// distinct from the underlying product.
type Variant struct {
	Color *Color `json:"color,omitempty"`
	Size  string `json:"size,omitempty"`
}

// VariantKey is the line identity key: the (productID, colorKey, size) triple
// that decides whether two cart entries are the same line.
type VariantKey string

// NewVariantKey derives the stable identity for a line from product and variant
func NewVariantKey(productID string, v Variant) VariantKey {
	colorKey := ""
	if v.Color != nil {
		colorKey = v.Color.Key
	}
	return VariantKey(productID + "|" + colorKey + "|" + v.Size)
}

// CartLine is one entry in the cart. AvailableColors and AvailableSizes are
// captured at add time so the variant editor works against the option sets the
// buyer saw, not a re-fetched catalog.
type CartLine struct {
	ProductID       string          `json:"product_id"`
	Name            string          `json:"name"`
	Image           string          `json:"image,omitempty"`
	Variant         Variant         `json:"variant"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	AvailableColors []Color         `json:"available_colors,omitempty"`
	AvailableSizes  []string        `json:"available_sizes,omitempty"`
	AddedAt         time.Time       `json:"added_at"`
}

// Key returns the line identity key
func (l CartLine) Key() VariantKey { return NewVariantKey(l.ProductID, l.Variant) }

// LineTotal is unit price times quantity
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// FavoriteEntry is a favorited product snapshot. Lifecycle is independent from
// cart lines: toggled by product identity, never merged.
type FavoriteEntry struct {
	ProductID     string          `json:"product_id"`
	Name          string          `json:"name"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Image         string          `json:"image,omitempty"`
	Colors        []Color         `json:"colors,omitempty"`
	Sizes         []string        `json:"sizes,omitempty"`
	SelectedColor *Color          `json:"selected_color,omitempty"`
	SelectedSize  string          `json:"selected_size,omitempty"`
	AddedAt       time.Time       `json:"added_at"`
}

// Address is a delivery address, required only for the delivery shipping method
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
}

// ShippingInfo is the result of checkout step 1
type ShippingInfo struct {
	Method  ShippingMethod `json:"method"`
	Address *Address       `json:"address,omitempty"`
}

// ContactInfo is the result of checkout step 2
type ContactInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// PaymentInfo is the result of checkout step 3. Card data beyond the last four
// digits is never stored on the draft.
type PaymentInfo struct {
	Method       PaymentMethod `json:"method"`
	SubMethod    string        `json:"sub_method,omitempty"`
	CardLast4    string        `json:"card_last4,omitempty"`
	Installments int           `json:"installments,omitempty"`
}

// Totals are derived values, always recomputed from the lines, never cached
type Totals struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
	Total        decimal.Decimal `json:"total"`
}

// CheckoutDraft is the accumulating, not-yet-submitted checkout data structure.
// Each step populates its sub-object on advance; the draft is consumed by the
// order collaborator on confirmation.
type CheckoutDraft struct {
	Items     []CartLine   `json:"items"`
	Shipping  ShippingInfo `json:"shipping"`
	Contact   ContactInfo  `json:"contact"`
	Payment   PaymentInfo  `json:"payment"`
	Totals    Totals       `json:"totals"`
	CreatedAt time.Time    `json:"created_at"`
}

// OrderRecord is a recorded order awaiting or past payment confirmation.
// For manual methods this is the "pending order"; for gateway methods the
// webhook moves it through the status transitions.
type OrderRecord struct {
	ID        uuid.UUID       `json:"id"`
	Reference string          `json:"reference"`
	SessionID string          `json:"session_id,omitempty"`
	Draft     CheckoutDraft   `json:"draft"`
	Status    OrderStatus     `json:"status"`
	PaymentID string          `json:"payment_id,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Subscriber is a newsletter subscriber record (double opt-in)
type Subscriber struct {
	Email                string     `json:"email"`
	ConfirmToken         string     `json:"confirm_token,omitempty"`
	TokenExpiresAt       *time.Time `json:"token_expires_at,omitempty"`
	PendingTokenIssuedAt *time.Time `json:"pending_token_issued_at,omitempty"`
	ConfirmedAt          *time.Time `json:"confirmed_at,omitempty"`
	UnsubscribedAt       *time.Time `json:"unsubscribed_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// ContactMessage is a contact-form submission
type ContactMessage struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
