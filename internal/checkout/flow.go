package checkout

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iharalondon/storefront/internal/cart"
	"github.com/iharalondon/storefront/internal/domain"
	apperrors "github.com/iharalondon/storefront/pkg/errors"
)

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// Result is what a successful confirmation hands back: either a locally
// recorded order (manual payment methods) or a gateway redirect URL.
type Result struct {
	OrderID    string `json:"order_id,omitempty"`
	Reference  string `json:"reference,omitempty"`
	SessionURL string `json:"session_url,omitempty"`
}

// Submitter is the order collaborator the flow hands a completed draft to.
// The flow clears the cart only after the submitter returns without error.
type Submitter interface {
	Submit(ctx context.Context, sessionID string, draft domain.CheckoutDraft) (Result, error)
}

// Flow drives a single checkout through its four steps:
// shipping, contact, payment, summary. Advance validates the current step
// before moving forward; Back never validates. The draft accumulates step
// results and is consumed on confirmation.
type Flow struct {
	sessionID string
	cart      *cart.Store
	submitter Submitter
	surcharge decimal.Decimal
	logger    *zap.Logger

	step     domain.CheckoutStep
	shipping *domain.ShippingInfo
	contact  *domain.ContactInfo
	payment  *domain.PaymentInfo
}

// NewFlow opens checkout for a session. An empty cart cannot enter checkout.
func NewFlow(sessionID string, c *cart.Store, submitter Submitter, deliverySurcharge decimal.Decimal, logger *zap.Logger) (*Flow, error) {
	if c.IsEmpty() {
		return nil, &apperrors.ErrEmptyCart{}
	}
	return &Flow{
		sessionID: sessionID,
		cart:      c,
		submitter: submitter,
		surcharge: deliverySurcharge,
		logger:    logger,
		step:      domain.StepShipping,
	}, nil
}

// Step returns the current step.
func (f *Flow) Step() domain.CheckoutStep { return f.step }

// SetShipping records the shipping selection. Validated on Advance, not here.
func (f *Flow) SetShipping(s domain.ShippingInfo) { f.shipping = &s }

// SetContact records the contact details. Validated on Advance, not here.
func (f *Flow) SetContact(c domain.ContactInfo) { f.contact = &c }

// SetPayment records the chosen payment. Card and installment validation
// happens in the payment selector before the info reaches the flow.
func (f *Flow) SetPayment(p domain.PaymentInfo) { f.payment = &p }

// Back moves one step toward shipping without validating anything.
// At the first step it does nothing.
func (f *Flow) Back() {
	if f.step > domain.StepShipping {
		f.step--
	}
}

// Advance validates the current step and moves forward. Advancing from the
// summary step confirms the order: totals are computed, the draft is handed to
// the submitter, and the cart is cleared only once the submitter succeeds. A
// submitter failure leaves both the cart and the step untouched.
func (f *Flow) Advance(ctx context.Context) (*Result, error) {
	switch f.step {
	case domain.StepShipping:
		if err := f.validateShipping(); err != nil {
			return nil, err
		}
	case domain.StepContact:
		if err := f.validateContact(); err != nil {
			return nil, err
		}
	case domain.StepPayment:
		if err := f.validatePayment(); err != nil {
			return nil, err
		}
	case domain.StepSummary:
		return f.confirm(ctx)
	}
	f.step++
	return nil, nil
}

func (f *Flow) validateShipping() error {
	var fields []string
	if f.shipping == nil || !f.shipping.Method.IsValid() {
		return apperrors.NewValidation("shipping method required", "method", "required")
	}
	if f.shipping.Method == domain.ShippingDelivery {
		addr := f.shipping.Address
		if addr == nil || strings.TrimSpace(addr.Street) == "" {
			fields = append(fields, "address", "required")
		}
		if addr == nil || strings.TrimSpace(addr.City) == "" {
			fields = append(fields, "city", "required")
		}
		if addr == nil || strings.TrimSpace(addr.PostalCode) == "" {
			fields = append(fields, "postal_code", "required")
		}
	}
	if len(fields) > 0 {
		return apperrors.NewValidation("delivery address incomplete", fields...)
	}
	return nil
}

func (f *Flow) validateContact() error {
	var fields []string
	name, email, phone := "", "", ""
	if f.contact != nil {
		name = strings.TrimSpace(f.contact.Name)
		email = strings.TrimSpace(f.contact.Email)
		phone = strings.TrimSpace(f.contact.Phone)
	}
	if name == "" {
		fields = append(fields, "name", "required")
	}
	if email == "" {
		fields = append(fields, "email", "required")
	} else if !emailPattern.MatchString(email) {
		fields = append(fields, "email", "invalid")
	}
	if phone == "" {
		fields = append(fields, "phone", "required")
	}
	if len(fields) > 0 {
		return apperrors.NewValidation("contact details incomplete", fields...)
	}
	return nil
}

func (f *Flow) validatePayment() error {
	if f.payment == nil || !f.payment.Method.IsValid() {
		return apperrors.NewValidation("payment method required", "method", "required")
	}
	return nil
}

// Totals derives subtotal, shipping cost and total from the live cart.
// Delivery adds a flat surcharge; pickup ships free.
func (f *Flow) Totals() domain.Totals {
	subtotal := f.cart.Subtotal()
	shipping := decimal.Zero
	if f.shipping != nil && f.shipping.Method == domain.ShippingDelivery {
		shipping = f.surcharge
	}
	return domain.Totals{
		Subtotal:     subtotal,
		ShippingCost: shipping,
		Total:        subtotal.Add(shipping),
	}
}

// Draft assembles the current checkout draft from the cart and step results.
func (f *Flow) Draft() domain.CheckoutDraft {
	d := domain.CheckoutDraft{
		Items:     f.cart.Lines(),
		Totals:    f.Totals(),
		CreatedAt: time.Now().UTC(),
	}
	if f.shipping != nil {
		d.Shipping = *f.shipping
	}
	if f.contact != nil {
		d.Contact = *f.contact
	}
	if f.payment != nil {
		d.Payment = *f.payment
	}
	return d
}

func (f *Flow) confirm(ctx context.Context) (*Result, error) {
	if f.cart.IsEmpty() {
		return nil, &apperrors.ErrEmptyCart{}
	}

	draft := f.Draft()
	result, err := f.submitter.Submit(ctx, f.sessionID, draft)
	if err != nil {
		f.logger.Warn("order submission failed",
			zap.String("session_id", f.sessionID),
			zap.Error(err))
		return nil, err
	}

	f.cart.Clear(ctx)
	f.logger.Info("order confirmed",
		zap.String("session_id", f.sessionID),
		zap.String("reference", result.Reference),
		zap.String("total", draft.Totals.Total.String()))
	return &result, nil
}
