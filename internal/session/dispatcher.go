package session

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iharalondon/storefront/internal/catalog"
	"github.com/iharalondon/storefront/internal/checkout"
	"github.com/iharalondon/storefront/internal/domain"
	"github.com/iharalondon/storefront/internal/payment"
	apperrors "github.com/iharalondon/storefront/pkg/errors"
)

// CommandType enumerates the intents a client may dispatch against a session.
type CommandType string

const (
	CmdAddItem        CommandType = "add_item"
	CmdChangeQuantity CommandType = "change_quantity"
	CmdRemoveLine     CommandType = "remove_line"
	CmdEditVariant    CommandType = "edit_variant"
	CmdToggleFavorite CommandType = "toggle_favorite"
	CmdRememberSize   CommandType = "remember_size"
	CmdSetTheme       CommandType = "set_theme"
	CmdOpenCheckout   CommandType = "open_checkout"
	CmdSetShipping    CommandType = "set_shipping"
	CmdSetContact     CommandType = "set_contact"
	CmdSetPayment     CommandType = "set_payment"
	CmdAdvance        CommandType = "advance"
	CmdBack           CommandType = "back"
	CmdCloseCheckout  CommandType = "close_checkout"
)

// Command is one typed intent. Only the fields the Type needs are read.
type Command struct {
	Type CommandType `json:"type"`

	ProductID string `json:"product_id,omitempty"`
	ColorKey  string `json:"color_key,omitempty"`
	Size      string `json:"size,omitempty"`

	LineKey string `json:"line_key,omitempty"`
	Delta   int    `json:"delta,omitempty"`

	Theme string `json:"theme,omitempty"`

	Shipping *domain.ShippingInfo `json:"shipping,omitempty"`
	Contact  *domain.ContactInfo  `json:"contact,omitempty"`
	Payment  *payment.Input       `json:"payment,omitempty"`
}

// Outcome is what a dispatched command hands back to the API layer.
type Outcome struct {
	Favorited *bool            `json:"favorited,omitempty"`
	Step      string           `json:"step,omitempty"`
	Result    *checkout.Result `json:"result,omitempty"`
}

// Dispatcher routes typed commands to the owning session's cart and checkout
// flow. It owns the collaborators a command may need: the catalog for product
// lookups, the payment selector for normalization, and the order submitter
// for confirmation.
type Dispatcher struct {
	registry  *Registry
	catalog   *catalog.Catalog
	selector  *payment.Selector
	submitter checkout.Submitter
	surcharge decimal.Decimal
	logger    *zap.Logger
}

func NewDispatcher(registry *Registry, cat *catalog.Catalog, selector *payment.Selector, submitter checkout.Submitter, deliverySurcharge decimal.Decimal, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		registry:  registry,
		catalog:   cat,
		selector:  selector,
		submitter: submitter,
		surcharge: deliverySurcharge,
		logger:    logger,
	}
}

// Session resolves the session for sid.
func (d *Dispatcher) Session(ctx context.Context, sid string) *Session {
	return d.registry.Get(ctx, sid)
}

// Dispatch runs one command against the session, serialized per session.
func (d *Dispatcher) Dispatch(ctx context.Context, sid string, cmd Command) (*Outcome, error) {
	s := d.registry.Get(ctx, sid)
	s.mu.Lock()
	defer s.mu.Unlock()

	switch cmd.Type {
	case CmdAddItem:
		return d.addItem(ctx, s, cmd)
	case CmdChangeQuantity:
		s.cart.ChangeQuantity(ctx, domain.VariantKey(cmd.LineKey), cmd.Delta)
		return &Outcome{}, nil
	case CmdRemoveLine:
		s.cart.RemoveLine(ctx, domain.VariantKey(cmd.LineKey))
		return &Outcome{}, nil
	case CmdEditVariant:
		return d.editVariant(ctx, s, cmd)
	case CmdToggleFavorite:
		return d.toggleFavorite(ctx, s, cmd)
	case CmdRememberSize:
		s.cart.RememberSize(ctx, cmd.ProductID, cmd.Size)
		return &Outcome{}, nil
	case CmdSetTheme:
		s.cart.SetTheme(ctx, cmd.Theme)
		return &Outcome{}, nil
	case CmdOpenCheckout:
		return d.openCheckout(s)
	case CmdSetShipping, CmdSetContact, CmdSetPayment, CmdAdvance, CmdBack:
		return d.checkoutCommand(ctx, s, cmd)
	case CmdCloseCheckout:
		s.flow = nil
		return &Outcome{}, nil
	default:
		return nil, apperrors.NewValidation("unknown command type", "type", "invalid")
	}
}

func (d *Dispatcher) addItem(ctx context.Context, s *Session, cmd Command) (*Outcome, error) {
	product, err := d.catalog.Get(cmd.ProductID)
	if err != nil {
		return nil, err
	}
	variant, err := resolveVariant(product.Colors, cmd.ColorKey, cmd.Size)
	if err != nil {
		return nil, err
	}
	if _, err := s.cart.AddItem(ctx, product, variant); err != nil {
		return nil, err
	}
	return &Outcome{}, nil
}

func (d *Dispatcher) editVariant(ctx context.Context, s *Session, cmd Command) (*Outcome, error) {
	ed, err := s.editors.Open(domain.VariantKey(cmd.LineKey))
	if err != nil {
		return nil, err
	}
	variant, err := resolveVariant(ed.Colors(), cmd.ColorKey, cmd.Size)
	if err != nil {
		ed.Cancel()
		return nil, err
	}
	if err := ed.SelectColor(variant.Color); err != nil {
		return nil, err
	}
	if err := ed.SelectSize(variant.Size); err != nil {
		return nil, err
	}
	if err := ed.Save(ctx); err != nil {
		return nil, err
	}
	return &Outcome{}, nil
}

func (d *Dispatcher) toggleFavorite(ctx context.Context, s *Session, cmd Command) (*Outcome, error) {
	product, err := d.catalog.Get(cmd.ProductID)
	if err != nil {
		return nil, err
	}
	var color *domain.Color
	if cmd.ColorKey != "" {
		variant, err := resolveVariant(product.Colors, cmd.ColorKey, cmd.Size)
		if err != nil {
			return nil, err
		}
		color = variant.Color
	}
	added := s.cart.ToggleFavorite(ctx, product, color, cmd.Size)
	return &Outcome{Favorited: &added}, nil
}

func (d *Dispatcher) openCheckout(s *Session) (*Outcome, error) {
	if s.flow != nil {
		return &Outcome{Step: s.flow.Step().String()}, nil
	}
	flow, err := checkout.NewFlow(s.id, s.cart, d.submitter, d.surcharge, d.logger)
	if err != nil {
		return nil, err
	}
	s.flow = flow
	return &Outcome{Step: flow.Step().String()}, nil
}

func (d *Dispatcher) checkoutCommand(ctx context.Context, s *Session, cmd Command) (*Outcome, error) {
	if s.flow == nil {
		return nil, apperrors.NewValidation("checkout is not open", "checkout", "closed")
	}

	switch cmd.Type {
	case CmdSetShipping:
		if cmd.Shipping == nil {
			return nil, apperrors.NewValidation("shipping payload required", "shipping", "required")
		}
		s.flow.SetShipping(*cmd.Shipping)
	case CmdSetContact:
		if cmd.Contact == nil {
			return nil, apperrors.NewValidation("contact payload required", "contact", "required")
		}
		s.flow.SetContact(*cmd.Contact)
	case CmdSetPayment:
		if cmd.Payment == nil {
			return nil, apperrors.NewValidation("payment payload required", "payment", "required")
		}
		info, err := d.selector.Normalize(*cmd.Payment)
		if err != nil {
			return nil, err
		}
		s.flow.SetPayment(info)
	case CmdAdvance:
		result, err := s.flow.Advance(ctx)
		if err != nil {
			return nil, err
		}
		if result != nil {
			// Confirmation succeeded; the checkout is done.
			s.flow = nil
			return &Outcome{Result: result}, nil
		}
	case CmdBack:
		s.flow.Back()
	}
	return &Outcome{Step: s.flow.Step().String()}, nil
}

// resolveVariant maps a color key to the product's color option and pairs it
// with the size selection.
func resolveVariant(colors []domain.Color, colorKey, size string) (domain.Variant, error) {
	v := domain.Variant{Size: size}
	if colorKey == "" {
		return v, nil
	}
	for i := range colors {
		if colors[i].Key == colorKey {
			c := colors[i]
			v.Color = &c
			return v, nil
		}
	}
	return domain.Variant{}, apperrors.NewValidation("unknown color", "color", "invalid")
}
