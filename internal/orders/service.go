package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iharalondon/storefront/internal/checkout"
	"github.com/iharalondon/storefront/internal/domain"
	"github.com/iharalondon/storefront/internal/mailer"
	"github.com/iharalondon/storefront/internal/mercadopago"
	"github.com/iharalondon/storefront/internal/storage"
	apperrors "github.com/iharalondon/storefront/pkg/errors"
)

// Gateway is the payment-session collaborator for gateway-backed methods.
type Gateway interface {
	CreatePreference(ctx context.Context, draft domain.CheckoutDraft) (*mercadopago.Preference, error)
	GetPayment(ctx context.Context, paymentID string) (*mercadopago.Payment, error)
}

// Service records orders and moves them through their payment lifecycle.
// It is the submitter the checkout flow confirms into.
type Service struct {
	blobs   storage.Store
	gateway Gateway
	mail    mailer.Mailer
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(blobs storage.Store, gateway Gateway, mail mailer.Mailer, logger *zap.Logger) *Service {
	return &Service{
		blobs:   blobs,
		gateway: gateway,
		mail:    mail,
		logger:  logger,
		now:     time.Now,
	}
}

// Submit records the confirmed draft as an order. Gateway methods create a
// payment session and hand back its redirect URL; manual methods store a
// pending order and acknowledge immediately. Either way the record starts
// pending and the webhook (or the shop operator) moves it on from there.
func (s *Service) Submit(ctx context.Context, sessionID string, draft domain.CheckoutDraft) (checkout.Result, error) {
	if len(draft.Items) == 0 {
		return checkout.Result{}, &apperrors.ErrEmptyCart{}
	}

	if draft.Payment.Method.IsGateway() {
		return s.submitGateway(ctx, sessionID, draft)
	}
	return s.submitManual(ctx, sessionID, draft)
}

func (s *Service) submitGateway(ctx context.Context, sessionID string, draft domain.CheckoutDraft) (checkout.Result, error) {
	pref, err := s.gateway.CreatePreference(ctx, draft)
	if err != nil {
		return checkout.Result{}, &apperrors.ErrUnavailable{Collaborator: "mercadopago", Err: err}
	}

	record := s.newRecord(sessionID, draft, pref.ExternalReference)
	if err := s.save(ctx, record); err != nil {
		return checkout.Result{}, err
	}

	s.logger.Info("gateway order recorded",
		zap.String("reference", record.Reference),
		zap.String("preference_id", pref.ID))
	return checkout.Result{
		OrderID:    record.ID.String(),
		Reference:  record.Reference,
		SessionURL: pref.InitPoint,
	}, nil
}

func (s *Service) submitManual(ctx context.Context, sessionID string, draft domain.CheckoutDraft) (checkout.Result, error) {
	record := s.newRecord(sessionID, draft, NewReference(s.now()))
	if err := s.save(ctx, record); err != nil {
		return checkout.Result{}, err
	}

	// The per-session pending order is informational and overwritten on each
	// manual confirmation.
	if raw, err := json.Marshal(record); err == nil {
		if err := s.blobs.Put(ctx, storage.NSPendingOrder, sessionID, raw); err != nil {
			s.logger.Warn("failed to store pending order", zap.String("session_id", sessionID), zap.Error(err))
		}
	}

	if draft.Contact.Email != "" {
		if err := s.mail.Send(ctx, draft.Contact.Email, mailer.TemplateOrderConfirmation, map[string]string{
			"name":      draft.Contact.Name,
			"reference": record.Reference,
			"total":     draft.Totals.Total.String(),
		}); err != nil {
			s.logger.Warn("failed to send order confirmation", zap.String("reference", record.Reference), zap.Error(err))
		}
	}

	s.logger.Info("manual order recorded",
		zap.String("reference", record.Reference),
		zap.String("method", string(draft.Payment.Method)),
		zap.String("total", draft.Totals.Total.String()))
	return checkout.Result{
		OrderID:   record.ID.String(),
		Reference: record.Reference,
	}, nil
}

func (s *Service) newRecord(sessionID string, draft domain.CheckoutDraft, reference string) domain.OrderRecord {
	now := s.now().UTC()
	return domain.OrderRecord{
		ID:        uuid.New(),
		Reference: reference,
		SessionID: sessionID,
		Draft:     draft,
		Status:    domain.OrderStatusPending,
		Amount:    draft.Totals.Total,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// StatusFromGateway maps a gateway payment status onto an order status.
func StatusFromGateway(status string) (domain.OrderStatus, bool) {
	switch status {
	case "approved":
		return domain.OrderStatusPaid, true
	case "pending", "in_process":
		return domain.OrderStatusPending, true
	case "rejected":
		return domain.OrderStatusRejected, true
	case "cancelled":
		return domain.OrderStatusCancelled, true
	case "refunded":
		return domain.OrderStatusRefunded, true
	case "charged_back":
		return domain.OrderStatusChargeback, true
	default:
		return "", false
	}
}

// ApplyPaymentNotification handles a payment webhook: fetch the payment from
// the gateway, resolve the order by external reference and apply the status
// transition. Repeated notifications with the same status are no-ops.
func (s *Service) ApplyPaymentNotification(ctx context.Context, paymentID string) (*domain.OrderRecord, error) {
	p, err := s.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, &apperrors.ErrUnavailable{Collaborator: "mercadopago", Err: err}
	}

	newStatus, ok := StatusFromGateway(p.Status)
	if !ok {
		return nil, apperrors.NewValidation(fmt.Sprintf("unknown payment status %q", p.Status), "status", "unknown")
	}

	record, err := s.Get(ctx, p.ExternalReference)
	if err != nil {
		return nil, err
	}

	if record.Status == newStatus {
		return record, nil
	}
	if !record.Status.CanTransitionTo(newStatus) {
		return nil, &apperrors.ErrInvalidStateTransition{From: record.Status, To: newStatus}
	}

	record.Status = newStatus
	record.PaymentID = strconv.FormatInt(p.ID, 10)
	record.UpdatedAt = s.now().UTC()
	if err := s.save(ctx, *record); err != nil {
		return nil, err
	}

	s.notifyStatus(ctx, record)
	s.logger.Info("order status updated",
		zap.String("reference", record.Reference),
		zap.String("status", string(record.Status)),
		zap.String("payment_id", record.PaymentID))
	return record, nil
}

func (s *Service) notifyStatus(ctx context.Context, record *domain.OrderRecord) {
	email := record.Draft.Contact.Email
	if email == "" {
		return
	}
	var kind mailer.TemplateKind
	switch record.Status {
	case domain.OrderStatusPaid:
		kind = mailer.TemplateOrderConfirmation
	case domain.OrderStatusRejected:
		kind = mailer.TemplatePaymentRejected
	default:
		return
	}
	if err := s.mail.Send(ctx, email, kind, map[string]string{
		"name":      record.Draft.Contact.Name,
		"reference": record.Reference,
		"total":     record.Amount.String(),
	}); err != nil {
		s.logger.Warn("failed to send status email", zap.String("reference", record.Reference), zap.Error(err))
	}
}

// Get fetches one order by reference.
func (s *Service) Get(ctx context.Context, reference string) (*domain.OrderRecord, error) {
	raw, err := s.blobs.Get(ctx, storage.NSOrders, reference)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, &apperrors.ErrNotFound{Resource: "order", ID: reference}
		}
		return nil, &apperrors.ErrUnavailable{Collaborator: "order store", Err: err}
	}
	var record domain.OrderRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, &apperrors.ErrUnavailable{Collaborator: "order store", Err: err}
	}
	return &record, nil
}

// List returns all recorded orders, used by the admin endpoint and CLI.
func (s *Service) List(ctx context.Context) ([]domain.OrderRecord, error) {
	raw, err := s.blobs.List(ctx, storage.NSOrders)
	if err != nil {
		return nil, &apperrors.ErrUnavailable{Collaborator: "order store", Err: err}
	}
	records := make([]domain.OrderRecord, 0, len(raw))
	for _, v := range raw {
		var record domain.OrderRecord
		if err := json.Unmarshal(v, &record); err != nil {
			s.logger.Warn("skipping malformed order record", zap.Error(err))
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *Service) save(ctx context.Context, record domain.OrderRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if err := s.blobs.Put(ctx, storage.NSOrders, record.Reference, raw); err != nil {
		return &apperrors.ErrUnavailable{Collaborator: "order store", Err: err}
	}
	return nil
}

const referenceAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewReference builds a manual-order reference: IH, the last six digits of the
// unix-millis timestamp, and three random base36 characters.
func NewReference(now time.Time) string {
	millis := strconv.FormatInt(now.UnixMilli(), 10)
	suffix := make([]byte, 3)
	for i := range suffix {
		suffix[i] = referenceAlphabet[rand.Intn(len(referenceAlphabet))]
	}
	return "IH" + millis[len(millis)-6:] + string(suffix)
}
