package newsletter

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iharalondon/storefront/internal/domain"
	"github.com/iharalondon/storefront/internal/mailer"
	"github.com/iharalondon/storefront/internal/storage"
	apperrors "github.com/iharalondon/storefront/pkg/errors"
)

// SubscribeResult reports what Subscribe did. Duplicate means the address was
// already confirmed; no token is issued and no email is sent in that case.
type SubscribeResult struct {
	OK        bool `json:"ok"`
	Duplicate bool `json:"duplicate,omitempty"`
	Confirmed bool `json:"confirmed,omitempty"`
}

// Service implements double opt-in newsletter subscriptions. A subscription
// starts pending with a confirmation token; only Confirm with a live token
// marks the address confirmed.
type Service struct {
	blobs    storage.Store
	mail     mailer.Mailer
	baseURL  string
	tokenTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(blobs storage.Store, mail mailer.Mailer, baseURL string, tokenTTL time.Duration, logger *zap.Logger) *Service {
	return &Service{
		blobs:    blobs,
		mail:     mail,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		tokenTTL: tokenTTL,
		logger:   logger,
		now:      time.Now,
	}
}

// Subscribe registers an email address as a pending subscriber and emails a
// confirmation link. Subscribing an already-confirmed address reports a
// duplicate; re-subscribing a pending address reissues the token. An address
// that unsubscribed earlier may subscribe again.
func (s *Service) Subscribe(ctx context.Context, email string) (SubscribeResult, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return SubscribeResult{}, err
	}

	sub, found, err := s.load(ctx, email)
	if err != nil {
		return SubscribeResult{}, err
	}

	now := s.now().UTC()
	if found && sub.ConfirmedAt != nil && sub.UnsubscribedAt == nil {
		s.recordEvent(ctx, "subscribe_duplicate")
		return SubscribeResult{OK: true, Duplicate: true, Confirmed: true}, nil
	}

	if !found {
		sub = domain.Subscriber{Email: email, CreatedAt: now}
	}

	expires := now.Add(s.tokenTTL)
	sub.ConfirmToken = uuid.New().String()
	sub.TokenExpiresAt = &expires
	sub.PendingTokenIssuedAt = &now
	sub.ConfirmedAt = nil
	sub.UnsubscribedAt = nil
	sub.UpdatedAt = now

	if err := s.save(ctx, sub); err != nil {
		return SubscribeResult{}, err
	}
	s.recordEvent(ctx, "subscribe_pending")

	confirmURL := s.baseURL + "/v1/newsletter/confirm?token=" + sub.ConfirmToken
	if err := s.mail.Send(ctx, email, mailer.TemplateConfirmSubscription, map[string]string{"confirm_url": confirmURL}); err != nil {
		s.logger.Warn("failed to send confirmation email", zap.String("email", email), zap.Error(err))
	}

	s.logger.Info("newsletter subscription pending", zap.String("email", email))
	return SubscribeResult{OK: true}, nil
}

// Confirm validates a confirmation token and marks the subscriber confirmed.
// Expired or unknown tokens fail; confirming twice with the same token is
// accepted and reports the already-confirmed state.
func (s *Service) Confirm(ctx context.Context, token string) (*domain.Subscriber, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperrors.NewValidation("confirmation token required", "token", "required")
	}

	sub, err := s.findByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if sub.ConfirmedAt != nil {
		return sub, nil
	}

	now := s.now().UTC()
	if sub.TokenExpiresAt == nil || now.After(*sub.TokenExpiresAt) {
		s.recordEvent(ctx, "confirm_expired")
		return nil, apperrors.NewValidation("confirmation token expired", "token", "expired")
	}

	sub.ConfirmedAt = &now
	sub.ConfirmToken = ""
	sub.TokenExpiresAt = nil
	sub.UpdatedAt = now
	if err := s.save(ctx, *sub); err != nil {
		return nil, err
	}
	s.recordEvent(ctx, "confirm")

	if err := s.mail.Send(ctx, sub.Email, mailer.TemplateWelcome, nil); err != nil {
		s.logger.Warn("failed to send welcome email", zap.String("email", sub.Email), zap.Error(err))
	}

	s.logger.Info("newsletter subscription confirmed", zap.String("email", sub.Email))
	return sub, nil
}

// Unsubscribe marks the address unsubscribed. The record is kept so a later
// re-subscribe goes through the pending flow again.
func (s *Service) Unsubscribe(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	sub, found, err := s.load(ctx, email)
	if err != nil {
		return err
	}
	if !found {
		return &apperrors.ErrNotFound{Resource: "subscriber", ID: email}
	}

	now := s.now().UTC()
	sub.UnsubscribedAt = &now
	sub.ConfirmToken = ""
	sub.TokenExpiresAt = nil
	sub.UpdatedAt = now
	if err := s.save(ctx, sub); err != nil {
		return err
	}
	s.recordEvent(ctx, "unsubscribe")

	s.logger.Info("newsletter unsubscribed", zap.String("email", email))
	return nil
}

// List returns all subscriber records, used by the operator CLI.
func (s *Service) List(ctx context.Context) ([]domain.Subscriber, error) {
	raw, err := s.blobs.List(ctx, storage.NSSubscribers)
	if err != nil {
		return nil, err
	}
	subs := make([]domain.Subscriber, 0, len(raw))
	for _, v := range raw {
		var sub domain.Subscriber
		if err := json.Unmarshal(v, &sub); err != nil {
			s.logger.Warn("skipping malformed subscriber record", zap.Error(err))
			continue
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func (s *Service) load(ctx context.Context, email string) (domain.Subscriber, bool, error) {
	raw, err := s.blobs.Get(ctx, storage.NSSubscribers, email)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return domain.Subscriber{}, false, nil
		}
		return domain.Subscriber{}, false, &apperrors.ErrUnavailable{Collaborator: "subscriber store", Err: err}
	}
	var sub domain.Subscriber
	if err := json.Unmarshal(raw, &sub); err != nil {
		return domain.Subscriber{}, false, &apperrors.ErrUnavailable{Collaborator: "subscriber store", Err: err}
	}
	return sub, true, nil
}

func (s *Service) save(ctx context.Context, sub domain.Subscriber) error {
	raw, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	if err := s.blobs.Put(ctx, storage.NSSubscribers, sub.Email, raw); err != nil {
		return &apperrors.ErrUnavailable{Collaborator: "subscriber store", Err: err}
	}
	return nil
}

func (s *Service) findByToken(ctx context.Context, token string) (*domain.Subscriber, error) {
	raw, err := s.blobs.List(ctx, storage.NSSubscribers)
	if err != nil {
		return nil, &apperrors.ErrUnavailable{Collaborator: "subscriber store", Err: err}
	}
	for _, v := range raw {
		var sub domain.Subscriber
		if err := json.Unmarshal(v, &sub); err != nil {
			continue
		}
		if sub.ConfirmToken == token {
			return &sub, nil
		}
	}
	return nil, &apperrors.ErrNotFound{Resource: "confirmation token", ID: token}
}

// recordEvent bumps a metrics counter. Best-effort: failures are logged only.
func (s *Service) recordEvent(ctx context.Context, event string) {
	type counter struct {
		Count     int       `json:"count"`
		UpdatedAt time.Time `json:"updated_at"`
	}
	var c counter
	if raw, err := s.blobs.Get(ctx, storage.NSMetrics, "newsletter:"+event); err == nil {
		_ = json.Unmarshal(raw, &c)
	}
	c.Count++
	c.UpdatedAt = s.now().UTC()
	raw, _ := json.Marshal(c)
	if err := s.blobs.Put(ctx, storage.NSMetrics, "newsletter:"+event, raw); err != nil {
		s.logger.Warn("failed to record metric", zap.String("event", event), zap.Error(err))
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return "", apperrors.NewValidation("valid email required", "email", "invalid")
	}
	return email, nil
}
