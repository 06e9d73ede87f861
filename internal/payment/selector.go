package payment

import (
	"regexp"
	"strings"
	"time"

	"github.com/iharalondon/storefront/internal/domain"
	apperrors "github.com/iharalondon/storefront/pkg/errors"
)

// Mercado Pago sub-methods the selector accepts.
const (
	SubMethodCreditCard   = "credit-card"
	SubMethodDebitCard    = "debit-card"
	SubMethodTicket       = "ticket"
	SubMethodBankTransfer = "bank-transfer"
)

const (
	minCardDigits      = 13
	maxCardDigits      = 19
	defaultInstallment = 12
	maxInstallments    = 12
)

var expiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/(\d{2})$`)

// CardInput is raw card data as typed by the buyer. Only the last four digits
// survive past validation.
type CardInput struct {
	Number string `json:"number"`
	Expiry string `json:"expiry"` // MM/YY
	CVC    string `json:"cvc"`
}

// Input is the buyer's payment selection before validation.
type Input struct {
	Method       domain.PaymentMethod `json:"method"`
	Card         *CardInput           `json:"card,omitempty"`
	SubMethod    string               `json:"sub_method,omitempty"`
	Installments int                  `json:"installments,omitempty"`
}

// Selector validates a payment selection and normalizes it into the
// domain.PaymentInfo the checkout flow carries. Validation is local:
// the gateway does its own checks later, this only catches what can be
// caught before leaving the summary step.
type Selector struct {
	now func() time.Time
}

func NewSelector() *Selector {
	return &Selector{now: time.Now}
}

// Normalize validates in per its method and returns the normalized info.
func (s *Selector) Normalize(in Input) (domain.PaymentInfo, error) {
	if !in.Method.IsValid() {
		return domain.PaymentInfo{}, apperrors.NewValidation("payment method required", "method", "required")
	}

	switch in.Method {
	case domain.PaymentCard:
		if in.Card == nil {
			return domain.PaymentInfo{}, &apperrors.ErrInvalidCard{Field: "number", Reason: "required"}
		}
		digits, err := s.validateCard(*in.Card)
		if err != nil {
			return domain.PaymentInfo{}, err
		}
		return domain.PaymentInfo{
			Method:    domain.PaymentCard,
			CardLast4: digits[len(digits)-4:],
		}, nil

	case domain.PaymentMercadoPago:
		switch in.SubMethod {
		case SubMethodCreditCard, SubMethodDebitCard, SubMethodTicket, SubMethodBankTransfer:
		case "":
			return domain.PaymentInfo{}, apperrors.NewValidation("payment sub-method required", "sub_method", "required")
		default:
			return domain.PaymentInfo{}, apperrors.NewValidation("unknown payment sub-method", "sub_method", "invalid")
		}
		return domain.PaymentInfo{
			Method:       domain.PaymentMercadoPago,
			SubMethod:    in.SubMethod,
			Installments: NormalizeInstallments(in.SubMethod, in.Installments),
		}, nil

	default:
		// Manual methods carry no extra fields; the order lands as pending.
		return domain.PaymentInfo{Method: in.Method}, nil
	}
}

// validateCard returns the bare digits of a card that passed every check.
func (s *Selector) validateCard(card CardInput) (string, error) {
	digits := stripSeparators(card.Number)
	if len(digits) < minCardDigits || len(digits) > maxCardDigits || !allDigits(digits) {
		return "", &apperrors.ErrInvalidCard{Field: "number", Reason: "must be 13 to 19 digits"}
	}
	if !luhnValid(digits) {
		return "", &apperrors.ErrInvalidCard{Field: "number", Reason: "failed checksum"}
	}
	if err := s.validateExpiry(card.Expiry); err != nil {
		return "", err
	}
	cvc := strings.TrimSpace(card.CVC)
	if len(cvc) < 3 || !allDigits(cvc) {
		return "", &apperrors.ErrInvalidCard{Field: "cvc", Reason: "must be at least 3 digits"}
	}
	return digits, nil
}

func (s *Selector) validateExpiry(expiry string) error {
	m := expiryPattern.FindStringSubmatch(strings.TrimSpace(expiry))
	if m == nil {
		return &apperrors.ErrInvalidCard{Field: "expiry", Reason: "must be MM/YY"}
	}
	month := int(m[1][0]-'0')*10 + int(m[1][1]-'0')
	year := 2000 + int(m[2][0]-'0')*10 + int(m[2][1]-'0')

	now := s.now()
	if year < now.Year() || (year == now.Year() && month < int(now.Month())) {
		return &apperrors.ErrInvalidCard{Field: "expiry", Reason: "card expired"}
	}
	return nil
}

// NormalizeInstallments applies the per-sub-method installment rules:
// debit always pays in one, credit clamps to [1,12] with 12 as the default,
// everything else pays in one.
func NormalizeInstallments(subMethod string, n int) int {
	switch subMethod {
	case SubMethodCreditCard:
		if n == 0 {
			return defaultInstallment
		}
		if n < 1 {
			return 1
		}
		if n > maxInstallments {
			return maxInstallments
		}
		return n
	default:
		return 1
	}
}

func stripSeparators(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, s)
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// luhnValid runs the Luhn checksum over a digit string.
func luhnValid(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
