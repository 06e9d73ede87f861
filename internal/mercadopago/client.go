package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iharalondon/storefront/internal/config"
	"github.com/iharalondon/storefront/internal/domain"
	"github.com/iharalondon/storefront/internal/payment"
)

// The checkout only accepts these payment types; everything else the gateway
// knows about goes on the excluded list of each preference.
var allowedPaymentTypes = map[string]bool{
	"credit_card":   true,
	"debit_card":    true,
	"ticket":        true,
	"bank_transfer": true,
}

var allPaymentTypes = []string{
	"account_money",
	"ticket",
	"bank_transfer",
	"atm",
	"debit_card",
	"credit_card",
	"prepaid_card",
	"digital_currency",
	"digital_wallet",
}

type Client struct {
	baseURL     string
	accessToken string
	appBaseURL  string
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewClient creates a Mercado Pago REST client
func NewClient(cfg config.MercadoPagoConfig, appBaseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		accessToken: cfg.AccessToken,
		appBaseURL:  strings.TrimSuffix(appBaseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// PreferenceItem is one purchasable line on a checkout preference
type PreferenceItem struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
}

type preferencePayer struct {
	Name  string          `json:"name"`
	Email string          `json:"email"`
	Phone preferencePhone `json:"phone"`
}

type preferencePhone struct {
	AreaCode string `json:"area_code"`
	Number   string `json:"number"`
}

type backURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

type excludedType struct {
	ID string `json:"id"`
}

type paymentMethods struct {
	ExcludedPaymentMethods []excludedType `json:"excluded_payment_methods"`
	ExcludedPaymentTypes   []excludedType `json:"excluded_payment_types"`
	Installments           int            `json:"installments"`
}

type preferenceRequest struct {
	Items               []PreferenceItem `json:"items"`
	Payer               preferencePayer  `json:"payer"`
	BackURLs            backURLs         `json:"back_urls"`
	AutoReturn          string           `json:"auto_return"`
	PaymentMethods      paymentMethods   `json:"payment_methods"`
	NotificationURL     string           `json:"notification_url"`
	StatementDescriptor string           `json:"statement_descriptor"`
	ExternalReference   string           `json:"external_reference"`
}

// Preference is the created checkout session the buyer is redirected to
type Preference struct {
	ID                string `json:"id"`
	InitPoint         string `json:"init_point"`
	SandboxInitPoint  string `json:"sandbox_init_point"`
	ExternalReference string `json:"external_reference"`
}

// Payment is the gateway's view of a payment, fetched on webhook notification
type Payment struct {
	ID                int64           `json:"id"`
	Status            string          `json:"status"`
	StatusDetail      string          `json:"status_detail"`
	ExternalReference string          `json:"external_reference"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	Payer             struct {
		Email string `json:"email"`
	} `json:"payer"`
}

// CreatePreference builds a checkout preference from the draft: items priced
// in ARS, payer from the contact step, the excluded-types list derived from
// the allowed set, and installments already normalized per sub-method.
func (c *Client) CreatePreference(ctx context.Context, draft domain.CheckoutDraft) (*Preference, error) {
	items := make([]PreferenceItem, 0, len(draft.Items))
	for _, line := range draft.Items {
		items = append(items, PreferenceItem{
			ID:         string(line.Key()),
			Title:      line.Name,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice.InexactFloat64(),
			CurrencyID: "ARS",
		})
	}

	excluded := make([]excludedType, 0, len(allPaymentTypes))
	for _, t := range allPaymentTypes {
		if !allowedPaymentTypes[t] {
			excluded = append(excluded, excludedType{ID: t})
		}
	}

	installments := draft.Payment.Installments
	if installments == 0 {
		installments = payment.NormalizeInstallments(draft.Payment.SubMethod, 0)
	}

	req := preferenceRequest{
		Items: items,
		Payer: preferencePayer{
			Name:  draft.Contact.Name,
			Email: draft.Contact.Email,
			Phone: preferencePhone{AreaCode: "11", Number: draft.Contact.Phone},
		},
		BackURLs: backURLs{
			Success: c.appBaseURL + "/payment-success",
			Failure: c.appBaseURL + "/payment-failure",
			Pending: c.appBaseURL + "/payment-pending",
		},
		AutoReturn: "approved",
		PaymentMethods: paymentMethods{
			ExcludedPaymentMethods: []excludedType{},
			ExcludedPaymentTypes:   excluded,
			Installments:           installments,
		},
		NotificationURL:     c.appBaseURL + "/webhooks/mercadopago",
		StatementDescriptor: "IHARA&LONDON",
		ExternalReference:   NewExternalReference(),
	}

	var pref Preference
	if err := c.do(ctx, http.MethodPost, "/checkout/preferences", req, &pref); err != nil {
		return nil, err
	}
	if pref.ExternalReference == "" {
		pref.ExternalReference = req.ExternalReference
	}

	c.logger.Info("mercadopago preference created",
		zap.String("preference_id", pref.ID),
		zap.String("external_reference", pref.ExternalReference),
		zap.String("customer_email", draft.Contact.Email))
	return &pref, nil
}

// GetPayment fetches a payment by ID for webhook processing
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	var p Payment
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+paymentID, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("mercadopago API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w, body: %s", err, string(respBody))
		}
	}
	return nil
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewExternalReference builds the gateway-side order reference:
// ORDER_<unix millis>_<9 random base36 chars>.
func NewExternalReference() string {
	suffix := make([]byte, 9)
	for i := range suffix {
		suffix[i] = base36[rand.Intn(len(base36))]
	}
	return fmt.Sprintf("ORDER_%d_%s", time.Now().UnixMilli(), suffix)
}
