package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/iharalondon/storefront/internal/config"
)

// TemplateKind selects which transactional email to render.
type TemplateKind string

const (
	TemplateWelcome             TemplateKind = "welcome"
	TemplateConfirmSubscription TemplateKind = "confirm-subscription"
	TemplateOrderConfirmation   TemplateKind = "order-confirmation"
	TemplatePendingPayment      TemplateKind = "pending-payment"
	TemplatePaymentRejected     TemplateKind = "payment-rejected"
)

// Mailer sends templated transactional email. Call sites treat delivery as
// fire-and-forget: a send failure is logged and never blocks the operation
// that triggered it.
type Mailer interface {
	Send(ctx context.Context, to string, kind TemplateKind, data map[string]string) error
}

type Client struct {
	apiKey     string
	fromEmail  string
	brand      string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a SendGrid v3 mail client
func NewClient(cfg config.SendGridConfig, logger *zap.Logger) *Client {
	return &Client{
		apiKey:    cfg.APIKey,
		fromEmail: cfg.FromEmail,
		brand:     cfg.Brand,
		baseURL:   "https://api.sendgrid.com",
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
}

type sendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             emailAddress      `json:"from"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
}

type personalization struct {
	To []emailAddress `json:"to"`
}

type emailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Send renders the template kind with data and delivers it via SendGrid.
func (c *Client) Send(ctx context.Context, to string, kind TemplateKind, data map[string]string) error {
	if c.apiKey == "" {
		// No API key configured: log-only mode, used in development.
		c.logger.Info("email skipped (no SENDGRID_API_KEY)",
			zap.String("to", to),
			zap.String("template", string(kind)))
		return nil
	}

	subject, body := c.render(kind, data)
	req := sendRequest{
		Personalizations: []personalization{{To: []emailAddress{{Email: to}}}},
		From:             emailAddress{Email: c.fromEmail, Name: c.brand},
		Subject:          subject,
		Content:          []content{{Type: "text/html", Value: body}},
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v3/mail/send", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sendgrid API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	c.logger.Info("email sent",
		zap.String("to", to),
		zap.String("template", string(kind)))
	return nil
}

func (c *Client) render(kind TemplateKind, data map[string]string) (subject, body string) {
	switch kind {
	case TemplateWelcome:
		return fmt.Sprintf("Welcome to %s", c.brand),
			fmt.Sprintf("<p>You are now subscribed to the %s newsletter.</p>", c.brand)
	case TemplateConfirmSubscription:
		return fmt.Sprintf("Confirm your %s subscription", c.brand),
			fmt.Sprintf("<p>Confirm your subscription:</p><p><a href=%q>Confirm</a></p>", data["confirm_url"])
	case TemplateOrderConfirmation:
		return fmt.Sprintf("Order %s received", data["reference"]),
			fmt.Sprintf("<p>Thanks %s, we received your order <strong>%s</strong> for a total of %s.</p>",
				data["name"], data["reference"], data["total"])
	case TemplatePendingPayment:
		return fmt.Sprintf("Order %s awaiting payment", data["reference"]),
			fmt.Sprintf("<p>Your order <strong>%s</strong> is reserved and awaiting payment.</p>", data["reference"])
	case TemplatePaymentRejected:
		return fmt.Sprintf("Payment for order %s failed", data["reference"]),
			fmt.Sprintf("<p>The payment for order <strong>%s</strong> was rejected. Please try again.</p>", data["reference"])
	default:
		return string(kind), ""
	}
}
