package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/iharalondon/storefront/internal/catalog"
	"github.com/iharalondon/storefront/internal/config"
	"github.com/iharalondon/storefront/internal/domain"
	"github.com/iharalondon/storefront/internal/mailer"
	"github.com/iharalondon/storefront/internal/mercadopago"
	"github.com/iharalondon/storefront/internal/newsletter"
	"github.com/iharalondon/storefront/internal/orders"
	"github.com/iharalondon/storefront/internal/payment"
	"github.com/iharalondon/storefront/internal/session"
	"github.com/iharalondon/storefront/internal/storage"
)

type nopMailer struct{}

func (nopMailer) Send(ctx context.Context, to string, kind mailer.TemplateKind, data map[string]string) error {
	return nil
}

type nopGateway struct{}

func (nopGateway) CreatePreference(ctx context.Context, draft domain.CheckoutDraft) (*mercadopago.Preference, error) {
	return &mercadopago.Preference{ID: "pref-1", InitPoint: "https://mp.example/init", ExternalReference: "ORDER_1_aaaaaaaaa"}, nil
}

func (nopGateway) GetPayment(ctx context.Context, paymentID string) (*mercadopago.Payment, error) {
	return nil, fmt.Errorf("not implemented")
}

const adminKey = "test-admin-key"

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	blobs := storage.NewMemory()

	cat := catalog.NewFromProducts([]domain.Product{
		{
			ID:        "ring-luna",
			Name:      "Luna Ring",
			UnitPrice: decimal.NewFromInt(14500),
			Colors:    []domain.Color{{Key: "gold", Label: "Gold"}},
			Sizes:     []string{"6", "7"},
		},
		{
			ID:        "pendant-sol",
			Name:      "Sol Pendant",
			UnitPrice: decimal.NewFromInt(22000),
		},
	})

	ordersSvc := orders.NewService(blobs, nopGateway{}, nopMailer{}, logger)
	dispatcher := session.NewDispatcher(
		session.NewRegistry(blobs, logger),
		cat,
		payment.NewSelector(),
		ordersSvc,
		decimal.NewFromInt(500),
		logger,
	)
	newsSvc := newsletter.NewService(blobs, nopMailer{}, "https://iharalondon.example", 48*time.Hour, logger)

	hash, err := bcrypt.GenerateFromPassword([]byte(adminKey), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := &config.Config{
		Environment: "test",
		API:         config.APIConfig{AdminKeyHash: string(hash)},
	}
	return NewRouter(cfg, &Services{
		Dispatcher: dispatcher,
		Catalog:    cat,
		Newsletter: newsSvc,
		Orders:     ordersSvc,
		Blobs:      blobs,
	}, logger)
}

func doJSON(r *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthAndCatalog(t *testing.T) {
	r := newTestRouter(t)

	assert.Equal(t, http.StatusOK, doJSON(r, http.MethodGet, "/health", nil, nil).Code)

	w := doJSON(r, http.MethodGet, "/v1/catalog/products", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ring-luna")

	assert.Equal(t, http.StatusNotFound, doJSON(r, http.MethodGet, "/v1/catalog/products/nope", nil, nil).Code)
}

func TestCommandFlowOverHTTP(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(r, http.MethodPost, "/v1/session/s1/commands", session.Command{
		Type: session.CmdAddItem, ProductID: "ring-luna", ColorKey: "gold", Size: "7",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Adding the same variant merges into one line of quantity two.
	w = doJSON(r, http.MethodPost, "/v1/session/s1/commands", session.Command{
		Type: session.CmdAddItem, ProductID: "ring-luna", ColorKey: "gold", Size: "7",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Cart struct {
			Lines []struct {
				Quantity int `json:"quantity"`
			} `json:"lines"`
			ItemCount int `json:"item_count"`
		} `json:"cart"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Cart.Lines, 1)
	assert.Equal(t, 2, resp.Cart.Lines[0].Quantity)
	assert.Equal(t, 2, resp.Cart.ItemCount)
}

func TestCommandValidationMapsTo422(t *testing.T) {
	r := newTestRouter(t)

	// Sized product without a size.
	w := doJSON(r, http.MethodPost, "/v1/session/s1/commands", session.Command{
		Type: session.CmdAddItem, ProductID: "ring-luna", ColorKey: "gold",
	}, nil)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `"focus":"size"`)
}

func TestOpenCheckoutEmptyCartMapsTo409(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(r, http.MethodPost, "/v1/session/s1/commands", session.Command{Type: session.CmdOpenCheckout}, nil)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestIdempotentCommandReplay(t *testing.T) {
	r := newTestRouter(t)
	headers := map[string]string{"Idempotency-Key": "key-1"}
	cmd := session.Command{Type: session.CmdAddItem, ProductID: "pendant-sol"}

	first := doJSON(r, http.MethodPost, "/v1/session/s1/commands", cmd, headers)
	require.Equal(t, http.StatusOK, first.Code)

	// Same key and body replays the stored response without re-adding.
	second := doJSON(r, http.MethodPost, "/v1/session/s1/commands", cmd, headers)
	require.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	w := doJSON(r, http.MethodGet, "/v1/session/s1/cart", nil, nil)
	var view struct {
		ItemCount int `json:"item_count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, 1, view.ItemCount)

	// Same key with a different body is a conflict.
	other := doJSON(r, http.MethodPost, "/v1/session/s1/commands", session.Command{
		Type: session.CmdAddItem, ProductID: "ring-luna", ColorKey: "gold", Size: "6",
	}, headers)
	assert.Equal(t, http.StatusConflict, other.Code)
}

func TestNewsletterSubscribeOverHTTP(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(r, http.MethodPost, "/v1/newsletter/subscribe", gin.H{"email": "ana@example.com"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok":true`)

	w = doJSON(r, http.MethodPost, "/v1/newsletter/subscribe", gin.H{"email": "not-an-email"}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestContactFormOverHTTP(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(r, http.MethodPost, "/v1/contact", gin.H{
		"name": "Ana", "email": "ana@example.com", "message": "Do you resize rings?",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodPost, "/v1/contact", gin.H{"name": "", "email": "x", "message": ""}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestAdminOrdersRequireAuth(t *testing.T) {
	r := newTestRouter(t)

	assert.Equal(t, http.StatusUnauthorized, doJSON(r, http.MethodGet, "/v1/admin/orders", nil, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, doJSON(r, http.MethodGet, "/v1/admin/orders", nil, map[string]string{
		"Authorization": "Bearer wrong-key",
	}).Code)

	w := doJSON(r, http.MethodGet, "/v1/admin/orders", nil, map[string]string{
		"Authorization": "Bearer " + adminKey,
	})
	assert.Equal(t, http.StatusOK, w.Code)
}
