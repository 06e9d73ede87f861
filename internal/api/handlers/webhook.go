package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/iharalondon/storefront/internal/config"
	"github.com/iharalondon/storefront/internal/orders"
	apperrors "github.com/iharalondon/storefront/pkg/errors"
)

type webhookBody struct {
	Type string `json:"type"`
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// verifyMercadoPagoSignature checks the x-signature header, which carries
// comma-separated ts and v1 parts. The v1 value is an HMAC-SHA256 over the
// manifest "id:<data.id>;request-id:<x-request-id>;ts:<ts>;".
func verifyMercadoPagoSignature(secret, header, requestID, dataID string) bool {
	if secret == "" || header == "" || requestID == "" {
		return false
	}

	var ts, v1 string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "ts":
			ts = kv[1]
		case "v1":
			v1 = kv[1]
		}
	}
	if ts == "" || v1 == "" {
		return false
	}

	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", dataID, requestID, ts)
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(manifest))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(v1))
}

// HandleMercadoPagoWebhook handles POST /webhooks/mercadopago. Payment
// notifications update the referenced order; every other topic is
// acknowledged and ignored so the gateway stops retrying.
func HandleMercadoPagoWebhook(cfg *config.Config, svc *orders.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := strings.TrimSpace(cfg.WebhookSecret)
		if secret == "" {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "webhook not configured"})
			return
		}

		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
			return
		}

		var body webhookBody
		if err := json.Unmarshal(bodyBytes, &body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON", "details": err.Error()})
			return
		}
		if body.Type == "" || body.Data.ID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification format"})
			return
		}

		signature := c.GetHeader("x-signature")
		requestID := c.GetHeader("x-request-id")
		if !verifyMercadoPagoSignature(secret, signature, requestID, body.Data.ID) {
			logger.Warn("webhook signature rejected",
				zap.String("request_id", requestID),
				zap.String("data_id", body.Data.ID))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook signature"})
			return
		}

		if body.Type != "payment" {
			logger.Info("ignoring webhook topic",
				zap.String("type", body.Type),
				zap.String("data_id", body.Data.ID))
			c.JSON(http.StatusOK, gin.H{"status": "OK"})
			return
		}

		record, err := svc.ApplyPaymentNotification(c.Request.Context(), body.Data.ID)
		if err != nil {
			// Unknown references are acknowledged: retrying cannot resolve them.
			var nf *apperrors.ErrNotFound
			if errors.As(err, &nf) {
				logger.Warn("payment for unknown order", zap.String("payment_id", body.Data.ID))
				c.JSON(http.StatusOK, gin.H{"status": "OK"})
				return
			}
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "OK",
			"reference": record.Reference,
			"order":     record.Status,
		})
	}
}
