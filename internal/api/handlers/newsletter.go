package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/iharalondon/storefront/internal/newsletter"
)

type subscribeRequest struct {
	Email string `json:"email" binding:"required"`
}

// HandleNewsletterSubscribe handles POST /v1/newsletter/subscribe.
func HandleNewsletterSubscribe(svc *newsletter.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req subscribeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON", "details": err.Error()})
			return
		}

		res, err := svc.Subscribe(c.Request.Context(), req.Email)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// HandleNewsletterConfirm handles GET and POST /v1/newsletter/confirm.
// The token arrives as a query parameter from the emailed link, or in the
// body when posted.
func HandleNewsletterConfirm(svc *newsletter.Service, logger *zap.Logger) gin.HandlerFunc {
	type confirmRequest struct {
		Token string `json:"token"`
	}
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			var req confirmRequest
			_ = c.ShouldBindJSON(&req)
			token = req.Token
		}

		sub, err := svc.Confirm(c.Request.Context(), token)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "email": sub.Email, "confirmed": true})
	}
}

// HandleNewsletterUnsubscribe handles POST /v1/newsletter/unsubscribe.
func HandleNewsletterUnsubscribe(svc *newsletter.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req subscribeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON", "details": err.Error()})
			return
		}

		if err := svc.Unsubscribe(c.Request.Context(), req.Email); err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
