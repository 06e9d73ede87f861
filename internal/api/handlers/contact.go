package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iharalondon/storefront/internal/domain"
	"github.com/iharalondon/storefront/internal/storage"
	apperrors "github.com/iharalondon/storefront/pkg/errors"
)

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// HandleContact handles POST /v1/contact: validates and stores a contact-form
// submission for the shop operator.
func HandleContact(blobs storage.Store, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req contactRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON", "details": err.Error()})
			return
		}

		var fields []string
		if strings.TrimSpace(req.Name) == "" {
			fields = append(fields, "name", "required")
		}
		if strings.TrimSpace(req.Email) == "" || !strings.Contains(req.Email, "@") {
			fields = append(fields, "email", "invalid")
		}
		if strings.TrimSpace(req.Message) == "" {
			fields = append(fields, "message", "required")
		}
		if len(fields) > 0 {
			respondError(c, logger, apperrors.NewValidation("contact form incomplete", fields...))
			return
		}

		msg := domain.ContactMessage{
			ID:        uuid.New(),
			Name:      strings.TrimSpace(req.Name),
			Email:     strings.ToLower(strings.TrimSpace(req.Email)),
			Message:   strings.TrimSpace(req.Message),
			CreatedAt: time.Now().UTC(),
		}
		raw, err := json.Marshal(msg)
		if err == nil {
			err = blobs.Put(c.Request.Context(), storage.NSContact, msg.ID.String(), raw)
		}
		if err != nil {
			respondError(c, logger, &apperrors.ErrUnavailable{Collaborator: "contact store", Err: err})
			return
		}

		logger.Info("contact message received",
			zap.String("id", msg.ID.String()),
			zap.String("email", msg.Email))
		c.JSON(http.StatusOK, gin.H{"ok": true, "id": msg.ID.String()})
	}
}
