package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/iharalondon/storefront/pkg/errors"
)

// respondError maps domain errors to JSON responses:
// validation and card errors to 422, empty cart to 409, missing resources to
// 404, auth failures to 401, collaborator outages to 502, anything else 500.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var (
		validation  *apperrors.ErrValidation
		invalidCard *apperrors.ErrInvalidCard
		emptyCart   *apperrors.ErrEmptyCart
		notFound    *apperrors.ErrNotFound
		unauth      *apperrors.ErrUnauthorized
		unavailable *apperrors.ErrUnavailable
		transition  *apperrors.ErrInvalidStateTransition
	)

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  validation.Message,
			"focus":  validation.First,
			"fields": validation.Fields,
		})
	case errors.As(err, &invalidCard):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": invalidCard.Error(),
			"focus": invalidCard.Field,
			"fields": gin.H{
				invalidCard.Field: invalidCard.Reason,
			},
		})
	case errors.As(err, &emptyCart):
		c.JSON(http.StatusConflict, gin.H{"error": emptyCart.Error()})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
	case errors.As(err, &unauth):
		c.JSON(http.StatusUnauthorized, gin.H{"error": unauth.Error()})
	case errors.As(err, &unavailable):
		logger.Warn("collaborator unavailable",
			zap.String("collaborator", unavailable.Collaborator),
			zap.Error(unavailable.Err))
		c.JSON(http.StatusBadGateway, gin.H{
			"error":     unavailable.Error(),
			"retryable": true,
		})
	case errors.As(err, &transition):
		c.JSON(http.StatusConflict, gin.H{"error": transition.Error()})
	default:
		logger.Error("unhandled error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
