package handlers

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/iharalondon/storefront/internal/orders"
)

// HandleListOrders handles GET /v1/admin/orders, newest first.
func HandleListOrders(svc *orders.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		records, err := svc.List(c.Request.Context())
		if err != nil {
			respondError(c, logger, err)
			return
		}
		sort.Slice(records, func(i, j int) bool {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		})
		c.JSON(http.StatusOK, gin.H{"orders": records, "count": len(records)})
	}
}

// HandleGetOrder handles GET /v1/admin/orders/:reference.
func HandleGetOrder(svc *orders.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		record, err := svc.Get(c.Request.Context(), c.Param("reference"))
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, record)
	}
}
