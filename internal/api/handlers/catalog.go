package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/iharalondon/storefront/internal/catalog"
)

// HandleListProducts handles GET /v1/catalog/products.
func HandleListProducts(cat *catalog.Catalog, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"products": cat.List()})
	}
}

// HandleGetProduct handles GET /v1/catalog/products/:id.
func HandleGetProduct(cat *catalog.Catalog, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		product, err := cat.Get(c.Param("id"))
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}
