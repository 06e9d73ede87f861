package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iharalondon/storefront/internal/domain"
	"github.com/iharalondon/storefront/internal/session"
)

// CartView is the buyer-facing cart projection with derived totals.
type CartView struct {
	Lines     []CartLineView         `json:"lines"`
	Favorites []domain.FavoriteEntry `json:"favorites"`
	ItemCount int                    `json:"item_count"`
	Subtotal  decimal.Decimal        `json:"subtotal"`
	Theme     string                 `json:"theme,omitempty"`
}

type CartLineView struct {
	Key       string          `json:"key"`
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Image     string          `json:"image,omitempty"`
	Variant   domain.Variant  `json:"variant"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

func cartView(s *session.Session) CartView {
	lines := s.Cart().Lines()
	view := CartView{
		Lines:     make([]CartLineView, 0, len(lines)),
		Favorites: s.Cart().Favorites(),
		ItemCount: s.Cart().ItemCount(),
		Subtotal:  s.Cart().Subtotal(),
		Theme:     s.Cart().Theme(),
	}
	for _, l := range lines {
		view.Lines = append(view.Lines, CartLineView{
			Key:       string(l.Key()),
			ProductID: l.ProductID,
			Name:      l.Name,
			Image:     l.Image,
			Variant:   l.Variant,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			LineTotal: l.LineTotal(),
		})
	}
	return view
}

// HandleDispatchCommand handles POST /v1/session/:sid/commands.
// The body is one typed command; the response carries the command outcome
// plus the refreshed cart view.
func HandleDispatchCommand(dispatcher *session.Dispatcher, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := c.Param("sid")
		var cmd session.Command
		if err := c.ShouldBindJSON(&cmd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON", "details": err.Error()})
			return
		}

		outcome, err := dispatcher.Dispatch(c.Request.Context(), sid, cmd)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"outcome": outcome,
			"cart":    cartView(dispatcher.Session(c.Request.Context(), sid)),
		})
	}
}

// HandleGetCart handles GET /v1/session/:sid/cart.
func HandleGetCart(dispatcher *session.Dispatcher, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := dispatcher.Session(c.Request.Context(), c.Param("sid"))
		c.JSON(http.StatusOK, cartView(s))
	}
}
