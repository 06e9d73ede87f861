package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/iharalondon/storefront/internal/domain"
	apperrors "github.com/iharalondon/storefront/pkg/errors"
)

// Catalog is the read-only product list the storefront sells from, loaded
// once at startup from a JSON file.
type Catalog struct {
	byID  map[string]domain.Product
	order []string
}

// Load reads and validates the catalog file.
func Load(path string, logger *zap.Logger) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var products []domain.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}

	c := &Catalog{byID: make(map[string]domain.Product, len(products))}
	for _, p := range products {
		if p.ID == "" || p.Name == "" {
			return nil, fmt.Errorf("catalog product missing id or name: %+v", p)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate catalog product id %q", p.ID)
		}
		c.byID[p.ID] = p
		c.order = append(c.order, p.ID)
	}

	logger.Info("catalog loaded", zap.String("path", path), zap.Int("products", len(products)))
	return c, nil
}

// NewFromProducts builds a catalog from an in-memory product list, for tests.
func NewFromProducts(products []domain.Product) *Catalog {
	c := &Catalog{byID: make(map[string]domain.Product, len(products))}
	for _, p := range products {
		c.byID[p.ID] = p
		c.order = append(c.order, p.ID)
	}
	return c
}

// Get returns the product with the given ID.
func (c *Catalog) Get(id string) (domain.Product, error) {
	p, ok := c.byID[id]
	if !ok {
		return domain.Product{}, &apperrors.ErrNotFound{Resource: "product", ID: id}
	}
	return p, nil
}

// List returns all products in file order.
func (c *Catalog) List() []domain.Product {
	out := make([]domain.Product, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// IDs returns the sorted product IDs.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.byID))
	for id := range c.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
