package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/iharalondon/storefront/pkg/errors"
)

const catalogJSON = `[
  {
    "id": "ring-luna",
    "name": "Luna Ring",
    "unit_price": "14500",
    "colors": [{"key": "gold", "label": "Gold"}],
    "sizes": ["6", "7", "8"]
  },
  {
    "id": "pendant-sol",
    "name": "Sol Pendant",
    "unit_price": "22000"
  }
]`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCatalog(t *testing.T) {
	c, err := Load(writeCatalog(t, catalogJSON), zap.NewNop())
	require.NoError(t, err)

	assert.Len(t, c.List(), 2)
	assert.Equal(t, []string{"pendant-sol", "ring-luna"}, c.IDs())

	p, err := c.Get("ring-luna")
	require.NoError(t, err)
	assert.True(t, p.HasSizes())
	assert.Equal(t, "Luna Ring", p.Name)

	_, err = c.Get("nope")
	var nf *apperrors.ErrNotFound
	assert.ErrorAs(t, err, &nf)
}

func TestLoadCatalogRejectsDuplicates(t *testing.T) {
	_, err := Load(writeCatalog(t, `[
	  {"id": "ring-luna", "name": "Luna Ring", "unit_price": "1"},
	  {"id": "ring-luna", "name": "Luna Ring Again", "unit_price": "2"}
	]`), zap.NewNop())

	assert.Error(t, err)
}

func TestLoadCatalogRejectsMissingFields(t *testing.T) {
	_, err := Load(writeCatalog(t, `[{"id": "", "name": "Nameless", "unit_price": "1"}]`), zap.NewNop())
	assert.Error(t, err)

	_, err = Load(writeCatalog(t, `{not json`), zap.NewNop())
	assert.Error(t, err)
}
