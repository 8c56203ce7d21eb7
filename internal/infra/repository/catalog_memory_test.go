package repository

import (
	"context"
	"testing"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededCatalog(t *testing.T) *MemoryCatalog {
	t.Helper()
	c := NewMemoryCatalog()
	c.Seed()
	return c
}

func TestMemoryCatalog_ListVendors_SortedByID(t *testing.T) {
	c := seededCatalog(t)

	vendors, err := c.ListVendors(context.Background())
	require.NoError(t, err)
	require.Len(t, vendors, 3)
	assert.Equal(t, "V1", vendors[0].ID)
	assert.Equal(t, "V2", vendors[1].ID)
	assert.Equal(t, "V3", vendors[2].ID)
}

func TestMemoryCatalog_ListMaterials_FilterByVendor(t *testing.T) {
	c := seededCatalog(t)
	ctx := context.Background()

	all, err := c.ListMaterials(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 6)

	v1, err := c.ListMaterials(ctx, "V1")
	require.NoError(t, err)
	require.Len(t, v1, 2)
	for _, m := range v1 {
		assert.Equal(t, "V1", m.VendorID)
	}

	_, err = c.ListMaterials(ctx, "nope")
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestMemoryCatalog_FindMaterial(t *testing.T) {
	c := seededCatalog(t)
	ctx := context.Background()

	m, err := c.FindMaterial(ctx, "V2", "rebar-12mm")
	require.NoError(t, err)
	assert.True(t, m.Price.Equal(decimal.NewFromInt(850)))

	//別ベンダーのIDでは見つからない
	_, err = c.FindMaterial(ctx, "V1", "rebar-12mm")
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestMemoryCatalog_DeliveryFee_UnknownVendorIsZero(t *testing.T) {
	c := seededCatalog(t)

	assert.True(t, c.DeliveryFee("V1").Equal(decimal.NewFromInt(150)))
	assert.True(t, c.DeliveryFee("unknown").IsZero())
}

func TestMemoryCatalog_PutMaterial_RequiresVendor(t *testing.T) {
	c := NewMemoryCatalog()

	err := c.PutMaterial(model.Material{ID: "x", VendorID: "V9", Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, repo.ErrNotFound)

	c.PutVendor(model.Vendor{ID: "V9", Name: "Nine", DeliveryFee: decimal.NewFromInt(10)})
	require.NoError(t, c.PutMaterial(model.Material{ID: "x", VendorID: "V9", Price: decimal.NewFromInt(1)}))

	v, err := c.FindVendor(context.Background(), "V9")
	require.NoError(t, err)
	assert.Equal(t, "Nine", v.Name)
}

var _ repo.CatalogRepository = (*MemoryCatalog)(nil)
