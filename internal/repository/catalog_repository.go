package repository

import (
	"context"
	"errors"

	"marketplace/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

// 資材カタログ（ベンダーと資材）の参照だけを約束。
type CatalogRepository interface {
	ListVendors(ctx context.Context) ([]model.Vendor, error)
	FindVendor(ctx context.Context, vendorID string) (model.Vendor, error)

	// vendorIDが空なら全ベンダー
	ListMaterials(ctx context.Context, vendorID string) ([]model.Material, error)
	FindMaterial(ctx context.Context, vendorID string, materialID string) (model.Material, error)
}
