package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"

	"github.com/shopspring/decimal"
)

// MemoryCatalog はプロセス内のカタログ。配送料の参照(FeeSchedule)も兼ねる。
type MemoryCatalog struct {
	mu        sync.RWMutex
	vendors   map[string]model.Vendor
	materials map[string]map[string]model.Material
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		vendors:   make(map[string]model.Vendor),
		materials: make(map[string]map[string]model.Material),
	}
}

// Seed は初期データを入れる
func (c *MemoryCatalog) Seed() {
	vendors := []model.Vendor{
		{ID: "V1", Name: "Cornerstone Supply", DeliveryFee: decimal.NewFromInt(150)},
		{ID: "V2", Name: "Steelworks Depot", DeliveryFee: decimal.NewFromInt(120)},
		{ID: "V3", Name: "Timber & Co", DeliveryFee: decimal.NewFromInt(90)},
	}
	materials := []model.Material{
		{ID: "cement-50kg", VendorID: "V1", Name: "Portland Cement 50kg", Price: decimal.NewFromInt(280), Unit: "bag", InStock: true},
		{ID: "red-brick", VendorID: "V1", Name: "Red Clay Brick", Price: decimal.NewFromInt(45), Unit: "piece", InStock: true},
		{ID: "rebar-12mm", VendorID: "V2", Name: "Steel Rebar 12mm", Price: decimal.NewFromInt(850), Unit: "bundle", InStock: true},
		{ID: "wire-mesh", VendorID: "V2", Name: "Welded Wire Mesh", Price: decimal.NewFromInt(620), Unit: "sheet", InStock: false},
		{ID: "pine-2x4", VendorID: "V3", Name: "Pine Stud 2x4", Price: decimal.NewFromInt(38), Unit: "piece", InStock: true},
		{ID: "plywood-18mm", VendorID: "V3", Name: "Plywood 18mm", Price: decimal.NewFromInt(410), Unit: "sheet", InStock: true},
	}

	for _, v := range vendors {
		c.PutVendor(v)
	}
	for _, m := range materials {
		//ベンダーは先に登録済み
		_ = c.PutMaterial(m)
	}
}

func (c *MemoryCatalog) PutVendor(v model.Vendor) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.vendors[v.ID] = v
	if _, ok := c.materials[v.ID]; !ok {
		c.materials[v.ID] = make(map[string]model.Material)
	}
}

// PutMaterial はベンダー登録済みが前提
func (c *MemoryCatalog) PutMaterial(m model.Material) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	byID, ok := c.materials[m.VendorID]
	if !ok {
		return fmt.Errorf("vendor %s: %w", m.VendorID, repo.ErrNotFound)
	}
	byID[m.ID] = m
	return nil
}

func (c *MemoryCatalog) ListVendors(ctx context.Context) ([]model.Vendor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.Vendor, 0, len(c.vendors))
	for _, v := range c.vendors {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *MemoryCatalog) FindVendor(ctx context.Context, vendorID string) (model.Vendor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.vendors[vendorID]
	if !ok {
		return model.Vendor{}, repo.ErrNotFound
	}
	return v, nil
}

func (c *MemoryCatalog) ListMaterials(ctx context.Context, vendorID string) ([]model.Material, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.Material, 0)
	if vendorID != "" {
		byID, ok := c.materials[vendorID]
		if !ok {
			return nil, repo.ErrNotFound
		}
		for _, m := range byID {
			out = append(out, m)
		}
	} else {
		for _, byID := range c.materials {
			for _, m := range byID {
				out = append(out, m)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].VendorID != out[j].VendorID {
			return out[i].VendorID < out[j].VendorID
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (c *MemoryCatalog) FindMaterial(ctx context.Context, vendorID string, materialID string) (model.Material, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m, ok := c.materials[vendorID][materialID]
	if !ok {
		return model.Material{}, repo.ErrNotFound
	}
	return m, nil
}

// DeliveryFee は未登録のベンダーなら0
func (c *MemoryCatalog) DeliveryFee(vendorID string) decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.vendors[vendorID]
	if !ok {
		return decimal.Zero
	}
	return v.DeliveryFee
}
