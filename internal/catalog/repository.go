package catalog

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/orderlift/orderlift-backend/pkg/db/models"
)

// Repository wires catalog persistence: items, price lists, market prices
// and the cost history archive.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// CreateItem persists a new catalog item.
func (r *Repository) CreateItem(ctx context.Context, item *models.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// SaveItem updates an existing catalog item.
func (r *Repository) SaveItem(ctx context.Context, item *models.Item) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// GetItemByCode loads one item by its unique code.
func (r *Repository) GetItemByCode(ctx context.Context, code string) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).First(&item, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// ItemsByCode loads all items for the given codes in one query.
func (r *Repository) ItemsByCode(ctx context.Context, codes []string) ([]models.Item, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	var items []models.Item
	if err := r.db.WithContext(ctx).Where("code IN ?", codes).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ListItems returns the active catalog ordered by code.
func (r *Repository) ListItems(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("code").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// CreatePriceListEntry persists one dated rate row.
func (r *Repository) CreatePriceListEntry(ctx context.Context, entry *models.PriceListEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// RatesAsOf fetches every enabled rate row for the price list and codes
// valid at the given date, newest first. The caller keeps the first row per
// item code. One query per price list regardless of line count.
func (r *Repository) RatesAsOf(ctx context.Context, priceList string, codes []string, asOf time.Time) ([]models.PriceListEntry, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	var entries []models.PriceListEntry
	err := r.db.WithContext(ctx).
		Where("price_list = ? AND item_code IN ? AND enabled = ? AND valid_from <= ?", priceList, codes, true, asOf).
		Order("valid_from DESC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// CreateMarketPriceEntry persists one competitor price observation.
func (r *Repository) CreateMarketPriceEntry(ctx context.Context, entry *models.MarketPriceEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListMarketPriceEntries returns observations for one item, newest first.
func (r *Repository) ListMarketPriceEntries(ctx context.Context, itemCode string) ([]models.MarketPriceEntry, error) {
	var entries []models.MarketPriceEntry
	err := r.db.WithContext(ctx).
		Where("item_code = ?", itemCode).
		Order("recorded_at DESC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// CreateCostHistory appends one archived cost price row.
func (r *Repository) CreateCostHistory(ctx context.Context, row *models.ItemCostHistory) error {
	return r.db.WithContext(ctx).Create(row).Error
}

// ListCostHistory returns the archive for one item, newest first.
func (r *Repository) ListCostHistory(ctx context.Context, itemCode string) ([]models.ItemCostHistory, error) {
	var rows []models.ItemCostHistory
	err := r.db.WithContext(ctx).
		Where("item_code = ?", itemCode).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
