package pricing

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orderlift/orderlift-backend/pkg/db/models"
)

// Repository wires pricing sheet, override and quotation persistence.
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

// Transaction runs fn inside one DB transaction.
func (r *Repository) Transaction(ctx context.Context, fn func(*Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

// CreateSheet persists a new sheet together with its lines.
func (r *Repository) CreateSheet(ctx context.Context, sheet *models.PricingSheet) error {
	return r.db.WithContext(ctx).Create(sheet).Error
}

// GetSheet loads the sheet with lines ordered by idx.
func (r *Repository) GetSheet(ctx context.Context, id uuid.UUID) (*models.PricingSheet, error) {
	var sheet models.PricingSheet
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("idx") }).
		First(&sheet, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &sheet, nil
}

// ListSheets returns sheet headers without lines, newest first.
func (r *Repository) ListSheets(ctx context.Context) ([]models.PricingSheet, error) {
	var sheets []models.PricingSheet
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&sheets).Error; err != nil {
		return nil, err
	}
	return sheets, nil
}

// SaveSheet persists the recomputed sheet header and all of its lines.
func (r *Repository) SaveSheet(ctx context.Context, sheet *models.PricingSheet) error {
	if err := r.db.WithContext(ctx).Save(sheet).Error; err != nil {
		return err
	}
	for i := range sheet.Lines {
		sheet.Lines[i].SheetID = sheet.ID
		if err := r.db.WithContext(ctx).Save(&sheet.Lines[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// ReplaceLines swaps the sheet's line set.
func (r *Repository) ReplaceLines(ctx context.Context, sheetID uuid.UUID, lines []models.PricingLine) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("sheet_id = ?", sheetID).Delete(&models.PricingLine{}).Error; err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	for i := range lines {
		lines[i].SheetID = sheetID
	}
	return tx.Create(&lines).Error
}

// DeleteSheet removes the sheet; lines cascade.
func (r *Repository) DeleteSheet(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.PricingSheet{}, "id = ?", id).Error
}

// ListOverrides returns every override row for the sheet, stale included.
func (r *Repository) ListOverrides(ctx context.Context, sheetID uuid.UUID) ([]models.ExpenseOverride, error) {
	var overrides []models.ExpenseOverride
	if err := r.db.WithContext(ctx).Where("sheet_id = ?", sheetID).Find(&overrides).Error; err != nil {
		return nil, err
	}
	return overrides, nil
}

// SaveOverride inserts or updates one override row.
func (r *Repository) SaveOverride(ctx context.Context, override *models.ExpenseOverride) error {
	return r.db.WithContext(ctx).Save(override).Error
}

// MarkOverridesStale flips the stale flag on the given rows. Overrides are
// never hard-deleted.
func (r *Repository) MarkOverridesStale(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.ExpenseOverride{}).
		Where("id IN ?", ids).
		Update("is_stale", true).Error
}

// CreateQuotation persists the export together with its lines.
func (r *Repository) CreateQuotation(ctx context.Context, quotation *models.Quotation) error {
	return r.db.WithContext(ctx).Create(quotation).Error
}

// GetQuotation loads the quotation with lines ordered by idx.
func (r *Repository) GetQuotation(ctx context.Context, id uuid.UUID) (*models.Quotation, error) {
	var quotation models.Quotation
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("idx") }).
		First(&quotation, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &quotation, nil
}

// ListQuotationsBySheet returns exports for one sheet, newest first.
func (r *Repository) ListQuotationsBySheet(ctx context.Context, sheetID uuid.UUID) ([]models.Quotation, error) {
	var quotations []models.Quotation
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("idx") }).
		Where("sheet_id = ?", sheetID).
		Order("created_at DESC").
		Find(&quotations).Error
	if err != nil {
		return nil, err
	}
	return quotations, nil
}
