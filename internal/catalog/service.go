package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/orderlift/orderlift-backend/pkg/db"
	"github.com/orderlift/orderlift-backend/pkg/db/models"
	pkgerrors "github.com/orderlift/orderlift-backend/pkg/errors"
	"github.com/orderlift/orderlift-backend/pkg/logger"
)

// PlaceholderItemCode backs grouped quotation rows that aggregate many
// sheet lines into one.
const PlaceholderItemCode = "GROUPED-POSITION"

// Store is the persistence surface the service needs; *Repository
// satisfies it.
type Store interface {
	CreateItem(context.Context, *models.Item) error
	SaveItem(context.Context, *models.Item) error
	GetItemByCode(context.Context, string) (*models.Item, error)
	ItemsByCode(context.Context, []string) ([]models.Item, error)
	ListItems(context.Context) ([]models.Item, error)
	CreatePriceListEntry(context.Context, *models.PriceListEntry) error
	RatesAsOf(context.Context, string, []string, time.Time) ([]models.PriceListEntry, error)
	CreateMarketPriceEntry(context.Context, *models.MarketPriceEntry) error
	ListMarketPriceEntries(context.Context, string) ([]models.MarketPriceEntry, error)
	CreateCostHistory(context.Context, *models.ItemCostHistory) error
	ListCostHistory(context.Context, string) ([]models.ItemCostHistory, error)
}

// PriceCache fronts rate lookups; nil disables caching.
type PriceCache interface {
	Get(context.Context, string) (string, error)
	Set(context.Context, string, any, time.Duration) error
	PriceKey(priceList, itemCode string) string
}

// Service exposes catalog operations for pricing and logistics callers.
type Service interface {
	CreateItem(ctx context.Context, item *models.Item) (*models.Item, error)
	GetItem(ctx context.Context, code string) (*models.Item, error)
	ListItems(ctx context.Context) ([]models.Item, error)
	ItemsByCode(ctx context.Context, codes []string) (map[string]models.Item, error)
	EnsurePlaceholderItem(ctx context.Context) (*models.Item, error)

	AddPriceListEntry(ctx context.Context, entry *models.PriceListEntry) error
	LatestRates(ctx context.Context, priceList string, codes []string, asOf time.Time) (map[string]decimal.Decimal, error)

	RecordMarketPrice(ctx context.Context, itemCode, source string, marketPrice decimal.Decimal, recordedAt time.Time) (*models.MarketPriceEntry, error)
	ListMarketPrices(ctx context.Context, itemCode string) ([]models.MarketPriceEntry, error)

	UpdateItemCost(ctx context.Context, code string, newCost decimal.Decimal, actor, notes string) (*models.Item, error)
	ListCostHistory(ctx context.Context, itemCode string) ([]models.ItemCostHistory, error)
}

type service struct {
	repo     Store
	cache    PriceCache
	cacheTTL time.Duration
	logg     *logger.Logger
}

// NewService builds the catalog service. cache may be nil.
func NewService(repo Store, cache PriceCache, cacheTTL time.Duration, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "catalog repository is required")
	}
	return &service{repo: repo, cache: cache, cacheTTL: cacheTTL, logg: logg}, nil
}

func (s *service) CreateItem(ctx context.Context, item *models.Item) (*models.Item, error) {
	item.Code = strings.TrimSpace(item.Code)
	if item.Code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item code is required")
	}
	if strings.TrimSpace(item.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name is required")
	}
	if item.UnitWeightKg < 0 || item.UnitVolumeM3 < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item metrics cannot be negative")
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Newf(pkgerrors.CodeConflict, "item %q already exists", item.Code)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating item")
	}
	return item, nil
}

func (s *service) GetItem(ctx context.Context, code string) (*models.Item, error) {
	item, err := s.repo.GetItemByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "item %s not found", code)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading item")
	}
	return item, nil
}

func (s *service) ListItems(ctx context.Context) ([]models.Item, error) {
	items, err := s.repo.ListItems(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing items")
	}
	return items, nil
}

func (s *service) ItemsByCode(ctx context.Context, codes []string) (map[string]models.Item, error) {
	distinct := distinctCodes(codes)
	items, err := s.repo.ItemsByCode(ctx, distinct)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading items")
	}
	out := make(map[string]models.Item, len(items))
	for _, item := range items {
		out[item.Code] = item
	}
	return out, nil
}

func (s *service) EnsurePlaceholderItem(ctx context.Context) (*models.Item, error) {
	item, err := s.repo.GetItemByCode(ctx, PlaceholderItemCode)
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading placeholder item")
	}
	placeholder := &models.Item{
		Code:          PlaceholderItemCode,
		Name:          "Grouped position",
		IsPlaceholder: true,
		IsActive:      true,
	}
	if err := s.repo.CreateItem(ctx, placeholder); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating placeholder item")
	}
	return placeholder, nil
}

func (s *service) AddPriceListEntry(ctx context.Context, entry *models.PriceListEntry) error {
	entry.PriceList = strings.TrimSpace(entry.PriceList)
	entry.ItemCode = strings.TrimSpace(entry.ItemCode)
	if entry.PriceList == "" || entry.ItemCode == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "price list and item code are required")
	}
	if entry.Rate.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "rate cannot be negative")
	}
	if entry.ValidFrom.IsZero() {
		entry.ValidFrom = time.Now().UTC()
	}
	if err := s.repo.CreatePriceListEntry(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating price list entry")
	}
	// Fresh rates supersede whatever the cache holds for this pair.
	if s.cache != nil {
		key := s.cache.PriceKey(entry.PriceList, entry.ItemCode)
		if err := s.cache.Set(ctx, key, entry.Rate.String(), s.cacheTTL); err != nil && s.logg != nil {
			s.logg.Warn(ctx, "price cache refresh failed: "+err.Error())
		}
	}
	return nil
}

// LatestRates resolves the newest valid rate per item code. Cached pairs are
// served from redis; the remainder comes from one query per price list.
func (s *service) LatestRates(ctx context.Context, priceList string, codes []string, asOf time.Time) (map[string]decimal.Decimal, error) {
	distinct := distinctCodes(codes)
	out := make(map[string]decimal.Decimal, len(distinct))

	missing := distinct
	if s.cache != nil {
		missing = missing[:0:0]
		for _, code := range distinct {
			raw, err := s.cache.Get(ctx, s.cache.PriceKey(priceList, code))
			if err != nil || raw == "" {
				missing = append(missing, code)
				continue
			}
			rate, err := decimal.NewFromString(raw)
			if err != nil {
				missing = append(missing, code)
				continue
			}
			out[code] = rate
		}
	}

	if len(missing) > 0 {
		entries, err := s.repo.RatesAsOf(ctx, priceList, missing, asOf)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("loading rates for %s", priceList))
		}
		for _, entry := range entries {
			if _, seen := out[entry.ItemCode]; seen {
				continue
			}
			out[entry.ItemCode] = entry.Rate
			if s.cache != nil {
				key := s.cache.PriceKey(priceList, entry.ItemCode)
				_ = s.cache.Set(ctx, key, entry.Rate.String(), s.cacheTTL)
			}
		}
	}
	return out, nil
}

func (s *service) RecordMarketPrice(ctx context.Context, itemCode, source string, marketPrice decimal.Decimal, recordedAt time.Time) (*models.MarketPriceEntry, error) {
	item, err := s.GetItem(ctx, itemCode)
	if err != nil {
		return nil, err
	}
	if marketPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "market price cannot be negative")
	}
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	diff := marketPrice.Sub(item.CurrentCostPrice)
	diffPercent := decimal.Zero
	if item.CurrentCostPrice.IsPositive() {
		diffPercent = diff.Div(item.CurrentCostPrice).Mul(decimal.NewFromInt(100))
	}

	entry := &models.MarketPriceEntry{
		ItemCode:          item.Code,
		Source:            strings.TrimSpace(source),
		MarketPrice:       marketPrice,
		OurCurrentPrice:   item.CurrentCostPrice,
		Difference:        diff,
		DifferencePercent: diffPercent,
		RecordedAt:        recordedAt,
	}
	if err := s.repo.CreateMarketPriceEntry(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating market price entry")
	}
	return entry, nil
}

func (s *service) ListMarketPrices(ctx context.Context, itemCode string) ([]models.MarketPriceEntry, error) {
	entries, err := s.repo.ListMarketPriceEntries(ctx, strings.TrimSpace(itemCode))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing market prices")
	}
	return entries, nil
}

// UpdateItemCost archives the superseded cost price before writing the new
// one. No-op when the price is unchanged.
func (s *service) UpdateItemCost(ctx context.Context, code string, newCost decimal.Decimal, actor, notes string) (*models.Item, error) {
	if newCost.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cost price cannot be negative")
	}
	item, err := s.GetItem(ctx, code)
	if err != nil {
		return nil, err
	}
	if item.CurrentCostPrice.Equal(newCost) {
		return item, nil
	}

	archive := &models.ItemCostHistory{
		ItemCode:  item.Code,
		CostPrice: item.CurrentCostPrice,
		Actor:     strings.TrimSpace(actor),
		Notes:     strings.TrimSpace(notes),
	}
	if err := s.repo.CreateCostHistory(ctx, archive); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "archiving cost price")
	}

	item.CurrentCostPrice = newCost
	if err := s.repo.SaveItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating item cost")
	}
	return item, nil
}

func (s *service) ListCostHistory(ctx context.Context, itemCode string) ([]models.ItemCostHistory, error) {
	rows, err := s.repo.ListCostHistory(ctx, strings.TrimSpace(itemCode))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing cost history")
	}
	return rows, nil
}

func distinctCodes(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}
