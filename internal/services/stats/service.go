package stats

import (
	"context"
	"sort"

	"github.com/anoixa/watchbox/database/models"
	"github.com/anoixa/watchbox/internal/apperr"
	"github.com/anoixa/watchbox/utils/format"
)

// RecordLister 读取用户记录列表
type RecordLister interface {
	ListRecords(ctx context.Context, owner string) ([]models.Watch, error)
}

// Filter 统计筛选条件，零值表示不筛选
type Filter struct {
	BrandID  string
	MinPrice float64
	MaxPrice float64
	// IncludeWishlist 总价值是否包含未入手的记录
	IncludeWishlist bool
	Currency        string
}

func (f Filter) match(w *models.Watch) bool {
	if f.BrandID != "" && w.BrandID != f.BrandID {
		return false
	}
	if f.MinPrice > 0 && w.Price < f.MinPrice {
		return false
	}
	if f.MaxPrice > 0 && w.Price > f.MaxPrice {
		return false
	}
	return true
}

// BrandSummary 单个品牌的统计
type BrandSummary struct {
	BrandID   string  `json:"brand_id"`
	BrandName string  `json:"brand_name"`
	Count     int     `json:"count"`
	Value     float64 `json:"value"`
}

// Summary 收藏统计
type Summary struct {
	Currency      string  `json:"currency"`
	TotalCount    int     `json:"total_count"`
	AcquiredCount int     `json:"acquired_count"`
	WishlistCount int     `json:"wishlist_count"`
	AcquiredValue float64 `json:"acquired_value"`
	WishlistValue float64 `json:"wishlist_value"`
	TotalValue    float64 `json:"total_value"`

	FormattedAcquired string `json:"formatted_acquired"`
	FormattedWishlist string `json:"formatted_wishlist"`
	FormattedTotal    string `json:"formatted_total"`

	Brands []BrandSummary `json:"brands"`
}

// Service 收藏统计
type Service struct {
	records RecordLister
}

func NewService(records RecordLister) *Service {
	return &Service{records: records}
}

// Summarize 统计用户收藏
func (s *Service) Summarize(ctx context.Context, owner string, filter Filter) (*Summary, error) {
	if _, err := format.ParseCurrency(filter.Currency); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "Invalid currency code", err)
	}
	if filter.MinPrice < 0 || filter.MaxPrice < 0 || (filter.MaxPrice > 0 && filter.MinPrice > filter.MaxPrice) {
		return nil, apperr.Validation("Invalid price range")
	}

	list, err := s.records.ListRecords(ctx, owner)
	if err != nil {
		return nil, err
	}
	return Compute(list, filter)
}

// Compute 对给定记录计算统计
func Compute(list []models.Watch, filter Filter) (*Summary, error) {
	unit, err := format.ParseCurrency(filter.Currency)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "Invalid currency code", err)
	}

	summary := &Summary{Currency: unit.String(), Brands: []BrandSummary{}}
	byBrand := make(map[string]*BrandSummary)

	for i := range list {
		w := &list[i]
		if !filter.match(w) {
			continue
		}

		summary.TotalCount++
		if w.Acquired {
			summary.AcquiredCount++
			summary.AcquiredValue += w.Price
		} else {
			summary.WishlistCount++
			summary.WishlistValue += w.Price
		}

		b, ok := byBrand[w.BrandID]
		if !ok {
			b = &BrandSummary{BrandID: w.BrandID, BrandName: w.Brand.Name}
			byBrand[w.BrandID] = b
		}
		b.Count++
		b.Value += w.Price
	}

	summary.TotalValue = summary.AcquiredValue
	if filter.IncludeWishlist {
		summary.TotalValue += summary.WishlistValue
	}

	for _, b := range byBrand {
		summary.Brands = append(summary.Brands, *b)
	}
	sort.Slice(summary.Brands, func(i, j int) bool {
		if summary.Brands[i].Value != summary.Brands[j].Value {
			return summary.Brands[i].Value > summary.Brands[j].Value
		}
		return summary.Brands[i].BrandName < summary.Brands[j].BrandName
	})

	code := summary.Currency
	summary.FormattedAcquired = format.MustFormatCurrency(summary.AcquiredValue, code)
	summary.FormattedWishlist = format.MustFormatCurrency(summary.WishlistValue, code)
	summary.FormattedTotal = format.MustFormatCurrency(summary.TotalValue, code)
	return summary, nil
}
