package records

import (
	"context"
	"math"
	"testing"

	"github.com/anoixa/watchbox/cache"
	"github.com/anoixa/watchbox/cache/memory"
	"github.com/anoixa/watchbox/database/models"
	"github.com/anoixa/watchbox/database/repo/brands"
	"github.com/anoixa/watchbox/database/repo/watches"
	"github.com/anoixa/watchbox/internal/apperr"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type prefixResolver struct{}

func (prefixResolver) ResolvePublicURL(key string) string {
	return "http://img.test/watch-images/" + key
}

type fixture struct {
	svc   *Service
	cache cache.Provider
	db    *gorm.DB
}

func setup(t *testing.T, ownerScope bool) *fixture {
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Brand{}, &models.Watch{}))

	mem, err := memory.NewMemory(memory.Config{NumCounters: 1000, MaxCost: 1 << 20, BufferItems: 64})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mem.Close() })

	svc := NewService(watches.NewRepository(db), brands.NewRepository(db), mem, prefixResolver{}, Options{OwnerScope: ownerScope})
	return &fixture{svc: svc, cache: mem, db: db}
}

func ptr[T any](v T) *T { return &v }

func ids(list []models.Watch) []string {
	out := make([]string, 0, len(list))
	for _, w := range list {
		out = append(out, w.ID)
	}
	return out
}

func TestService_RequiresOwner(t *testing.T) {
	f := setup(t, false)
	ctx := context.Background()

	_, err := f.svc.ListRecords(ctx, "")
	assert.ErrorIs(t, err, apperr.ErrAuth)

	_, err = f.svc.CreateRecord(ctx, "", RecordFields{BrandID: "x"})
	assert.ErrorIs(t, err, apperr.ErrAuth)

	_, err = f.svc.CreateRecord(ctx, "u1", RecordFields{Line: "Sub"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestService_RejectsInvalidPrice(t *testing.T) {
	f := setup(t, false)
	ctx := context.Background()

	brand, err := f.svc.CreateBrand(ctx, "u1", "Rolex")
	require.NoError(t, err)

	for _, price := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := f.svc.CreateRecord(ctx, "u1", RecordFields{BrandID: brand.ID, Line: "Explorer", Price: price})
		assert.ErrorIs(t, err, apperr.ErrValidation, "price %v", price)
	}

	w, err := f.svc.CreateRecord(ctx, "u1", RecordFields{BrandID: brand.ID, Line: "Explorer", Price: 7000})
	require.NoError(t, err)

	_, err = f.svc.UpdateRecord(ctx, "u1", w.ID, WatchPatch{Price: ptr(-5.0)})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	stored, err := f.svc.GetRecord(ctx, "u1", w.ID)
	require.NoError(t, err)
	assert.Equal(t, 7000.0, stored.Price)

	list, err := f.svc.ListRecords(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestService_CreateThenListOrdering(t *testing.T) {
	f := setup(t, false)
	ctx := context.Background()

	brand, err := f.svc.CreateBrand(ctx, "u1", "Rolex")
	require.NoError(t, err)

	// 先读一次，让列表进入缓存
	list, err := f.svc.ListRecords(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)

	cheap, err := f.svc.CreateRecord(ctx, "u1", RecordFields{BrandID: brand.ID, Line: "Explorer", Price: 100})
	require.NoError(t, err)
	dear, err := f.svc.CreateRecord(ctx, "u1", RecordFields{BrandID: brand.ID, Line: "Daytona", Price: 500})
	require.NoError(t, err)
	owned, err := f.svc.CreateRecord(ctx, "u1", RecordFields{BrandID: brand.ID, Line: "Datejust", Price: 900, Acquired: true})
	require.NoError(t, err)

	list, err = f.svc.ListRecords(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{dear.ID, cheap.ID, owned.ID}, ids(list))
	assert.Equal(t, "Rolex", list[0].Brand.Name)

	// 缓存结果与数据库一致
	fresh, err := f.svc.Refresh(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, ids(fresh), ids(list))
}

func TestService_ToggleResorts(t *testing.T) {
	f := setup(t, false)
	ctx := context.Background()

	brand, err := f.svc.CreateBrand(ctx, "u1", "Omega")
	require.NoError(t, err)
	a, err := f.svc.CreateRecord(ctx, "u1", RecordFields{BrandID: brand.ID, Line: "Speedmaster", Price: 300})
	require.NoError(t, err)
	b, err := f.svc.CreateRecord(ctx, "u1", RecordFields{BrandID: brand.ID, Line: "Seamaster", Price: 200})
	require.NoError(t, err)

	_, err = f.svc.ListRecords(ctx, "u1")
	require.NoError(t, err)

	toggled, err := f.svc.ToggleAcquired(ctx, "u1", a.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Acquired)

	list, err := f.svc.ListRecords(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID, a.ID}, ids(list))

	toggled, err = f.svc.ToggleAcquired(ctx, "u1", a.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Acquired)

	list, err = f.svc.ListRecords(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID}, ids(list))
}

func TestService_OwnerScoping(t *testing.T) {
	f := setup(t, false)
	ctx := context.Background()

	brand, err := f.svc.CreateBrand(ctx, "u1", "Tudor")
	require.NoError(t, err)
	w, err := f.svc.CreateRecord(ctx, "u1", RecordFields{BrandID: brand.ID, Line: "Black Bay", Price: 50})
	require.NoError(t, err)

	_, err = f.svc.UpdateRecord(ctx, "u2", w.ID, WatchPatch{Price: ptr(10.0)})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	err = f.svc.DeleteRecord(ctx, "u2", w.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	list, err := f.svc.ListRecords(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, f.svc.DeleteRecord(ctx, "u1", w.ID))
	list, err = f.svc.ListRecords(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)

	err = f.svc.DeleteRecord(ctx, "u1", w.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestService_ImagePatchTriState(t *testing.T) {
	f := setup(t, false)
	ctx := context.Background()

	brand, err := f.svc.CreateBrand(ctx, "u1", "Seiko")
	require.NoError(t, err)
	w, err := f.svc.CreateRecord(ctx, "u1", RecordFields{BrandID: brand.ID, Line: "SKX", Price: 20})
	require.NoError(t, err)
	assert.Empty(t, w.ImageURL)

	key := "u1/" + w.ID + "/watch_" + w.ID + "_1.jpg"
	w, err = f.svc.UpdateRecord(ctx, "u1", w.ID, WatchPatch{ImageKey: ptr(key)})
	require.NoError(t, err)
	assert.Equal(t, "http://img.test/watch-images/"+key, w.ImageURL)

	// 不含图片字段的补丁不改变图片
	w, err = f.svc.UpdateRecord(ctx, "u1", w.ID, WatchPatch{Line: ptr("  SKX007 ")})
	require.NoError(t, err)
	assert.Equal(t, "SKX007", w.Line)
	assert.True(t, w.HasImage())

	w, err = f.svc.UpdateRecord(ctx, "u1", w.ID, WatchPatch{ClearImage: true})
	require.NoError(t, err)
	assert.False(t, w.HasImage())
	assert.Empty(t, w.ImageURL)
}

func TestService_Brands(t *testing.T) {
	f := setup(t, false)
	ctx := context.Background()

	_, err := f.svc.ListBrands(ctx, "u1")
	require.NoError(t, err)

	zenith, err := f.svc.CreateBrand(ctx, "u1", "  Zenith ")
	require.NoError(t, err)
	assert.Equal(t, "Zenith", zenith.Name)

	_, err = f.svc.CreateBrand(ctx, "u2", "zenith")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = f.svc.CreateBrand(ctx, "u1", "   ")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	found, err := f.svc.FindBrandByName(ctx, "u2", "ZENITH")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, zenith.ID, found.ID)

	missing, err := f.svc.FindBrandByName(ctx, "u1", "Breguet")
	require.NoError(t, err)
	assert.Nil(t, missing)

	grand, err := f.svc.CreateBrand(ctx, "u1", "Grand Seiko")
	require.NoError(t, err)

	list, err := f.svc.ListBrands(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Grand Seiko", list[0].Name)
	assert.Equal(t, "Zenith", list[1].Name)

	_, err = f.svc.UpdateBrand(ctx, "u1", grand.ID, "ZENITH")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = f.svc.UpdateBrand(ctx, "u1", "nope", "Other")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	w, err := f.svc.CreateRecord(ctx, "u1", RecordFields{BrandID: zenith.ID, Line: "El Primero", Price: 80})
	require.NoError(t, err)
	_, err = f.svc.ListRecords(ctx, "u1")
	require.NoError(t, err)

	renamed, err := f.svc.UpdateBrand(ctx, "u1", zenith.ID, "Zenith SA")
	require.NoError(t, err)
	assert.Equal(t, "Zenith SA", renamed.Name)

	records, err := f.svc.ListRecords(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, w.ID, records[0].ID)
	assert.Equal(t, "Zenith SA", records[0].Brand.Name)
}

func TestService_OwnerBrandScope(t *testing.T) {
	f := setup(t, true)
	ctx := context.Background()

	mine, err := f.svc.CreateBrand(ctx, "u1", "Nomos")
	require.NoError(t, err)
	_, err = f.svc.CreateBrand(ctx, "u2", "nomos")
	require.NoError(t, err)

	list, err := f.svc.ListBrands(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.NotEqual(t, mine.ID, list[0].ID)

	// 其它用户的品牌不可引用
	_, err = f.svc.CreateRecord(ctx, "u2", RecordFields{BrandID: mine.ID, Line: "Tangente", Price: 10})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.ListBrands(ctx, "")
	assert.ErrorIs(t, err, apperr.ErrAuth)
}

func TestService_InvalidateReloads(t *testing.T) {
	f := setup(t, false)
	ctx := context.Background()

	brand, err := f.svc.CreateBrand(ctx, "u1", "Cartier")
	require.NoError(t, err)
	_, err = f.svc.ListRecords(ctx, "u1")
	require.NoError(t, err)

	// 绕过服务直接写库，缓存不知情
	require.NoError(t, f.db.Create(&models.Watch{OwnerID: "u1", BrandID: brand.ID, Line: "Tank", Price: 30}).Error)

	list, err := f.svc.ListRecords(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, f.svc.Invalidate(ctx, "u1"))
	list, err = f.svc.ListRecords(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
