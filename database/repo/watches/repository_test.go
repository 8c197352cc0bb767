package watches

import (
	"context"
	"testing"

	"github.com/anoixa/watchbox/database/models"
	"github.com/anoixa/watchbox/internal/apperr"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB 创建测试数据库，每个测试独立的内存库
func setupTestDB(t *testing.T) *gorm.DB {
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.User{}, &models.Brand{}, &models.Watch{})
	require.NoError(t, err)

	return db
}

func seedBrand(t *testing.T, db *gorm.DB, name string) *models.Brand {
	brand := &models.Brand{Name: name}
	require.NoError(t, db.Create(brand).Error)
	return brand
}

func TestRepository_CreateAndList(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	rolex := seedBrand(t, db, "Rolex")
	omega := seedBrand(t, db, "Omega")

	_, err := repo.Create(ctx, &models.Watch{OwnerID: "owner-a", BrandID: rolex.ID, Line: "Submariner", Price: 9000})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &models.Watch{OwnerID: "owner-a", BrandID: omega.ID, Line: "Speedmaster", Price: 6000, Acquired: true})
	require.NoError(t, err)
	created, err := repo.Create(ctx, &models.Watch{OwnerID: "owner-a", BrandID: omega.ID, Line: "Seamaster", Price: 12000})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &models.Watch{OwnerID: "owner-b", BrandID: rolex.ID, Line: "Daytona", Price: 30000})
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Omega", created.Brand.Name)
	assert.False(t, created.Acquired)
	assert.Nil(t, created.ImageKey)

	list, err := repo.ListByOwner(ctx, "owner-a")
	require.NoError(t, err)
	require.Len(t, list, 3)

	// 未入手在前，价格降序
	assert.Equal(t, "Seamaster", list[0].Line)
	assert.Equal(t, "Submariner", list[1].Line)
	assert.Equal(t, "Speedmaster", list[2].Line)
	assert.Equal(t, "Rolex", list[1].Brand.Name)

	empty, err := repo.ListByOwner(ctx, "owner-c")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRepository_UpdateScopedToOwner(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	brand := seedBrand(t, db, "Tudor")

	w, err := repo.Create(ctx, &models.Watch{OwnerID: "owner-a", BrandID: brand.ID, Line: "Black Bay", Price: 3500})
	require.NoError(t, err)

	updated, err := repo.Update(ctx, "owner-a", w.ID, map[string]interface{}{"price": 3900.5, "reference": "M79230"})
	require.NoError(t, err)
	assert.Equal(t, 3900.5, updated.Price)
	assert.Equal(t, "M79230", updated.Reference)
	assert.Equal(t, "Black Bay", updated.Line)

	_, err = repo.Update(ctx, "owner-b", w.ID, map[string]interface{}{"price": 1.0})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = repo.Update(ctx, "owner-a", "missing", map[string]interface{}{"price": 1.0})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	same, err := repo.Update(ctx, "owner-a", w.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 3900.5, same.Price)
}

func TestRepository_ImageKey(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	brand := seedBrand(t, db, "Seiko")

	w, err := repo.Create(ctx, &models.Watch{OwnerID: "owner-a", BrandID: brand.ID, Line: "SKX007", Price: 250})
	require.NoError(t, err)

	key := "owner-a/" + w.ID + "/watch_" + w.ID + "_1.jpg"
	updated, err := repo.Update(ctx, "owner-a", w.ID, map[string]interface{}{"image_key": key})
	require.NoError(t, err)
	require.NotNil(t, updated.ImageKey)
	assert.Equal(t, key, *updated.ImageKey)

	withImages, err := repo.ListWithImages(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, withImages, 1)

	cleared, err := repo.ClearImageKeyIfMatch(ctx, w.ID, "other-key")
	require.NoError(t, err)
	assert.False(t, cleared)

	cleared, err = repo.ClearImageKeyIfMatch(ctx, w.ID, key)
	require.NoError(t, err)
	assert.True(t, cleared)

	got, err := repo.GetByID(ctx, "owner-a", w.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ImageKey)
}

func TestRepository_ToggleAcquired(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	brand := seedBrand(t, db, "Cartier")

	w, err := repo.Create(ctx, &models.Watch{OwnerID: "owner-a", BrandID: brand.ID, Line: "Tank", Price: 3000})
	require.NoError(t, err)

	toggled, err := repo.ToggleAcquired(ctx, "owner-a", w.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Acquired)

	toggled, err = repo.ToggleAcquired(ctx, "owner-a", w.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Acquired)

	_, err = repo.ToggleAcquired(ctx, "owner-b", w.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRepository_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	brand := seedBrand(t, db, "Grand Seiko")

	w, err := repo.Create(ctx, &models.Watch{OwnerID: "owner-a", BrandID: brand.ID, Line: "SBGA211", Price: 5800})
	require.NoError(t, err)

	// 其它用户无法删除
	err = repo.Delete(ctx, "owner-b", w.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	count, err := repo.CountByOwner(ctx, "owner-a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, repo.Delete(ctx, "owner-a", w.ID))

	err = repo.Delete(ctx, "owner-a", w.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = repo.GetByID(ctx, "owner-a", w.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
