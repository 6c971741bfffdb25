package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/qrmenu/caching"
	"github.com/yeremiapane/qrmenu/models"
	"github.com/yeremiapane/qrmenu/testhelpers"
)

func TestCategoryCRUD(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	_, est := testhelpers.SetupTestEstablishment(t, db, "cat-cafe")
	svc := NewCategoryService(db, newTestCache())
	ctx := context.Background()

	two := 2
	drinks, err := svc.Create(ctx, est.ID, CategoryInput{Name: "Drinks", SortOrder: &two})
	require.NoError(t, err)
	_, err = svc.Create(ctx, est.ID, CategoryInput{Name: "Food"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, est.ID, CategoryInput{Name: "Drinks"})
	assert.ErrorIs(t, err, ErrConflict)
	_, err = svc.Create(ctx, est.ID, CategoryInput{Name: "  "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	list, err := svc.List(ctx, est.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Food", list[0].Name)
	assert.Equal(t, "Drinks", list[1].Name)

	renamed, err := svc.Update(ctx, est.ID, drinks.ID, CategoryInput{Name: "Beverages"})
	require.NoError(t, err)
	assert.Equal(t, "Beverages", renamed.Name)
	assert.Equal(t, 2, renamed.SortOrder)

	_, otherEst := testhelpers.SetupTestEstablishment(t, db, "cat-other")
	_, err = svc.Update(ctx, otherEst.ID, drinks.ID, CategoryInput{Name: "Stolen"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteCategoryUncategorisesProducts(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	_, est := testhelpers.SetupTestEstablishment(t, db, "uncat")
	cat := testhelpers.SetupTestCategory(t, db, est.ID, "Snacks")
	product := testhelpers.SetupTestProduct(t, db, est.ID, &cat.ID, "Chips", "5000")
	svc := NewCategoryService(db, newTestCache())

	require.NoError(t, svc.Delete(context.Background(), est.ID, cat.ID))

	var reloaded models.Product
	require.NoError(t, db.First(&reloaded, product.ID).Error)
	assert.Nil(t, reloaded.CategoryID)

	assert.ErrorIs(t, svc.Delete(context.Background(), est.ID, cat.ID), ErrNotFound)
}

func TestProductLifecycle(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	_, est := testhelpers.SetupTestEstablishment(t, db, "prod-cafe")
	_, other := testhelpers.SetupTestEstablishment(t, db, "prod-other")
	cat := testhelpers.SetupTestCategory(t, db, est.ID, "Mains")
	foreignCat := testhelpers.SetupTestCategory(t, db, other.ID, "Mains")
	svc := NewProductService(db, newTestCache(), nil)
	ctx := context.Background()

	price := decimal.RequireFromString("25000.555")
	product, err := svc.Create(ctx, est.ID, ProductInput{CategoryID: &cat.ID, Name: "Nasi Goreng", Price: &price})
	require.NoError(t, err)
	assert.True(t, product.IsAvailable)
	assert.Equal(t, "25000.56", product.Price.StringFixed(2))
	require.NotNil(t, product.Category)
	assert.Equal(t, "Mains", product.Category.Name)

	_, err = svc.Create(ctx, est.ID, ProductInput{CategoryID: &foreignCat.ID, Name: "X", Price: &price})
	assert.ErrorIs(t, err, ErrInvalidInput)

	negative := decimal.NewFromInt(-1)
	_, err = svc.Create(ctx, est.ID, ProductInput{Name: "X", Price: &negative})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Create(ctx, est.ID, ProductInput{Name: "X"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	newPrice := decimal.NewFromInt(30000)
	updated, err := svc.Update(ctx, est.ID, product.ID, ProductInput{Name: "Nasi Goreng Spesial", Price: &newPrice})
	require.NoError(t, err)
	assert.Equal(t, "Nasi Goreng Spesial", updated.Name)
	assert.True(t, updated.Price.Equal(newPrice))

	off, err := svc.SetAvailability(ctx, est.ID, product.ID, false)
	require.NoError(t, err)
	assert.False(t, off.IsAvailable)

	_, err = svc.SetAvailability(ctx, other.ID, product.ID, true)
	assert.ErrorIs(t, err, ErrNotFound)

	available := true
	list, err := svc.List(ctx, est.ID, ProductFilter{Available: &available})
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = svc.List(ctx, est.ID, ProductFilter{CategoryID: &cat.ID})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.Delete(ctx, est.ID, product.ID))
	_, err = svc.Get(ctx, est.ID, product.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPresignImageUpload(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	_, est := testhelpers.SetupTestEstablishment(t, db, "img-cafe")
	product := testhelpers.SetupTestProduct(t, db, est.ID, nil, "Es Teh", "8000")
	ctx := context.Background()

	_, err := NewProductService(db, newTestCache(), nil).PresignImageUpload(ctx, est.ID, product.ID, "a.png")
	assert.ErrorIs(t, err, ErrUnavailable)

	storage := &fakeStorage{}
	svc := NewProductService(db, newTestCache(), storage)

	_, err = svc.PresignImageUpload(ctx, est.ID, product.ID, "script.exe")
	assert.ErrorIs(t, err, ErrInvalidInput)

	first, err := svc.PresignImageUpload(ctx, est.ID, product.ID, "photo.JPG")
	require.NoError(t, err)
	assert.Contains(t, first.UploadURL, "establishments/")
	assert.Contains(t, first.ImageURL, ".jpg")

	reloaded, err := svc.Get(ctx, est.ID, product.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ImageURL, reloaded.ImageURL)
	firstKey := reloaded.ImageKey

	_, err = svc.PresignImageUpload(ctx, est.ID, product.ID, "better.webp")
	require.NoError(t, err)
	assert.Equal(t, []string{firstKey}, storage.removed)
}

func TestPublicMenuIsCachedAndInvalidated(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	_, est := testhelpers.SetupTestEstablishment(t, db, "menu-cafe")
	cat := testhelpers.SetupTestCategory(t, db, est.ID, "Coffee")
	latte := testhelpers.SetupTestProduct(t, db, est.ID, &cat.ID, "Latte", "30000")
	testhelpers.SetupTestProduct(t, db, est.ID, &cat.ID, "Mocha", "32000")

	cache := newTestCache()
	subs := NewSubscriptionService(db, 0)
	menus := NewMenuService(db, cache, NewEstablishmentService(db, cache, subs))
	products := NewProductService(db, cache, nil)
	ctx := context.Background()

	menu, err := menus.PublicMenu(ctx, "menu-cafe")
	require.NoError(t, err)
	assert.Len(t, menu.Categories, 1)
	assert.Len(t, menu.Products, 2)

	var cached models.PublicMenu
	hit, err := cache.GetJSON(ctx, caching.MenuKey(est.ID), &cached)
	require.NoError(t, err)
	assert.True(t, hit)

	_, err = products.SetAvailability(ctx, est.ID, latte.ID, false)
	require.NoError(t, err)

	menu, err = menus.PublicMenu(ctx, "menu-cafe")
	require.NoError(t, err)
	require.Len(t, menu.Products, 1)
	assert.Equal(t, "Mocha", menu.Products[0].Name)

	_, err = menus.PublicMenu(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEstablishmentUpdateRefreshesPublicMenu(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	_, est := testhelpers.SetupTestEstablishment(t, db, "renamed-cafe")
	testhelpers.SetupTestProduct(t, db, est.ID, nil, "Bakso", "20000")

	cache := newTestCache()
	establishments := NewEstablishmentService(db, cache, NewSubscriptionService(db, 0))
	menus := NewMenuService(db, cache, establishments)
	ctx := context.Background()

	menu, err := menus.PublicMenu(ctx, "renamed-cafe")
	require.NoError(t, err)
	assert.Equal(t, "IDR", menu.Establishment.Currency)

	name, currency := "Kedai Baru", "usd"
	_, err = establishments.Update(ctx, est.ID, EstablishmentUpdate{Name: &name, Currency: &currency})
	require.NoError(t, err)

	menu, err = menus.PublicMenu(ctx, "renamed-cafe")
	require.NoError(t, err)
	assert.Equal(t, "Kedai Baru", menu.Establishment.Name)
	assert.Equal(t, "USD", menu.Establishment.Currency)

	require.NoError(t, establishments.Delete(ctx, est.ID))
	var cached models.PublicMenu
	hit, err := cache.GetJSON(ctx, caching.MenuKey(est.ID), &cached)
	require.NoError(t, err)
	assert.False(t, hit)
}
