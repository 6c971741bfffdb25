package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/qrmenu/models"
	"github.com/yeremiapane/qrmenu/testhelpers"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Café Ñandú & Co":    "cafe-nandu-co",
		"  Warung  Bu Tini ": "warung-bu-tini",
		"!!!":                "",
		"Bar 21":             "bar-21",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestCreateEstablishmentDerivesUniqueSlug(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	owner := testhelpers.SetupTestUser(t, db, "owner@example.com", models.RoleOwner, nil)
	subs := NewSubscriptionService(db, 0)
	require.NoError(t, db.Create(&models.Subscription{OwnerID: owner.ID, Plan: models.PlanPro, Status: models.SubscriptionActive}).Error)
	svc := NewEstablishmentService(db, newTestCache(), subs)
	ctx := context.Background()

	first, err := svc.Create(ctx, owner.ID, EstablishmentInput{Name: "Kopi Senja"})
	require.NoError(t, err)
	assert.Equal(t, "kopi-senja", first.Slug)
	assert.Equal(t, "IDR", first.Currency)
	assert.True(t, first.IsActive)

	second, err := svc.Create(ctx, owner.ID, EstablishmentInput{Name: "Kopi Senja", Currency: "usd"})
	require.NoError(t, err)
	assert.Equal(t, "kopi-senja-2", second.Slug)
	assert.Equal(t, "USD", second.Currency)

	_, err = svc.Create(ctx, owner.ID, EstablishmentInput{Name: "Other", Slug: "kopi-senja"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.Create(ctx, owner.ID, EstablishmentInput{Name: "Other", Slug: "Bad Slug!"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateEstablishmentRespectsPlanLimit(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	owner := testhelpers.SetupTestUser(t, db, "free@example.com", models.RoleOwner, nil)
	svc := NewEstablishmentService(db, newTestCache(), NewSubscriptionService(db, 0))
	ctx := context.Background()

	_, err := svc.Create(ctx, owner.ID, EstablishmentInput{Name: "Only One"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, owner.ID, EstablishmentInput{Name: "Second"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestListForUserAndGetBySlug(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	owner, est := testhelpers.SetupTestEstablishment(t, db, "list-cafe")
	_, other := testhelpers.SetupTestEstablishment(t, db, "other-cafe")
	staff := testhelpers.SetupTestUser(t, db, "staff@example.com", models.RoleStaff, &est.ID)
	svc := NewEstablishmentService(db, newTestCache(), NewSubscriptionService(db, 0))
	ctx := context.Background()

	owned, err := svc.ListForUser(ctx, owner)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, est.ID, owned[0].ID)

	worksAt, err := svc.ListForUser(ctx, staff)
	require.NoError(t, err)
	require.Len(t, worksAt, 1)
	assert.Equal(t, est.ID, worksAt[0].ID)

	found, err := svc.GetBySlug(ctx, "LIST-CAFE")
	require.NoError(t, err)
	assert.Equal(t, est.ID, found.ID)

	inactive := false
	_, err = svc.Update(ctx, other.ID, EstablishmentUpdate{IsActive: &inactive})
	require.NoError(t, err)
	_, err = svc.GetBySlug(ctx, "other-cafe")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateEstablishmentSlugConflict(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	_, a := testhelpers.SetupTestEstablishment(t, db, "alpha")
	testhelpers.SetupTestEstablishment(t, db, "beta")
	svc := NewEstablishmentService(db, newTestCache(), NewSubscriptionService(db, 0))
	ctx := context.Background()

	taken := "beta"
	_, err := svc.Update(ctx, a.ID, EstablishmentUpdate{Slug: &taken})
	assert.ErrorIs(t, err, ErrConflict)

	name := "Alpha Bistro"
	fresh := "alpha-bistro"
	updated, err := svc.Update(ctx, a.ID, EstablishmentUpdate{Name: &name, Slug: &fresh})
	require.NoError(t, err)
	assert.Equal(t, "Alpha Bistro", updated.Name)
	assert.Equal(t, "alpha-bistro", updated.Slug)
}

func TestDeleteEstablishmentRemovesEverything(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	_, est := testhelpers.SetupTestEstablishment(t, db, "gone")
	cat := testhelpers.SetupTestCategory(t, db, est.ID, "Drinks")
	product := testhelpers.SetupTestProduct(t, db, est.ID, &cat.ID, "Tea", "10000")
	table := testhelpers.SetupTestTable(t, db, est.ID, "1")
	staff := testhelpers.SetupTestUser(t, db, "gone-staff@example.com", models.RoleStaff, &est.ID)

	orders := NewOrderService(db, newTestCache(), nil)
	_, err := orders.Create(context.Background(), table.ID, CreateOrderInput{Items: []OrderItemInput{{ProductID: product.ID, Quantity: 1}}})
	require.NoError(t, err)

	svc := NewEstablishmentService(db, newTestCache(), NewSubscriptionService(db, 0))
	require.NoError(t, svc.Delete(context.Background(), est.ID))

	for _, model := range []interface{}{&models.Order{}, &models.OrderItem{}, &models.Table{}, &models.Product{}, &models.Category{}, &models.Establishment{}} {
		var count int64
		require.NoError(t, db.Model(model).Count(&count).Error)
		assert.Zero(t, count, "%T should be empty", model)
	}

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, staff.ID).Error)
	assert.Nil(t, reloaded.EstablishmentID)

	assert.ErrorIs(t, svc.Delete(context.Background(), est.ID), ErrNotFound)
}
