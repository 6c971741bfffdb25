package testhelpers

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yeremiapane/qrmenu/database"
	"github.com/yeremiapane/qrmenu/models"
	"github.com/yeremiapane/qrmenu/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestPassword is the plain password of every user created here.
const TestPassword = "secret123"

// SetupTestDB opens a private in-memory SQLite database with the full schema.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	utils.InitLogger()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// SetupTestUser creates a confirmed user with TestPassword.
func SetupTestUser(t *testing.T, db *gorm.DB, email, role string, establishmentID *uint) *models.User {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	now := time.Now()
	user := &models.User{
		Name:             "Test " + role,
		Email:            email,
		Password:         string(hashed),
		Role:             role,
		EstablishmentID:  establishmentID,
		EmailConfirmedAt: &now,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

// SetupTestEstablishment creates an owner and one establishment for them.
func SetupTestEstablishment(t *testing.T, db *gorm.DB, slug string) (*models.User, *models.Establishment) {
	t.Helper()

	owner := SetupTestUser(t, db, slug+"-owner@example.com", models.RoleOwner, nil)
	est := &models.Establishment{
		OwnerID:  owner.ID,
		Name:     "Test " + slug,
		Slug:     slug,
		Currency: "IDR",
		IsActive: true,
	}
	if err := db.Create(est).Error; err != nil {
		t.Fatalf("Failed to create test establishment: %v", err)
	}
	return owner, est
}

func SetupTestCategory(t *testing.T, db *gorm.DB, establishmentID uint, name string) *models.Category {
	t.Helper()

	category := &models.Category{EstablishmentID: establishmentID, Name: name}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("Failed to create test category: %v", err)
	}
	return category
}

func SetupTestProduct(t *testing.T, db *gorm.DB, establishmentID uint, categoryID *uint, name, price string) *models.Product {
	t.Helper()

	product := &models.Product{
		EstablishmentID: establishmentID,
		CategoryID:      categoryID,
		Name:            name,
		Price:           decimal.RequireFromString(price),
		IsAvailable:     true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("Failed to create test product: %v", err)
	}
	return product
}

func SetupTestTable(t *testing.T, db *gorm.DB, establishmentID uint, number string) *models.Table {
	t.Helper()

	table := &models.Table{EstablishmentID: establishmentID, Number: number, Capacity: 4, Status: models.TableAvailable}
	if err := db.Create(table).Error; err != nil {
		t.Fatalf("Failed to create test table: %v", err)
	}
	return table
}
