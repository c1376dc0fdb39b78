// Package testutil provides an isolated in-memory database and fixtures for
// package tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"rental-portal/internal/database"
	"rental-portal/internal/models"
)

// NewDB returns a migrated in-memory SQLite database private to t.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// Fixtures creates rows with sensible defaults. Each helper fails t on error.
type Fixtures struct {
	t  testing.TB
	db *gorm.DB
	n  int
}

func NewFixtures(t testing.TB, db *gorm.DB) *Fixtures {
	return &Fixtures{t: t, db: db}
}

func (f *Fixtures) create(v interface{}) {
	f.t.Helper()
	if err := f.db.Create(v).Error; err != nil {
		f.t.Fatalf("failed to create fixture %T: %v", v, err)
	}
}

func (f *Fixtures) User(name string) *models.User {
	f.t.Helper()
	f.n++
	u := &models.User{
		Username: fmt.Sprintf("%s-%d", name, f.n),
		Email:    fmt.Sprintf("%s.%d@example.com", name, f.n),
		IsActive: true,
	}
	f.create(u)
	return u
}

func (f *Fixtures) UserProfile(user *models.User, phone string) *models.UserProfile {
	f.t.Helper()
	p := &models.UserProfile{
		UserID:      &user.ID,
		Phone:       phone,
		Gender:      "female",
		Citizenship: "PT",
	}
	f.create(p)
	return p
}

func (f *Fixtures) LandlordProfile(owner *models.User, kind models.LandlordKind) *models.LandlordProfile {
	f.t.Helper()
	p := &models.LandlordProfile{
		UserID: owner.ID,
		Kind:   kind,
		Name:   fmt.Sprintf("%s landlord", kind),
		Status: models.LandlordProfileStatusActive,
	}
	f.create(p)
	return p
}

func (f *Fixtures) Property(profile *models.LandlordProfile, title string) *models.Property {
	f.t.Helper()
	p := &models.Property{
		LandlordProfileID: profile.ID,
		Title:             title,
		Status:            models.PropertyStatusAvailable,
		IsListed:          true,
	}
	f.create(p)
	return p
}

// DeletedProperty creates a property that was soft-deleted earlier.
func (f *Fixtures) DeletedProperty(profile *models.LandlordProfile, title string) *models.Property {
	f.t.Helper()
	p := &models.Property{
		LandlordProfileID: profile.ID,
		Title:             title,
		Status:            models.PropertyStatusDeleted,
		IsListed:          false,
	}
	f.create(p)
	return p
}

func (f *Fixtures) Membership(profile *models.LandlordProfile, user *models.User) *models.CompanyMembership {
	f.t.Helper()
	m := &models.CompanyMembership{
		LandlordProfileID: profile.ID,
		UserID:            user.ID,
		Role:              "agent",
		Status:            models.MembershipStatusActive,
	}
	f.create(m)
	return m
}

func (f *Fixtures) Review(property *models.Property, author *models.User, feedback string) *models.Review {
	f.t.Helper()
	r := &models.Review{
		PropertyID: property.ID,
		AuthorID:   author.ID,
		Rating:     4,
		Feedback:   feedback,
		Status:     models.ReviewStatusPublished,
	}
	f.create(r)
	return r
}

// Count returns the number of rows of model matching the optional condition.
func (f *Fixtures) Count(model interface{}, query string, args ...interface{}) int64 {
	f.t.Helper()
	var n int64
	q := f.db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	if err := q.Count(&n).Error; err != nil {
		f.t.Fatalf("failed to count %T: %v", model, err)
	}
	return n
}
