// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Property
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition. Ownership and validation rules live in
// services.PropertyService.
//
// Error semantics:
//   - When a property is not found, functions return gorm.ErrRecordNotFound
//     (exported here as ErrNotFound).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hklets/go-rental-backend/internal/domain"
)

// PropertyQuery is the SQL-pushable subset of listing filters. Price bounds
// are exact decimals compared in the service layer, so they do not appear
// here.
type PropertyQuery struct {
	District string // exact match; empty means no district filter
	MinSize  *int   // inclusive lower bound
	MaxSize  *int   // inclusive upper bound
}

// CreateProperty inserts p, assigning a UUID primary key and UTC timestamps.
func CreateProperty(ctx context.Context, db *gorm.DB, p *domain.Property) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	return db.WithContext(ctx).Create(p).Error
}

// GetProperty fetches a single property by ID, or ErrNotFound.
func GetProperty(ctx context.Context, db *gorm.DB, id string) (*domain.Property, error) {
	var p domain.Property
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProperties returns properties matching q, newest first. An empty query
// returns the full listing set (the endpoint is public and unpaginated).
func ListProperties(ctx context.Context, db *gorm.DB, q PropertyQuery) ([]domain.Property, error) {
	tx := db.WithContext(ctx).Model(&domain.Property{})
	if q.District != "" {
		tx = tx.Where("district = ?", q.District)
	}
	if q.MinSize != nil {
		tx = tx.Where("size >= ?", *q.MinSize)
	}
	if q.MaxSize != nil {
		tx = tx.Where("size <= ?", *q.MaxSize)
	}
	var out []domain.Property
	err := tx.Order("created_at desc").Find(&out).Error
	return out, err
}

// ListPropertiesByOwner returns all properties owned by ownerID, newest first.
func ListPropertiesByOwner(ctx context.Context, db *gorm.DB, ownerID string) ([]domain.Property, error) {
	var out []domain.Property
	err := db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// SaveProperty persists every column of an already-loaded property and
// refreshes UpdatedAt. Callers are responsible for the ownership check.
func SaveProperty(ctx context.Context, db *gorm.DB, p *domain.Property) error {
	p.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).Save(p).Error
}

// DeleteProperty removes a property row. Dependent chats and their messages
// go with it via FK cascade. Returns ErrNotFound when nothing was deleted.
func DeleteProperty(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Delete(&domain.Property{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
