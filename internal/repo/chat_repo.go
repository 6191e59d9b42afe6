// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Chat model.
//
// The chats table carries a unique index on (property_id, owner_id,
// counterparty_id); a concurrent double-insert for the same triple surfaces
// as gorm.ErrDuplicatedKey, which the service layer resolves by re-reading
// the winning row.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hklets/go-rental-backend/internal/domain"
)

// CreateChat inserts a new chat row for the (property, owner, counterparty)
// triple with a UUID primary key and UTC creation time.
func CreateChat(ctx context.Context, db *gorm.DB, propertyID, ownerID, counterpartyID string) (*domain.Chat, error) {
	c := &domain.Chat{
		ID:             uuid.NewString(),
		PropertyID:     propertyID,
		OwnerID:        ownerID,
		CounterpartyID: counterpartyID,
		CreatedAt:      time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// GetChat fetches a chat by ID, or ErrNotFound.
func GetChat(ctx context.Context, db *gorm.DB, id string) (*domain.Chat, error) {
	var c domain.Chat
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// FindChatByTriple returns the chat for the exact (property, owner,
// counterparty) triple, or ErrNotFound.
func FindChatByTriple(ctx context.Context, db *gorm.DB, propertyID, ownerID, counterpartyID string) (*domain.Chat, error) {
	var c domain.Chat
	err := db.WithContext(ctx).
		Where("property_id = ? AND owner_id = ? AND counterparty_id = ?", propertyID, ownerID, counterpartyID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListChatsForUser returns every chat where userID is either side, most
// recent activity first, with the owning property preloaded for display.
func ListChatsForUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.Chat, error) {
	var out []domain.Chat
	err := db.WithContext(ctx).
		Where("owner_id = ? OR counterparty_id = ?", userID, userID).
		Order("COALESCE(last_message_at, created_at) desc").
		Preload("Property").
		Find(&out).Error
	return out, err
}

// UpdateChatPreview sets the denormalized last-message fields. Meant to be
// called inside the same transaction as the message insert so the preview
// can never drift from the message log.
func UpdateChatPreview(ctx context.Context, db *gorm.DB, chatID, content string, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Chat{}).
		Where("id = ?", chatID).
		Updates(map[string]any{
			"last_message":    content,
			"last_message_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
