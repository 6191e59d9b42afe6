// Package services – ChatService
//
// This file implements ChatService, which manages the single conversation a
// counterparty can hold about a property. It enforces the at-most-one-chat
// invariant per (property, owner, counterparty) triple, forbids owners from
// contacting their own listings, gates message access to participants, and
// keeps the denormalized last-message preview in lockstep with the message
// log by writing both inside one transaction.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hklets/go-rental-backend/internal/domain"
	"github.com/hklets/go-rental-backend/internal/repo"
	"github.com/hklets/go-rental-backend/internal/storage"
)

// ChatService coordinates chat creation, listing, and messaging.
type ChatService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Resolver turns property photo keys into presigned URLs for the chat
	// list's property preview.
	Resolver storage.Resolver
	// Bucket is used to normalize legacy URL-form media references.
	Bucket string

	// MaxContentRunes caps message length; 0 disables the cap.
	MaxContentRunes int
}

// ChatSummary is a chat joined with the property fields a client needs to
// render a conversation list entry.
type ChatSummary struct {
	domain.Chat
	PropertyTitle  string   `json:"property_title"`
	PropertyPhotos []string `json:"property_photos"`
}

// StartOrGet returns the chat between callerID and the owner of propertyID,
// creating it on first contact. The operation is idempotent: the unique
// triple index makes a concurrent double-create surface as a duplicate-key
// error, which is resolved by re-reading the winning row.
func (s *ChatService) StartOrGet(ctx context.Context, propertyID, callerID string) (*domain.Chat, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "StartOrGet",
		trace.WithAttributes(
			attribute.String("property.id", propertyID),
			attribute.String("user.id", callerID),
		),
	)
	defer span.End()

	p, err := repo.GetProperty(ctx, s.DB, propertyID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrPropertyNotFound
		}
		return nil, err
	}
	if p.OwnerID == callerID {
		return nil, ErrSelfChat
	}

	chat, err := repo.FindChatByTriple(ctx, s.DB, propertyID, p.OwnerID, callerID)
	if err == nil {
		return chat, nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	chat, err = repo.CreateChat(ctx, s.DB, propertyID, p.OwnerID, callerID)
	if err != nil {
		// A concurrent first-contact request may have won the insert race.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return repo.FindChatByTriple(ctx, s.DB, propertyID, p.OwnerID, callerID)
		}
		if existing, ferr := repo.FindChatByTriple(ctx, s.DB, propertyID, p.OwnerID, callerID); ferr == nil {
			return existing, nil
		}
		return nil, err
	}
	return chat, nil
}

// ListForUser returns every chat where callerID participates, most recent
// activity first, each joined with its property's title and resolved photos.
func (s *ChatService) ListForUser(ctx context.Context, callerID string) ([]ChatSummary, error) {
	chats, err := repo.ListChatsForUser(ctx, s.DB, callerID)
	if err != nil {
		return nil, err
	}
	out := make([]ChatSummary, 0, len(chats))
	for i := range chats {
		c := chats[i]
		sum := ChatSummary{
			Chat:           c,
			PropertyTitle:  c.Property.Title,
			PropertyPhotos: make([]string, 0, len(c.Property.Photos)),
		}
		for _, key := range c.Property.Photos {
			sum.PropertyPhotos = append(sum.PropertyPhotos, s.resolve(ctx, key))
		}
		out = append(out, sum)
	}
	return out, nil
}

// ListMessages returns a chat's messages in creation order, for participants
// only.
func (s *ChatService) ListMessages(ctx context.Context, chatID, callerID string) ([]domain.Message, error) {
	chat, err := repo.GetChat(ctx, s.DB, chatID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}
	if !chat.Participant(callerID) {
		return nil, ErrForbidden
	}
	return repo.ListMessages(ctx, s.DB, chatID)
}

// Send appends a message from callerID and updates the parent chat's
// last-message preview. Both writes happen in one transaction so the preview
// can never show a message that was not persisted, or lag one that was.
func (s *ChatService) Send(ctx context.Context, chatID, callerID, content string) (*domain.Message, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "Send",
		trace.WithAttributes(
			attribute.String("chat.id", chatID),
			attribute.String("user.id", callerID),
		),
	)
	defer span.End()

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if s.MaxContentRunes > 0 && len([]rune(content)) > s.MaxContentRunes {
		return nil, &ValidationError{Fields: []string{"content"}}
	}

	chat, err := repo.GetChat(ctx, s.DB, chatID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}
	if !chat.Participant(callerID) {
		return nil, ErrForbidden
	}

	var msg *domain.Message
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := repo.CreateMessage(ctx, tx, chatID, callerID, content)
		if err != nil {
			return err
		}
		msg = m
		return repo.UpdateChatPreview(ctx, tx, chatID, content, m.CreatedAt)
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *ChatService) resolve(ctx context.Context, key string) string {
	key = storage.NormalizeKey(key, s.Bucket)
	if s.Resolver == nil {
		return key
	}
	url, err := s.Resolver.Resolve(ctx, key)
	if err != nil {
		return key
	}
	return url
}
