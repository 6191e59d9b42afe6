// Package domain defines the persistence models for properties, chats, and
// messages. These types are mapped with GORM and form the core data layer
// of the rental marketplace backend.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StringList is an ordered list of strings persisted as a JSON text column.
// It keeps the schema portable between SQLite (tests) and Postgres
// (production) without a driver-specific array type.
type StringList []string

// Value serializes the list for storage. An empty or nil list is stored as
// the JSON empty array so reads never have to distinguish NULL from empty.
func (l StringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan deserializes a stored JSON array back into the list.
func (l *StringList) Scan(src any) error {
	if src == nil {
		*l = nil
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported StringList source type %T", src)
	}
	if len(data) == 0 {
		*l = nil
		return nil
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*l = out
	return nil
}

// Property represents a rental listing. Media columns hold stable object
// storage keys, never URLs; resolution into time-limited URLs happens in the
// service layer on every read, which is why the key columns are excluded
// from JSON serialization.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - OwnerID: identifier of the creating user; immutable after creation.
//   - Price: exact-precision decimal kept as text to avoid float drift.
//   - District: one of the 18 Hong Kong districts (see districts.go).
//   - Photos: ordered stable media keys (JSON text column).
//   - VirtualTourKey: optional stable media key for a tour video.
type Property struct {
	ID             string     `json:"id"          gorm:"type:char(36);primaryKey"`
	OwnerID        string     `json:"owner_id"    gorm:"type:varchar(64);not null;index:idx_property_owner"`
	Title          string     `json:"title"       gorm:"type:varchar(255);not null"`
	Description    string     `json:"description" gorm:"type:text"`
	Price          string     `json:"price"       gorm:"type:varchar(32);not null"`
	Size           int        `json:"size"        gorm:"not null"`
	District       string     `json:"district"    gorm:"type:varchar(64);not null;index:idx_property_district"`
	Equipment      string     `json:"equipment"   gorm:"type:text"`
	Photos         StringList `json:"-"           gorm:"type:text"`
	VirtualTourKey *string    `json:"-"           gorm:"type:varchar(512)"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Property.
func (Property) TableName() string { return "properties" }

// Chat is the single conversation that may exist between a property's owner
// and an inquiring counterparty. At most one row exists per
// (PropertyID, OwnerID, CounterpartyID) triple, enforced by a unique index
// rather than lookup-before-insert alone.
//
// OwnerID is the property owner at chat-creation time; CounterpartyID is the
// user who initiated contact. LastMessage/LastMessageAt are a denormalized
// preview maintained transactionally on every send.
type Chat struct {
	ID             string     `json:"id"              gorm:"type:char(36);primaryKey"`
	PropertyID     string     `json:"property_id"     gorm:"type:char(36);not null;uniqueIndex:ux_chat_triple,priority:1"`
	OwnerID        string     `json:"owner_id"        gorm:"type:varchar(64);not null;index:idx_chat_owner;uniqueIndex:ux_chat_triple,priority:2"`
	CounterpartyID string     `json:"counterparty_id" gorm:"type:varchar(64);not null;index:idx_chat_counterparty;uniqueIndex:ux_chat_triple,priority:3"`
	LastMessage    *string    `json:"last_message,omitempty"    gorm:"type:text"`
	LastMessageAt  *time.Time `json:"last_message_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`

	// Property is the listing this chat belongs to. Chats are cascade-deleted
	// when their property is removed.
	Property Property `json:"-" gorm:"foreignKey:PropertyID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Chat.
func (Chat) TableName() string { return "chats" }

// Participant reports whether userID is on either side of the chat.
func (c *Chat) Participant(userID string) bool {
	return c.OwnerID == userID || c.CounterpartyID == userID
}

// Message is a single immutable utterance within a chat. SenderID is always
// one of the chat's two participants.
type Message struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	ChatID    string    `json:"chat_id"    gorm:"type:char(36);not null;index:idx_chat_messages,priority:1"`
	SenderID  string    `json:"sender_id"  gorm:"type:varchar(64);not null"`
	Content   string    `json:"content"    gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_chat_messages,priority:2"`

	// Chat is the parent conversation. Messages are cascade-deleted if their
	// chat is removed.
	Chat Chat `json:"-" gorm:"foreignKey:ChatID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }
