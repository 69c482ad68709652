package models

import (
	"time"

	"gorm.io/gorm"
)

// Conversation is a two-party chat scoped to one listing. The pair is stored
// normalized (lower user id in UserOneID) so the unique index enforces at most
// one active conversation per (pair, listing).
type Conversation struct {
	gorm.Model
	ListingID   uint    `json:"listingID" gorm:"not null;uniqueIndex:idx_conversation_pair_listing"`
	Listing     Listing `json:"listing" gorm:"foreignKey:ListingID"`
	UserOneID   uint    `json:"userOneID" gorm:"not null;uniqueIndex:idx_conversation_pair_listing;index"`
	UserOneRole string  `json:"userOneRole" gorm:"size:20"`
	UserTwoID   uint    `json:"userTwoID" gorm:"not null;uniqueIndex:idx_conversation_pair_listing;index"`
	UserTwoRole string  `json:"userTwoRole" gorm:"size:20"`

	// Denormalized snapshot of the latest message for list rendering
	LastMessage   string     `json:"lastMessage" gorm:"size:512"`
	LastMessageAt *time.Time `json:"lastMessageAt"`

	UserOneUnread int `json:"userOneUnread" gorm:"default:0"`
	UserTwoUnread int `json:"userTwoUnread" gorm:"default:0"`

	// Per-side soft removal; the row is purged once both sides have deleted
	UserOneDeleted bool `json:"-" gorm:"default:false"`
	UserTwoDeleted bool `json:"-" gorm:"default:false"`
}

func (c *Conversation) HasParticipant(userID uint) bool {
	return c.UserOneID == userID || c.UserTwoID == userID
}

// Counterpart returns the other participant's id, or 0 when userID is not a
// participant.
func (c *Conversation) Counterpart(userID uint) uint {
	switch userID {
	case c.UserOneID:
		return c.UserTwoID
	case c.UserTwoID:
		return c.UserOneID
	}
	return 0
}

func (c *Conversation) UnreadFor(userID uint) int {
	if userID == c.UserOneID {
		return c.UserOneUnread
	}
	if userID == c.UserTwoID {
		return c.UserTwoUnread
	}
	return 0
}

func (c *Conversation) DeletedBy(userID uint) bool {
	if userID == c.UserOneID {
		return c.UserOneDeleted
	}
	if userID == c.UserTwoID {
		return c.UserTwoDeleted
	}
	return false
}
