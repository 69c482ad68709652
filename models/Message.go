package models

import "gorm.io/gorm"

type Message struct {
	gorm.Model
	ConversationID uint   `json:"conversationID" gorm:"not null;index"`
	SenderID       uint   `json:"senderID" gorm:"not null;index"`
	ReceiverID     uint   `json:"receiverID" gorm:"not null;index"`
	Content        string `json:"content" gorm:"type:text"`
	Read           bool   `json:"read" gorm:"default:false;index"`
}
