package models

import (
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Notification kinds
const (
	NotificationDirect           = "direct"
	NotificationSystem           = "system"
	NotificationRating           = "rating" // synthesized at read time, never persisted
	NotificationViewingRequest   = "viewing_request"
	NotificationViewingAccepted  = "viewing_accepted"
	NotificationViewingRejection = "viewing_rejection"
)

type Notification struct {
	gorm.Model
	UserID    uint           `json:"userID" gorm:"not null;index"` // recipient
	FromID    *uint          `json:"fromID" gorm:"index"`
	Kind      string         `json:"kind" gorm:"size:32;index"`
	Message   string         `json:"message" gorm:"type:text"`
	ListingID *uint          `json:"listingID" gorm:"index"`
	Data      datatypes.JSON `json:"data"`
	IsRead    bool           `json:"isRead" gorm:"default:false;index"`
}

// TimeSlotProposal is a recurring weekly availability window. It lives inside
// a viewing_request notification's Data payload until the requester picks a
// concrete calendar date.
type TimeSlotProposal struct {
	Day       string `json:"day"` // Monday ... Sunday
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// ViewingRequestData is the Data payload of a viewing_request notification.
type ViewingRequestData struct {
	ListingID uint               `json:"listingID"`
	Proposals []TimeSlotProposal `json:"proposals"`
}

func (n *Notification) ViewingData() (*ViewingRequestData, error) {
	var data ViewingRequestData
	if err := json.Unmarshal(n.Data, &data); err != nil {
		return nil, err
	}
	return &data, nil
}
