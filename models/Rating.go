package models

import "gorm.io/gorm"

// TenantRating and LandlordRating are produced by the rating subsystem and
// read-only to the notification core. Rows sharing the same (rated_by_id,
// created_at truncated to the minute) form one rating episode; the feed
// presents an episode as a single entry and all rows of an episode share one
// read state.

type TenantRating struct {
	gorm.Model
	UserID    uint   `json:"userID" gorm:"not null;index"` // the rated tenant
	RatedByID uint   `json:"ratedByID" gorm:"not null;index"`
	Category  string `json:"category" gorm:"size:64"`
	Value     int    `json:"value" gorm:"check:value >= 1 AND value <= 5"`
	Comment   string `json:"comment" gorm:"type:text"`
	IsRead    bool   `json:"isRead" gorm:"default:false;index"`
}

type LandlordRating struct {
	gorm.Model
	UserID    uint   `json:"userID" gorm:"not null;index"` // the rated landlord
	RatedByID uint   `json:"ratedByID" gorm:"not null;index"`
	Category  string `json:"category" gorm:"size:64"`
	Value     int    `json:"value" gorm:"check:value >= 1 AND value <= 5"`
	Comment   string `json:"comment" gorm:"type:text"`
	IsRead    bool   `json:"isRead" gorm:"default:false;index"`
}
