package models

import "gorm.io/gorm"

type Listing struct {
	gorm.Model
	OwnerID     uint    `json:"ownerID" gorm:"not null;index"`
	Owner       User    `json:"owner" gorm:"foreignKey:OwnerID"`
	Title       string  `json:"title" gorm:"size:256"`
	Description string  `json:"description" gorm:"type:text"`
	Address     string  `json:"address" gorm:"size:256"`
	City        string  `json:"city" gorm:"size:128"`
	Type        string  `json:"type" gorm:"size:16"` // rent | sale
	Price       float64 `json:"price"`
	ImageURL    string  `json:"imageURL" gorm:"size:512"`
}
