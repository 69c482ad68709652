package models

import "gorm.io/gorm"

type User struct {
	gorm.Model
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email" gorm:"uniqueIndex"`
	PhoneNumber  string `json:"phoneNumber"`
	Password     string `json:"-"`
	AvatarURL    string `json:"avatarURL"`
	Role         string `json:"role" gorm:"type:varchar(20);default:tenant;index"` // tenant, landlord, agent, company
	ContactEmail string `json:"contactEmail"`
	ContactPhone string `json:"contactPhone"`
}
