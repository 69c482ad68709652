package services

import (
	"homematch-server/models"
	"homematch-server/storage"
	"strings"
)

// Identity is the display shape of a user as resolved by the directory.
type Identity struct {
	ID           uint   `json:"id"`
	DisplayName  string `json:"displayName"`
	AvatarURL    string `json:"avatarUrl"`
	Role         string `json:"role,omitempty"`
	ContactEmail string `json:"contactEmail,omitempty"`
	ContactPhone string `json:"contactPhone,omitempty"`
}

// IdentityResolver resolves a user id to display identity. The DB-backed
// Directory is the default; tests may substitute their own.
type IdentityResolver interface {
	ResolveIdentity(userID uint) (Identity, error)
}

type Directory struct{}

func (Directory) ResolveIdentity(userID uint) (Identity, error) {
	var u models.User
	if err := storage.DB.First(&u, userID).Error; err != nil {
		return Identity{}, err
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Email
	}
	contactEmail := u.ContactEmail
	if contactEmail == "" {
		contactEmail = u.Email
	}
	contactPhone := u.ContactPhone
	if contactPhone == "" {
		contactPhone = u.PhoneNumber
	}
	return Identity{
		ID:           u.ID,
		DisplayName:  name,
		AvatarURL:    u.AvatarURL,
		Role:         u.Role,
		ContactEmail: contactEmail,
		ContactPhone: contactPhone,
	}, nil
}
