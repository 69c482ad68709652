package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	ReservationPending  = "pending"
	ReservationAccepted = "accepted"
	ReservationRejected = "rejected"
)

// ViewingReservation is a concrete, dated viewing booking derived from one of
// the weekly slots proposed in its parent viewing_request notification.
// Status only ever moves pending -> accepted or pending -> rejected; both are
// terminal. A rejected reservation always carries a RejectionReason.
type ViewingReservation struct {
	gorm.Model
	NotificationID  uint      `json:"notificationID" gorm:"not null;index"`
	ListingID       uint      `json:"listingID" gorm:"not null;index"`
	RequesterID     uint      `json:"requesterID" gorm:"not null;index"`
	OwnerID         uint      `json:"ownerID" gorm:"not null;index"`
	Date            time.Time `json:"date"`
	StartTime       string    `json:"startTime" gorm:"size:8"`
	EndTime         string    `json:"endTime" gorm:"size:8"`
	Status          string    `json:"status" gorm:"size:16;default:pending;index"`
	RejectionReason string    `json:"rejectionReason" gorm:"type:text"`
}

func (r *ViewingReservation) Terminal() bool {
	return r.Status == ReservationAccepted || r.Status == ReservationRejected
}
