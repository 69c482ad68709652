package services

import (
	"encoding/json"
	"fmt"
	"homematch-server/metrics"
	"homematch-server/models"
	"homematch-server/storage"
	"homematch-server/utils"
	"strings"
	"time"

	"golang.org/x/exp/slices"
)

// selectable horizon for concrete viewing dates
const slotSelectionWindowDays = 42

const contactFallback = "No contact details on file — use in-app messaging."

var weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// ProposeViewing creates one viewing_request notification to the listing
// owner carrying every proposed weekly slot. No reservation exists until the
// requester picks a concrete date.
func ProposeViewing(requesterID uint, listingID uint, proposals []models.TimeSlotProposal) (*models.Notification, error) {
	if len(proposals) == 0 {
		return nil, utils.ValidationError("at least one time slot proposal is required")
	}
	for i := range proposals {
		proposals[i].Day = normalizeWeekday(proposals[i].Day)
		if err := validateProposal(proposals[i]); err != nil {
			return nil, err
		}
	}

	var listing models.Listing
	if err := storage.DB.First(&listing, listingID).Error; err != nil {
		return nil, utils.NotFoundError("listing %d not found", listingID)
	}
	if listing.OwnerID == requesterID {
		return nil, utils.AuthorizationError("cannot request a viewing of your own listing")
	}

	requester := resolveOrPlaceholder(Directory{}, requesterID)

	data, err := json.Marshal(models.ViewingRequestData{ListingID: listingID, Proposals: proposals})
	if err != nil {
		return nil, err
	}

	notification := models.Notification{
		UserID:    listing.OwnerID,
		FromID:    &requesterID,
		Kind:      models.NotificationViewingRequest,
		Message:   fmt.Sprintf("%s requested a viewing of %s", requester.DisplayName, listing.Title),
		ListingID: &listingID,
		Data:      data,
	}
	if err := CreateNotification(&notification); err != nil {
		return nil, err
	}
	return &notification, nil
}

// SlotSelection is the requester's concrete pick within one proposed slot.
type SlotSelection struct {
	Proposal  models.TimeSlotProposal `json:"proposal"`
	Date      time.Time               `json:"date" validate:"required"`
	StartTime string                  `json:"startTime" validate:"required"`
	EndTime   string                  `json:"endTime" validate:"required"`
}

// SelectConcreteSlot binds one proposed weekly slot to a calendar date within
// the next 42 days and creates a pending reservation under the notification.
// Multiple reservations may accumulate, one per distinct date the requester
// wants to try; each transitions independently.
func SelectConcreteSlot(notificationID uint, requesterID uint, selection SlotSelection) (*models.ViewingReservation, error) {
	var notification models.Notification
	if err := storage.DB.
		Where("id = ? AND kind = ?", notificationID, models.NotificationViewingRequest).
		First(&notification).Error; err != nil {
		return nil, utils.NotFoundError("viewing request %d not found", notificationID)
	}
	if notification.FromID == nil || *notification.FromID != requesterID {
		return nil, utils.AuthorizationError("only the original requester may select a concrete slot")
	}

	data, err := notification.ViewingData()
	if err != nil {
		return nil, err
	}

	selection.Proposal.Day = normalizeWeekday(selection.Proposal.Day)
	matched := false
	for _, proposal := range data.Proposals {
		if strings.EqualFold(proposal.Day, selection.Proposal.Day) &&
			proposal.StartTime == selection.Proposal.StartTime &&
			proposal.EndTime == selection.Proposal.EndTime {
			matched = true
			break
		}
	}
	if !matched {
		return nil, utils.ValidationError("selected slot does not match any proposed slot")
	}

	now := time.Now()
	if selection.Date.Before(now.Truncate(24 * time.Hour)) {
		return nil, utils.ValidationError("viewing date must be in the future")
	}
	if selection.Date.After(now.AddDate(0, 0, slotSelectionWindowDays)) {
		return nil, utils.ValidationError("viewing date must be within the next %d days", slotSelectionWindowDays)
	}
	if selection.Date.Weekday().String() != selection.Proposal.Day {
		return nil, utils.ValidationError("date %s is a %s, proposal is for %s",
			selection.Date.Format("2006-01-02"), selection.Date.Weekday(), selection.Proposal.Day)
	}

	start, err := parseClock(selection.StartTime)
	if err != nil {
		return nil, utils.ValidationError("invalid start time %q", selection.StartTime)
	}
	end, err := parseClock(selection.EndTime)
	if err != nil {
		return nil, utils.ValidationError("invalid end time %q", selection.EndTime)
	}
	windowStart, _ := parseClock(selection.Proposal.StartTime)
	windowEnd, _ := parseClock(selection.Proposal.EndTime)
	if !start.Before(end) || start.Before(windowStart) || end.After(windowEnd) {
		return nil, utils.ValidationError("selected time must fall within the proposed %s–%s window",
			selection.Proposal.StartTime, selection.Proposal.EndTime)
	}

	reservation := models.ViewingReservation{
		NotificationID: notificationID,
		ListingID:      data.ListingID,
		RequesterID:    requesterID,
		OwnerID:        notification.UserID,
		Date:           selection.Date,
		StartTime:      selection.StartTime,
		EndTime:        selection.EndTime,
		Status:         models.ReservationPending,
	}
	if err := storage.DB.Create(&reservation).Error; err != nil {
		return nil, err
	}
	metrics.ViewingTransitions.WithLabelValues(models.ReservationPending).Inc()

	// advisory nudge for the owner's live sessions; the stored viewing_request
	// notification remains the durable record
	pushJSON(notification.UserID, map[string]interface{}{
		"type":        "viewing_slot_selected",
		"reservation": &reservation,
	})

	return &reservation, nil
}

// AcceptReservation moves a pending reservation to accepted and notifies the
// requester with the responder's contact means. The transition is a single
// conditional update: with concurrent responders exactly one wins, the loser
// gets InvalidStateError so the caller can explain the lost race.
func AcceptReservation(reservationID uint, responderID uint) (*models.ViewingReservation, int64, error) {
	var reservation models.ViewingReservation
	if err := storage.DB.First(&reservation, reservationID).Error; err != nil {
		return nil, 0, utils.NotFoundError("reservation %d not found", reservationID)
	}
	if reservation.OwnerID != responderID {
		return nil, 0, utils.AuthorizationError("only the listing owner may accept this reservation")
	}

	res := storage.DB.Model(&models.ViewingReservation{}).
		Where("id = ? AND status = ?", reservationID, models.ReservationPending).
		Update("status", models.ReservationAccepted)
	if res.Error != nil {
		return nil, 0, res.Error
	}
	if res.RowsAffected == 0 {
		storage.DB.First(&reservation, reservationID)
		return nil, 0, utils.InvalidStateError("reservation %d is already %s", reservationID, reservation.Status)
	}
	storage.DB.First(&reservation, reservationID)
	metrics.ViewingTransitions.WithLabelValues(models.ReservationAccepted).Inc()

	responder := resolveOrPlaceholder(Directory{}, responderID)
	contact := contactLine(responder)

	var listingTitle string
	var listing models.Listing
	if err := storage.DB.First(&listing, reservation.ListingID).Error; err == nil {
		listingTitle = listing.Title
	}

	data, _ := json.Marshal(map[string]interface{}{
		"reservationID": reservation.ID,
		"date":          reservation.Date.Format("2006-01-02"),
		"startTime":     reservation.StartTime,
		"endTime":       reservation.EndTime,
		"contact":       contact,
	})
	notification := models.Notification{
		UserID: reservation.RequesterID,
		FromID: &responderID,
		Kind:   models.NotificationViewingAccepted,
		Message: fmt.Sprintf("Your viewing of %s on %s %s–%s is confirmed. %s",
			listingTitle, reservation.Date.Format("Mon, Jan 2"), reservation.StartTime, reservation.EndTime, contact),
		ListingID: &reservation.ListingID,
		Data:      data,
	}
	if err := CreateNotification(&notification); err != nil {
		return nil, 0, err
	}

	remaining, err := pendingSiblings(reservation.NotificationID)
	if err != nil {
		return nil, 0, err
	}
	return &reservation, remaining, nil
}

// SlotOutcome reports one reservation's result from a batch accept.
type SlotOutcome struct {
	ReservationID uint   `json:"reservationID"`
	Accepted      bool   `json:"accepted"`
	Error         string `json:"error,omitempty"`
}

// AcceptAllPending accepts every currently-pending reservation under the
// notification. Each slot is attempted independently: a slot lost to a
// concurrent transition is reported, not fatal.
func AcceptAllPending(notificationID uint, responderID uint) ([]SlotOutcome, error) {
	var notification models.Notification
	if err := storage.DB.
		Where("id = ? AND kind = ?", notificationID, models.NotificationViewingRequest).
		First(&notification).Error; err != nil {
		return nil, utils.NotFoundError("viewing request %d not found", notificationID)
	}
	if notification.UserID != responderID {
		return nil, utils.AuthorizationError("only the listing owner may accept these reservations")
	}

	var pending []models.ViewingReservation
	if err := storage.DB.
		Where("notification_id = ? AND status = ?", notificationID, models.ReservationPending).
		Order("id ASC").
		Find(&pending).Error; err != nil {
		return nil, err
	}

	outcomes := make([]SlotOutcome, 0, len(pending))
	for _, reservation := range pending {
		if _, _, err := AcceptReservation(reservation.ID, responderID); err != nil {
			outcomes = append(outcomes, SlotOutcome{ReservationID: reservation.ID, Error: err.Error()})
			continue
		}
		outcomes = append(outcomes, SlotOutcome{ReservationID: reservation.ID, Accepted: true})
	}
	return outcomes, nil
}

// RejectionReason is the responder's structured reason for declining a slot.
type RejectionReason struct {
	Kind             string `json:"kind" validate:"required,oneof=overbooked time_not_suitable other"`
	Detail           string `json:"detail"`
	AlternativeDate  string `json:"alternativeDate"`
	AlternativeStart string `json:"alternativeStart"`
	AlternativeEnd   string `json:"alternativeEnd"`
}

// RejectReservation moves a pending reservation to rejected with a required
// human-readable reason and notifies the requester. Validation happens before
// any state change: a bad reason never leaves a half-rejected slot behind.
func RejectReservation(reservationID uint, responderID uint, reason RejectionReason) (*models.ViewingReservation, int64, error) {
	reasonText, err := buildRejectionReason(reason)
	if err != nil {
		return nil, 0, err
	}

	var reservation models.ViewingReservation
	if err := storage.DB.First(&reservation, reservationID).Error; err != nil {
		return nil, 0, utils.NotFoundError("reservation %d not found", reservationID)
	}
	if reservation.OwnerID != responderID {
		return nil, 0, utils.AuthorizationError("only the listing owner may reject this reservation")
	}

	res := storage.DB.Model(&models.ViewingReservation{}).
		Where("id = ? AND status = ?", reservationID, models.ReservationPending).
		Updates(map[string]interface{}{
			"status":           models.ReservationRejected,
			"rejection_reason": reasonText,
		})
	if res.Error != nil {
		return nil, 0, res.Error
	}
	if res.RowsAffected == 0 {
		storage.DB.First(&reservation, reservationID)
		return nil, 0, utils.InvalidStateError("reservation %d is already %s", reservationID, reservation.Status)
	}
	storage.DB.First(&reservation, reservationID)
	metrics.ViewingTransitions.WithLabelValues(models.ReservationRejected).Inc()

	var listingTitle string
	var listing models.Listing
	if err := storage.DB.First(&listing, reservation.ListingID).Error; err == nil {
		listingTitle = listing.Title
	}

	data, _ := json.Marshal(map[string]interface{}{
		"reservationID": reservation.ID,
		"kind":          reason.Kind,
		"reason":        reasonText,
	})
	notification := models.Notification{
		UserID: reservation.RequesterID,
		FromID: &responderID,
		Kind:   models.NotificationViewingRejection,
		Message: fmt.Sprintf("Your viewing of %s on %s %s–%s was declined: %s",
			listingTitle, reservation.Date.Format("Mon, Jan 2"), reservation.StartTime, reservation.EndTime, reasonText),
		ListingID: &reservation.ListingID,
		Data:      data,
	}
	if err := CreateNotification(&notification); err != nil {
		return nil, 0, err
	}

	remaining, err := pendingSiblings(reservation.NotificationID)
	if err != nil {
		return nil, 0, err
	}
	return &reservation, remaining, nil
}

// ReservationsForNotification lists the reservations under a viewing request
// for either party.
func ReservationsForNotification(notificationID uint, userID uint) ([]models.ViewingReservation, error) {
	var notification models.Notification
	if err := storage.DB.First(&notification, notificationID).Error; err != nil {
		return nil, utils.NotFoundError("notification %d not found", notificationID)
	}
	if notification.UserID != userID && (notification.FromID == nil || *notification.FromID != userID) {
		return nil, utils.AuthorizationError("user %d is not a party to viewing request %d", userID, notificationID)
	}

	var reservations []models.ViewingReservation
	if err := storage.DB.
		Where("notification_id = ?", notificationID).
		Order("date ASC, start_time ASC").
		Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}

func pendingSiblings(notificationID uint) (int64, error) {
	var count int64
	err := storage.DB.Model(&models.ViewingReservation{}).
		Where("notification_id = ? AND status = ?", notificationID, models.ReservationPending).
		Count(&count).Error
	return count, err
}

func buildRejectionReason(reason RejectionReason) (string, error) {
	if err := utils.Validate.Struct(reason); err != nil {
		return "", utils.ValidationError("unknown rejection kind %q", reason.Kind)
	}
	switch reason.Kind {
	case "overbooked":
		text := "The requested slot is no longer available (overbooked)."
		if strings.TrimSpace(reason.Detail) != "" {
			text += " " + strings.TrimSpace(reason.Detail)
		}
		return text, nil
	case "time_not_suitable":
		if strings.TrimSpace(reason.AlternativeDate) == "" || strings.TrimSpace(reason.AlternativeStart) == "" {
			return "", utils.ValidationError("time_not_suitable requires an alternative date and time")
		}
		text := fmt.Sprintf("The proposed time is not suitable; %s %s", reason.AlternativeDate, reason.AlternativeStart)
		if strings.TrimSpace(reason.AlternativeEnd) != "" {
			text += "–" + strings.TrimSpace(reason.AlternativeEnd)
		}
		return text + " is suggested instead.", nil
	case "other":
		detail := strings.TrimSpace(reason.Detail)
		if detail == "" {
			return "", utils.ValidationError("a rejection reason of kind 'other' requires a detail")
		}
		return detail, nil
	}
	return "", utils.ValidationError("unknown rejection kind %q", reason.Kind)
}

func contactLine(identity *Identity) string {
	parts := []string{}
	if identity.ContactEmail != "" {
		parts = append(parts, "Email: "+identity.ContactEmail)
	}
	if identity.ContactPhone != "" {
		parts = append(parts, "Phone: "+identity.ContactPhone)
	}
	if len(parts) == 0 {
		return contactFallback
	}
	return "Contact " + identity.DisplayName + " — " + strings.Join(parts, ", ")
}

func validateProposal(proposal models.TimeSlotProposal) error {
	if !slices.Contains(weekdays, proposal.Day) {
		return utils.ValidationError("invalid day of week %q", proposal.Day)
	}
	start, err := parseClock(proposal.StartTime)
	if err != nil {
		return utils.ValidationError("invalid start time %q", proposal.StartTime)
	}
	end, err := parseClock(proposal.EndTime)
	if err != nil {
		return utils.ValidationError("invalid end time %q", proposal.EndTime)
	}
	if !start.Before(end) {
		return utils.ValidationError("slot start %s must be before end %s", proposal.StartTime, proposal.EndTime)
	}
	return nil
}

func normalizeWeekday(day string) string {
	day = strings.TrimSpace(day)
	if day == "" {
		return day
	}
	return strings.ToUpper(day[:1]) + strings.ToLower(day[1:])
}

func parseClock(value string) (time.Time, error) {
	return time.Parse("15:04", value)
}
