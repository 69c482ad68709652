package services

import (
	"encoding/json"
	"homematch-server/metrics"
	"homematch-server/models"
	"homematch-server/storage"
	"log"
)

// Pusher delivers a payload to every live session of a user. Delivery is best
// effort: a failed or dropped push only affects the live channel, the durable
// write has already happened.
type Pusher interface {
	PushToUser(userID uint, payload []byte)
}

// Live is set by main to the websocket hub. Nil means no live channel (tests,
// one-off tools); everything still works through history fetches.
var Live Pusher

// CreateNotification persists a notification and pushes it to the recipient's
// live sessions.
func CreateNotification(notification *models.Notification) error {
	if err := storage.DB.Create(notification).Error; err != nil {
		return err
	}
	metrics.NotificationsCreated.WithLabelValues(notification.Kind).Inc()
	pushJSON(notification.UserID, map[string]interface{}{
		"type":         "notification",
		"notification": notification,
	})
	return nil
}

func pushJSON(userID uint, payload interface{}) {
	if Live == nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("live push marshal failed for user %d: %v", userID, err)
		return
	}
	Live.PushToUser(userID, raw)
}
