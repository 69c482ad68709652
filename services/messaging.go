package services

import (
	"context"
	"fmt"
	"homematch-server/metrics"
	"homematch-server/models"
	"homematch-server/storage"
	"homematch-server/utils"
	"strings"
	"time"

	"gorm.io/gorm"
)

var typingContext = context.Background()

// FindOrCreateConversation returns the single active conversation for the
// given pair and listing, creating it on first contact. A conversation the
// requester had soft-removed is re-surfaced rather than duplicated.
func FindOrCreateConversation(requesterID uint, requesterRole string, otherID uint, otherRole string, listingID uint) (*models.Conversation, error) {
	if requesterID == otherID {
		return nil, utils.ValidationError("cannot start a conversation with yourself")
	}

	oneID, oneRole, twoID, twoRole := requesterID, requesterRole, otherID, otherRole
	if twoID < oneID {
		oneID, twoID = twoID, oneID
		oneRole, twoRole = twoRole, oneRole
	}

	var conversation models.Conversation
	err := storage.DB.
		Where("listing_id = ? AND user_one_id = ? AND user_two_id = ?", listingID, oneID, twoID).
		First(&conversation).Error
	if err == nil {
		if conversation.DeletedBy(requesterID) {
			side := "user_one_deleted"
			if requesterID == conversation.UserTwoID {
				side = "user_two_deleted"
			}
			if err := storage.DB.Model(&conversation).Update(side, false).Error; err != nil {
				return nil, err
			}
		}
		return &conversation, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	var listing models.Listing
	if err := storage.DB.First(&listing, listingID).Error; err != nil {
		return nil, utils.NotFoundError("listing %d not found", listingID)
	}

	conversation = models.Conversation{
		ListingID:   listingID,
		UserOneID:   oneID,
		UserOneRole: oneRole,
		UserTwoID:   twoID,
		UserTwoRole: twoRole,
	}
	if err := storage.DB.Create(&conversation).Error; err != nil {
		return nil, err
	}
	return &conversation, nil
}

// SendMessage persists a message, updates the conversation snapshot and the
// receiver's unread count, then pushes to both parties' live sessions. The
// live push is best effort; the stored row is the source of truth.
func SendMessage(conversationID, senderID, receiverID uint, content string) (*models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, utils.ValidationError("message content must not be empty")
	}

	var conversation models.Conversation
	if err := storage.DB.First(&conversation, conversationID).Error; err != nil {
		return nil, utils.NotFoundError("conversation %d not found", conversationID)
	}
	if !conversation.HasParticipant(senderID) || !conversation.HasParticipant(receiverID) || senderID == receiverID {
		return nil, utils.AuthorizationError("sender and receiver must be the conversation participants")
	}

	message := models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Content:        content,
	}
	if err := storage.DB.Create(&message).Error; err != nil {
		return nil, err
	}
	metrics.MessagesSent.Inc()

	unreadColumn := "user_one_unread"
	if receiverID == conversation.UserTwoID {
		unreadColumn = "user_two_unread"
	}
	now := message.CreatedAt
	updates := map[string]interface{}{
		"last_message":    content,
		"last_message_at": &now,
		unreadColumn:      gorm.Expr(unreadColumn+" + ?", 1),
		// a new message re-surfaces the conversation for a side that removed it
		"user_one_deleted": false,
		"user_two_deleted": false,
	}
	if err := storage.DB.Model(&conversation).Updates(updates).Error; err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"type":    "message",
		"message": &message,
	}
	pushJSON(receiverID, payload)
	pushJSON(senderID, payload) // echo/ack to the sender's other sessions

	return &message, nil
}

// History returns the conversation's messages ordered by server-assigned
// creation time, ties broken by insertion id. The order is stable across
// calls.
func History(conversationID, userID uint) ([]models.Message, error) {
	var conversation models.Conversation
	if err := storage.DB.First(&conversation, conversationID).Error; err != nil {
		return nil, utils.NotFoundError("conversation %d not found", conversationID)
	}
	if !conversation.HasParticipant(userID) {
		return nil, utils.AuthorizationError("user %d is not a participant of conversation %d", userID, conversationID)
	}
	if conversation.DeletedBy(userID) {
		return nil, utils.NotFoundError("conversation %d not found", conversationID)
	}

	var messages []models.Message
	if err := storage.DB.
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkConversationRead flips every unread message addressed to the reader and
// resets their unread counter. Calling it again is a no-op with updatedCount 0.
func MarkConversationRead(conversationID, readerID uint) (int64, error) {
	var conversation models.Conversation
	if err := storage.DB.First(&conversation, conversationID).Error; err != nil {
		return 0, utils.NotFoundError("conversation %d not found", conversationID)
	}
	if !conversation.HasParticipant(readerID) {
		return 0, utils.AuthorizationError("user %d is not a participant of conversation %d", readerID, conversationID)
	}

	res := storage.DB.Model(&models.Message{}).
		Where("conversation_id = ? AND receiver_id = ? AND read = ?", conversationID, readerID, false).
		Update("read", true)
	if res.Error != nil {
		return 0, res.Error
	}

	unreadColumn := "user_one_unread"
	if readerID == conversation.UserTwoID {
		unreadColumn = "user_two_unread"
	}
	if err := storage.DB.Model(&conversation).Update(unreadColumn, 0).Error; err != nil {
		return 0, err
	}

	// let the counterpart's live sessions update their read receipts
	pushJSON(conversation.Counterpart(readerID), map[string]interface{}{
		"type":           "read",
		"conversationID": conversationID,
		"readerID":       readerID,
	})

	return res.RowsAffected, nil
}

// DeleteConversation removes the conversation from the requester's view. Once
// both sides have removed it, the conversation and its messages are purged.
func DeleteConversation(conversationID, requesterID uint) error {
	var conversation models.Conversation
	if err := storage.DB.First(&conversation, conversationID).Error; err != nil {
		return utils.NotFoundError("conversation %d not found", conversationID)
	}
	if !conversation.HasParticipant(requesterID) {
		return utils.AuthorizationError("user %d is not a participant of conversation %d", requesterID, conversationID)
	}

	side := "user_one_deleted"
	otherDeleted := conversation.UserTwoDeleted
	if requesterID == conversation.UserTwoID {
		side = "user_two_deleted"
		otherDeleted = conversation.UserOneDeleted
	}

	if otherDeleted {
		// hard delete: a soft-deleted row would keep occupying the unique
		// (pair, listing) index and block the pair from ever talking again
		if err := storage.DB.Unscoped().Where("conversation_id = ?", conversationID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		return storage.DB.Unscoped().Delete(&conversation).Error
	}
	return storage.DB.Model(&conversation).Update(side, true).Error
}

// ConversationSummary is the list-view shape of a conversation for one
// participant.
type ConversationSummary struct {
	ID            uint       `json:"id"`
	ListingID     uint       `json:"listingID"`
	Counterpart   Identity   `json:"counterpart"`
	LastMessage   string     `json:"lastMessage"`
	LastMessageAt *time.Time `json:"lastMessageAt"`
	UnreadCount   int        `json:"unreadCount"`
}

// ConversationsFor lists the user's visible conversations, newest activity
// first, with the counterpart's resolved identity.
func ConversationsFor(userID uint, resolver IdentityResolver) ([]ConversationSummary, error) {
	var conversations []models.Conversation
	if err := storage.DB.
		Where("(user_one_id = ? AND user_one_deleted = ?) OR (user_two_id = ? AND user_two_deleted = ?)",
			userID, false, userID, false).
		Order("last_message_at DESC").
		Find(&conversations).Error; err != nil {
		return nil, err
	}

	summaries := make([]ConversationSummary, 0, len(conversations))
	for _, conversation := range conversations {
		counterpart, err := resolver.ResolveIdentity(conversation.Counterpart(userID))
		if err != nil {
			counterpart = Identity{DisplayName: "Unknown User"}
		}
		summaries = append(summaries, ConversationSummary{
			ID:            conversation.ID,
			ListingID:     conversation.ListingID,
			Counterpart:   counterpart,
			LastMessage:   conversation.LastMessage,
			LastMessageAt: conversation.LastMessageAt,
			UnreadCount:   conversation.UnreadFor(userID),
		})
	}
	return summaries, nil
}

// TypingStart marks the user as typing in the conversation for a few seconds
// and fans the signal out to the counterpart's live sessions. Nothing is
// persisted and there is no delivery guarantee.
func TypingStart(conversationID, userID uint) error {
	return typingSignal(conversationID, userID, true)
}

// TypingStop clears the typing flag immediately. A missing stop after a
// disconnect is tolerated: the redis key expires on its own and peers treat
// the signal as advisory.
func TypingStop(conversationID, userID uint) error {
	return typingSignal(conversationID, userID, false)
}

func typingSignal(conversationID, userID uint, typing bool) error {
	var conversation models.Conversation
	if err := storage.DB.First(&conversation, conversationID).Error; err != nil {
		return utils.NotFoundError("conversation %d not found", conversationID)
	}
	if !conversation.HasParticipant(userID) {
		return utils.AuthorizationError("user %d is not a participant of conversation %d", userID, conversationID)
	}

	if storage.Redis != nil {
		key := typingKey(conversationID, userID)
		if typing {
			storage.Redis.Set(typingContext, key, "1", 5*time.Second)
		} else {
			storage.Redis.Del(typingContext, key)
		}
	}

	kind := "typing_stop"
	if typing {
		kind = "typing_start"
	}
	pushJSON(conversation.Counterpart(userID), map[string]interface{}{
		"type":           kind,
		"conversationID": conversationID,
		"userID":         userID,
	})
	return nil
}

func typingKey(conversationID, userID uint) string {
	return fmt.Sprintf("typing:conv:%d:user:%d", conversationID, userID)
}
