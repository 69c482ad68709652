package services

import (
	"homematch-server/models"
	"homematch-server/storage"
	"homematch-server/utils"
	"testing"
)

func TestFindOrCreateConversationIsSingleton(t *testing.T) {
	setupTestDB(t)
	tenant := createTestUser(t, "Tawanda", "Moyo", "tenant")
	landlord := createTestUser(t, "Linda", "Chikore", "landlord")
	listing := createTestListing(t, landlord.ID, "Avondale Cottage")

	first, err := FindOrCreateConversation(tenant.ID, tenant.Role, landlord.ID, landlord.Role, listing.ID)
	if err != nil {
		t.Fatalf("failed to create conversation: %v", err)
	}

	// starting from the other side must land on the same conversation
	second, err := FindOrCreateConversation(landlord.ID, landlord.Role, tenant.ID, tenant.Role, listing.ID)
	if err != nil {
		t.Fatalf("failed to find conversation: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected one conversation per pair and listing, got %d and %d", first.ID, second.ID)
	}
}

func TestFindOrCreateConversationRejectsSelf(t *testing.T) {
	setupTestDB(t)
	tenant := createTestUser(t, "Tawanda", "Moyo", "tenant")
	listing := createTestListing(t, tenant.ID, "Own Place")

	_, err := FindOrCreateConversation(tenant.ID, tenant.Role, tenant.ID, tenant.Role, listing.ID)
	assertErrorKind(t, err, utils.ErrValidation)
}

func TestSendMessageOrderingIsStable(t *testing.T) {
	setupTestDB(t)
	tenant := createTestUser(t, "Tawanda", "Moyo", "tenant")
	landlord := createTestUser(t, "Linda", "Chikore", "landlord")
	listing := createTestListing(t, landlord.ID, "Avondale Cottage")
	conversation, err := FindOrCreateConversation(tenant.ID, tenant.Role, landlord.ID, landlord.Role, listing.ID)
	if err != nil {
		t.Fatalf("failed to create conversation: %v", err)
	}

	contents := []string{"Is it still available?", "Yes, it is", "Great, when can I view it?"}
	senders := []uint{tenant.ID, landlord.ID, tenant.ID}
	for i, content := range contents {
		receiver := conversation.Counterpart(senders[i])
		if _, err := SendMessage(conversation.ID, senders[i], receiver, content); err != nil {
			t.Fatalf("failed to send message %d: %v", i, err)
		}
	}

	tenantView, err := History(conversation.ID, tenant.ID)
	if err != nil {
		t.Fatalf("failed to load history for tenant: %v", err)
	}
	landlordView, err := History(conversation.ID, landlord.ID)
	if err != nil {
		t.Fatalf("failed to load history for landlord: %v", err)
	}

	if len(tenantView) != len(contents) || len(landlordView) != len(contents) {
		t.Fatalf("expected %d messages, got %d and %d", len(contents), len(tenantView), len(landlordView))
	}
	for i := range contents {
		if tenantView[i].Content != contents[i] {
			t.Fatalf("tenant view out of order at %d: got %q, want %q", i, tenantView[i].Content, contents[i])
		}
		if tenantView[i].ID != landlordView[i].ID {
			t.Fatalf("participants disagree on order at %d: %d vs %d", i, tenantView[i].ID, landlordView[i].ID)
		}
	}
}

func TestSendMessageUpdatesSnapshotAndUnread(t *testing.T) {
	setupTestDB(t)
	tenant := createTestUser(t, "Tawanda", "Moyo", "tenant")
	landlord := createTestUser(t, "Linda", "Chikore", "landlord")
	listing := createTestListing(t, landlord.ID, "Avondale Cottage")
	conversation, _ := FindOrCreateConversation(tenant.ID, tenant.Role, landlord.ID, landlord.Role, listing.ID)

	receiver := conversation.Counterpart(tenant.ID)
	if _, err := SendMessage(conversation.ID, tenant.ID, receiver, "Hello"); err != nil {
		t.Fatalf("failed to send message: %v", err)
	}
	if _, err := SendMessage(conversation.ID, tenant.ID, receiver, "Anyone there?"); err != nil {
		t.Fatalf("failed to send message: %v", err)
	}

	var reloaded models.Conversation
	if err := storage.DB.First(&reloaded, conversation.ID).Error; err != nil {
		t.Fatalf("failed to reload conversation: %v", err)
	}
	if reloaded.LastMessage != "Anyone there?" {
		t.Fatalf("expected snapshot of the latest message, got %q", reloaded.LastMessage)
	}
	if reloaded.LastMessageAt == nil {
		t.Fatal("expected lastMessageAt to be set")
	}
	if got := reloaded.UnreadFor(landlord.ID); got != 2 {
		t.Fatalf("expected 2 unread for the receiver, got %d", got)
	}
	if got := reloaded.UnreadFor(tenant.ID); got != 0 {
		t.Fatalf("expected 0 unread for the sender, got %d", got)
	}
}

func TestSendMessageEmptyContent(t *testing.T) {
	setupTestDB(t)
	tenant := createTestUser(t, "Tawanda", "Moyo", "tenant")
	landlord := createTestUser(t, "Linda", "Chikore", "landlord")
	listing := createTestListing(t, landlord.ID, "Avondale Cottage")
	conversation, _ := FindOrCreateConversation(tenant.ID, tenant.Role, landlord.ID, landlord.Role, listing.ID)

	_, err := SendMessage(conversation.ID, tenant.ID, landlord.ID, "   ")
	assertErrorKind(t, err, utils.ErrValidation)
}

func TestSendMessageNonParticipant(t *testing.T) {
	setupTestDB(t)
	tenant := createTestUser(t, "Tawanda", "Moyo", "tenant")
	landlord := createTestUser(t, "Linda", "Chikore", "landlord")
	stranger := createTestUser(t, "Sam", "Ncube", "tenant")
	listing := createTestListing(t, landlord.ID, "Avondale Cottage")
	conversation, _ := FindOrCreateConversation(tenant.ID, tenant.Role, landlord.ID, landlord.Role, listing.ID)

	_, err := SendMessage(conversation.ID, stranger.ID, landlord.ID, "Let me in")
	assertErrorKind(t, err, utils.ErrAuthorization)
}

func TestMarkConversationReadIsIdempotent(t *testing.T) {
	setupTestDB(t)
	tenant := createTestUser(t, "Tawanda", "Moyo", "tenant")
	landlord := createTestUser(t, "Linda", "Chikore", "landlord")
	listing := createTestListing(t, landlord.ID, "Avondale Cottage")
	conversation, _ := FindOrCreateConversation(tenant.ID, tenant.Role, landlord.ID, landlord.Role, listing.ID)

	SendMessage(conversation.ID, tenant.ID, landlord.ID, "Hello")
	SendMessage(conversation.ID, tenant.ID, landlord.ID, "Still there?")

	updated, err := MarkConversationRead(conversation.ID, landlord.ID)
	if err != nil {
		t.Fatalf("failed to mark read: %v", err)
	}
	if updated != 2 {
		t.Fatalf("expected 2 messages marked read, got %d", updated)
	}

	var reloaded models.Conversation
	storage.DB.First(&reloaded, conversation.ID)
	if got := reloaded.UnreadFor(landlord.ID); got != 0 {
		t.Fatalf("expected unread counter reset, got %d", got)
	}

	// a second call is a no-op
	updated, err = MarkConversationRead(conversation.ID, landlord.ID)
	if err != nil {
		t.Fatalf("failed to mark read twice: %v", err)
	}
	if updated != 0 {
		t.Fatalf("expected no-op on repeated mark read, got %d", updated)
	}
}

func TestDeleteConversationPerSide(t *testing.T) {
	setupTestDB(t)
	tenant := createTestUser(t, "Tawanda", "Moyo", "tenant")
	landlord := createTestUser(t, "Linda", "Chikore", "landlord")
	listing := createTestListing(t, landlord.ID, "Avondale Cottage")
	conversation, _ := FindOrCreateConversation(tenant.ID, tenant.Role, landlord.ID, landlord.Role, listing.ID)
	SendMessage(conversation.ID, tenant.ID, landlord.ID, "Hello")

	if err := DeleteConversation(conversation.ID, tenant.ID); err != nil {
		t.Fatalf("failed to delete conversation: %v", err)
	}

	// hidden from the deleting side only
	if _, err := History(conversation.ID, tenant.ID); err == nil {
		t.Fatal("expected the conversation to be hidden from the deleting side")
	}
	landlordView, err := History(conversation.ID, landlord.ID)
	if err != nil {
		t.Fatalf("the other side must still see the conversation: %v", err)
	}
	if len(landlordView) != 1 {
		t.Fatalf("expected 1 message for the other side, got %d", len(landlordView))
	}

	// once both sides delete, conversation and messages are purged
	if err := DeleteConversation(conversation.ID, landlord.ID); err != nil {
		t.Fatalf("failed to delete conversation from the other side: %v", err)
	}
	var conversationCount, messageCount int64
	storage.DB.Model(&models.Conversation{}).Where("id = ?", conversation.ID).Count(&conversationCount)
	storage.DB.Model(&models.Message{}).Where("conversation_id = ?", conversation.ID).Count(&messageCount)
	if conversationCount != 0 || messageCount != 0 {
		t.Fatalf("expected full purge, got %d conversations and %d messages", conversationCount, messageCount)
	}
}

func TestPurgedConversationCanBeRecreated(t *testing.T) {
	setupTestDB(t)
	tenant := createTestUser(t, "Tawanda", "Moyo", "tenant")
	landlord := createTestUser(t, "Linda", "Chikore", "landlord")
	listing := createTestListing(t, landlord.ID, "Avondale Cottage")
	conversation, _ := FindOrCreateConversation(tenant.ID, tenant.Role, landlord.ID, landlord.Role, listing.ID)
	SendMessage(conversation.ID, tenant.ID, landlord.ID, "Hello")

	if err := DeleteConversation(conversation.ID, tenant.ID); err != nil {
		t.Fatalf("failed to delete conversation: %v", err)
	}
	if err := DeleteConversation(conversation.ID, landlord.ID); err != nil {
		t.Fatalf("failed to delete conversation from the other side: %v", err)
	}

	// the purged row must not keep occupying the unique (pair, listing) index
	recreated, err := FindOrCreateConversation(tenant.ID, tenant.Role, landlord.ID, landlord.Role, listing.ID)
	if err != nil {
		t.Fatalf("the pair must be able to start over on the same listing: %v", err)
	}
	if recreated.ID == conversation.ID {
		t.Fatalf("expected a fresh conversation, got the purged one back (%d)", recreated.ID)
	}

	history, err := History(recreated.ID, tenant.ID)
	if err != nil {
		t.Fatalf("failed to load history: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("a fresh conversation must start empty, got %d messages", len(history))
	}
}

func TestNewMessageResurfacesDeletedConversation(t *testing.T) {
	setupTestDB(t)
	tenant := createTestUser(t, "Tawanda", "Moyo", "tenant")
	landlord := createTestUser(t, "Linda", "Chikore", "landlord")
	listing := createTestListing(t, landlord.ID, "Avondale Cottage")
	conversation, _ := FindOrCreateConversation(tenant.ID, tenant.Role, landlord.ID, landlord.Role, listing.ID)
	SendMessage(conversation.ID, tenant.ID, landlord.ID, "Hello")

	if err := DeleteConversation(conversation.ID, tenant.ID); err != nil {
		t.Fatalf("failed to delete conversation: %v", err)
	}

	// the counterpart writes again
	if _, err := SendMessage(conversation.ID, landlord.ID, tenant.ID, "Are you still interested?"); err != nil {
		t.Fatalf("failed to send message: %v", err)
	}

	history, err := History(conversation.ID, tenant.ID)
	if err != nil {
		t.Fatalf("expected the conversation back in the tenant's view: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected full history after resurfacing, got %d messages", len(history))
	}
}

func TestConversationsForListsOnlyVisible(t *testing.T) {
	setupTestDB(t)
	tenant := createTestUser(t, "Tawanda", "Moyo", "tenant")
	landlord := createTestUser(t, "Linda", "Chikore", "landlord")
	listingOne := createTestListing(t, landlord.ID, "Avondale Cottage")
	listingTwo := createTestListing(t, landlord.ID, "Borrowdale Flat")

	first, _ := FindOrCreateConversation(tenant.ID, tenant.Role, landlord.ID, landlord.Role, listingOne.ID)
	second, _ := FindOrCreateConversation(tenant.ID, tenant.Role, landlord.ID, landlord.Role, listingTwo.ID)
	SendMessage(first.ID, tenant.ID, landlord.ID, "About the cottage")
	SendMessage(second.ID, tenant.ID, landlord.ID, "About the flat")
	DeleteConversation(first.ID, tenant.ID)

	summaries, err := ConversationsFor(tenant.ID, Directory{})
	if err != nil {
		t.Fatalf("failed to list conversations: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 visible conversation, got %d", len(summaries))
	}
	if summaries[0].ID != second.ID {
		t.Fatalf("expected conversation %d, got %d", second.ID, summaries[0].ID)
	}
	if summaries[0].Counterpart.DisplayName != "Linda Chikore" {
		t.Fatalf("unexpected counterpart %q", summaries[0].Counterpart.DisplayName)
	}
	if summaries[0].LastMessage != "About the flat" {
		t.Fatalf("unexpected last message %q", summaries[0].LastMessage)
	}
}

func TestTypingSignalRequiresParticipant(t *testing.T) {
	setupTestDB(t)
	tenant := createTestUser(t, "Tawanda", "Moyo", "tenant")
	landlord := createTestUser(t, "Linda", "Chikore", "landlord")
	stranger := createTestUser(t, "Sam", "Ncube", "tenant")
	listing := createTestListing(t, landlord.ID, "Avondale Cottage")
	conversation, _ := FindOrCreateConversation(tenant.ID, tenant.Role, landlord.ID, landlord.Role, listing.ID)

	if err := TypingStart(conversation.ID, tenant.ID); err != nil {
		t.Fatalf("participant typing should succeed: %v", err)
	}
	assertErrorKind(t, TypingStart(conversation.ID, stranger.ID), utils.ErrAuthorization)
	assertErrorKind(t, TypingStop(conversation.ID, stranger.ID), utils.ErrAuthorization)
}
