package routes

import (
	"homematch-server/services"
	"homematch-server/utils"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

type CreateMessageInput struct {
	ConversationID uint   `json:"conversationID" validate:"required"`
	ReceiverID     uint   `json:"receiverID" validate:"required"`
	Content        string `json:"content" validate:"required,lt=5000"`
}

// CreateMessage is the REST send path; the live channel uses the same engine
// through the websocket envelope.
func CreateMessage(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var input CreateMessageInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	message, err := services.SendMessage(input.ConversationID, claims.ID, input.ReceiverID, input.Content)
	if err != nil {
		utils.WriteError(ctx, err)
		return
	}
	ctx.JSON(message)
}

// ListMessages: GET /api/messages?conversationID=...
func ListMessages(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	conversationID, err := ctx.URLParamInt("conversationID")
	if err != nil || conversationID <= 0 {
		utils.JSONError(ctx, iris.StatusBadRequest, "Bad Request", "conversationID query parameter is required")
		return
	}

	messages, histErr := services.History(uint(conversationID), claims.ID)
	if histErr != nil {
		utils.WriteError(ctx, histErr)
		return
	}
	ctx.JSON(iris.Map{"messages": messages})
}

type MarkReadInput struct {
	ConversationID uint `json:"conversationID" validate:"required"`
}

// MarkConversationRead flips all messages addressed to the caller in the
// conversation and resets their unread count. Idempotent.
func MarkConversationRead(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var input MarkReadInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	updated, err := services.MarkConversationRead(input.ConversationID, claims.ID)
	if err != nil {
		utils.WriteError(ctx, err)
		return
	}
	ctx.JSON(iris.Map{"updatedCount": updated})
}
