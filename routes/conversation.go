package routes

import (
	"homematch-server/services"
	"homematch-server/utils"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

type CreateConversationInput struct {
	OtherID   uint   `json:"otherID" validate:"required"`
	OtherRole string `json:"otherRole" validate:"required,oneof=tenant landlord agent company"`
	ListingID uint   `json:"listingID" validate:"required"`
	Message   string `json:"message"`
}

// CreateConversation finds or creates the single conversation for the pair
// and listing, optionally sending an opening message.
func CreateConversation(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var input CreateConversationInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	conversation, err := services.FindOrCreateConversation(
		claims.ID, claims.Role, input.OtherID, input.OtherRole, input.ListingID)
	if err != nil {
		utils.WriteError(ctx, err)
		return
	}

	if input.Message != "" {
		if _, err := services.SendMessage(conversation.ID, claims.ID, input.OtherID, input.Message); err != nil {
			utils.WriteError(ctx, err)
			return
		}
	}

	ctx.JSON(conversation)
}

func GetConversationsByUserID(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	summaries, err := services.ConversationsFor(claims.ID, services.Directory{})
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(summaries)
}

// GetConversationByID returns the conversation's full ordered history for a
// participant.
func GetConversationByID(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)
	conversationID, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "invalid conversation id", ctx)
		return
	}

	messages, histErr := services.History(conversationID, claims.ID)
	if histErr != nil {
		utils.WriteError(ctx, histErr)
		return
	}
	ctx.JSON(iris.Map{"conversationID": conversationID, "messages": messages})
}

func DeleteConversation(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)
	conversationID, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "invalid conversation id", ctx)
		return
	}

	if err := services.DeleteConversation(conversationID, claims.ID); err != nil {
		utils.WriteError(ctx, err)
		return
	}
	ctx.JSON(iris.Map{"success": true})
}
