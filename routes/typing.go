package routes

import (
	"fmt"
	"homematch-server/models"
	"homematch-server/services"
	"homematch-server/storage"
	"homematch-server/utils"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

// REST fallback for clients without a live connection; the websocket envelope
// is the primary path for typing signals.

func TypingStart(ctx iris.Context) {
	typingSignal(ctx, true)
}

func TypingStop(ctx iris.Context) {
	typingSignal(ctx, false)
}

func typingSignal(ctx iris.Context, typing bool) {
	claims := jwt.Get(ctx).(*utils.AccessToken)
	conversationID, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "invalid conversation id", ctx)
		return
	}

	var sigErr error
	if typing {
		sigErr = services.TypingStart(conversationID, claims.ID)
	} else {
		sigErr = services.TypingStop(conversationID, claims.ID)
	}
	if sigErr != nil {
		utils.WriteError(ctx, sigErr)
		return
	}
	ctx.JSON(iris.Map{"success": true})
}

// ListTyping reports whether the counterpart is currently typing, by checking
// the short-lived redis key.
func ListTyping(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)
	conversationID, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "invalid conversation id", ctx)
		return
	}

	var conversation models.Conversation
	if err := storage.DB.First(&conversation, conversationID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	if !conversation.HasParticipant(claims.ID) {
		ctx.StopWithStatus(iris.StatusForbidden)
		return
	}

	typing := []iris.Map{}
	counterpartID := conversation.Counterpart(claims.ID)
	if storage.Redis != nil {
		key := fmt.Sprintf("typing:conv:%d:user:%d", conversationID, counterpartID)
		if val, err := storage.Redis.Get(ctx.Request().Context(), key).Result(); err == nil && val == "1" {
			typing = append(typing, iris.Map{"userID": counterpartID})
		}
	}
	ctx.JSON(iris.Map{"typing": typing})
}
