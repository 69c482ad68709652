package routes

import (
	"homematch-server/services"
	"homematch-server/utils"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

var aggregator = services.NewAggregator(services.Directory{})

// GetFeed returns the caller's unified notification feed partitioned into
// seen and unseen.
func GetFeed(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	seen, unseen, err := aggregator.Feed(claims.ID)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(iris.Map{"seen": seen, "unseen": unseen})
}

func GetUnreadCount(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	count, err := aggregator.UnreadCount(claims.ID)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(iris.Map{"unreadCount": count})
}

func MarkNotificationRead(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "invalid notification id", ctx)
		return
	}

	if err := aggregator.MarkRead(id, claims.ID); err != nil {
		utils.WriteError(ctx, err)
		return
	}
	ctx.JSON(iris.Map{"success": true})
}

func DeleteNotification(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)
	kind := ctx.Params().Get("kind")
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "invalid notification id", ctx)
		return
	}

	if err := aggregator.Delete(kind, id, claims.ID); err != nil {
		utils.WriteError(ctx, err)
		return
	}
	ctx.JSON(iris.Map{"success": true})
}
