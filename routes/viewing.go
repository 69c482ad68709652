package routes

import (
	"homematch-server/models"
	"homematch-server/services"
	"homematch-server/utils"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

type ProposeViewingInput struct {
	ListingID uint                      `json:"listingID" validate:"required"`
	Proposals []models.TimeSlotProposal `json:"proposals" validate:"required,min=1,dive"`
}

// ProposeViewing sends the listing owner a viewing request carrying the
// requester's proposed weekly slots.
func ProposeViewing(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var input ProposeViewingInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	notification, err := services.ProposeViewing(claims.ID, input.ListingID, input.Proposals)
	if err != nil {
		utils.WriteError(ctx, err)
		return
	}
	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(notification)
}

// SelectConcreteSlot creates a pending reservation for a concrete date under
// a viewing request.
func SelectConcreteSlot(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)
	notificationID, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "invalid notification id", ctx)
		return
	}

	var input services.SlotSelection
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	reservation, slotErr := services.SelectConcreteSlot(notificationID, claims.ID, input)
	if slotErr != nil {
		utils.WriteError(ctx, slotErr)
		return
	}
	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(reservation)
}

func AcceptReservation(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)
	reservationID, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "invalid reservation id", ctx)
		return
	}

	reservation, remaining, acceptErr := services.AcceptReservation(reservationID, claims.ID)
	if acceptErr != nil {
		utils.WriteError(ctx, acceptErr)
		return
	}
	ctx.JSON(iris.Map{
		"reservation":      reservation,
		"remainingPending": remaining,
	})
}

func AcceptAllPending(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)
	notificationID, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "invalid notification id", ctx)
		return
	}

	outcomes, batchErr := services.AcceptAllPending(notificationID, claims.ID)
	if batchErr != nil {
		utils.WriteError(ctx, batchErr)
		return
	}
	ctx.JSON(iris.Map{"results": outcomes})
}

func RejectReservation(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)
	reservationID, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "invalid reservation id", ctx)
		return
	}

	var reason services.RejectionReason
	if err := ctx.ReadJSON(&reason); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	reservation, remaining, rejectErr := services.RejectReservation(reservationID, claims.ID, reason)
	if rejectErr != nil {
		utils.WriteError(ctx, rejectErr)
		return
	}
	ctx.JSON(iris.Map{
		"reservation":      reservation,
		"remainingPending": remaining,
	})
}

// ListViewingReservations lists the reservations under a viewing request for
// either party.
func ListViewingReservations(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)
	notificationID, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "invalid notification id", ctx)
		return
	}

	reservations, listErr := services.ReservationsForNotification(notificationID, claims.ID)
	if listErr != nil {
		utils.WriteError(ctx, listErr)
		return
	}
	ctx.JSON(reservations)
}
