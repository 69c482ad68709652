package routes

import (
	"homematch-server/models"
	"homematch-server/storage"
	"homematch-server/utils"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

// Rating write path. One submission may carry several categories; the rows
// share the rater and a same-minute timestamp, which is what the feed groups
// into a single episode.

type RatingCategoryInput struct {
	Category string `json:"category" validate:"required,max=64"`
	Value    int    `json:"value" validate:"required,gte=1,lte=5"`
	Comment  string `json:"comment"`
}

type CreateRatingInput struct {
	UserID     uint                  `json:"userID" validate:"required"`
	Categories []RatingCategoryInput `json:"categories" validate:"required,min=1,dive"`
}

func CreateTenantRating(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var input CreateRatingInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	if input.UserID == claims.ID {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "cannot rate yourself", ctx)
		return
	}

	ratings := make([]models.TenantRating, 0, len(input.Categories))
	for _, category := range input.Categories {
		ratings = append(ratings, models.TenantRating{
			UserID:    input.UserID,
			RatedByID: claims.ID,
			Category:  category.Category,
			Value:     category.Value,
			Comment:   category.Comment,
		})
	}
	if err := storage.DB.Create(&ratings).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(ratings)
}

func CreateLandlordRating(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var input CreateRatingInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	if input.UserID == claims.ID {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "cannot rate yourself", ctx)
		return
	}

	ratings := make([]models.LandlordRating, 0, len(input.Categories))
	for _, category := range input.Categories {
		ratings = append(ratings, models.LandlordRating{
			UserID:    input.UserID,
			RatedByID: claims.ID,
			Category:  category.Category,
			Value:     category.Value,
			Comment:   category.Comment,
		})
	}
	if err := storage.DB.Create(&ratings).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(ratings)
}
