package routes

import (
	"homematch-server/models"
	"homematch-server/storage"
	"homematch-server/utils"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

type CreateListingInput struct {
	Title       string  `json:"title" validate:"required,max=256"`
	Description string  `json:"description"`
	Address     string  `json:"address" validate:"max=256"`
	City        string  `json:"city" validate:"max=128"`
	Type        string  `json:"type" validate:"required,oneof=rent sale"`
	Price       float64 `json:"price" validate:"gte=0"`
	ImageURL    string  `json:"imageURL" validate:"max=512"`
}

func CreateListing(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var input CreateListingInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	listing := models.Listing{
		OwnerID:     claims.ID,
		Title:       input.Title,
		Description: input.Description,
		Address:     input.Address,
		City:        input.City,
		Type:        input.Type,
		Price:       input.Price,
		ImageURL:    input.ImageURL,
	}
	if err := storage.DB.Create(&listing).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(listing)
}

// SearchListings: GET /api/listing?city=&type=&page=&perPage=
func SearchListings(ctx iris.Context) {
	page := ctx.URLParamIntDefault("page", 1)
	if page < 1 {
		page = 1
	}
	perPage := ctx.URLParamIntDefault("perPage", 20)
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	query := storage.DB.Model(&models.Listing{})
	if city := ctx.URLParam("city"); city != "" {
		query = query.Where("city = ?", city)
	}
	if listingType := ctx.URLParam("type"); listingType != "" {
		query = query.Where("type = ?", listingType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	var listings []models.Listing
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&listings).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	utils.JSONPage(ctx, listings, page, perPage, total)
}

func GetListing(ctx iris.Context) {
	id := ctx.Params().Get("id")

	var listing models.Listing
	if err := storage.DB.Preload("Owner").First(&listing, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	ctx.JSON(listing)
}

func GetListingsByOwnerID(ctx iris.Context) {
	id := ctx.Params().Get("id")

	var listings []models.Listing
	if err := storage.DB.Where("owner_id = ?", id).Order("created_at DESC").Find(&listings).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(listings)
}
