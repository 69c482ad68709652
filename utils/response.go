package utils

import (
	"github.com/kataras/iris/v12"
)

// PageMeta describes one page of a paginated result set.
type PageMeta struct {
	Page    int   `json:"page"`
	PerPage int   `json:"perPage"`
	Total   int64 `json:"total"`
}

// JSONPage renders a page of results with its pagination metadata.
func JSONPage(ctx iris.Context, data interface{}, page, perPage int, total int64) {
	ctx.JSON(iris.Map{
		"data": data,
		"meta": PageMeta{Page: page, PerPage: perPage, Total: total},
	})
}

// JSONError renders an error body in the same {error, message} shape the
// AppError taxonomy uses.
func JSONError(ctx iris.Context, status int, code, message string) {
	ctx.StatusCode(status)
	ctx.JSON(iris.Map{"error": code, "message": message})
}
