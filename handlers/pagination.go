package handlers

import (
	"github.com/gofiber/fiber/v2"

	"indibox/services"
)

type PaginationMeta struct {
	TotalItems  int64 `json:"total_items"`
	TotalPages  int   `json:"total_pages"`
	CurrentPage int   `json:"current_page"`
	PageSize    int   `json:"page_size"`
}

type PaginatedResponse[T any] struct {
	Data  []T                 `json:"data"`
	Meta  PaginationMeta      `json:"meta"`
	Links *services.PageLinks `json:"links,omitempty"`
}

// newPaginatedResponse wraps a page. Links are rendered only when the page
// came from a catalogue state.
func newPaginatedResponse[T any](page services.PageResponse[T], state *services.ListState) PaginatedResponse[T] {
	resp := PaginatedResponse[T]{
		Data: page.Items,
		Meta: PaginationMeta{
			TotalItems:  page.TotalItems,
			TotalPages:  page.TotalPages,
			CurrentPage: page.Page,
			PageSize:    page.PageSize,
		},
	}
	if state != nil {
		links := state.Links(page.TotalPages)
		resp.Links = &links
	}
	return resp
}

func pageRequest(c *fiber.Ctx) services.PageRequest {
	return services.PageRequest{
		Page:      c.QueryInt("page", 1),
		Genre:     c.Query("genre"),
		Sort:      c.Query("sort"),
		Direction: c.Query("dir"),
		Search:    c.Query("q"),
	}
}
