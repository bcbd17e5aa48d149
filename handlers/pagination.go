package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

type PaginationParams struct {
	Limit  int
	Offset int
}

type PageResponse struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	NextOffset int         `json:"next_offset,omitempty"`
	HasMore    bool        `json:"has_more"`
}

func ParsePagination(c *gin.Context) PaginationParams {
	p := PaginationParams{Limit: DefaultLimit}

	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			p.Limit = l
		}
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o > 0 {
			p.Offset = o
		}
	}

	return p
}

// paginate slices items without reordering them.
func paginate[T any](items []T, p PaginationParams) PageResponse {
	total := len(items)
	start := min(p.Offset, total)
	end := min(start+p.Limit, total)

	resp := PageResponse{Data: items[start:end], Total: total}
	if end < total {
		resp.HasMore = true
		resp.NextOffset = end
	}
	return resp
}
