package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"
)

var searchParam = "search"

// SearchFilter is the free-text filter of list endpoints.
type SearchFilter struct {
	Search string
}

func (sf *SearchFilter) Bind(ctx echo.Context) {
	sf.Search = strings.TrimSpace(ctx.QueryParam(searchParam))
}
