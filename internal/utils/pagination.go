package utils

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const maxPageLimit = 100

// Pagination holds pagination parameters.
type Pagination struct {
	Page   int
	Limit  int
	Offset int
	Search string
}

// ParsePagination reads page, limit and search query params with sane defaults.
func ParsePagination(c *fiber.Ctx) Pagination {
	return NewPagination(c.Query("page", "1"), c.Query("limit", "20"), c.Query("search"))
}

// NewPagination builds a Pagination from raw query values.
func NewPagination(page, limit, search string) Pagination {
	p := parseInt(page, 1)
	l := parseInt(limit, 20)
	if l <= 0 {
		l = 20
	}
	if l > maxPageLimit {
		l = maxPageLimit
	}
	if p <= 0 {
		p = 1
	}

	return Pagination{
		Page:   p,
		Limit:  l,
		Offset: (p - 1) * l,
		Search: strings.TrimSpace(search),
	}
}

func parseInt(value string, fallback int) int {
	if parsed, err := strconv.Atoi(value); err == nil {
		return parsed
	}
	return fallback
}
