package controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

const defaultPageSize = 20
const maxPageSize = 100

// parsePagination reads offset/limit query parameters with sane bounds.
func parsePagination(c *fiber.Ctx) (int, int) {
	offset, err := strconv.Atoi(c.Query("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	limit, err := strconv.Atoi(c.Query("limit", strconv.Itoa(defaultPageSize)))
	if err != nil || limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return offset, limit
}

// currentUserID returns the authenticated user ID placed by the API key middleware.
func currentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals("user_id").(uint)
	return id
}
