package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/astromitra/astromitra/app/models"
	"github.com/astromitra/astromitra/app/repository"
	"github.com/astromitra/astromitra/internal/pkg/cache"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const horoscopeCacheTTL = time.Hour

// HandleGetDailyHoroscope serves today's content for a zodiac sign,
// read-through from the cache. Cache failures degrade to the database; they
// never fail the request.
func HandleGetDailyHoroscope(c *fiber.Ctx) error {
	sign := strings.ToLower(strings.TrimSpace(c.Params("sign")))
	if !models.IsValidZodiacSign(sign) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_sign"})
	}

	forDate := c.Query("date", time.Now().UTC().Format("2006-01-02"))
	cacheKey := fmt.Sprintf("horoscope:%s:%s", sign, forDate)

	if cached, err := cache.Get(cacheKey); err == nil {
		var h models.Horoscope
		if err := json.Unmarshal([]byte(cached), &h); err == nil {
			return c.JSON(h)
		}
	} else if !cache.IsNotFound(err) {
		log.Printf("[horoscope] cache read failed: %v", err)
	}

	h, err := repository.GetGlobalFactory().GetHoroscopeRepository().GetBySignAndDate(sign, forDate)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
		}
		log.Printf("[horoscope] lookup failed for %s/%s: %v", sign, forDate, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup_failed"})
	}

	if encoded, err := json.Marshal(h); err == nil {
		if err := cache.Set(cacheKey, encoded, horoscopeCacheTTL); err != nil {
			log.Printf("[horoscope] cache write failed: %v", err)
		}
	}

	return c.JSON(h)
}
