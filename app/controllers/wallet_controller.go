package controllers

import (
	"log"

	"github.com/astromitra/astromitra/app/repository"
	"github.com/gofiber/fiber/v2"
)

// HandleGetWallet returns the authenticated user's wallet balance, creating
// an empty wallet on first access.
func HandleGetWallet(c *fiber.Ctx) error {
	userID := currentUserID(c)

	wallet, err := repository.GetGlobalFactory().GetWalletRepository().GetOrCreate(userID)
	if err != nil {
		log.Printf("[wallet] lookup failed for user %d: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "wallet_lookup_failed"})
	}

	return c.JSON(wallet)
}

// HandleListWalletEntries returns the authenticated user's wallet ledger,
// newest first, paginated.
func HandleListWalletEntries(c *fiber.Ctx) error {
	userID := currentUserID(c)
	offset, limit := parsePagination(c)

	repo := repository.GetGlobalFactory().GetWalletRepository()
	entries, err := repo.ListEntries(userID, offset, limit)
	if err != nil {
		log.Printf("[wallet] entry listing failed for user %d: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "wallet_entries_failed"})
	}
	total, err := repo.CountEntries(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "wallet_entries_failed"})
	}

	return c.JSON(fiber.Map{
		"entries": entries,
		"total":   total,
		"offset":  offset,
		"limit":   limit,
	})
}
