package controllers

import (
	"errors"
	"log"
	"strconv"
	"strings"

	"github.com/astromitra/astromitra/app/models"
	"github.com/astromitra/astromitra/app/repository"
	"github.com/astromitra/astromitra/internal/pkg/payments"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type createPaymentRequest struct {
	Method      string `json:"method"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Provider    string `json:"provider"`
	ProviderRef string `json:"provider_ref"`
}

// HandleCreatePayment creates a payment transaction for the authenticated
// user. Card/UPI payments start pending and are advanced by provider
// webhooks; wallet payments settle immediately against the wallet balance.
func HandleCreatePayment(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var req createPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
	}

	txn := &models.PaymentTransaction{
		UserID:      userID,
		Method:      strings.ToLower(strings.TrimSpace(req.Method)),
		Amount:      req.Amount,
		Currency:    strings.ToUpper(strings.TrimSpace(req.Currency)),
		Status:      models.TransactionStatusPending,
		Provider:    strings.ToLower(strings.TrimSpace(req.Provider)),
		ProviderRef: strings.TrimSpace(req.ProviderRef),
	}
	if err := txn.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}
	if txn.Method == models.PaymentMethodWallet {
		// Wallet payments never see a provider callback; give them an
		// internal reference so the (provider, provider_ref) uniqueness
		// holds.
		txn.Provider = "internal"
		txn.ProviderRef = "wallet:" + uuid.NewString()
	} else if txn.Provider == "" || txn.ProviderRef == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": "provider and provider_ref are required for provider payments"})
	}

	repos := repository.GetGlobalRepositories()
	if err := repos.Payment.Create(txn); err != nil {
		log.Printf("[payments] create transaction failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "transaction_create_failed"})
	}

	// Wallet payments settle synchronously; there is no provider callback.
	if txn.Method == models.PaymentMethodWallet {
		if err := repos.Wallet.Debit(userID, txn.Amount, txn.Currency, models.WalletReasonSessionCharge, &txn.ID); err != nil {
			if errors.Is(err, payments.ErrInsufficientBalance) {
				return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "insufficient_balance"})
			}
			log.Printf("[payments] wallet debit failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "wallet_debit_failed"})
		}
		txn.Status = models.TransactionStatusSucceeded
		if err := repos.Payment.Update(txn); err != nil {
			log.Printf("[payments] settle wallet transaction failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "transaction_update_failed"})
		}
	}

	return c.Status(fiber.StatusCreated).JSON(txn)
}

// HandleGetPayment returns one of the authenticated user's transactions.
func HandleGetPayment(c *fiber.Ctx) error {
	userID := currentUserID(c)

	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_id"})
	}

	txn, err := repository.GetGlobalFactory().GetPaymentRepository().GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup_failed"})
	}
	if txn.UserID != userID {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
	}

	return c.JSON(txn)
}

// HandleListPayments returns the authenticated user's transactions, paginated.
func HandleListPayments(c *fiber.Ctx) error {
	userID := currentUserID(c)
	offset, limit := parsePagination(c)

	repo := repository.GetGlobalFactory().GetPaymentRepository()
	txns, err := repo.GetByUserID(userID, offset, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup_failed"})
	}
	total, err := repo.CountByUserID(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup_failed"})
	}

	return c.JSON(fiber.Map{
		"transactions": txns,
		"total":        total,
		"offset":       offset,
		"limit":        limit,
	})
}
